package handlers

import (
	"net/http"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lifeQuestClient/internal/identity"
	"lifeQuestClient/internal/store"
	"lifeQuestClient/middleware"
)

type RouterConfig struct {
	Store       *store.Memory
	BotToken    string
	InitDataTTL time.Duration
	RateLimiter *middleware.RateLimiter
	Registry    *prometheus.Registry
	MetricsUser string
	MetricsPass string
	Logger      *zap.Logger
}

// NewRouter builds the development backend with CORS and panic recovery applied.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	metrics := middleware.NewMetrics(cfg.Registry)
	auth := middleware.NewTelegramAuth(cfg.BotToken, cfg.InitDataTTL, cfg.Logger)

	taskHandler := NewTaskHandler(cfg.Store, "type")
	systemTaskHandler := NewTaskHandler(cfg.Store, "period")
	userTaskHandler := NewUserTaskHandler(cfg.Store)
	profileHandler := NewProfileHandler(cfg.Store)

	r := mux.NewRouter()
	standardRouter := r.PathPrefix("/").Subrouter()
	if cfg.RateLimiter != nil {
		standardRouter.Use(cfg.RateLimiter.Middleware)
	}
	standardRouter.Use(metrics.MonitorMiddleware)

	standardRouter.Handle("/metrics",
		middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))).
		Methods("GET")

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "lifequest-api"})
	}).Methods("GET")

	api := standardRouter.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/tasks", taskHandler.GetTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}/complete", taskHandler.CompleteTask).Methods("POST")
	api.HandleFunc("/system-tasks", systemTaskHandler.GetTasks).Methods("GET")
	api.HandleFunc("/system-tasks/{id}/complete", systemTaskHandler.CompleteTask).Methods("POST")

	api.HandleFunc("/user-tasks", userTaskHandler.GetUserTasks).Methods("GET")
	api.HandleFunc("/user-tasks", userTaskHandler.CreateUserTask).Methods("POST")
	api.HandleFunc("/user-tasks/{id}", userTaskHandler.UpdateUserTask).Methods("PATCH")
	api.HandleFunc("/user-tasks/{id}", userTaskHandler.DeleteUserTask).Methods("DELETE")
	api.HandleFunc("/user-tasks/{id}/complete", userTaskHandler.CompleteUserTask).Methods("POST")

	api.HandleFunc("/achievements", profileHandler.GetAchievements).Methods("GET")
	api.HandleFunc("/achievements/leaderboard", profileHandler.GetLeaderboard).Methods("GET")

	api.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	api.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")
	api.HandleFunc("/profile/stats", profileHandler.GetStats).Methods("GET")

	api.HandleFunc("/challenges", profileHandler.GetChallenges).Methods("GET")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", identity.HeaderName, "ngrok-skip-browser-warning"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(zap.NewStdLog(cfg.Logger)),
		gorillaHandlers.PrintRecoveryStack(false),
	)
	return recovery(corsHandler(r))
}
