package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifeQuestClient/handlers"
	"lifeQuestClient/internal/store"
	"lifeQuestClient/middleware"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "serve",
		Short:       "Run an in-memory backend that speaks the LifeQuest API",
		Long:        "serve starts a development backend with the same REST contract as production. State lives in memory and is lost on exit.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	logger := a.logger.Named("serve")
	if a.cfg.BotToken == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, identity headers are trusted without verification")
	}
	if a.cfg.MetricsUser == "" {
		logger.Info("METRICS_USER is not set, /metrics is closed")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	limiter := middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go limiter.CleanupVisitors(cleanupCtx)

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:       store.NewMemory(),
		BotToken:    a.cfg.BotToken,
		InitDataTTL: a.cfg.InitDataTTL,
		RateLimiter: limiter,
		Registry:    registry,
		MetricsUser: a.cfg.MetricsUser,
		MetricsPass: a.cfg.MetricsPass,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}
