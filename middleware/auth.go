package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lifeQuestClient/internal/identity"
)

type contextKey string

const TelegramUserKey contextKey = "telegramUser"

// TelegramAuth reads the X-Telegram-Auth-Data header. When botToken is set the
// embedded init data must also carry a valid signature no older than maxAge.
type TelegramAuth struct {
	botToken string
	maxAge   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewTelegramAuth(botToken string, maxAge time.Duration, logger *zap.Logger) *TelegramAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramAuth{botToken: botToken, maxAge: maxAge, logger: logger, now: time.Now}
}

func (a *TelegramAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(identity.HeaderName)
		if header == "" {
			respondWithError(w, http.StatusUnauthorized, identity.HeaderName+" header required")
			return
		}

		assertion, err := identity.ParseHeader(header)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid identity header")
			return
		}

		if a.botToken != "" {
			if err := identity.VerifyInitData(assertion.Hash, a.botToken, a.maxAge, a.now()); err != nil {
				a.logger.Info("init data verification failed",
					zap.Int64("telegram_id", assertion.User.ID),
					zap.Error(err))
				respondWithError(w, http.StatusUnauthorized, "Invalid init data")
				return
			}
			// the signed user wins over the unsigned header fields
			signed, err := identity.ParseInitDataUser(assertion.Hash)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Invalid init data")
				return
			}
			assertion.User = signed
		}

		ctx := context.WithValue(r.Context(), TelegramUserKey, assertion.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTelegramUser extracts the authenticated user from context.
func GetTelegramUser(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(TelegramUserKey).(identity.User)
	return u, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
