package sessionmiddleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/print-orders/internal/session"
)

// Authenticator проверяет сессию в запросе
type Authenticator interface {
	Authenticated(r *http.Request) error
}

var _ Authenticator = (*session.Manager)(nil)

// RequireAdmin пропускает только запросы с действующей админской сессией
func RequireAdmin(log *slog.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := auth.Authenticated(r)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}
			if !errors.Is(err, session.ErrNoSession) {
				log.Error("failed to check session",
					slog.String("op", "sessionmiddleware.RequireAdmin"),
					slog.Any("error", err),
				)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
		})
	}
}
