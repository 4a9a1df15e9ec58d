package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linemk/print-orders/internal/service"
)

// SessionManager выдаёт и отзывает админскую сессию
type SessionManager interface {
	Login(ctx context.Context, w http.ResponseWriter) error
	Logout(w http.ResponseWriter, r *http.Request) error
}

type LoginRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// LoginHandler принимает {user, pass} в JSON или в форме
func LoginHandler(log *slog.Logger, admin service.AdminService, sessions SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				logger.Info("invalid request: decoding error", slog.Any("error", err))
				writeFailure(w, logger, http.StatusBadRequest, "invalid request")
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				logger.Info("invalid request: form error", slog.Any("error", err))
				writeFailure(w, logger, http.StatusBadRequest, "invalid request")
				return
			}
			req.User = r.PostFormValue("user")
			req.Pass = r.PostFormValue("pass")
		}

		if err := admin.Login(r.Context(), req.User, req.Pass); err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				logger.Warn("admin login failed")
				writeFailure(w, logger, http.StatusForbidden, "Invalid credentials")
				return
			}
			logger.Error("admin login error", slog.Any("error", err))
			writeFailure(w, logger, http.StatusInternalServerError, "internal error")
			return
		}

		if err := sessions.Login(r.Context(), w); err != nil {
			logger.Error("failed to create session", slog.Any("error", err))
			writeFailure(w, logger, http.StatusInternalServerError, "Session error")
			return
		}

		logger.Info("admin logged in")
		writeJSON(w, logger, http.StatusOK, SuccessResponse{Success: true})
	}
}

func LogoutHandler(log *slog.Logger, sessions SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LogoutHandler"
		logger := log.With(slog.String("op", op))

		if err := sessions.Logout(w, r); err != nil {
			logger.Error("failed to destroy session", slog.Any("error", err))
			writeFailure(w, logger, http.StatusInternalServerError, "Session error")
			return
		}
		writeJSON(w, logger, http.StatusOK, SuccessResponse{Success: true})
	}
}
