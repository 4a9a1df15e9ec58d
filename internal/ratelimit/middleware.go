package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linemk/print-orders/internal/lib/metrics"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

// Middleware ограничивает число запросов с одного адреса. Ошибки лимитера пропускают запрос.
// Заголовки прокси учитываются только при trustProxy.
func Middleware(log *slog.Logger, limiter Limiter, limit int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	logger := log.With(slog.String("op", "ratelimit.Middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trustProxy)
			count, err := limiter.Hit(r.Context(), ip, window)
			if err != nil {
				logger.Error("rate limiter unavailable", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > limit {
				metrics.RateLimited.Inc()
				logger.Warn("rate limit exceeded", slog.String("client", ip), slog.Int("count", count))
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "Too many requests, slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP возвращает адрес клиента. Без trustProxy это всегда адрес TCP-соединения.
// За доверенным прокси берётся X-Real-IP, иначе последняя запись X-Forwarded-For,
// которую дописал сам прокси.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
