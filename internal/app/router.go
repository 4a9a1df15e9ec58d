package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/print-orders/internal/app/handlers"
	"github.com/linemk/print-orders/internal/lib/logger/handlers/urllog"
	"github.com/linemk/print-orders/internal/ratelimit"
	"github.com/linemk/print-orders/internal/service"
	"github.com/linemk/print-orders/internal/session/sessionmiddleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Sessions - то, что роутеру нужно от менеджера сессий
type Sessions interface {
	handlers.SessionManager
	sessionmiddleware.Authenticator
}

// RouterDeps зависимости HTTP слоя
type RouterDeps struct {
	Log            *slog.Logger
	Orders         service.OrderService
	Admin          service.AdminService
	Sessions       Sessions
	Limiter        ratelimit.Limiter
	Files          handlers.FileOpener
	RateLimit      int
	RateWindow     time.Duration
	TrustProxy     bool
	MaxFileSize    int64
	StaticDir      string
	AllowedOrigins []string
}

// Router собирает маршруты сервиса из зависимостей App
func (a *App) Router() http.Handler {
	return NewRouter(RouterDeps{
		Log:            a.Logger,
		Orders:         a.Orders,
		Admin:          a.Admin,
		Sessions:       a.Sessions,
		Limiter:        a.Limiter,
		Files:          a.Uploads,
		RateLimit:      a.Config.RateLimit.Limit,
		RateWindow:     a.Config.RateLimit.Window,
		TrustProxy:     a.Config.RateLimit.TrustProxy,
		MaxFileSize:    a.Uploads.MaxSize(),
		StaticDir:      a.Config.Static.Dir,
		AllowedOrigins: a.Config.CORS.AllowedOrigins,
	})
}

func NewRouter(d RouterDeps) http.Handler {
	log := d.Log

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	// заголовки прокси принимаются только от доверенного прокси
	if d.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(handlers.SecurityHeaders)
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowCredentials: true,
		}).Handler)
	}

	router.Handle("/metrics", promhttp.Handler())

	requireAdmin := sessionmiddleware.RequireAdmin(log, d.Sessions)
	limit := ratelimit.Middleware(log, d.Limiter, d.RateLimit, d.RateWindow, d.TrustProxy)

	// заказы доступны и по /orders, и по /api/orders
	orderRoutes := func(r chi.Router) {
		r.With(limit).Post("/orders", handlers.SubmitOrderHandler(log, d.Orders, d.MaxFileSize))
		r.With(requireAdmin).Get("/orders", handlers.ListOrdersHandler(log, d.Orders))
		r.With(requireAdmin).Get("/orders.csv", handlers.ExportOrdersCSVHandler(log, d.Orders))
		r.Get("/orders/{code}", handlers.GetOrderHandler(log, d.Orders))
	}
	router.Group(orderRoutes)
	router.Route("/api", orderRoutes)

	router.Post("/admin/login", handlers.LoginHandler(log, d.Admin, d.Sessions))
	router.Post("/admin/logout", handlers.LogoutHandler(log, d.Sessions))

	router.Get("/uploads/{filename}", handlers.UploadHandler(log, d.Files))

	// страницы
	router.Get("/o/{code}", handlers.PageHandler(log, d.StaticDir, "order.html"))
	router.Get("/admin-login", handlers.PageHandler(log, d.StaticDir, "admin-login.html"))
	router.Handle("/*", handlers.StaticHandler(d.StaticDir))

	return router
}
