package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/linemk/print-orders/internal/config"
	"github.com/linemk/print-orders/internal/notify"
	"github.com/linemk/print-orders/internal/ratelimit"
	"github.com/linemk/print-orders/internal/service"
	"github.com/linemk/print-orders/internal/session"
	"github.com/linemk/print-orders/internal/storage"
	"github.com/linemk/print-orders/internal/uploads"
	"github.com/redis/go-redis/v9"
	"github.com/resend/resend-go/v3"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB

	Orders   service.OrderService
	Admin    service.AdminService
	Sessions *session.Manager
	Limiter  ratelimit.Limiter
	Uploads  *uploads.Store

	sessionStore session.Store
}

// NewApp создаёт новый экземпляр App: подключение к БД, хранилища и сервисы
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := OpenDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	app, err := newApp(log, cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// OpenDB открывает подключение к postgres и проверяет его
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func newApp(log *slog.Logger, cfg *config.Config, db *sql.DB) (*App, error) {
	files, err := uploads.NewStore(log, cfg.Uploads.Dir, cfg.Uploads.MaxSize)
	if err != nil {
		return nil, err
	}

	admin, err := service.NewAdminService(log, cfg.Admin.User, cfg.Admin.Password)
	if err != nil {
		return nil, err
	}

	// без redis сессии и лимиты живут в памяти процесса
	var (
		store   session.Store
		limiter ratelimit.Limiter
	)
	if cfg.Redis.Address != "" {
		client, err := connectRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		store = session.NewRedisStore(client)
		limiter = ratelimit.NewRedisLimiter(client)
		log.Info("using redis for sessions and rate limits", slog.String("address", cfg.Redis.Address))
	} else {
		store = session.NewMemoryStore()
		limiter = ratelimit.NewMemoryLimiter()
		log.Info("using in-memory sessions and rate limits")
	}

	sessions, err := session.NewManager(log, store, cfg.Session.Secret, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	notifier := NewNotifier(log, cfg.Notify)
	orders := service.NewOrderService(log, storage.NewOrderRepository(db), files, notifier,
		service.WithNotifyTimeout(cfg.Notify.Timeout),
	)

	return &App{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		Orders:       orders,
		Admin:        admin,
		Sessions:     sessions,
		Limiter:      limiter,
		Uploads:      files,
		sessionStore: store,
	}, nil
}

func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewNotifier выбирает транспорт писем: Resend при наличии ключа, иначе SMTP.
// Без получателя или транспорта возвращает nil и уведомления не отправляются.
func NewNotifier(log *slog.Logger, cfg config.NotifyConfig) service.Notifier {
	switch {
	case cfg.Recipient == "":
		log.Info("notifications disabled: no recipient")
		return nil
	case cfg.ResendKey != "":
		log.Info("notifications via resend", slog.String("to", cfg.Recipient))
		return notify.NewResendNotifier(resend.NewClient(cfg.ResendKey), cfg.From, cfg.Recipient)
	case cfg.SMTP.Host != "":
		log.Info("notifications via smtp", slog.String("host", cfg.SMTP.Host), slog.String("to", cfg.Recipient))
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			Secure:   cfg.SMTP.Secure,
			From:     cfg.From,
			To:       cfg.Recipient,
		})
	default:
		log.Info("notifications disabled: no transport configured")
		return nil
	}
}

// Close дожидается фоновых уведомлений и закрывает соединения
func (a *App) Close() error {
	a.Orders.Wait()

	var errs []error
	if err := a.sessionStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close session store: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
