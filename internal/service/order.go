package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"mime/multipart"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/print-orders/internal/domain/models"
	"github.com/linemk/print-orders/internal/lib/codegen"
	"github.com/linemk/print-orders/internal/lib/metrics"
	"github.com/linemk/print-orders/internal/storage"
	"github.com/linemk/print-orders/internal/uploads"
)

const (
	DefaultMaxCodeAttempts = 20
	DefaultNotifyTimeout   = 30 * time.Second
)

// SubmitInput поля формы заказа
type SubmitInput struct {
	Name    string `form:"name" validate:"required"`
	Email   string `form:"email" validate:"required,email"`
	Phone   string `form:"phone"`
	Details string `form:"details" validate:"required,min=5"`
}

// SubmitResult ответ клиенту после создания заказа
type SubmitResult struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

// FileStore хранилище загруженных файлов.
// Save возвращает nil без ошибки, если файл не прошёл фильтр типов.
type FileStore interface {
	Save(fh *multipart.FileHeader) (*models.OrderFile, error)
	Remove(filename string) error
}

// Notifier отправляет письмо оператору
type Notifier interface {
	Notify(ctx context.Context, n models.OrderNotification) error
}

type OrderService interface {
	Submit(ctx context.Context, in SubmitInput, file *multipart.FileHeader) (*SubmitResult, error)
	GetByCode(ctx context.Context, code string) (*models.Order, error)
	List(ctx context.Context) ([]*models.Order, error)
	// Wait дожидается отправки уже запущенных уведомлений
	Wait()
}

type orderService struct {
	log           *slog.Logger
	repo          storage.OrderStorage
	files         FileStore
	notifier      Notifier
	validate      *validator.Validate
	generate      codegen.Generator
	maxAttempts   int
	notifyTimeout time.Duration
	now           func() time.Time
	pending       sync.WaitGroup
}

type OrderOption func(*orderService)

func WithCodeGenerator(g codegen.Generator) OrderOption {
	return func(s *orderService) { s.generate = g }
}

func WithMaxCodeAttempts(n int) OrderOption {
	return func(s *orderService) { s.maxAttempts = n }
}

func WithNotifyTimeout(d time.Duration) OrderOption {
	return func(s *orderService) { s.notifyTimeout = d }
}

func WithClock(now func() time.Time) OrderOption {
	return func(s *orderService) { s.now = now }
}

// NewOrderService создаёт сервис приёма заказов. notifier может быть nil - тогда письма не отправляются.
func NewOrderService(log *slog.Logger, repo storage.OrderStorage, files FileStore, notifier Notifier, opts ...OrderOption) OrderService {
	s := &orderService{
		log:           log,
		repo:          repo,
		files:         files,
		notifier:      notifier,
		validate:      newValidator(),
		generate:      codegen.Generate,
		maxAttempts:   DefaultMaxCodeAttempts,
		notifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	// в ошибках используем имена полей формы
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// Submit проверяет заявку, выделяет уникальный код и сохраняет заказ.
// Уведомление оператору уходит в фоне и на ответ не влияет.
func (s *orderService) Submit(ctx context.Context, in SubmitInput, file *multipart.FileHeader) (*SubmitResult, error) {
	const op = "service.OrderService.Submit"
	logger := s.log.With(slog.String("op", op))

	in = normalize(in)
	if err := s.validateInput(in); err != nil {
		logger.Info("submission rejected", slog.Any("error", err))
		return nil, err
	}

	order := &models.Order{
		Name:    html.EscapeString(in.Name),
		Email:   in.Email,
		Phone:   html.EscapeString(in.Phone),
		Details: html.EscapeString(in.Details),
	}

	// файл сохраняем только после успешной валидации
	if file != nil {
		stored, err := s.files.Save(file)
		if err != nil {
			if errors.Is(err, uploads.ErrFileTooLarge) {
				metrics.SubmissionsRejected.WithLabelValues("file_too_large").Inc()
				return nil, &ValidationError{Field: "file", Err: ErrFileTooLarge}
			}
			logger.Error("failed to store upload", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to store upload: %w", op, err)
		}
		if stored == nil {
			logger.Info("upload dropped by type filter", slog.String("filename", file.Filename))
		}
		order.File = stored
	}

	created, err := s.insertWithUniqueCode(ctx, logger, order)
	if err != nil {
		if order.File != nil {
			if rmErr := s.files.Remove(order.File.Filename); rmErr != nil {
				logger.Error("failed to remove upload", slog.Any("error", rmErr))
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.OrdersCreated.Inc()
	logger.Info("order created", slog.String("code", created.Code), slog.Int64("id", created.ID))

	s.notifyAsync(created)

	return &SubmitResult{Code: created.Code, URL: created.URL()}, nil
}

// insertWithUniqueCode генерирует код, проверяет его в БД и вставляет заказ.
// Проверка и вставка не атомарны, поэтому конфликт уникального индекса тоже ведёт к повтору.
func (s *orderService) insertWithUniqueCode(ctx context.Context, logger *slog.Logger, order *models.Order) (*models.Order, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			logger.Error("failed to check code", slog.Any("error", err))
			return nil, fmt.Errorf("failed to check code: %w", err)
		}
		if exists {
			metrics.CodeCollisions.Inc()
			logger.Debug("code already taken", slog.String("code", code), slog.Int("attempt", attempt))
			continue
		}

		order.Code = code
		order.CreatedAt = s.now().UTC()
		created, err := s.repo.CreateOrder(ctx, order)
		if errors.Is(err, storage.ErrCodeTaken) {
			metrics.CodeCollisions.Inc()
			logger.Warn("code taken by concurrent insert", slog.String("code", code), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		return created, nil
	}

	logger.Error("code allocation exhausted", slog.Int("attempts", s.maxAttempts))
	return nil, ErrCodeAllocationExhausted
}

func (s *orderService) notifyAsync(order *models.Order) {
	if s.notifier == nil {
		return
	}

	n := models.OrderNotification{
		Code:    order.Code,
		Name:    order.Name,
		Email:   order.Email,
		Details: order.Details,
		URL:     order.URL(),
	}
	logger := s.log.With(slog.String("op", "service.OrderService.notify"), slog.String("code", order.Code))

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.Notifications.WithLabelValues("failed").Inc()
				logger.Error("notifier panicked", slog.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, n); err != nil {
			metrics.Notifications.WithLabelValues("failed").Inc()
			logger.Warn("failed to send notification", slog.Any("error", err))
			return
		}
		metrics.Notifications.WithLabelValues("sent").Inc()
		logger.Debug("notification sent")
	}()
}

func (s *orderService) Wait() {
	s.pending.Wait()
}

func (s *orderService) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	const op = "service.OrderService.GetByCode"

	order, err := s.repo.GetOrderByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		s.log.Error("failed to get order", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context) ([]*models.Order, error) {
	const op = "service.OrderService.List"

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func normalize(in SubmitInput) SubmitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Details = strings.TrimSpace(in.Details)
	return in
}

// validateInput сначала сообщает об отсутствующих полях, затем о формате email, затем о длине details
func (s *orderService) validateInput(in SubmitInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			metrics.SubmissionsRejected.WithLabelValues("missing_field").Inc()
			return &ValidationError{Field: fe.Field(), Err: ErrMissingField}
		}
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "email" {
			metrics.SubmissionsRejected.WithLabelValues("invalid_email").Inc()
			return &ValidationError{Field: fe.Field(), Err: ErrInvalidEmail}
		}
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "min" {
			metrics.SubmissionsRejected.WithLabelValues("details_too_short").Inc()
			return &ValidationError{Field: fe.Field(), Err: ErrDetailsTooShort}
		}
	}
	return &ValidationError{Field: fieldErrs[0].Field(), Err: err}
}
