package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/print-orders/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrCodeTaken - вставка упала на уникальном индексе по code
	ErrCodeTaken = errors.New("order code already taken")
)

// код postgres для unique_violation
const uniqueViolation = "23505"

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CodeExists проверяет, занят ли код.
	CodeExists(ctx context.Context, code string) (bool, error)
	// CreateOrder вставляет заказ и проставляет ему ID.
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByCode ищет заказ по публичному коду.
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	// ListOrders возвращает все заказы, новые первыми.
	ListOrders(ctx context.Context) ([]*models.Order, error)
}

// orderRepository - конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const selectOrder = `SELECT id, code, name, email, COALESCE(phone, ''), details, file_filename, file_originalname, "createdAt" FROM orders`

func (r *orderRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM orders WHERE code = $1)", code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order code: %w", err)
	}
	return exists, nil
}

// CreateOrder вставляет новый заказ в таблицу orders.
// Пустой телефон и отсутствие файла хранятся как NULL.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	var fileName, originalName sql.NullString
	if order.File != nil {
		fileName = sql.NullString{String: order.File.Filename, Valid: true}
		originalName = sql.NullString{String: order.File.OriginalName, Valid: true}
	}

	query := `INSERT INTO orders (code, name, email, phone, details, file_filename, file_originalname, "createdAt")
	          VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8) RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		order.Code, order.Name, order.Email, order.Phone, order.Details, fileName, originalName, order.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.ID = id
	return order, nil
}

func (r *orderRepository) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+" WHERE code = $1", code)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+" ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*models.Order, error) {
	order := &models.Order{}
	var fileName, originalName sql.NullString
	if err := s.Scan(&order.ID, &order.Code, &order.Name, &order.Email, &order.Phone, &order.Details,
		&fileName, &originalName, &order.CreatedAt); err != nil {
		return nil, err
	}
	if fileName.Valid {
		order.File = &models.OrderFile{Filename: fileName.String, OriginalName: originalName.String}
	}
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}
