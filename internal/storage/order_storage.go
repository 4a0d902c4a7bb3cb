package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// PostgresOrderStorage реализует OrderStorage для PostgreSQL.
type PostgresOrderStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStorage создаёт новый экземпляр PostgresOrderStorage.
func NewPostgresOrderStorage(pool *pgxpool.Pool) *PostgresOrderStorage {
	return &PostgresOrderStorage{pool: pool}
}

// Create создаёт новый заказ.
func (s *PostgresOrderStorage) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, website_ref, price, status, fail_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	err := s.pool.QueryRow(ctx, query,
		order.ID,
		order.UserID,
		order.WebsiteRef,
		order.Price,
		order.Status,
		order.FailReason,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID возвращает заказ по идентификатору.
func (s *PostgresOrderStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `
		SELECT id, user_id, website_ref, price, status, fail_reason, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	return scanOrder(s.pool.QueryRow(ctx, query, id))
}

// GetByUserID возвращает список заказов пользователя (новые первыми).
func (s *PostgresOrderStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	query := `
		SELECT id, user_id, website_ref, price, status, fail_reason, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return orders, nil
}

// UpdateStatus обновляет статус заказа и причину отказа.
func (s *PostgresOrderStorage) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, failReason *string) error {
	query := `
		UPDATE orders
		SET status = $1, fail_reason = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := s.pool.Exec(ctx, query, status, failReason, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdateStatusTx обновляет статус заказа в рамках переданной транзакции.
func (s *PostgresOrderStorage) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.OrderStatus, failReason *string) error {
	query := `
		UPDATE orders
		SET status = $1, fail_reason = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, status, failReason, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// GetStuckProcessing возвращает заказы, застрявшие в processing дольше
// указанного срока. Их разбирает фоновая сверка.
func (s *PostgresOrderStorage) GetStuckProcessing(ctx context.Context, olderThan time.Duration) ([]*models.Order, error) {
	query := `
		SELECT id, user_id, website_ref, price, status, fail_reason, created_at, updated_at
		FROM orders
		WHERE status = $1 AND updated_at < NOW() - $2::interval
		ORDER BY updated_at ASC
		LIMIT 100
	`

	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	rows, err := s.pool.Query(ctx, query, models.OrderStatusProcessing, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return orders, nil
}

// scanOrder считывает заказ из строки результата.
func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.WebsiteRef,
		&order.Price,
		&order.Status,
		&order.FailReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}
