package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

var (
	ErrEventNotFound = errors.New("ledger event not found")
	// ErrEventExists возвращается при повторной записи события с тем же
	// источником: для заявок на пополнение это защита от двойного
	// зачисления, для заказов — от двойного списания.
	ErrEventExists = errors.New("ledger event already exists for source")
	// ErrStoreUnavailable возвращается после исчерпания повторов при
	// временной недоступности базы данных.
	ErrStoreUnavailable = errors.New("store unavailable")
)

const (
	appendMaxRetries = 3
	appendRetryBase  = 100 * time.Millisecond
)

// PostgresLedgerStorage хранит журнал событий баланса и владеет полем
// users.balance. Запись выполняется строго последовательно для каждого
// пользователя: строка пользователя блокируется FOR UPDATE на время
// read-modify-write, поэтому конкурирующие списания и зачисления одного
// пользователя не теряют обновлений. Балансы разных пользователей
// изменяются параллельно.
type PostgresLedgerStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresLedgerStorage создаёт новый экземпляр PostgresLedgerStorage.
func NewPostgresLedgerStorage(pool *pgxpool.Pool) *PostgresLedgerStorage {
	return &PostgresLedgerStorage{pool: pool}
}

// GetBalance возвращает текущий баланс пользователя.
func (s *PostgresLedgerStorage) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// AppendEvent атомарно применяет дельту к балансу и добавляет событие в
// журнал. Временные ошибки базы повторяются ограниченное число раз, после
// чего возвращается ErrStoreUnavailable; доменные ошибки не повторяются.
func (s *PostgresLedgerStorage) AppendEvent(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	var event *models.LedgerEvent

	backoff := retry.WithMaxRetries(appendMaxRetries, retry.NewFibonacci(appendRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ev, err := s.appendOnce(ctx, userID, delta, sourceType, sourceID)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		event = ev
		return nil
	})

	if err != nil {
		if isTransient(err) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, err
	}

	return event, nil
}

func (s *PostgresLedgerStorage) appendOnce(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	event, err := s.AppendEventTx(ctx, tx, userID, delta, sourceType, sourceID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return event, nil
}

// AppendEventTx применяет дельту в рамках переданной транзакции. Позволяет
// workflow-ам связать смену статуса сущности и событие журнала в один
// атомарный коммит.
func (s *PostgresLedgerStorage) AppendEventTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	// Блокируем строку пользователя на время read-modify-write
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user balance: %w", err)
	}

	newBalance := balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, newBalance, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	event := &models.LedgerEvent{
		ID:           uuid.New(),
		UserID:       userID,
		Delta:        delta,
		BalanceAfter: newBalance,
		SourceType:   sourceType,
		SourceID:     sourceID,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO ledger_events (id, user_id, delta, balance_after, source_type, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`, event.ID, event.UserID, event.Delta, event.BalanceAfter, event.SourceType, event.SourceID).Scan(&event.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrEventExists
		}
		return nil, fmt.Errorf("failed to append ledger event: %w", err)
	}

	return event, nil
}

// GetEventsByUser возвращает события пользователя (новые первыми).
func (s *PostgresLedgerStorage) GetEventsByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error) {
	query := `
		SELECT id, user_id, delta, balance_after, source_type, source_id, created_at
		FROM ledger_events
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger events: %w", err)
	}
	defer rows.Close()

	var events []*models.LedgerEvent
	for rows.Next() {
		var ev models.LedgerEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Delta, &ev.BalanceAfter, &ev.SourceType, &ev.SourceID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger event: %w", err)
		}
		events = append(events, &ev)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return events, nil
}

// GetEventBySource возвращает событие по его источнику. Используется
// сверкой зависших заказов: наличие события — доказательство того, что
// списание уже применено.
func (s *PostgresLedgerStorage) GetEventBySource(ctx context.Context, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	query := `
		SELECT id, user_id, delta, balance_after, source_type, source_id, created_at
		FROM ledger_events
		WHERE source_type = $1 AND source_id = $2
	`

	var ev models.LedgerEvent
	err := s.pool.QueryRow(ctx, query, sourceType, sourceID).Scan(
		&ev.ID, &ev.UserID, &ev.Delta, &ev.BalanceAfter, &ev.SourceType, &ev.SourceID, &ev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event by source: %w", err)
	}

	return &ev, nil
}

// isTransient отличает временные сбои соединения от доменных ошибок.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrEventExists) {
		return false
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}
