package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrFundRequestNotFound = errors.New("fund request not found")
)

// PostgresFundRequestStorage реализует FundRequestStorage для PostgreSQL.
type PostgresFundRequestStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresFundRequestStorage создаёт новый экземпляр.
func NewPostgresFundRequestStorage(pool *pgxpool.Pool) *PostgresFundRequestStorage {
	return &PostgresFundRequestStorage{pool: pool}
}

// Create создаёт заявку на пополнение в статусе pending.
func (s *PostgresFundRequestStorage) Create(ctx context.Context, fr *models.FundRequest) error {
	if fr.ID == uuid.Nil {
		fr.ID = uuid.New()
	}
	if fr.Status == "" {
		fr.Status = models.FundRequestStatusPending
	}

	query := `
		INSERT INTO fund_requests (id, user_id, amount, status, requested_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING requested_at
	`

	err := s.pool.QueryRow(ctx, query, fr.ID, fr.UserID, fr.Amount, fr.Status).Scan(&fr.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create fund request: %w", err)
	}

	return nil
}

// GetByID возвращает заявку по идентификатору.
func (s *PostgresFundRequestStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.FundRequest, error) {
	query := selectFundRequest + ` WHERE id = $1`
	return scanFundRequest(s.pool.QueryRow(ctx, query, id))
}

// GetByIDTx возвращает заявку, блокируя её строку FOR UPDATE. Защищает
// переход статуса от конкурирующих административных запросов.
func (s *PostgresFundRequestStorage) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.FundRequest, error) {
	query := selectFundRequest + ` WHERE id = $1 FOR UPDATE`
	return scanFundRequest(tx.QueryRow(ctx, query, id))
}

// GetByUserID возвращает заявки пользователя (новые первыми).
func (s *PostgresFundRequestStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error) {
	query := selectFundRequest + ` WHERE user_id = $1 ORDER BY requested_at DESC`
	return s.queryFundRequests(ctx, query, userID)
}

// GetByStatus возвращает заявки в указанном статусе (старые первыми —
// очередь обработки для администратора).
func (s *PostgresFundRequestStorage) GetByStatus(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error) {
	query := selectFundRequest + ` WHERE status = $1 ORDER BY requested_at ASC`
	return s.queryFundRequests(ctx, query, status)
}

// UpdateTx сохраняет решение администратора в рамках переданной
// транзакции: статус, заметки, кто и когда обработал.
func (s *PostgresFundRequestStorage) UpdateTx(ctx context.Context, tx pgx.Tx, fr *models.FundRequest) error {
	query := `
		UPDATE fund_requests
		SET status = $1, admin_notes = $2, processed_by = $3, processed_at = $4
		WHERE id = $5
	`

	result, err := tx.Exec(ctx, query, fr.Status, fr.AdminNotes, fr.ProcessedBy, fr.ProcessedAt, fr.ID)
	if err != nil {
		return fmt.Errorf("failed to update fund request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrFundRequestNotFound
	}

	return nil
}

const selectFundRequest = `
	SELECT id, user_id, amount, status, admin_notes, processed_by, requested_at, processed_at
	FROM fund_requests`

func (s *PostgresFundRequestStorage) queryFundRequests(ctx context.Context, query string, args ...any) ([]*models.FundRequest, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.FundRequest
	for rows.Next() {
		fr, err := scanFundRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, fr)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return requests, nil
}

// scanFundRequest считывает заявку из строки результата.
func scanFundRequest(row pgx.Row) (*models.FundRequest, error) {
	fr := &models.FundRequest{}
	err := row.Scan(
		&fr.ID,
		&fr.UserID,
		&fr.Amount,
		&fr.Status,
		&fr.AdminNotes,
		&fr.ProcessedBy,
		&fr.RequestedAt,
		&fr.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFundRequestNotFound
		}
		return nil, fmt.Errorf("failed to scan fund request: %w", err)
	}
	return fr, nil
}
