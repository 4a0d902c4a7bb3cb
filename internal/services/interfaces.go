package services

import (
	"context"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxBeginner открывает транзакции. Реализуется pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserStorage определяет интерфейс для работы с пользователями.
type UserStorage interface {
	Create(ctx context.Context, user *models.User) error
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// OrderStorage определяет интерфейс для работы с заказами.
type OrderStorage interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, failReason *string) error
	GetStuckProcessing(ctx context.Context, olderThan time.Duration) ([]*models.Order, error)
}

// FundRequestStorage определяет интерфейс для работы с заявками на пополнение.
type FundRequestStorage interface {
	Create(ctx context.Context, fr *models.FundRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.FundRequest, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.FundRequest, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error)
	GetByStatus(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, fr *models.FundRequest) error
}

// LedgerStorage определяет интерфейс журнала событий баланса.
type LedgerStorage interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	AppendEvent(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	AppendEventTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	GetEventsByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error)
	GetEventBySource(ctx context.Context, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
}
