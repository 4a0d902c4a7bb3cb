package services

import (
	"context"
	"errors"

	"github.com/esrailhaque/guestpost-ledger/internal/metrics"
	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
)

// BalanceService - единственная точка чтения и изменения баланса для
// остальных компонентов (checkout, заявки на пополнение, дашборд).
type BalanceService interface {
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error)
}

// BalanceServiceImpl реализует BalanceService поверх журнала событий.
type BalanceServiceImpl struct {
	ledger LedgerStorage
}

// NewBalanceService создаёт сервис баланса.
func NewBalanceService(ledger LedgerStorage) *BalanceServiceImpl {
	return &BalanceServiceImpl{ledger: ledger}
}

// Credit зачисляет amount на баланс пользователя.
func (s *BalanceServiceImpl) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	event, err := s.ledger.AppendEvent(ctx, userID, amount, sourceType, sourceID)
	if err != nil {
		return nil, err
	}

	metrics.CreditsTotal.Inc()
	return event, nil
}

// CreditTx зачисляет amount в рамках переданной транзакции. Используется
// переходом заявки в paid, чтобы смена статуса и зачисление коммитились
// атомарно.
func (s *BalanceServiceImpl) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	event, err := s.ledger.AppendEventTx(ctx, tx, userID, amount, sourceType, sourceID)
	if err != nil {
		return nil, err
	}

	metrics.CreditsTotal.Inc()
	return event, nil
}

// Debit списывает amount с баланса пользователя. При нехватке средств
// возвращает ErrInsufficientBalance, событие не записывается.
func (s *BalanceServiceImpl) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	event, err := s.ledger.AppendEvent(ctx, userID, amount.Neg(), sourceType, sourceID)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			metrics.InsufficientFundsTotal.Inc()
		}
		return nil, err
	}

	metrics.DebitsTotal.Inc()
	return event, nil
}

// GetBalance возвращает текущий баланс пользователя.
func (s *BalanceServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.ledger.GetBalance(ctx, userID)
}

// GetHistory возвращает историю операций пользователя.
func (s *BalanceServiceImpl) GetHistory(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error) {
	return s.ledger.GetEventsByUser(ctx, userID)
}
