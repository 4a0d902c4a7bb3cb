package storage

import (
	"context"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MockLedgerStorage - мок журнала для тестов.
type MockLedgerStorage struct {
	GetBalanceFunc       func(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	AppendEventFunc      func(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	AppendEventTxFunc    func(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	GetEventsByUserFunc  func(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error)
	GetEventBySourceFunc func(ctx context.Context, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
}

func (m *MockLedgerStorage) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, userID)
	}
	return decimal.Zero, nil
}

func (m *MockLedgerStorage) AppendEvent(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if m.AppendEventFunc != nil {
		return m.AppendEventFunc(ctx, userID, delta, sourceType, sourceID)
	}
	return &models.LedgerEvent{UserID: userID, Delta: delta, SourceType: sourceType, SourceID: sourceID}, nil
}

func (m *MockLedgerStorage) AppendEventTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if m.AppendEventTxFunc != nil {
		return m.AppendEventTxFunc(ctx, tx, userID, delta, sourceType, sourceID)
	}
	return &models.LedgerEvent{UserID: userID, Delta: delta, SourceType: sourceType, SourceID: sourceID}, nil
}

func (m *MockLedgerStorage) GetEventsByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error) {
	if m.GetEventsByUserFunc != nil {
		return m.GetEventsByUserFunc(ctx, userID)
	}
	return []*models.LedgerEvent{}, nil
}

func (m *MockLedgerStorage) GetEventBySource(ctx context.Context, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if m.GetEventBySourceFunc != nil {
		return m.GetEventBySourceFunc(ctx, sourceType, sourceID)
	}
	return nil, ErrEventNotFound
}
