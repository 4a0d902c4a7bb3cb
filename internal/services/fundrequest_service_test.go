package services

import (
	"context"
	"errors"
	"testing"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// mockTx - no-op реализация pgx.Tx для тестов сервисов.
type mockTx struct {
	commitCalled   bool
	rollbackCalled bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return m, nil }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commitCalled = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rollbackCalled = true
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *mockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *mockTx) Conn() *pgx.Conn                                               { return nil }

type mockTxBeginner struct {
	tx *mockTx
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.tx == nil {
		m.tx = &mockTx{}
	}
	return m.tx, nil
}

type mockFundRequestStorage struct {
	CreateFunc      func(ctx context.Context, fr *models.FundRequest) error
	GetByIDFunc     func(ctx context.Context, id uuid.UUID) (*models.FundRequest, error)
	GetByIDTxFunc   func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.FundRequest, error)
	GetByUserIDFunc func(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error)
	GetByStatusFunc func(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error)
	UpdateTxFunc    func(ctx context.Context, tx pgx.Tx, fr *models.FundRequest) error
}

func (m *mockFundRequestStorage) Create(ctx context.Context, fr *models.FundRequest) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, fr)
	}
	return nil
}

func (m *mockFundRequestStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.FundRequest, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, storage.ErrFundRequestNotFound
}

func (m *mockFundRequestStorage) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.FundRequest, error) {
	if m.GetByIDTxFunc != nil {
		return m.GetByIDTxFunc(ctx, tx, id)
	}
	return nil, storage.ErrFundRequestNotFound
}

func (m *mockFundRequestStorage) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return []*models.FundRequest{}, nil
}

func (m *mockFundRequestStorage) GetByStatus(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error) {
	if m.GetByStatusFunc != nil {
		return m.GetByStatusFunc(ctx, status)
	}
	return []*models.FundRequest{}, nil
}

func (m *mockFundRequestStorage) UpdateTx(ctx context.Context, tx pgx.Tx, fr *models.FundRequest) error {
	if m.UpdateTxFunc != nil {
		return m.UpdateTxFunc(ctx, tx, fr)
	}
	return nil
}

type mockBalanceService struct {
	CreditFunc     func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	CreditTxFunc   func(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	DebitFunc      func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error)
	GetBalanceFunc func(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	GetHistoryFunc func(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error)
}

func (m *mockBalanceService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, userID, amount, sourceType, sourceID)
	}
	return &models.LedgerEvent{}, nil
}

func (m *mockBalanceService) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if m.CreditTxFunc != nil {
		return m.CreditTxFunc(ctx, tx, userID, amount, sourceType, sourceID)
	}
	return &models.LedgerEvent{}, nil
}

func (m *mockBalanceService) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType models.EventSource, sourceID uuid.UUID) (*models.LedgerEvent, error) {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, userID, amount, sourceType, sourceID)
	}
	return &models.LedgerEvent{}, nil
}

func (m *mockBalanceService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, userID)
	}
	return decimal.Zero, nil
}

func (m *mockBalanceService) GetHistory(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEvent, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, userID)
	}
	return []*models.LedgerEvent{}, nil
}

func requestInStatus(status models.FundRequestStatus) *models.FundRequest {
	return &models.FundRequest{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(200),
		Status: status,
	}
}

func TestFundRequestService_Submit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("creates pending request", func(t *testing.T) {
		svc := NewFundRequestService(&mockTxBeginner{}, &mockFundRequestStorage{}, &mockBalanceService{})

		fr, err := svc.Submit(ctx, userID, decimal.NewFromInt(200))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if fr.Status != models.FundRequestStatusPending {
			t.Errorf("Submit() status = %s, want pending", fr.Status)
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		svc := NewFundRequestService(&mockTxBeginner{}, &mockFundRequestStorage{}, &mockBalanceService{})

		if _, err := svc.Submit(ctx, userID, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestFundRequestService_Transition(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	storageFor := func(fr *models.FundRequest) *mockFundRequestStorage {
		return &mockFundRequestStorage{
			GetByIDTxFunc: func(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.FundRequest, error) {
				return fr, nil
			},
		}
	}

	t.Run("missing admin identity", func(t *testing.T) {
		svc := NewFundRequestService(&mockTxBeginner{}, &mockFundRequestStorage{}, &mockBalanceService{})

		_, err := svc.Transition(ctx, uuid.New(), models.FundRequestStatusInvoiceSent, uuid.Nil, "")
		if !errors.Is(err, ErrAdminRequired) {
			t.Fatalf("expected ErrAdminRequired, got %v", err)
		}
	})

	t.Run("pending to invoice-sent without credit", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusPending)
		creditCalled := false
		balance := &mockBalanceService{
			CreditTxFunc: func(ctx context.Context, tx pgx.Tx, uid uuid.UUID, amount decimal.Decimal, st models.EventSource, sid uuid.UUID) (*models.LedgerEvent, error) {
				creditCalled = true
				return &models.LedgerEvent{}, nil
			},
		}
		svc := NewFundRequestService(&mockTxBeginner{}, storageFor(fr), balance)

		updated, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusInvoiceSent, adminID, "invoice #42")
		if err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if creditCalled {
			t.Error("credit must not be called for invoice-sent")
		}
		if updated.Status != models.FundRequestStatusInvoiceSent {
			t.Errorf("status = %s, want invoice-sent", updated.Status)
		}
		if updated.ProcessedBy == nil || *updated.ProcessedBy != adminID {
			t.Error("processed_by not recorded")
		}
		if updated.AdminNotes == nil || *updated.AdminNotes != "invoice #42" {
			t.Error("admin notes not recorded")
		}
	})

	t.Run("invoice-sent to paid credits exactly the amount", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusInvoiceSent)
		var creditedAmount decimal.Decimal
		var creditedSource uuid.UUID
		creditCalls := 0
		balance := &mockBalanceService{
			CreditTxFunc: func(ctx context.Context, tx pgx.Tx, uid uuid.UUID, amount decimal.Decimal, st models.EventSource, sid uuid.UUID) (*models.LedgerEvent, error) {
				creditCalls++
				creditedAmount = amount
				creditedSource = sid
				return &models.LedgerEvent{}, nil
			},
		}
		beginner := &mockTxBeginner{}
		svc := NewFundRequestService(beginner, storageFor(fr), balance)

		updated, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusPaid, adminID, "")
		if err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if creditCalls != 1 {
			t.Fatalf("credit calls = %d, want 1", creditCalls)
		}
		if !creditedAmount.Equal(fr.Amount) {
			t.Errorf("credited amount = %s, want %s", creditedAmount, fr.Amount)
		}
		if creditedSource != fr.ID {
			t.Error("credit source must be the fund request id")
		}
		if updated.Status != models.FundRequestStatusPaid {
			t.Errorf("status = %s, want paid", updated.Status)
		}
		if !beginner.tx.commitCalled {
			t.Error("transaction was not committed")
		}
	})

	t.Run("pending to paid is not adjacent", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusPending)
		svc := NewFundRequestService(&mockTxBeginner{}, storageFor(fr), &mockBalanceService{})

		if _, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusPaid, adminID, ""); !errors.Is(err, ErrInvalidStateTransition) {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("paid request repaid returns conflict without credit", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusPaid)
		creditCalled := false
		balance := &mockBalanceService{
			CreditTxFunc: func(ctx context.Context, tx pgx.Tx, uid uuid.UUID, amount decimal.Decimal, st models.EventSource, sid uuid.UUID) (*models.LedgerEvent, error) {
				creditCalled = true
				return &models.LedgerEvent{}, nil
			},
		}
		svc := NewFundRequestService(&mockTxBeginner{}, storageFor(fr), balance)

		if _, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusPaid, adminID, ""); !errors.Is(err, ErrAlreadyProcessed) {
			t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
		}
		if creditCalled {
			t.Error("credit must not be called for already paid request")
		}
	})

	t.Run("rejected request is terminal", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusRejected)
		svc := NewFundRequestService(&mockTxBeginner{}, storageFor(fr), &mockBalanceService{})

		if _, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusInvoiceSent, adminID, ""); !errors.Is(err, ErrInvalidStateTransition) {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("invoice-sent to rejected without credit", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusInvoiceSent)
		creditCalled := false
		balance := &mockBalanceService{
			CreditTxFunc: func(ctx context.Context, tx pgx.Tx, uid uuid.UUID, amount decimal.Decimal, st models.EventSource, sid uuid.UUID) (*models.LedgerEvent, error) {
				creditCalled = true
				return &models.LedgerEvent{}, nil
			},
		}
		svc := NewFundRequestService(&mockTxBeginner{}, storageFor(fr), balance)

		updated, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusRejected, adminID, "no payment received")
		if err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if creditCalled {
			t.Error("credit must not be called for rejection")
		}
		if updated.Status != models.FundRequestStatusRejected {
			t.Errorf("status = %s, want rejected", updated.Status)
		}
	})

	t.Run("duplicate ledger event maps to conflict", func(t *testing.T) {
		fr := requestInStatus(models.FundRequestStatusInvoiceSent)
		balance := &mockBalanceService{
			CreditTxFunc: func(ctx context.Context, tx pgx.Tx, uid uuid.UUID, amount decimal.Decimal, st models.EventSource, sid uuid.UUID) (*models.LedgerEvent, error) {
				return nil, storage.ErrEventExists
			},
		}
		svc := NewFundRequestService(&mockTxBeginner{}, storageFor(fr), balance)

		if _, err := svc.Transition(ctx, fr.ID, models.FundRequestStatusPaid, adminID, ""); !errors.Is(err, ErrAlreadyProcessed) {
			t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		svc := NewFundRequestService(&mockTxBeginner{}, &mockFundRequestStorage{}, &mockBalanceService{})

		if _, err := svc.Transition(ctx, uuid.New(), models.FundRequestStatusRejected, adminID, ""); !errors.Is(err, storage.ErrFundRequestNotFound) {
			t.Fatalf("expected ErrFundRequestNotFound, got %v", err)
		}
	})
}
