package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyProcessed возвращается при повторной попытке оплатить уже
	// оплаченную заявку; повторного зачисления не происходит.
	ErrAlreadyProcessed       = errors.New("fund request already processed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrAdminRequired возвращается, если переход вызван без проверенной
	// административной личности. Авторизация выполняется снаружи, но
	// сервис дополнительно отказывает при её отсутствии.
	ErrAdminRequired = errors.New("verified admin identity required")
)

// FundRequestService управляет жизненным циклом заявок на пополнение:
// pending -> invoice-sent -> paid | rejected. Зачисление на баланс
// выполняется ровно один раз, при переходе в paid.
type FundRequestService interface {
	Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error)
	Transition(ctx context.Context, requestID uuid.UUID, target models.FundRequestStatus, adminID uuid.UUID, adminNotes string) (*models.FundRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error)
	ListByStatus(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error)
}

// FundRequestServiceImpl реализует FundRequestService.
type FundRequestServiceImpl struct {
	pool               TxBeginner
	fundRequestStorage FundRequestStorage
	balance            BalanceService
}

// NewFundRequestService создаёт сервис заявок на пополнение.
func NewFundRequestService(pool TxBeginner, fundRequestStorage FundRequestStorage, balance BalanceService) *FundRequestServiceImpl {
	return &FundRequestServiceImpl{
		pool:               pool,
		fundRequestStorage: fundRequestStorage,
		balance:            balance,
	}
}

// Submit создаёт заявку пользователя в статусе pending.
func (s *FundRequestServiceImpl) Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	fr := &models.FundRequest{
		UserID: userID,
		Amount: amount,
		Status: models.FundRequestStatusPending,
	}

	if err := s.fundRequestStorage.Create(ctx, fr); err != nil {
		return nil, fmt.Errorf("create fund request: %w", err)
	}

	return fr, nil
}

// Transition переводит заявку в целевой статус от имени администратора.
// Строка заявки блокируется на время перехода, поэтому конкурирующие
// повторные вызовы "оплачено" не приводят к двойному зачислению: второй
// вызов увидит статус paid и получит ErrAlreadyProcessed.
func (s *FundRequestServiceImpl) Transition(ctx context.Context, requestID uuid.UUID, target models.FundRequestStatus, adminID uuid.UUID, adminNotes string) (*models.FundRequest, error) {
	if adminID == uuid.Nil {
		return nil, ErrAdminRequired
	}
	if !target.Valid() || target == models.FundRequestStatusPending {
		return nil, ErrInvalidStateTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	fr, err := s.fundRequestStorage.GetByIDTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	if err := validateTransition(fr.Status, target); err != nil {
		return nil, err
	}

	// Единственная точка зачисления средств по заявке
	if target == models.FundRequestStatusPaid {
		if _, err := s.balance.CreditTx(ctx, tx, fr.UserID, fr.Amount, models.SourceFundRequest, fr.ID); err != nil {
			if errors.Is(err, storage.ErrEventExists) {
				return nil, ErrAlreadyProcessed
			}
			return nil, err
		}
	}

	now := time.Now()
	fr.Status = target
	fr.ProcessedBy = &adminID
	fr.ProcessedAt = &now
	if adminNotes != "" {
		fr.AdminNotes = &adminNotes
	}

	if err := s.fundRequestStorage.UpdateTx(ctx, tx, fr); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return fr, nil
}

// ListByUser возвращает заявки пользователя.
func (s *FundRequestServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error) {
	return s.fundRequestStorage.GetByUserID(ctx, userID)
}

// ListByStatus возвращает очередь заявок в указанном статусе.
func (s *FundRequestServiceImpl) ListByStatus(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error) {
	if !status.Valid() {
		return nil, ErrInvalidStateTransition
	}
	return s.fundRequestStorage.GetByStatus(ctx, status)
}

// validateTransition проверяет допустимость перехода между статусами.
// Повторная оплата оплаченной заявки отличается от прочих запрещённых
// переходов: она сигнализируется как конфликт, а не как ошибка графа.
func validateTransition(current, target models.FundRequestStatus) error {
	if current.Terminal() {
		if current == models.FundRequestStatusPaid && target == models.FundRequestStatusPaid {
			return ErrAlreadyProcessed
		}
		return ErrInvalidStateTransition
	}

	switch current {
	case models.FundRequestStatusPending:
		if target == models.FundRequestStatusInvoiceSent || target == models.FundRequestStatusRejected {
			return nil
		}
	case models.FundRequestStatusInvoiceSent:
		if target == models.FundRequestStatusPaid || target == models.FundRequestStatusRejected {
			return nil
		}
	}

	return ErrInvalidStateTransition
}
