package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidWebsiteRef = errors.New("website reference is required")
)

const defaultDebitTimeout = 5 * time.Second

const failReasonInsufficientFunds = "insufficient funds"

// OrderService управляет жизненным циклом заказа:
// pending -> processing -> completed | failed. Заказ completed имеет ровно
// одно событие списания в журнале, failed — ни одного.
type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, websiteRef string, price decimal.Decimal) (*models.Order, error)
	ConfirmOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
}

// OrderServiceImpl реализует OrderService.
type OrderServiceImpl struct {
	orderStorage OrderStorage
	balance      BalanceService
	debitTimeout time.Duration
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(orderStorage OrderStorage, balance BalanceService, debitTimeout time.Duration) *OrderServiceImpl {
	if debitTimeout <= 0 {
		debitTimeout = defaultDebitTimeout
	}
	return &OrderServiceImpl{
		orderStorage: orderStorage,
		balance:      balance,
		debitTimeout: debitTimeout,
	}
}

// CreateOrder создаёт заказ в статусе pending, без списания средств.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, userID uuid.UUID, websiteRef string, price decimal.Decimal) (*models.Order, error) {
	websiteRef = strings.TrimSpace(websiteRef)
	if websiteRef == "" {
		return nil, ErrInvalidWebsiteRef
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	order := &models.Order{
		UserID:     userID,
		WebsiteRef: websiteRef,
		Price:      price,
		Status:     models.OrderStatusPending,
	}

	if err := s.orderStorage.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

// ConfirmOrder подтверждает заказ и списывает его стоимость с баланса.
// При нехватке средств заказ помечается failed с сохранением причины.
// При временной ошибке хранилища заказ остаётся в processing: платёжное
// обязательство не теряется, вызов можно повторить, а зависшие заказы
// разбирает фоновая сверка.
func (s *OrderServiceImpl) ConfirmOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Чужие заказы не раскрываем
	if order.UserID != userID {
		return nil, storage.ErrOrderNotFound
	}

	switch order.Status {
	case models.OrderStatusCompleted, models.OrderStatusFailed:
		return nil, ErrInvalidStateTransition
	case models.OrderStatusPending:
		if err := s.orderStorage.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing, nil); err != nil {
			return nil, err
		}
		order.Status = models.OrderStatusProcessing
	case models.OrderStatusProcessing:
		// Повторное подтверждение после неоднозначного исхода
	}

	// Ограниченное ожидание ответа журнала
	debitCtx, cancel := context.WithTimeout(ctx, s.debitTimeout)
	defer cancel()

	_, err = s.balance.Debit(debitCtx, userID, order.Price, models.SourceOrder, order.ID)
	switch {
	case err == nil, errors.Is(err, storage.ErrEventExists):
		// Событие уже есть — списание применилось при прошлой попытке
		if uErr := s.orderStorage.UpdateStatus(ctx, order.ID, models.OrderStatusCompleted, nil); uErr != nil {
			// Списание зафиксировано, статус не обновился: заказ остаётся
			// в processing, сверка доведёт его до completed по событию
			return nil, fmt.Errorf("mark order completed: %w", uErr)
		}
		order.Status = models.OrderStatusCompleted
		return order, nil

	case errors.Is(err, storage.ErrInsufficientBalance):
		reason := failReasonInsufficientFunds
		if uErr := s.orderStorage.UpdateStatus(ctx, order.ID, models.OrderStatusFailed, &reason); uErr != nil {
			return nil, fmt.Errorf("mark order failed: %w", uErr)
		}
		order.Status = models.OrderStatusFailed
		order.FailReason = &reason
		return order, err

	default:
		// Неоднозначный исход (таймаут, недоступность базы): статус не
		// трогаем, failed не выставляем
		return order, err
	}
}

// GetUserOrders возвращает список заказов пользователя.
func (s *OrderServiceImpl) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	orders, err := s.orderStorage.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user orders: %w", err)
	}
	return orders, nil
}
