package services

import (
	"context"
	"errors"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/metrics"
	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/rs/zerolog"
)

// ReconcileWorker периодически разбирает заказы, зависшие в processing
// после неоднозначного исхода списания (таймаут, недоступность базы).
// Наличие события в журнале — доказательство применённого списания:
// такой заказ доводится до completed без повторного дебета. Для заказов
// без события списание повторяется.
type ReconcileWorker struct {
	orderStorage OrderStorage
	ledger       LedgerStorage
	balance      BalanceService
	interval     time.Duration
	staleAfter   time.Duration
	logger       zerolog.Logger
}

// NewReconcileWorker создаёт воркер сверки.
func NewReconcileWorker(orderStorage OrderStorage, ledger LedgerStorage, balance BalanceService, interval, staleAfter time.Duration, logger zerolog.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = time.Minute
	}
	return &ReconcileWorker{
		orderStorage: orderStorage,
		ledger:       ledger,
		balance:      balance,
		interval:     interval,
		staleAfter:   staleAfter,
		logger:       logger,
	}
}

// Start запускает воркер в отдельной горутине и останавливается по ctx.Done().
func (w *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		if err := w.processBatch(ctx); err != nil {
			w.logger.Error().Err(err).Msg("reconcile worker error on initial batch")
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.processBatch(ctx); err != nil {
					w.logger.Error().Err(err).Msg("reconcile worker error")
				}
			}
		}
	}()
}

func (w *ReconcileWorker) processBatch(ctx context.Context) error {
	orders, err := w.orderStorage.GetStuckProcessing(ctx, w.staleAfter)
	if err != nil {
		return err
	}

	if len(orders) > 0 {
		w.logger.Info().Int("count", len(orders)).Msg("reconciling stuck orders")
	}

	for _, o := range orders {
		if err := w.reconcileOrder(ctx, o); err != nil {
			w.logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("reconcile order failed")
		}
	}
	return nil
}

func (w *ReconcileWorker) reconcileOrder(ctx context.Context, order *models.Order) error {
	_, err := w.ledger.GetEventBySource(ctx, models.SourceOrder, order.ID)
	switch {
	case err == nil:
		// Списание применилось, заказ не успел сменить статус
		if err := w.orderStorage.UpdateStatus(ctx, order.ID, models.OrderStatusCompleted, nil); err != nil {
			return err
		}
		metrics.ReconciledOrdersTotal.Inc()
		w.logger.Info().Str("order_id", order.ID.String()).Msg("stuck order completed from existing ledger event")
		return nil

	case errors.Is(err, storage.ErrEventNotFound):
		return w.retryDebit(ctx, order)

	default:
		return err
	}
}

func (w *ReconcileWorker) retryDebit(ctx context.Context, order *models.Order) error {
	_, err := w.balance.Debit(ctx, order.UserID, order.Price, models.SourceOrder, order.ID)
	switch {
	case err == nil, errors.Is(err, storage.ErrEventExists):
		if err := w.orderStorage.UpdateStatus(ctx, order.ID, models.OrderStatusCompleted, nil); err != nil {
			return err
		}
		metrics.ReconciledOrdersTotal.Inc()
		w.logger.Info().Str("order_id", order.ID.String()).Msg("stuck order debited and completed")
		return nil

	case errors.Is(err, storage.ErrInsufficientBalance):
		reason := failReasonInsufficientFunds
		if uErr := w.orderStorage.UpdateStatus(ctx, order.ID, models.OrderStatusFailed, &reason); uErr != nil {
			return uErr
		}
		metrics.ReconciledOrdersTotal.Inc()
		w.logger.Info().Str("order_id", order.ID.String()).Msg("stuck order failed: insufficient funds")
		return nil

	default:
		// Хранилище всё ещё недоступно — заказ остаётся до следующего цикла
		return err
	}
}
