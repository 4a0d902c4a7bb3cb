package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/auth"
	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/services"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/labstack/echo/v4"
)

// BalanceHandler обрабатывает чтение баланса и истории операций.
type BalanceHandler struct {
	balanceService services.BalanceService
}

// NewBalanceHandler создаёт новый handler.
func NewBalanceHandler(balanceService services.BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceService: balanceService}
}

// GetBalance обрабатывает GET /api/user/balance.
func (h *BalanceHandler) GetBalance(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	balance, err := h.balanceService.GetBalance(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}
		c.Logger().Errorf("failed to get balance: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	current, _ := balance.Float64()
	return c.JSON(http.StatusOK, models.BalanceResponse{Current: current})
}

// GetLedger обрабатывает GET /api/user/ledger.
func (h *BalanceHandler) GetLedger(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	events, err := h.balanceService.GetHistory(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to get ledger history: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(events) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	// Маппинг domain моделей в DTO
	response := h.mapEventsToResponse(events)
	return c.JSON(http.StatusOK, response)
}

// mapEventsToResponse преобразует события журнала в DTO для HTTP-ответа.
func (h *BalanceHandler) mapEventsToResponse(events []*models.LedgerEvent) []*models.LedgerEventResponse {
	var response []*models.LedgerEventResponse
	for _, ev := range events {
		delta, _ := ev.Delta.Float64()
		after, _ := ev.BalanceAfter.Float64()
		response = append(response, &models.LedgerEventResponse{
			ID:           ev.ID,
			Delta:        delta,
			BalanceAfter: after,
			SourceType:   string(ev.SourceType),
			SourceID:     ev.SourceID,
			CreatedAt:    ev.CreatedAt.Format(time.RFC3339),
		})
	}
	return response
}
