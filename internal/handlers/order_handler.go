package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/auth"
	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/services"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// OrderHandler обрабатывает запросы, связанные с заказами.
type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder обрабатывает POST /api/user/orders.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	order, err := h.orderService.CreateOrder(c.Request().Context(), userID, req.WebsiteRef, decimal.NewFromFloat(req.Price))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidWebsiteRef):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "website reference is required")
		case errors.Is(err, services.ErrInvalidAmount):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid price")
		default:
			c.Logger().Errorf("failed to create order: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusCreated, mapOrderToResponse(order))
}

// ConfirmOrder обрабатывает POST /api/user/orders/:id/confirm.
func (h *OrderHandler) ConfirmOrder(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.orderService.ConfirmOrder(c.Request().Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrInvalidStateTransition):
			return echo.NewHTTPError(http.StatusConflict, "order already finalized")
		case errors.Is(err, storage.ErrInsufficientBalance):
			// Заказ помечен failed, причина сохранена для пользователя
			return c.JSON(http.StatusPaymentRequired, mapOrderToResponse(order))
		case errors.Is(err, storage.ErrStoreUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "try again later")
		default:
			c.Logger().Errorf("failed to confirm order: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// GetOrders обрабатывает GET /api/user/orders.
func (h *OrderHandler) GetOrders(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	orders, err := h.orderService.GetUserOrders(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to get orders: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(orders) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	// Маппинг domain моделей в DTO
	response := make([]*models.OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, mapOrderToResponse(order))
	}
	return c.JSON(http.StatusOK, response)
}

// mapOrderToResponse преобразует domain модель заказа в DTO.
func mapOrderToResponse(order *models.Order) *models.OrderResponse {
	price, _ := order.Price.Float64()
	return &models.OrderResponse{
		ID:         order.ID,
		WebsiteRef: order.WebsiteRef,
		Price:      price,
		Status:     string(order.Status),
		FailReason: order.FailReason,
		CreatedAt:  order.CreatedAt.Format(time.RFC3339),
	}
}
