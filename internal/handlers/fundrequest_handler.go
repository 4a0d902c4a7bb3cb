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

// FundRequestHandler обрабатывает заявки на пополнение баланса.
type FundRequestHandler struct {
	fundRequestService services.FundRequestService
}

// NewFundRequestHandler создаёт новый handler.
func NewFundRequestHandler(fundRequestService services.FundRequestService) *FundRequestHandler {
	return &FundRequestHandler{fundRequestService: fundRequestService}
}

// Submit обрабатывает POST /api/user/fund-requests.
func (h *FundRequestHandler) Submit(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.SubmitFundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	fr, err := h.fundRequestService.Submit(c.Request().Context(), userID, decimal.NewFromFloat(req.Amount))
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid amount")
		}
		c.Logger().Errorf("failed to submit fund request: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusCreated, mapFundRequestToResponse(fr))
}

// ListMine обрабатывает GET /api/user/fund-requests.
func (h *FundRequestHandler) ListMine(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	requests, err := h.fundRequestService.ListByUser(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to list fund requests: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(requests) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, mapFundRequestsToResponse(requests))
}

// ListByStatus обрабатывает GET /api/admin/fund-requests?status=pending.
func (h *FundRequestHandler) ListByStatus(c echo.Context) error {
	status := models.FundRequestStatus(c.QueryParam("status"))
	if status == "" {
		status = models.FundRequestStatusPending
	}
	if !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	requests, err := h.fundRequestService.ListByStatus(c.Request().Context(), status)
	if err != nil {
		c.Logger().Errorf("failed to list fund requests by status: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(requests) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, mapFundRequestsToResponse(requests))
}

// Transition обрабатывает POST /api/admin/fund-requests/:id/transition.
// Маршрут закрыт AdminMiddleware; ID администратора берётся из контекста
// и передаётся сервису как обработавший заявку.
func (h *FundRequestHandler) Transition(c echo.Context) error {
	adminID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	var req models.TransitionFundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	target := models.FundRequestStatus(req.Status)
	if !target.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	fr, err := h.fundRequestService.Transition(c.Request().Context(), requestID, target, adminID, req.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFundRequestNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "fund request not found")
		case errors.Is(err, services.ErrAlreadyProcessed):
			return echo.NewHTTPError(http.StatusConflict, "already processed")
		case errors.Is(err, services.ErrInvalidStateTransition):
			return echo.NewHTTPError(http.StatusConflict, "invalid status transition")
		case errors.Is(err, services.ErrAdminRequired):
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		case errors.Is(err, storage.ErrStoreUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "try again later")
		default:
			c.Logger().Errorf("failed to transition fund request: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusOK, mapFundRequestToResponse(fr))
}

// mapFundRequestToResponse преобразует domain модель заявки в DTO.
func mapFundRequestToResponse(fr *models.FundRequest) *models.FundRequestResponse {
	amount, _ := fr.Amount.Float64()
	resp := &models.FundRequestResponse{
		ID:          fr.ID,
		UserID:      fr.UserID,
		Amount:      amount,
		Status:      string(fr.Status),
		AdminNotes:  fr.AdminNotes,
		RequestedAt: fr.RequestedAt.Format(time.RFC3339),
	}
	if fr.ProcessedBy != nil {
		processedBy := fr.ProcessedBy.String()
		resp.ProcessedBy = &processedBy
	}
	if fr.ProcessedAt != nil {
		processedAt := fr.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &processedAt
	}
	return resp
}

func mapFundRequestsToResponse(requests []*models.FundRequest) []*models.FundRequestResponse {
	response := make([]*models.FundRequestResponse, 0, len(requests))
	for _, fr := range requests {
		response = append(response, mapFundRequestToResponse(fr))
	}
	return response
}
