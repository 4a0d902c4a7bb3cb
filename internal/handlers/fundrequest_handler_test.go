package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/esrailhaque/guestpost-ledger/internal/auth"
	"github.com/esrailhaque/guestpost-ledger/internal/models"
	"github.com/esrailhaque/guestpost-ledger/internal/services"
	"github.com/esrailhaque/guestpost-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type mockFundRequestService struct {
	SubmitFunc       func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error)
	TransitionFunc   func(ctx context.Context, requestID uuid.UUID, target models.FundRequestStatus, adminID uuid.UUID, adminNotes string) (*models.FundRequest, error)
	ListByUserFunc   func(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error)
	ListByStatusFunc func(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error)
}

func (m *mockFundRequestService) Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, userID, amount)
	}
	return nil, nil
}

func (m *mockFundRequestService) Transition(ctx context.Context, requestID uuid.UUID, target models.FundRequestStatus, adminID uuid.UUID, adminNotes string) (*models.FundRequest, error) {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, requestID, target, adminID, adminNotes)
	}
	return nil, nil
}

func (m *mockFundRequestService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FundRequest, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.FundRequest{}, nil
}

func (m *mockFundRequestService) ListByStatus(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status)
	}
	return []*models.FundRequest{}, nil
}

func pendingFundRequest(userID uuid.UUID) *models.FundRequest {
	return &models.FundRequest{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      decimal.NewFromInt(100),
		Status:      models.FundRequestStatusPending,
		RequestedAt: time.Now(),
	}
}

func TestFundRequestHandler_Submit(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name           string
		body           string
		mockService    *mockFundRequestService
		expectedStatus int
	}{
		{
			name: "request created",
			body: `{"amount":100}`,
			mockService: &mockFundRequestService{
				SubmitFunc: func(ctx context.Context, uid uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error) {
					return pendingFundRequest(uid), nil
				},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid JSON",
			body:           `{"amount":`,
			mockService:    &mockFundRequestService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "non-positive amount",
			body: `{"amount":0}`,
			mockService: &mockFundRequestService{
				SubmitFunc: func(ctx context.Context, uid uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error) {
					return nil, services.ErrInvalidAmount
				},
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "internal error",
			body: `{"amount":100}`,
			mockService: &mockFundRequestService{
				SubmitFunc: func(ctx context.Context, uid uuid.UUID, amount decimal.Decimal) (*models.FundRequest, error) {
					return nil, errors.New("database error")
				},
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/user/fund-requests", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.Set(string(auth.UserIDKey), userID)

			handler := NewFundRequestHandler(tt.mockService)
			err := handler.Submit(c)

			if tt.expectedStatus < 400 {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				if rec.Code != tt.expectedStatus {
					t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
				}
			} else {
				if err == nil {
					t.Errorf("Expected error, got nil")
				}
				if he, ok := err.(*echo.HTTPError); ok {
					if he.Code != tt.expectedStatus {
						t.Errorf("Expected status %d, got %d", tt.expectedStatus, he.Code)
					}
				}
			}
		})
	}
}

func TestFundRequestHandler_Transition(t *testing.T) {
	adminID := uuid.New()
	requestID := uuid.New()

	tests := []struct {
		name           string
		requestID      string
		body           string
		mockService    *mockFundRequestService
		expectedStatus int
	}{
		{
			name:      "paid transition",
			requestID: requestID.String(),
			body:      `{"status":"paid"}`,
			mockService: &mockFundRequestService{
				TransitionFunc: func(ctx context.Context, rid uuid.UUID, target models.FundRequestStatus, aid uuid.UUID, notes string) (*models.FundRequest, error) {
					fr := pendingFundRequest(uuid.New())
					fr.ID = rid
					fr.Status = target
					fr.ProcessedBy = &aid
					now := time.Now()
					fr.ProcessedAt = &now
					return fr, nil
				},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid request id",
			requestID:      "not-a-uuid",
			body:           `{"status":"paid"}`,
			mockService:    &mockFundRequestService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown status",
			requestID:      requestID.String(),
			body:           `{"status":"refunded"}`,
			mockService:    &mockFundRequestService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "not found",
			requestID: requestID.String(),
			body:      `{"status":"paid"}`,
			mockService: &mockFundRequestService{
				TransitionFunc: func(ctx context.Context, rid uuid.UUID, target models.FundRequestStatus, aid uuid.UUID, notes string) (*models.FundRequest, error) {
					return nil, storage.ErrFundRequestNotFound
				},
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:      "already processed",
			requestID: requestID.String(),
			body:      `{"status":"paid"}`,
			mockService: &mockFundRequestService{
				TransitionFunc: func(ctx context.Context, rid uuid.UUID, target models.FundRequestStatus, aid uuid.UUID, notes string) (*models.FundRequest, error) {
					return nil, services.ErrAlreadyProcessed
				},
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:      "invalid transition",
			requestID: requestID.String(),
			body:      `{"status":"paid"}`,
			mockService: &mockFundRequestService{
				TransitionFunc: func(ctx context.Context, rid uuid.UUID, target models.FundRequestStatus, aid uuid.UUID, notes string) (*models.FundRequest, error) {
					return nil, services.ErrInvalidStateTransition
				},
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:      "store unavailable",
			requestID: requestID.String(),
			body:      `{"status":"paid"}`,
			mockService: &mockFundRequestService{
				TransitionFunc: func(ctx context.Context, rid uuid.UUID, target models.FundRequestStatus, aid uuid.UUID, notes string) (*models.FundRequest, error) {
					return nil, storage.ErrStoreUnavailable
				},
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/fund-requests/"+tt.requestID+"/transition", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.requestID)
			c.Set(string(auth.UserIDKey), adminID)
			c.Set(string(auth.UserRoleKey), models.RoleAdmin)

			handler := NewFundRequestHandler(tt.mockService)
			err := handler.Transition(c)

			if tt.expectedStatus < 400 {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				if rec.Code != tt.expectedStatus {
					t.Errorf("Expected status %d, got %d", tt.expectedStatus, rec.Code)
				}
			} else {
				if err == nil {
					t.Errorf("Expected error, got nil")
				}
				if he, ok := err.(*echo.HTTPError); ok {
					if he.Code != tt.expectedStatus {
						t.Errorf("Expected status %d, got %d", tt.expectedStatus, he.Code)
					}
				}
			}
		})
	}
}

func TestFundRequestHandler_ListByStatus(t *testing.T) {
	t.Run("defaults to pending", func(t *testing.T) {
		var gotStatus models.FundRequestStatus
		mockService := &mockFundRequestService{
			ListByStatusFunc: func(ctx context.Context, status models.FundRequestStatus) ([]*models.FundRequest, error) {
				gotStatus = status
				return []*models.FundRequest{pendingFundRequest(uuid.New())}, nil
			},
		}

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/fund-requests", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewFundRequestHandler(mockService)
		if err := handler.ListByStatus(c); err != nil {
			t.Fatalf("ListByStatus() error = %v", err)
		}
		if gotStatus != models.FundRequestStatusPending {
			t.Errorf("status = %s, want pending", gotStatus)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/fund-requests?status=refunded", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewFundRequestHandler(&mockFundRequestService{})
		err := handler.ListByStatus(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", err)
		}
	})

	t.Run("empty queue returns 204", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/fund-requests?status=paid", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewFundRequestHandler(&mockFundRequestService{})
		if err := handler.ListByStatus(c); err != nil {
			t.Fatalf("ListByStatus() error = %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", rec.Code)
		}
	})
}

func TestFundRequestHandler_ListMine(t *testing.T) {
	userID := uuid.New()

	t.Run("returns user requests", func(t *testing.T) {
		mockService := &mockFundRequestService{
			ListByUserFunc: func(ctx context.Context, uid uuid.UUID) ([]*models.FundRequest, error) {
				return []*models.FundRequest{pendingFundRequest(uid)}, nil
			},
		}

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/user/fund-requests", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(string(auth.UserIDKey), userID)

		handler := NewFundRequestHandler(mockService)
		if err := handler.ListMine(c); err != nil {
			t.Fatalf("ListMine() error = %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("no requests returns 204", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/user/fund-requests", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(string(auth.UserIDKey), userID)

		handler := NewFundRequestHandler(&mockFundRequestService{})
		if err := handler.ListMine(c); err != nil {
			t.Fatalf("ListMine() error = %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", rec.Code)
		}
	})
}
