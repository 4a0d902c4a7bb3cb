package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundRequestStatus описывает статус заявки на пополнение баланса.
type FundRequestStatus string

const (
	FundRequestStatusPending     FundRequestStatus = "pending"
	FundRequestStatusInvoiceSent FundRequestStatus = "invoice-sent"
	FundRequestStatusPaid        FundRequestStatus = "paid"
	FundRequestStatusRejected    FundRequestStatus = "rejected"
)

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s FundRequestStatus) Terminal() bool {
	return s == FundRequestStatusPaid || s == FundRequestStatusRejected
}

// Valid проверяет, что значение статуса известно системе.
func (s FundRequestStatus) Valid() bool {
	switch s {
	case FundRequestStatusPending, FundRequestStatusInvoiceSent,
		FundRequestStatusPaid, FundRequestStatusRejected:
		return true
	}
	return false
}

// FundRequest представляет заявку пользователя на пополнение баланса.
// Заявку изменяет только администратор; paid и rejected — терминальные
// статусы. Зачисление на баланс происходит ровно один раз, при переходе
// invoice-sent -> paid.
type FundRequest struct {
	ID          uuid.UUID         `db:"id"`
	UserID      uuid.UUID         `db:"user_id"`
	Amount      decimal.Decimal   `db:"amount"`
	Status      FundRequestStatus `db:"status"`
	AdminNotes  *string           `db:"admin_notes"`
	ProcessedBy *uuid.UUID        `db:"processed_by"`
	RequestedAt time.Time         `db:"requested_at"`
	ProcessedAt *time.Time        `db:"processed_at"`
}

// SubmitFundRequest DTO для создания заявки.
type SubmitFundRequest struct {
	Amount float64 `json:"amount"`
}

// TransitionFundRequest DTO для административного перевода заявки.
type TransitionFundRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"admin_notes,omitempty"`
}

// FundRequestResponse DTO для ответа по заявкам.
type FundRequestResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	AdminNotes  *string   `json:"admin_notes,omitempty"`
	ProcessedBy *string   `json:"processed_by,omitempty"`
	RequestedAt string    `json:"requested_at"`
	ProcessedAt *string   `json:"processed_at,omitempty"`
}
