package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус обработки заказа на размещение.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// Order представляет покупку размещения гостевого поста. Заказ со
// статусом completed имеет ровно одно событие списания в журнале,
// заказ failed — ни одного.
type Order struct {
	ID         uuid.UUID       `db:"id"`
	UserID     uuid.UUID       `db:"user_id"`
	WebsiteRef string          `db:"website_ref"`
	Price      decimal.Decimal `db:"price"`
	Status     OrderStatus     `db:"status"`
	FailReason *string         `db:"fail_reason"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// CreateOrderRequest DTO для создания заказа.
type CreateOrderRequest struct {
	WebsiteRef string  `json:"website_ref"`
	Price      float64 `json:"price"`
}

// OrderResponse DTO для списка заказов.
type OrderResponse struct {
	ID         uuid.UUID `json:"id"`
	WebsiteRef string    `json:"website_ref"`
	Price      float64   `json:"price"`
	Status     string    `json:"status"`
	FailReason *string   `json:"fail_reason,omitempty"`
	CreatedAt  string    `json:"created_at"`
}
