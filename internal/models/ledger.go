package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventSource описывает происхождение события журнала.
type EventSource string

const (
	SourceOrder           EventSource = "order"
	SourceFundRequest     EventSource = "fund_request"
	SourceAdminAdjustment EventSource = "admin_adjustment"
)

// LedgerEvent - неизменяемая запись об одном изменении баланса.
// После вставки запись никогда не обновляется и не удаляется; по сумме
// дельт событий пользователя восстанавливается его текущий баланс.
type LedgerEvent struct {
	ID           uuid.UUID       `db:"id"`
	UserID       uuid.UUID       `db:"user_id"`
	Delta        decimal.Decimal `db:"delta"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	SourceType   EventSource     `db:"source_type"`
	SourceID     uuid.UUID       `db:"source_id"`
	CreatedAt    time.Time       `db:"created_at"`
}

// LedgerEventResponse DTO для истории операций.
type LedgerEventResponse struct {
	ID           uuid.UUID `json:"id"`
	Delta        float64   `json:"delta"`
	BalanceAfter float64   `json:"balance_after"`
	SourceType   string    `json:"source_type"`
	SourceID     uuid.UUID `json:"source_id"`
	CreatedAt    string    `json:"created_at"`
}
