package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role определяет роль пользователя в маркетплейсе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет пользователя системы. Поле Balance — авторитетный
// текущий баланс; изменяется только через журнал событий, напрямую
// компоненты его не обновляют.
type User struct {
	ID           uuid.UUID       `db:"id"`
	Login        string          `db:"login"`
	PasswordHash string          `db:"password_hash"`
	Role         Role            `db:"role"`
	Balance      decimal.Decimal `db:"balance"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// RegisterRequest - запрос на регистрацию пользователя.
type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginRequest - запрос на аутентификацию пользователя.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// BalanceResponse - ответ с текущим балансом пользователя.
type BalanceResponse struct {
	Current float64 `json:"current"`
}
