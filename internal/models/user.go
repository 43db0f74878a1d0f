package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents the user model in the database. WalletBalance is only
// written through the account repository.
type User struct {
	Base
	Email            string          `gorm:"uniqueIndex;not null" json:"email"`
	Password         string          `gorm:"not null" json:"-"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	WalletBalance    decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0" json:"wallet_balance"`
	RefreshTokenHash string          `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time      `json:"last_login_at,omitempty"`
}

// Wallet is the balance view of an account, independent of where it is stored.
type Wallet struct {
	OwnerID string          `json:"owner_id"`
	Balance decimal.Decimal `json:"balance"`
}
