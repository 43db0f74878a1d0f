package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget caps spending in one expense category per period.
type Budget struct {
	Base
	UserID    string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Category  string          `gorm:"size:64;not null" json:"category"`
	Name      string          `gorm:"not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"amount"`
	Period    BudgetPeriod    `gorm:"size:16;not null" json:"period"`
	StartDate time.Time       `gorm:"not null" json:"start_date"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
}

// Valid reports whether p is a known budget period.
func (p BudgetPeriod) Valid() bool {
	return p == BudgetPeriodMonthly || p == BudgetPeriodYearly
}
