package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// PaymentMethod is how an expense was paid.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodOnline PaymentMethod = "online"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodCard, PaymentMethodOnline:
		return true
	}
	return false
}

// Mood is the emotional tag a user attaches to a transaction.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodStressed Mood = "stressed"
	MoodBored    Mood = "bored"
	MoodSad      Mood = "sad"
	MoodCalm     Mood = "calm"
	MoodNeutral  Mood = "neutral"
)

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodStressed, MoodBored, MoodSad, MoodCalm, MoodNeutral:
		return true
	}
	return false
}

// Transaction is a single ledger entry. While IsDeleted is false its signed
// amount is reflected in the owner's wallet balance exactly once; while true,
// not at all.
type Transaction struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       string          `gorm:"type:uuid;not null;index:idx_transactions_owner_created,priority:1" json:"owner_id"`
	Type          TransactionType `gorm:"size:16;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"amount"`
	Category      string          `gorm:"size:64;not null" json:"category"`
	Description   string          `gorm:"size:500" json:"description,omitempty"`
	PaymentMethod PaymentMethod   `gorm:"size:16" json:"payment_method,omitempty"`
	Mood          Mood            `gorm:"size:16" json:"mood,omitempty"`
	Date          time.Time       `gorm:"not null" json:"date"`
	IsDeleted     bool            `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt     *time.Time      `json:"deleted_at"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime:false;index:idx_transactions_owner_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// AmountScale is the number of decimal places money columns store.
const AmountScale = 4

// FitsAmountScale reports whether d can be stored without rounding.
func FitsAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale))
}

// SignedAmount is the amount as it affects the balance: positive for income,
// negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
