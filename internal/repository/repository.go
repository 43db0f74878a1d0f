// Package repository holds the storage contracts for the ledger and wallet
// balances, and their GORM implementation. The mongostore subpackage provides
// the document-store implementation of the same contracts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"walletwise/internal/models"
	"walletwise/internal/pagination"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned by Save when the stored row is no longer in
	// the state the caller read, so the transition was not applied.
	ErrStaleState = errors.New("record state changed concurrently")
)

// SortOrder selects the ordering of Find results.
type SortOrder int

const (
	// SortNewest orders by created_at DESC, id DESC.
	SortNewest SortOrder = iota
	// SortRecentlyDeleted orders by deleted_at DESC, id DESC.
	SortRecentlyDeleted
)

// LedgerFilter selects transactions. Zero-valued fields are ignored.
type LedgerFilter struct {
	ID           string
	OwnerID      string
	Type         models.TransactionType
	Category     string
	Amount       *decimal.Decimal
	IsDeleted    *bool
	CreatedSince *time.Time
	DateFrom     *time.Time
	DateTo       *time.Time
	Sort         SortOrder
}

// Active is the IsDeleted filter value for live transactions.
func Active() *bool {
	v := false
	return &v
}

// Deleted is the IsDeleted filter value for soft-deleted transactions.
func Deleted() *bool {
	v := true
	return &v
}

// GroupBy is the dimension an aggregate groups on, besides type.
type GroupBy string

const (
	GroupByCategory GroupBy = "category"
	GroupByMood     GroupBy = "mood"
)

// Bucket is one aggregate row: the total and count of transactions sharing a
// type and a group key.
type Bucket struct {
	Type  models.TransactionType `json:"type"`
	Key   string                 `json:"key"`
	Total decimal.Decimal        `json:"total"`
	Count int64                  `json:"count"`
}

// LedgerRepository persists transaction records.
type LedgerRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindOne(ctx context.Context, filter LedgerFilter) (*models.Transaction, error)
	Find(ctx context.Context, filter LedgerFilter, page pagination.PageRequest) ([]models.Transaction, int64, error)
	// Save persists an is_deleted transition. It only applies if the stored
	// row still has the opposite is_deleted value.
	Save(ctx context.Context, tx *models.Transaction) error
	Aggregate(ctx context.Context, filter LedgerFilter, groupBy GroupBy) ([]Bucket, error)
}

// AccountRepository reads and adjusts wallet balances. Every method returns
// ErrNotFound for an owner whose wallet was never opened.
type AccountRepository interface {
	// OpenWallet sets the starting balance of a newly registered owner.
	OpenWallet(ctx context.Context, ownerID string, opening decimal.Decimal) (*models.Wallet, error)
	FindByID(ctx context.Context, ownerID string) (*models.Wallet, error)
	// ApplyBalanceDelta atomically adds delta (which may be negative) to the
	// stored balance and returns the wallet after the change.
	ApplyBalanceDelta(ctx context.Context, ownerID string, delta decimal.Decimal) (*models.Wallet, error)
}

// Transactor runs fn inside a single storage transaction. Repository calls
// made with the ctx passed to fn join that transaction. A non-nil error from
// fn rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
