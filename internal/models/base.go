package models

import (
	"time"

	"walletwise/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for user-owned configuration tables.
// Ledger rows do not embed it: their soft delete is part of the balance
// state machine, not GORM's global scope.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
