package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StockMovementSale    = "SALE"
	StockMovementRestore = "RESTORE"
)

// StockMovement records one change to a product's stock. Quantity is signed:
// negative when units leave stock, positive when they come back.
type StockMovement struct {
	ID          uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	ProductID   uuid.UUID      `gorm:"type:char(36);index;not null" json:"productId"`
	InvoiceID   *uuid.UUID     `gorm:"type:char(36);index" json:"invoiceId,omitempty"`
	UserID      uuid.UUID      `gorm:"type:char(36);index;not null" json:"-"`
	Kind        string         `gorm:"size:20;not null" json:"kind"`
	Quantity    int            `gorm:"not null" json:"quantity"`
	StockBefore int            `gorm:"not null" json:"stockBefore"`
	StockAfter  int            `gorm:"not null" json:"stockAfter"`
	Details     datatypes.JSON `json:"details,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
