package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is soft-deleted by clearing IsActive; rows are never removed
// because invoice items keep referencing them.
type Product struct {
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:char(36);index;not null" json:"-"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"size:1000" json:"description"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"costPrice"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	IsActive    bool            `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Product) GetUserID() uuid.UUID { return p.UserID }
