package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
)

type Invoice struct {
	ID                 uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceNumber      string          `gorm:"uniqueIndex;size:50;not null" json:"invoiceNumber"`
	CustomerID         *uuid.UUID      `gorm:"type:char(36);index" json:"-"`
	Customer           *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL" json:"customer,omitempty"`
	UserID             uuid.UUID       `gorm:"type:char(36);index;not null" json:"-"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"subtotal"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discountAmount"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discountPercentage"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"totalAmount"`
	PaymentMethod      string          `gorm:"size:50;not null" json:"paymentMethod"`
	PaymentStatus      string          `gorm:"size:20;not null;index" json:"paymentStatus"`
	Notes              string          `gorm:"size:1000" json:"notes"`
	CreatedAt          time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Items              []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *Invoice) GetUserID() uuid.UUID { return i.UserID }

// InvoiceItem captures the product's prices at sale time, so later catalog
// edits do not change historical invoices.
type InvoiceItem struct {
	ID                 uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceID          uuid.UUID       `gorm:"type:char(36);index;not null" json:"-"`
	LineNo             int             `gorm:"not null;default:0" json:"lineNo"`
	ProductID          uuid.UUID       `gorm:"type:char(36);index;not null" json:"productId"`
	Product            *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unitPrice"`
	CostPrice          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"costPrice"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discountAmount"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discountPercentage"`
	TotalPrice         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"totalPrice"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func (it *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}
