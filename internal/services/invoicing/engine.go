package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ncbao26/POS/internal/models"
	"github.com/ncbao26/POS/internal/policy"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const numberAttempts = 5

// Engine owns every invoice mutation. Each mutation runs in a single
// transaction, so stock and invoice rows change together or not at all.
type Engine struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

type Option func(*Engine)

// WithLocation sets the time zone used for calendar days and months.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{db: db, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Location() *time.Location { return e.loc }

// stamp is the time written to rows. Stored times are always UTC.
func (e *Engine) stamp() time.Time { return e.now().UTC() }

type ItemInput struct {
	ProductID          uuid.UUID
	Quantity           int
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
}

type Input struct {
	CustomerID         *uuid.UUID
	PaymentMethod      string
	Items              []ItemInput
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	Notes              string
}

func (in Input) validate() error {
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return invalid("payment method is required")
	}
	if len(in.Items) == 0 {
		return invalid("at least one item is required")
	}
	if utf8.RuneCountInString(in.Notes) > 1000 {
		return invalid("notes must be at most 1000 characters")
	}
	if err := validateDiscount(in.DiscountAmount, in.DiscountPercentage); err != nil {
		return err
	}
	for i, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return invalid("item %d: product id is required", i+1)
		}
		if item.Quantity < 1 {
			return invalid("item %d: quantity must be at least 1", i+1)
		}
		if err := validateDiscount(item.DiscountAmount, item.DiscountPercentage); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

func validateDiscount(amount, percentage decimal.Decimal) error {
	if amount.IsNegative() {
		return invalid("discount amount must not be negative")
	}
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return invalid("discount percentage must be between 0 and 100")
	}
	return nil
}

// Create sells in.Items: it prices every line, takes the quantities out of
// stock and stores the invoice as PAID.
func (e *Engine) Create(ctx context.Context, userID uuid.UUID, in Input) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var invoiceID uuid.UUID
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customerID, err := resolveCustomer(tx, userID, in.CustomerID)
		if err != nil {
			return err
		}
		number, err := e.allocateNumber(tx)
		if err != nil {
			return err
		}

		now := e.stamp()
		invoice := models.Invoice{
			InvoiceNumber: number,
			CustomerID:    customerID,
			UserID:        userID,
			PaymentStatus: models.PaymentStatusPaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		applyHeader(&invoice, in)
		if err := tx.Omit(clause.Associations).Create(&invoice).Error; err != nil {
			return err
		}
		invoiceID = invoice.ID
		return e.applyLines(tx, &invoice, in)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, userID, invoiceID)
}

// Update puts the stock of the existing lines back and replaces them with
// in.Items. The invoice keeps its number, status and creation time.
func (e *Engine) Update(ctx context.Context, userID, invoiceID uuid.UUID, in Input) (*models.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}
		customerID, err := resolveCustomer(tx, userID, in.CustomerID)
		if err != nil {
			return err
		}
		if err := e.restoreStock(tx, invoice); err != nil {
			return err
		}
		invoice.CustomerID = customerID
		applyHeader(invoice, in)
		return e.applyLines(tx, invoice, in)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, userID, invoiceID)
}

// Delete removes the invoice and returns its quantities to stock.
func (e *Engine) Delete(ctx context.Context, userID, invoiceID uuid.UUID) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, userID, invoiceID)
		if err != nil {
			return err
		}
		if err := e.restoreStock(tx, invoice); err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, "id = ?", invoice.ID).Error
	})
}

func (e *Engine) Get(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := e.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Items.Product").
		First(&invoice, "id = ?", invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(userID, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns the caller's invoices, newest first.
func (e *Engine) List(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := e.db.WithContext(ctx).
		Preload("Customer").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invoices).Error
	return invoices, err
}

func applyHeader(invoice *models.Invoice, in Input) {
	invoice.PaymentMethod = strings.ToUpper(strings.TrimSpace(in.PaymentMethod))
	invoice.DiscountAmount = in.DiscountAmount
	invoice.DiscountPercentage = in.DiscountPercentage
	invoice.Notes = in.Notes
}

// applyLines writes one item per input line, decrements stock and stores the
// resulting subtotal and total on invoice.
func (e *Engine) applyLines(tx *gorm.DB, invoice *models.Invoice, in Input) error {
	subtotal := decimal.Zero
	for i, line := range in.Items {
		product, err := lockProduct(tx, invoice.UserID, line.ProductID)
		if err != nil {
			return err
		}
		if product.Stock < line.Quantity {
			return &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   line.Quantity,
			}
		}

		item := models.InvoiceItem{
			InvoiceID:          invoice.ID,
			LineNo:             i + 1,
			ProductID:          product.ID,
			Quantity:           line.Quantity,
			UnitPrice:          product.Price,
			CostPrice:          product.CostPrice,
			DiscountAmount:     line.DiscountAmount,
			DiscountPercentage: line.DiscountPercentage,
			TotalPrice:         LineTotal(product.Price, line.Quantity, line.DiscountAmount, line.DiscountPercentage),
		}
		if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
			return err
		}
		if err := e.takeStock(tx, invoice, product, line.Quantity); err != nil {
			return err
		}
		subtotal = subtotal.Add(item.TotalPrice)
	}

	invoice.Subtotal = subtotal.Round(2)
	invoice.TotalAmount = ApplyDiscounts(subtotal, invoice.DiscountAmount, invoice.DiscountPercentage)
	return tx.Omit(clause.Associations).Save(invoice).Error
}

// takeStock only succeeds while enough units remain, even if another writer
// got to the row first.
func (e *Engine) takeStock(tx *gorm.DB, invoice *models.Invoice, product *models.Product, quantity int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", product.ID, quantity).
		Updates(map[string]any{"stock": gorm.Expr("stock - ?", quantity), "updated_at": e.stamp()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   quantity,
		}
	}
	return tx.Create(&models.StockMovement{
		ProductID:   product.ID,
		InvoiceID:   &invoice.ID,
		UserID:      invoice.UserID,
		Kind:        models.StockMovementSale,
		Quantity:    -quantity,
		StockBefore: product.Stock,
		StockAfter:  product.Stock - quantity,
		Details:     movementDetails(invoice.InvoiceNumber, product.Name),
		CreatedAt:   e.stamp(),
	}).Error
}

// restoreStock returns the quantities of every current line of invoice and
// deletes those lines.
func (e *Engine) restoreStock(tx *gorm.DB, invoice *models.Invoice) error {
	var items []models.InvoiceItem
	if err := tx.Where("invoice_id = ?", invoice.ID).Order("line_no ASC").Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		var product models.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", item.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return err
		}
		err = tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Updates(map[string]any{"stock": gorm.Expr("stock + ?", item.Quantity), "updated_at": e.stamp()}).Error
		if err != nil {
			return err
		}
		err = tx.Create(&models.StockMovement{
			ProductID:   product.ID,
			InvoiceID:   &invoice.ID,
			UserID:      invoice.UserID,
			Kind:        models.StockMovementRestore,
			Quantity:    item.Quantity,
			StockBefore: product.Stock,
			StockAfter:  product.Stock + item.Quantity,
			Details:     movementDetails(invoice.InvoiceNumber, product.Name),
			CreatedAt:   e.stamp(),
		}).Error
		if err != nil {
			return err
		}
	}
	return tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error
}

func (e *Engine) allocateNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < numberAttempts; attempt++ {
		number := NewInvoiceNumber(e.now())
		var count int64
		if err := tx.Model(&models.Invoice{}).Where("invoice_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", errors.New("could not allocate a unique invoice number")
}

func lockInvoice(tx *gorm.DB, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, "id = ?", invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(userID, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func lockProduct(tx *gorm.DB, userID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(userID, &product); err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}
	return &product, nil
}

func resolveCustomer(tx *gorm.DB, userID uuid.UUID, customerID *uuid.UUID) (*uuid.UUID, error) {
	if customerID == nil {
		return nil, nil
	}
	var customer models.Customer
	err := tx.First(&customer, "id = ?", *customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(userID, &customer); err != nil {
		return nil, err
	}
	id := customer.ID
	return &id, nil
}

func movementDetails(invoiceNumber, productName string) datatypes.JSON {
	raw, _ := json.Marshal(map[string]string{
		"invoiceNumber": invoiceNumber,
		"productName":   productName,
	})
	return datatypes.JSON(raw)
}
