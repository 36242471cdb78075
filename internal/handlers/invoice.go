package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ncbao26/POS/internal/policy"
	"github.com/ncbao26/POS/internal/services/invoicing"
)

type InvoiceHandler struct {
	Engine *invoicing.Engine
}

type invoiceItemRequest struct {
	ProductID          uuid.UUID        `json:"productId" binding:"required"`
	Quantity           int              `json:"quantity" binding:"required,min=1"`
	DiscountAmount     *decimal.Decimal `json:"discountAmount"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage"`
}

type invoiceRequest struct {
	CustomerID         *uuid.UUID           `json:"customerId"`
	PaymentMethod      string               `json:"paymentMethod" binding:"required,max=50"`
	Items              []invoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountAmount     *decimal.Decimal     `json:"discountAmount"`
	DiscountPercentage *decimal.Decimal     `json:"discountPercentage"`
	Notes              string               `json:"notes" binding:"max=1000"`
}

func (r invoiceRequest) input() invoicing.Input {
	in := invoicing.Input{
		CustomerID:         r.CustomerID,
		PaymentMethod:      r.PaymentMethod,
		DiscountAmount:     orZero(r.DiscountAmount),
		DiscountPercentage: orZero(r.DiscountPercentage),
		Notes:              r.Notes,
		Items:              make([]invoicing.ItemInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, invoicing.ItemInput{
			ProductID:          item.ProductID,
			Quantity:           item.Quantity,
			DiscountAmount:     orZero(item.DiscountAmount),
			DiscountPercentage: orZero(item.DiscountPercentage),
		})
	}
	return in
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func NewInvoiceHandler(engine *invoicing.Engine) *InvoiceHandler {
	return &InvoiceHandler{Engine: engine}
}

func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invoices, err := h.Engine.List(c.Request.Context(), userID)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	invoice, err := h.Engine.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	invoice, err := h.Engine.Create(c.Request.Context(), userID, req.input())
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	invoice, err := h.Engine.Update(c.Request.Context(), userID, id, req.input())
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.Engine.Delete(c.Request.Context(), userID, id); err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Filter applies the date range only when both startDate and endDate are given.
func (h *InvoiceHandler) Filter(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter := invoicing.Filter{Status: c.Query("status")}
	if rawStart, rawEnd := c.Query("startDate"), c.Query("endDate"); rawStart != "" && rawEnd != "" {
		start, err := h.Engine.ParseDate(rawStart)
		if err != nil {
			writeInvoiceError(c, err)
			return
		}
		end, err := h.Engine.ParseDate(rawEnd)
		if err != nil {
			writeInvoiceError(c, err)
			return
		}
		filter.Start, filter.End = &start, &end
	}

	invoices, err := h.Engine.Filter(c.Request.Context(), userID, filter)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) RevenueByDate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rawStart, rawEnd := c.Query("startDate"), c.Query("endDate")
	if rawStart == "" || rawEnd == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startDate and endDate are required"})
		return
	}
	start, err := h.Engine.ParseDate(rawStart)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	end, err := h.Engine.ParseDate(rawEnd)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}

	points, err := h.Engine.RevenueByDate(c.Request.Context(), userID, start, end)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (h *InvoiceHandler) RevenueSummary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := h.Engine.ParseDate(raw)
		if err != nil {
			writeInvoiceError(c, err)
			return
		}
		date = &parsed
	}

	summary, err := h.Engine.RevenueSummary(c.Request.Context(), userID, date)
	if err != nil {
		writeInvoiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func writeInvoiceError(c *gin.Context, err error) {
	var stockErr *invoicing.InsufficientStockError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, invoicing.ErrInvalidInput), errors.As(err, &stockErr):
		status = http.StatusBadRequest
	case errors.Is(err, invoicing.ErrInvoiceNotFound),
		errors.Is(err, invoicing.ErrCustomerNotFound),
		errors.Is(err, invoicing.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, policy.ErrForbidden):
		status = http.StatusForbidden
	default:
		log.Printf("invoice request %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
