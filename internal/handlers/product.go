package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/models"
)

const defaultLowStockThreshold = 10

type ProductHandler struct {
	DB *gorm.DB
}

type productRequest struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Description string           `json:"description" binding:"max=1000"`
	CostPrice   *decimal.Decimal `json:"costPrice"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	IsActive    *bool            `json:"isActive"`
}

func (r productRequest) validMoney() bool {
	if r.Price.IsNegative() {
		return false
	}
	return r.CostPrice == nil || !r.CostPrice.IsNegative()
}

func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{DB: db}
}

func (h *ProductHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var products []models.Product
	if err := h.DB.Where("user_id = ? AND is_active = ?", userID, true).Order("created_at desc").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var product models.Product
	if !loadOwned(c, h.DB, userID, id, &product, "product") {
		return
	}
	c.JSON(http.StatusOK, product)
}

// Search matches name substrings case-insensitively among active products.
func (h *ProductHandler) Search(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(c.Query("name"))) + "%"
	var products []models.Product
	if err := h.DB.Where("user_id = ? AND is_active = ? AND LOWER(name) LIKE ?", userID, true, pattern).
		Order("name asc").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) LowStock(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	threshold := defaultLowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = parsed
	}

	var products []models.Product
	if err := h.DB.Where("user_id = ? AND is_active = ? AND stock <= ?", userID, true, threshold).
		Order("stock asc").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.validMoney() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	product := models.Product{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       *req.Price,
		IsActive:    true,
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := h.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.validMoney() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	var product models.Product
	if !loadOwned(c, h.DB, userID, id, &product, "product") {
		return
	}

	updates := map[string]any{
		"name":        strings.TrimSpace(req.Name),
		"description": req.Description,
		"price":       *req.Price,
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := h.DB.Model(&product).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if err := h.DB.First(&product, "id = ?", product.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete deactivates the product. Invoice items keep pointing at the row.
func (h *ProductHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var product models.Product
	if !loadOwned(c, h.DB, userID, id, &product, "product") {
		return
	}
	if err := h.DB.Model(&product).Update("is_active", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *ProductHandler) StockMovements(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var product models.Product
	if !loadOwned(c, h.DB, userID, id, &product, "product") {
		return
	}

	var movements []models.StockMovement
	if err := h.DB.Where("product_id = ?", product.ID).Order("created_at desc").Find(&movements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load stock movements"})
		return
	}
	c.JSON(http.StatusOK, movements)
}
