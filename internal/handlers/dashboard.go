package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/models"
	"github.com/ncbao26/POS/internal/services/invoicing"
)

type DashboardHandler struct {
	DB     *gorm.DB
	Engine *invoicing.Engine
}

func NewDashboardHandler(db *gorm.DB, engine *invoicing.Engine) *DashboardHandler {
	return &DashboardHandler{DB: db, Engine: engine}
}

func (h *DashboardHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var productCount int64
	_ = h.DB.Model(&models.Product{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&productCount).Error

	var lowStockCount int64
	_ = h.DB.Model(&models.Product{}).
		Where("user_id = ? AND is_active = ? AND stock <= ?", userID, true, defaultLowStockThreshold).
		Count(&lowStockCount).Error

	var customerCount int64
	_ = h.DB.Model(&models.Customer{}).Where("user_id = ?", userID).Count(&customerCount).Error

	var invoiceCount int64
	_ = h.DB.Model(&models.Invoice{}).Where("user_id = ?", userID).Count(&invoiceCount).Error

	summary, err := h.Engine.RevenueSummary(c.Request.Context(), userID, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":         productCount,
		"lowStockProducts": lowStockCount,
		"customers":        customerCount,
		"invoices":         invoiceCount,
		"todayRevenue":     summary.TodayRevenue,
		"monthRevenue":     summary.ThisMonthRevenue,
		"date":             summary.Date,
	})
}
