package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ncbao26/POS/internal/config"
	"github.com/ncbao26/POS/internal/handlers"
	"github.com/ncbao26/POS/internal/middleware"
	"github.com/ncbao26/POS/internal/models"
	"github.com/ncbao26/POS/internal/services/invoicing"
)

func Register(router *gin.Engine, db *gorm.DB, cfg config.Config, engine *invoicing.Engine) {
	router.Use(corsMiddleware(cfg.AllowedOriginsRaw))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "pos-backend"})
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db)
	customerHandler := handlers.NewCustomerHandler(db)
	invoiceHandler := handlers.NewInvoiceHandler(engine)
	dashboardHandler := handlers.NewDashboardHandler(db, engine)
	migrationHandler := handlers.NewMigrationHandler(db)

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.POST("/auth/logout", authHandler.Logout)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthRequired(cfg.JwtSecret, db))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.PUT("/auth/me/password", authHandler.ChangePassword)
		protected.GET("/dashboard", dashboardHandler.Get)

		protected.GET("/products", productHandler.List)
		protected.GET("/products/search", productHandler.Search)
		protected.GET("/products/low-stock", productHandler.LowStock)
		protected.GET("/products/:id", productHandler.Get)
		protected.GET("/products/:id/stock-movements", productHandler.StockMovements)
		protected.POST("/products", productHandler.Create)
		protected.PUT("/products/:id", productHandler.Update)
		protected.DELETE("/products/:id", productHandler.Delete)

		protected.GET("/customers", customerHandler.List)
		protected.GET("/customers/search", customerHandler.Search)
		protected.GET("/customers/:id", customerHandler.Get)
		protected.POST("/customers", customerHandler.Create)
		protected.PUT("/customers/:id", customerHandler.Update)
		protected.DELETE("/customers/:id", customerHandler.Delete)

		protected.GET("/invoices", invoiceHandler.List)
		protected.GET("/invoices/filter", invoiceHandler.Filter)
		protected.GET("/invoices/revenue-by-date", invoiceHandler.RevenueByDate)
		protected.GET("/invoices/revenue-summary", invoiceHandler.RevenueSummary)
		protected.GET("/invoices/:id", invoiceHandler.Get)
		protected.POST("/invoices", invoiceHandler.Create)
		protected.PUT("/invoices/:id", invoiceHandler.Update)
		protected.DELETE("/invoices/:id", invoiceHandler.Delete)
	}

	admin := protected.Group("/admin/migration")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/export-users", migrationHandler.ExportUsers)
		admin.POST("/import-users", migrationHandler.ImportUsers)
		admin.GET("/generate-datainitializer", migrationHandler.GenerateSeed)
	}
}

// corsMiddleware allows every origin when allowed is empty.
func corsMiddleware(allowed string) gin.HandlerFunc {
	origins := []string{}
	for _, origin := range strings.Split(allowed, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	return cors.New(corsConfig)
}
