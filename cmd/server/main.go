package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pgmicro/inventory-backend/internal/auth"
	"github.com/pgmicro/inventory-backend/internal/catalog"
	"github.com/pgmicro/inventory-backend/internal/customer"
	"github.com/pgmicro/inventory-backend/internal/employee"
	"github.com/pgmicro/inventory-backend/internal/finance"
	"github.com/pgmicro/inventory-backend/internal/inventory"
	"github.com/pgmicro/inventory-backend/internal/order"
	"github.com/pgmicro/inventory-backend/internal/purchaseorder"
	"github.com/pgmicro/inventory-backend/internal/returns"
	"github.com/pgmicro/inventory-backend/internal/supplier"
	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
	"github.com/pgmicro/inventory-backend/pkg/email"
	"github.com/pgmicro/inventory-backend/pkg/middleware"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := activitylog.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate activity logs: %v", err)
	}

	// Supplier notifications with a background retry loop
	notifier := email.NewEmailService(db)
	if !notifier.IsConfigured() {
		log.Println("No mail sender configured; purchase order notifications will be retried until one is")
	}
	scheduler := purchaseorder.NewScheduler(db, notifier)
	scheduler.Start()

	// Setup Gin router
	r := gin.Default()

	// Middleware
	r.Use(middleware.CORS())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		v1.POST("/auth/signup", authHandler.Signup)
		v1.POST("/auth/login", authHandler.Login)

		// Google OAuth routes
		v1.GET("/auth/google", authHandler.GoogleLogin)
		v1.GET("/auth/google/callback", authHandler.GoogleCallback)

		// Protected routes
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth - get current user
			protected.GET("/auth/me", authHandler.GetMe)

			// Employee routes
			employeeHandler := employee.NewHandler(db)
			protected.GET("/employees", employeeHandler.List)
			protected.POST("/employees", middleware.RoleRequired("admin"), employeeHandler.Create)
			protected.GET("/employees/:id", employeeHandler.Get)
			protected.PUT("/employees/:id", employeeHandler.Update)
			protected.DELETE("/employees/:id", middleware.RoleRequired("admin"), employeeHandler.Delete)

			// Customer routes
			customerHandler := customer.NewHandler(db)
			protected.GET("/customers", customerHandler.List)
			protected.POST("/customers", customerHandler.Create)
			protected.GET("/customers/:id", customerHandler.Get)
			protected.PUT("/customers/:id", customerHandler.Update)
			protected.DELETE("/customers/:id", customerHandler.Delete)

			// Supplier routes
			supplierHandler := supplier.NewHandler(db)
			protected.GET("/suppliers", supplierHandler.List)
			protected.POST("/suppliers", supplierHandler.Create)
			protected.GET("/suppliers/:id", supplierHandler.Get)
			protected.PUT("/suppliers/:id", supplierHandler.Update)
			protected.DELETE("/suppliers/:id", supplierHandler.Delete)

			// Catalog routes
			catalogHandler := catalog.NewHandler(db)
			protected.GET("/categories", catalogHandler.ListCategories)
			protected.POST("/categories", catalogHandler.CreateCategory)
			protected.GET("/categories/:id", catalogHandler.GetCategory)
			protected.PUT("/categories/:id", catalogHandler.UpdateCategory)
			protected.DELETE("/categories/:id", catalogHandler.DeleteCategory)

			protected.GET("/products", catalogHandler.ListProducts)
			protected.POST("/products", catalogHandler.CreateProduct)
			protected.GET("/products/:id", catalogHandler.GetProduct)
			protected.PUT("/products/:id", catalogHandler.UpdateProduct)
			protected.DELETE("/products/:id", catalogHandler.DeleteProduct)

			protected.GET("/warranties", catalogHandler.ListWarranties)
			protected.POST("/warranties", catalogHandler.CreateWarranty)
			protected.GET("/warranties/:id", catalogHandler.GetWarranty)
			protected.PUT("/warranties/:id", catalogHandler.UpdateWarranty)
			protected.DELETE("/warranties/:id", catalogHandler.DeleteWarranty)

			// Inventory routes
			inventoryHandler := inventory.NewHandler(db)
			protected.GET("/inventory", inventoryHandler.List)
			protected.POST("/inventory", inventoryHandler.Create)
			protected.GET("/inventory/summary", inventoryHandler.GetSummary)
			protected.GET("/inventory/alerts", inventoryHandler.GetAlerts)
			protected.GET("/inventory/damaged", inventoryHandler.ListDamaged)
			protected.POST("/inventory/import", inventoryHandler.Import)
			protected.GET("/inventory/:id", inventoryHandler.Get)
			protected.PUT("/inventory/:id", inventoryHandler.Update)
			protected.DELETE("/inventory/:id", inventoryHandler.Delete)

			// Damage report routes
			protected.GET("/damage-reports", inventoryHandler.ListDamageReports)
			protected.POST("/damage-reports", inventoryHandler.CreateDamageReport)
			protected.GET("/damage-reports/:id", inventoryHandler.GetDamageReport)
			protected.PUT("/damage-reports/:id", inventoryHandler.UpdateDamageReport)
			protected.DELETE("/damage-reports/:id", inventoryHandler.DeleteDamageReport)

			// Order routes
			orderHandler := order.NewHandler(db)
			protected.GET("/orders", orderHandler.List)
			protected.GET("/orders/recent", orderHandler.ListRecent)
			protected.POST("/orders", orderHandler.Create)
			protected.GET("/orders/:id", orderHandler.Get)
			protected.PUT("/orders/:id", orderHandler.Update)
			protected.POST("/orders/:id/cancel", orderHandler.Cancel)
			protected.DELETE("/orders/:id", orderHandler.Delete)

			protected.GET("/order-items", orderHandler.ListItems)
			protected.POST("/order-items", orderHandler.CreateItem)
			protected.GET("/order-items/:id", orderHandler.GetItem)
			protected.DELETE("/order-items/:id", orderHandler.DeleteItem)

			protected.GET("/order-payments", orderHandler.ListPayments)
			protected.POST("/order-payments", orderHandler.CreatePayment)
			protected.GET("/order-payments/:id", orderHandler.GetPayment)
			protected.DELETE("/order-payments/:id", orderHandler.DeletePayment)

			protected.GET("/order-item-warranties", orderHandler.ListItemWarranties)
			protected.POST("/order-item-warranties", orderHandler.CreateItemWarranty)

			// Returns routes
			returnsHandler := returns.NewHandler(db)
			protected.GET("/returns", returnsHandler.List)
			protected.POST("/returns", returnsHandler.Create)
			protected.GET("/returns/:id", returnsHandler.Get)
			protected.PUT("/returns/:id", returnsHandler.Update)
			protected.DELETE("/returns/:id", returnsHandler.Delete)

			protected.GET("/refunds", returnsHandler.ListRefunds)
			protected.POST("/refunds", returnsHandler.CreateRefund)
			protected.GET("/refunds/:id", returnsHandler.GetRefund)

			protected.GET("/replacements", returnsHandler.ListReplacements)
			protected.POST("/replacements", returnsHandler.CreateReplacement)
			protected.GET("/replacements/:id", returnsHandler.GetReplacement)

			// Purchase order routes
			poHandler := purchaseorder.NewHandler(db, notifier)
			protected.GET("/purchase-orders", poHandler.List)
			protected.POST("/purchase-orders", poHandler.Create)
			protected.GET("/purchase-orders/:id", poHandler.Get)
			protected.PUT("/purchase-orders/:id", poHandler.Update)
			protected.DELETE("/purchase-orders/:id", poHandler.Delete)

			protected.GET("/purchase-order-details", poHandler.ListDetails)
			protected.POST("/purchase-order-details", poHandler.CreateDetail)
			protected.GET("/purchase-order-details/:id", poHandler.GetDetail)
			protected.DELETE("/purchase-order-details/:id", poHandler.DeleteDetail)

			protected.GET("/purchase-order-payments", poHandler.ListPayments)
			protected.POST("/purchase-order-payments", poHandler.CreatePayment)
			protected.GET("/purchase-order-payments/:id", poHandler.GetPayment)
			protected.DELETE("/purchase-order-payments/:id", poHandler.DeletePayment)

			protected.GET("/purchase-order-tracking", poHandler.ListTracking)
			protected.POST("/purchase-order-tracking", poHandler.CreateTracking)
			protected.GET("/purchase-order-tracking/:id", poHandler.GetTracking)

			// Finance routes
			financeHandler := finance.NewHandler(db)
			protected.GET("/income", financeHandler.ListIncome)
			protected.POST("/income", financeHandler.CreateIncome)
			protected.GET("/income/:id", financeHandler.GetIncome)
			protected.DELETE("/income/:id", financeHandler.DeleteIncome)

			protected.GET("/expenses", financeHandler.ListExpenses)
			protected.POST("/expenses", financeHandler.CreateExpense)
			protected.GET("/expenses/:id", financeHandler.GetExpense)
			protected.DELETE("/expenses/:id", financeHandler.DeleteExpense)

			protected.GET("/reports", financeHandler.ListReports)
			protected.POST("/reports/generate", financeHandler.GenerateReport)
			protected.GET("/reports/export", financeHandler.ExportReports)
			protected.GET("/reports/:id", financeHandler.GetReport)
			protected.DELETE("/reports/:id", financeHandler.DeleteReport)
		}
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
