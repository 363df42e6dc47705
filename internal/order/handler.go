package order

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
)

type Handler struct {
	db     *gorm.DB
	logger *activitylog.Logger
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		db:     db,
		logger: activitylog.NewLogger(db),
	}
}

type OrderItemRequest struct {
	InventoryID uint  `json:"inventory_id" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,min=1"`
	WarrantyID  *uint `json:"warranty_id"`
}

type CreateOrderRequest struct {
	CustomerID uint               `json:"customer_id" binding:"required"`
	EmployeeID uint               `json:"employee_id" binding:"required"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// List returns all orders
func (h *Handler) List(c *gin.Context) {
	query := h.db.Preload("Items").Preload("Items.Inventory").
		Preload("Customer").Preload("Employee").
		Order("order_date DESC")
	if status := c.Query("order_status"); status != "" {
		query = query.Where("order_status = ?", status)
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var orders []database.Orders
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

// Create places a new order, reserving stock for every line
func (h *Handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order database.Orders
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var customer database.Customer
		if err := tx.First(&customer, req.CustomerID).Error; err != nil {
			return fmt.Errorf("customer: %w", err)
		}
		var employee database.Employee
		if err := tx.First(&employee, req.EmployeeID).Error; err != nil {
			return fmt.Errorf("employee: %w", err)
		}

		order = database.Orders{
			CustomerID:  req.CustomerID,
			EmployeeID:  req.EmployeeID,
			OrderStatus: database.OrderPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var total float64
		for _, line := range req.Items {
			item, err := ReserveStock(tx, line.InventoryID, line.Quantity)
			if err != nil {
				return err
			}

			detail := database.OrderItemDetails{
				OrderID:     order.ID,
				InventoryID: line.InventoryID,
				WarrantyID:  line.WarrantyID,
				Quantity:    line.Quantity,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
			total += item.SellingPrice * float64(line.Quantity)
		}

		order.TotalAmount = total
		return tx.Save(&order).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": "Quantity exceeds available stock"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		}
		return
	}

	h.db.Preload("Items").Preload("Items.Inventory").Preload("Customer").First(&order, order.ID)

	h.logger.LogCreate(c, "order", order.ID, map[string]interface{}{
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount,
	})

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

// ListRecent returns the latest orders for the dashboard
func (h *Handler) ListRecent(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	var orders []database.Orders
	if err := h.db.Preload("Customer").Order("order_date DESC").
		Limit(limit).Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

// Get returns a single order
func (h *Handler) Get(c *gin.Context) {
	var order database.Orders
	if err := h.db.Preload("Items").Preload("Items.Inventory").
		Preload("Items.Warranty").Preload("Customer").Preload("Employee").
		First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

type UpdateOrderRequest struct {
	OrderStatus *string  `json:"order_status"`
	TotalAmount *float64 `json:"total_amount"`
}

// Update modifies an order's status or total. A transition into
// Cancelled goes through the same one-time stock restore as the cancel
// endpoint. Cancelled is terminal: the restored units may already be
// sold elsewhere, so the order cannot be reactivated.
func (h *Handler) Update(c *gin.Context) {
	var order database.Orders
	if err := h.db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if order.OrderStatus == database.OrderCancelled &&
		req.OrderStatus != nil && *req.OrderStatus != database.OrderCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Order is cancelled"})
		return
	}

	if req.OrderStatus != nil && *req.OrderStatus == database.OrderCancelled &&
		order.OrderStatus != database.OrderCancelled {
		h.cancel(c, &order)
		return
	}

	if req.OrderStatus != nil {
		order.OrderStatus = *req.OrderStatus
	}
	if req.TotalAmount != nil {
		order.TotalAmount = *req.TotalAmount
	}

	if err := h.db.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

// Cancel voids an order and restores its reserved stock once
func (h *Handler) Cancel(c *gin.Context) {
	var order database.Orders
	if err := h.db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if order.OrderStatus == database.OrderCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Order already cancelled"})
		return
	}

	h.cancel(c, &order)
}

func (h *Handler) cancel(c *gin.Context, order *database.Orders) {
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := RestoreOrderStock(tx, order.ID); err != nil {
			return err
		}
		order.OrderStatus = database.OrderCancelled
		return tx.Save(order).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		return
	}

	h.logger.LogActivity(c, "cancel", "order", &order.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": order})
}

// Delete removes an order, its items, payments and returns. Inventory
// rows referenced by the items are left alone.
func (h *Handler) Delete(c *gin.Context) {
	var order database.Orders
	if err := h.db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Orders{}, order.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order"})
		return
	}

	h.logger.LogDelete(c, "order", order.ID, map[string]interface{}{
		"customer_id": order.CustomerID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

type CreateOrderItemRequest struct {
	OrderID     uint  `json:"order_id" binding:"required"`
	InventoryID uint  `json:"inventory_id" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,min=1"`
	WarrantyID  *uint `json:"warranty_id"`
}

// ListItems returns order line items
func (h *Handler) ListItems(c *gin.Context) {
	query := h.db.Preload("Inventory").Preload("Warranty")
	if orderID := c.Query("order_id"); orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}

	var items []database.OrderItemDetails
	if err := query.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// CreateItem adds a line to an existing order, reserving stock
func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var detail database.OrderItemDetails
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var order database.Orders
		if err := tx.First(&order, req.OrderID).Error; err != nil {
			return err
		}
		if order.OrderStatus == database.OrderCancelled {
			return fmt.Errorf("order is cancelled")
		}

		item, err := ReserveStock(tx, req.InventoryID, req.Quantity)
		if err != nil {
			return err
		}

		detail = database.OrderItemDetails{
			OrderID:     req.OrderID,
			InventoryID: req.InventoryID,
			WarrantyID:  req.WarrantyID,
			Quantity:    req.Quantity,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return err
		}

		order.TotalAmount += item.SellingPrice * float64(req.Quantity)
		return tx.Save(&order).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			c.JSON(http.StatusConflict, gin.H{"error": "Quantity exceeds available stock"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order or inventory item not found"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": detail})
}

// GetItem returns a single order line
func (h *Handler) GetItem(c *gin.Context) {
	var detail database.OrderItemDetails
	if err := h.db.Preload("Inventory").Preload("Warranty").
		First(&detail, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// DeleteItem removes a line from an order, restoring its stock if it
// had not been restored yet and subtracting the line amount from the
// order total.
func (h *Handler) DeleteItem(c *gin.Context) {
	var detail database.OrderItemDetails
	if err := h.db.First(&detail, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order item not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var item database.Inventory
		if err := database.LockForUpdate(tx).First(&item, detail.InventoryID).Error; err != nil {
			return err
		}
		if !detail.StockRestored {
			item.QuantityAvailable += detail.Quantity
			if item.QuantityAvailable > item.QuantityReceived {
				item.QuantityAvailable = item.QuantityReceived
			}
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
		}

		var order database.Orders
		if err := tx.First(&order, detail.OrderID).Error; err != nil {
			return err
		}
		order.TotalAmount -= item.SellingPrice * float64(detail.Quantity)
		if order.TotalAmount < 0 {
			order.TotalAmount = 0
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		return tx.Delete(&database.OrderItemDetails{}, detail.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order item deleted"})
}

type PaymentRequest struct {
	OrderID       uint    `json:"order_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
}

// ListPayments returns order payments
func (h *Handler) ListPayments(c *gin.Context) {
	query := h.db.Order("payment_date DESC")
	if orderID := c.Query("order_id"); orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}

	var payments []database.OrderPayment
	if err := query.Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

// CreatePayment records a payment against an order and the matching
// income row
func (h *Handler) CreatePayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payment database.OrderPayment
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var order database.Orders
		if err := tx.First(&order, req.OrderID).Error; err != nil {
			return err
		}

		payment = database.OrderPayment{
			OrderID:       req.OrderID,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		income := database.Income{
			OrderPaymentID: payment.ID,
			IncomeAmount:   req.Amount,
			NetIncome:      req.Amount,
			PaymentMethod:  req.PaymentMethod,
		}
		return tx.Create(&income).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

// GetPayment returns a single order payment
func (h *Handler) GetPayment(c *gin.Context) {
	var payment database.OrderPayment
	if err := h.db.First(&payment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// DeletePayment removes an order payment and its derived income rows
func (h *Handler) DeletePayment(c *gin.Context) {
	var payment database.OrderPayment
	if err := h.db.First(&payment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.OrderPayment{}, payment.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}

// ListItemWarranties returns all order item warranties
func (h *Handler) ListItemWarranties(c *gin.Context) {
	var warranties []database.OrderItemWarranty
	if err := h.db.Find(&warranties).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch warranties"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": warranties})
}

// CreateItemWarranty adds an order item warranty
func (h *Handler) CreateItemWarranty(c *gin.Context) {
	var warranty database.OrderItemWarranty
	if err := c.ShouldBindJSON(&warranty); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	warranty.ID = 0

	if err := h.db.Create(&warranty).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create warranty"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": warranty})
}
