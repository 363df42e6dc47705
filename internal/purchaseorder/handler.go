package purchaseorder

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
	"github.com/pgmicro/inventory-backend/pkg/email"
)

type Handler struct {
	db       *gorm.DB
	notifier email.Notifier
	logger   *activitylog.Logger
}

func NewHandler(db *gorm.DB, notifier email.Notifier) *Handler {
	return &Handler{
		db:       db,
		notifier: notifier,
		logger:   activitylog.NewLogger(db),
	}
}

type DetailRequest struct {
	ProductID   uint    `json:"product_id" binding:"required"`
	WarrantyID  *uint   `json:"warranty_id"`
	BuyingPrice float64 `json:"buying_price" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
}

type CreatePORequest struct {
	SupplierID           uint            `json:"supplier_id" binding:"required"`
	EmployeeID           uint            `json:"employee_id" binding:"required"`
	Status               string          `json:"status"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	Details              []DetailRequest `json:"details"`
}

// List returns all purchase orders
func (h *Handler) List(c *gin.Context) {
	query := h.db.Preload("Supplier").Preload("Employee").
		Order("purchase_order_date DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID := c.Query("supplier_id"); supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	var orders []database.PurchaseOrder
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchase orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

// Create opens a purchase order, optionally with its line items
func (h *Handler) Create(c *gin.Context) {
	var req CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := req.Status
	if status == "" {
		status = database.POPending
	}
	if status == database.PODelivered {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A purchase order cannot be created as Delivered"})
		return
	}

	var po database.PurchaseOrder
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var supplier database.Supplier
		if err := tx.First(&supplier, req.SupplierID).Error; err != nil {
			return fmt.Errorf("supplier: %w", err)
		}
		var employee database.Employee
		if err := tx.First(&employee, req.EmployeeID).Error; err != nil {
			return fmt.Errorf("employee: %w", err)
		}

		po = database.PurchaseOrder{
			SupplierID:           req.SupplierID,
			EmployeeID:           req.EmployeeID,
			Status:               status,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		}
		if err := tx.Create(&po).Error; err != nil {
			return err
		}

		var total float64
		for _, line := range req.Details {
			var product database.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				return fmt.Errorf("product: %w", err)
			}

			detail := database.PurchaseOrderDetails{
				PurchaseOrderID: po.ID,
				ProductID:       line.ProductID,
				WarrantyID:      line.WarrantyID,
				BuyingPrice:     line.BuyingPrice,
				Quantity:        line.Quantity,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
			total += line.BuyingPrice * float64(line.Quantity)
		}

		po.TotalAmount = total
		if err := tx.Save(&po).Error; err != nil {
			return err
		}

		tracking := database.PurchaseOrderTracking{
			PurchaseOrderID: po.ID,
			StatusUpdate:    status,
		}
		return tx.Create(&tracking).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase order"})
		}
		return
	}

	h.logger.LogCreate(c, "purchase_order", po.ID, map[string]interface{}{
		"supplier_id":  po.SupplierID,
		"total_amount": po.TotalAmount,
	})

	c.JSON(http.StatusCreated, gin.H{"data": po})
}

// Get returns a single purchase order
func (h *Handler) Get(c *gin.Context) {
	var po database.PurchaseOrder
	if err := h.db.Preload("Supplier").Preload("Employee").
		First(&po, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": po})
}

type UpdatePORequest struct {
	Status               *string    `json:"status"`
	TotalAmount          *float64   `json:"total_amount"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
}

// Update modifies a purchase order. The status change is committed
// before any supplier notification is attempted, so a mail failure
// never rolls back the delivery.
func (h *Handler) Update(c *gin.Context) {
	var po database.PurchaseOrder
	if err := h.db.First(&po, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
		return
	}

	var req UpdatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prevStatus := po.Status
	if req.Status != nil {
		po.Status = *req.Status
	}
	if req.TotalAmount != nil {
		po.TotalAmount = *req.TotalAmount
	}
	if req.ExpectedDeliveryDate != nil {
		po.ExpectedDeliveryDate = req.ExpectedDeliveryDate
	}

	statusChanged := po.Status != prevStatus
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&po).Error; err != nil {
			return err
		}
		if statusChanged {
			tracking := database.PurchaseOrderTracking{
				PurchaseOrderID: po.ID,
				StatusUpdate:    po.Status,
			}
			return tx.Create(&tracking).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update purchase order"})
		return
	}

	// Setting a delivered order to Delivered again must not resend
	if statusChanged && po.Status == database.PODelivered {
		notifySupplier(h.db, h.notifier, po.ID)
		h.db.First(&po, po.ID)
	}

	h.logger.LogUpdate(c, "purchase_order", po.ID,
		map[string]interface{}{"status": prevStatus},
		map[string]interface{}{"status": po.Status})

	c.JSON(http.StatusOK, gin.H{"data": po})
}

// Delete removes a purchase order with its details, payments and
// tracking history
func (h *Handler) Delete(c *gin.Context) {
	var po database.PurchaseOrder
	if err := h.db.First(&po, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.PurchaseOrder{}, po.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete purchase order"})
		return
	}

	h.logger.LogDelete(c, "purchase_order", po.ID, map[string]interface{}{
		"supplier_id": po.SupplierID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Purchase order deleted"})
}

type CreateDetailRequest struct {
	PurchaseOrderID uint    `json:"purchase_order_id" binding:"required"`
	ProductID       uint    `json:"product_id" binding:"required"`
	WarrantyID      *uint   `json:"warranty_id"`
	BuyingPrice     float64 `json:"buying_price" binding:"required"`
	Quantity        int     `json:"quantity" binding:"required,min=1"`
}

// ListDetails returns purchase order line items
func (h *Handler) ListDetails(c *gin.Context) {
	query := h.db.Preload("Product")
	if poID := c.Query("purchase_order_id"); poID != "" {
		query = query.Where("purchase_order_id = ?", poID)
	}

	var details []database.PurchaseOrderDetails
	if err := query.Find(&details).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch purchase order details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": details})
}

// CreateDetail adds a line to a purchase order and bumps its total
func (h *Handler) CreateDetail(c *gin.Context) {
	var req CreateDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var detail database.PurchaseOrderDetails
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var po database.PurchaseOrder
		if err := tx.First(&po, req.PurchaseOrderID).Error; err != nil {
			return err
		}
		var product database.Product
		if err := tx.First(&product, req.ProductID).Error; err != nil {
			return fmt.Errorf("product: %w", err)
		}

		detail = database.PurchaseOrderDetails{
			PurchaseOrderID: req.PurchaseOrderID,
			ProductID:       req.ProductID,
			WarrantyID:      req.WarrantyID,
			BuyingPrice:     req.BuyingPrice,
			Quantity:        req.Quantity,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return err
		}

		po.TotalAmount += req.BuyingPrice * float64(req.Quantity)
		return tx.Save(&po).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order or product not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create purchase order detail"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": detail})
}

// GetDetail returns a single purchase order line
func (h *Handler) GetDetail(c *gin.Context) {
	var detail database.PurchaseOrderDetails
	if err := h.db.Preload("Product").Preload("Warranty").
		First(&detail, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order detail not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// DeleteDetail removes a purchase order line and adjusts the total
func (h *Handler) DeleteDetail(c *gin.Context) {
	var detail database.PurchaseOrderDetails
	if err := h.db.First(&detail, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Purchase order detail not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var po database.PurchaseOrder
		if err := tx.First(&po, detail.PurchaseOrderID).Error; err != nil {
			return err
		}
		po.TotalAmount -= detail.BuyingPrice * float64(detail.Quantity)
		if po.TotalAmount < 0 {
			po.TotalAmount = 0
		}
		if err := tx.Save(&po).Error; err != nil {
			return err
		}
		return tx.Delete(&database.PurchaseOrderDetails{}, detail.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete purchase order detail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Purchase order detail deleted"})
}

type POPaymentRequest struct {
	PurchaseOrderID uint    `json:"purchase_order_id" binding:"required"`
	Amount          float64 `json:"amount" binding:"required"`
	PaymentMethod   string  `json:"payment_method" binding:"required"`
}

// ListPayments returns purchase order payments
func (h *Handler) ListPayments(c *gin.Context) {
	query := h.db.Order("payment_date DESC")
	if poID := c.Query("purchase_order_id"); poID != "" {
		query = query.Where("purchase_order_id = ?", poID)
	}

	var payments []database.PurchaseOrderPayment
	if err := query.Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

// CreatePayment records a payment to a supplier and the matching
// expense row
func (h *Handler) CreatePayment(c *gin.Context) {
	var req POPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payment database.PurchaseOrderPayment
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var po database.PurchaseOrder
		if err := tx.First(&po, req.PurchaseOrderID).Error; err != nil {
			return err
		}

		payment = database.PurchaseOrderPayment{
			PurchaseOrderID: req.PurchaseOrderID,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		expense := database.Expenses{
			PurchaseOrderPaymentID: payment.ID,
			ExpenseType:            "Purchase Order",
			ExpenseAmount:          req.Amount,
		}
		return tx.Create(&expense).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Purchase order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

// GetPayment returns a single purchase order payment
func (h *Handler) GetPayment(c *gin.Context) {
	var payment database.PurchaseOrderPayment
	if err := h.db.First(&payment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// DeletePayment removes a purchase order payment and its derived
// expense rows
func (h *Handler) DeletePayment(c *gin.Context) {
	var payment database.PurchaseOrderPayment
	if err := h.db.First(&payment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.PurchaseOrderPayment{}, payment.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}

type TrackingRequest struct {
	PurchaseOrderID uint   `json:"purchase_order_id" binding:"required"`
	StatusUpdate    string `json:"status_update" binding:"required"`
	Location        string `json:"location"`
}

// ListTracking returns the status history of purchase orders
func (h *Handler) ListTracking(c *gin.Context) {
	query := h.db.Order("update_date DESC")
	if poID := c.Query("purchase_order_id"); poID != "" {
		query = query.Where("purchase_order_id = ?", poID)
	}

	var entries []database.PurchaseOrderTracking
	if err := query.Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tracking entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// CreateTracking records a manual tracking entry
func (h *Handler) CreateTracking(c *gin.Context) {
	var req TrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var po database.PurchaseOrder
	if err := h.db.First(&po, req.PurchaseOrderID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Purchase order not found"})
		return
	}

	entry := database.PurchaseOrderTracking{
		PurchaseOrderID: req.PurchaseOrderID,
		StatusUpdate:    req.StatusUpdate,
		Location:        req.Location,
	}
	if err := h.db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tracking entry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

// GetTracking returns a single tracking entry
func (h *Handler) GetTracking(c *gin.Context) {
	var entry database.PurchaseOrderTracking
	if err := h.db.First(&entry, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tracking entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}
