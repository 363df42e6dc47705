package inventory

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
)

type Handler struct {
	db     *gorm.DB
	logger *activitylog.Logger
	policy OverReportPolicy
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		db:     db,
		logger: activitylog.NewLogger(db),
		policy: PolicyFromEnv(),
	}
}

type CreateInventoryRequest struct {
	ProductID        uint    `json:"product_id" binding:"required"`
	QuantityReceived int     `json:"quantity_received" binding:"required,min=1"`
	Location         string  `json:"location"`
	SerialNumber     string  `json:"serial_number" binding:"required"`
	OldItem          bool    `json:"old_item"`
	SellingPrice     float64 `json:"selling_price" binding:"required"`
}

type UpdateInventoryRequest struct {
	Location     *string  `json:"location"`
	StockStatus  *string  `json:"stock_status"`
	OldItem      *bool    `json:"old_item"`
	SellingPrice *float64 `json:"selling_price"`
}

// List returns all inventory items, optionally filtered by product or status
func (h *Handler) List(c *gin.Context) {
	query := h.db.Preload("Product").Order("date_received DESC")
	if productID := c.Query("product_id"); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if status := c.Query("stock_status"); status != "" {
		query = query.Where("stock_status = ?", status)
	}

	var items []database.Inventory
	if err := query.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// ListDamaged returns inventory items with stock status "Damaged"
func (h *Handler) ListDamaged(c *gin.Context) {
	var items []database.Inventory
	if err := h.db.Where("stock_status = ?", database.StockDamaged).
		Preload("Product").
		Preload("DamageProduct").
		Order("date_received DESC").
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch damaged inventory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// Create receives a new batch into stock
func (h *Handler) Create(c *gin.Context) {
	var req CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var product database.Product
	if err := h.db.First(&product, req.ProductID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product not found"})
		return
	}

	item := database.Inventory{
		ProductID:         req.ProductID,
		QuantityReceived:  req.QuantityReceived,
		QuantityAvailable: req.QuantityReceived,
		StockStatus:       database.StockInStock,
		Location:          req.Location,
		SerialNumber:      req.SerialNumber,
		OldItem:           req.OldItem,
		SellingPrice:      req.SellingPrice,
	}

	if err := h.db.Create(&item).Error; err != nil {
		if field, ok := database.UniqueViolation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already in use", "field": field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create inventory item"})
		return
	}

	h.logger.LogCreate(c, "inventory", item.ID, map[string]interface{}{
		"serial_number":     item.SerialNumber,
		"quantity_received": item.QuantityReceived,
	})

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

// Get returns a single inventory item
func (h *Handler) Get(c *gin.Context) {
	var item database.Inventory
	if err := h.db.Preload("Product").Preload("DamageProduct").
		First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// Update modifies descriptive fields of an inventory item. Quantities
// are never edited here: quantity_available moves only through damage
// reports, order items and reversals.
func (h *Handler) Update(c *gin.Context) {
	var item database.Inventory
	if err := h.db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		return
	}

	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.StockStatus != nil && *req.StockStatus != item.StockStatus {
		// The Damaged status is tied to a damage report. Moving an item
		// into or out of it by hand would detach it from that report.
		if *req.StockStatus == database.StockDamaged || item.StockStatus == database.StockDamaged {
			c.JSON(http.StatusConflict, gin.H{"error": "Stock status Damaged is set by damage reports"})
			return
		}
		item.StockStatus = *req.StockStatus
	}
	if req.OldItem != nil {
		item.OldItem = *req.OldItem
	}
	if req.SellingPrice != nil {
		item.SellingPrice = *req.SellingPrice
	}

	if err := h.db.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inventory item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// Delete removes an inventory item and its damage reports
func (h *Handler) Delete(c *gin.Context) {
	var item database.Inventory
	if err := h.db.First(&item, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Inventory{}, item.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete inventory item"})
		return
	}

	h.logger.LogDelete(c, "inventory", item.ID, map[string]interface{}{
		"serial_number": item.SerialNumber,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item deleted"})
}

type DamageReportRequest struct {
	InventoryID     uint   `json:"inventory_id" binding:"required"`
	DamageType      string `json:"damage_type" binding:"required"`
	QuantityDamaged *int   `json:"quantity_damaged" binding:"required"`
}

// CreateDamageReport files a damage report and adjusts stock atomically
func (h *Handler) CreateDamageReport(c *gin.Context) {
	var req DamageReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.QuantityDamaged < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity_damaged must not be negative"})
		return
	}

	var report *database.DamageProduct
	var clamped bool
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		report, clamped, txErr = ReportDamage(tx, req.InventoryID, req.DamageType, *req.QuantityDamaged, h.policy)
		return txErr
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Inventory item not found"})
		case errors.Is(err, ErrOverReported):
			c.JSON(http.StatusConflict, gin.H{"error": "Quantity damaged exceeds quantity available"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create damage report"})
		}
		return
	}

	h.logger.LogCreate(c, "damage_product", report.ID, map[string]interface{}{
		"inventory_id":     report.InventoryID,
		"quantity_damaged": report.QuantityDamaged,
		"clamped":          clamped,
	})

	resp := gin.H{"data": report}
	if clamped {
		resp["warning"] = "quantity_damaged exceeded quantity_available; stock clamped at zero"
	}
	c.JSON(http.StatusCreated, resp)
}

// ListDamageReports returns all damage reports
func (h *Handler) ListDamageReports(c *gin.Context) {
	query := h.db.Preload("Inventory").Preload("Inventory.Product").Order("date_reported DESC")
	if inventoryID := c.Query("inventory_id"); inventoryID != "" {
		query = query.Where("inventory_id = ?", inventoryID)
	}

	var reports []database.DamageProduct
	if err := query.Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch damage reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reports})
}

// GetDamageReport returns a single damage report
func (h *Handler) GetDamageReport(c *gin.Context) {
	var report database.DamageProduct
	if err := h.db.Preload("Inventory").First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Damage report not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// UpdateDamageReport edits the damage type only; quantities are fixed
// at creation so the stock adjustment can never run twice.
func (h *Handler) UpdateDamageReport(c *gin.Context) {
	var report database.DamageProduct
	if err := h.db.First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Damage report not found"})
		return
	}

	var req struct {
		DamageType string `json:"damage_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report.DamageType = req.DamageType
	if err := h.db.Save(&report).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update damage report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// DeleteDamageReport removes a damage report. The stock adjustment is
// not reversed; the report is history, not a reservation.
func (h *Handler) DeleteDamageReport(c *gin.Context) {
	var report database.DamageProduct
	if err := h.db.First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Damage report not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.DamageProduct{}, report.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete damage report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Damage report deleted"})
}

type InventorySummary struct {
	TotalItems      int     `json:"total_items"`
	TotalUnits      int     `json:"total_units"`
	TotalStockValue float64 `json:"total_stock_value"`
	DamagedCount    int     `json:"damaged_count"`
	OutOfStockCount int     `json:"out_of_stock_count"`
}

// GetSummary returns inventory summary stats
func (h *Handler) GetSummary(c *gin.Context) {
	var summary InventorySummary

	var totalItems int64
	h.db.Model(&database.Inventory{}).Count(&totalItems)
	summary.TotalItems = int(totalItems)

	var units struct {
		Units int
		Value float64
	}
	h.db.Model(&database.Inventory{}).
		Select("COALESCE(SUM(quantity_available), 0) as units, COALESCE(SUM(quantity_available * selling_price), 0) as value").
		Scan(&units)
	summary.TotalUnits = units.Units
	summary.TotalStockValue = units.Value

	var damaged int64
	h.db.Model(&database.Inventory{}).
		Where("stock_status = ?", database.StockDamaged).
		Count(&damaged)
	summary.DamagedCount = int(damaged)

	var outOfStock int64
	h.db.Model(&database.Inventory{}).
		Where("quantity_available <= 0").
		Count(&outOfStock)
	summary.OutOfStockCount = int(outOfStock)

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

type ReorderAlert struct {
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Available    int    `json:"available"`
	ReorderPoint int    `json:"reorder_point"`
}

// GetAlerts returns products whose available stock fell to or below
// their reorder point.
func (h *Handler) GetAlerts(c *gin.Context) {
	var alerts []ReorderAlert
	h.db.Model(&database.Product{}).
		Select("products.id as product_id, products.name as product_name, products.brand, products.model, COALESCE(SUM(inventories.quantity_available), 0) as available, products.reorder_point").
		Joins("LEFT JOIN inventories ON inventories.product_id = products.id").
		Where("products.status = ?", "Active").
		Group("products.id, products.name, products.brand, products.model, products.reorder_point").
		Having("COALESCE(SUM(inventories.quantity_available), 0) <= products.reorder_point").
		Order("available ASC").
		Scan(&alerts)

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}
