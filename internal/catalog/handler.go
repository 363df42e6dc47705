package catalog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
)

// Handler serves product categories, products and product warranties
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

type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListCategories returns all product categories
func (h *Handler) ListCategories(c *gin.Context) {
	var categories []database.ProductCategory
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// CreateCategory adds a product category
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := database.ProductCategory{Name: req.Name}
	if err := h.db.Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": category})
}

// GetCategory returns a single category
func (h *Handler) GetCategory(c *gin.Context) {
	var category database.ProductCategory
	if err := h.db.First(&category, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": category})
}

// UpdateCategory renames a category
func (h *Handler) UpdateCategory(c *gin.Context) {
	var category database.ProductCategory
	if err := h.db.First(&category, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category.Name = req.Name
	if err := h.db.Save(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": category})
}

// DeleteCategory removes a category and its products
func (h *Handler) DeleteCategory(c *gin.Context) {
	var category database.ProductCategory
	if err := h.db.First(&category, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.ProductCategory{}, category.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

type CreateProductRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      string  `json:"description"`
	PurchasePrice    float64 `json:"purchase_price" binding:"required"`
	ReorderPoint     *int    `json:"reorder_point"`
	WarrantyDuration string  `json:"warranty_duration"`
	Model            string  `json:"model"`
	Brand            string  `json:"brand"`
	Status           string  `json:"status"`
	CategoryID       uint    `json:"category_id" binding:"required"`
}

// UpdateProductRequest allows partial updates; nil fields are untouched
type UpdateProductRequest struct {
	Name             *string  `json:"name"`
	Description      *string  `json:"description"`
	PurchasePrice    *float64 `json:"purchase_price"`
	ReorderPoint     *int     `json:"reorder_point"`
	WarrantyDuration *string  `json:"warranty_duration"`
	Model            *string  `json:"model"`
	Brand            *string  `json:"brand"`
	Status           *string  `json:"status"`
	CategoryID       *uint    `json:"category_id"`
}

// ListProducts returns all products, optionally filtered by category
func (h *Handler) ListProducts(c *gin.Context) {
	query := h.db.Preload("Category").Order("name ASC")
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var products []database.Product
	if err := query.Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

// CreateProduct adds a catalog entry
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var category database.ProductCategory
	if err := h.db.First(&category, req.CategoryID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
		return
	}

	product := database.Product{
		Name:             req.Name,
		Description:      req.Description,
		PurchasePrice:    req.PurchasePrice,
		WarrantyDuration: req.WarrantyDuration,
		Model:            req.Model,
		Brand:            req.Brand,
		Status:           "Active",
		CategoryID:       req.CategoryID,
	}
	if req.ReorderPoint != nil {
		product.ReorderPoint = *req.ReorderPoint
	} else {
		product.ReorderPoint = 5
	}
	if req.Status != "" {
		product.Status = req.Status
	}

	if err := h.db.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	h.logger.LogCreate(c, "product", product.ID, map[string]interface{}{
		"name":  product.Name,
		"brand": product.Brand,
		"model": product.Model,
	})

	c.JSON(http.StatusCreated, gin.H{"data": product})
}

// GetProduct returns a single product
func (h *Handler) GetProduct(c *gin.Context) {
	var product database.Product
	if err := h.db.Preload("Category").First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// UpdateProduct applies a full or partial update
func (h *Handler) UpdateProduct(c *gin.Context) {
	var product database.Product
	if err := h.db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldValues := map[string]interface{}{
		"name":           product.Name,
		"purchase_price": product.PurchasePrice,
		"status":         product.Status,
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.PurchasePrice != nil {
		product.PurchasePrice = *req.PurchasePrice
	}
	if req.ReorderPoint != nil {
		product.ReorderPoint = *req.ReorderPoint
	}
	if req.WarrantyDuration != nil {
		product.WarrantyDuration = *req.WarrantyDuration
	}
	if req.Model != nil {
		product.Model = *req.Model
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
	if req.CategoryID != nil {
		var category database.ProductCategory
		if err := h.db.First(&category, *req.CategoryID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category not found"})
			return
		}
		product.CategoryID = *req.CategoryID
	}

	if err := h.db.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	h.logger.LogUpdate(c, "product", product.ID, oldValues, map[string]interface{}{
		"name":           product.Name,
		"purchase_price": product.PurchasePrice,
		"status":         product.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// DeleteProduct removes a product, its inventory and PO lines
func (h *Handler) DeleteProduct(c *gin.Context) {
	var product database.Product
	if err := h.db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Product{}, product.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	h.logger.LogDelete(c, "product", product.ID, map[string]interface{}{
		"name": product.Name,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

type WarrantyRequest struct {
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	WarrantyUse int       `json:"warranty_use"`
}

// ListWarranties returns all product warranties
func (h *Handler) ListWarranties(c *gin.Context) {
	var warranties []database.ProductWarranty
	if err := h.db.Find(&warranties).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch warranties"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": warranties})
}

// CreateWarranty adds a product warranty
func (h *Handler) CreateWarranty(c *gin.Context) {
	var req WarrantyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.EndDate.After(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be after start_date"})
		return
	}

	warranty := database.ProductWarranty{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		WarrantyUse: req.WarrantyUse,
	}
	if err := h.db.Create(&warranty).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create warranty"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": warranty})
}

// GetWarranty returns a single product warranty
func (h *Handler) GetWarranty(c *gin.Context) {
	var warranty database.ProductWarranty
	if err := h.db.First(&warranty, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Warranty not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": warranty})
}

// UpdateWarranty modifies a product warranty
func (h *Handler) UpdateWarranty(c *gin.Context) {
	var warranty database.ProductWarranty
	if err := h.db.First(&warranty, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Warranty not found"})
		return
	}

	var req WarrantyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !req.EndDate.After(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be after start_date"})
		return
	}

	warranty.StartDate = req.StartDate
	warranty.EndDate = req.EndDate
	warranty.WarrantyUse = req.WarrantyUse

	if err := h.db.Save(&warranty).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update warranty"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": warranty})
}

// DeleteWarranty removes a product warranty
func (h *Handler) DeleteWarranty(c *gin.Context) {
	var warranty database.ProductWarranty
	if err := h.db.First(&warranty, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Warranty not found"})
		return
	}

	if err := h.db.Delete(&warranty).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete warranty"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Warranty deleted"})
}
