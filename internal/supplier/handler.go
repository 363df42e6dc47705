package supplier

import (
	"net/http"

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

type SupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email" binding:"required,email"`
}

// List returns all suppliers
func (h *Handler) List(c *gin.Context) {
	var suppliers []database.Supplier
	if err := h.db.Order("name ASC").Find(&suppliers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch suppliers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": suppliers})
}

// Create adds a new supplier
func (h *Handler) Create(c *gin.Context) {
	var req SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier := database.Supplier{
		Name:          req.Name,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		Email:         req.Email,
	}

	if err := h.db.Create(&supplier).Error; err != nil {
		if field, ok := database.UniqueViolation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already in use", "field": field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create supplier"})
		return
	}

	h.logger.LogCreate(c, "supplier", supplier.ID, map[string]interface{}{
		"name":  supplier.Name,
		"email": supplier.Email,
	})

	c.JSON(http.StatusCreated, gin.H{"data": supplier})
}

// Get returns a single supplier
func (h *Handler) Get(c *gin.Context) {
	var supplier database.Supplier
	if err := h.db.First(&supplier, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

// Update modifies a supplier
func (h *Handler) Update(c *gin.Context) {
	var supplier database.Supplier
	if err := h.db.First(&supplier, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
		return
	}

	var req SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier.Name = req.Name
	supplier.Address = req.Address
	supplier.ContactNumber = req.ContactNumber
	supplier.Email = req.Email

	if err := h.db.Save(&supplier).Error; err != nil {
		if field, ok := database.UniqueViolation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already in use", "field": field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update supplier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

// Delete removes a supplier and its purchase orders
func (h *Handler) Delete(c *gin.Context) {
	var supplier database.Supplier
	if err := h.db.First(&supplier, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Supplier{}, supplier.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete supplier"})
		return
	}

	h.logger.LogDelete(c, "supplier", supplier.ID, map[string]interface{}{
		"name": supplier.Name,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Supplier deleted"})
}
