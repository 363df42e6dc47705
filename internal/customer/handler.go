package customer

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

type CustomerRequest struct {
	Name         string `json:"name" binding:"required"`
	CustomerType string `json:"customer_type"`
	Address      string `json:"address"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email" binding:"required,email"`
}

// List returns all customers, optionally filtered by a search term
func (h *Handler) List(c *gin.Context) {
	search := c.Query("search")

	query := h.db.Order("name ASC")
	if search != "" {
		query = query.Where("name ILIKE ? OR phone_number LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var customers []database.Customer
	if err := query.Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customers})
}

// Create adds a new customer
func (h *Handler) Create(c *gin.Context) {
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := database.Customer{
		Name:         req.Name,
		CustomerType: req.CustomerType,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
	}

	if err := h.db.Create(&customer).Error; err != nil {
		if field, ok := database.UniqueViolation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already in use", "field": field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create customer"})
		return
	}

	h.logger.LogCreate(c, "customer", customer.ID, map[string]interface{}{
		"name":  customer.Name,
		"email": customer.Email,
	})

	c.JSON(http.StatusCreated, gin.H{"data": customer})
}

// Get returns a single customer
func (h *Handler) Get(c *gin.Context) {
	var customer database.Customer
	if err := h.db.First(&customer, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

// Update modifies a customer
func (h *Handler) Update(c *gin.Context) {
	var customer database.Customer
	if err := h.db.First(&customer, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldValues := map[string]interface{}{
		"name":  customer.Name,
		"email": customer.Email,
	}

	customer.Name = req.Name
	customer.CustomerType = req.CustomerType
	customer.Address = req.Address
	customer.PhoneNumber = req.PhoneNumber
	customer.Email = req.Email

	if err := h.db.Save(&customer).Error; err != nil {
		if field, ok := database.UniqueViolation(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Already in use", "field": field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update customer"})
		return
	}

	h.logger.LogUpdate(c, "customer", customer.ID, oldValues, map[string]interface{}{
		"name":  customer.Name,
		"email": customer.Email,
	})

	c.JSON(http.StatusOK, gin.H{"data": customer})
}

// Delete removes a customer and its orders
func (h *Handler) Delete(c *gin.Context) {
	var customer database.Customer
	if err := h.db.First(&customer, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Customer{}, customer.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete customer"})
		return
	}

	h.logger.LogDelete(c, "customer", customer.ID, map[string]interface{}{
		"name": customer.Name,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}
