package employee

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

type EmployeeRequest struct {
	Name           string `json:"name" binding:"required"`
	Role           string `json:"role" binding:"required"`
	EmployeeStatus string `json:"employee_status"`
}

// List returns all employees
func (h *Handler) List(c *gin.Context) {
	var employees []database.Employee
	if err := h.db.Order("name ASC").Find(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch employees"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employees})
}

// Create adds a new employee
func (h *Handler) Create(c *gin.Context) {
	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := req.EmployeeStatus
	if status == "" {
		status = "Active"
	}

	employee := database.Employee{
		Name:           req.Name,
		Role:           req.Role,
		EmployeeStatus: status,
	}

	if err := h.db.Create(&employee).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create employee"})
		return
	}

	h.logger.LogCreate(c, "employee", employee.ID, map[string]interface{}{
		"name": employee.Name,
		"role": employee.Role,
	})

	c.JSON(http.StatusCreated, gin.H{"data": employee})
}

// Get returns a single employee
func (h *Handler) Get(c *gin.Context) {
	var employee database.Employee
	if err := h.db.First(&employee, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employee})
}

// Update modifies an employee
func (h *Handler) Update(c *gin.Context) {
	var employee database.Employee
	if err := h.db.First(&employee, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		return
	}

	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldValues := map[string]interface{}{
		"name": employee.Name,
		"role": employee.Role,
	}

	employee.Name = req.Name
	employee.Role = req.Role
	if req.EmployeeStatus != "" {
		employee.EmployeeStatus = req.EmployeeStatus
	}

	if err := h.db.Save(&employee).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update employee"})
		return
	}

	h.logger.LogUpdate(c, "employee", employee.ID, oldValues, map[string]interface{}{
		"name": employee.Name,
		"role": employee.Role,
	})

	c.JSON(http.StatusOK, gin.H{"data": employee})
}

// Delete removes an employee and everything it owns
func (h *Handler) Delete(c *gin.Context) {
	var employee database.Employee
	if err := h.db.First(&employee, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Employee{}, employee.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete employee"})
		return
	}

	h.logger.LogDelete(c, "employee", employee.ID, map[string]interface{}{
		"name": employee.Name,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}
