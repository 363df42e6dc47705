package finance

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
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		db:     db,
		logger: activitylog.NewLogger(db),
	}
}

type IncomeRequest struct {
	OrderPaymentID uint     `json:"order_payment_id" binding:"required"`
	IncomeAmount   float64  `json:"income_amount" binding:"required"`
	NetIncome      *float64 `json:"net_income"`
	Status         string   `json:"status"`
	PaymentMethod  string   `json:"payment_method"`
}

// ListIncome returns income records
func (h *Handler) ListIncome(c *gin.Context) {
	query := h.db.Preload("OrderPayment").Order("date_received DESC")
	if paymentID := c.Query("order_payment_id"); paymentID != "" {
		query = query.Where("order_payment_id = ?", paymentID)
	}

	var records []database.Income
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch income records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// CreateIncome records income against an order payment
func (h *Handler) CreateIncome(c *gin.Context) {
	var req IncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payment database.OrderPayment
	if err := h.db.First(&payment, req.OrderPaymentID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order payment not found"})
		return
	}

	income := database.Income{
		OrderPaymentID: req.OrderPaymentID,
		IncomeAmount:   req.IncomeAmount,
		NetIncome:      req.IncomeAmount,
		PaymentMethod:  req.PaymentMethod,
	}
	if req.NetIncome != nil {
		income.NetIncome = *req.NetIncome
	}
	if req.Status != "" {
		income.Status = req.Status
	}

	if err := h.db.Create(&income).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create income record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": income})
}

// GetIncome returns a single income record
func (h *Handler) GetIncome(c *gin.Context) {
	var income database.Income
	if err := h.db.Preload("OrderPayment").First(&income, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Income record not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": income})
}

// DeleteIncome removes an income record and any report built on it
func (h *Handler) DeleteIncome(c *gin.Context) {
	var income database.Income
	if err := h.db.First(&income, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Income record not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Income{}, income.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete income record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Income record deleted"})
}

type ExpenseRequest struct {
	PurchaseOrderPaymentID uint    `json:"purchase_order_payment_id" binding:"required"`
	ExpenseType            string  `json:"expense_type"`
	ExpenseAmount          float64 `json:"expense_amount" binding:"required"`
}

// ListExpenses returns expense records
func (h *Handler) ListExpenses(c *gin.Context) {
	query := h.db.Preload("PurchaseOrderPayment").Order("expense_date DESC")
	if paymentID := c.Query("purchase_order_payment_id"); paymentID != "" {
		query = query.Where("purchase_order_payment_id = ?", paymentID)
	}

	var records []database.Expenses
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expense records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// CreateExpense records an expense against a purchase order payment
func (h *Handler) CreateExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payment database.PurchaseOrderPayment
	if err := h.db.First(&payment, req.PurchaseOrderPaymentID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Purchase order payment not found"})
		return
	}

	expense := database.Expenses{
		PurchaseOrderPaymentID: req.PurchaseOrderPaymentID,
		ExpenseType:            req.ExpenseType,
		ExpenseAmount:          req.ExpenseAmount,
	}
	if err := h.db.Create(&expense).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": expense})
}

// GetExpense returns a single expense record
func (h *Handler) GetExpense(c *gin.Context) {
	var expense database.Expenses
	if err := h.db.Preload("PurchaseOrderPayment").First(&expense, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense record not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": expense})
}

// DeleteExpense removes an expense record and any report built on it
func (h *Handler) DeleteExpense(c *gin.Context) {
	var expense database.Expenses
	if err := h.db.First(&expense, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense record not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Expenses{}, expense.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense record deleted"})
}

type ReportRequest struct {
	IncomeID  uint `json:"income_id" binding:"required"`
	ExpenseID uint `json:"expense_id" binding:"required"`
}

// GenerateReport builds a profit report from one income and one
// expense record. Repeating the call for the same pair returns the
// existing report with its original figures.
func (h *Handler) GenerateReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing database.ReportModule
	if err := h.db.Where("income_id = ? AND expense_id = ?", req.IncomeID, req.ExpenseID).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusOK, gin.H{"data": existing})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}

	var report database.ReportModule
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var income database.Income
		if err := tx.First(&income, req.IncomeID).Error; err != nil {
			return err
		}
		var expense database.Expenses
		if err := tx.First(&expense, req.ExpenseID).Error; err != nil {
			return err
		}

		report = database.ReportModule{
			IncomeID:      req.IncomeID,
			ExpenseID:     req.ExpenseID,
			TotalIncome:   income.IncomeAmount,
			TotalExpenses: expense.ExpenseAmount,
			NetProfit:     income.IncomeAmount - expense.ExpenseAmount,
		}
		return tx.Create(&report).Error
	})
	if err != nil {
		if database.IsNotFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Income or expense record not found"})
			return
		}
		// A concurrent generation for the same pair loses the insert
		// race to the unique index; return the winner's report.
		if _, dup := database.UniqueViolation(err); dup {
			if err := h.db.Where("income_id = ? AND expense_id = ?", req.IncomeID, req.ExpenseID).
				First(&report).Error; err == nil {
				c.JSON(http.StatusOK, gin.H{"data": report})
				return
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
		return
	}

	h.logger.LogCreate(c, "report", report.ID, map[string]interface{}{
		"net_profit": report.NetProfit,
	})

	c.JSON(http.StatusCreated, gin.H{"data": report})
}

// ListReports returns generated reports
func (h *Handler) ListReports(c *gin.Context) {
	var reports []database.ReportModule
	if err := h.db.Preload("Income").Preload("Expense").
		Order("date_generated DESC").Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reports})
}

// GetReport returns a single report
func (h *Handler) GetReport(c *gin.Context) {
	var report database.ReportModule
	if err := h.db.Preload("Income").Preload("Expense").
		First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

// DeleteReport removes a generated report
func (h *Handler) DeleteReport(c *gin.Context) {
	var report database.ReportModule
	if err := h.db.First(&report, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	if err := h.db.Delete(&database.ReportModule{}, report.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		return
	}

	h.logger.LogDelete(c, "report", report.ID, nil)

	c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
}
