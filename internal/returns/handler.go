package returns

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/internal/order"
	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
)

// ErrTerminalState is returned when a settlement or transition is
// attempted against a return that already reached a terminal status.
var ErrTerminalState = errors.New("return is in a terminal state")

// ErrSettled is returned when a refund or replacement already exists
// for the return.
var ErrSettled = errors.New("return already has a refund or replacement")

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

type CreateReturnRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

// List returns all return requests
func (h *Handler) List(c *gin.Context) {
	query := h.db.Preload("Order").Order("return_date DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var rets []database.Returns
	if err := query.Find(&rets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch returns"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rets})
}

// Create opens a return request against an order
func (h *Handler) Create(c *gin.Context) {
	var req CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ord database.Orders
	if err := h.db.First(&ord, req.OrderID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order not found"})
		return
	}

	ret := database.Returns{
		OrderID: req.OrderID,
		Reason:  req.Reason,
		Status:  database.ReturnRequested,
	}
	if err := h.db.Create(&ret).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create return"})
		return
	}

	h.logger.LogCreate(c, "return", ret.ID, map[string]interface{}{
		"order_id": ret.OrderID,
		"reason":   ret.Reason,
	})

	c.JSON(http.StatusCreated, gin.H{"data": ret})
}

// Get returns a single return request
func (h *Handler) Get(c *gin.Context) {
	var ret database.Returns
	if err := h.db.Preload("Order").First(&ret, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Return not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ret})
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// Update moves a return to a new status along the declared transition
// table. Approval restores the order's stock (once). Refunded and
// Replaced are not reachable here; they require their settlement
// records.
func (h *Handler) Update(c *gin.Context) {
	var ret database.Returns
	if err := h.db.First(&ret, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Return not found"})
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status == ret.Status {
		c.JSON(http.StatusOK, gin.H{"data": ret})
		return
	}
	if !CanTransition(ret.Status, req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Cannot transition return from %s to %s", ret.Status, req.Status),
		})
		return
	}

	previous := ret.Status
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if req.Status == database.ReturnApproved {
			if err := order.RestoreOrderStock(tx, ret.OrderID); err != nil {
				return err
			}
		}
		ret.Status = req.Status
		if req.Reason != "" {
			ret.Reason = req.Reason
		}
		return tx.Save(&ret).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update return"})
		return
	}

	h.logger.LogActivity(c, "transition", "return", &ret.ID, map[string]interface{}{
		"from": previous,
		"to":   ret.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": ret})
}

// Delete removes a return and its settlement records
func (h *Handler) Delete(c *gin.Context) {
	var ret database.Returns
	if err := h.db.First(&ret, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Return not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteCascade(tx, &database.Returns{}, ret.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete return"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Return deleted"})
}

// settle validates that the return can still be settled: non-terminal
// status and no existing refund or replacement.
func settle(tx *gorm.DB, returnID uint) (*database.Returns, error) {
	var ret database.Returns
	if err := database.LockForUpdate(tx).First(&ret, returnID).Error; err != nil {
		return nil, err
	}
	if IsTerminal(ret.Status) {
		return nil, ErrTerminalState
	}

	var refunds, replacements int64
	if err := tx.Model(&database.Refund{}).Where("return_id = ?", returnID).Count(&refunds).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&database.Replacement{}).Where("return_id = ?", returnID).Count(&replacements).Error; err != nil {
		return nil, err
	}
	if refunds > 0 || replacements > 0 {
		return nil, ErrSettled
	}
	return &ret, nil
}

func settlementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Return not found"})
	case errors.Is(err, ErrTerminalState):
		c.JSON(http.StatusConflict, gin.H{"error": "Return is in a terminal state"})
	case errors.Is(err, ErrSettled):
		c.JSON(http.StatusConflict, gin.H{"error": "Return already has a refund or replacement"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle return"})
	}
}

type RefundRequest struct {
	ReturnID     uint    `json:"return_id" binding:"required"`
	RefundAmount float64 `json:"refund_amount" binding:"required"`
	RefundMethod string  `json:"refund_method" binding:"required"`
}

// ListRefunds returns all refunds
func (h *Handler) ListRefunds(c *gin.Context) {
	var refunds []database.Refund
	if err := h.db.Order("refund_date DESC").Find(&refunds).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch refunds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": refunds})
}

// CreateRefund settles a return in money and moves it to Refunded
func (h *Handler) CreateRefund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var refund database.Refund
	err := h.db.Transaction(func(tx *gorm.DB) error {
		ret, err := settle(tx, req.ReturnID)
		if err != nil {
			return err
		}

		refund = database.Refund{
			ReturnID:     req.ReturnID,
			RefundAmount: req.RefundAmount,
			RefundMethod: req.RefundMethod,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}

		ret.Status = database.ReturnRefunded
		return tx.Save(ret).Error
	})
	if err != nil {
		settlementError(c, err)
		return
	}

	h.logger.LogCreate(c, "refund", refund.ID, map[string]interface{}{
		"return_id":     refund.ReturnID,
		"refund_amount": refund.RefundAmount,
	})

	c.JSON(http.StatusCreated, gin.H{"data": refund})
}

// GetRefund returns a single refund
func (h *Handler) GetRefund(c *gin.Context) {
	var refund database.Refund
	if err := h.db.First(&refund, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Refund not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": refund})
}

type ReplacementRequest struct {
	ReturnID uint   `json:"return_id" binding:"required"`
	Status   string `json:"status"`
	NewItem  bool   `json:"new_item"`
}

// ListReplacements returns all replacements
func (h *Handler) ListReplacements(c *gin.Context) {
	var replacements []database.Replacement
	if err := h.db.Order("replacement_date DESC").Find(&replacements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch replacements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": replacements})
}

// CreateReplacement settles a return in kind and moves it to Replaced
func (h *Handler) CreateReplacement(c *gin.Context) {
	var req ReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var replacement database.Replacement
	err := h.db.Transaction(func(tx *gorm.DB) error {
		ret, err := settle(tx, req.ReturnID)
		if err != nil {
			return err
		}

		status := req.Status
		if status == "" {
			status = "Issued"
		}
		replacement = database.Replacement{
			ReturnID: req.ReturnID,
			Status:   status,
			NewItem:  req.NewItem,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}

		ret.Status = database.ReturnReplaced
		return tx.Save(ret).Error
	})
	if err != nil {
		settlementError(c, err)
		return
	}

	h.logger.LogCreate(c, "replacement", replacement.ID, map[string]interface{}{
		"return_id": replacement.ReturnID,
	})

	c.JSON(http.StatusCreated, gin.H{"data": replacement})
}

// GetReplacement returns a single replacement
func (h *Handler) GetReplacement(c *gin.Context) {
	var replacement database.Replacement
	if err := h.db.First(&replacement, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Replacement not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": replacement})
}
