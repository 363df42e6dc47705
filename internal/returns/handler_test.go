package returns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pgmicro/inventory-backend/pkg/activitylog"
	"github.com/pgmicro/inventory-backend/pkg/database"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	// a second pooled connection would get its own empty in-memory DB
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw connection: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := activitylog.Migrate(db); err != nil {
		t.Fatalf("migrate activity logs: %v", err)
	}
	return db
}

// seedReturn creates an order with one 3-unit line against a 10-unit
// batch, plus a Requested return for it.
func seedReturn(t *testing.T, db *gorm.DB) (database.Returns, database.Inventory) {
	t.Helper()
	customer := database.Customer{Name: "Acme Trading", Email: "returns@acme.test"}
	employee := database.Employee{Name: "Dana Cruz", Role: "sales"}
	category := database.ProductCategory{Name: "Storage"}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := database.Product{Name: "1TB SSD", PurchasePrice: 3000, CategoryID: category.ID}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	inventory := database.Inventory{
		ProductID:         product.ID,
		QuantityReceived:  10,
		QuantityAvailable: 7,
		StockStatus:       database.StockInStock,
		SerialNumber:      "SSD-1",
		SellingPrice:      4500,
	}
	if err := db.Create(&inventory).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	order := database.Orders{
		CustomerID:  customer.ID,
		EmployeeID:  employee.ID,
		OrderStatus: database.OrderDelivered,
		TotalAmount: 3 * 4500,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	item := database.OrderItemDetails{
		OrderID:     order.ID,
		InventoryID: inventory.ID,
		Quantity:    3,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed order item: %v", err)
	}
	ret := database.Returns{
		OrderID: order.ID,
		Reason:  "Dead on arrival",
		Status:  database.ReturnRequested,
	}
	if err := db.Create(&ret).Error; err != nil {
		t.Fatalf("seed return: %v", err)
	}
	return ret, inventory
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/returns/:id", h.Update)
	r.POST("/refunds", h.CreateRefund)
	r.POST("/replacements", h.CreateReplacement)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{database.ReturnRequested, database.ReturnApproved, true},
		{database.ReturnRequested, database.ReturnRejected, true},
		{database.ReturnRequested, database.ReturnClosed, true},
		{database.ReturnApproved, database.ReturnClosed, true},
		{database.ReturnRequested, database.ReturnRefunded, false},
		{database.ReturnApproved, database.ReturnRequested, false},
		{database.ReturnRejected, database.ReturnApproved, false},
		{database.ReturnClosed, database.ReturnApproved, false},
		{database.ReturnRefunded, database.ReturnClosed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestApprovalRestoresStock(t *testing.T) {
	db := setupDB(t)
	ret, inventory := seedReturn(t, db)
	r := newRouter(NewHandler(db))

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/returns/%d", ret.ID), map[string]interface{}{
		"status": database.ReturnApproved,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: status = %d: %s", w.Code, w.Body.String())
	}

	var item database.Inventory
	db.First(&item, inventory.ID)
	if item.QuantityAvailable != 10 {
		t.Errorf("quantity_available = %d, want 10 after approval", item.QuantityAvailable)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	db := setupDB(t)
	ret, _ := seedReturn(t, db)
	r := newRouter(NewHandler(db))

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/returns/%d", ret.ID), map[string]interface{}{
		"status": database.ReturnRefunded,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}

	var got database.Returns
	db.First(&got, ret.ID)
	if got.Status != database.ReturnRequested {
		t.Errorf("status = %q, want unchanged Requested", got.Status)
	}
}

func TestRefundMovesReturnToRefunded(t *testing.T) {
	db := setupDB(t)
	ret, _ := seedReturn(t, db)
	r := newRouter(NewHandler(db))

	w := doJSON(t, r, http.MethodPost, "/refunds", map[string]interface{}{
		"return_id":     ret.ID,
		"refund_amount": 4500,
		"refund_method": "cash",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("refund: status = %d: %s", w.Code, w.Body.String())
	}

	var got database.Returns
	db.First(&got, ret.ID)
	if got.Status != database.ReturnRefunded {
		t.Errorf("status = %q, want Refunded", got.Status)
	}
}

func TestRefundAndReplacementMutuallyExclusive(t *testing.T) {
	db := setupDB(t)
	ret, _ := seedReturn(t, db)
	r := newRouter(NewHandler(db))

	w := doJSON(t, r, http.MethodPost, "/refunds", map[string]interface{}{
		"return_id":     ret.ID,
		"refund_amount": 4500,
		"refund_method": "cash",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("refund: status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/replacements", map[string]interface{}{
		"return_id": ret.ID,
		"new_item":  true,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("replacement after refund: status = %d, want 409: %s", w.Code, w.Body.String())
	}

	var replacements int64
	db.Model(&database.Replacement{}).Count(&replacements)
	if replacements != 0 {
		t.Errorf("replacement count = %d, want 0", replacements)
	}
}

func TestSettlementRejectedInTerminalState(t *testing.T) {
	db := setupDB(t)
	ret, _ := seedReturn(t, db)
	r := newRouter(NewHandler(db))

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/returns/%d", ret.ID), map[string]interface{}{
		"status": database.ReturnRejected,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reject: status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/refunds", map[string]interface{}{
		"return_id":     ret.ID,
		"refund_amount": 4500,
		"refund_method": "cash",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("refund on rejected return: status = %d, want 409", w.Code)
	}

	var refunds int64
	db.Model(&database.Refund{}).Count(&refunds)
	if refunds != 0 {
		t.Errorf("refund count = %d, want 0", refunds)
	}
}

func TestTransitionOutOfTerminalStateRejected(t *testing.T) {
	db := setupDB(t)
	ret, _ := seedReturn(t, db)
	r := newRouter(NewHandler(db))

	doJSON(t, r, http.MethodPut, fmt.Sprintf("/returns/%d", ret.ID), map[string]interface{}{
		"status": database.ReturnClosed,
	})

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/returns/%d", ret.ID), map[string]interface{}{
		"status": database.ReturnApproved,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}
