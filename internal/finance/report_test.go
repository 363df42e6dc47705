package finance

import (
	"bytes"
	"encoding/json"
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

// seedLedger creates one income (12000) and one expense (7000) with the
// order and purchase order chains behind them.
func seedLedger(t *testing.T, db *gorm.DB) (database.Income, database.Expenses) {
	t.Helper()
	customer := database.Customer{Name: "Acme Trading", Email: "billing@acme.test"}
	employee := database.Employee{Name: "Dana Cruz", Role: "sales"}
	supplier := database.Supplier{Name: "TechSource", Email: "sales@techsource.test"}
	for _, m := range []interface{}{&customer, &employee, &supplier} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	order := database.Orders{CustomerID: customer.ID, EmployeeID: employee.ID, TotalAmount: 12000}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	orderPayment := database.OrderPayment{OrderID: order.ID, Amount: 12000, PaymentMethod: "cash"}
	if err := db.Create(&orderPayment).Error; err != nil {
		t.Fatalf("seed order payment: %v", err)
	}
	income := database.Income{OrderPaymentID: orderPayment.ID, IncomeAmount: 12000, NetIncome: 12000}
	if err := db.Create(&income).Error; err != nil {
		t.Fatalf("seed income: %v", err)
	}

	po := database.PurchaseOrder{SupplierID: supplier.ID, EmployeeID: employee.ID, TotalAmount: 7000}
	if err := db.Create(&po).Error; err != nil {
		t.Fatalf("seed purchase order: %v", err)
	}
	poPayment := database.PurchaseOrderPayment{PurchaseOrderID: po.ID, Amount: 7000, PaymentMethod: "bank"}
	if err := db.Create(&poPayment).Error; err != nil {
		t.Fatalf("seed purchase order payment: %v", err)
	}
	expense := database.Expenses{PurchaseOrderPaymentID: poPayment.ID, ExpenseType: "Purchase Order", ExpenseAmount: 7000}
	if err := db.Create(&expense).Error; err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return income, expense
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/reports/generate", h.GenerateReport)
	return r
}

func generate(t *testing.T, r *gin.Engine, incomeID, expenseID uint) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"income_id":  incomeID,
		"expense_id": expenseID,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/reports/generate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateReportComputesNetProfit(t *testing.T) {
	db := setupDB(t)
	income, expense := seedLedger(t, db)
	r := newRouter(NewHandler(db))

	w := generate(t, r, income.ID, expense.ID)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data database.ReportModule `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.NetProfit != 5000 {
		t.Errorf("net_profit = %v, want 5000", resp.Data.NetProfit)
	}
	if resp.Data.TotalIncome != 12000 || resp.Data.TotalExpenses != 7000 {
		t.Errorf("totals = %v/%v, want 12000/7000", resp.Data.TotalIncome, resp.Data.TotalExpenses)
	}
}

func TestGenerateReportIsIdempotent(t *testing.T) {
	db := setupDB(t)
	income, expense := seedLedger(t, db)
	r := newRouter(NewHandler(db))

	first := generate(t, r, income.ID, expense.ID)
	if first.Code != http.StatusCreated {
		t.Fatalf("first: status = %d: %s", first.Code, first.Body.String())
	}

	// The source figures change afterwards; the report must not
	db.Model(&database.Income{}).Where("id = ?", income.ID).Update("income_amount", 99999)

	second := generate(t, r, income.ID, expense.ID)
	if second.Code != http.StatusOK {
		t.Fatalf("second: status = %d: %s", second.Code, second.Body.String())
	}

	var count int64
	db.Model(&database.ReportModule{}).Count(&count)
	if count != 1 {
		t.Fatalf("report count = %d, want 1", count)
	}

	var resp struct {
		Data database.ReportModule `json:"data"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.NetProfit != 5000 {
		t.Errorf("net_profit = %v, want the original 5000", resp.Data.NetProfit)
	}
}

func TestGenerateReportUnknownSources(t *testing.T) {
	db := setupDB(t)
	seedLedger(t, db)
	r := newRouter(NewHandler(db))

	w := generate(t, r, 999, 999)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}
