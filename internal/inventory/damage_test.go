package inventory

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

func seedInventory(t *testing.T, db *gorm.DB, received int) database.Inventory {
	t.Helper()
	category := database.ProductCategory{Name: "Peripherals"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := database.Product{
		Name:          "Wireless Mouse",
		PurchasePrice: 450,
		CategoryID:    category.ID,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	item := database.Inventory{
		ProductID:         product.ID,
		QuantityReceived:  received,
		QuantityAvailable: received,
		StockStatus:       database.StockInStock,
		SerialNumber:      fmt.Sprintf("SN-%d-%d", product.ID, received),
		SellingPrice:      650,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return item
}

func TestReportDamageDecrementsStock(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 5)

	var report *database.DamageProduct
	var clamped bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		report, clamped, txErr = ReportDamage(tx, item.ID, "Physical", 3, PolicyClamp)
		return txErr
	})
	if err != nil {
		t.Fatalf("report damage: %v", err)
	}
	if clamped {
		t.Error("expected no clamping for an in-range report")
	}

	var got database.Inventory
	if err := db.First(&got, item.ID).Error; err != nil {
		t.Fatalf("reload inventory: %v", err)
	}
	if got.QuantityAvailable != 2 {
		t.Errorf("quantity_available = %d, want 2", got.QuantityAvailable)
	}
	if got.StockStatus != database.StockDamaged {
		t.Errorf("stock_status = %q, want %q", got.StockStatus, database.StockDamaged)
	}
	if got.DamageProductID == nil || *got.DamageProductID != report.ID {
		t.Error("inventory does not reference the damage report")
	}
}

func TestReportDamageClampsAtZero(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 5)

	var clamped bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		_, clamped, txErr = ReportDamage(tx, item.ID, "Water", 10, PolicyClamp)
		return txErr
	})
	if err != nil {
		t.Fatalf("report damage: %v", err)
	}
	if !clamped {
		t.Error("expected the over-report to be flagged as clamped")
	}

	var got database.Inventory
	db.First(&got, item.ID)
	if got.QuantityAvailable != 0 {
		t.Errorf("quantity_available = %d, want 0", got.QuantityAvailable)
	}
}

func TestReportDamageRejectPolicy(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, txErr := ReportDamage(tx, item.ID, "Water", 10, PolicyReject)
		return txErr
	})
	if err != ErrOverReported {
		t.Fatalf("err = %v, want ErrOverReported", err)
	}

	var count int64
	db.Model(&database.DamageProduct{}).Count(&count)
	if count != 0 {
		t.Errorf("damage report count = %d, want 0 after rejection", count)
	}

	var got database.Inventory
	db.First(&got, item.ID)
	if got.QuantityAvailable != 5 {
		t.Errorf("quantity_available = %d, want 5 unchanged", got.QuantityAvailable)
	}
}

func TestReportDamageNegativeQuantity(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, txErr := ReportDamage(tx, item.ID, "Physical", -1, PolicyClamp)
		return txErr
	})
	if err == nil {
		t.Fatal("expected an error for a negative quantity")
	}
}

func newDamageRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/damage-reports", h.CreateDamageReport)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateDamageReportWarnsOnClamp(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 2)

	h := &Handler{db: db, logger: activitylog.NewLogger(db), policy: PolicyClamp}
	r := newDamageRouter(h)

	qty := 10
	w := postJSON(t, r, "/damage-reports", map[string]interface{}{
		"inventory_id":     item.ID,
		"damage_type":      "Shipping",
		"quantity_damaged": qty,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["warning"]; !ok {
		t.Error("expected a warning field on a clamped report")
	}
}

func TestCreateDamageReportRejected(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 2)

	h := &Handler{db: db, logger: activitylog.NewLogger(db), policy: PolicyReject}
	r := newDamageRouter(h)

	w := postJSON(t, r, "/damage-reports", map[string]interface{}{
		"inventory_id":     item.ID,
		"damage_type":      "Shipping",
		"quantity_damaged": 10,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&database.DamageProduct{}).Count(&count)
	if count != 0 {
		t.Errorf("damage report count = %d, want 0", count)
	}
}

func TestUpdateRejectsManualDamagedStatus(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 5)

	h := &Handler{db: db, logger: activitylog.NewLogger(db), policy: PolicyClamp}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/inventory/:id", h.Update)

	put := func(id uint, status string) *httptest.ResponseRecorder {
		payload, err := json.Marshal(map[string]interface{}{"stock_status": status})
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/inventory/%d", id), bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Only damage reports may mark an item Damaged
	if w := put(item.ID, database.StockDamaged); w.Code != http.StatusConflict {
		t.Fatalf("set damaged: status = %d, want 409: %s", w.Code, w.Body.String())
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, txErr := ReportDamage(tx, item.ID, "Physical", 2, PolicyClamp)
		return txErr
	})
	if err != nil {
		t.Fatalf("report damage: %v", err)
	}

	// Nor may a damaged item be flipped back while it still references
	// its report
	if w := put(item.ID, database.StockInStock); w.Code != http.StatusConflict {
		t.Fatalf("clear damaged: status = %d, want 409: %s", w.Code, w.Body.String())
	}

	var got database.Inventory
	db.First(&got, item.ID)
	if got.StockStatus != database.StockDamaged {
		t.Errorf("stock_status = %q, want %q", got.StockStatus, database.StockDamaged)
	}
	if got.DamageProductID == nil {
		t.Error("damage report reference was cleared")
	}
}

func TestCreateDamageReportZeroQuantity(t *testing.T) {
	db := setupDB(t)
	item := seedInventory(t, db, 2)

	h := &Handler{db: db, logger: activitylog.NewLogger(db), policy: PolicyClamp}
	r := newDamageRouter(h)

	w := postJSON(t, r, "/damage-reports", map[string]interface{}{
		"inventory_id":     item.ID,
		"damage_type":      "Cosmetic",
		"quantity_damaged": 0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var got database.Inventory
	db.First(&got, item.ID)
	if got.QuantityAvailable != 2 {
		t.Errorf("quantity_available = %d, want 2 unchanged", got.QuantityAvailable)
	}
}
