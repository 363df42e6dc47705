package purchaseorder

import (
	"bytes"
	"encoding/json"
	"errors"
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

type fakeNotifier struct {
	calls []string
	fail  bool
}

func (f *fakeNotifier) Notify(to, subject, body string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.calls = append(f.calls, to)
	return nil
}

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

func seedPO(t *testing.T, db *gorm.DB) database.PurchaseOrder {
	t.Helper()
	supplier := database.Supplier{Name: "TechSource", Email: "sales@techsource.test"}
	if err := db.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	employee := database.Employee{Name: "Dana Cruz", Role: "inventory"}
	if err := db.Create(&employee).Error; err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	category := database.ProductCategory{Name: "Laptops"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	product := database.Product{Name: "Ultrabook 14", Brand: "Lenar", Model: "UX14", PurchasePrice: 30000, CategoryID: category.ID}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	po := database.PurchaseOrder{
		SupplierID:  supplier.ID,
		EmployeeID:  employee.ID,
		Status:      database.POOrdered,
		TotalAmount: 5 * 30000,
	}
	if err := db.Create(&po).Error; err != nil {
		t.Fatalf("seed purchase order: %v", err)
	}
	detail := database.PurchaseOrderDetails{
		PurchaseOrderID: po.ID,
		ProductID:       product.ID,
		BuyingPrice:     30000,
		Quantity:        5,
	}
	if err := db.Create(&detail).Error; err != nil {
		t.Fatalf("seed purchase order detail: %v", err)
	}
	return po
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/purchase-orders", h.Create)
	r.PUT("/purchase-orders/:id", h.Update)
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

func markDelivered(t *testing.T, r *gin.Engine, poID uint) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, r, http.MethodPut, fmt.Sprintf("/purchase-orders/%d", poID), map[string]interface{}{
		"status": database.PODelivered,
	})
}

func TestDeliveryNotifiesSupplierOnce(t *testing.T) {
	db := setupDB(t)
	po := seedPO(t, db)
	notifier := &fakeNotifier{}
	r := newRouter(NewHandler(db, notifier))

	if w := markDelivered(t, r, po.ID); w.Code != http.StatusOK {
		t.Fatalf("deliver: status = %d: %s", w.Code, w.Body.String())
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("notification count = %d, want 1", len(notifier.calls))
	}
	if notifier.calls[0] != "sales@techsource.test" {
		t.Errorf("notified %q, want the supplier address", notifier.calls[0])
	}

	var got database.PurchaseOrder
	db.First(&got, po.ID)
	if !got.EmailSent {
		t.Error("email_sent not recorded after a successful send")
	}
	if got.EmailSentDate == nil {
		t.Error("email_sent_date not recorded")
	}

	// Marking a delivered order delivered again must not resend
	if w := markDelivered(t, r, po.ID); w.Code != http.StatusOK {
		t.Fatalf("repeat deliver: status = %d", w.Code)
	}
	if len(notifier.calls) != 1 {
		t.Errorf("notification count = %d after repeat, want 1", len(notifier.calls))
	}
}

func TestDeliveryRecordsTracking(t *testing.T) {
	db := setupDB(t)
	po := seedPO(t, db)
	r := newRouter(NewHandler(db, &fakeNotifier{}))

	markDelivered(t, r, po.ID)

	var entries []database.PurchaseOrderTracking
	db.Where("purchase_order_id = ?", po.ID).Find(&entries)
	if len(entries) != 1 {
		t.Fatalf("tracking entries = %d, want 1", len(entries))
	}
	if entries[0].StatusUpdate != database.PODelivered {
		t.Errorf("status_update = %q, want Delivered", entries[0].StatusUpdate)
	}
}

func TestDeliveryPersistsDespiteNotificationFailure(t *testing.T) {
	db := setupDB(t)
	po := seedPO(t, db)
	notifier := &fakeNotifier{fail: true}
	r := newRouter(NewHandler(db, notifier))

	if w := markDelivered(t, r, po.ID); w.Code != http.StatusOK {
		t.Fatalf("deliver: status = %d: %s", w.Code, w.Body.String())
	}

	var got database.PurchaseOrder
	db.First(&got, po.ID)
	if got.Status != database.PODelivered {
		t.Errorf("status = %q, want Delivered despite the mail failure", got.Status)
	}
	if got.EmailSent {
		t.Error("email_sent must stay false after a failed send")
	}
}

func TestSchedulerRetriesFailedNotifications(t *testing.T) {
	db := setupDB(t)
	po := seedPO(t, db)
	notifier := &fakeNotifier{fail: true}
	r := newRouter(NewHandler(db, notifier))

	markDelivered(t, r, po.ID)

	// The outage ends; the next sweep picks the order up
	notifier.fail = false
	NewScheduler(db, notifier).Run()

	if len(notifier.calls) != 1 {
		t.Fatalf("notification count = %d, want 1", len(notifier.calls))
	}

	var got database.PurchaseOrder
	db.First(&got, po.ID)
	if !got.EmailSent {
		t.Error("email_sent not recorded after the retry")
	}

	// A later sweep finds nothing to do
	NewScheduler(db, notifier).Run()
	if len(notifier.calls) != 1 {
		t.Errorf("notification count = %d after second sweep, want 1", len(notifier.calls))
	}
}

func TestCreateRejectsDeliveredStatus(t *testing.T) {
	db := setupDB(t)
	po := seedPO(t, db)
	r := newRouter(NewHandler(db, &fakeNotifier{}))

	w := doJSON(t, r, http.MethodPost, "/purchase-orders", map[string]interface{}{
		"supplier_id": po.SupplierID,
		"employee_id": po.EmployeeID,
		"status":      database.PODelivered,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCreateComputesTotal(t *testing.T) {
	db := setupDB(t)
	po := seedPO(t, db)
	r := newRouter(NewHandler(db, &fakeNotifier{}))

	var detail database.PurchaseOrderDetails
	db.Where("purchase_order_id = ?", po.ID).First(&detail)

	w := doJSON(t, r, http.MethodPost, "/purchase-orders", map[string]interface{}{
		"supplier_id": po.SupplierID,
		"employee_id": po.EmployeeID,
		"details": []map[string]interface{}{
			{"product_id": detail.ProductID, "buying_price": 1000, "quantity": 3},
			{"product_id": detail.ProductID, "buying_price": 500, "quantity": 2},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data database.PurchaseOrder `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.TotalAmount != 4000 {
		t.Errorf("total_amount = %v, want 4000", resp.Data.TotalAmount)
	}
}
