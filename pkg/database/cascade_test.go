package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
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
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, models ...interface{}) {
	t.Helper()
	for _, m := range models {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("create %T: %v", m, err)
		}
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestDeleteOrderCascadesOwnedRows(t *testing.T) {
	db := testDB(t)

	customer := Customer{Name: "Acme Trading", Email: "a@acme.test"}
	employee := Employee{Name: "Dana Cruz", Role: "sales"}
	mustCreate(t, db, &customer, &employee)

	order := Orders{CustomerID: customer.ID, EmployeeID: employee.ID, TotalAmount: 100}
	mustCreate(t, db, &order)

	payment := OrderPayment{OrderID: order.ID, Amount: 100, PaymentMethod: "cash"}
	mustCreate(t, db, &payment)

	income := Income{OrderPaymentID: payment.ID, IncomeAmount: 100}
	mustCreate(t, db, &income)

	ret := Returns{OrderID: order.ID, Reason: "defective"}
	mustCreate(t, db, &ret)

	refund := Refund{ReturnID: ret.ID, RefundAmount: 100, RefundMethod: "cash"}
	mustCreate(t, db, &refund)

	err := db.Transaction(func(tx *gorm.DB) error {
		return DeleteCascade(tx, &Orders{}, order.ID)
	})
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}

	for _, m := range []interface{}{&Orders{}, &OrderPayment{}, &Income{}, &Returns{}, &Refund{}} {
		if n := count(t, db, m); n != 0 {
			t.Errorf("%T rows = %d, want 0", m, n)
		}
	}
	if n := count(t, db, &Customer{}); n != 1 {
		t.Errorf("customer rows = %d, want 1", n)
	}
}

func TestDeleteDamageReportNullifiesInventoryReference(t *testing.T) {
	db := testDB(t)

	category := ProductCategory{Name: "Parts"}
	mustCreate(t, db, &category)
	product := Product{Name: "PSU 650W", PurchasePrice: 2000, CategoryID: category.ID}
	mustCreate(t, db, &product)
	item := Inventory{
		ProductID:         product.ID,
		QuantityReceived:  4,
		QuantityAvailable: 4,
		SerialNumber:      "PSU-1",
		SellingPrice:      2800,
	}
	mustCreate(t, db, &item)

	report := DamageProduct{InventoryID: item.ID, DamageType: "Physical", QuantityDamaged: 1}
	mustCreate(t, db, &report)
	if err := db.Model(&item).Update("damage_product_id", report.ID).Error; err != nil {
		t.Fatalf("link damage report: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return DeleteCascade(tx, &DamageProduct{}, report.ID)
	})
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}

	var got Inventory
	if err := db.First(&got, item.ID).Error; err != nil {
		t.Fatalf("inventory row deleted, want it kept: %v", err)
	}
	if got.DamageProductID != nil {
		t.Errorf("damage_product_id = %v, want nil", *got.DamageProductID)
	}
}

func TestDeleteCustomerCascadesThroughOrders(t *testing.T) {
	db := testDB(t)

	customer := Customer{Name: "Acme Trading", Email: "a@acme.test"}
	employee := Employee{Name: "Dana Cruz", Role: "sales"}
	mustCreate(t, db, &customer, &employee)

	order := Orders{CustomerID: customer.ID, EmployeeID: employee.ID, TotalAmount: 50}
	mustCreate(t, db, &order)
	payment := OrderPayment{OrderID: order.ID, Amount: 50, PaymentMethod: "cash"}
	mustCreate(t, db, &payment)

	err := db.Transaction(func(tx *gorm.DB) error {
		return DeleteCascade(tx, &Customer{}, customer.ID)
	})
	if err != nil {
		t.Fatalf("delete cascade: %v", err)
	}

	for _, m := range []interface{}{&Customer{}, &Orders{}, &OrderPayment{}} {
		if n := count(t, db, m); n != 0 {
			t.Errorf("%T rows = %d, want 0", m, n)
		}
	}
	if n := count(t, db, &Employee{}); n != 1 {
		t.Errorf("employee rows = %d, want 1", n)
	}
}

func TestUniqueViolationMapping(t *testing.T) {
	db := testDB(t)

	first := Supplier{Name: "TechSource", Email: "dup@techsource.test"}
	mustCreate(t, db, &first)

	second := Supplier{Name: "Other", Email: "dup@techsource.test"}
	err := db.Create(&second).Error
	if err == nil {
		t.Fatal("expected a unique violation")
	}
	if _, ok := UniqueViolation(err); !ok {
		t.Errorf("UniqueViolation did not recognize %v", err)
	}
}
