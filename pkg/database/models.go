package database

import (
	"time"

	"gorm.io/gorm"
)

// Base model for all entities
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Employee represents a staff member
type Employee struct {
	BaseModel
	Name           string `gorm:"not null" json:"name"`
	Role           string `gorm:"not null" json:"role"` // admin, sales, inventory, logistics
	EmployeeStatus string `gorm:"default:'Active'" json:"employee_status"`
}

// Account holds login credentials for an employee
type Account struct {
	BaseModel
	EmployeeID    uint     `gorm:"not null" json:"employee_id"`
	Employee      Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Username      string   `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash  string   `json:"-"`
	Email         string   `gorm:"uniqueIndex;not null" json:"email"`
	AccountStatus string   `gorm:"default:'Active'" json:"account_status"`
}

// Customer represents a buyer
type Customer struct {
	BaseModel
	Name         string `gorm:"not null" json:"name"`
	CustomerType string `json:"customer_type"` // walk-in, corporate, reseller
	Address      string `json:"address"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
}

// Supplier represents a product source
type Supplier struct {
	BaseModel
	Name          string `gorm:"not null" json:"name"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
}

// ProductCategory groups products
type ProductCategory struct {
	BaseModel
	Name string `gorm:"not null" json:"name"`
}

// Product represents a catalog entry
type Product struct {
	BaseModel
	Name             string           `gorm:"not null" json:"name"`
	Description      string           `json:"description"`
	PurchasePrice    float64          `gorm:"not null" json:"purchase_price"`
	ReorderPoint     int              `gorm:"default:5" json:"reorder_point"`
	WarrantyDuration string           `json:"warranty_duration"`
	Model            string           `json:"model"`
	Brand            string           `json:"brand"`
	Status           string           `gorm:"default:'Active'" json:"status"`
	CategoryID       uint             `gorm:"not null" json:"category_id"`
	Category         *ProductCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// ProductWarranty covers stock bought from a supplier
type ProductWarranty struct {
	BaseModel
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	WarrantyUse int       `gorm:"default:0" json:"warranty_use"`
}

// Inventory stock statuses
const (
	StockInStock    = "In Stock"
	StockDamaged    = "Damaged"
	StockSold       = "Sold"
	StockOutOfStock = "Out of Stock"
)

// Inventory represents a received batch of a product.
// Invariant: 0 <= QuantityAvailable <= QuantityReceived.
type Inventory struct {
	BaseModel
	ProductID         uint           `gorm:"not null;index" json:"product_id"`
	Product           *Product       `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	DateReceived      time.Time      `gorm:"autoCreateTime" json:"date_received"`
	QuantityReceived  int            `gorm:"not null" json:"quantity_received"`
	QuantityAvailable int            `gorm:"not null" json:"quantity_available"`
	StockStatus       string         `gorm:"default:'In Stock'" json:"stock_status"`
	Location          string         `json:"location"`
	SerialNumber      string         `gorm:"uniqueIndex;not null" json:"serial_number"`
	OldItem           bool           `gorm:"default:false" json:"old_item"`
	SellingPrice      float64        `gorm:"not null" json:"selling_price"`
	DamageProductID   *uint          `json:"damage_product_id"`
	DamageProduct     *DamageProduct `gorm:"foreignKey:DamageProductID" json:"damage_product,omitempty"`
}

// DamageProduct records damage against an inventory item. Creating one
// is the only external mutation of the item's QuantityAvailable.
type DamageProduct struct {
	BaseModel
	InventoryID     uint       `gorm:"not null;index" json:"inventory_id"`
	Inventory       *Inventory `gorm:"foreignKey:InventoryID" json:"inventory,omitempty"`
	DamageType      string     `gorm:"not null" json:"damage_type"`
	QuantityDamaged int        `gorm:"not null" json:"quantity_damaged"`
	DateReported    time.Time  `gorm:"autoCreateTime" json:"date_reported"`
}

// Order statuses
const (
	OrderPending   = "Pending"
	OrderShipped   = "Shipped"
	OrderDelivered = "Delivered"
	OrderCancelled = "Cancelled"
)

// Orders represents a customer sale
type Orders struct {
	BaseModel
	CustomerID  uint               `gorm:"not null;index" json:"customer_id"`
	Customer    *Customer          `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	EmployeeID  uint               `gorm:"not null" json:"employee_id"`
	Employee    *Employee          `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	OrderDate   time.Time          `gorm:"autoCreateTime" json:"order_date"`
	OrderStatus string             `gorm:"default:'Pending'" json:"order_status"`
	TotalAmount float64            `gorm:"not null" json:"total_amount"`
	Items       []OrderItemDetails `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItemWarranty covers a sold item
type OrderItemWarranty struct {
	BaseModel
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	WarrantyUse int       `gorm:"default:0" json:"warranty_use"`
}

// OrderItemDetails is a line item of an order. StockRestored guards the
// one-time stock reversal on cancellation or return.
type OrderItemDetails struct {
	BaseModel
	OrderID       uint               `gorm:"not null;index" json:"order_id"`
	Order         *Orders            `gorm:"foreignKey:OrderID" json:"-"`
	InventoryID   uint               `gorm:"not null;index" json:"inventory_id"`
	Inventory     *Inventory         `gorm:"foreignKey:InventoryID" json:"inventory,omitempty"`
	WarrantyID    *uint              `json:"warranty_id"`
	Warranty      *OrderItemWarranty `gorm:"foreignKey:WarrantyID" json:"warranty,omitempty"`
	Quantity      int                `gorm:"not null" json:"quantity"`
	StockRestored bool               `gorm:"default:false" json:"-"`
}

// OrderPayment records money received against an order
type OrderPayment struct {
	BaseModel
	OrderID       uint      `gorm:"not null;index" json:"order_id"`
	Order         *Orders   `gorm:"foreignKey:OrderID" json:"-"`
	PaymentDate   time.Time `gorm:"autoCreateTime" json:"payment_date"`
	Amount        float64   `gorm:"not null" json:"amount"`
	PaymentMethod string    `gorm:"not null" json:"payment_method"`
}

// Return statuses. Rejected, Refunded, Replaced and Closed are terminal.
const (
	ReturnRequested = "Requested"
	ReturnApproved  = "Approved"
	ReturnRejected  = "Rejected"
	ReturnRefunded  = "Refunded"
	ReturnReplaced  = "Replaced"
	ReturnClosed    = "Closed"
)

// Returns represents a customer return request against an order
type Returns struct {
	BaseModel
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	Order      *Orders   `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ReturnDate time.Time `gorm:"autoCreateTime" json:"return_date"`
	Reason     string    `json:"reason"`
	Status     string    `gorm:"default:'Requested'" json:"status"`
}

// Refund settles a return in money. At most one of Refund/Replacement
// may exist per return.
type Refund struct {
	BaseModel
	ReturnID     uint      `gorm:"not null;uniqueIndex" json:"return_id"`
	Return       *Returns  `gorm:"foreignKey:ReturnID" json:"-"`
	RefundDate   time.Time `gorm:"autoCreateTime" json:"refund_date"`
	RefundAmount float64   `json:"refund_amount"`
	RefundMethod string    `json:"refund_method"`
}

// Replacement settles a return in kind
type Replacement struct {
	BaseModel
	ReturnID        uint      `gorm:"not null;uniqueIndex" json:"return_id"`
	Return          *Returns  `gorm:"foreignKey:ReturnID" json:"-"`
	ReplacementDate time.Time `gorm:"autoCreateTime" json:"replacement_date"`
	Status          string    `json:"status"`
	NewItem         bool      `json:"new_item"`
}

// Purchase order statuses
const (
	PODraft     = "Draft"
	POPending   = "Pending"
	POOrdered   = "Ordered"
	POShipped   = "Shipped"
	PODelivered = "Delivered"
	POCancelled = "Cancelled"
)

// PurchaseOrder represents an order placed with a supplier
type PurchaseOrder struct {
	BaseModel
	SupplierID           uint       `gorm:"not null;index" json:"supplier_id"`
	Supplier             *Supplier  `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	EmployeeID           uint       `gorm:"not null" json:"employee_id"`
	Employee             *Employee  `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	PurchaseOrderDate    time.Time  `gorm:"autoCreateTime" json:"purchase_order_date"`
	TotalAmount          float64    `gorm:"not null" json:"total_amount"`
	Status               string     `gorm:"default:'Pending'" json:"status"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	EmailSent            bool       `gorm:"default:false" json:"email_sent"`
	EmailSentDate        *time.Time `json:"email_sent_date"`
}

// PurchaseOrderDetails is a line item of a purchase order
type PurchaseOrderDetails struct {
	BaseModel
	PurchaseOrderID uint             `gorm:"not null;index" json:"purchase_order_id"`
	PurchaseOrder   *PurchaseOrder   `gorm:"foreignKey:PurchaseOrderID" json:"-"`
	ProductID       uint             `gorm:"not null" json:"product_id"`
	Product         *Product         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	WarrantyID      *uint            `json:"warranty_id"`
	Warranty        *ProductWarranty `gorm:"foreignKey:WarrantyID" json:"warranty,omitempty"`
	BuyingPrice     float64          `gorm:"not null" json:"buying_price"`
	Quantity        int              `gorm:"not null" json:"quantity"`
	Status          bool             `gorm:"default:false" json:"status"`
}

// PurchaseOrderPayment records money paid against a purchase order
type PurchaseOrderPayment struct {
	BaseModel
	PurchaseOrderID uint           `gorm:"not null;index" json:"purchase_order_id"`
	PurchaseOrder   *PurchaseOrder `gorm:"foreignKey:PurchaseOrderID" json:"-"`
	PaymentDate     time.Time      `gorm:"autoCreateTime" json:"payment_date"`
	Amount          float64        `gorm:"not null" json:"amount"`
	PaymentMethod   string         `gorm:"not null" json:"payment_method"`
}

// PurchaseOrderTracking records a status change of a purchase order
type PurchaseOrderTracking struct {
	BaseModel
	PurchaseOrderID uint           `gorm:"not null;index" json:"purchase_order_id"`
	PurchaseOrder   *PurchaseOrder `gorm:"foreignKey:PurchaseOrderID" json:"-"`
	StatusUpdate    string         `gorm:"not null" json:"status_update"`
	UpdateDate      time.Time      `gorm:"autoCreateTime" json:"update_date"`
	Location        string         `json:"location"`
}

// Expenses is a derived financial record for a purchase order payment
type Expenses struct {
	BaseModel
	PurchaseOrderPaymentID uint                  `gorm:"not null;index" json:"purchase_order_payment_id"`
	PurchaseOrderPayment   *PurchaseOrderPayment `gorm:"foreignKey:PurchaseOrderPaymentID" json:"purchase_order_payment,omitempty"`
	ExpenseDate            time.Time             `gorm:"autoCreateTime" json:"expense_date"`
	ExpenseType            string                `json:"expense_type"`
	ExpenseAmount          float64               `gorm:"not null" json:"expense_amount"`
}

// Income is a derived financial record for an order payment
type Income struct {
	BaseModel
	OrderPaymentID uint          `gorm:"not null;index" json:"order_payment_id"`
	OrderPayment   *OrderPayment `gorm:"foreignKey:OrderPaymentID" json:"order_payment,omitempty"`
	IncomeAmount   float64       `gorm:"not null" json:"income_amount"`
	NetIncome      float64       `json:"net_income"`
	Status         string        `gorm:"default:'Received'" json:"status"`
	PaymentMethod  string        `json:"payment_method"`
	DateReceived   time.Time     `gorm:"autoCreateTime" json:"date_received"`
}

// ReportModule aggregates one Income and one Expenses record.
// NetProfit is computed once at generation time, never on read.
type ReportModule struct {
	BaseModel
	IncomeID      uint      `gorm:"not null;uniqueIndex:idx_report_pair" json:"income_id"`
	Income        *Income   `gorm:"foreignKey:IncomeID" json:"income,omitempty"`
	ExpenseID     uint      `gorm:"not null;uniqueIndex:idx_report_pair" json:"expense_id"`
	Expense       *Expenses `gorm:"foreignKey:ExpenseID" json:"expense,omitempty"`
	DateGenerated time.Time `gorm:"autoCreateTime" json:"date_generated"`
	TotalIncome   float64   `gorm:"not null" json:"total_income"`
	TotalExpenses float64   `gorm:"not null" json:"total_expenses"`
	NetProfit     float64   `gorm:"not null" json:"net_profit"`
	Status        string    `gorm:"default:'Generated'" json:"status"`
}

// GoogleCredential stores the OAuth refresh token used by the Gmail sender
type GoogleCredential struct {
	BaseModel
	AccountID    *uint     `json:"account_id"`
	RefreshToken string    `gorm:"not null" json:"-"`
	Scope        string    `json:"scope"`
	ObtainedAt   time.Time `gorm:"autoCreateTime" json:"obtained_at"`
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Employee{},
		&Account{},
		&Customer{},
		&Supplier{},
		&ProductCategory{},
		&Product{},
		&ProductWarranty{},
		&Inventory{},
		&DamageProduct{},
		&Orders{},
		&OrderItemWarranty{},
		&OrderItemDetails{},
		&OrderPayment{},
		&Returns{},
		&Refund{},
		&Replacement{},
		&PurchaseOrder{},
		&PurchaseOrderDetails{},
		&PurchaseOrderPayment{},
		&PurchaseOrderTracking{},
		&Expenses{},
		&Income{},
		&ReportModule{},
		&GoogleCredential{},
	)
}
