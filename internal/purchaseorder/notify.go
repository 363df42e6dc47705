package purchaseorder

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/database"
	"github.com/pgmicro/inventory-backend/pkg/email"
)

// buildDeliveryNotice formats the supplier notification for a finalized
// purchase order.
func buildDeliveryNotice(db *gorm.DB, po *database.PurchaseOrder, supplier *database.Supplier) (subject, body string) {
	subject = fmt.Sprintf("Purchase Order #%d Finalized", po.ID)

	var details []database.PurchaseOrderDetails
	db.Where("purchase_order_id = ?", po.ID).Preload("Product").Find(&details)

	var lines []string
	for _, d := range details {
		name := fmt.Sprintf("product #%d", d.ProductID)
		if d.Product != nil {
			name = strings.TrimSpace(d.Product.Brand + " " + d.Product.Model)
			if name == "" {
				name = d.Product.Name
			}
		}
		lines = append(lines, fmt.Sprintf("%s x %d", name, d.Quantity))
	}

	body = fmt.Sprintf(
		"To %s,\n\n"+
			"A purchase order has been finalized.\n"+
			"PO ID: %d\n"+
			"Date: %s\n"+
			"Total Amount: %.2f\n\n"+
			"Items:\n%s\n\n"+
			"Please prepare the items for delivery.\n\n"+
			"Regards,\nPG Micro World",
		supplier.Name,
		po.ID,
		po.PurchaseOrderDate.Format("2006-01-02"),
		po.TotalAmount,
		strings.Join(lines, "\n"),
	)
	return subject, body
}

// notifySupplier sends the delivery notice and, only on success, flips
// email_sent. The status change itself is already durable by the time
// this runs; a failure here is logged and left for the retry job.
func notifySupplier(db *gorm.DB, notifier email.Notifier, poID uint) {
	var po database.PurchaseOrder
	if err := db.Preload("Supplier").First(&po, poID).Error; err != nil {
		log.Printf("purchase order %d: load for notification: %v", poID, err)
		return
	}
	if po.EmailSent || po.Supplier == nil {
		return
	}

	subject, body := buildDeliveryNotice(db, &po, po.Supplier)
	if err := notifier.Notify(po.Supplier.Email, subject, body); err != nil {
		log.Printf("purchase order %d: supplier notification failed, will retry: %v", po.ID, err)
		return
	}

	now := time.Now()
	if err := db.Model(&database.PurchaseOrder{}).Where("id = ?", po.ID).
		Updates(map[string]interface{}{
			"email_sent":      true,
			"email_sent_date": &now,
		}).Error; err != nil {
		log.Printf("purchase order %d: failed to record email_sent: %v", po.ID, err)
	}
}

// Scheduler retries supplier notifications for delivered purchase
// orders whose email has not gone out yet.
type Scheduler struct {
	db       *gorm.DB
	notifier email.Notifier
	interval time.Duration
}

// NewScheduler creates the notification retry job
func NewScheduler(db *gorm.DB, notifier email.Notifier) *Scheduler {
	return &Scheduler{db: db, notifier: notifier, interval: 10 * time.Minute}
}

// Start begins the retry loop
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		for range ticker.C {
			s.Run()
		}
	}()
	log.Printf("Purchase order notification scheduler started (every %s)", s.interval)
}

// Run sends pending notifications once
func (s *Scheduler) Run() {
	var pending []database.PurchaseOrder
	if err := s.db.Where("status = ? AND email_sent = ?", database.PODelivered, false).
		Find(&pending).Error; err != nil {
		log.Printf("notification scheduler: %v", err)
		return
	}

	for _, po := range pending {
		notifySupplier(s.db, s.notifier, po.ID)
	}
}
