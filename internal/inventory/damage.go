package inventory

import (
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/database"
)

// OverReportPolicy decides what happens when a damage report exceeds the
// quantity still available.
type OverReportPolicy string

const (
	// PolicyClamp floors quantity_available at zero and flags the loss
	PolicyClamp OverReportPolicy = "clamp"
	// PolicyReject refuses the report entirely
	PolicyReject OverReportPolicy = "reject"
)

// ErrOverReported is returned under PolicyReject when quantity_damaged
// exceeds quantity_available.
var ErrOverReported = errors.New("quantity damaged exceeds quantity available")

// PolicyFromEnv reads DAMAGE_OVERREPORT_POLICY, defaulting to clamp
// (the historical behavior).
func PolicyFromEnv() OverReportPolicy {
	if os.Getenv("DAMAGE_OVERREPORT_POLICY") == string(PolicyReject) {
		return PolicyReject
	}
	return PolicyClamp
}

// ReportDamage files a damage report against an inventory item and
// applies the stock adjustment, all inside the caller's transaction:
// either both rows persist or neither does. The adjustment happens
// exactly once, at creation. Returns the created report and whether the
// decrement was clamped at zero.
func ReportDamage(tx *gorm.DB, inventoryID uint, damageType string, quantityDamaged int, policy OverReportPolicy) (*database.DamageProduct, bool, error) {
	if quantityDamaged < 0 {
		return nil, false, fmt.Errorf("quantity_damaged must not be negative")
	}

	var item database.Inventory
	if err := database.LockForUpdate(tx).First(&item, inventoryID).Error; err != nil {
		return nil, false, err
	}

	clamped := quantityDamaged > item.QuantityAvailable
	if clamped && policy == PolicyReject {
		return nil, false, ErrOverReported
	}

	report := database.DamageProduct{
		InventoryID:     item.ID,
		DamageType:      damageType,
		QuantityDamaged: quantityDamaged,
	}
	if err := tx.Create(&report).Error; err != nil {
		return nil, false, err
	}

	item.QuantityAvailable -= quantityDamaged
	if item.QuantityAvailable < 0 {
		item.QuantityAvailable = 0
	}
	item.DamageProductID = &report.ID
	item.StockStatus = database.StockDamaged
	if err := tx.Save(&item).Error; err != nil {
		return nil, false, err
	}

	return &report, clamped, nil
}
