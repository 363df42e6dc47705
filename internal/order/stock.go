package order

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/database"
)

// ErrInsufficientStock is returned when an order line asks for more
// units than the inventory item has available.
var ErrInsufficientStock = errors.New("quantity exceeds quantity available")

// ReserveStock checks availability and decrements the inventory item by
// quantity inside the caller's transaction.
func ReserveStock(tx *gorm.DB, inventoryID uint, quantity int) (*database.Inventory, error) {
	var item database.Inventory
	if err := database.LockForUpdate(tx).First(&item, inventoryID).Error; err != nil {
		return nil, err
	}

	if quantity > item.QuantityAvailable {
		return nil, ErrInsufficientStock
	}

	item.QuantityAvailable -= quantity
	if item.QuantityAvailable == 0 && item.StockStatus == database.StockInStock {
		item.StockStatus = database.StockSold
	}
	if err := tx.Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// RestoreOrderStock gives each of the order's line quantities back to
// inventory, exactly once per line: lines already restored are skipped,
// so cancelling twice (or cancel after return approval) cannot double
// the stock. The restored amount never pushes an item past its
// quantity_received.
func RestoreOrderStock(tx *gorm.DB, orderID uint) error {
	var items []database.OrderItemDetails
	if err := tx.Where("order_id = ? AND stock_restored = ?", orderID, false).
		Find(&items).Error; err != nil {
		return err
	}

	for _, line := range items {
		var item database.Inventory
		if err := database.LockForUpdate(tx).First(&item, line.InventoryID).Error; err != nil {
			return err
		}

		item.QuantityAvailable += line.Quantity
		if item.QuantityAvailable > item.QuantityReceived {
			item.QuantityAvailable = item.QuantityReceived
		}
		if item.StockStatus == database.StockSold && item.QuantityAvailable > 0 {
			item.StockStatus = database.StockInStock
		}
		if err := tx.Save(&item).Error; err != nil {
			return err
		}

		if err := tx.Model(&database.OrderItemDetails{}).
			Where("id = ?", line.ID).
			Update("stock_restored", true).Error; err != nil {
			return err
		}
	}
	return nil
}
