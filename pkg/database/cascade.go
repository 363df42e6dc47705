package database

import (
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// DeletePolicy says what happens to child rows when their parent is deleted
type DeletePolicy string

const (
	PolicyCascade DeletePolicy = "cascade"
	PolicyNullify DeletePolicy = "nullify"
)

// Relation declares one parent-child link and its delete policy
type Relation struct {
	Child  interface{}
	FK     string
	Policy DeletePolicy
}

// relations is the single declaration of ownership in the schema.
// Everything a parent exclusively owns cascades; weak references are
// nullified. DamageProduct never deletes or is deleted by the inventory
// item it points at beyond these rules.
var relations = map[reflect.Type][]Relation{
	typeOf(&Employee{}): {
		{Child: &Account{}, FK: "employee_id", Policy: PolicyCascade},
		{Child: &Orders{}, FK: "employee_id", Policy: PolicyCascade},
		{Child: &PurchaseOrder{}, FK: "employee_id", Policy: PolicyCascade},
	},
	typeOf(&Customer{}): {
		{Child: &Orders{}, FK: "customer_id", Policy: PolicyCascade},
	},
	typeOf(&Supplier{}): {
		{Child: &PurchaseOrder{}, FK: "supplier_id", Policy: PolicyCascade},
	},
	typeOf(&ProductCategory{}): {
		{Child: &Product{}, FK: "category_id", Policy: PolicyCascade},
	},
	typeOf(&Product{}): {
		{Child: &Inventory{}, FK: "product_id", Policy: PolicyCascade},
		{Child: &PurchaseOrderDetails{}, FK: "product_id", Policy: PolicyCascade},
	},
	typeOf(&Inventory{}): {
		{Child: &DamageProduct{}, FK: "inventory_id", Policy: PolicyCascade},
		{Child: &OrderItemDetails{}, FK: "inventory_id", Policy: PolicyCascade},
	},
	typeOf(&DamageProduct{}): {
		{Child: &Inventory{}, FK: "damage_product_id", Policy: PolicyNullify},
	},
	typeOf(&Orders{}): {
		{Child: &OrderItemDetails{}, FK: "order_id", Policy: PolicyCascade},
		{Child: &OrderPayment{}, FK: "order_id", Policy: PolicyCascade},
		{Child: &Returns{}, FK: "order_id", Policy: PolicyCascade},
	},
	typeOf(&OrderPayment{}): {
		{Child: &Income{}, FK: "order_payment_id", Policy: PolicyCascade},
	},
	typeOf(&Returns{}): {
		{Child: &Refund{}, FK: "return_id", Policy: PolicyCascade},
		{Child: &Replacement{}, FK: "return_id", Policy: PolicyCascade},
	},
	typeOf(&PurchaseOrder{}): {
		{Child: &PurchaseOrderDetails{}, FK: "purchase_order_id", Policy: PolicyCascade},
		{Child: &PurchaseOrderPayment{}, FK: "purchase_order_id", Policy: PolicyCascade},
		{Child: &PurchaseOrderTracking{}, FK: "purchase_order_id", Policy: PolicyCascade},
	},
	typeOf(&PurchaseOrderPayment{}): {
		{Child: &Expenses{}, FK: "purchase_order_payment_id", Policy: PolicyCascade},
	},
	typeOf(&Income{}): {
		{Child: &ReportModule{}, FK: "income_id", Policy: PolicyCascade},
	},
	typeOf(&Expenses{}): {
		{Child: &ReportModule{}, FK: "expense_id", Policy: PolicyCascade},
	},
}

func typeOf(model interface{}) reflect.Type {
	return reflect.TypeOf(model)
}

// DeleteCascade deletes the parent row and walks the declared relations
// depth-first, deleting or nullifying children per policy. Callers run
// it inside a transaction so a failure leaves no partial state.
func DeleteCascade(tx *gorm.DB, parent interface{}, id uint) error {
	for _, rel := range relations[typeOf(parent)] {
		switch rel.Policy {
		case PolicyNullify:
			if err := tx.Model(rel.Child).Where(rel.FK+" = ?", id).
				Update(rel.FK, nil).Error; err != nil {
				return fmt.Errorf("nullify %T.%s: %w", rel.Child, rel.FK, err)
			}
		case PolicyCascade:
			var childIDs []uint
			if err := tx.Model(rel.Child).Where(rel.FK+" = ?", id).
				Pluck("id", &childIDs).Error; err != nil {
				return fmt.Errorf("collect %T: %w", rel.Child, err)
			}
			for _, cid := range childIDs {
				if err := DeleteCascade(tx, rel.Child, cid); err != nil {
					return err
				}
			}
		}
	}
	return tx.Delete(parent, id).Error
}
