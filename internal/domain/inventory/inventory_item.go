package inventory

import (
	"time"

	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a store-scoped stock-keeping unit. It is the aggregate
// root for stock operations and the only shared mutable resource in this
// core. Quantity is tracked in the item's canonical unit and is never allowed
// to go negative; sale deductions bypass the aggregate and go through the
// repository's guarded decrement so concurrent terminals cannot lose updates.
type InventoryItem struct {
	shared.StoreAggregateRoot
	Name        string           `gorm:"type:varchar(120);not null;uniqueIndex:idx_inventory_item_store_name,priority:2"`
	Unit        valueobject.Unit `gorm:"type:json;not null"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	MinQuantity decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"` // Low-stock threshold for alerts
	UnitCost    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"` // Moving weighted average cost
	Active      bool             `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a new inventory item for a store
func NewInventoryItem(storeID uuid.UUID, name string, unit valueobject.Unit) (*InventoryItem, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if unit.IsZero() {
		return nil, shared.NewDomainError("INVALID_UNIT", "Canonical unit is required")
	}

	return &InventoryItem{
		StoreAggregateRoot: shared.NewStoreAggregateRoot(storeID),
		Name:               name,
		Unit:               unit,
		Quantity:           decimal.Zero,
		MinQuantity:        decimal.Zero,
		UnitCost:           decimal.Zero,
		Active:             true,
	}, nil
}

// Restock increases the on-hand quantity and recalculates unit cost using a
// moving weighted average.
func (i *InventoryItem) Restock(quantity, unitCost decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	// New Cost = (Old Quantity * Old Cost + New Quantity * New Cost) / (Old Quantity + New Quantity)
	if i.Quantity.IsZero() {
		i.UnitCost = unitCost.Round(4)
	} else {
		totalValue := i.Quantity.Mul(i.UnitCost).Add(quantity.Mul(unitCost))
		totalQuantity := i.Quantity.Add(quantity)
		i.UnitCost = totalValue.Div(totalQuantity).Round(4)
	}

	i.Quantity = i.Quantity.Add(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// Adjust sets the quantity to the physically counted value.
// The reason is recorded on the resulting ledger row for audit purposes.
func (i *InventoryItem) Adjust(actualQuantity decimal.Decimal, reason string) (difference decimal.Decimal, err error) {
	if actualQuantity.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Actual quantity cannot be negative")
	}
	if reason == "" {
		return decimal.Zero, shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}

	difference = actualQuantity.Sub(i.Quantity)
	i.Quantity = actualQuantity
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return difference, nil
}

// Deactivate takes the item out of circulation. Items are never deleted so
// the movement ledger keeps its referential history.
func (i *InventoryItem) Deactivate() {
	i.Active = false
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// CanFulfill returns true if the on-hand quantity covers the requested quantity
func (i *InventoryItem) CanFulfill(quantity decimal.Decimal) bool {
	return i.Quantity.GreaterThanOrEqual(quantity)
}

// IsBelowMinimum returns true if the quantity is at or below the low-stock threshold
func (i *InventoryItem) IsBelowMinimum() bool {
	return i.MinQuantity.GreaterThan(decimal.Zero) && i.Quantity.LessThanOrEqual(i.MinQuantity)
}

// TotalValue returns quantity * unit cost
func (i *InventoryItem) TotalValue() decimal.Decimal {
	return i.Quantity.Mul(i.UnitCost).Round(4)
}
