package pos

import (
	"time"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleCommand is a sale to deduct inventory for. TransactionID is the POS
// transaction identifier and doubles as the idempotency key: submitting the
// same command twice deducts stock exactly once.
type SaleCommand struct {
	TransactionID string               `json:"transaction_id" binding:"required,min=1,max=64"`
	StoreID       uuid.UUID            `json:"-"`
	Lines         []inventory.SaleLine `json:"lines" binding:"required,min=1"`
	ActorID       *uuid.UUID           `json:"actor_id"`
	SaleAt        time.Time            `json:"sale_at"` // Original sale time; zero means now
}

// AvailabilityQuery is an advisory stock check for a cart before checkout
type AvailabilityQuery struct {
	StoreID uuid.UUID            `json:"-"`
	Lines   []inventory.SaleLine `json:"lines" binding:"required,min=1"`
}

// ShortfallItem names one inventory item the cart would overdraw
type ShortfallItem struct {
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	ItemName        string          `json:"item_name"`
	UnitCode        string          `json:"unit_code"`
	Required        decimal.Decimal `json:"required"`
	Available       decimal.Decimal `json:"available"`
	Shortfall       decimal.Decimal `json:"shortfall"`
}

// AvailabilityResponse is the advisory check result. Shortfalls are ordered
// largest shortfall first, then item name, so repeated runs are reproducible.
type AvailabilityResponse struct {
	Available         bool            `json:"available"`
	Shortfalls        []ShortfallItem `json:"shortfalls"`
	UntrackedProducts []uuid.UUID     `json:"untracked_products,omitempty"`
}

// AppliedMovement is one ledger row written by a committed sale
type AppliedMovement struct {
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	ItemName         string          `json:"item_name"`
	QuantityChange   decimal.Decimal `json:"quantity_change"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
}

// SaleResult reports what a commit actually did. AlreadyProcessed is true
// when the transaction had been fully applied before and nothing was deducted
// this time.
type SaleResult struct {
	TransactionID     string            `json:"transaction_id"`
	AlreadyProcessed  bool              `json:"already_processed"`
	Movements         []AppliedMovement `json:"movements"`
	UntrackedProducts []uuid.UUID       `json:"untracked_products,omitempty"`
}

// QueueEntryResponse represents a queued offline deduction in API responses
type QueueEntryResponse struct {
	TransactionID  string                 `json:"transaction_id"`
	StoreID        uuid.UUID              `json:"store_id"`
	Seq            int64                  `json:"seq"`
	Lines          []inventory.SaleLine   `json:"lines"`
	Status         inventory.ReplayStatus `json:"status"`
	ConflictReason string                 `json:"conflict_reason,omitempty"`
	SaleAt         time.Time              `json:"sale_at"`
	EnqueuedAt     time.Time              `json:"enqueued_at"`
	AppliedAt      *time.Time             `json:"applied_at,omitempty"`
}

// ToQueueEntryResponse converts a queued deduction to its response form
func ToQueueEntryResponse(q *inventory.QueuedDeduction) QueueEntryResponse {
	return QueueEntryResponse{
		TransactionID:  q.TransactionID,
		StoreID:        q.StoreID,
		Seq:            q.Seq,
		Lines:          q.Lines,
		Status:         q.Status,
		ConflictReason: q.ConflictReason,
		SaleAt:         q.SaleAt,
		EnqueuedAt:     q.EnqueuedAt,
		AppliedAt:      q.AppliedAt,
	}
}

// ReplayOutcome is the per-entry result of one replay pass
type ReplayOutcome struct {
	TransactionID  string                 `json:"transaction_id"`
	Seq            int64                  `json:"seq"`
	Status         inventory.ReplayStatus `json:"status"`
	ConflictReason string                 `json:"conflict_reason,omitempty"`
}

// ReplayReport summarizes one replay pass over a store's pending queue
type ReplayReport struct {
	Attempted  int             `json:"attempted"`
	Applied    int             `json:"applied"`
	Conflicted int             `json:"conflicted"`
	Outcomes   []ReplayOutcome `json:"outcomes"`
}

// ForeignMappingItem is one ingredient line bound to another store's inventory
type ForeignMappingItem struct {
	RecipeID        uuid.UUID `json:"recipe_id"`
	LineID          uuid.UUID `json:"line_id"`
	IngredientName  string    `json:"ingredient_name"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	ItemName        string    `json:"item_name,omitempty"`
	ItemStoreID     uuid.UUID `json:"item_store_id"`
}

// RepairedMapping records one foreign line rewritten to a local item
type RepairedMapping struct {
	LineID         uuid.UUID `json:"line_id"`
	IngredientName string    `json:"ingredient_name"`
	OldItemID      uuid.UUID `json:"old_item_id"`
	NewItemID      uuid.UUID `json:"new_item_id"`
	NewItemName    string    `json:"new_item_name"`
}

// RepairReport is the result of a repair pass: lines rewritten to a local
// item, and lines left flagged because no local name match exists.
type RepairReport struct {
	Repaired   []RepairedMapping    `json:"repaired"`
	Unresolved []ForeignMappingItem `json:"unresolved"`
}

// MovementQuery represents filter options for ledger queries
type MovementQuery struct {
	InventoryItemID *uuid.UUID `form:"inventory_item_id"`
	MovementType    string     `form:"movement_type"`
	ReferenceID     string     `form:"reference_id"`
	StartDate       *time.Time `form:"start_date" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate         *time.Time `form:"end_date" time_format:"2006-01-02T15:04:05Z07:00"`
	Page            int        `form:"page"`
	PageSize        int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir        string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MovementResponse represents a ledger row in API responses
type MovementResponse struct {
	ID               uuid.UUID       `json:"id"`
	StoreID          uuid.UUID       `json:"store_id"`
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	MovementType     string          `json:"movement_type"`
	QuantityChange   decimal.Decimal `json:"quantity_change"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	ReferenceID      string          `json:"reference_id"`
	ActorID          *uuid.UUID      `json:"actor_id,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// ToMovementResponse converts a movement record to its response form
func ToMovementResponse(m *inventory.MovementRecord) MovementResponse {
	return MovementResponse{
		ID:               m.ID,
		StoreID:          m.StoreID,
		InventoryItemID:  m.InventoryItemID,
		MovementType:     m.MovementType.String(),
		QuantityChange:   m.QuantityChange,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		ReferenceID:      m.ReferenceID,
		ActorID:          m.ActorID,
		Notes:            m.Notes,
		OccurredAt:       m.OccurredAt,
	}
}

// ItemResponse represents an inventory item in API responses
type ItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	StoreID        uuid.UUID       `json:"store_id"`
	Name           string          `json:"name"`
	UnitCode       string          `json:"unit_code"`
	Quantity       decimal.Decimal `json:"quantity"`
	MinQuantity    decimal.Decimal `json:"min_quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalValue     decimal.Decimal `json:"total_value"`
	IsBelowMinimum bool            `json:"is_below_minimum"`
	Active         bool            `json:"active"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToItemResponse converts an inventory item to its response form
func ToItemResponse(i *inventory.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:             i.ID,
		StoreID:        i.StoreID,
		Name:           i.Name,
		UnitCode:       i.Unit.Code(),
		Quantity:       i.Quantity,
		MinQuantity:    i.MinQuantity,
		UnitCost:       i.UnitCost,
		TotalValue:     i.TotalValue(),
		IsBelowMinimum: i.IsBelowMinimum(),
		Active:         i.Active,
		UpdatedAt:      i.UpdatedAt,
		Version:        i.Version,
	}
}

// AdjustStockCommand sets an item's quantity to a physically counted value
type AdjustStockCommand struct {
	StoreID        uuid.UUID       `json:"-"`
	ItemID         uuid.UUID       `json:"-"`
	ActualQuantity decimal.Decimal `json:"actual_quantity" binding:"required"`
	Reason         string          `json:"reason" binding:"required,min=1,max=255"`
	ReferenceID    string          `json:"reference_id"` // auto-generated if empty
	ActorID        *uuid.UUID      `json:"actor_id"`
}

// RestockCommand receives purchased stock into an item
type RestockCommand struct {
	StoreID     uuid.UUID       `json:"-"`
	ItemID      uuid.UUID       `json:"-"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ReferenceID string          `json:"reference_id"` // auto-generated if empty
	Notes       string          `json:"notes" binding:"omitempty,max=255"`
	ActorID     *uuid.UUID      `json:"actor_id"`
}

// TransferCommand moves stock between two stores' items of the same unit
type TransferCommand struct {
	FromStoreID uuid.UUID       `json:"-"`
	ToStoreID   uuid.UUID       `json:"to_store_id" binding:"required"`
	FromItemID  uuid.UUID       `json:"from_item_id" binding:"required"`
	ToItemID    uuid.UUID       `json:"to_item_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	ReferenceID string          `json:"reference_id"` // auto-generated if empty
	Notes       string          `json:"notes" binding:"omitempty,max=255"`
	ActorID     *uuid.UUID      `json:"actor_id"`
}

// TransferResult reports the two offsetting ledger rows a transfer wrote
type TransferResult struct {
	ReferenceID string           `json:"reference_id"`
	Outbound    MovementResponse `json:"outbound"`
	Inbound     MovementResponse `json:"inbound"`
}
