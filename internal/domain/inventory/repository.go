package inventory

import (
	"context"
	"time"

	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockChange is the balance snapshot returned by a guarded quantity update
type StockChange struct {
	Previous decimal.Decimal
	New      decimal.Decimal
}

// ItemRepository defines the persistence interface for inventory items
type ItemRepository interface {
	// FindByID finds an inventory item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindByIDForStore finds an inventory item by ID within a store
	FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*InventoryItem, error)

	// FindByIDs finds multiple inventory items by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]InventoryItem, error)

	// FindByStore finds all inventory items in a store
	FindByStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)

	// FindByNormalizedName finds an active item in a store by case-folded name
	FindByNormalizedName(ctx context.Context, storeID uuid.UUID, normalizedName string) (*InventoryItem, error)

	// FindBelowMinimum finds items at or below their low-stock threshold
	FindBelowMinimum(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)

	// Save creates or updates an inventory item
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock saves with optimistic locking (checks version). Used by
	// admin flows (adjust, restock); sale deductions use DecrementStock.
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	// DecrementStock atomically decrements an item's quantity with a guard on
	// the current balance (quantity >= delta), returning the previous and new
	// balances. Returns shared.ErrInsufficientStock when the guard fails and
	// shared.ErrNotFound when the item does not exist or is inactive. This is
	// the only write path sales may use; it must never be replaced by a
	// read-then-write pair.
	DecrementStock(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*StockChange, error)

	// IncrementStock atomically increments an item's quantity, returning the
	// previous and new balances.
	IncrementStock(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*StockChange, error)

	// CountForStore counts items in a store matching the filter
	CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error)
}

// MovementFilter narrows ledger queries
type MovementFilter struct {
	shared.Filter
	InventoryItemID *uuid.UUID
	MovementType    *MovementType
	ReferenceID     string
	StartDate       *time.Time
	EndDate         *time.Time
}

// MovementRepository defines the persistence interface for the append-only
// movement ledger. There are deliberately no update or delete operations.
type MovementRepository interface {
	// Create appends a new movement record
	Create(ctx context.Context, record *MovementRecord) error

	// CreateBatch appends multiple movement records
	CreateBatch(ctx context.Context, records []*MovementRecord) error

	// ExistsByReferenceAndItem reports whether a record already references the
	// given transaction for the given item. This is the executor's
	// authoritative idempotency check.
	ExistsByReferenceAndItem(ctx context.Context, referenceID string, itemID uuid.UUID) (bool, error)

	// FindByReference finds all records for one transaction identifier
	FindByReference(ctx context.Context, referenceID string) ([]MovementRecord, error)

	// FindForStore finds records for a store matching the filter
	FindForStore(ctx context.Context, storeID uuid.UUID, filter MovementFilter) ([]MovementRecord, error)

	// CountForStore counts records for a store matching the filter
	CountForStore(ctx context.Context, storeID uuid.UUID, filter MovementFilter) (int64, error)
}

// QueueRepository defines the persistence interface for the offline deduction queue
type QueueRepository interface {
	// Enqueue appends a queued deduction, assigning the next sequence number
	// for its store. Enqueueing the same transaction ID twice is an error.
	Enqueue(ctx context.Context, qd *QueuedDeduction) error

	// FindByTransactionID finds a queued deduction by its transaction ID
	FindByTransactionID(ctx context.Context, transactionID string) (*QueuedDeduction, error)

	// FindPendingForStore finds pending deductions in FIFO (sequence) order
	FindPendingForStore(ctx context.Context, storeID uuid.UUID) ([]QueuedDeduction, error)

	// FindConflictedForStore finds conflicted deductions awaiting an operator
	FindConflictedForStore(ctx context.Context, storeID uuid.UUID) ([]QueuedDeduction, error)

	// StoresWithPending returns the distinct store IDs that currently have
	// pending queue entries. Used by the background replay sweep.
	StoresWithPending(ctx context.Context) ([]uuid.UUID, error)

	// Update persists a status transition
	Update(ctx context.Context, qd *QueuedDeduction) error

	// DeletePending removes a pending deduction (cancellation before replay).
	// Returns shared.ErrInvalidState if the entry is no longer pending.
	DeletePending(ctx context.Context, transactionID string) error
}
