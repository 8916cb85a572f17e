package inventory

import (
	"time"

	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	// MovementTypeSale is a deduction caused by a committed sale
	MovementTypeSale MovementType = "SALE"
	// MovementTypeAdjustment is a manual correction (stock count, dispute resolution)
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	// MovementTypeTransferIn is stock received from another store
	MovementTypeTransferIn MovementType = "TRANSFER_IN"
	// MovementTypeTransferOut is stock sent to another store
	MovementTypeTransferOut MovementType = "TRANSFER_OUT"
	// MovementTypeRestock is stock received from purchasing
	MovementTypeRestock MovementType = "RESTOCK"
	// MovementTypeDamage is stock written off as damaged or spoiled
	MovementTypeDamage MovementType = "DAMAGE"
	// MovementTypeConversion is stock repackaged between units
	MovementTypeConversion MovementType = "CONVERSION"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeSale,
		MovementTypeAdjustment,
		MovementTypeTransferIn,
		MovementTypeTransferOut,
		MovementTypeRestock,
		MovementTypeDamage,
		MovementTypeConversion:
		return true
	}
	return false
}

// MovementRecord is an immutable, append-only ledger entry for one stock
// change. Records are never updated or deleted; corrections are new
// offsetting records with MovementTypeAdjustment referencing the disputed
// transaction in the notes.
//
// QuantityChange is signed (negative for deductions). PreviousQuantity and
// NewQuantity snapshot the item's balance around the change so the full stock
// history can be reconstructed from the ledger alone.
type MovementRecord struct {
	shared.BaseEntity
	StoreID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_store_time,priority:1"`
	InventoryItemID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_item"`
	MovementType     MovementType    `gorm:"type:varchar(20);not null;index:idx_movement_type"`
	QuantityChange   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewQuantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReferenceID      string          `gorm:"type:varchar(64);not null;index:idx_movement_reference"` // Originating transaction/document identifier
	ActorID          *uuid.UUID      `gorm:"type:uuid"`
	Notes            string          `gorm:"type:varchar(255)"`
	OccurredAt       time.Time       `gorm:"type:timestamptz;not null;index:idx_movement_store_time,priority:2"`
}

// TableName returns the table name for GORM
func (MovementRecord) TableName() string {
	return "movement_records"
}

// NewMovementRecord creates a new movement record
func NewMovementRecord(
	storeID uuid.UUID,
	itemID uuid.UUID,
	movementType MovementType,
	quantityChange decimal.Decimal,
	previousQuantity decimal.Decimal,
	referenceID string,
) (*MovementRecord, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if quantityChange.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity change cannot be zero")
	}
	if referenceID == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference ID cannot be empty")
	}

	newQuantity := previousQuantity.Add(quantityChange)
	if newQuantity.IsNegative() {
		return nil, shared.ErrInsufficientStock
	}

	return &MovementRecord{
		BaseEntity:       shared.NewBaseEntity(),
		StoreID:          storeID,
		InventoryItemID:  itemID,
		MovementType:     movementType,
		QuantityChange:   quantityChange,
		PreviousQuantity: previousQuantity,
		NewQuantity:      newQuantity,
		ReferenceID:      referenceID,
		OccurredAt:       time.Now(),
	}, nil
}

// WithActor sets the acting user on the record
func (m *MovementRecord) WithActor(actorID uuid.UUID) *MovementRecord {
	m.ActorID = &actorID
	return m
}

// WithNotes sets free-text notes on the record
func (m *MovementRecord) WithNotes(notes string) *MovementRecord {
	m.Notes = notes
	return m
}

// WithOccurredAt overrides the movement timestamp. Queued offline sales keep
// their original sale time rather than the replay time.
func (m *MovementRecord) WithOccurredAt(at time.Time) *MovementRecord {
	m.OccurredAt = at
	return m
}

// IsDeduction returns true if the record decreased stock
func (m *MovementRecord) IsDeduction() bool {
	return m.QuantityChange.IsNegative()
}
