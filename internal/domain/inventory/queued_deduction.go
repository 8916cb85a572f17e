package inventory

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReplayStatus is the lifecycle state of a queued deduction
type ReplayStatus string

const (
	// ReplayStatusPending means the deduction is waiting for replay
	ReplayStatusPending ReplayStatus = "PENDING"
	// ReplayStatusApplied means the deduction was replayed successfully
	ReplayStatusApplied ReplayStatus = "APPLIED"
	// ReplayStatusConflicted means stock was insufficient at replay time
	ReplayStatusConflicted ReplayStatus = "CONFLICTED"
	// ReplayStatusResolved means an operator settled a conflicted deduction
	ReplayStatusResolved ReplayStatus = "RESOLVED"
	// ReplayStatusAbandoned means a conflicted deduction was dropped
	ReplayStatusAbandoned ReplayStatus = "ABANDONED"
)

// IsValid returns true if the status is valid
func (s ReplayStatus) IsValid() bool {
	switch s {
	case ReplayStatusPending, ReplayStatusApplied, ReplayStatusConflicted,
		ReplayStatusResolved, ReplayStatusAbandoned:
		return true
	}
	return false
}

// IsTerminal returns true once no further replay attempt will touch the entry
func (s ReplayStatus) IsTerminal() bool {
	return s == ReplayStatusApplied || s == ReplayStatusResolved || s == ReplayStatusAbandoned
}

// SaleLine is one (product, quantity) pair of a sale request. ComponentIDs
// carries the selected component products of a mix & match composite.
type SaleLine struct {
	ProductID    uuid.UUID       `json:"product_id"`
	VariationID  *uuid.UUID      `json:"variation_id,omitempty"`
	ComponentIDs []uuid.UUID     `json:"component_ids,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// SaleLines is a JSON-serialized list of sale lines
type SaleLines []SaleLine

// Value implements driver.Valuer
func (l SaleLines) Value() (driver.Value, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *SaleLines) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into SaleLines", src)
	}
}

// QueuedDeduction is a sale request captured while the point of sale was
// offline. The original transaction identifier is preserved so replay stays
// idempotent against the executor's ledger dedupe. Seq fixes the arrival
// order; replay is strictly FIFO per store.
type QueuedDeduction struct {
	shared.BaseEntity
	TransactionID  string       `gorm:"type:varchar(64);not null;uniqueIndex"`
	StoreID        uuid.UUID    `gorm:"type:uuid;not null;index:idx_queued_store_seq,priority:1"`
	Seq            int64        `gorm:"not null;index:idx_queued_store_seq,priority:2"`
	Lines          SaleLines    `gorm:"type:json;not null"`
	ActorID        *uuid.UUID   `gorm:"type:uuid"`
	Status         ReplayStatus `gorm:"type:varchar(20);not null;index"`
	ConflictReason string       `gorm:"type:varchar(255)"`
	SaleAt         time.Time    `gorm:"type:timestamptz;not null"` // When the sale happened at the terminal
	EnqueuedAt     time.Time    `gorm:"type:timestamptz;not null"`
	AppliedAt      *time.Time   `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (QueuedDeduction) TableName() string {
	return "queued_deductions"
}

// NewQueuedDeduction creates a pending queued deduction
func NewQueuedDeduction(transactionID string, storeID uuid.UUID, lines []SaleLine, saleAt time.Time) (*QueuedDeduction, error) {
	if transactionID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "Sale must contain at least one line")
	}
	for i := range lines {
		if lines[i].ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Sale line product ID cannot be empty")
		}
		if lines[i].Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Sale line quantity must be positive")
		}
	}
	if saleAt.IsZero() {
		saleAt = time.Now()
	}

	return &QueuedDeduction{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: transactionID,
		StoreID:       storeID,
		Lines:         lines,
		Status:        ReplayStatusPending,
		SaleAt:        saleAt,
		EnqueuedAt:    time.Now(),
	}, nil
}

// WithActor records the cashier who made the sale
func (q *QueuedDeduction) WithActor(actorID uuid.UUID) *QueuedDeduction {
	q.ActorID = &actorID
	return q
}

// MarkApplied transitions pending -> applied
func (q *QueuedDeduction) MarkApplied() error {
	if q.Status != ReplayStatusPending {
		return shared.ErrInvalidState
	}
	now := time.Now()
	q.Status = ReplayStatusApplied
	q.AppliedAt = &now
	q.UpdatedAt = now
	return nil
}

// MarkConflicted transitions pending -> conflicted, recording why
func (q *QueuedDeduction) MarkConflicted(reason string) error {
	if q.Status != ReplayStatusPending {
		return shared.ErrInvalidState
	}
	q.Status = ReplayStatusConflicted
	q.ConflictReason = reason
	q.UpdatedAt = time.Now()
	return nil
}

// Resolve transitions conflicted -> resolved (operator settled it)
func (q *QueuedDeduction) Resolve() error {
	if q.Status != ReplayStatusConflicted {
		return shared.ErrInvalidState
	}
	q.Status = ReplayStatusResolved
	q.UpdatedAt = time.Now()
	return nil
}

// Abandon transitions conflicted -> abandoned (sale voided instead)
func (q *QueuedDeduction) Abandon() error {
	if q.Status != ReplayStatusConflicted {
		return shared.ErrInvalidState
	}
	q.Status = ReplayStatusAbandoned
	q.UpdatedAt = time.Now()
	return nil
}

// CanCancel returns true while nothing has been committed for the entry
func (q *QueuedDeduction) CanCancel() bool {
	return q.Status == ReplayStatusPending
}
