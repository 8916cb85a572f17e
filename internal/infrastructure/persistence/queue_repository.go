package persistence

import (
	"context"
	"errors"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormQueueRepository implements inventory.QueueRepository using GORM
type GormQueueRepository struct {
	db *gorm.DB
}

// NewGormQueueRepository creates a new GormQueueRepository
func NewGormQueueRepository(db *gorm.DB) *GormQueueRepository {
	return &GormQueueRepository{db: db}
}

// enqueueSeqRetries bounds retries when concurrent enqueues for one store
// race for the same sequence number.
const enqueueSeqRetries = 3

// Enqueue appends a queued deduction, assigning the next per-store sequence
// number. (store_id, seq) is unique, so two enqueues that read the same
// MAX(seq) under READ COMMITTED cannot both commit; the loser re-reads and
// retries with the next number.
func (r *GormQueueRepository) Enqueue(ctx context.Context, qd *inventory.QueuedDeduction) error {
	for attempt := 0; attempt < enqueueSeqRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxSeq struct {
				Seq int64
			}
			if err := tx.Model(&inventory.QueuedDeduction{}).
				Select("COALESCE(MAX(seq), 0) as seq").
				Where("store_id = ?", qd.StoreID).
				Scan(&maxSeq).Error; err != nil {
				return err
			}
			qd.Seq = maxSeq.Seq + 1
			return tx.Create(qd).Error
		})
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}
		// A duplicate key means either the transaction is already queued or
		// another enqueue won this sequence number. Only the latter retries.
		if _, ferr := r.FindByTransactionID(ctx, qd.TransactionID); ferr == nil {
			return shared.NewDomainError("ALREADY_EXISTS", "Transaction is already queued")
		} else if !errors.Is(ferr, shared.ErrNotFound) {
			return ferr
		}
	}
	return shared.NewDomainError("ENQUEUE_CONTENTION", "Could not assign a queue sequence number")
}

// FindByTransactionID finds a queued deduction by its transaction ID
func (r *GormQueueRepository) FindByTransactionID(ctx context.Context, transactionID string) (*inventory.QueuedDeduction, error) {
	var qd inventory.QueuedDeduction
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&qd).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &qd, nil
}

// FindPendingForStore finds pending deductions in FIFO (sequence) order
func (r *GormQueueRepository) FindPendingForStore(ctx context.Context, storeID uuid.UUID) ([]inventory.QueuedDeduction, error) {
	return r.findByStatus(ctx, storeID, inventory.ReplayStatusPending)
}

// FindConflictedForStore finds conflicted deductions awaiting an operator
func (r *GormQueueRepository) FindConflictedForStore(ctx context.Context, storeID uuid.UUID) ([]inventory.QueuedDeduction, error) {
	return r.findByStatus(ctx, storeID, inventory.ReplayStatusConflicted)
}

// StoresWithPending returns distinct store IDs with pending queue entries
func (r *GormQueueRepository) StoresWithPending(ctx context.Context) ([]uuid.UUID, error) {
	var storeIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&inventory.QueuedDeduction{}).
		Where("status = ?", inventory.ReplayStatusPending).
		Distinct("store_id").
		Pluck("store_id", &storeIDs).Error; err != nil {
		return nil, err
	}
	return storeIDs, nil
}

func (r *GormQueueRepository) findByStatus(ctx context.Context, storeID uuid.UUID, status inventory.ReplayStatus) ([]inventory.QueuedDeduction, error) {
	var entries []inventory.QueuedDeduction
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, status).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Update persists a status transition
func (r *GormQueueRepository) Update(ctx context.Context, qd *inventory.QueuedDeduction) error {
	result := r.db.WithContext(ctx).
		Model(qd).
		Where("id = ?", qd.ID).
		Updates(map[string]interface{}{
			"status":          qd.Status,
			"conflict_reason": qd.ConflictReason,
			"applied_at":      qd.AppliedAt,
			"updated_at":      qd.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeletePending removes a pending deduction. The status guard is part of the
// delete so a replay racing the cancellation cannot lose the entry's outcome.
func (r *GormQueueRepository) DeletePending(ctx context.Context, transactionID string) error {
	result := r.db.WithContext(ctx).
		Where("transaction_id = ? AND status = ?", transactionID, inventory.ReplayStatusPending).
		Delete(&inventory.QueuedDeduction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the entry never existed or it already left the pending state
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&inventory.QueuedDeduction{}).
			Where("transaction_id = ?", transactionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrInvalidState
	}
	return nil
}

// Ensure GormQueueRepository implements QueueRepository
var _ inventory.QueueRepository = (*GormQueueRepository)(nil)
