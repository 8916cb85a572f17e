package persistence

import (
	"context"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMovementRepository implements inventory.MovementRepository using GORM.
// The ledger is append-only; this repository deliberately exposes no update or
// delete operations.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends a new movement record
func (r *GormMovementRepository) Create(ctx context.Context, record *inventory.MovementRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// CreateBatch appends multiple movement records
func (r *GormMovementRepository) CreateBatch(ctx context.Context, records []*inventory.MovementRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

// ExistsByReferenceAndItem reports whether a record already references the
// given transaction for the given item
func (r *GormMovementRepository) ExistsByReferenceAndItem(ctx context.Context, referenceID string, itemID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.MovementRecord{}).
		Where("reference_id = ? AND inventory_item_id = ?", referenceID, itemID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByReference finds all records for one transaction identifier
func (r *GormMovementRepository) FindByReference(ctx context.Context, referenceID string) ([]inventory.MovementRecord, error) {
	var records []inventory.MovementRecord
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("occurred_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindForStore finds records for a store matching the filter
func (r *GormMovementRepository) FindForStore(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) ([]inventory.MovementRecord, error) {
	var records []inventory.MovementRecord
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.MovementRecord{}).
			Where("store_id = ?", storeID),
		filter,
	)

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountForStore counts records for a store matching the filter
func (r *GormMovementRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) (int64, error) {
	var count int64
	query := r.applyConditions(
		r.db.WithContext(ctx).Model(&inventory.MovementRecord{}).
			Where("store_id = ?", storeID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies movement conditions plus pagination and ordering
func (r *GormMovementRepository) applyFilter(query *gorm.DB, filter inventory.MovementFilter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, MovementSortFields, "occurred_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("occurred_at DESC")
	}

	return query
}

// applyConditions applies the movement-specific narrowing conditions
func (r *GormMovementRepository) applyConditions(query *gorm.DB, filter inventory.MovementFilter) *gorm.DB {
	if filter.InventoryItemID != nil {
		query = query.Where("inventory_item_id = ?", *filter.InventoryItemID)
	}
	if filter.MovementType != nil {
		query = query.Where("movement_type = ?", *filter.MovementType)
	}
	if filter.ReferenceID != "" {
		query = query.Where("reference_id = ?", filter.ReferenceID)
	}
	if filter.StartDate != nil {
		query = query.Where("occurred_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("occurred_at <= ?", *filter.EndDate)
	}
	return query
}

// Ensure GormMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
