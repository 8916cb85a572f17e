package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormItemRepository implements inventory.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an inventory item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDForStore finds an inventory item by ID within a store
func (r *GormItemRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDs finds multiple inventory items by their IDs
func (r *GormItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.InventoryItem, error) {
	if len(ids) == 0 {
		return []inventory.InventoryItem{}, nil
	}

	var items []inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByStore finds all inventory items in a store
func (r *GormItemRepository) FindByStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
			Where("store_id = ?", storeID),
		filter,
	)

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByNormalizedName finds an active item in a store by case-folded name.
// SQL LOWER() does not match Unicode case folding, so candidates are narrowed
// in the database and the fold comparison happens in Go. The scan is ordered
// by name so a fold-duplicate pair always resolves to the same item.
func (r *GormItemRepository) FindByNormalizedName(ctx context.Context, storeID uuid.UUID, normalizedName string) (*inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND active = ?", storeID, true).
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	for i := range items {
		if inventory.NormalizeName(items[i].Name) == normalizedName {
			return &items[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindBelowMinimum finds items at or below their low-stock threshold
func (r *GormItemRepository) FindBelowMinimum(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
			Where("store_id = ? AND active = ? AND min_quantity > 0 AND quantity <= min_quantity", storeID, true),
		filter,
	)

	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// LowStockCount returns the number of active items at or below their
// minimum threshold across all stores. Used by the metrics collector.
func (r *GormItemRepository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
		Where("active = ? AND min_quantity > 0 AND quantity <= min_quantity", true).
		Count(&count).Error
	return count, err
}

// Save creates or updates an inventory item
func (r *GormItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	result := r.db.WithContext(ctx).
		Model(item).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]interface{}{
			"quantity":     item.Quantity,
			"min_quantity": item.MinQuantity,
			"unit_cost":    item.UnitCost,
			"active":       item.Active,
			"version":      item.Version,
			"updated_at":   item.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "Inventory item was modified by another transaction")
	}
	return nil
}

// DecrementStock atomically decrements an item's quantity with a balance
// guard. The guard lives in the WHERE clause so two terminals racing on the
// last unit cannot both win.
func (r *GormItemRepository) DecrementStock(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	if delta.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Decrement must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("id = ? AND active = ? AND quantity >= ?", itemID, true, delta).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", delta),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		// Distinguish a missing or inactive item from an insufficient balance
		var item inventory.InventoryItem
		if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, shared.ErrNotFound
			}
			return nil, err
		}
		if !item.Active {
			return nil, shared.ErrNotFound
		}
		return nil, shared.ErrInsufficientStock
	}

	return r.readBalance(ctx, itemID, delta.Neg())
}

// IncrementStock atomically increments an item's quantity
func (r *GormItemRepository) IncrementStock(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	if delta.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Increment must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("id = ? AND active = ?", itemID, true).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.ErrNotFound
	}

	return r.readBalance(ctx, itemID, delta)
}

// readBalance reads the post-update quantity and derives the previous balance
// from the applied delta. Callers run inside a transaction, so the read sees
// exactly the row the update produced.
func (r *GormItemRepository) readBalance(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	var row struct {
		Quantity decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Select("quantity").
		Where("id = ?", itemID).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	return &inventory.StockChange{
		Previous: row.Quantity.Sub(delta),
		New:      row.Quantity,
	}, nil
}

// CountForStore counts items in a store matching the filter
func (r *GormItemRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).Where("store_id = ?", storeID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering with whitelisted columns
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, ItemSortFields, "name")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("name ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormItemRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "active":
			query = query.Where("active = ?", value)
		case "below_minimum":
			if value == true {
				query = query.Where("min_quantity > 0 AND quantity <= min_quantity")
			}
		case "has_stock":
			if value == true {
				query = query.Where("quantity > 0")
			}
		case "no_stock":
			if value == true {
				query = query.Where("quantity = 0")
			}
		}
	}

	return query
}

// Ensure GormItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormItemRepository)(nil)
