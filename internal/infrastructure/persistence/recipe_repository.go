package persistence

import (
	"context"
	"errors"

	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecipeRepository implements recipe.Repository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

// FindByID finds a recipe with its lines by ID
func (r *GormRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindActiveByProduct finds the active recipe for a product within a store.
// A variation-specific recipe wins over the product-level one when both exist.
func (r *GormRecipeRepository) FindActiveByProduct(ctx context.Context, storeID, productID uuid.UUID, variationID *uuid.UUID) (*recipe.Recipe, error) {
	if variationID != nil {
		rec, err := r.findActive(ctx, storeID, productID, variationID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		// Fall back to the product-level recipe
	}
	return r.findActive(ctx, storeID, productID, nil)
}

func (r *GormRecipeRepository) findActive(ctx context.Context, storeID, productID uuid.UUID, variationID *uuid.UUID) (*recipe.Recipe, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("store_id = ? AND product_id = ? AND active = ?", storeID, productID, true)
	if variationID != nil {
		query = query.Where("variation_id = ?", *variationID)
	} else {
		query = query.Where("variation_id IS NULL")
	}

	var rec recipe.Recipe
	if err := query.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByStore finds all recipes for a store
func (r *GormRecipeRepository) FindByStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]recipe.Recipe, error) {
	var recipes []recipe.Recipe
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Model(&recipe.Recipe{}).
		Where("store_id = ?", storeID)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, RecipeSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// FindForeignLines finds ingredient lines belonging to the store's recipes
// whose inventory item is owned by a different store
func (r *GormRecipeRepository) FindForeignLines(ctx context.Context, storeID uuid.UUID) ([]recipe.IngredientLine, error) {
	var lines []recipe.IngredientLine
	if err := r.db.WithContext(ctx).
		Model(&recipe.IngredientLine{}).
		Select("ingredient_lines.*").
		Joins("JOIN recipes ON recipes.id = ingredient_lines.recipe_id").
		Joins("JOIN inventory_items ON inventory_items.id = ingredient_lines.inventory_item_id").
		Where("recipes.store_id = ? AND inventory_items.store_id <> ?", storeID, storeID).
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// UpdateLineMapping rewrites a single line's inventory item binding
func (r *GormRecipeRepository) UpdateLineMapping(ctx context.Context, lineID, itemID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&recipe.IngredientLine{}).
		Where("id = ?", lineID).
		Update("inventory_item_id", itemID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormRecipeRepository implements Repository
var _ recipe.Repository = (*GormRecipeRepository)(nil)
