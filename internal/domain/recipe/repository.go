package recipe

import (
	"context"

	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the persistence interface for recipes. The admin
// subsystem owns recipe lifecycle; this core reads recipes to resolve sales
// and rewrites individual line mappings during foreign-mapping repair.
type Repository interface {
	// FindByID finds a recipe with its lines by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Recipe, error)

	// FindActiveByProduct finds the active recipe for a product within a store.
	// When variationID is non-nil a variation-specific recipe is preferred,
	// falling back to the product-level recipe.
	FindActiveByProduct(ctx context.Context, storeID, productID uuid.UUID, variationID *uuid.UUID) (*Recipe, error)

	// FindByStore finds all recipes for a store
	FindByStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]Recipe, error)

	// FindForeignLines finds ingredient lines belonging to the store's recipes
	// whose inventory item is owned by a different store
	FindForeignLines(ctx context.Context, storeID uuid.UUID) ([]IngredientLine, error)

	// UpdateLineMapping rewrites a single line's inventory item binding
	UpdateLineMapping(ctx context.Context, lineID, itemID uuid.UUID) error
}
