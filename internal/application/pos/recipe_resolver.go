package pos

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/domain/shared/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Requirement is the aggregated demand one cart places on one inventory item,
// expressed in the item's canonical stock unit.
type Requirement struct {
	Item          inventory.InventoryItem
	StockQuantity decimal.Decimal
	// Rounded is true when a non-fractional canonical unit forced the
	// aggregated quantity up to the next whole unit.
	Rounded bool
}

// Resolution is the outcome of resolving a cart against the store's recipes.
// Requirements are ordered by item ID so downstream consumers touch items in
// a deterministic order. UntrackedProducts lists products that had no active
// recipe; their sale proceeds without inventory tracking.
type Resolution struct {
	Requirements      []Requirement
	UntrackedProducts []uuid.UUID
}

// lineDemand accumulates per-item demand while resolving, keeping enough
// provenance to name the offending recipe line in errors.
type lineDemand struct {
	quantity       decimal.Decimal
	recipeID       uuid.UUID
	lineID         uuid.UUID
	ingredientName string
}

// RecipeResolver turns cart lines into deduplicated per-item stock
// requirements. It is the single place recipe traversal and mix & match
// unioning happen: a composite line resolves the base product's recipe plus
// the recipe of each selected component, summing shared ingredients, and the
// whole cart is aggregated so two products sharing an ingredient produce one
// requirement.
type RecipeResolver struct {
	recipeRepo recipe.Repository
	itemRepo   inventory.ItemRepository
	converter  *service.UnitConversionService
	logger     *zap.Logger
}

// NewRecipeResolver creates a new RecipeResolver
func NewRecipeResolver(
	recipeRepo recipe.Repository,
	itemRepo inventory.ItemRepository,
	converter *service.UnitConversionService,
	logger *zap.Logger,
) *RecipeResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeResolver{
		recipeRepo: recipeRepo,
		itemRepo:   itemRepo,
		converter:  converter,
		logger:     logger,
	}
}

// Resolve resolves a cart for a store into aggregated stock requirements.
//
// A product without an active recipe is not an error: the product is reported
// in UntrackedProducts and logged, and the rest of the cart resolves normally.
// An ingredient line without an inventory item binding is fatal
// (UnmappedIngredientError), as is a line bound to another store's item
// (ForeignMappingError): both must be repaired before the sale can commit.
func (r *RecipeResolver) Resolve(ctx context.Context, storeID uuid.UUID, lines []inventory.SaleLine) (*Resolution, error) {
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "Sale must contain at least one line")
	}

	demand := make(map[uuid.UUID]*lineDemand)
	untracked := make([]uuid.UUID, 0)
	untrackedSeen := make(map[uuid.UUID]bool)

	markUntracked := func(productID uuid.UUID, variationID *uuid.UUID) {
		if !untrackedSeen[productID] {
			untrackedSeen[productID] = true
			untracked = append(untracked, productID)
		}
		r.logger.Warn("No active recipe for product; sale proceeds untracked",
			zap.String("store_id", storeID.String()),
			zap.String("product_id", productID.String()),
			zap.Any("variation_id", variationID))
	}

	for i := range lines {
		line := &lines[i]
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Sale line quantity must be positive")
		}

		// The base product's recipe plus, for mix & match composites, the
		// recipe of each selected component.
		rec, err := r.recipeRepo.FindActiveByProduct(ctx, storeID, line.ProductID, line.VariationID)
		switch {
		case err == nil:
			if err := r.accumulate(demand, rec, line.Quantity); err != nil {
				return nil, err
			}
		case errors.Is(err, shared.ErrNotFound):
			markUntracked(line.ProductID, line.VariationID)
		default:
			return nil, fmt.Errorf("resolve recipe for product %s: %w", line.ProductID, err)
		}

		for _, componentID := range line.ComponentIDs {
			crec, err := r.recipeRepo.FindActiveByProduct(ctx, storeID, componentID, nil)
			switch {
			case err == nil:
				if err := r.accumulate(demand, crec, line.Quantity); err != nil {
					return nil, err
				}
			case errors.Is(err, shared.ErrNotFound):
				markUntracked(componentID, nil)
			default:
				return nil, fmt.Errorf("resolve recipe for component %s: %w", componentID, err)
			}
		}
	}

	if len(demand) == 0 {
		return &Resolution{Requirements: nil, UntrackedProducts: untracked}, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(a, b int) bool {
		return itemIDs[a].String() < itemIDs[b].String()
	})

	items, err := r.itemRepo.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load inventory items: %w", err)
	}
	byID := make(map[uuid.UUID]*inventory.InventoryItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	requirements := make([]Requirement, 0, len(itemIDs))
	for _, id := range itemIDs {
		d := demand[id]
		item, ok := byID[id]
		if !ok || !item.Active {
			return nil, fmt.Errorf("inventory item %s for ingredient %q: %w", id, d.ingredientName, shared.ErrNotFound)
		}
		if item.StoreID != storeID {
			return nil, &inventory.ForeignMappingError{
				RecipeID:       d.recipeID,
				LineID:         d.lineID,
				IngredientName: d.ingredientName,
				ItemStoreID:    item.StoreID,
				SellingStoreID: storeID,
			}
		}

		quantity, rounded := r.converter.RoundForUnit(d.quantity, item.Unit)
		requirements = append(requirements, Requirement{
			Item:          *item,
			StockQuantity: quantity,
			Rounded:       rounded,
		})
	}

	return &Resolution{Requirements: requirements, UntrackedProducts: untracked}, nil
}

// accumulate folds one recipe's lines into the per-item demand map,
// converting each line's recipe-unit quantity into stock units.
func (r *RecipeResolver) accumulate(demand map[uuid.UUID]*lineDemand, rec *recipe.Recipe, soldQuantity decimal.Decimal) error {
	for i := range rec.Lines {
		line := &rec.Lines[i]
		if line.IsUnmapped() {
			return &inventory.UnmappedIngredientError{
				RecipeID:       rec.ID,
				ProductID:      rec.ProductID,
				IngredientName: line.IngredientName,
			}
		}
		if err := r.converter.ValidateConversionFactor(line.ConversionFactor); err != nil {
			return fmt.Errorf("ingredient %q of recipe %s: %w", line.IngredientName, rec.ID, err)
		}

		stockQuantity := line.QuantityPerServing.Mul(soldQuantity).Div(line.ConversionFactor)
		itemID := *line.InventoryItemID
		if d, ok := demand[itemID]; ok {
			d.quantity = d.quantity.Add(stockQuantity)
		} else {
			demand[itemID] = &lineDemand{
				quantity:       stockQuantity,
				recipeID:       rec.ID,
				lineID:         line.ID,
				ingredientName: line.IngredientName,
			}
		}
	}
	return nil
}
