package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MappingService finds and repairs ingredient lines that reference another
// store's inventory. Foreign mappings appear when recipes are cloned from a
// template across stores but the line bindings keep pointing at the origin
// store's items; until repaired they block every sale of the affected
// product.
type MappingService struct {
	recipeRepo recipe.Repository
	itemRepo   inventory.ItemRepository
	logger     *zap.Logger
}

// NewMappingService creates a new MappingService
func NewMappingService(recipeRepo recipe.Repository, itemRepo inventory.ItemRepository, logger *zap.Logger) *MappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MappingService{
		recipeRepo: recipeRepo,
		itemRepo:   itemRepo,
		logger:     logger,
	}
}

// DetectForeignMappings lists the store's ingredient lines whose inventory
// item belongs to a different store.
func (s *MappingService) DetectForeignMappings(ctx context.Context, storeID uuid.UUID) ([]ForeignMappingItem, error) {
	lines, err := s.recipeRepo.FindForeignLines(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("find foreign lines for store %s: %w", storeID, err)
	}
	return s.describeLines(ctx, lines)
}

// RepairForeignMappings rewrites each foreign-mapped line to the selling
// store's item whose name matches the foreign item's name under Unicode case
// folding. Lines with no local match stay flagged and are reported
// unresolved. The pass is idempotent: repaired lines no longer show up as
// foreign on the next detection.
func (s *MappingService) RepairForeignMappings(ctx context.Context, storeID uuid.UUID) (*RepairReport, error) {
	lines, err := s.recipeRepo.FindForeignLines(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("find foreign lines for store %s: %w", storeID, err)
	}

	described, err := s.describeLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{
		Repaired:   make([]RepairedMapping, 0),
		Unresolved: make([]ForeignMappingItem, 0),
	}

	for _, fm := range described {
		local, err := s.findLocalMatch(ctx, storeID, fm)
		if err != nil {
			return nil, err
		}
		if local == nil {
			report.Unresolved = append(report.Unresolved, fm)
			s.logger.Warn("No local item matches foreign mapping",
				zap.String("store_id", storeID.String()),
				zap.String("ingredient", fm.IngredientName),
				zap.String("line_id", fm.LineID.String()))
			continue
		}

		if err := s.recipeRepo.UpdateLineMapping(ctx, fm.LineID, local.ID); err != nil {
			return nil, fmt.Errorf("rewrite mapping for line %s: %w", fm.LineID, err)
		}
		report.Repaired = append(report.Repaired, RepairedMapping{
			LineID:         fm.LineID,
			IngredientName: fm.IngredientName,
			OldItemID:      fm.InventoryItemID,
			NewItemID:      local.ID,
			NewItemName:    local.Name,
		})
		s.logger.Info("Foreign mapping repaired",
			zap.String("store_id", storeID.String()),
			zap.String("ingredient", fm.IngredientName),
			zap.String("new_item_id", local.ID.String()))
	}

	return report, nil
}

// findLocalMatch looks for a same-store item by the foreign item's name,
// falling back to the line's declared ingredient name.
func (s *MappingService) findLocalMatch(ctx context.Context, storeID uuid.UUID, fm ForeignMappingItem) (*inventory.InventoryItem, error) {
	candidates := []string{fm.ItemName, fm.IngredientName}
	for _, name := range candidates {
		if name == "" {
			continue
		}
		item, err := s.itemRepo.FindByNormalizedName(ctx, storeID, inventory.NormalizeName(name))
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("match %q in store %s: %w", name, storeID, err)
		}
	}
	return nil, nil
}

// describeLines attaches the owning store and name of each line's foreign
// item so reports name what the operator will actually see in the other
// store's catalog.
func (s *MappingService) describeLines(ctx context.Context, lines []recipe.IngredientLine) ([]ForeignMappingItem, error) {
	if len(lines) == 0 {
		return []ForeignMappingItem{}, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(lines))
	for i := range lines {
		if lines[i].InventoryItemID != nil {
			itemIDs = append(itemIDs, *lines[i].InventoryItemID)
		}
	}
	items, err := s.itemRepo.FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load foreign items: %w", err)
	}
	byID := make(map[uuid.UUID]*inventory.InventoryItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	result := make([]ForeignMappingItem, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		if line.InventoryItemID == nil {
			continue
		}
		fm := ForeignMappingItem{
			RecipeID:        line.RecipeID,
			LineID:          line.ID,
			IngredientName:  line.IngredientName,
			InventoryItemID: *line.InventoryItemID,
		}
		if item, ok := byID[*line.InventoryItemID]; ok {
			fm.ItemName = item.Name
			fm.ItemStoreID = item.StoreID
		}
		result = append(result, fm)
	}
	return result, nil
}
