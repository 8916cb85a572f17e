package pos

import (
	"context"
	"testing"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMappingService_DetectForeignMappings(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	otherStore := uuid.New()

	foreignItem := newTestItem(t, otherStore, "Nutella", true, "10")
	line := newTestLine(t, &foreignItem.ID, "Nutella", "1", "10")
	line.RecipeID = uuid.New()

	recipeRepo := new(MockRecipeRepository)
	itemRepo := new(MockItemRepository)
	recipeRepo.On("FindForeignLines", ctx, storeID).Return([]recipe.IngredientLine{line}, nil)
	itemRepo.On("FindByIDs", ctx, mock.Anything).Return([]inventory.InventoryItem{foreignItem}, nil)

	svc := NewMappingService(recipeRepo, itemRepo, zap.NewNop())
	found, err := svc.DetectForeignMappings(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Nutella", found[0].IngredientName)
	assert.Equal(t, otherStore, found[0].ItemStoreID)
	assert.Equal(t, foreignItem.ID, found[0].InventoryItemID)
}

func TestMappingService_RepairForeignMappings(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()
	otherStore := uuid.New()

	t.Run("rewrites to the local item with a matching name", func(t *testing.T) {
		foreignItem := newTestItem(t, otherStore, "Nutella", true, "10")
		localItem := newTestItem(t, storeID, "nutella", true, "4")
		line := newTestLine(t, &foreignItem.ID, "Nutella", "1", "10")
		line.RecipeID = uuid.New()

		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindForeignLines", ctx, storeID).Return([]recipe.IngredientLine{line}, nil)
		itemRepo.On("FindByIDs", ctx, mock.Anything).Return([]inventory.InventoryItem{foreignItem}, nil)
		itemRepo.On("FindByNormalizedName", ctx, storeID, "nutella").Return(&localItem, nil)
		recipeRepo.On("UpdateLineMapping", ctx, line.ID, localItem.ID).Return(nil)

		svc := NewMappingService(recipeRepo, itemRepo, zap.NewNop())
		report, err := svc.RepairForeignMappings(ctx, storeID)
		require.NoError(t, err)
		require.Len(t, report.Repaired, 1)
		assert.Empty(t, report.Unresolved)
		assert.Equal(t, foreignItem.ID, report.Repaired[0].OldItemID)
		assert.Equal(t, localItem.ID, report.Repaired[0].NewItemID)
		recipeRepo.AssertExpectations(t)
	})

	t.Run("reports unresolved when no local name matches", func(t *testing.T) {
		foreignItem := newTestItem(t, otherStore, "Pistachio Paste", true, "10")
		line := newTestLine(t, &foreignItem.ID, "Pistachio Paste", "1", "10")
		line.RecipeID = uuid.New()

		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindForeignLines", ctx, storeID).Return([]recipe.IngredientLine{line}, nil)
		itemRepo.On("FindByIDs", ctx, mock.Anything).Return([]inventory.InventoryItem{foreignItem}, nil)
		itemRepo.On("FindByNormalizedName", ctx, storeID, "pistachio paste").Return(nil, shared.ErrNotFound)

		svc := NewMappingService(recipeRepo, itemRepo, zap.NewNop())
		report, err := svc.RepairForeignMappings(ctx, storeID)
		require.NoError(t, err)
		assert.Empty(t, report.Repaired)
		require.Len(t, report.Unresolved, 1)
		assert.Equal(t, "Pistachio Paste", report.Unresolved[0].IngredientName)
		recipeRepo.AssertNotCalled(t, "UpdateLineMapping", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no foreign lines is an empty report", func(t *testing.T) {
		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindForeignLines", ctx, storeID).Return([]recipe.IngredientLine{}, nil)

		svc := NewMappingService(recipeRepo, itemRepo, zap.NewNop())
		report, err := svc.RepairForeignMappings(ctx, storeID)
		require.NoError(t, err)
		assert.Empty(t, report.Repaired)
		assert.Empty(t, report.Unresolved)
	})
}
