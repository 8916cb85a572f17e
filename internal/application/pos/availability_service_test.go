package pos

import (
	"context"
	"testing"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAvailabilityService_Check(t *testing.T) {
	ctx := context.Background()
	storeID := uuid.New()

	t.Run("available cart has no shortfalls", func(t *testing.T) {
		productID := uuid.New()
		item := newTestItem(t, storeID, "Croissant", true, "5")
		rec := newTestRecipe(t, storeID, productID, newTestLine(t, &item.ID, "Croissant", "1", "1"))

		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindActiveByProduct", ctx, storeID, productID, (*uuid.UUID)(nil)).Return(rec, nil)
		itemRepo.On("FindByIDs", ctx, mock.Anything).Return([]inventory.InventoryItem{item}, nil)

		svc := NewAvailabilityService(newResolver(recipeRepo, itemRepo), zap.NewNop())
		resp, err := svc.Check(ctx, AvailabilityQuery{StoreID: storeID, Lines: []inventory.SaleLine{
			{ProductID: productID, Quantity: decimal.NewFromInt(5)},
		}})
		require.NoError(t, err)
		assert.True(t, resp.Available)
		assert.Empty(t, resp.Shortfalls)
	})

	t.Run("reports shortfall when demand exceeds stock", func(t *testing.T) {
		productID := uuid.New()
		item := newTestItem(t, storeID, "Croissant", true, "5")
		rec := newTestRecipe(t, storeID, productID, newTestLine(t, &item.ID, "Croissant", "1", "1"))

		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindActiveByProduct", ctx, storeID, productID, (*uuid.UUID)(nil)).Return(rec, nil)
		itemRepo.On("FindByIDs", ctx, mock.Anything).Return([]inventory.InventoryItem{item}, nil)

		svc := NewAvailabilityService(newResolver(recipeRepo, itemRepo), zap.NewNop())
		resp, err := svc.Check(ctx, AvailabilityQuery{StoreID: storeID, Lines: []inventory.SaleLine{
			{ProductID: productID, Quantity: decimal.NewFromInt(6)},
		}})
		require.NoError(t, err)
		assert.False(t, resp.Available)
		require.Len(t, resp.Shortfalls, 1)
		assert.Equal(t, "Croissant", resp.Shortfalls[0].ItemName)
		assert.True(t, resp.Shortfalls[0].Shortfall.Equal(decimal.NewFromInt(1)))
		assert.True(t, resp.Shortfalls[0].Available.Equal(decimal.NewFromInt(5)))
	})

	t.Run("orders shortfalls by magnitude then name", func(t *testing.T) {
		productID := uuid.New()
		almond := newTestItem(t, storeID, "Almond Milk", true, "1")
		butter := newTestItem(t, storeID, "Butter", true, "1")
		cocoa := newTestItem(t, storeID, "Cocoa", true, "1")
		rec := newTestRecipe(t, storeID, productID,
			newTestLine(t, &cocoa.ID, "Cocoa", "3", "1"),
			newTestLine(t, &almond.ID, "Almond Milk", "2", "1"),
			newTestLine(t, &butter.ID, "Butter", "2", "1"),
		)

		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindActiveByProduct", ctx, storeID, productID, (*uuid.UUID)(nil)).Return(rec, nil)
		itemRepo.On("FindByIDs", ctx, mock.Anything).Return([]inventory.InventoryItem{almond, butter, cocoa}, nil)

		svc := NewAvailabilityService(newResolver(recipeRepo, itemRepo), zap.NewNop())
		resp, err := svc.Check(ctx, AvailabilityQuery{StoreID: storeID, Lines: []inventory.SaleLine{
			{ProductID: productID, Quantity: decimal.NewFromInt(1)},
		}})
		require.NoError(t, err)
		require.Len(t, resp.Shortfalls, 3)
		// Cocoa misses 2; Almond Milk and Butter each miss 1 and tie-break on name.
		assert.Equal(t, "Cocoa", resp.Shortfalls[0].ItemName)
		assert.Equal(t, "Almond Milk", resp.Shortfalls[1].ItemName)
		assert.Equal(t, "Butter", resp.Shortfalls[2].ItemName)
	})

	t.Run("untracked products pass through", func(t *testing.T) {
		productID := uuid.New()

		recipeRepo := new(MockRecipeRepository)
		itemRepo := new(MockItemRepository)
		recipeRepo.On("FindActiveByProduct", ctx, storeID, productID, (*uuid.UUID)(nil)).Return(nil, shared.ErrNotFound)

		svc := NewAvailabilityService(newResolver(recipeRepo, itemRepo), zap.NewNop())
		resp, err := svc.Check(ctx, AvailabilityQuery{StoreID: storeID, Lines: []inventory.SaleLine{
			{ProductID: productID, Quantity: decimal.NewFromInt(1)},
		}})
		require.NoError(t, err)
		assert.True(t, resp.Available)
		assert.Equal(t, []uuid.UUID{productID}, resp.UntrackedProducts)
	})
}
