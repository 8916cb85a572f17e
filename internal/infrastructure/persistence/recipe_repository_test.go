package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRecipeRepository(t *testing.T) (*GormRecipeRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormRecipeRepository(gormDB), mock, mockDB
}

func TestGormRecipeRepository_FindActiveByProduct(t *testing.T) {
	t.Run("falls back to the product-level recipe when no variation recipe exists", func(t *testing.T) {
		repo, mock, mockDB := newMockRecipeRepository(t)
		defer mockDB.Close()

		storeID := uuid.New()
		productID := uuid.New()
		variationID := uuid.New()
		recipeID := uuid.New()

		// Variation-specific lookup comes up empty
		mock.ExpectQuery(`SELECT \* FROM "recipes" WHERE \(store_id = \$1 AND product_id = \$2 AND active = \$3\) AND variation_id = \$4`).
			WithArgs(storeID, productID, true, variationID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		// Product-level lookup succeeds
		mock.ExpectQuery(`SELECT \* FROM "recipes" WHERE \(store_id = \$1 AND product_id = \$2 AND active = \$3\) AND variation_id IS NULL`).
			WithArgs(storeID, productID, true, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "product_id", "servings_per_batch", "active"}).
				AddRow(recipeID, storeID, productID, 1, true))

		mock.ExpectQuery(`SELECT \* FROM "ingredient_lines" WHERE "ingredient_lines"\."recipe_id" = \$1`).
			WithArgs(recipeID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "recipe_id", "ingredient_name", "quantity_per_serving"}).
				AddRow(uuid.New(), recipeID, "Espresso Beans", decimal.NewFromInt(18)))

		rec, err := repo.FindActiveByProduct(context.Background(), storeID, productID, &variationID)
		require.NoError(t, err)
		assert.Equal(t, recipeID, rec.ID)
		require.Len(t, rec.Lines, 1)
		assert.Equal(t, "Espresso Beans", rec.Lines[0].IngredientName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when no recipe matches", func(t *testing.T) {
		repo, mock, mockDB := newMockRecipeRepository(t)
		defer mockDB.Close()

		storeID := uuid.New()
		productID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "recipes" WHERE \(store_id = \$1 AND product_id = \$2 AND active = \$3\) AND variation_id IS NULL`).
			WithArgs(storeID, productID, true, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindActiveByProduct(context.Background(), storeID, productID, nil)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormRecipeRepository_FindForeignLines(t *testing.T) {
	t.Run("joins recipes against item ownership", func(t *testing.T) {
		repo, mock, mockDB := newMockRecipeRepository(t)
		defer mockDB.Close()

		storeID := uuid.New()
		lineID := uuid.New()
		recipeID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "recipe_id", "ingredient_name"}).
			AddRow(lineID, recipeID, "Oat Milk")

		mock.ExpectQuery(`SELECT ingredient_lines\.\* FROM "ingredient_lines" JOIN recipes ON recipes\.id = ingredient_lines\.recipe_id JOIN inventory_items ON inventory_items\.id = ingredient_lines\.inventory_item_id WHERE recipes\.store_id = \$1 AND inventory_items\.store_id <> \$2`).
			WithArgs(storeID, storeID).
			WillReturnRows(rows)

		lines, err := repo.FindForeignLines(context.Background(), storeID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, lineID, lines[0].ID)
		assert.Equal(t, "Oat Milk", lines[0].IngredientName)
	})
}

func TestGormRecipeRepository_UpdateLineMapping(t *testing.T) {
	t.Run("rewrites the item binding", func(t *testing.T) {
		repo, mock, mockDB := newMockRecipeRepository(t)
		defer mockDB.Close()

		lineID := uuid.New()
		itemID := uuid.New()

		mock.ExpectExec(`UPDATE "ingredient_lines" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateLineMapping(context.Background(), lineID, itemID)
		assert.NoError(t, err)
	})

	t.Run("returns ErrNotFound for an unknown line", func(t *testing.T) {
		repo, mock, mockDB := newMockRecipeRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "ingredient_lines" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateLineMapping(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
