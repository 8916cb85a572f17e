package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cafepos/backend/internal/application/pos"
	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared/service"
	"github.com/cafepos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type posTestEnv struct {
	handler      *POSHandler
	itemRepo     *mockItemRepository
	movementRepo *mockMovementRepository
	queueRepo    *mockQueueRepository
	recipeRepo   *mockRecipeRepository
}

func setupPOSTestHandler() *posTestEnv {
	gin.SetMode(gin.TestMode)

	itemRepo := newMockItemRepository()
	movementRepo := newMockMovementRepository()
	queueRepo := newMockQueueRepository()
	recipeRepo := newMockRecipeRepository()

	scope := pos.NewNoOpTransactionScope(itemRepo, movementRepo, queueRepo)
	resolver := pos.NewRecipeResolver(recipeRepo, itemRepo, service.NewUnitConversionService(), nil)
	deduction := pos.NewDeductionService(scope, resolver, movementRepo, nil)
	availability := pos.NewAvailabilityService(resolver, nil)
	replay := pos.NewReplayService(queueRepo, deduction, nil)

	return &posTestEnv{
		handler:      NewPOSHandler(availability, deduction, replay),
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		queueRepo:    queueRepo,
		recipeRepo:   recipeRepo,
	}
}

// addRecipe registers a one-line recipe deducting quantityPerSale stock units
// of the given item per unit sold.
func (e *posTestEnv) addRecipe(t *testing.T, storeID, productID uuid.UUID, item *inventory.InventoryItem, quantityPerSale int64) {
	t.Helper()
	rec, err := recipe.NewRecipe(storeID, productID, decimal.NewFromInt(1))
	require.NoError(t, err)
	itemID := item.ID
	line, err := recipe.NewIngredientLine(
		item.Name, &itemID,
		decimal.NewFromInt(quantityPerSale), item.Unit.Code(), decimal.NewFromInt(1),
	)
	require.NoError(t, err)
	require.NoError(t, rec.AddLine(line))
	e.recipeRepo.recipes[productID] = rec
}

func saleBody(transactionID string, productID uuid.UUID, quantity int64) gin.H {
	return gin.H{
		"transaction_id": transactionID,
		"lines": []gin.H{
			{"product_id": productID.String(), "quantity": quantity},
		},
	}
}

func TestPOSHandler_CommitSale(t *testing.T) {
	env := setupPOSTestHandler()
	storeID := uuid.New()
	productID := uuid.New()

	item := createTestItem(storeID, "Espresso Beans", 10)
	env.itemRepo.items[item.ID] = item
	env.addRecipe(t, storeID, productID, item, 2)

	t.Run("deducts stock and writes ledger", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/sales", saleBody("txn-001", productID, 3), storeID)

		env.handler.CommitSale(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.itemRepo.items[item.ID].Quantity.Equal(decimal.NewFromInt(4)))
		require.Len(t, env.movementRepo.records, 1)
		record := env.movementRepo.records[0]
		assert.Equal(t, inventory.MovementTypeSale, record.MovementType)
		assert.Equal(t, "txn-001", record.ReferenceID)
		assert.True(t, record.QuantityChange.Equal(decimal.NewFromInt(-6)))
	})

	t.Run("resubmitting is a no-op", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/sales", saleBody("txn-001", productID, 3), storeID)

		env.handler.CommitSale(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"already_processed":true`)
		assert.True(t, env.itemRepo.items[item.ID].Quantity.Equal(decimal.NewFromInt(4)))
		assert.Len(t, env.movementRepo.records, 1)
	})

	t.Run("insufficient stock at commit is a conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/sales", saleBody("txn-002", productID, 5), storeID)

		env.handler.CommitSale(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeStockConflict)
		// Nothing deducted, nothing written
		assert.True(t, env.itemRepo.items[item.ID].Quantity.Equal(decimal.NewFromInt(4)))
		assert.Len(t, env.movementRepo.records, 1)
	})

	t.Run("product without recipe proceeds untracked", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/sales", saleBody("txn-003", uuid.New(), 1), storeID)

		env.handler.CommitSale(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "untracked_products")
	})

	t.Run("missing store context", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/sales", saleBody("txn-004", productID, 1), uuid.Nil)

		env.handler.CommitSale(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPOSHandler_CheckAvailability(t *testing.T) {
	env := setupPOSTestHandler()
	storeID := uuid.New()
	productID := uuid.New()

	item := createTestItem(storeID, "Milk", 4)
	env.itemRepo.items[item.ID] = item
	env.addRecipe(t, storeID, productID, item, 2)

	t.Run("available", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/availability", gin.H{
			"lines": []gin.H{{"product_id": productID.String(), "quantity": 2}},
		}, storeID)

		env.handler.CheckAvailability(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"available":true`)
	})

	t.Run("shortfall", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/availability", gin.H{
			"lines": []gin.H{{"product_id": productID.String(), "quantity": 5}},
		}, storeID)

		env.handler.CheckAvailability(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"available":false`)
		assert.Contains(t, w.Body.String(), "Milk")
	})
}

func TestPOSHandler_Queue(t *testing.T) {
	env := setupPOSTestHandler()
	storeID := uuid.New()
	productID := uuid.New()

	item := createTestItem(storeID, "Beans", 100)
	env.itemRepo.items[item.ID] = item
	env.addRecipe(t, storeID, productID, item, 1)

	enqueue := func(t *testing.T, transactionID string, quantity int64) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		body := saleBody(transactionID, productID, quantity)
		body["sale_at"] = time.Now().UTC().Format(time.RFC3339)
		c := newStoreContext(w, http.MethodPost, "/pos/queue", body, storeID)
		env.handler.EnqueueSale(c)
		return w
	}

	t.Run("enqueue assigns sequence", func(t *testing.T) {
		w := enqueue(t, "off-001", 2)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = enqueue(t, "off-002", 3)
		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		entry := resp.Data.(map[string]any)
		assert.Equal(t, float64(2), entry["seq"])
	})

	t.Run("duplicate transaction rejected", func(t *testing.T) {
		w := enqueue(t, "off-001", 2)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("list pending", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodGet, "/pos/queue", nil, storeID)
		env.handler.ListQueue(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "off-001")
		assert.Contains(t, w.Body.String(), "off-002")
	})

	t.Run("replay applies FIFO and deducts", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/queue/replay", nil, storeID)
		env.handler.ReplayQueue(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		report := resp.Data.(map[string]any)
		assert.Equal(t, float64(2), report["attempted"])
		assert.Equal(t, float64(2), report["applied"])
		assert.Equal(t, float64(0), report["conflicted"])

		// 2 + 3 stock units consumed across the two entries
		assert.True(t, env.itemRepo.items[item.ID].Quantity.Equal(decimal.NewFromInt(95)))
	})

	t.Run("replayed entries leave the pending queue", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodGet, "/pos/queue", nil, storeID)
		env.handler.ListQueue(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "off-001")
	})

	t.Run("cancel pending entry", func(t *testing.T) {
		w := enqueue(t, "off-cancel", 1)
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		c := newStoreContext(w, http.MethodDelete, "/pos/queue/off-cancel", nil, storeID)
		c.Params = gin.Params{{Key: "transaction_id", Value: "off-cancel"}}
		env.handler.CancelQueued(c)
		c.Writer.WriteHeaderNow() // status-only responses flush lazily outside the engine

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestPOSHandler_QueueConflicts(t *testing.T) {
	env := setupPOSTestHandler()
	storeID := uuid.New()
	productID := uuid.New()

	item := createTestItem(storeID, "Beans", 1)
	env.itemRepo.items[item.ID] = item
	env.addRecipe(t, storeID, productID, item, 1)

	// Enqueue more than available so replay conflicts
	w := httptest.NewRecorder()
	body := saleBody("off-big", productID, 5)
	c := newStoreContext(w, http.MethodPost, "/pos/queue", body, storeID)
	env.handler.EnqueueSale(c)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	c = newStoreContext(w, http.MethodPost, "/pos/queue/replay", nil, storeID)
	env.handler.ReplayQueue(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conflicted":1`)

	t.Run("conflicted entries are listed", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodGet, "/pos/queue?status=conflicted", nil, storeID)
		env.handler.ListQueue(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "off-big")
	})

	t.Run("conflicted entry cannot be cancelled", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodDelete, "/pos/queue/off-big", nil, storeID)
		c.Params = gin.Params{{Key: "transaction_id", Value: "off-big"}}
		env.handler.CancelQueued(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("resolve settles the conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		c := newStoreContext(w, http.MethodPost, "/pos/queue/off-big/resolve", nil, storeID)
		c.Params = gin.Params{{Key: "transaction_id", Value: "off-big"}}
		env.handler.ResolveConflict(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), string(inventory.ReplayStatusResolved))
	})
}
