package pos

import (
	"context"
	"time"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockRecipeRepository is a mock implementation of recipe.Repository
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) FindActiveByProduct(ctx context.Context, storeID, productID uuid.UUID, variationID *uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, storeID, productID, variationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) FindByStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]recipe.Recipe, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).([]recipe.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) FindForeignLines(ctx context.Context, storeID uuid.UUID) ([]recipe.IngredientLine, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]recipe.IngredientLine), args.Error(1)
}

func (m *MockRecipeRepository) UpdateLineMapping(ctx context.Context, lineID, itemID uuid.UUID) error {
	args := m.Called(ctx, lineID, itemID)
	return args.Error(0)
}

// MockItemRepository is a mock implementation of inventory.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindByIDForStore(ctx context.Context, storeID, id uuid.UUID) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, storeID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindByStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindByNormalizedName(ctx context.Context, storeID uuid.UUID, normalizedName string) (*inventory.InventoryItem, error) {
	args := m.Called(ctx, storeID, normalizedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindBelowMinimum(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).([]inventory.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) DecrementStock(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	args := m.Called(ctx, itemID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockChange), args.Error(1)
}

func (m *MockItemRepository) IncrementStock(ctx context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	args := m.Called(ctx, itemID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockChange), args.Error(1)
}

func (m *MockItemRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockMovementRepository is a mock implementation of inventory.MovementRepository
type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) Create(ctx context.Context, record *inventory.MovementRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMovementRepository) CreateBatch(ctx context.Context, records []*inventory.MovementRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockMovementRepository) ExistsByReferenceAndItem(ctx context.Context, referenceID string, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, referenceID, itemID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMovementRepository) FindByReference(ctx context.Context, referenceID string) ([]inventory.MovementRecord, error) {
	args := m.Called(ctx, referenceID)
	return args.Get(0).([]inventory.MovementRecord), args.Error(1)
}

func (m *MockMovementRepository) FindForStore(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) ([]inventory.MovementRecord, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).([]inventory.MovementRecord), args.Error(1)
}

func (m *MockMovementRepository) CountForStore(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) (int64, error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockQueueRepository is a mock implementation of inventory.QueueRepository
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Enqueue(ctx context.Context, qd *inventory.QueuedDeduction) error {
	args := m.Called(ctx, qd)
	return args.Error(0)
}

func (m *MockQueueRepository) FindByTransactionID(ctx context.Context, transactionID string) (*inventory.QueuedDeduction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.QueuedDeduction), args.Error(1)
}

func (m *MockQueueRepository) FindPendingForStore(ctx context.Context, storeID uuid.UUID) ([]inventory.QueuedDeduction, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]inventory.QueuedDeduction), args.Error(1)
}

func (m *MockQueueRepository) FindConflictedForStore(ctx context.Context, storeID uuid.UUID) ([]inventory.QueuedDeduction, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]inventory.QueuedDeduction), args.Error(1)
}

func (m *MockQueueRepository) StoresWithPending(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockQueueRepository) Update(ctx context.Context, qd *inventory.QueuedDeduction) error {
	args := m.Called(ctx, qd)
	return args.Error(0)
}

func (m *MockQueueRepository) DeletePending(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, transactionID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, transactionID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, transactionID string) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
