package handler

import (
	"context"
	"sort"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/recipe"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Map-backed repository fakes for handler tests

type mockItemRepository struct {
	items     map[uuid.UUID]*inventory.InventoryItem
	returnErr error
}

func newMockItemRepository() *mockItemRepository {
	return &mockItemRepository{items: make(map[uuid.UUID]*inventory.InventoryItem)}
}

func (m *mockItemRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockItemRepository) FindByIDForStore(_ context.Context, storeID, id uuid.UUID) (*inventory.InventoryItem, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if item, ok := m.items[id]; ok && item.StoreID == storeID {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockItemRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]inventory.InventoryItem, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	result := make([]inventory.InventoryItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *mockItemRepository) FindByStore(_ context.Context, storeID uuid.UUID, _ shared.Filter) ([]inventory.InventoryItem, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []inventory.InventoryItem
	for _, item := range m.items {
		if item.StoreID == storeID {
			result = append(result, *item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockItemRepository) FindByNormalizedName(_ context.Context, storeID uuid.UUID, normalizedName string) (*inventory.InventoryItem, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	for _, item := range m.items {
		if item.StoreID == storeID && item.Active && inventory.NormalizeName(item.Name) == normalizedName {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockItemRepository) FindBelowMinimum(_ context.Context, storeID uuid.UUID, _ shared.Filter) ([]inventory.InventoryItem, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []inventory.InventoryItem
	for _, item := range m.items {
		if item.StoreID == storeID && item.Active && item.IsBelowMinimum() {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *mockItemRepository) Save(_ context.Context, item *inventory.InventoryItem) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockItemRepository) SaveWithLock(_ context.Context, item *inventory.InventoryItem) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockItemRepository) DecrementStock(_ context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	item, ok := m.items[itemID]
	if !ok || !item.Active {
		return nil, shared.ErrNotFound
	}
	if item.Quantity.LessThan(delta) {
		return nil, shared.ErrInsufficientStock
	}
	previous := item.Quantity
	item.Quantity = item.Quantity.Sub(delta)
	return &inventory.StockChange{Previous: previous, New: item.Quantity}, nil
}

func (m *mockItemRepository) IncrementStock(_ context.Context, itemID uuid.UUID, delta decimal.Decimal) (*inventory.StockChange, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	item, ok := m.items[itemID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	previous := item.Quantity
	item.Quantity = item.Quantity.Add(delta)
	return &inventory.StockChange{Previous: previous, New: item.Quantity}, nil
}

func (m *mockItemRepository) CountForStore(_ context.Context, storeID uuid.UUID, _ shared.Filter) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	var count int64
	for _, item := range m.items {
		if item.StoreID == storeID {
			count++
		}
	}
	return count, nil
}

type mockMovementRepository struct {
	records   []inventory.MovementRecord
	returnErr error
}

func newMockMovementRepository() *mockMovementRepository {
	return &mockMovementRepository{}
}

func (m *mockMovementRepository) Create(_ context.Context, record *inventory.MovementRecord) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *mockMovementRepository) CreateBatch(_ context.Context, records []*inventory.MovementRecord) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	for _, r := range records {
		m.records = append(m.records, *r)
	}
	return nil
}

func (m *mockMovementRepository) ExistsByReferenceAndItem(_ context.Context, referenceID string, itemID uuid.UUID) (bool, error) {
	if m.returnErr != nil {
		return false, m.returnErr
	}
	for i := range m.records {
		if m.records[i].ReferenceID == referenceID && m.records[i].InventoryItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMovementRepository) FindByReference(_ context.Context, referenceID string) ([]inventory.MovementRecord, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []inventory.MovementRecord
	for i := range m.records {
		if m.records[i].ReferenceID == referenceID {
			result = append(result, m.records[i])
		}
	}
	return result, nil
}

func (m *mockMovementRepository) FindForStore(_ context.Context, storeID uuid.UUID, _ inventory.MovementFilter) ([]inventory.MovementRecord, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []inventory.MovementRecord
	for i := range m.records {
		if m.records[i].StoreID == storeID {
			result = append(result, m.records[i])
		}
	}
	return result, nil
}

func (m *mockMovementRepository) CountForStore(_ context.Context, storeID uuid.UUID, _ inventory.MovementFilter) (int64, error) {
	if m.returnErr != nil {
		return 0, m.returnErr
	}
	var count int64
	for i := range m.records {
		if m.records[i].StoreID == storeID {
			count++
		}
	}
	return count, nil
}

type mockQueueRepository struct {
	entries   map[string]*inventory.QueuedDeduction
	nextSeq   int64
	returnErr error
}

func newMockQueueRepository() *mockQueueRepository {
	return &mockQueueRepository{entries: make(map[string]*inventory.QueuedDeduction)}
}

func (m *mockQueueRepository) Enqueue(_ context.Context, qd *inventory.QueuedDeduction) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	if _, exists := m.entries[qd.TransactionID]; exists {
		return shared.NewDomainError("ALREADY_EXISTS", "Transaction already queued")
	}
	m.nextSeq++
	qd.Seq = m.nextSeq
	m.entries[qd.TransactionID] = qd
	return nil
}

func (m *mockQueueRepository) FindByTransactionID(_ context.Context, transactionID string) (*inventory.QueuedDeduction, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if qd, ok := m.entries[transactionID]; ok {
		return qd, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockQueueRepository) findByStatus(storeID uuid.UUID, status inventory.ReplayStatus) []inventory.QueuedDeduction {
	var result []inventory.QueuedDeduction
	for _, qd := range m.entries {
		if qd.StoreID == storeID && qd.Status == status {
			result = append(result, *qd)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result
}

func (m *mockQueueRepository) FindPendingForStore(_ context.Context, storeID uuid.UUID) ([]inventory.QueuedDeduction, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return m.findByStatus(storeID, inventory.ReplayStatusPending), nil
}

func (m *mockQueueRepository) FindConflictedForStore(_ context.Context, storeID uuid.UUID) ([]inventory.QueuedDeduction, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return m.findByStatus(storeID, inventory.ReplayStatusConflicted), nil
}

func (m *mockQueueRepository) StoresWithPending(_ context.Context) ([]uuid.UUID, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	seen := make(map[uuid.UUID]bool)
	var storeIDs []uuid.UUID
	for _, qd := range m.entries {
		if qd.Status == inventory.ReplayStatusPending && !seen[qd.StoreID] {
			seen[qd.StoreID] = true
			storeIDs = append(storeIDs, qd.StoreID)
		}
	}
	return storeIDs, nil
}

func (m *mockQueueRepository) Update(_ context.Context, qd *inventory.QueuedDeduction) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	m.entries[qd.TransactionID] = qd
	return nil
}

func (m *mockQueueRepository) DeletePending(_ context.Context, transactionID string) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	qd, ok := m.entries[transactionID]
	if !ok {
		return shared.ErrNotFound
	}
	if qd.Status != inventory.ReplayStatusPending {
		return shared.ErrInvalidState
	}
	delete(m.entries, transactionID)
	return nil
}

type mockRecipeRepository struct {
	recipes   map[uuid.UUID]*recipe.Recipe // keyed by product ID
	returnErr error
}

func newMockRecipeRepository() *mockRecipeRepository {
	return &mockRecipeRepository{recipes: make(map[uuid.UUID]*recipe.Recipe)}
}

func (m *mockRecipeRepository) FindByID(_ context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	for _, r := range m.recipes {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRecipeRepository) FindActiveByProduct(_ context.Context, storeID, productID uuid.UUID, _ *uuid.UUID) (*recipe.Recipe, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	if r, ok := m.recipes[productID]; ok && r.StoreID == storeID && r.Active {
		return r, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockRecipeRepository) FindByStore(_ context.Context, storeID uuid.UUID, _ shared.Filter) ([]recipe.Recipe, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	var result []recipe.Recipe
	for _, r := range m.recipes {
		if r.StoreID == storeID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRecipeRepository) FindForeignLines(_ context.Context, _ uuid.UUID) ([]recipe.IngredientLine, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return nil, nil
}

func (m *mockRecipeRepository) UpdateLineMapping(_ context.Context, lineID, itemID uuid.UUID) error {
	if m.returnErr != nil {
		return m.returnErr
	}
	for _, r := range m.recipes {
		for i := range r.Lines {
			if r.Lines[i].ID == lineID {
				id := itemID
				r.Lines[i].InventoryItemID = &id
				return nil
			}
		}
	}
	return shared.ErrNotFound
}
