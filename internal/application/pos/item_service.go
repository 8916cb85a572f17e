package pos

import (
	"context"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateItemCommand registers a new stock-keeping item in a store
type CreateItemCommand struct {
	StoreID     uuid.UUID       `json:"-"`
	Name        string          `json:"name" binding:"required,min=1,max=120"`
	UnitCode    string          `json:"unit_code" binding:"required,min=1,max=20"`
	UnitName    string          `json:"unit_name" binding:"required,min=1,max=50"`
	Fractional  bool            `json:"fractional"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
}

// UpdateItemCommand changes an item's descriptive fields. Quantity is never
// set here; balances change only through deductions, restocks, adjustments
// and transfers, each of which writes a ledger row.
type UpdateItemCommand struct {
	StoreID     uuid.UUID        `json:"-"`
	ItemID      uuid.UUID        `json:"-"`
	Name        *string          `json:"name" binding:"omitempty,min=1,max=120"`
	MinQuantity *decimal.Decimal `json:"min_quantity"`
}

// ItemService manages the inventory item catalog of a store
type ItemService struct {
	itemRepo inventory.ItemRepository
	logger   *zap.Logger
}

// NewItemService creates a new ItemService
func NewItemService(itemRepo inventory.ItemRepository, logger *zap.Logger) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{itemRepo: itemRepo, logger: logger}
}

// List returns a page of a store's items plus the total count
func (s *ItemService) List(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]ItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}

	items, err := s.itemRepo.FindByStore(ctx, storeID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.itemRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToItemResponse(&items[i]))
	}
	return responses, total, nil
}

// Get returns one item scoped to the store
func (s *ItemService) Get(ctx context.Context, storeID, itemID uuid.UUID) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByIDForStore(ctx, storeID, itemID)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// Create registers a new item with zero stock. Initial stock arrives through
// a restock so the ledger explains every balance from the first unit.
func (s *ItemService) Create(ctx context.Context, cmd CreateItemCommand) (*ItemResponse, error) {
	unit, err := valueobject.NewUnit(cmd.UnitCode, cmd.UnitName, cmd.Fractional)
	if err != nil {
		return nil, err
	}

	item, err := inventory.NewInventoryItem(cmd.StoreID, cmd.Name, unit)
	if err != nil {
		return nil, err
	}
	if cmd.MinQuantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Minimum quantity cannot be negative")
	}
	item.MinQuantity = cmd.MinQuantity

	if err := s.itemRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info("Inventory item created",
		zap.String("item_id", item.ID.String()),
		zap.String("store_id", cmd.StoreID.String()),
		zap.String("name", item.Name))

	resp := ToItemResponse(item)
	return &resp, nil
}

// Update changes an item's name or low-stock threshold under optimistic locking
func (s *ItemService) Update(ctx context.Context, cmd UpdateItemCommand) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByIDForStore(ctx, cmd.StoreID, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		if *cmd.Name == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
		}
		item.Name = *cmd.Name
	}
	if cmd.MinQuantity != nil {
		if cmd.MinQuantity.IsNegative() {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Minimum quantity cannot be negative")
		}
		item.MinQuantity = *cmd.MinQuantity
	}

	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// Deactivate retires an item from sale deductions. Its ledger history stays.
func (s *ItemService) Deactivate(ctx context.Context, storeID, itemID uuid.UUID) error {
	item, err := s.itemRepo.FindByIDForStore(ctx, storeID, itemID)
	if err != nil {
		return err
	}
	if !item.Active {
		return nil
	}
	item.Deactivate()
	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return err
	}
	s.logger.Info("Inventory item deactivated",
		zap.String("item_id", itemID.String()),
		zap.String("store_id", storeID.String()))
	return nil
}
