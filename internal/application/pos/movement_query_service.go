package pos

import (
	"context"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MovementQueryService serves read-only views over the movement ledger and
// the items it tracks.
type MovementQueryService struct {
	movementRepo inventory.MovementRepository
	itemRepo     inventory.ItemRepository
	logger       *zap.Logger
}

// NewMovementQueryService creates a new MovementQueryService
func NewMovementQueryService(
	movementRepo inventory.MovementRepository,
	itemRepo inventory.ItemRepository,
	logger *zap.Logger,
) *MovementQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MovementQueryService{
		movementRepo: movementRepo,
		itemRepo:     itemRepo,
		logger:       logger,
	}
}

// QueryMovements returns a page of a store's ledger, newest first unless the
// query asks for ascending order.
func (s *MovementQueryService) QueryMovements(ctx context.Context, storeID uuid.UUID, query MovementQuery) (*shared.Paginated[MovementResponse], error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	orderDir := query.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	filter := inventory.MovementFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  "occurred_at",
			OrderDir: orderDir,
		},
		InventoryItemID: query.InventoryItemID,
		ReferenceID:     query.ReferenceID,
		StartDate:       query.StartDate,
		EndDate:         query.EndDate,
	}
	if query.MovementType != "" {
		mt := inventory.MovementType(query.MovementType)
		if !mt.IsValid() {
			return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
		}
		filter.MovementType = &mt
	}

	records, err := s.movementRepo.FindForStore(ctx, storeID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.movementRepo.CountForStore(ctx, storeID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]MovementResponse, 0, len(records))
	for i := range records {
		responses = append(responses, ToMovementResponse(&records[i]))
	}
	page := shared.NewPaginated(responses, total, query.Page, query.PageSize)
	return &page, nil
}

// FindByTransaction returns every ledger row a transaction wrote, in creation order.
func (s *MovementQueryService) FindByTransaction(ctx context.Context, referenceID string) ([]MovementResponse, error) {
	if referenceID == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Reference ID cannot be empty")
	}
	records, err := s.movementRepo.FindByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	responses := make([]MovementResponse, 0, len(records))
	for i := range records {
		responses = append(responses, ToMovementResponse(&records[i]))
	}
	return responses, nil
}

// LowStockItems returns the store's items at or below their minimum threshold.
func (s *MovementQueryService) LowStockItems(ctx context.Context, storeID uuid.UUID, filter shared.Filter) ([]ItemResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}

	items, err := s.itemRepo.FindBelowMinimum(ctx, storeID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]ItemResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToItemResponse(&items[i]))
	}
	return responses, nil
}
