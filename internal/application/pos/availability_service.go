package pos

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// AvailabilityService answers "can this cart be fulfilled right now". The
// answer is advisory: it reads current balances without locking, so it can go
// stale between check and commit. The authoritative check is the guarded
// decrement inside the deduction executor.
type AvailabilityService struct {
	resolver *RecipeResolver
	logger   *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(resolver *RecipeResolver, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{resolver: resolver, logger: logger}
}

// Check resolves the cart and compares aggregated requirements against
// on-hand balances. Insufficient items are reported largest shortfall first,
// then item name ascending, so repeated runs over the same state produce the
// same ordering.
func (s *AvailabilityService) Check(ctx context.Context, query AvailabilityQuery) (*AvailabilityResponse, error) {
	resolution, err := s.resolver.Resolve(ctx, query.StoreID, query.Lines)
	if err != nil {
		return nil, err
	}

	shortfalls := make([]ShortfallItem, 0)
	for i := range resolution.Requirements {
		req := &resolution.Requirements[i]
		if req.Item.CanFulfill(req.StockQuantity) {
			continue
		}
		shortfalls = append(shortfalls, ShortfallItem{
			InventoryItemID: req.Item.ID,
			ItemName:        req.Item.Name,
			UnitCode:        req.Item.Unit.Code(),
			Required:        req.StockQuantity,
			Available:       req.Item.Quantity,
			Shortfall:       req.StockQuantity.Sub(req.Item.Quantity),
		})
	}

	sort.Slice(shortfalls, func(a, b int) bool {
		if !shortfalls[a].Shortfall.Equal(shortfalls[b].Shortfall) {
			return shortfalls[a].Shortfall.GreaterThan(shortfalls[b].Shortfall)
		}
		return shortfalls[a].ItemName < shortfalls[b].ItemName
	})

	if len(shortfalls) > 0 {
		s.logger.Info("Availability check found shortfalls",
			zap.String("store_id", query.StoreID.String()),
			zap.Int("shortfall_count", len(shortfalls)))
	}

	return &AvailabilityResponse{
		Available:         len(shortfalls) == 0,
		Shortfalls:        shortfalls,
		UntrackedProducts: resolution.UntrackedProducts,
	}, nil
}
