package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DeductionService commits sales against inventory: atomic per sale,
// idempotent per transaction ID, never driving a balance negative.
//
// The write path is strictly guarded decrements inside one database
// transaction, with items touched in sorted ID order so two concurrent sales
// over the same items cannot deadlock. Per-item idempotency is a ledger
// lookup on the reference ID, which makes a partially applied transaction
// (crash mid-commit is rolled back, crash between commit and acknowledgement
// is not) safe to resubmit. The idempotency store in front is only a cheap
// short-circuit; the ledger stays authoritative.
type DeductionService struct {
	scope           TransactionScope
	resolver        *RecipeResolver
	movementRepo    inventory.MovementRepository
	idempotency     shared.IdempotencyStore
	idempotencyCfg  shared.IdempotencyConfig
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewDeductionService creates a new DeductionService
func NewDeductionService(
	scope TransactionScope,
	resolver *RecipeResolver,
	movementRepo inventory.MovementRepository,
	logger *zap.Logger,
) *DeductionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeductionService{
		scope:          scope,
		resolver:       resolver,
		movementRepo:   movementRepo,
		idempotencyCfg: shared.DefaultIdempotencyConfig(),
		logger:         logger,
	}
}

// SetIdempotencyStore sets the TTL'd fast-path store for duplicate detection
func (s *DeductionService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idempotencyCfg = cfg
}

// SetBusinessMetrics sets the business metrics collector
func (s *DeductionService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// CommitSale deducts inventory for one sale transaction.
//
// Requirements are resolved outside the transaction (recipes are read-only
// here), then applied inside a single transaction: for each required item, a
// ledger row for this transaction ID means the item was already deducted and
// is skipped; otherwise the guarded decrement runs and a sale MovementRecord
// is appended. A failed guard anywhere rolls the whole sale back and reports
// the limiting item via InsufficientStockError. Committing the same
// transaction ID again is a no-op reporting AlreadyProcessed.
func (s *DeductionService) CommitSale(ctx context.Context, cmd SaleCommand) (*SaleResult, error) {
	if cmd.TransactionID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}

	if s.idempotency != nil && s.idempotencyCfg.Enabled {
		processed, err := s.idempotency.IsProcessed(ctx, cmd.TransactionID)
		if err != nil {
			// The store is an optimization; fall through to the ledger check.
			s.logger.Warn("Idempotency store lookup failed",
				zap.String("transaction_id", cmd.TransactionID), zap.Error(err))
		} else if processed {
			return s.alreadyProcessedResult(ctx, cmd.TransactionID)
		}
	}

	resolution, err := s.resolver.Resolve(ctx, cmd.StoreID, cmd.Lines)
	if err != nil {
		return nil, err
	}

	result := &SaleResult{
		TransactionID:     cmd.TransactionID,
		Movements:         make([]AppliedMovement, 0, len(resolution.Requirements)),
		UntrackedProducts: resolution.UntrackedProducts,
	}

	if len(resolution.Requirements) == 0 {
		// Nothing to deduct (every product untracked). Mark the transaction
		// processed so resubmissions short-circuit.
		s.markProcessed(ctx, cmd.TransactionID)
		return result, nil
	}

	skipped := 0
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range resolution.Requirements {
			req := &resolution.Requirements[i]

			exists, err := repos.MovementRepo().ExistsByReferenceAndItem(ctx, cmd.TransactionID, req.Item.ID)
			if err != nil {
				return fmt.Errorf("ledger idempotency check for item %s: %w", req.Item.ID, err)
			}
			if exists {
				skipped++
				continue
			}

			change, err := repos.ItemRepo().DecrementStock(ctx, req.Item.ID, req.StockQuantity)
			if err != nil {
				if errors.Is(err, shared.ErrInsufficientStock) {
					available := req.Item.Quantity
					if fresh, ferr := repos.ItemRepo().FindByID(ctx, req.Item.ID); ferr == nil {
						available = fresh.Quantity
					}
					return &inventory.InsufficientStockError{
						ItemID:    req.Item.ID,
						ItemName:  req.Item.Name,
						Requested: req.StockQuantity,
						Available: available,
					}
				}
				return fmt.Errorf("decrement stock for item %s: %w", req.Item.ID, err)
			}

			record, err := inventory.NewMovementRecord(
				cmd.StoreID,
				req.Item.ID,
				inventory.MovementTypeSale,
				req.StockQuantity.Neg(),
				change.Previous,
				cmd.TransactionID,
			)
			if err != nil {
				return fmt.Errorf("build movement record for item %s: %w", req.Item.ID, err)
			}
			if cmd.ActorID != nil {
				record.WithActor(*cmd.ActorID)
			}
			if !cmd.SaleAt.IsZero() {
				record.WithOccurredAt(cmd.SaleAt)
			}
			if err := repos.MovementRepo().Create(ctx, record); err != nil {
				return fmt.Errorf("append movement record for item %s: %w", req.Item.ID, err)
			}

			result.Movements = append(result.Movements, AppliedMovement{
				InventoryItemID:  req.Item.ID,
				ItemName:         req.Item.Name,
				QuantityChange:   record.QuantityChange,
				PreviousQuantity: change.Previous,
				NewQuantity:      change.New,
			})
		}
		return nil
	})
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Info("Sale rejected at commit: insufficient stock",
				zap.String("transaction_id", cmd.TransactionID),
				zap.String("store_id", cmd.StoreID.String()),
				zap.String("item_name", stockErr.ItemName),
				zap.String("requested", stockErr.Requested.String()),
				zap.String("available", stockErr.Available.String()))
			if s.businessMetrics != nil {
				s.businessMetrics.RecordSaleConflict(ctx, cmd.StoreID)
			}
		}
		return nil, err
	}

	// Every required item already had a ledger row: the transaction was fully
	// applied before and this run wrote nothing.
	result.AlreadyProcessed = skipped == len(resolution.Requirements)

	s.markProcessed(ctx, cmd.TransactionID)
	if s.businessMetrics != nil && !result.AlreadyProcessed {
		s.businessMetrics.RecordSaleCommitted(ctx, cmd.StoreID, len(result.Movements))
	}
	s.logger.Info("Sale committed",
		zap.String("transaction_id", cmd.TransactionID),
		zap.String("store_id", cmd.StoreID.String()),
		zap.Int("movements", len(result.Movements)),
		zap.Int("skipped", skipped),
		zap.Bool("already_processed", result.AlreadyProcessed))

	return result, nil
}

// alreadyProcessedResult rebuilds a SaleResult from the ledger for a
// transaction the fast path recognized as a duplicate.
func (s *DeductionService) alreadyProcessedResult(ctx context.Context, transactionID string) (*SaleResult, error) {
	records, err := s.movementRepo.FindByReference(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load movements for transaction %s: %w", transactionID, err)
	}
	result := &SaleResult{
		TransactionID:    transactionID,
		AlreadyProcessed: true,
		Movements:        make([]AppliedMovement, 0, len(records)),
	}
	for i := range records {
		rec := &records[i]
		result.Movements = append(result.Movements, AppliedMovement{
			InventoryItemID:  rec.InventoryItemID,
			QuantityChange:   rec.QuantityChange,
			PreviousQuantity: rec.PreviousQuantity,
			NewQuantity:      rec.NewQuantity,
		})
	}
	return result, nil
}

func (s *DeductionService) markProcessed(ctx context.Context, transactionID string) {
	if s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, transactionID, s.idempotencyCfg.TTL); err != nil {
		s.logger.Warn("Failed to mark transaction in idempotency store",
			zap.String("transaction_id", transactionID), zap.Error(err))
	}
}
