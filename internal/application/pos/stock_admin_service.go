package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockAdminService covers the legitimate ledger writers besides sales:
// stock-count adjustments, receiving, and store-to-store transfers. Every
// operation writes its offsetting MovementRecord in the same transaction as
// the balance change.
type StockAdminService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewStockAdminService creates a new StockAdminService
func NewStockAdminService(scope TransactionScope, logger *zap.Logger) *StockAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockAdminService{scope: scope, logger: logger}
}

// Adjust sets an item's quantity to the physically counted value and records
// the signed difference as an adjustment ledger row. Counting the quantity
// already on the books writes nothing.
func (s *StockAdminService) Adjust(ctx context.Context, cmd AdjustStockCommand) (*MovementResponse, error) {
	referenceID := cmd.ReferenceID
	if referenceID == "" {
		referenceID = "ADJ-" + uuid.NewString()
	}

	var response *MovementResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByIDForStore(ctx, cmd.StoreID, cmd.ItemID)
		if err != nil {
			return err
		}

		previous := item.Quantity
		difference, err := item.Adjust(cmd.ActualQuantity, cmd.Reason)
		if err != nil {
			return err
		}
		if difference.IsZero() {
			return nil
		}
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}

		record, err := inventory.NewMovementRecord(
			cmd.StoreID, item.ID, inventory.MovementTypeAdjustment,
			difference, previous, referenceID,
		)
		if err != nil {
			return err
		}
		record.WithNotes(cmd.Reason)
		if cmd.ActorID != nil {
			record.WithActor(*cmd.ActorID)
		}
		if err := repos.MovementRepo().Create(ctx, record); err != nil {
			return err
		}

		resp := ToMovementResponse(record)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if response == nil {
		s.logger.Info("Adjustment matched book quantity; nothing recorded",
			zap.String("item_id", cmd.ItemID.String()))
		return nil, nil
	}
	s.logger.Info("Stock adjusted",
		zap.String("item_id", cmd.ItemID.String()),
		zap.String("change", response.QuantityChange.String()),
		zap.String("reason", cmd.Reason))
	return response, nil
}

// Restock receives purchased stock, updating the item's moving average cost
// and appending a restock ledger row.
func (s *StockAdminService) Restock(ctx context.Context, cmd RestockCommand) (*MovementResponse, error) {
	referenceID := cmd.ReferenceID
	if referenceID == "" {
		referenceID = "RCV-" + uuid.NewString()
	}

	var response *MovementResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByIDForStore(ctx, cmd.StoreID, cmd.ItemID)
		if err != nil {
			return err
		}

		previous := item.Quantity
		if err := item.Restock(cmd.Quantity, cmd.UnitCost); err != nil {
			return err
		}
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}

		record, err := inventory.NewMovementRecord(
			cmd.StoreID, item.ID, inventory.MovementTypeRestock,
			cmd.Quantity, previous, referenceID,
		)
		if err != nil {
			return err
		}
		if cmd.Notes != "" {
			record.WithNotes(cmd.Notes)
		}
		if cmd.ActorID != nil {
			record.WithActor(*cmd.ActorID)
		}
		if err := repos.MovementRepo().Create(ctx, record); err != nil {
			return err
		}

		resp := ToMovementResponse(record)
		response = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock received",
		zap.String("item_id", cmd.ItemID.String()),
		zap.String("quantity", cmd.Quantity.String()))
	return response, nil
}

// Transfer moves stock between stores: a guarded decrement plus TRANSFER_OUT
// row on the source item and an increment plus TRANSFER_IN row on the
// destination item, all in one transaction sharing one reference ID. The two
// items must use the same canonical unit.
func (s *StockAdminService) Transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	if cmd.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transfer quantity must be positive")
	}
	if cmd.FromStoreID == cmd.ToStoreID && cmd.FromItemID == cmd.ToItemID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Source and destination are the same item")
	}
	referenceID := cmd.ReferenceID
	if referenceID == "" {
		referenceID = "TRF-" + uuid.NewString()
	}

	var result *TransferResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, err := repos.ItemRepo().FindByIDForStore(ctx, cmd.FromStoreID, cmd.FromItemID)
		if err != nil {
			return fmt.Errorf("source item: %w", err)
		}
		dest, err := repos.ItemRepo().FindByIDForStore(ctx, cmd.ToStoreID, cmd.ToItemID)
		if err != nil {
			return fmt.Errorf("destination item: %w", err)
		}
		if !source.Unit.Equals(dest.Unit) {
			return shared.NewDomainError("UNIT_MISMATCH", "Source and destination items use different canonical units")
		}

		outChange, err := repos.ItemRepo().DecrementStock(ctx, source.ID, cmd.Quantity)
		if err != nil {
			if errors.Is(err, shared.ErrInsufficientStock) {
				return &inventory.InsufficientStockError{
					ItemID:    source.ID,
					ItemName:  source.Name,
					Requested: cmd.Quantity,
					Available: source.Quantity,
				}
			}
			return err
		}
		inChange, err := repos.ItemRepo().IncrementStock(ctx, dest.ID, cmd.Quantity)
		if err != nil {
			return err
		}

		outRecord, err := inventory.NewMovementRecord(
			cmd.FromStoreID, source.ID, inventory.MovementTypeTransferOut,
			cmd.Quantity.Neg(), outChange.Previous, referenceID,
		)
		if err != nil {
			return err
		}
		inRecord, err := inventory.NewMovementRecord(
			cmd.ToStoreID, dest.ID, inventory.MovementTypeTransferIn,
			cmd.Quantity, inChange.Previous, referenceID,
		)
		if err != nil {
			return err
		}
		for _, record := range []*inventory.MovementRecord{outRecord, inRecord} {
			if cmd.Notes != "" {
				record.WithNotes(cmd.Notes)
			}
			if cmd.ActorID != nil {
				record.WithActor(*cmd.ActorID)
			}
		}
		if err := repos.MovementRepo().CreateBatch(ctx, []*inventory.MovementRecord{outRecord, inRecord}); err != nil {
			return err
		}

		result = &TransferResult{
			ReferenceID: referenceID,
			Outbound:    ToMovementResponse(outRecord),
			Inbound:     ToMovementResponse(inRecord),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock transferred",
		zap.String("reference_id", referenceID),
		zap.String("from_item", cmd.FromItemID.String()),
		zap.String("to_item", cmd.ToItemID.String()),
		zap.String("quantity", cmd.Quantity.String()))
	return result, nil
}
