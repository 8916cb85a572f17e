package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafepos/backend/internal/domain/inventory"
	"github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleExecutor commits one sale transaction. Satisfied by DeductionService.
type SaleExecutor interface {
	CommitSale(ctx context.Context, cmd SaleCommand) (*SaleResult, error)
}

// ReplayService owns the offline deduction queue: terminals enqueue sales
// captured while disconnected, and a replay pass applies them FIFO once the
// store is back online.
//
// Each entry commits in its own transaction, so a crash mid-pass leaves
// earlier entries applied and later ones pending; the next pass resumes from
// the first pending entry, and the executor's per-transaction idempotency
// makes re-attempting an entry whose commit landed but whose status update
// did not a harmless no-op. Entries that fail on stock are marked conflicted
// and skipped rather than blocking the entries behind them.
type ReplayService struct {
	queueRepo       inventory.QueueRepository
	executor        SaleExecutor
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewReplayService creates a new ReplayService
func NewReplayService(queueRepo inventory.QueueRepository, executor SaleExecutor, logger *zap.Logger) *ReplayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayService{
		queueRepo: queueRepo,
		executor:  executor,
		logger:    logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *ReplayService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Enqueue durably captures a sale made while offline. The original
// transaction ID is preserved as the idempotency key for eventual replay;
// enqueueing the same transaction twice is rejected.
func (s *ReplayService) Enqueue(ctx context.Context, cmd SaleCommand) (*QueueEntryResponse, error) {
	qd, err := inventory.NewQueuedDeduction(cmd.TransactionID, cmd.StoreID, cmd.Lines, cmd.SaleAt)
	if err != nil {
		return nil, err
	}
	if cmd.ActorID != nil {
		qd.WithActor(*cmd.ActorID)
	}

	if err := s.queueRepo.Enqueue(ctx, qd); err != nil {
		return nil, err
	}

	s.logger.Info("Offline sale enqueued",
		zap.String("transaction_id", qd.TransactionID),
		zap.String("store_id", qd.StoreID.String()),
		zap.Int64("seq", qd.Seq))

	resp := ToQueueEntryResponse(qd)
	return &resp, nil
}

// Replay applies a store's pending queue in enqueue order. Stock conflicts
// isolate the conflicted entry and continue; infrastructure errors stop the
// pass with the remaining entries still pending, so the next pass resumes
// where this one stopped.
func (s *ReplayService) Replay(ctx context.Context, storeID uuid.UUID) (*ReplayReport, error) {
	pending, err := s.queueRepo.FindPendingForStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load pending queue for store %s: %w", storeID, err)
	}

	report := &ReplayReport{Outcomes: make([]ReplayOutcome, 0, len(pending))}
	for i := range pending {
		entry := &pending[i]
		report.Attempted++

		_, err := s.executor.CommitSale(ctx, SaleCommand{
			TransactionID: entry.TransactionID,
			StoreID:       entry.StoreID,
			Lines:         entry.Lines,
			ActorID:       entry.ActorID,
			SaleAt:        entry.SaleAt,
		})
		if err != nil {
			if !isStockConflict(err) {
				// Infrastructure failure: leave the entry pending and stop.
				return report, fmt.Errorf("replay transaction %s: %w", entry.TransactionID, err)
			}

			if terr := entry.MarkConflicted(err.Error()); terr != nil {
				return report, fmt.Errorf("mark transaction %s conflicted: %w", entry.TransactionID, terr)
			}
			if uerr := s.queueRepo.Update(ctx, entry); uerr != nil {
				return report, fmt.Errorf("persist conflict for transaction %s: %w", entry.TransactionID, uerr)
			}
			report.Conflicted++
			report.Outcomes = append(report.Outcomes, ReplayOutcome{
				TransactionID:  entry.TransactionID,
				Seq:            entry.Seq,
				Status:         entry.Status,
				ConflictReason: entry.ConflictReason,
			})
			s.logger.Warn("Replay entry conflicted",
				zap.String("transaction_id", entry.TransactionID),
				zap.String("reason", entry.ConflictReason))
			if s.businessMetrics != nil {
				s.businessMetrics.RecordReplay(ctx, storeID, telemetry.ReplayOutcomeConflicted)
			}
			continue
		}

		if terr := entry.MarkApplied(); terr != nil {
			return report, fmt.Errorf("mark transaction %s applied: %w", entry.TransactionID, terr)
		}
		if uerr := s.queueRepo.Update(ctx, entry); uerr != nil {
			return report, fmt.Errorf("persist replay of transaction %s: %w", entry.TransactionID, uerr)
		}
		report.Applied++
		report.Outcomes = append(report.Outcomes, ReplayOutcome{
			TransactionID: entry.TransactionID,
			Seq:           entry.Seq,
			Status:        entry.Status,
		})
		if s.businessMetrics != nil {
			s.businessMetrics.RecordReplay(ctx, storeID, telemetry.ReplayOutcomeApplied)
		}
	}

	s.logger.Info("Replay pass finished",
		zap.String("store_id", storeID.String()),
		zap.Int("attempted", report.Attempted),
		zap.Int("applied", report.Applied),
		zap.Int("conflicted", report.Conflicted))

	return report, nil
}

// ReplayAll runs a replay pass for every store that has pending entries.
// A failed store does not stop the sweep; its entries stay pending for the
// next pass.
func (s *ReplayService) ReplayAll(ctx context.Context) {
	storeIDs, err := s.queueRepo.StoresWithPending(ctx)
	if err != nil {
		s.logger.Error("Load stores with pending queue entries", zap.Error(err))
		return
	}

	for _, storeID := range storeIDs {
		if _, err := s.Replay(ctx, storeID); err != nil {
			s.logger.Error("Background replay pass failed",
				zap.String("store_id", storeID.String()),
				zap.Error(err))
		}
	}
}

// Cancel removes a pending entry before it is replayed. Entries that have
// already been applied or conflicted cannot be cancelled.
func (s *ReplayService) Cancel(ctx context.Context, transactionID string) error {
	entry, err := s.queueRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	if !entry.CanCancel() {
		return shared.ErrInvalidState
	}
	return s.queueRepo.DeletePending(ctx, transactionID)
}

// ListPending returns a store's pending entries in replay order.
func (s *ReplayService) ListPending(ctx context.Context, storeID uuid.UUID) ([]QueueEntryResponse, error) {
	entries, err := s.queueRepo.FindPendingForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	responses := make([]QueueEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, ToQueueEntryResponse(&entries[i]))
	}
	return responses, nil
}

// ListConflicted returns a store's conflicted entries awaiting an operator.
func (s *ReplayService) ListConflicted(ctx context.Context, storeID uuid.UUID) ([]QueueEntryResponse, error) {
	entries, err := s.queueRepo.FindConflictedForStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	responses := make([]QueueEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, ToQueueEntryResponse(&entries[i]))
	}
	return responses, nil
}

// ResolveConflict marks a conflicted entry settled by an operator (for
// example after a manual adjustment compensated the missing stock).
func (s *ReplayService) ResolveConflict(ctx context.Context, transactionID string) (*QueueEntryResponse, error) {
	return s.transitionConflict(ctx, transactionID, (*inventory.QueuedDeduction).Resolve)
}

// AbandonConflict drops a conflicted entry whose sale was voided instead.
func (s *ReplayService) AbandonConflict(ctx context.Context, transactionID string) (*QueueEntryResponse, error) {
	return s.transitionConflict(ctx, transactionID, (*inventory.QueuedDeduction).Abandon)
}

func (s *ReplayService) transitionConflict(
	ctx context.Context,
	transactionID string,
	transition func(*inventory.QueuedDeduction) error,
) (*QueueEntryResponse, error) {
	entry, err := s.queueRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := transition(entry); err != nil {
		return nil, err
	}
	if err := s.queueRepo.Update(ctx, entry); err != nil {
		return nil, err
	}
	resp := ToQueueEntryResponse(entry)
	return &resp, nil
}

// isStockConflict reports whether a commit failure is a business conflict an
// operator must settle, as opposed to an infrastructure failure worth
// retrying on the next pass.
func isStockConflict(err error) bool {
	var stockErr *inventory.InsufficientStockError
	var unmappedErr *inventory.UnmappedIngredientError
	var foreignErr *inventory.ForeignMappingError
	return errors.As(err, &stockErr) || errors.As(err, &unmappedErr) || errors.As(err, &foreignErr)
}
