package pos

import (
	"context"

	"github.com/cafepos/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the stock repositories.
// When a function is executed within a transaction scope, all repository
// operations will be part of the same database transaction and will be
// committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the stock repositories within
// a transaction. All repositories returned share the same underlying database
// transaction.
//
// Aggregate boundary notes:
//   - ItemRepo: repository for the InventoryItem aggregate root. Sale
//     deductions use its guarded DecrementStock, never a read-then-write pair.
//   - MovementRepo: append-only repository for the movement ledger. Its
//     ExistsByReferenceAndItem is the authoritative idempotency check for a
//     sale, so it must see rows written earlier in the same transaction.
//   - QueueRepo: repository for queued offline deductions; replay transitions
//     a queue entry in the same transaction that applies its movements.
type TransactionalRepositories interface {
	// ItemRepo returns the inventory item repository scoped to the current transaction
	ItemRepo() inventory.ItemRepository
	// MovementRepo returns the movement ledger repository scoped to the current transaction
	MovementRepo() inventory.MovementRepository
	// QueueRepo returns the offline queue repository scoped to the current transaction
	QueueRepo() inventory.QueueRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	itemRepo     inventory.ItemRepository
	movementRepo inventory.MovementRepository
	queueRepo    inventory.QueueRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	itemRepo inventory.ItemRepository,
	movementRepo inventory.MovementRepository,
	queueRepo inventory.QueueRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		queueRepo:    queueRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ItemRepo returns the inventory item repository.
func (s *NoOpTransactionScope) ItemRepo() inventory.ItemRepository {
	return s.itemRepo
}

// MovementRepo returns the movement ledger repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.MovementRepository {
	return s.movementRepo
}

// QueueRepo returns the offline queue repository.
func (s *NoOpTransactionScope) QueueRepo() inventory.QueueRepository {
	return s.queueRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
