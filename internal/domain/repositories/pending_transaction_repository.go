package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"quorum-vault.backend/internal/domain/entities"
)

// PendingTransactionRepository defines pending-transaction data
// operations. All mutating calls take the record's current version and
// apply a conditional update: a stale version or non-pending status
// leaves the row untouched and returns entities' domain errors from the
// implementation, so concurrent signers serialize on the row.
type PendingTransactionRepository interface {
	Create(ctx context.Context, tx *entities.PendingTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PendingTransaction, error)
	// ListPendingByWallet returns still-pending, non-expired records,
	// newest first.
	ListPendingByWallet(ctx context.Context, walletID uuid.UUID, now time.Time) ([]*entities.PendingTransaction, error)
	// AppendSignature adds the signer and its signature and increments
	// the signature count, guarded by the version.
	AppendSignature(ctx context.Context, tx *entities.PendingTransaction) error
	// MarkExecuted is the final write of a successful quorum execution.
	MarkExecuted(ctx context.Context, id uuid.UUID, version int, txHash string, completedAt time.Time) error
	MarkCancelled(ctx context.Context, id uuid.UUID, version int) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
	// GetExpiredPending feeds the external sweep job.
	GetExpiredPending(ctx context.Context, limit int) ([]*entities.PendingTransaction, error)
	ExpireBatch(ctx context.Context, ids []uuid.UUID) error
}
