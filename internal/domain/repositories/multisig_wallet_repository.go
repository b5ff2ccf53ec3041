package repositories

import (
	"context"

	"github.com/google/uuid"
	"quorum-vault.backend/internal/domain/entities"
	"quorum-vault.backend/pkg/utils"
)

// MultisigWalletRepository defines wallet data operations
type MultisigWalletRepository interface {
	// Create persists the wallet and its initial signer set atomically.
	Create(ctx context.Context, wallet *entities.MultisigWallet) error
	// GetByID returns the wallet with its signer set preloaded.
	GetByID(ctx context.Context, id uuid.UUID) (*entities.MultisigWallet, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID, pagination utils.PaginationParams) ([]*entities.MultisigWallet, int64, error)
	// SetAddress records the on-chain (or fallback) address once.
	SetAddress(ctx context.Context, id uuid.UUID, address string, deployed bool) error
	AddSigner(ctx context.Context, signer *entities.WalletSigner) error
	// RemoveSigner deletes the signer row and decrements the wallet's
	// recorded signer count in the same transaction. The decrement is
	// refused with ErrThresholdInvariant when it would drop the count
	// below the wallet's threshold, rolling the delete back.
	RemoveSigner(ctx context.Context, walletID uuid.UUID, address string) error
}
