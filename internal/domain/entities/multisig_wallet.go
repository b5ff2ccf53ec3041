package entities

import (
	"time"

	"github.com/google/uuid"
)

// MultisigWallet represents a group-controlled wallet requiring
// Threshold-of-SignerCount approvals before a transfer executes.
type MultisigWallet struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	ChainKey    string    `json:"chainKey"` // config key, e.g. "base-sepolia"
	Address     string    `json:"address"`  // placeholder until deployed
	Threshold   int       `json:"threshold"`
	SignerCount int       `json:"signerCount"`
	Deployed    bool      `json:"deployed"` // true only after a real factory deployment
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Joins
	Signers []*WalletSigner `json:"signers,omitempty"`
}

// HasSigner reports whether the given normalized address is a current
// signer of the wallet. Callers must normalize the address first.
func (w *MultisigWallet) HasSigner(normalizedAddress string) bool {
	for _, s := range w.Signers {
		if s.Address == normalizedAddress {
			return true
		}
	}
	return false
}

// WalletSigner is one member of a multisig wallet's signer set. The
// address is stored in normalized (checksummed) form and is unique
// within a wallet.
type WalletSigner struct {
	ID        uuid.UUID `json:"id"`
	WalletID  uuid.UUID `json:"walletId"`
	Address   string    `json:"address"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateWalletInput represents input for creating a multisig wallet
type CreateWalletInput struct {
	ChainKey  string        `json:"chainKey" binding:"required"`
	Threshold int           `json:"threshold" binding:"required,min=1"`
	Signers   []SignerInput `json:"signers" binding:"required,min=1,dive"`
}

// SignerInput is one signer entry in a wallet creation request
type SignerInput struct {
	Address string `json:"address" binding:"required"`
	Name    string `json:"name,omitempty"`
}

// AddSignerInput represents input for adding a signer to a wallet
type AddSignerInput struct {
	Address string `json:"address" binding:"required"`
	Name    string `json:"name,omitempty"`
}
