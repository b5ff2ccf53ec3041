package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PendingTransactionStatus represents the lifecycle state of a proposed transfer
type PendingTransactionStatus string

const (
	TxStatusPending   PendingTransactionStatus = "pending"
	TxStatusExecuted  PendingTransactionStatus = "executed"
	TxStatusCancelled PendingTransactionStatus = "cancelled"
	TxStatusExpired   PendingTransactionStatus = "expired"
)

// PendingTransaction is a proposed transfer collecting signatures
// against its wallet's threshold. RequiredSignatures is snapshotted at
// proposal time and never follows later threshold changes.
type PendingTransaction struct {
	ID                 uuid.UUID                `json:"id"`
	WalletID           uuid.UUID                `json:"walletId"`
	Recipient          string                   `json:"recipient"`
	Amount             string                   `json:"amount"` // decimal string, chain-native unit
	Data               string                   `json:"data,omitempty"`
	Memo               string                   `json:"memo,omitempty"`
	Proposer           string                   `json:"proposer"`
	RequiredSignatures int                      `json:"requiredSignatures"`
	SignatureCount     int                      `json:"signatureCount"`
	SignedBy           []string                 `json:"signedBy"` // normalized, insertion order, unique
	Signatures         map[string]string        `json:"-"`        // signer address -> signature hex
	Status             PendingTransactionStatus `json:"status"`
	ExpiresAt          time.Time                `json:"expiresAt"`
	TxHash             null.String              `json:"txHash,omitempty"`
	CompletedAt        null.Time                `json:"completedAt,omitempty"`
	Version            int                      `json:"-"` // optimistic concurrency control
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

// HasSigned reports whether the normalized address already appears in
// the collected signer set.
func (tx *PendingTransaction) HasSigned(normalizedAddress string) bool {
	for _, s := range tx.SignedBy {
		if s == normalizedAddress {
			return true
		}
	}
	return false
}

// IsExpired reports whether the transaction's expiry timestamp has
// passed. The status flip to expired happens lazily on access.
func (tx *PendingTransaction) IsExpired(now time.Time) bool {
	return now.After(tx.ExpiresAt)
}

// ProposeTransactionInput represents input for proposing a transfer
type ProposeTransactionInput struct {
	Proposer  string `json:"proposer" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Data      string `json:"data,omitempty"`
	Memo      string `json:"memo,omitempty"`
	Signature string `json:"signature,omitempty"` // proposer's signature over the typed hash
}

// SignTransactionInput represents input for approving a pending transfer
type SignTransactionInput struct {
	Signer    string `json:"signer" binding:"required"`
	Signature string `json:"signature,omitempty"`
}

// CancelTransactionInput represents input for cancelling a pending transfer
type CancelTransactionInput struct {
	Canceller string `json:"canceller" binding:"required"`
}
