package entities

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventKind identifies a state-changing multisig operation
type AuditEventKind string

const (
	AuditWalletCreated  AuditEventKind = "WALLET_CREATED"
	AuditSignerAdded    AuditEventKind = "SIGNER_ADDED"
	AuditSignerRemoved  AuditEventKind = "SIGNER_REMOVED"
	AuditTxProposed     AuditEventKind = "TX_PROPOSED"
	AuditTxSigned       AuditEventKind = "TX_SIGNED"
	AuditTxExecuted     AuditEventKind = "TX_EXECUTED"
	AuditTxCancelled    AuditEventKind = "TX_CANCELLED"
	AuditTxExpired      AuditEventKind = "TX_EXPIRED"
	AuditWalletDeployed AuditEventKind = "WALLET_DEPLOYED"
)

// AuditEvent is a best-effort record of a state-changing operation.
// Recording failures never fail the primary operation.
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	Kind       AuditEventKind `json:"kind"`
	Actor      string         `json:"actor"`
	ResourceID uuid.UUID      `json:"resourceId"`
	Metadata   string         `json:"metadata,omitempty"` // JSON
	CreatedAt  time.Time      `json:"createdAt"`
}
