package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "multisig_wallets", MultisigWallet{}.TableName())
	assert.Equal(t, "wallet_signers", WalletSigner{}.TableName())
	assert.Equal(t, "pending_transactions", PendingTransaction{}.TableName())
	assert.Equal(t, "audit_events", AuditEvent{}.TableName())
}
