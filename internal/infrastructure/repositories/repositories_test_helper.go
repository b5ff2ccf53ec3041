package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createWalletTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE multisig_wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		chain_key TEXT NOT NULL,
		address TEXT,
		threshold INTEGER NOT NULL,
		signer_count INTEGER NOT NULL,
		deployed BOOLEAN DEFAULT FALSE,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE wallet_signers (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL,
		address TEXT NOT NULL,
		name TEXT,
		created_at DATETIME,
		UNIQUE (wallet_id, address)
	);`)
}

func createPendingTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE pending_transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount TEXT NOT NULL,
		data TEXT,
		memo TEXT,
		proposer TEXT NOT NULL,
		required_signatures INTEGER NOT NULL,
		signature_count INTEGER NOT NULL,
		signed_by TEXT NOT NULL,
		signatures TEXT,
		status TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		tx_hash TEXT,
		completed_at DATETIME,
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createAuditEventTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE audit_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME
	);`)
}
