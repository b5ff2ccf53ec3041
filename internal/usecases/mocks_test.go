package usecases_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"quorum-vault.backend/internal/config"
	"quorum-vault.backend/internal/domain/entities"
	"quorum-vault.backend/internal/usecases"
	"quorum-vault.backend/pkg/utils"
)

// Mock MultisigWalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *entities.MultisigWallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.MultisigWallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MultisigWallet), args.Error(1)
}

func (m *MockWalletRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID, pagination utils.PaginationParams) ([]*entities.MultisigWallet, int64, error) {
	args := m.Called(ctx, ownerID, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.MultisigWallet), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletRepository) SetAddress(ctx context.Context, id uuid.UUID, address string, deployed bool) error {
	args := m.Called(ctx, id, address, deployed)
	return args.Error(0)
}

func (m *MockWalletRepository) AddSigner(ctx context.Context, signer *entities.WalletSigner) error {
	args := m.Called(ctx, signer)
	return args.Error(0)
}

func (m *MockWalletRepository) RemoveSigner(ctx context.Context, walletID uuid.UUID, address string) error {
	args := m.Called(ctx, walletID, address)
	return args.Error(0)
}

// Mock PendingTransactionRepository
type MockPendingTxRepository struct {
	mock.Mock
}

func (m *MockPendingTxRepository) Create(ctx context.Context, tx *entities.PendingTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPendingTxRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PendingTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PendingTransaction), args.Error(1)
}

func (m *MockPendingTxRepository) ListPendingByWallet(ctx context.Context, walletID uuid.UUID, now time.Time) ([]*entities.PendingTransaction, error) {
	args := m.Called(ctx, walletID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PendingTransaction), args.Error(1)
}

func (m *MockPendingTxRepository) AppendSignature(ctx context.Context, tx *entities.PendingTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPendingTxRepository) MarkExecuted(ctx context.Context, id uuid.UUID, version int, txHash string, completedAt time.Time) error {
	args := m.Called(ctx, id, version, txHash, completedAt)
	return args.Error(0)
}

func (m *MockPendingTxRepository) MarkCancelled(ctx context.Context, id uuid.UUID, version int) error {
	args := m.Called(ctx, id, version)
	return args.Error(0)
}

func (m *MockPendingTxRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPendingTxRepository) GetExpiredPending(ctx context.Context, limit int) ([]*entities.PendingTransaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PendingTransaction), args.Error(1)
}

func (m *MockPendingTxRepository) ExpireBatch(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// Mock AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, kind entities.AuditEventKind, actor string, resourceID uuid.UUID, metadata map[string]interface{}) error {
	args := m.Called(ctx, kind, actor, resourceID, metadata)
	return args.Error(0)
}

// Mock OnChainAdapter
type MockOnChainAdapter struct {
	mock.Mock
}

func (m *MockOnChainAdapter) Deploy(ctx context.Context, chain *config.ChainConfig, signers []string, threshold int) (string, error) {
	args := m.Called(ctx, chain, signers, threshold)
	return args.String(0), args.Error(1)
}

func (m *MockOnChainAdapter) Execute(ctx context.Context, chain *config.ChainConfig, walletAddress string, tx *usecases.TypedTransaction, packedSigs []byte) (string, error) {
	args := m.Called(ctx, chain, walletAddress, tx, packedSigs)
	return args.String(0), args.Error(1)
}

func (m *MockOnChainAdapter) WalletNonce(ctx context.Context, chain *config.ChainConfig, walletAddress string) (uint64, error) {
	args := m.Called(ctx, chain, walletAddress)
	return args.Get(0).(uint64), args.Error(1)
}
