package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"quorum-vault.backend/internal/domain/entities"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	"quorum-vault.backend/internal/infrastructure/models"
)

// PendingTransactionRepositoryImpl implements PendingTransactionRepository.
// Mutations are conditional on (version, status = pending): a stale
// version means a concurrent writer got there first.
type PendingTransactionRepositoryImpl struct {
	db *gorm.DB
}

func NewPendingTransactionRepository(db *gorm.DB) *PendingTransactionRepositoryImpl {
	return &PendingTransactionRepositoryImpl{db: db}
}

func (r *PendingTransactionRepositoryImpl) Create(ctx context.Context, tx *entities.PendingTransaction) error {
	signedBy, err := json.Marshal(tx.SignedBy)
	if err != nil {
		return err
	}
	signatures, err := json.Marshal(tx.Signatures)
	if err != nil {
		return err
	}

	now := time.Now()
	m := &models.PendingTransaction{
		ID:                 tx.ID,
		WalletID:           tx.WalletID,
		Recipient:          tx.Recipient,
		Amount:             tx.Amount,
		Data:               tx.Data,
		Memo:               tx.Memo,
		Proposer:           tx.Proposer,
		RequiredSignatures: tx.RequiredSignatures,
		SignatureCount:     tx.SignatureCount,
		SignedBy:           string(signedBy),
		Signatures:         string(signatures),
		Status:             string(tx.Status),
		ExpiresAt:          tx.ExpiresAt,
		Version:            tx.Version,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *PendingTransactionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.PendingTransaction, error) {
	var m models.PendingTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.toEntity(&m)
}

func (r *PendingTransactionRepositoryImpl) ListPendingByWallet(ctx context.Context, walletID uuid.UUID, now time.Time) ([]*entities.PendingTransaction, error) {
	var ms []models.PendingTransaction
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND status = ? AND expires_at >= ?", walletID, entities.TxStatusPending, now).
		Order("created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	var txs []*entities.PendingTransaction
	for i := range ms {
		tx, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r *PendingTransactionRepositoryImpl) AppendSignature(ctx context.Context, tx *entities.PendingTransaction) error {
	signedBy, err := json.Marshal(tx.SignedBy)
	if err != nil {
		return err
	}
	signatures, err := json.Marshal(tx.Signatures)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.PendingTransaction{}).
		Where("id = ? AND version = ? AND status = ?", tx.ID, tx.Version, entities.TxStatusPending).
		Updates(map[string]interface{}{
			"signed_by":       string(signedBy),
			"signatures":      string(signatures),
			"signature_count": tx.SignatureCount,
			"version":         gorm.Expr("version + ?", 1),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.conflictError(ctx, tx.ID)
	}
	tx.Version++
	return nil
}

func (r *PendingTransactionRepositoryImpl) MarkExecuted(ctx context.Context, id uuid.UUID, version int, txHash string, completedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.PendingTransaction{}).
		Where("id = ? AND version = ? AND status = ?", id, version, entities.TxStatusPending).
		Updates(map[string]interface{}{
			"status":       entities.TxStatusExecuted,
			"tx_hash":      txHash,
			"completed_at": completedAt,
			"version":      gorm.Expr("version + ?", 1),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.conflictError(ctx, id)
	}
	return nil
}

func (r *PendingTransactionRepositoryImpl) MarkCancelled(ctx context.Context, id uuid.UUID, version int) error {
	result := r.db.WithContext(ctx).Model(&models.PendingTransaction{}).
		Where("id = ? AND version = ? AND status = ?", id, version, entities.TxStatusPending).
		Updates(map[string]interface{}{
			"status":     entities.TxStatusCancelled,
			"version":    gorm.Expr("version + ?", 1),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.conflictError(ctx, id)
	}
	return nil
}

func (r *PendingTransactionRepositoryImpl) MarkExpired(ctx context.Context, id uuid.UUID) error {
	// Lazy transition on access: no version guard, only still-pending
	// rows flip to expired.
	return r.db.WithContext(ctx).Model(&models.PendingTransaction{}).
		Where("id = ? AND status = ?", id, entities.TxStatusPending).
		Updates(map[string]interface{}{
			"status":     entities.TxStatusExpired,
			"version":    gorm.Expr("version + ?", 1),
			"updated_at": time.Now(),
		}).Error
}

func (r *PendingTransactionRepositoryImpl) GetExpiredPending(ctx context.Context, limit int) ([]*entities.PendingTransaction, error) {
	var ms []models.PendingTransaction
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", entities.TxStatusPending, time.Now()).
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	var txs []*entities.PendingTransaction
	for i := range ms {
		tx, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r *PendingTransactionRepositoryImpl) ExpireBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.PendingTransaction{}).
		Where("id IN ? AND status = ?", ids, entities.TxStatusPending).
		Updates(map[string]interface{}{
			"status":     entities.TxStatusExpired,
			"version":    gorm.Expr("version + ?", 1),
			"updated_at": time.Now(),
		}).Error
}

// conflictError distinguishes a missing row from a lost CAS race.
func (r *PendingTransactionRepositoryImpl) conflictError(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PendingTransaction{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domainerrors.ErrNotFound
	}
	return domainerrors.ErrNotPending
}

func (r *PendingTransactionRepositoryImpl) toEntity(m *models.PendingTransaction) (*entities.PendingTransaction, error) {
	var signedBy []string
	if m.SignedBy != "" {
		if err := json.Unmarshal([]byte(m.SignedBy), &signedBy); err != nil {
			return nil, err
		}
	}
	signatures := map[string]string{}
	if m.Signatures != "" {
		if err := json.Unmarshal([]byte(m.Signatures), &signatures); err != nil {
			return nil, err
		}
	}

	tx := &entities.PendingTransaction{
		ID:                 m.ID,
		WalletID:           m.WalletID,
		Recipient:          m.Recipient,
		Amount:             m.Amount,
		Data:               m.Data,
		Memo:               m.Memo,
		Proposer:           m.Proposer,
		RequiredSignatures: m.RequiredSignatures,
		SignatureCount:     m.SignatureCount,
		SignedBy:           signedBy,
		Signatures:         signatures,
		Status:             entities.PendingTransactionStatus(m.Status),
		ExpiresAt:          m.ExpiresAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.TxHash != nil {
		tx.TxHash.SetValid(*m.TxHash)
	}
	if m.CompletedAt != nil {
		tx.CompletedAt.SetValid(*m.CompletedAt)
	}
	return tx, nil
}
