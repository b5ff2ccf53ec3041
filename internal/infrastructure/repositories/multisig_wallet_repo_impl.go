package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"quorum-vault.backend/internal/domain/entities"
	domainerrors "quorum-vault.backend/internal/domain/errors"
	"quorum-vault.backend/internal/infrastructure/models"
	"quorum-vault.backend/pkg/utils"
)

// MultisigWalletRepositoryImpl implements MultisigWalletRepository
type MultisigWalletRepositoryImpl struct {
	db *gorm.DB
}

func NewMultisigWalletRepository(db *gorm.DB) *MultisigWalletRepositoryImpl {
	return &MultisigWalletRepositoryImpl{db: db}
}

func (r *MultisigWalletRepositoryImpl) Create(ctx context.Context, wallet *entities.MultisigWallet) error {
	now := time.Now()
	m := &models.MultisigWallet{
		ID:          wallet.ID,
		OwnerID:     wallet.OwnerID,
		ChainKey:    wallet.ChainKey,
		Address:     wallet.Address,
		Threshold:   wallet.Threshold,
		SignerCount: wallet.SignerCount,
		Deployed:    wallet.Deployed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, s := range wallet.Signers {
		m.Signers = append(m.Signers, models.WalletSigner{
			ID:        s.ID,
			WalletID:  wallet.ID,
			Address:   s.Address,
			Name:      s.Name,
			CreatedAt: now,
		})
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MultisigWalletRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.MultisigWallet, error) {
	var m models.MultisigWallet
	err := r.db.WithContext(ctx).Preload("Signers").Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *MultisigWalletRepositoryImpl) GetByOwnerID(ctx context.Context, ownerID uuid.UUID, pagination utils.PaginationParams) ([]*entities.MultisigWallet, int64, error) {
	var ms []models.MultisigWallet
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&models.MultisigWallet{}).Where("owner_id = ?", ownerID)

	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	query = query.Preload("Signers").Order("created_at DESC")

	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	var wallets []*entities.MultisigWallet
	for i := range ms {
		wallets = append(wallets, r.toEntity(&ms[i]))
	}
	return wallets, totalCount, nil
}

func (r *MultisigWalletRepositoryImpl) SetAddress(ctx context.Context, id uuid.UUID, address string, deployed bool) error {
	result := r.db.WithContext(ctx).Model(&models.MultisigWallet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"address":    address,
			"deployed":   deployed,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *MultisigWalletRepositoryImpl) AddSigner(ctx context.Context, signer *entities.WalletSigner) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.WalletSigner{}).
			Where("wallet_id = ? AND address = ?", signer.WalletID, signer.Address).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domainerrors.ErrAlreadyExists
		}

		if err := tx.Create(&models.WalletSigner{
			ID:        signer.ID,
			WalletID:  signer.WalletID,
			Address:   signer.Address,
			Name:      signer.Name,
			CreatedAt: time.Now(),
		}).Error; err != nil {
			return err
		}

		result := tx.Model(&models.MultisigWallet{}).
			Where("id = ?", signer.WalletID).
			Updates(map[string]interface{}{
				"signer_count": gorm.Expr("signer_count + ?", 1),
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotFound
		}
		return nil
	})
}

func (r *MultisigWalletRepositoryImpl) RemoveSigner(ctx context.Context, walletID uuid.UUID, address string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("wallet_id = ? AND address = ?", walletID, address).
			Delete(&models.WalletSigner{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrNotFound
		}

		// The decrement is conditional on the threshold surviving it so
		// two concurrent removals cannot both pass a usecase-level check
		// and strand the wallet below quorum. A refused update rolls the
		// signer delete back with it.
		result = tx.Model(&models.MultisigWallet{}).
			Where("id = ? AND signer_count - 1 >= threshold", walletID).
			Updates(map[string]interface{}{
				"signer_count": gorm.Expr("signer_count - ?", 1),
				"updated_at":   time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrThresholdInvariant
		}
		return nil
	})
}

func (r *MultisigWalletRepositoryImpl) toEntity(m *models.MultisigWallet) *entities.MultisigWallet {
	wallet := &entities.MultisigWallet{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		ChainKey:    m.ChainKey,
		Address:     m.Address,
		Threshold:   m.Threshold,
		SignerCount: m.SignerCount,
		Deployed:    m.Deployed,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for i := range m.Signers {
		s := m.Signers[i]
		wallet.Signers = append(wallet.Signers, &entities.WalletSigner{
			ID:        s.ID,
			WalletID:  s.WalletID,
			Address:   s.Address,
			Name:      s.Name,
			CreatedAt: s.CreatedAt,
		})
	}
	return wallet
}
