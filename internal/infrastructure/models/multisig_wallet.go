package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MultisigWallet struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ChainKey    string    `gorm:"type:varchar(64);not null"`
	Address     string    `gorm:"type:varchar(64);index"`
	Threshold   int       `gorm:"not null"`
	SignerCount int       `gorm:"not null"`
	Deployed    bool      `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	// Relations
	Signers []WalletSigner `gorm:"foreignKey:WalletID;references:ID"`
}

func (MultisigWallet) TableName() string {
	return "multisig_wallets"
}

type WalletSigner struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	WalletID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_signer_address"`
	Address   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_wallet_signer_address"`
	Name      string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (WalletSigner) TableName() string {
	return "wallet_signers"
}
