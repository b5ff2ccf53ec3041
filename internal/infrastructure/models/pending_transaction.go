package models

import (
	"time"

	"github.com/google/uuid"
)

type PendingTransaction struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	WalletID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Recipient          string    `gorm:"type:varchar(64);not null"`
	Amount             string    `gorm:"type:varchar(96);not null"`
	Data               string    `gorm:"type:text"`
	Memo               string    `gorm:"type:text"`
	Proposer           string    `gorm:"type:varchar(64);not null"`
	RequiredSignatures int       `gorm:"not null"`
	SignatureCount     int       `gorm:"not null"`
	SignedBy           string    `gorm:"type:text;not null"` // JSON array, insertion order
	Signatures         string    `gorm:"type:text"`          // JSON object, signer -> signature hex
	Status             string    `gorm:"type:varchar(16);not null;index"`
	ExpiresAt          time.Time `gorm:"not null;index"`
	TxHash             *string   `gorm:"type:varchar(96)"`
	CompletedAt        *time.Time
	Version            int `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PendingTransaction) TableName() string {
	return "pending_transactions"
}
