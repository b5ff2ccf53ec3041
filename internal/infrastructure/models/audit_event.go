package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind       string    `gorm:"type:varchar(32);not null;index"`
	Actor      string    `gorm:"type:varchar(64);not null"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index"`
	Metadata   string    `gorm:"type:text"`
	CreatedAt  time.Time
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
