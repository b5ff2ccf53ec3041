package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"quorum-vault.backend/internal/domain/entities"
	"quorum-vault.backend/internal/infrastructure/models"
	"quorum-vault.backend/pkg/logger"
	"quorum-vault.backend/pkg/utils"
)

// Recorder persists audit events through gorm. Failures are logged and
// swallowed so a broken audit trail never blocks the primary operation.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, kind entities.AuditEventKind, actor string, resourceID uuid.UUID, metadata map[string]interface{}) error {
	var meta string
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			logger.Warn(ctx, "failed to marshal audit metadata",
				zap.String("kind", string(kind)),
				zap.Error(err))
		} else {
			meta = string(raw)
		}
	}

	event := &models.AuditEvent{
		ID:         utils.GenerateUUIDv7(),
		Kind:       string(kind),
		Actor:      actor,
		ResourceID: resourceID,
		Metadata:   meta,
	}

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		logger.Error(ctx, "failed to record audit event",
			zap.String("kind", string(kind)),
			zap.String("resource_id", resourceID.String()),
			zap.Error(err))
		return err
	}
	return nil
}
