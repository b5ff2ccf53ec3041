package repositories

import (
	"context"

	"github.com/google/uuid"
	"quorum-vault.backend/internal/domain/entities"
)

// AuditRecorder receives one event per state-changing operation.
// Implementations are best-effort: callers ignore the returned error
// beyond logging it.
type AuditRecorder interface {
	Record(ctx context.Context, kind entities.AuditEventKind, actor string, resourceID uuid.UUID, metadata map[string]interface{}) error
}
