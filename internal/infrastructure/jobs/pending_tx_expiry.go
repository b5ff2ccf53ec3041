package jobs

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"quorum-vault.backend/internal/domain/entities"
	"quorum-vault.backend/internal/domain/repositories"
)

type expiryRepository interface {
	GetExpiredPending(ctx context.Context, limit int) ([]*entities.PendingTransaction, error)
	ExpireBatch(ctx context.Context, ids []uuid.UUID) error
}

// PendingTxExpiryJob sweeps proposals whose expiry deadline has passed
// and moves them to the expired state in batches.
type PendingTxExpiryJob struct {
	repo     expiryRepository
	recorder repositories.AuditRecorder
	interval time.Duration
	stop     chan struct{}
}

func NewPendingTxExpiryJob(repo expiryRepository, recorder repositories.AuditRecorder) *PendingTxExpiryJob {
	return &PendingTxExpiryJob{
		repo:     repo,
		recorder: recorder,
		interval: 30 * time.Second, // Check every 30 seconds
		stop:     make(chan struct{}),
	}
}

func (j *PendingTxExpiryJob) Start(ctx context.Context) {
	log.Println("🕐 Starting pending transaction expiry job...")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Pending transaction expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			log.Println("⏹️ Pending transaction expiry job stopped")
			return
		case <-ticker.C:
			j.processExpired(ctx)
		}
	}
}

func (j *PendingTxExpiryJob) Stop() {
	close(j.stop)
}

func (j *PendingTxExpiryJob) processExpired(ctx context.Context) {
	expired, err := j.repo.GetExpiredPending(ctx, 100)
	if err != nil {
		log.Printf("❌ Error fetching expired proposals: %v", err)
		return
	}

	if len(expired) == 0 {
		return
	}

	log.Printf("🔄 Processing %d expired proposals...", len(expired))

	var ids []uuid.UUID
	for _, tx := range expired {
		ids = append(ids, tx.ID)
	}

	if err := j.repo.ExpireBatch(ctx, ids); err != nil {
		log.Printf("❌ Error expiring proposals: %v", err)
		return
	}

	if j.recorder != nil {
		for _, tx := range expired {
			_ = j.recorder.Record(ctx, entities.AuditTxExpired, "system", tx.ID, map[string]interface{}{
				"wallet_id":  tx.WalletID.String(),
				"expires_at": tx.ExpiresAt,
			})
		}
	}

	log.Printf("✅ Expired %d proposals", len(expired))
}
