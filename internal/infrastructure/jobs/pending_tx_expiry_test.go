package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"quorum-vault.backend/internal/domain/entities"
)

type expiryRepoStub struct {
	expired    []*entities.PendingTransaction
	getErr     error
	expireErr  error
	expireCall int
	lastIDs    []uuid.UUID
}

func (s *expiryRepoStub) GetExpiredPending(_ context.Context, _ int) ([]*entities.PendingTransaction, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.expired, nil
}

func (s *expiryRepoStub) ExpireBatch(_ context.Context, ids []uuid.UUID) error {
	s.expireCall++
	s.lastIDs = ids
	return s.expireErr
}

type recorderStub struct {
	kinds []entities.AuditEventKind
}

func (s *recorderStub) Record(_ context.Context, kind entities.AuditEventKind, _ string, _ uuid.UUID, _ map[string]interface{}) error {
	s.kinds = append(s.kinds, kind)
	return nil
}

func TestProcessExpired_NoItems(t *testing.T) {
	repo := &expiryRepoStub{expired: []*entities.PendingTransaction{}}
	job := &PendingTxExpiryJob{repo: repo, interval: time.Millisecond, stop: make(chan struct{})}

	job.processExpired(context.Background())
	require.Equal(t, 0, repo.expireCall)
}

func TestProcessExpired_Success(t *testing.T) {
	id1 := uuid.New()
	id2 := uuid.New()
	repo := &expiryRepoStub{expired: []*entities.PendingTransaction{{ID: id1}, {ID: id2}}}
	rec := &recorderStub{}
	job := &PendingTxExpiryJob{repo: repo, recorder: rec, interval: time.Millisecond, stop: make(chan struct{})}

	job.processExpired(context.Background())
	require.Equal(t, 1, repo.expireCall)
	require.ElementsMatch(t, []uuid.UUID{id1, id2}, repo.lastIDs)
	require.Equal(t, []entities.AuditEventKind{entities.AuditTxExpired, entities.AuditTxExpired}, rec.kinds)
}

func TestProcessExpired_GetError(t *testing.T) {
	repo := &expiryRepoStub{getErr: errors.New("db down")}
	job := &PendingTxExpiryJob{repo: repo, interval: time.Millisecond, stop: make(chan struct{})}

	job.processExpired(context.Background())
	require.Equal(t, 0, repo.expireCall)
}

func TestProcessExpired_ExpireError(t *testing.T) {
	id := uuid.New()
	rec := &recorderStub{}
	repo := &expiryRepoStub{expired: []*entities.PendingTransaction{{ID: id}}, expireErr: errors.New("update failed")}
	job := &PendingTxExpiryJob{repo: repo, recorder: rec, interval: time.Millisecond, stop: make(chan struct{})}

	job.processExpired(context.Background())
	require.Equal(t, 1, repo.expireCall)
	require.Equal(t, []uuid.UUID{id}, repo.lastIDs)
	require.Empty(t, rec.kinds)
}

func TestStartStop_StopsByContext(t *testing.T) {
	repo := &expiryRepoStub{expired: []*entities.PendingTransaction{}}
	job := &PendingTxExpiryJob{repo: repo, interval: time.Millisecond, stop: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("job did not stop on context cancel")
	}
}

func TestStartStop_StopsByStopChannel(t *testing.T) {
	repo := &expiryRepoStub{expired: []*entities.PendingTransaction{}}
	job := &PendingTxExpiryJob{repo: repo, interval: time.Millisecond, stop: make(chan struct{})}

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()
	job.Stop()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("job did not stop on Stop()")
	}
}
