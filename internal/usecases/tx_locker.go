package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"quorum-vault.backend/pkg/redis"
)

// txLocker serializes the sign critical section per transaction id.
// Within one process a keyed mutex is enough; when redis is available a
// distributed lock is layered on top so multiple replicas do not race.
// The repository's version guard remains the final arbiter either way.
//
// Entries are reference counted and dropped from the map once the last
// holder releases, so the map stays bounded by the number of in-flight
// operations rather than growing with every transaction ever touched.
type txLocker struct {
	mu      sync.Mutex
	locks   map[uuid.UUID]*txLockEntry
	useDist bool
	lockTTL time.Duration
}

type txLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTxLocker(useDistributed bool, lockTTL time.Duration) *txLocker {
	return &txLocker{
		locks:   make(map[uuid.UUID]*txLockEntry),
		useDist: useDistributed,
		lockTTL: lockTTL,
	}
}

func (l *txLocker) retain(id uuid.UUID) *txLockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[id]
	if !ok {
		e = &txLockEntry{}
		l.locks[id] = e
	}
	e.refs++
	return e
}

// releaseLocal unlocks the entry and evicts it once no goroutine holds
// or waits on it.
func (l *txLocker) releaseLocal(id uuid.UUID, e *txLockEntry) {
	e.mu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

// Acquire blocks until the per-transaction lock is held and returns a
// release function. The distributed lock is best-effort: if it is
// contested the caller waits briefly and retries until the context runs
// out.
func (l *txLocker) Acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	entry := l.retain(id)
	entry.mu.Lock()

	if !l.useDist {
		return func() { l.releaseLocal(id, entry) }, nil
	}

	key := "multisig:txlock:" + id.String()
	for {
		dist, err := redis.AcquireLock(ctx, key, l.lockTTL)
		if err != nil {
			l.releaseLocal(id, entry)
			return nil, err
		}
		if dist != nil {
			return func() {
				_ = dist.Release(context.Background())
				l.releaseLocal(id, entry)
			}, nil
		}
		select {
		case <-ctx.Done():
			l.releaseLocal(id, entry)
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
