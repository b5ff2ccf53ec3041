package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript releases a lock only when the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock is a best-effort distributed lock backed by SETNX. The token
// ties release to the acquiring caller.
type Lock struct {
	key   string
	token string
	ttl   time.Duration
}

// AcquireLock tries to take the named lock. It returns (nil, nil) when
// the lock is held by someone else.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.New().String()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Lock{key: key, token: token, ttl: ttl}, nil
}

// Release frees the lock if this holder still owns it.
func (l *Lock) Release(ctx context.Context) error {
	return unlockScript.Run(ctx, client, []string{l.key}, l.token).Err()
}
