package otp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hfl-auth/internal/client"
)

// releaseScript deletes the lock only while it still holds the caller's
// token, in a single server-side step. A Get-then-Del pair would leave a
// window where the lock expires and another holder's fresh lock gets deleted.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`

// lockBackend is the slice of the redis client the locker uses.
type lockBackend interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisLocker backs the cross-instance phone lock with SetNX. The value is
// a random token so a slow holder cannot release a lock that has already
// expired and been re-acquired by someone else; expiry handles crashed
// holders.
type RedisLocker struct {
	redis lockBackend
}

func NewRedisLocker(redis *client.RedisClient) *RedisLocker {
	return &RedisLocker{redis: redis}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	acquired, err := l.redis.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = l.redis.Eval(ctx, releaseScript, []string{key}, token)
	}

	return release, true, nil
}
