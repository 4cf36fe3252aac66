package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLockBackend mirrors the redis semantics the locker relies on: SetNX
// refuses to overwrite, Eval compares the stored token before deleting.
type fakeLockBackend struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeLockBackend() *fakeLockBackend {
	return &fakeLockBackend{values: make(map[string]string)}
}

func (f *fakeLockBackend) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.values[key]; held {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockBackend) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[keys[0]] == args[0].(string) {
		delete(f.values, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (f *fakeLockBackend) holder(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

func (f *fakeLockBackend) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

func TestLockerReleaseRemovesOwnLock(t *testing.T) {
	backend := newFakeLockBackend()
	locker := &RedisLocker{redis: backend}
	ctx := context.Background()

	release, acquired, err := locker.Acquire(ctx, "otp_lock:+998901234567", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	release()
	assert.Empty(t, backend.holder("otp_lock:+998901234567"))

	_, acquired, err = locker.Acquire(ctx, "otp_lock:+998901234567", time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLockerReleaseLeavesReacquiredLock(t *testing.T) {
	backend := newFakeLockBackend()
	locker := &RedisLocker{redis: backend}
	ctx := context.Background()

	release, acquired, err := locker.Acquire(ctx, "otp_lock:+998901234567", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	// The lock expires under the slow holder and another instance takes it.
	backend.expire("otp_lock:+998901234567")
	_, acquired, err = locker.Acquire(ctx, "otp_lock:+998901234567", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)
	other := backend.holder("otp_lock:+998901234567")
	require.NotEmpty(t, other)

	// The stale release must not delete the new holder's lock.
	release()
	assert.Equal(t, other, backend.holder("otp_lock:+998901234567"))
}

func TestLockerContendedAcquire(t *testing.T) {
	backend := newFakeLockBackend()
	locker := &RedisLocker{redis: backend}
	ctx := context.Background()

	_, acquired, err := locker.Acquire(ctx, "otp_lock:+998901234567", time.Second)
	require.NoError(t, err)
	require.True(t, acquired)

	release, acquired, err := locker.Acquire(ctx, "otp_lock:+998901234567", time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Nil(t, release)
}
