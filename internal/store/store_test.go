package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hfl-auth/internal/model"
)

// faultStore wraps a MemoryStore and lets tests fail individual operations.
type faultStore struct {
	*MemoryStore
	failPut    bool
	failGet    bool
	failDelete bool
}

var errInjected = errors.New("injected store failure")

func (f *faultStore) Put(ctx context.Context, record *model.OTPRecord) error {
	if f.failPut {
		return errInjected
	}
	return f.MemoryStore.Put(ctx, record)
}

func (f *faultStore) Get(ctx context.Context, phone string) (*model.OTPRecord, error) {
	if f.failGet {
		return nil, errInjected
	}
	return f.MemoryStore.Get(ctx, phone)
}

func (f *faultStore) Delete(ctx context.Context, phone string) error {
	if f.failDelete {
		return errInjected
	}
	return f.MemoryStore.Delete(ctx, phone)
}

// faultCache fails cache operations without touching the durable side.
type faultCache struct {
	*MemoryCache
	failGet    bool
	failDelete bool
}

func (f *faultCache) Get(ctx context.Context, phone string) (*model.OTPRecord, error) {
	if f.failGet {
		return nil, errInjected
	}
	return f.MemoryCache.Get(ctx, phone)
}

func (f *faultCache) Delete(ctx context.Context, phone string) error {
	if f.failDelete {
		return errInjected
	}
	return f.MemoryCache.Delete(ctx, phone)
}

func testRecord(phone string) *model.OTPRecord {
	now := time.Now()
	return &model.OTPRecord{
		Phone:     phone,
		Code:      "4321",
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func TestRecordStorePutWritesBothSides(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	durable := NewMemoryStore()
	rs := NewRecordStore(cache, durable)

	rec := testRecord("+998901234567")
	require.NoError(t, rs.Put(ctx, rec))

	fromCache, err := cache.Get(ctx, rec.Phone)
	require.NoError(t, err)
	require.NotNil(t, fromCache)
	assert.Equal(t, rec.Code, fromCache.Code)

	fromDurable, err := durable.Get(ctx, rec.Phone)
	require.NoError(t, err)
	require.NotNil(t, fromDurable)
	assert.Equal(t, rec.Code, fromDurable.Code)
}

func TestRecordStorePutFailsWhenDurableFails(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	durable := &faultStore{MemoryStore: NewMemoryStore(), failPut: true}
	rs := NewRecordStore(cache, durable)

	err := rs.Put(ctx, testRecord("+998901234567"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	// The cache must not hold a record that durability rejected.
	fromCache, err := cache.Get(ctx, "+998901234567")
	require.NoError(t, err)
	assert.Nil(t, fromCache)
}

func TestRecordStoreGetReadsThroughAndRepopulates(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	durable := NewMemoryStore()
	rs := NewRecordStore(cache, durable)

	rec := testRecord("+998901234567")
	require.NoError(t, durable.Put(ctx, rec))
	assert.Equal(t, 0, cache.Len())

	got, err := rs.Get(ctx, rec.Phone)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Code, got.Code)

	// Durable hit repopulated the cache.
	assert.Equal(t, 1, cache.Len())
}

func TestRecordStoreGetAbsentIsNotAnError(t *testing.T) {
	rs := NewRecordStore(NewMemoryCache(), NewMemoryStore())

	got, err := rs.Get(context.Background(), "+998900000000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordStoreGetDistinguishesOutageFromAbsent(t *testing.T) {
	durable := &faultStore{MemoryStore: NewMemoryStore(), failGet: true}
	rs := NewRecordStore(NewMemoryCache(), durable)

	got, err := rs.Get(context.Background(), "+998901234567")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, got)
}

func TestRecordStoreGetSurvivesCacheFault(t *testing.T) {
	ctx := context.Background()
	cache := &faultCache{MemoryCache: NewMemoryCache(), failGet: true}
	durable := NewMemoryStore()
	rs := NewRecordStore(cache, durable)

	rec := testRecord("+998901234567")
	require.NoError(t, durable.Put(ctx, rec))

	got, err := rs.Get(ctx, rec.Phone)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Code, got.Code)
}

func TestRecordStoreDeleteRemovesBothSides(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	durable := NewMemoryStore()
	rs := NewRecordStore(cache, durable)

	rec := testRecord("+998901234567")
	require.NoError(t, rs.Put(ctx, rec))
	require.NoError(t, rs.Delete(ctx, rec.Phone))

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, durable.Len())

	// Idempotent
	require.NoError(t, rs.Delete(ctx, rec.Phone))
}

func TestRecordStoreDeletePropagatesFailures(t *testing.T) {
	ctx := context.Background()
	rec := testRecord("+998901234567")

	t.Run("durable", func(t *testing.T) {
		durable := &faultStore{MemoryStore: NewMemoryStore(), failDelete: true}
		rs := NewRecordStore(NewMemoryCache(), durable)
		require.NoError(t, durable.MemoryStore.Put(ctx, rec))

		err := rs.Delete(ctx, rec.Phone)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("cache", func(t *testing.T) {
		cache := &faultCache{MemoryCache: NewMemoryCache(), failDelete: true}
		rs := NewRecordStore(cache, NewMemoryStore())

		err := rs.Delete(ctx, rec.Phone)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	rec := testRecord("+998901234567")
	rec.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, cache.Put(ctx, rec))

	got, err := cache.Get(ctx, rec.Phone)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	durable := NewMemoryStore()

	old := testRecord("+998901111111")
	old.ExpiresAt = time.Now().Add(-time.Minute)
	fresh := testRecord("+998902222222")

	require.NoError(t, durable.Put(ctx, old))
	require.NoError(t, durable.Put(ctx, fresh))

	n, err := durable.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, durable.Len())
}
