package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hfl-auth/internal/model"
	"hfl-auth/internal/util"
)

// ErrUnavailable marks a durable-store failure. It is deliberately distinct
// from an absent record: a caller must never read a store outage as "no code
// was issued".
var ErrUnavailable = errors.New("otp record store unavailable")

// RecordStore is the cache-aside façade over the fast cache and the durable
// store. The two sides stay injectable so tests can fault each independently.
type RecordStore struct {
	cache   model.OTPCache
	durable model.OTPStore
}

func NewRecordStore(cache model.OTPCache, durable model.OTPStore) *RecordStore {
	return &RecordStore{
		cache:   cache,
		durable: durable,
	}
}

// Put upserts the record for its phone in both stores. The durable write
// comes first and its failure propagates: a cache-only write would not
// survive a restart.
func (s *RecordStore) Put(ctx context.Context, record *model.OTPRecord) error {
	if err := s.durable.Put(ctx, record); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, record.Phone, err)
	}

	if err := s.cache.Put(ctx, record); err != nil {
		// Cache is an optimization; reads fall through to the durable store.
		util.Warn("OTP cache write failed",
			util.String("phone", record.Phone),
			util.ErrorField(err))
	}
	return nil
}

// Get reads through: cache first, durable on miss, repopulating the cache on
// a durable hit. Absent is (nil, nil); a durable failure is ErrUnavailable.
func (s *RecordStore) Get(ctx context.Context, phone string) (*model.OTPRecord, error) {
	rec, err := s.cache.Get(ctx, phone)
	if err != nil {
		util.Warn("OTP cache read failed",
			util.String("phone", phone),
			util.ErrorField(err))
	} else if rec != nil {
		return rec, nil
	}

	rec, err = s.durable.Get(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, phone, err)
	}
	if rec == nil {
		return nil, nil
	}

	if err := s.cache.Put(ctx, rec); err != nil {
		util.Warn("OTP cache repopulation failed",
			util.String("phone", phone),
			util.ErrorField(err))
	}
	return rec, nil
}

// Delete removes the record from both stores. Deleting an absent key is not
// an error. A failure on either side propagates: a record left behind in the
// cache after a successful verification would be replayable.
func (s *RecordStore) Delete(ctx context.Context, phone string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.durable.Delete(ctx, phone); err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, phone, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.cache.Delete(ctx, phone); err != nil {
			return fmt.Errorf("failed to delete %s from cache: %w", phone, err)
		}
		return nil
	})

	return g.Wait()
}

// DeleteExpired sweeps abandoned records out of the durable store. The cache
// expires its own entries.
func (s *RecordStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	n, err := s.durable.DeleteExpired(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep: %v", ErrUnavailable, err)
	}
	return n, nil
}
