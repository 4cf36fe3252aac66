package store

import (
	"context"
	"sync"
	"time"

	"hfl-auth/internal/model"
)

// MemoryStore is an in-memory stand-in for the durable store, used in
// development mode and in tests. Unlike MemoryCache it never expires entries
// on its own; the sweep and the read paths decide.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.OTPRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.OTPRecord),
	}
}

func (s *MemoryStore) Put(_ context.Context, record *model.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Phone] = *record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, phone string) (*model.OTPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[phone]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, phone)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for phone, rec := range s.records {
		if rec.ExpiresAt.Before(before) {
			delete(s.records, phone)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
