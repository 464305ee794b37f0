package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// IdempotencyStore is an in-memory idempotency.Store
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]domain.IdempotencyRecord
}

// NewIdempotencyStore creates an empty store
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]domain.IdempotencyRecord)}
}

func (s *IdempotencyStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, reservationTTL time.Duration) (*domain.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && !rec.Expired(now) {
		return &rec, false, nil
	}
	s.records[key] = domain.IdempotencyRecord{
		Key:         key,
		Fingerprint: fingerprint,
		State:       domain.IdempotencyReserved,
		CreatedAt:   now,
		ExpiresAt:   now.Add(reservationTTL),
	}
	return nil, true, nil
}

func (s *IdempotencyStore) Commit(_ context.Context, key string, snapshot json.RawMessage, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.State = domain.IdempotencyCommitted
	rec.ResponseSnapshot = append(json.RawMessage(nil), snapshot...)
	rec.ExpiresAt = expiresAt
	s.records[key] = rec
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.State == domain.IdempotencyReserved {
		delete(s.records, key)
	}
	return nil
}

func (s *IdempotencyStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}
