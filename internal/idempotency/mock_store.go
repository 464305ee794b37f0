package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/mobilesync/internal/domain"
)

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, reservationTTL time.Duration) (*domain.IdempotencyRecord, bool, error) {
	args := m.Called(ctx, key, fingerprint, now, reservationTTL)
	rec, _ := args.Get(0).(*domain.IdempotencyRecord)
	return rec, args.Bool(1), args.Error(2)
}

func (m *MockStore) Commit(ctx context.Context, key string, snapshot json.RawMessage, expiresAt time.Time) error {
	args := m.Called(ctx, key, snapshot, expiresAt)
	return args.Error(0)
}

func (m *MockStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
