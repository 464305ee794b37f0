package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/domain"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store Store) *service {
	svc := NewService(store, Config{TTL: 24 * time.Hour, ReservationTTL: 2 * time.Minute}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCheckOrReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves new key", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestService(store)
		store.On("Reserve", mock.Anything, "k1", "fp", fixedNow, 2*time.Minute).Return(nil, true, nil)

		res, err := svc.CheckOrReserve(ctx, "k1", "fp")

		require.NoError(t, err)
		assert.Equal(t, StatusReserved, res.Status)
		store.AssertExpectations(t)
	})

	t.Run("replays committed record with same fingerprint", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestService(store)
		snapshot := json.RawMessage(`{"synced_items":1}`)
		store.On("Reserve", mock.Anything, "k1", "fp", fixedNow, 2*time.Minute).Return(&domain.IdempotencyRecord{
			Key:              "k1",
			Fingerprint:      "fp",
			State:            domain.IdempotencyCommitted,
			ResponseSnapshot: snapshot,
		}, false, nil)

		res, err := svc.CheckOrReserve(ctx, "k1", "fp")

		require.NoError(t, err)
		assert.Equal(t, StatusReplay, res.Status)
		assert.Equal(t, snapshot, res.Snapshot)
	})

	t.Run("rejects different payload under same key", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestService(store)
		store.On("Reserve", mock.Anything, "k1", "other", fixedNow, 2*time.Minute).Return(&domain.IdempotencyRecord{
			Key:         "k1",
			Fingerprint: "fp",
			State:       domain.IdempotencyCommitted,
		}, false, nil)

		_, err := svc.CheckOrReserve(ctx, "k1", "other")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
		assert.Equal(t, domain.CodeIdempotencyConflict, domain.CodeOf(err))
		assert.False(t, domain.IsRetryable(err))
	})

	t.Run("in-flight reservation is retryable", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestService(store)
		store.On("Reserve", mock.Anything, "k1", "fp", fixedNow, 2*time.Minute).Return(&domain.IdempotencyRecord{
			Key:         "k1",
			Fingerprint: "fp",
			State:       domain.IdempotencyReserved,
			ExpiresAt:   fixedNow.Add(time.Minute),
		}, false, nil)

		_, err := svc.CheckOrReserve(ctx, "k1", "fp")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRequestInProgress)
		assert.True(t, domain.IsRetryable(err))
	})

	t.Run("store failure surfaces as transient", func(t *testing.T) {
		store := new(MockStore)
		svc := newTestService(store)
		store.On("Reserve", mock.Anything, "k1", "fp", fixedNow, 2*time.Minute).Return(nil, false, errors.New("connection refused"))

		_, err := svc.CheckOrReserve(ctx, "k1", "fp")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.True(t, domain.IsRetryable(err))
	})
}

func TestCommitUsesFullTTL(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store)
	snapshot := json.RawMessage(`{}`)
	store.On("Commit", mock.Anything, "k1", snapshot, fixedNow.Add(24*time.Hour)).Return(nil)

	require.NoError(t, svc.Commit(context.Background(), "k1", snapshot))
	store.AssertExpectations(t)
}

func TestReleaseAndCleanupWrapStoreErrors(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(store)
	store.On("Release", mock.Anything, "k1").Return(errors.New("boom"))
	store.On("DeleteExpired", mock.Anything, fixedNow).Return(int64(0), errors.New("boom"))

	assert.ErrorIs(t, svc.Release(context.Background(), "k1"), domain.ErrStoreUnavailable)
	_, err := svc.CleanupExpired(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestFingerprint(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1}
	b := map[string]any{"a": 1, "b": 2}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb, "key order must not change the fingerprint")
	assert.Len(t, fa, 64)

	fc, err := Fingerprint(map[string]any{"a": 1, "b": 3})
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestScopedKey(t *testing.T) {
	assert.Equal(t, "t1:d1:abc", ScopedKey("t1", "d1", "abc"))
	assert.NotEqual(t, ScopedKey("t1", "d1", "abc"), ScopedKey("t1", "d2", "abc"))
}
