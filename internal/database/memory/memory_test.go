package memory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/eventlog"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore()

	existing, reserved, err := s.Reserve(ctx, "k", "fp", t0, time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, existing)

	existing, reserved, err = s.Reserve(ctx, "k", "fp", t0.Add(time.Second), time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NotNil(t, existing)
	assert.Equal(t, domain.IdempotencyReserved, existing.State)

	require.NoError(t, s.Commit(ctx, "k", json.RawMessage(`{"ok":true}`), t0.Add(24*time.Hour)))
	existing, _, err = s.Reserve(ctx, "k", "fp", t0.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.IdempotencyCommitted, existing.State)
	assert.JSONEq(t, `{"ok":true}`, string(existing.ResponseSnapshot))

	require.NoError(t, s.Release(ctx, "k"))
	_, reserved, err = s.Reserve(ctx, "k", "fp", t0.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved, "committed records survive release")
}

func TestIdempotencyStore_ExpiredReservationIsReclaimed(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore()

	_, _, err := s.Reserve(ctx, "k", "fp", t0, time.Minute)
	require.NoError(t, err)

	_, reserved, err := s.Reserve(ctx, "k", "fp2", t0.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestIdempotencyStore_CommitUnknown(t *testing.T) {
	err := NewIdempotencyStore().Commit(context.Background(), "nope", nil, t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIdempotencyStore_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.Reserve(ctx, "k", "fp", t0, time.Minute)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestIdempotencyStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore()
	_, _, _ = s.Reserve(ctx, "a", "fp", t0, time.Minute)
	_, _, _ = s.Reserve(ctx, "b", "fp", t0, time.Hour)

	n, err := s.DeleteExpired(ctx, t0.Add(2*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEntityStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewEntityStore()
	ref := domain.EntityRef{TenantID: "t1", Domain: "journal", MobileID: "a"}

	e, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, e)

	v, err := s.CompareAndSwap(ctx, ref, 0, map[string]any{"title": "one"}, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = s.CompareAndSwap(ctx, ref, 0, map[string]any{"title": "stale"}, t0)
	assert.ErrorIs(t, err, domain.ErrVersionMismatch)

	fields := map[string]any{"title": "two"}
	v, err = s.CompareAndSwap(ctx, ref, 1, fields, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	fields["title"] = "mutated"

	e, err = s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "two", e.Fields["title"])
	assert.True(t, e.LastModified.Equal(t0.Add(time.Second)))
}

func TestConflictLog_SettleApplyingOnly(t *testing.T) {
	ctx := context.Background()
	l := NewConflictLog()
	require.NoError(t, l.Append(ctx, domain.ConflictRecord{ID: "c1", TenantID: "t1", Status: domain.ConflictStatusApplying, CreatedAt: t0}))
	require.NoError(t, l.Append(ctx, domain.ConflictRecord{ID: "c2", TenantID: "t1", Status: domain.ConflictStatusPending, CreatedAt: t0}))

	require.NoError(t, l.Settle(ctx, "c1", domain.ConflictStatusAutoResolved))
	assert.ErrorIs(t, l.Settle(ctx, "c1", domain.ConflictStatusAbandoned), domain.ErrConflictAlreadyResolved)
	assert.ErrorIs(t, l.Settle(ctx, "c2", domain.ConflictStatusAutoResolved), domain.ErrConflictAlreadyResolved)
	assert.ErrorIs(t, l.Settle(ctx, "zz", domain.ConflictStatusAutoResolved), domain.ErrConflictNotFound)

	rec, err := l.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ConflictStatusAutoResolved, rec.Status)
}

func TestConflictLog_MarkResolvedOnce(t *testing.T) {
	ctx := context.Background()
	l := NewConflictLog()
	require.NoError(t, l.Append(ctx, domain.ConflictRecord{ID: "c1", TenantID: "t1", Status: domain.ConflictStatusPending, CreatedAt: t0}))
	require.NoError(t, l.Append(ctx, domain.ConflictRecord{ID: "c2", TenantID: "t1", Status: domain.ConflictStatusAutoResolved, CreatedAt: t0.Add(time.Second)}))

	require.NoError(t, l.MarkResolved(ctx, "c1", domain.ResolutionServerWins, domain.SideServer, t0.Add(time.Minute)))
	assert.ErrorIs(t, l.MarkResolved(ctx, "c1", domain.ResolutionClientWins, domain.SideClient, t0), domain.ErrConflictAlreadyResolved)
	assert.ErrorIs(t, l.MarkResolved(ctx, "c2", domain.ResolutionClientWins, domain.SideClient, t0), domain.ErrConflictAlreadyResolved)
	assert.ErrorIs(t, l.MarkResolved(ctx, "zz", domain.ResolutionClientWins, domain.SideClient, t0), domain.ErrConflictNotFound)

	rec, err := l.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ConflictStatusResolved, rec.Status)
	assert.Equal(t, domain.SideServer, rec.WinningSide)
	require.NotNil(t, rec.ResolvedAt)

	all, err := l.List(ctx, conflict.Filter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c2", all[0].ID)

	pending, err := l.List(ctx, conflict.Filter{TenantID: "t1", Status: domain.ConflictStatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUploadSessionStore_Chunks(t *testing.T) {
	ctx := context.Background()
	u := NewUploadSessionStore()
	require.NoError(t, u.Create(ctx, &domain.UploadSession{ID: "u1", TotalChunks: 3, Status: domain.UploadStateActive, ExpiresAt: t0}))

	for _, idx := range []int{2, 0, 2} {
		_, err := u.AddChunk(ctx, "u1", idx)
		require.NoError(t, err)
	}
	s, err := u.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, s.UploadedChunks)

	require.NoError(t, u.ResetChunks(ctx, "u1"))
	s, err = u.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, s.UploadedChunks)
	_, err = u.AddChunk(ctx, "u1", 1)
	require.NoError(t, err)

	require.NoError(t, u.Transition(ctx, "u1", domain.UploadStateActive, domain.UploadStateFinalized, "/blobs/u1", t0))
	assert.ErrorIs(t, u.Transition(ctx, "u1", domain.UploadStateActive, domain.UploadStateCancelled, "", t0), domain.ErrUploadNotActive)
	_, err = u.AddChunk(ctx, "u1", 1)
	assert.ErrorIs(t, err, domain.ErrUploadNotActive)
	assert.ErrorIs(t, u.ResetChunks(ctx, "u1"), domain.ErrUploadNotActive)

	s, err = u.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "/blobs/u1", s.FilePath)

	_, err = u.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUploadNotFound)
}

func TestUploadSessionStore_ListExpired(t *testing.T) {
	ctx := context.Background()
	u := NewUploadSessionStore()
	require.NoError(t, u.Create(ctx, &domain.UploadSession{ID: "old", Status: domain.UploadStateActive, ExpiresAt: t0}))
	require.NoError(t, u.Create(ctx, &domain.UploadSession{ID: "new", Status: domain.UploadStateActive, ExpiresAt: t0.Add(time.Hour)}))
	require.NoError(t, u.Create(ctx, &domain.UploadSession{ID: "done", Status: domain.UploadStateFinalized, ExpiresAt: t0}))

	out, err := u.ListExpired(ctx, t0)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "old", out[0].ID)
}

func TestAnalyticsStore_WriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewAnalyticsStore()

	created, err := s.WriteSnapshot(ctx, domain.AnalyticsSnapshot{TenantID: "t1", BucketStart: t0, Batches: 1})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.WriteSnapshot(ctx, domain.AnalyticsSnapshot{TenantID: "t1", BucketStart: t0, Batches: 9})
	require.NoError(t, err)
	assert.False(t, created)
	_, _ = s.WriteSnapshot(ctx, domain.AnalyticsSnapshot{TenantID: "t1", BucketStart: t0.Add(-time.Hour)})
	_, _ = s.WriteSnapshot(ctx, domain.AnalyticsSnapshot{TenantID: "t2", BucketStart: t0})

	out, err := s.ListSnapshots(ctx, "t1", t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].BucketStart.Before(out[1].BucketStart))
	assert.Equal(t, int64(1), out[1].Batches)

	out, err = s.ListSnapshots(ctx, "nobody", t0)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPolicyRepository(t *testing.T) {
	ctx := context.Background()
	r := NewPolicyRepository()

	_, err := r.GetPolicy(ctx, "t1", "journal")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, r.UpsertPolicy(ctx, domain.ConflictPolicy{TenantID: "t1", Domain: "notes", Strategy: domain.StrategyManual}))
	require.NoError(t, r.UpsertPolicy(ctx, domain.ConflictPolicy{TenantID: "t1", Domain: "journal", Strategy: domain.StrategyServerWins}))
	require.NoError(t, r.UpsertPolicy(ctx, domain.ConflictPolicy{TenantID: "t1", Domain: "journal", Strategy: domain.StrategyClientWins}))

	p, err := r.GetPolicy(ctx, "t1", "journal")
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyClientWins, p.Strategy)

	list, err := r.ListPolicies(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "journal", list[0].Domain)
}

func TestHealthRepository_Update(t *testing.T) {
	ctx := context.Background()
	r := NewHealthRepository()

	_, err := r.Get(ctx, "d1", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h, err := r.Update(ctx, "d1", "u1", func(h *domain.DeviceHealth) error {
		h.TotalSyncs++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.TotalSyncs)

	_, err = r.Update(ctx, "d1", "u1", func(h *domain.DeviceHealth) error {
		h.TotalSyncs = 99
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := r.Get(ctx, "d1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalSyncs, "failed updates are not stored")
}

func TestEventLog_FilterAndCleanup(t *testing.T) {
	ctx := context.Background()
	l := NewEventLog()
	l.now = func() time.Time { return t0 }
	tenant := "t1"
	other := "t2"
	typ := "sync.batch_processed"

	require.NoError(t, l.LogEvent(ctx, eventlog.Event{EventType: typ, TenantID: &tenant, CreatedAt: t0.AddDate(0, 0, -40)}))
	require.NoError(t, l.LogEvent(ctx, eventlog.Event{EventType: typ, TenantID: &tenant}))
	require.NoError(t, l.LogEvent(ctx, eventlog.Event{EventType: "conflict.detected", TenantID: &tenant}))
	require.NoError(t, l.LogEvent(ctx, eventlog.Event{EventType: typ, TenantID: &other}))

	got, err := l.GetEvents(ctx, eventlog.EventFilter{TenantID: &tenant, EventType: &typ})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Greater(t, got[0].ID, got[1].ID)

	got, err = l.GetEvents(ctx, eventlog.EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ID)

	n, err := l.CleanupOldEvents(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
