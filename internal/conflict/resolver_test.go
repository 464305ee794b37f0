package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
)

var (
	t0      = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	journal = domain.EntityRef{TenantID: "t1", Domain: "journal", MobileID: "abc"}
)

type fixture struct {
	entities  *fakeEntities
	log       *fakeLog
	publisher *recordingPublisher
	resolver  *Resolver
}

func newFixture(policy domain.ConflictPolicy, notifier Notifier) *fixture {
	f := &fixture{
		entities:  newFakeEntities(),
		log:       &fakeLog{},
		publisher: &recordingPublisher{},
	}
	f.resolver = NewResolver(f.entities, f.log, staticPolicies{policy: policy}, notifier, f.publisher, nil)
	f.resolver.now = func() time.Time { return t0.Add(time.Hour) }
	return f
}

func policyWith(s domain.Strategy) domain.ConflictPolicy {
	return domain.ConflictPolicy{Strategy: s, AutoResolve: true}
}

func TestResolve_MatchingVersionAccepted(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "old"})

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, ClientVersion: 5, Fields: map[string]any{"text": "new"}, ClientTimestamp: t0,
	})

	require.NoError(t, err)
	assert.Equal(t, KindAccepted, out.Kind)
	assert.Equal(t, int64(6), out.NewVersion)
	assert.Equal(t, 0, f.log.len(), "accepted writes are not conflicts")
}

func TestResolve_AbsentEntityCreatedAtVersionOne(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, ClientVersion: 0, Fields: map[string]any{"text": "hello"},
	})

	require.NoError(t, err)
	assert.Equal(t, KindAccepted, out.Kind)
	assert.Equal(t, int64(1), out.NewVersion)
}

func TestResolve_VersionAheadRejected(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, ClientVersion: 6, Fields: map[string]any{"text": "future"}, ClientTimestamp: t0,
	})

	require.NoError(t, err)
	assert.Equal(t, KindRejected, out.Kind)
	assert.ErrorIs(t, out.Reason, domain.ErrVersionAhead)
	assert.Equal(t, "version_ahead_of_server", out.Reason.Error())
	assert.Equal(t, int64(5), f.entities.version(journal), "no mutation")
	assert.Equal(t, 0, f.log.len(), "no conflict log entry")
	assert.Equal(t, 0, f.entities.writes)
}

func TestResolve_MostRecentWinsClientLater(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, DeviceID: "d1", ClientVersion: 4,
		Fields: map[string]any{"text": "client"}, ClientTimestamp: t0.Add(10 * time.Second),
	})

	require.NoError(t, err)
	assert.Equal(t, KindConflict, out.Kind)
	assert.Equal(t, domain.SideClient, out.WinningSide)
	assert.Equal(t, int64(6), out.NewVersion)
	assert.True(t, out.ClientWon())

	require.Equal(t, 1, f.log.len())
	rec := f.log.records[0]
	assert.Equal(t, domain.SideClient, rec.WinningSide)
	assert.Equal(t, int64(5), rec.ServerVersion)
	assert.Equal(t, int64(4), rec.ClientVersion)
	assert.Equal(t, domain.StrategyMostRecentWins, rec.Strategy)
	assert.Equal(t, domain.ConflictStatusAutoResolved, rec.Status)
	assert.Equal(t, []event.Type{event.ConflictDetected}, f.publisher.types())
}

func TestResolve_MostRecentWinsTieGoesToServer(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, ClientVersion: 4, Fields: map[string]any{"text": "client"}, ClientTimestamp: t0,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SideServer, out.WinningSide)
	assert.Equal(t, int64(5), out.NewVersion)
	assert.Equal(t, map[string]any{"text": "server"}, out.Payload)
	assert.Equal(t, int64(5), f.entities.version(journal))
	info := out.Info()
	assert.True(t, info.Resolved)
	assert.Equal(t, map[string]any{"text": "server"}, info.ServerData)
}

func TestResolve_FixedStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy domain.Strategy
		winner   domain.Side
		version  int64
	}{
		{"client wins overwrites", domain.StrategyClientWins, domain.SideClient, 6},
		{"server wins discards", domain.StrategyServerWins, domain.SideServer, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(policyWith(tt.strategy), nil)
			f.entities.put(journal, 5, t0, map[string]any{"text": "server"})

			out, err := f.resolver.Resolve(context.Background(), Request{
				Ref: journal, ClientVersion: 3, Fields: map[string]any{"text": "client"}, ClientTimestamp: t0.Add(-time.Hour),
			})

			require.NoError(t, err)
			assert.Equal(t, tt.winner, out.WinningSide)
			assert.Equal(t, tt.version, out.NewVersion)
			assert.Equal(t, tt.version, f.entities.version(journal))
		})
	}
}

func TestResolve_PreserveEscalation(t *testing.T) {
	tests := []struct {
		name     string
		client   map[string]any
		server   map[string]any
		clientTS time.Time
		winner   domain.Side
	}{
		{"escalated client beats newer server", map[string]any{"escalated": true}, map[string]any{"escalated": false}, t0.Add(-time.Hour), domain.SideClient},
		{"escalated server beats newer client", map[string]any{}, map[string]any{"escalated": true}, t0.Add(time.Hour), domain.SideServer},
		{"neither escalated uses timestamps", map[string]any{}, map[string]any{}, t0.Add(time.Minute), domain.SideClient},
		{"both escalated uses timestamps", map[string]any{"escalated": true}, map[string]any{"escalated": true}, t0.Add(-time.Minute), domain.SideServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(policyWith(domain.StrategyPreserveEscalation), nil)
			f.entities.put(journal, 2, t0, tt.server)

			out, err := f.resolver.Resolve(context.Background(), Request{
				Ref: journal, ClientVersion: 1, Fields: tt.client, ClientTimestamp: tt.clientTS,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.winner, out.WinningSide)
		})
	}
}

func TestResolve_ManualLeavesPendingAndNotifies(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("NotifyConflict", mock.Anything, mock.MatchedBy(func(rec domain.ConflictRecord) bool {
		return rec.Status == domain.ConflictStatusPending
	})).Return(nil)

	policy := domain.ConflictPolicy{Strategy: domain.StrategyManual, AutoResolve: true, NotifyOnConflict: true}
	f := newFixture(policy, notifier)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, ClientVersion: 4, Fields: map[string]any{"text": "client"}, ClientTimestamp: t0.Add(time.Hour),
	})

	require.NoError(t, err)
	assert.True(t, out.Pending)
	assert.Equal(t, domain.SideNone, out.WinningSide)
	assert.False(t, out.ClientWon())
	assert.Equal(t, int64(5), f.entities.version(journal), "manual never writes")

	info := out.Info()
	assert.False(t, info.Resolved)
	assert.Equal(t, domain.ResolutionOptions, info.ResolutionOptions)
	notifier.AssertExpectations(t)
}

func TestResolve_AutoResolveOffForcesManual(t *testing.T) {
	f := newFixture(domain.ConflictPolicy{Strategy: domain.StrategyClientWins, AutoResolve: false}, nil)
	f.entities.put(journal, 5, t0, map[string]any{})

	out, err := f.resolver.Resolve(context.Background(), Request{Ref: journal, ClientVersion: 4, Fields: map[string]any{}})

	require.NoError(t, err)
	assert.True(t, out.Pending)
	assert.Equal(t, domain.StrategyManual, out.Strategy)
}

func TestResolve_NotifyFailureIsSwallowed(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("NotifyConflict", mock.Anything, mock.Anything).Return(errors.New("discord down"))

	f := newFixture(domain.ConflictPolicy{Strategy: domain.StrategyServerWins, AutoResolve: true, NotifyOnConflict: true}, notifier)
	f.entities.put(journal, 5, t0, map[string]any{})

	_, err := f.resolver.Resolve(context.Background(), Request{Ref: journal, ClientVersion: 1, Fields: map[string]any{}})

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestResolve_Deterministic(t *testing.T) {
	server := &domain.Entity{Version: 5, LastModified: t0, Fields: map[string]any{"escalated": false}}
	client := map[string]any{"escalated": false}
	strategies := []domain.Strategy{
		domain.StrategyClientWins, domain.StrategyServerWins, domain.StrategyMostRecentWins,
		domain.StrategyPreserveEscalation, domain.StrategyManual,
	}

	for _, s := range strategies {
		first := Decide(s, t0.Add(time.Second), client, server)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, Decide(s, t0.Add(time.Second), client, server), "strategy %s", s)
		}
	}
}

func TestResolve_VersionMonotonicity(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 10, t0, map[string]any{})

	const n = 25
	for i := 0; i < n; i++ {
		current := f.entities.version(journal)
		out, err := f.resolver.Resolve(context.Background(), Request{Ref: journal, ClientVersion: current, Fields: map[string]any{"i": i}})
		require.NoError(t, err)
		require.Equal(t, current+1, out.NewVersion)
	}

	assert.Equal(t, int64(10+n), f.entities.version(journal))
}

func TestResolve_ConcurrentWriterTriggersRetry(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyServerWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})
	f.entities.bumpOnce = true

	out, err := f.resolver.Resolve(context.Background(), Request{Ref: journal, ClientVersion: 5, Fields: map[string]any{"text": "client"}})

	require.NoError(t, err)
	// The other writer moved the entity to 6, so the retry sees a conflict
	assert.Equal(t, KindConflict, out.Kind)
	assert.Equal(t, domain.SideServer, out.WinningSide)
	assert.Equal(t, int64(6), out.NewVersion)
}

func TestResolve_StoreErrorIsTransient(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.getErr = errors.New("connection reset")

	_, err := f.resolver.Resolve(context.Background(), Request{Ref: journal})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, domain.IsRetryable(err))
}

func clientWinRequest() Request {
	return Request{
		Ref: journal, DeviceID: "d1", ClientVersion: 4,
		Fields: map[string]any{"text": "client"}, ClientTimestamp: t0.Add(10 * time.Second),
	}
}

func TestResolve_LogFailureLeavesEntityUntouched(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})
	f.log.appendErr = errors.New("connection reset")

	_, err := f.resolver.Resolve(context.Background(), clientWinRequest())

	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, int64(5), f.entities.version(journal))
	assert.Equal(t, 0, f.entities.writes)
	assert.Empty(t, f.publisher.types())
}

func TestResolve_FailedWriteAbandonsLogRow(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})
	f.entities.casErr = errors.New("connection reset")

	_, err := f.resolver.Resolve(context.Background(), clientWinRequest())

	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.Equal(t, 1, f.log.len())
	assert.Equal(t, domain.ConflictStatusAbandoned, f.log.records[0].Status)
	assert.Equal(t, int64(5), f.entities.version(journal))
}

func TestResolve_SettleFailureKeepsAppliedWrite(t *testing.T) {
	f := newFixture(policyWith(domain.StrategyMostRecentWins), nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server"})
	f.log.settleErr = errors.New("connection reset")

	out, err := f.resolver.Resolve(context.Background(), clientWinRequest())

	require.NoError(t, err)
	assert.True(t, out.ClientWon())
	assert.Equal(t, int64(6), out.NewVersion)
	assert.Equal(t, int64(6), f.entities.version(journal))
	require.Equal(t, 1, f.log.len())
	assert.Equal(t, domain.ConflictStatusApplying, f.log.records[0].Status)
	assert.Equal(t, domain.ConflictStatusAutoResolved, out.Record.Status)
	assert.Equal(t, []event.Type{event.ConflictDetected}, f.publisher.types())
}

func pendingFixture(t *testing.T) (*fixture, string) {
	t.Helper()
	f := newFixture(domain.ConflictPolicy{Strategy: domain.StrategyManual, AutoResolve: true}, nil)
	f.entities.put(journal, 5, t0, map[string]any{"text": "server", "mood": "ok"})

	out, err := f.resolver.Resolve(context.Background(), Request{
		Ref: journal, DeviceID: "d1", ClientVersion: 4, Fields: map[string]any{"text": "client"},
	})
	require.NoError(t, err)
	require.True(t, out.Pending)
	return f, out.Record.ID
}

func TestResolvePending(t *testing.T) {
	ctx := context.Background()

	t.Run("client wins applies stored client payload", func(t *testing.T) {
		f, id := pendingFixture(t)

		res, err := f.resolver.ResolvePending(ctx, id, domain.ResolutionClientWins, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(6), res.Version)
		assert.Equal(t, map[string]any{"text": "client"}, res.Fields)

		rec, err := f.resolver.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ConflictStatusResolved, rec.Status)
		assert.NotNil(t, rec.ResolvedAt)
		assert.Contains(t, f.publisher.types(), event.ConflictResolved)
	})

	t.Run("server wins leaves entity untouched", func(t *testing.T) {
		f, id := pendingFixture(t)

		res, err := f.resolver.ResolvePending(ctx, id, domain.ResolutionServerWins, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Version)
		assert.Equal(t, domain.SideServer, res.WinningSide)
		assert.Equal(t, int64(5), f.entities.version(journal))
	})

	t.Run("merge overlays client data on server state", func(t *testing.T) {
		f, id := pendingFixture(t)

		res, err := f.resolver.ResolvePending(ctx, id, domain.ResolutionMerge, map[string]any{"text": "merged"})

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"text": "merged", "mood": "ok"}, res.Fields)
		assert.Equal(t, int64(6), res.Version)
	})

	t.Run("merge without data is invalid", func(t *testing.T) {
		f, id := pendingFixture(t)

		_, err := f.resolver.ResolvePending(ctx, id, domain.ResolutionMerge, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidResolution)
	})

	t.Run("second resolution is rejected", func(t *testing.T) {
		f, id := pendingFixture(t)
		_, err := f.resolver.ResolvePending(ctx, id, domain.ResolutionServerWins, nil)
		require.NoError(t, err)

		_, err = f.resolver.ResolvePending(ctx, id, domain.ResolutionClientWins, nil)

		assert.ErrorIs(t, err, domain.ErrConflictAlreadyResolved)
	})

	t.Run("unknown conflict", func(t *testing.T) {
		f, _ := pendingFixture(t)

		_, err := f.resolver.ResolvePending(ctx, "missing", domain.ResolutionServerWins, nil)

		assert.ErrorIs(t, err, domain.ErrConflictNotFound)
	})

	t.Run("unknown resolution", func(t *testing.T) {
		f, id := pendingFixture(t)

		_, err := f.resolver.ResolvePending(ctx, id, "flip", nil)

		assert.ErrorIs(t, err, domain.ErrInvalidResolution)
	})
}
