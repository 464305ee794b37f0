package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/domain"
)

func TestCache_ReadThrough(t *testing.T) {
	repo := new(MockRepository)
	cache := NewCache(repo, 16, time.Hour)
	ctx := context.Background()

	stored := &domain.ConflictPolicy{TenantID: "t1", Domain: "journal", Strategy: domain.StrategyClientWins, AutoResolve: true}
	repo.On("GetPolicy", mock.Anything, "t1", "journal").Return(stored, nil).Once()

	first := cache.GetPolicy(ctx, "t1", "journal")
	second := cache.GetPolicy(ctx, "t1", "journal")

	assert.Equal(t, domain.StrategyClientWins, first.Strategy)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "GetPolicy", 1)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_MissingRowUsesCachedDefault(t *testing.T) {
	repo := new(MockRepository)
	cache := NewCache(repo, 16, time.Hour)
	repo.On("GetPolicy", mock.Anything, "t1", "journal").Return(nil, domain.ErrNotFound).Once()

	p := cache.GetPolicy(context.Background(), "t1", "journal")
	_ = cache.GetPolicy(context.Background(), "t1", "journal")

	assert.Equal(t, domain.StrategyMostRecentWins, p.Strategy)
	assert.True(t, p.AutoResolve)
	assert.True(t, p.IsDefault)
	repo.AssertNumberOfCalls(t, "GetPolicy", 1)
}

func TestCache_StoreErrorIsNotCached(t *testing.T) {
	repo := new(MockRepository)
	cache := NewCache(repo, 16, time.Hour)
	repo.On("GetPolicy", mock.Anything, "t1", "journal").Return(nil, errors.New("db down")).Twice()

	p := cache.GetPolicy(context.Background(), "t1", "journal")
	_ = cache.GetPolicy(context.Background(), "t1", "journal")

	assert.Equal(t, domain.StrategyMostRecentWins, p.Strategy)
	repo.AssertNumberOfCalls(t, "GetPolicy", 2)
}

func TestCache_TTLExpiry(t *testing.T) {
	repo := new(MockRepository)
	cache := NewCache(repo, 16, 50*time.Millisecond)
	repo.On("GetPolicy", mock.Anything, "t1", "journal").Return(&domain.ConflictPolicy{Strategy: domain.StrategyServerWins, AutoResolve: true}, nil)

	cache.GetPolicy(context.Background(), "t1", "journal")
	time.Sleep(120 * time.Millisecond)
	cache.GetPolicy(context.Background(), "t1", "journal")

	repo.AssertNumberOfCalls(t, "GetPolicy", 2)
}

func TestCache_InvalidateTenant(t *testing.T) {
	repo := new(MockRepository)
	cache := NewCache(repo, 16, time.Hour)
	repo.On("GetPolicy", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	ctx := context.Background()
	cache.GetPolicy(ctx, "t1", "journal")
	cache.GetPolicy(ctx, "t1", "incident")
	cache.GetPolicy(ctx, "t2", "journal")

	removed := cache.InvalidateTenant("t1")

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestService_SetPolicyInvalidates(t *testing.T) {
	repo := new(MockRepository)
	cache := NewCache(repo, 16, time.Hour)
	svc := NewService(repo, cache)
	ctx := context.Background()

	repo.On("GetPolicy", mock.Anything, "t1", "journal").Return(nil, domain.ErrNotFound).Once()
	assert.Equal(t, domain.StrategyMostRecentWins, svc.GetPolicy(ctx, "t1", "journal").Strategy)

	repo.On("UpsertPolicy", mock.Anything, mock.MatchedBy(func(p domain.ConflictPolicy) bool {
		return p.TenantID == "t1" && p.Strategy == domain.StrategyManual
	})).Return(nil)
	updated := &domain.ConflictPolicy{TenantID: "t1", Domain: "journal", Strategy: domain.StrategyManual, AutoResolve: true}
	repo.On("GetPolicy", mock.Anything, "t1", "journal").Return(updated, nil).Once()

	_, err := svc.SetPolicy(ctx, *updated)
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyManual, svc.GetPolicy(ctx, "t1", "journal").Strategy)
	repo.AssertExpectations(t)
}

func TestService_SetPolicyRejectsUnknownStrategy(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, NewCache(repo, 16, time.Hour))

	_, err := svc.SetPolicy(context.Background(), domain.ConflictPolicy{TenantID: "t1", Domain: "journal", Strategy: "coin_flip"})

	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	repo.AssertNotCalled(t, "UpsertPolicy", mock.Anything, mock.Anything)
}
