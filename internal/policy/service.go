package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
)

// Service is the administrative surface over tenant policies
type Service interface {
	GetPolicy(ctx context.Context, tenantID, domainName string) domain.ConflictPolicy
	SetPolicy(ctx context.Context, policy domain.ConflictPolicy) (domain.ConflictPolicy, error)
	ListPolicies(ctx context.Context, tenantID string) ([]domain.ConflictPolicy, error)
	Invalidate(ctx context.Context, tenantID, domainName string)
	CacheStats() CacheStats
}

type service struct {
	repo  Repository
	cache *Cache
}

// NewService creates a policy service
func NewService(repo Repository, cache *Cache) Service {
	return &service{repo: repo, cache: cache}
}

func (s *service) GetPolicy(ctx context.Context, tenantID, domainName string) domain.ConflictPolicy {
	return s.cache.GetPolicy(ctx, tenantID, domainName)
}

// SetPolicy upserts the policy and drops the cached copy so the next sync
// on this process sees it immediately
func (s *service) SetPolicy(ctx context.Context, p domain.ConflictPolicy) (domain.ConflictPolicy, error) {
	if !p.Strategy.Valid() {
		return domain.ConflictPolicy{}, fmt.Errorf("%w: unknown resolution_strategy %q", domain.ErrInvalidPayload, p.Strategy)
	}
	p.IsDefault = false
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpsertPolicy(ctx, p); err != nil {
		return domain.ConflictPolicy{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	s.cache.Invalidate(p.TenantID, p.Domain)

	logger.FromContext(ctx).Info(LogMsgPolicyUpdated,
		"tenant_id", p.TenantID,
		"domain", p.Domain,
		"strategy", p.Strategy,
		"auto_resolve", p.AutoResolve)
	return p, nil
}

func (s *service) ListPolicies(ctx context.Context, tenantID string) ([]domain.ConflictPolicy, error) {
	policies, err := s.repo.ListPolicies(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return policies, nil
}

// Invalidate drops a single domain, or the whole tenant when domainName is empty
func (s *service) Invalidate(ctx context.Context, tenantID, domainName string) {
	if domainName == "" {
		s.cache.InvalidateTenant(tenantID)
	} else {
		s.cache.Invalidate(tenantID, domainName)
	}
	logger.FromContext(ctx).Info(LogMsgPolicyInvalidated, "tenant_id", tenantID, "domain", domainName)
}

func (s *service) CacheStats() CacheStats {
	return s.cache.Stats()
}
