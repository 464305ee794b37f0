package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/osse101/mobilesync/internal/domain"
)

// PolicyRepository is an in-memory policy.Repository
type PolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]domain.ConflictPolicy
}

// NewPolicyRepository creates an empty repository
func NewPolicyRepository() *PolicyRepository {
	return &PolicyRepository{policies: make(map[string]domain.ConflictPolicy)}
}

func policyKey(tenantID, domainName string) string {
	return tenantID + "/" + domainName
}

func (r *PolicyRepository) GetPolicy(_ context.Context, tenantID, domainName string) (*domain.ConflictPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[policyKey(tenantID, domainName)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *PolicyRepository) UpsertPolicy(_ context.Context, policy domain.ConflictPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[policyKey(policy.TenantID, policy.Domain)] = policy
	return nil
}

func (r *PolicyRepository) ListPolicies(_ context.Context, tenantID string) ([]domain.ConflictPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ConflictPolicy
	for _, p := range r.policies {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}
