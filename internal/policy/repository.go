package policy

import (
	"context"

	"github.com/osse101/mobilesync/internal/domain"
)

// Repository is the durable tenant policy store
type Repository interface {
	// GetPolicy returns domain.ErrNotFound when the tenant has no row for the domain
	GetPolicy(ctx context.Context, tenantID, domainName string) (*domain.ConflictPolicy, error)
	UpsertPolicy(ctx context.Context, policy domain.ConflictPolicy) error
	ListPolicies(ctx context.Context, tenantID string) ([]domain.ConflictPolicy, error)
}
