package policy

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/mobilesync/internal/domain"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetPolicy(ctx context.Context, tenantID, domainName string) (*domain.ConflictPolicy, error) {
	args := m.Called(ctx, tenantID, domainName)
	p, _ := args.Get(0).(*domain.ConflictPolicy)
	return p, args.Error(1)
}

func (m *MockRepository) UpsertPolicy(ctx context.Context, policy domain.ConflictPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

func (m *MockRepository) ListPolicies(ctx context.Context, tenantID string) ([]domain.ConflictPolicy, error) {
	args := m.Called(ctx, tenantID)
	policies, _ := args.Get(0).([]domain.ConflictPolicy)
	return policies, args.Error(1)
}
