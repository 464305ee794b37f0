package health

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/mobilesync/internal/domain"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, deviceID, userID string) (*domain.DeviceHealth, error) {
	args := m.Called(ctx, deviceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceHealth), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, deviceID, userID string, fn func(*domain.DeviceHealth) error) (*domain.DeviceHealth, error) {
	args := m.Called(ctx, deviceID, userID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceHealth), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID string) ([]domain.DeviceHealth, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeviceHealth), args.Error(1)
}
