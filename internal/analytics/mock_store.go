package analytics

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/mobilesync/internal/domain"
)

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) WriteSnapshot(ctx context.Context, snap domain.AnalyticsSnapshot) (bool, error) {
	args := m.Called(ctx, snap)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListSnapshots(ctx context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error) {
	args := m.Called(ctx, tenantID, since)
	snaps, _ := args.Get(0).([]domain.AnalyticsSnapshot)
	return snaps, args.Error(1)
}
