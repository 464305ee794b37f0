package conflict

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osse101/mobilesync/internal/domain"
)

// MockNotifier is a mock implementation of the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyConflict(ctx context.Context, rec domain.ConflictRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
