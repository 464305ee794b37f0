package eventlog

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

// MockEventBus is a mock implementation of event.Bus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, evt event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventType event.Type, handler event.Handler) {
	m.Called(eventType, handler)
}

func TestService_Subscribe(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo)
	mockBus := new(MockEventBus)

	for _, et := range event.AllTypes {
		mockBus.On("Subscribe", et, mock.Anything).Return()
	}

	err := service.Subscribe(mockBus)
	assert.NoError(t, err)
	mockBus.AssertExpectations(t)
}

func TestService_HandleEvent(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)
	ctx := context.Background()

	evt := event.NewBatchProcessedEvent(event.BatchProcessedPayloadV1{
		TenantID:       "t1",
		DeviceID:       "d1",
		IdempotencyKey: "k1",
		Items:          3,
		SyncedItems:    2,
		FailedItems:    1,
		ProcessedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	mockRepo.On("LogEvent", ctx, mock.MatchedBy(func(e Event) bool {
		return e.EventType == string(event.BatchProcessed) &&
			e.TenantID != nil && *e.TenantID == "t1" &&
			e.DeviceID != nil && *e.DeviceID == "d1" &&
			e.Payload["idempotency_key"] == "k1" &&
			e.Payload["synced_items"] == float64(2) &&
			e.Metadata[event.MetadataKeyTenantID] == "t1"
	})).Return(nil)

	err := svc.handleEvent(ctx, evt)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_HandleEvent_NoTenant(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)
	ctx := context.Background()

	evt := event.NewUploadFinalizedEvent("d1", domain.FileReference{UploadID: "u1", URL: "https://cdn/x", Size: 10})

	mockRepo.On("LogEvent", ctx, mock.MatchedBy(func(e Event) bool {
		return e.TenantID == nil && e.DeviceID != nil && *e.DeviceID == "d1"
	})).Return(nil)

	require.NoError(t, svc.handleEvent(ctx, evt))
	mockRepo.AssertExpectations(t)
}

func TestService_HandleEvent_RepoError(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)
	ctx := context.Background()

	mockRepo.On("LogEvent", ctx, mock.Anything).Return(errors.New("db down"))

	err := svc.handleEvent(ctx, event.NewSnapshotWrittenEvent(domain.AnalyticsSnapshot{TenantID: "t1"}))
	assert.ErrorContains(t, err, "db down")
}

func TestService_HandleEvent_UndecodablePayload(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo).(*service)

	err := svc.handleEvent(context.Background(), event.Event{Type: event.BatchProcessed, Payload: []int{1, 2}})

	assert.NoError(t, err)
	mockRepo.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything)
}

func TestService_Events_ClampsLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultQueryLimit},
		{"kept", 25, 25},
		{"clamped", 5000, MaxQueryLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo)
			mockRepo.On("GetEvents", mock.Anything, mock.MatchedBy(func(f EventFilter) bool {
				return f.Limit == tt.want
			})).Return([]Event{}, nil)

			_, err := service.Events(context.Background(), EventFilter{Limit: tt.limit})
			require.NoError(t, err)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_CleanupOldEvents(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo)
	ctx := context.Background()

	mockRepo.On("CleanupOldEvents", ctx, 10).Return(int64(5), nil)

	count, err := service.CleanupOldEvents(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)
	mockRepo.AssertExpectations(t)
}
