package eventlog

import (
	"context"
	"fmt"

	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/logger"
)

// Service handles event logging business logic
type Service interface {
	// Subscribe registers the event logger to listen to all sync events
	Subscribe(bus event.Bus) error

	// Events returns logged events matching filter
	Events(ctx context.Context, filter EventFilter) ([]Event, error)

	// CleanupOldEvents removes events older than retention period
	CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error)
}

type service struct {
	repo Repository
}

// NewService creates a new event logging service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Subscribe registers event handlers for all event types
func (s *service) Subscribe(bus event.Bus) error {
	for _, eventType := range event.AllTypes {
		bus.Subscribe(eventType, s.handleEvent)
	}
	return nil
}

// handleEvent flattens the typed payload and stores it
func (s *service) handleEvent(ctx context.Context, evt event.Event) error {
	log := logger.FromContext(ctx)

	payload, err := event.DecodePayload[map[string]interface{}](evt.Payload)
	if err != nil {
		log.Debug(LogMsgEventPayloadNotMap, LogFieldType, evt.Type, LogFieldError, err)
		return nil
	}
	metadata, _ := evt.Metadata.(map[string]interface{})

	rec := Event{
		EventType: string(evt.Type),
		TenantID:  stringField(payload, PayloadKeyTenantID),
		DeviceID:  stringField(payload, PayloadKeyDeviceID),
		Payload:   payload,
		Metadata:  metadata,
	}
	if err := s.repo.LogEvent(ctx, rec); err != nil {
		log.Error(LogMsgFailedToLogEvent, LogFieldError, err, LogFieldType, evt.Type)
		return fmt.Errorf(ErrMsgLogEvent, evt.Type, err)
	}

	log.Debug(LogMsgEventLogged, LogFieldType, evt.Type, LogFieldTenantID, rec.TenantID)
	return nil
}

// Events returns logged events, clamping the limit
func (s *service) Events(ctx context.Context, filter EventFilter) ([]Event, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultQueryLimit
	case filter.Limit > MaxQueryLimit:
		filter.Limit = MaxQueryLimit
	}
	return s.repo.GetEvents(ctx, filter)
}

// CleanupOldEvents removes events older than the retention period
func (s *service) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	return s.repo.CleanupOldEvents(ctx, retentionDays)
}

func stringField(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}
