package sse

import (
	"context"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/logger"
)

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{hub: hub, bus: bus}
}

// Subscribe registers handlers for every dashboard event type
func (s *Subscriber) Subscribe() {
	s.bus.Subscribe(event.ConflictDetected, s.handleConflict)
	s.bus.Subscribe(event.ConflictResolved, s.handleConflict)
	s.bus.Subscribe(event.BatchProcessed, s.handleBatchProcessed)
	s.bus.Subscribe(event.UploadFinalized, s.handleUploadFinalized)
	s.bus.Subscribe(event.SnapshotWritten, s.handleSnapshotWritten)

	logger.Info(LogMsgSubscribed, "types", []string{
		EventTypeConflictDetected,
		EventTypeConflictResolved,
		EventTypeBatchProcessed,
		EventTypeUploadFinalized,
		EventTypeSnapshotWritten,
	})
}

func (s *Subscriber) handleConflict(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.ConflictPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgInvalidPayload, "type", evt.Type, "error", err)
		return nil
	}
	s.hub.Broadcast(string(evt.Type), p.TenantID, ConflictPayload{
		ConflictID:    p.ConflictID,
		DeviceID:      p.DeviceID,
		Domain:        p.Domain,
		MobileID:      p.MobileID,
		Strategy:      string(p.Strategy),
		Status:        string(p.Status),
		WinningSide:   string(p.WinningSide),
		Resolution:    string(p.Resolution),
		ServerVersion: p.ServerVersion,
		ClientVersion: p.ClientVersion,
	})
	logger.FromContext(ctx).Debug(LogMsgEventBroadcast, "event_type", evt.Type, "conflict_id", p.ConflictID)
	return nil
}

func (s *Subscriber) handleBatchProcessed(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.BatchProcessedPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgInvalidPayload, "type", evt.Type, "error", err)
		return nil
	}
	s.hub.Broadcast(EventTypeBatchProcessed, p.TenantID, BatchPayload{
		DeviceID:    p.DeviceID,
		UserID:      p.UserID,
		Items:       p.Items,
		SyncedItems: p.SyncedItems,
		FailedItems: p.FailedItems,
		Conflicts:   p.Conflicts,
		DurationMs:  p.DurationMs,
	})
	return nil
}

func (s *Subscriber) handleUploadFinalized(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.UploadFinalizedPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgInvalidPayload, "type", evt.Type, "error", err)
		return nil
	}
	s.hub.Broadcast(EventTypeUploadFinalized, "", UploadPayload{
		UploadID: p.UploadID,
		DeviceID: p.DeviceID,
		URL:      p.URL,
		Size:     p.Size,
	})
	return nil
}

func (s *Subscriber) handleSnapshotWritten(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[domain.AnalyticsSnapshot](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgInvalidPayload, "type", evt.Type, "error", err)
		return nil
	}
	s.hub.Broadcast(EventTypeSnapshotWritten, p.TenantID, SnapshotPayload{
		BucketStart:     p.BucketStart,
		Batches:         p.Batches,
		SuccessRatePct:  p.SuccessRatePct,
		ConflictRatePct: p.ConflictRatePct,
		AvgDurationMs:   p.AvgDurationMs,
		P95DurationMs:   p.P95DurationMs,
	})
	return nil
}
