package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if m, ok := e.Metadata.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// Sync event types
const (
	BatchProcessed   Type = domain.EventTypeBatchProcessed
	ConflictDetected Type = domain.EventTypeConflictDetected
	ConflictResolved Type = domain.EventTypeConflictResolved
	UploadFinalized  Type = domain.EventTypeUploadFinalized
	SnapshotWritten  Type = domain.EventTypeSnapshotWritten
)

// AllTypes lists every event type the engine publishes.
var AllTypes = []Type{BatchProcessed, ConflictDetected, ConflictResolved, UploadFinalized, SnapshotWritten}

// Typed event payloads for type safety

// EntityVersionV1 names an entity version written by a batch
type EntityVersionV1 struct {
	Domain   string `json:"domain"`
	MobileID string `json:"mobile_id"`
	Version  int64  `json:"version"`
}

// BatchProcessedPayloadV1 is the typed payload for sync.batch_processed
type BatchProcessedPayloadV1 struct {
	TenantID       string            `json:"tenant_id"`
	UserID         string            `json:"user_id"`
	DeviceID       string            `json:"device_id"`
	IdempotencyKey string            `json:"idempotency_key"`
	Items          int               `json:"items"`
	SyncedItems    int               `json:"synced_items"`
	FailedItems    int               `json:"failed_items"`
	Conflicts      int               `json:"conflicts"`
	DurationMs     int64             `json:"duration_ms"`
	ProcessedAt    time.Time         `json:"processed_at"`
	Updates        []EntityVersionV1 `json:"updates,omitempty"`
}

// ConflictPayloadV1 is the typed payload for conflict.detected and conflict.resolved
type ConflictPayloadV1 struct {
	ConflictID    string                `json:"conflict_id"`
	TenantID      string                `json:"tenant_id"`
	DeviceID      string                `json:"device_id"`
	Domain        string                `json:"domain"`
	MobileID      string                `json:"mobile_id"`
	ServerVersion int64                 `json:"server_version"`
	ClientVersion int64                 `json:"client_version"`
	Strategy      domain.Strategy       `json:"resolution_strategy"`
	WinningSide   domain.Side           `json:"winning_side"`
	Status        domain.ConflictStatus `json:"status"`
	Resolution    domain.Resolution     `json:"resolution,omitempty"`
	NewVersion    int64                 `json:"new_version,omitempty"`
}

// UploadFinalizedPayloadV1 is the typed payload for upload.finalized
type UploadFinalizedPayloadV1 struct {
	UploadID string `json:"upload_id"`
	DeviceID string `json:"device_id,omitempty"`
	URL      string `json:"file_url"`
	Size     int64  `json:"file_size"`
	Checksum string `json:"checksum"`
}

// Type-safe event constructors

// NewBatchProcessedEvent creates a sync.batch_processed event
func NewBatchProcessedEvent(payload BatchProcessedPayloadV1) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    BatchProcessed,
		Payload: payload,
		Metadata: map[string]interface{}{
			MetadataKeyTenantID: payload.TenantID,
			MetadataKeyDeviceID: payload.DeviceID,
		},
	}
}

// NewConflictEvent creates a conflict.detected or conflict.resolved event from a log row
func NewConflictEvent(eventType Type, rec domain.ConflictRecord, newVersion int64) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    eventType,
		Payload: ConflictPayloadV1{
			ConflictID:    rec.ID,
			TenantID:      rec.TenantID,
			DeviceID:      rec.DeviceID,
			Domain:        rec.Domain,
			MobileID:      rec.MobileID,
			ServerVersion: rec.ServerVersion,
			ClientVersion: rec.ClientVersion,
			Strategy:      rec.Strategy,
			WinningSide:   rec.WinningSide,
			Status:        rec.Status,
			Resolution:    rec.Resolution,
			NewVersion:    newVersion,
		},
		Metadata: map[string]interface{}{
			MetadataKeyTenantID: rec.TenantID,
			MetadataKeyDeviceID: rec.DeviceID,
		},
	}
}

// NewUploadFinalizedEvent creates an upload.finalized event
func NewUploadFinalizedEvent(deviceID string, ref domain.FileReference) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    UploadFinalized,
		Payload: UploadFinalizedPayloadV1{
			UploadID: ref.UploadID,
			DeviceID: deviceID,
			URL:      ref.URL,
			Size:     ref.Size,
			Checksum: ref.Checksum,
		},
		Metadata: map[string]interface{}{
			MetadataKeyDeviceID: deviceID,
		},
	}
}

// NewSnapshotWrittenEvent creates an analytics.snapshot_written event
func NewSnapshotWrittenEvent(snapshot domain.AnalyticsSnapshot) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SnapshotWritten,
		Payload: snapshot,
		Metadata: map[string]interface{}{
			MetadataKeyTenantID: snapshot.TenantID,
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// Publisher is the narrow interface producers depend on
type Publisher interface {
	PublishWithRetry(ctx context.Context, event Event)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	// Handlers run synchronously in subscription order.
	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
