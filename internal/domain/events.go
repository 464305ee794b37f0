package domain

// Event type constants used for event bus subscriptions and metrics tracking.
//
// Event types follow the pattern: <entity>.<action> (e.g., "conflict.detected")
const (
	// EventTypeBatchProcessed is published after a sync batch outcome is committed
	EventTypeBatchProcessed = "sync.batch_processed"

	// EventTypeConflictDetected is published for every logged conflict
	EventTypeConflictDetected = "conflict.detected"

	// EventTypeConflictResolved is published when a pending conflict is resolved
	EventTypeConflictResolved = "conflict.resolved"

	// EventTypeUploadFinalized is published when an upload is moved to permanent storage
	EventTypeUploadFinalized = "upload.finalized"

	// EventTypeSnapshotWritten is published when an hourly analytics bucket is persisted
	EventTypeSnapshotWritten = "analytics.snapshot_written"
)
