package analytics

import "time"

// BucketSize is the width of one rollup bucket
const BucketSize = time.Hour

// Percentiles reported per bucket
const (
	P50 = 50
	P95 = 95
	P99 = 99
)

// Log messages
const (
	LogMsgDecodeFailed       = "Failed to decode batch processed payload"
	LogMsgSnapshotWritten    = "Analytics snapshot written"
	LogMsgSnapshotExists     = "Analytics snapshot already written, bucket discarded"
	LogMsgSnapshotFailed     = "Failed to write analytics snapshot, keeping bucket"
	LogMsgFlushJobStarting   = "Starting analytics flush job"
	LogMsgFlushJobCompleted  = "Analytics flush job completed"
	LogMsgFlushJobFailed     = "Analytics flush job failed"
	LogMsgLateBatchDiscarded = "Batch arrived for an already written bucket"
)

// Error message formats
const (
	ErrMsgDecodePayload = "decode batch processed payload: %w"
	ErrMsgWriteSnapshot = "write snapshot %s@%s: %w"
	ErrMsgListSnapshots = "list snapshots for %s: %w"
	ErrMsgTenantMissing = "tenant_id is required"
)
