package engine

import "time"

// Defaults
const (
	DefaultConcurrency = 8

	// FinishTimeout bounds commit, health and event work after the items ran
	FinishTimeout    = 10 * time.Second
	CommitAttempts   = 3
	CommitRetryDelay = 100 * time.Millisecond
)

// Log messages
const (
	LogMsgBatchReplayed      = "Replaying stored batch outcome"
	LogMsgBatchProcessed     = "Batch processed"
	LogMsgBatchAborted       = "Batch aborted, idempotency key released"
	LogMsgCommitFailed       = "Failed to commit batch outcome after applying items"
	LogMsgCommitRetry        = "Retrying batch outcome commit"
	LogMsgReleaseFailed      = "Failed to release idempotency reservation"
	LogMsgItemFailed         = "Sync item failed"
	LogMsgItemTimedOut       = "Sync item timed out"
	LogMsgSnapshotDecodeFail = "Stored batch outcome could not be decoded"
)

// Error message formats
const (
	ErrMsgFieldRequired    = "%w: %s is required"
	ErrMsgTooManyItems     = "%w: %d items exceeds %d"
	ErrMsgEmptyBatch       = "%w: batch has no items"
	ErrMsgCommitFailed     = "%w: %v"
	ErrMsgFingerprint      = "fingerprint batch: %w"
	ErrMsgEncodeOutcome    = "encode batch outcome: %w"
	ErrMsgDecodeSnapshot   = "decode stored outcome: %w"
	ErrMsgAllItemsDeferred = "%w: no item could reach the entity store"
	ErrMsgItemTimeout      = "%w: item exceeded %s"
)
