package conflict

import "time"

// MaxCASAttempts bounds optimistic retries when a concurrent writer moves a version
const MaxCASAttempts = 3

// SettleTimeout bounds the status update that follows an entity write
const SettleTimeout = 5 * time.Second

// Log messages
const (
	LogMsgVersionAhead      = "Rejected item claiming a version ahead of the server"
	LogMsgConflictDetected  = "Conflict detected"
	LogMsgConflictPending   = "Conflict left pending for manual resolution"
	LogMsgCASRetry          = "Entity version moved during resolution, retrying"
	LogMsgNotifyFailed      = "Failed to send conflict notification"
	LogMsgConflictResolved  = "Pending conflict resolved"
	LogMsgConflictLogFailed = "Failed to append conflict log entry"
	LogMsgSettleFailed      = "Failed to settle conflict log entry"
)

// Error message formats
const (
	ErrMsgLoadEntity    = "load entity %s: %w: %v"
	ErrMsgWriteEntity   = "write entity %s: %w: %v"
	ErrMsgAppendLog     = "append conflict log: %w: %v"
	ErrMsgCASExhausted  = "entity %s kept moving after %d attempts: %w"
	ErrMsgMergeNeedData = "%w: merge requires client_data"
)
