package postgres

// PostgreSQL Error Codes
const (
	// PgErrorCodeUniqueViolation is the PostgreSQL error code for unique constraint violations
	PgErrorCodeUniqueViolation = "23505"
)

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction: %w"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction: %w"
	ErrMsgFailedToAcquireLock       = "failed to acquire advisory lock: %w"
)

// Error Messages - Encoding
const (
	ErrMsgFailedToMarshal   = "failed to marshal %s: %w"
	ErrMsgFailedToUnmarshal = "failed to unmarshal %s: %w"
)

// Error Messages - Idempotency
const (
	ErrMsgReserveIdempotency = "failed to reserve idempotency key: %w"
	ErrMsgCommitIdempotency  = "failed to commit idempotency key: %w"
	ErrMsgReleaseIdempotency = "failed to release idempotency key: %w"
	ErrMsgDeleteIdempotency  = "failed to delete expired idempotency keys: %w"
)

// Error Messages - Policies
const (
	ErrMsgGetPolicy    = "failed to get conflict policy: %w"
	ErrMsgUpsertPolicy = "failed to upsert conflict policy: %w"
	ErrMsgListPolicies = "failed to list conflict policies: %w"
)

// Error Messages - Entities
const (
	ErrMsgGetEntity = "failed to get entity: %w"
	ErrMsgCASEntity = "failed to write entity: %w"
)

// Error Messages - Conflict log
const (
	ErrMsgAppendConflict  = "failed to append conflict: %w"
	ErrMsgGetConflict     = "failed to get conflict: %w"
	ErrMsgResolveConflict = "failed to resolve conflict: %w"
	ErrMsgSettleConflict  = "failed to settle conflict: %w"
	ErrMsgListConflicts   = "failed to list conflicts: %w"
)

// Error Messages - Device health
const (
	ErrMsgGetHealth    = "failed to get device health: %w"
	ErrMsgUpdateHealth = "failed to update device health: %w"
	ErrMsgListHealth   = "failed to list device health: %w"
)

// Error Messages - Uploads
const (
	ErrMsgCreateUpload     = "failed to create upload session: %w"
	ErrMsgGetUpload        = "failed to get upload session: %w"
	ErrMsgAddChunk         = "failed to record upload chunk: %w"
	ErrMsgResetChunks      = "failed to reset upload chunks: %w"
	ErrMsgTransitionUpload = "failed to transition upload session: %w"
	ErrMsgListUploads      = "failed to list expired upload sessions: %w"
)

// Error Messages - Analytics and event log
const (
	ErrMsgWriteSnapshot = "failed to write analytics snapshot: %w"
	ErrMsgListSnapshots = "failed to list analytics snapshots: %w"
	ErrMsgLogEvent      = "failed to log event: %w"
	ErrMsgGetEvents     = "failed to get events: %w"
	ErrMsgCleanupEvents = "failed to clean up events: %w"
)

// Log Messages
const (
	LogMsgRollbackFailed = "Failed to rollback transaction"
)
