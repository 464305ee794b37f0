package idempotency

// Log messages
const (
	LogMsgReserved          = "Idempotency key reserved"
	LogMsgReplay            = "Replaying stored outcome for idempotency key"
	LogMsgFingerprintReused = "Idempotency key reused with a different payload"
	LogMsgInProgress        = "Idempotency key is reserved by an in-flight request"
	LogMsgReleased          = "Idempotency reservation released"

	LogMsgCleanupJobStarting  = "Starting idempotency cleanup job"
	LogMsgCleanupJobFailed    = "Idempotency cleanup failed"
	LogMsgCleanupJobCompleted = "Idempotency cleanup completed"
)

// Error message formats
const (
	ErrMsgReserveFailed = "reserve idempotency key: %w: %v"
	ErrMsgCommitFailed  = "commit idempotency key: %w: %v"
	ErrMsgReleaseFailed = "release idempotency key: %w: %v"
	ErrMsgCleanupFailed = "cleanup idempotency records: %w: %v"
)
