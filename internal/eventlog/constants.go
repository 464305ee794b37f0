package eventlog

// Payload field keys
const (
	PayloadKeyTenantID = "tenant_id"
	PayloadKeyDeviceID = "device_id"
)

// Query limits
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// Log messages - service events
const (
	LogMsgEventPayloadNotMap = "Event payload could not be decoded, skipping log"
	LogMsgFailedToLogEvent   = "Failed to log event to database"
	LogMsgEventLogged        = "Event logged to database"
)

// Cleanup job
const (
	CleanupJobName = "eventlog_cleanup"

	LogMsgCleanupJobDisabled  = "Event log retention disabled, skipping cleanup"
	LogMsgCleanupJobFailed    = "Event log cleanup failed"
	LogMsgCleanupJobCompleted = "Event log cleanup completed"
)

// Log field keys - structured logging fields
const (
	LogFieldType          = "type"
	LogFieldTenantID      = "tenant_id"
	LogFieldError         = "error"
	LogFieldRetentionDays = "retention_days"
	LogFieldDuration      = "duration"
	LogFieldDeletedCount  = "deleted_count"
)

// Error messages
const (
	ErrMsgLogEvent = "failed to log %s event: %w"
)
