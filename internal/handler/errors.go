package handler

// Generic HTTP error messages for client responses.
// These messages do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	// HTTP status messages
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
	ErrMsgUnauthorized          = "Unauthorized"

	// Query parameter error messages
	ErrMsgMissingQueryParam = "Missing %s query parameter"
	ErrMsgInvalidLimit      = "Invalid 'limit' (must be 1-1000)"
	ErrMsgInvalidSince      = "Invalid 'since' timestamp format (use RFC3339)"
	ErrMsgInvalidUntil      = "Invalid 'until' timestamp format (use RFC3339)"
	ErrMsgInvalidStatus     = "Invalid 'status' (use pending, resolved or auto_resolved)"

	// Upload error messages
	ErrMsgInvalidChunkIndex = "Invalid chunk index"
	ErrMsgMissingChecksum   = "Missing X-Chunk-Checksum header"
	ErrMsgChunkTooLarge     = "Chunk body too large"

	// Generic service failure messages
	ErrMsgGenericServerError = "Something went wrong"
	ErrMsgUnavailableError   = "Server is temporarily unavailable. Please try again later."
	ErrMsgTimeoutError       = "Request timed out. Please try again."
	ErrMsgResourceExhausted  = "Server is out of capacity. Please try again later."
)

// Success messages for API responses
const (
	MsgPolicyCacheInvalidated = "Policy cache invalidated"
	MsgUploadCancelled        = "Upload cancelled"
)

// HTTP header and query parameter names
const (
	HeaderChunkChecksum = "X-Chunk-Checksum"
	HeaderRetryAfter    = "Retry-After"
	HeaderReplayed      = "X-Idempotent-Replay"

	QueryParamTenantID  = "tenant_id"
	QueryParamDomain    = "domain"
	QueryParamDeviceID  = "device_id"
	QueryParamStatus    = "status"
	QueryParamEventType = "event_type"
	QueryParamSince     = "since"
	QueryParamUntil     = "until"
	QueryParamLimit     = "limit"

	URLParamUploadID   = "uploadID"
	URLParamChunkIndex = "index"
	URLParamConflictID = "conflictID"
	URLParamUserID     = "userID"
)

// Defaults and limits
const (
	DefaultListLimit      = 50
	MaxListLimit          = 1000
	DefaultAnalyticsRange = 24 // hours
	RetryAfterSeconds     = "5"
)

// Log messages
const (
	LogMsgDecodeFailed     = "Failed to decode %s request"
	LogMsgRequestDecoded   = "%s request decoded"
	LogMsgServiceError     = "%s failed"
	LogMsgEncodeFailed     = "Failed to encode JSON response"
	LogMsgWriteFailed      = "Failed to write response"
	LogMsgReadinessFailed  = "Readiness check failed"
	LogMsgIdentityRejected = "Request identity rejected"
)
