package domain

import "errors"

// ErrorCode is a stable, machine-readable error identifier returned to devices.
type ErrorCode string

// Stable error codes. Devices branch on these, never on messages.
const (
	CodeInvalidPayload      ErrorCode = "SYNC_001"
	CodeMissingField        ErrorCode = "SYNC_002"
	CodeIdempotencyConflict ErrorCode = "SYNC_003"
	CodeConflictDetected    ErrorCode = "SYNC_004"
	CodeVersionAhead        ErrorCode = "SYNC_005"

	CodeUploadInvalid    ErrorCode = "UPLOAD_001"
	CodeChecksumMismatch ErrorCode = "UPLOAD_002"
	CodeUploadExpired    ErrorCode = "UPLOAD_003"

	// Engine-level codes: nothing was applied, the request may be retried as-is.
	CodeUnavailable       ErrorCode = "SYS_001"
	CodeResourceExhausted ErrorCode = "SYS_002"
	CodeTimeout           ErrorCode = "SYS_003"
	CodeInternal          ErrorCode = "SYS_500"

	// Items were applied but the outcome was not stored. Not retryable; the
	// device should re-read the affected entities.
	CodeOutcomeUnrecorded ErrorCode = "SYS_004"
)

// Error message string constants - single source of truth for error messages
const (
	ErrMsgInvalidPayload      = "invalid payload format"
	ErrMsgMissingField        = "missing required field"
	ErrMsgUnknownDomain       = "unknown domain"
	ErrMsgPayloadTooLarge     = "payload exceeds size limit"
	ErrMsgIdempotencyConflict = "idempotency key reused with a different payload"
	ErrMsgRequestInProgress   = "request with this idempotency key is still in progress"
	ErrMsgVersionAhead        = "version_ahead_of_server"
	ErrMsgVersionMismatch     = "entity version changed concurrently"
	ErrMsgConflictNotFound    = "conflict not found"
	ErrMsgConflictResolved    = "conflict already resolved"
	ErrMsgInvalidResolution   = "invalid conflict resolution"

	ErrMsgUploadNotFound     = "invalid or unknown upload session"
	ErrMsgUploadInvalid      = "invalid upload request"
	ErrMsgUploadNotActive    = "upload session is not active"
	ErrMsgUploadIncomplete   = "upload is missing chunks"
	ErrMsgChunkOutOfRange    = "chunk index out of range"
	ErrMsgChunkSizeMismatch  = "chunk size does not match session"
	ErrMsgChecksumMismatch   = "checksum mismatch"
	ErrMsgUploadExpired      = "upload session expired"
	ErrMsgUploadStorageFull  = "upload storage is full"
	ErrMsgUploadRefNotUsable = "referenced upload is not finalized"

	ErrMsgStoreUnavailable  = "store unavailable"
	ErrMsgTimeout           = "operation timed out"
	ErrMsgOutcomeUnrecorded = "batch applied but its outcome could not be stored"
	ErrMsgQueueFull         = "outbound queue full"
	ErrMsgNotFound          = "not found"
)

// Common domain errors
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Validation errors
	ErrInvalidPayload  = errors.New(ErrMsgInvalidPayload)
	ErrMissingField    = errors.New(ErrMsgMissingField)
	ErrUnknownDomain   = errors.New(ErrMsgUnknownDomain)
	ErrPayloadTooLarge = errors.New(ErrMsgPayloadTooLarge)

	// Idempotency errors
	ErrIdempotencyConflict = errors.New(ErrMsgIdempotencyConflict)
	ErrRequestInProgress   = errors.New(ErrMsgRequestInProgress)

	// Versioning / conflict errors
	ErrVersionAhead            = errors.New(ErrMsgVersionAhead)
	ErrVersionMismatch         = errors.New(ErrMsgVersionMismatch)
	ErrConflictNotFound        = errors.New(ErrMsgConflictNotFound)
	ErrConflictAlreadyResolved = errors.New(ErrMsgConflictResolved)
	ErrInvalidResolution       = errors.New(ErrMsgInvalidResolution)

	// Upload errors
	ErrUploadNotFound     = errors.New(ErrMsgUploadNotFound)
	ErrUploadInvalid      = errors.New(ErrMsgUploadInvalid)
	ErrUploadNotActive    = errors.New(ErrMsgUploadNotActive)
	ErrUploadIncomplete   = errors.New(ErrMsgUploadIncomplete)
	ErrChunkOutOfRange    = errors.New(ErrMsgChunkOutOfRange)
	ErrChunkSizeMismatch  = errors.New(ErrMsgChunkSizeMismatch)
	ErrChecksumMismatch   = errors.New(ErrMsgChecksumMismatch)
	ErrUploadExpired      = errors.New(ErrMsgUploadExpired)
	ErrUploadStorageFull  = errors.New(ErrMsgUploadStorageFull)
	ErrUploadRefNotUsable = errors.New(ErrMsgUploadRefNotUsable)

	// Transient / resource errors
	ErrStoreUnavailable  = errors.New(ErrMsgStoreUnavailable)
	ErrTimeout           = errors.New(ErrMsgTimeout)
	ErrOutcomeUnrecorded = errors.New(ErrMsgOutcomeUnrecorded)
	ErrQueueFull         = errors.New(ErrMsgQueueFull)

	ErrNotFound = errors.New(ErrMsgNotFound)
)

// CodeOf maps an error chain to its stable code.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutcomeUnrecorded):
		return CodeOutcomeUnrecorded
	case errors.Is(err, ErrMissingField):
		return CodeMissingField
	case errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrUnknownDomain),
		errors.Is(err, ErrPayloadTooLarge),
		errors.Is(err, ErrUploadRefNotUsable),
		errors.Is(err, ErrInvalidResolution):
		return CodeInvalidPayload
	case errors.Is(err, ErrIdempotencyConflict):
		return CodeIdempotencyConflict
	case errors.Is(err, ErrVersionAhead):
		return CodeVersionAhead
	case errors.Is(err, ErrChecksumMismatch):
		return CodeChecksumMismatch
	case errors.Is(err, ErrUploadExpired):
		return CodeUploadExpired
	case errors.Is(err, ErrUploadNotFound),
		errors.Is(err, ErrUploadInvalid),
		errors.Is(err, ErrUploadNotActive),
		errors.Is(err, ErrUploadIncomplete),
		errors.Is(err, ErrChunkOutOfRange),
		errors.Is(err, ErrChunkSizeMismatch):
		return CodeUploadInvalid
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrUploadStorageFull):
		return CodeResourceExhausted
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrRequestInProgress),
		errors.Is(err, ErrVersionMismatch):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// IsRetryable reports whether the device may safely resend the same request.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeResourceExhausted, CodeTimeout:
		return true
	default:
		return false
	}
}
