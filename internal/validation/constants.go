package validation

import "time"

// SchemaFileSuffix marks files in the schema directory that define a domain
const SchemaFileSuffix = ".schema.json"

// reloadDebounce coalesces bursts of filesystem events from editors
const reloadDebounce = 200 * time.Millisecond

// Log messages
const (
	LogMsgSchemasLoaded    = "Loaded domain schemas"
	LogMsgSchemaReload     = "Schema directory changed, reloading"
	LogMsgSchemaReloadFail = "Schema reload failed, keeping previous schemas"
	LogMsgWatcherError     = "Schema watcher error"
)

// Error message formats
const (
	ErrMsgReadSchemaDir   = "failed to read schema directory %s: %w"
	ErrMsgReadSchema      = "failed to read schema file %s: %w"
	ErrMsgCompileSchema   = "failed to compile schema for %s: %w"
	ErrMsgFieldMissing    = "%w: %s"
	ErrMsgVersionNegative = "%w: version must not be negative"
	ErrMsgPayloadSize     = "%w: %d bytes exceeds %d"
	ErrMsgDomainUnknown   = "%w: %q"
	ErrMsgSchemaFailed    = "%w: %s"
	ErrMsgUploadRef       = "%w: %s: %v"
	ErrMsgSchemaNotFound  = "schema directory not found: %s"
)
