package policy

// CacheSchemaVersion is the current version of the cache schema
// Increment this when the cached data structure changes to auto-invalidate old entries
const CacheSchemaVersion = "1.0"

// Log messages
const (
	LogMsgPolicyLoadFailed  = "Failed to load tenant policy, using system default"
	LogMsgPolicyDefaulted   = "No tenant policy row, using system default"
	LogMsgPolicyUpdated     = "Tenant policy updated"
	LogMsgPolicyInvalidated = "Tenant policy cache invalidated"
)
