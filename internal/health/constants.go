package health

import "time"

// Score weights
const (
	FailureWeight  = 0.6
	ConflictWeight = 0.3
	LatencyWeight  = 0.1

	// LatencyCeilingFactor is the multiple of the P95 target at which the
	// latency penalty saturates
	LatencyCeilingFactor = 5.0

	MaxScore = 100.0
)

// Defaults
const (
	DefaultAlpha     = 0.2
	DefaultP95Target = 2 * time.Second
)

// Backoff bounds
const (
	BaseBackoff     = time.Second
	MaxBackoff      = time.Minute
	BackoffStepSize = 20.0
)

// Log messages
const (
	LogMsgRecordFailed = "Failed to update device health"
	LogMsgRecorded     = "Device health updated"
)

// Error messages
const (
	ErrMsgDeviceIDRequired = "device_id is required"
	ErrMsgGetHealthFailed  = "failed to get device health: %w"
	ErrMsgListHealthFailed = "failed to list device health: %w"
)
