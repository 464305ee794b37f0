package domain

import "time"

// Idempotency defaults
const (
	DefaultIdempotencyTTL = 24 * time.Hour

	// DefaultReservationTTL bounds how long a crashed request blocks its key.
	DefaultReservationTTL = 2 * time.Minute
)

// Upload defaults
const (
	DefaultChunkSize = 1 << 20
	DefaultUploadTTL = 24 * time.Hour
)

// Engine defaults
const (
	DefaultItemTimeout     = 5 * time.Second
	DefaultBatchTimeout    = 30 * time.Second
	DefaultMaxPayloadBytes = 256 << 10
	DefaultMaxBatchItems   = 500
)

// Field names inside a payload that reference a finalized upload.
const UploadRefField = "upload_id"
