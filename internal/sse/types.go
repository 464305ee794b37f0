package sse

import "time"

// ConflictPayload is the dashboard view of a conflict row
type ConflictPayload struct {
	ConflictID    string `json:"conflict_id"`
	DeviceID      string `json:"device_id"`
	Domain        string `json:"domain"`
	MobileID      string `json:"mobile_id"`
	Strategy      string `json:"strategy"`
	Status        string `json:"status"`
	WinningSide   string `json:"winning_side"`
	Resolution    string `json:"resolution,omitempty"`
	ServerVersion int64  `json:"server_version"`
	ClientVersion int64  `json:"client_version"`
}

// BatchPayload summarises one processed batch
type BatchPayload struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Items       int    `json:"items"`
	SyncedItems int    `json:"synced_items"`
	FailedItems int    `json:"failed_items"`
	Conflicts   int    `json:"conflicts"`
	DurationMs  int64  `json:"duration_ms"`
}

// UploadPayload announces a finalized file
type UploadPayload struct {
	UploadID string `json:"upload_id"`
	DeviceID string `json:"device_id"`
	URL      string `json:"file_url"`
	Size     int64  `json:"file_size"`
}

// SnapshotPayload carries an hourly analytics row
type SnapshotPayload struct {
	BucketStart     time.Time `json:"bucket_start"`
	Batches         int64     `json:"batches"`
	SuccessRatePct  float64   `json:"success_rate_pct"`
	ConflictRatePct float64   `json:"conflict_rate_pct"`
	AvgDurationMs   float64   `json:"avg_duration_ms"`
	P95DurationMs   float64   `json:"p95_duration_ms"`
}
