package domain

import "time"

// AnalyticsSnapshot is an hourly per-tenant rollup. Written once per bucket.
type AnalyticsSnapshot struct {
	TenantID        string    `json:"tenant_id" db:"tenant_id"`
	BucketStart     time.Time `json:"bucket_start" db:"bucket_start"`
	Batches         int64     `json:"batches" db:"batches"`
	Items           int64     `json:"items" db:"items"`
	SyncedItems     int64     `json:"synced_items" db:"synced_items"`
	FailedItems     int64     `json:"failed_items" db:"failed_items"`
	Conflicts       int64     `json:"conflicts" db:"conflicts"`
	SuccessRatePct  float64   `json:"success_rate_pct" db:"success_rate_pct"`
	ConflictRatePct float64   `json:"conflict_rate_pct" db:"conflict_rate_pct"`
	AvgDurationMs   float64   `json:"avg_duration_ms" db:"avg_duration_ms"`
	P50DurationMs   float64   `json:"p50_duration_ms" db:"p50_duration_ms"`
	P95DurationMs   float64   `json:"p95_duration_ms" db:"p95_duration_ms"`
	P99DurationMs   float64   `json:"p99_duration_ms" db:"p99_duration_ms"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
