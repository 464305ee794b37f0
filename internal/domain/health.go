package domain

import "time"

// DeviceHealth holds rolling sync statistics for one (device, user) pair.
type DeviceHealth struct {
	DeviceID             string    `json:"device_id" db:"device_id"`
	UserID               string    `json:"user_id" db:"user_id"`
	TenantID             string    `json:"tenant_id" db:"tenant_id"`
	TotalSyncs           int64     `json:"total_syncs" db:"total_syncs"`
	FailedSyncsCount     int64     `json:"failed_syncs_count" db:"failed_syncs_count"`
	ConflictsEncountered int64     `json:"conflicts_encountered" db:"conflicts_encountered"`
	AvgSyncDurationMs    float64   `json:"avg_sync_duration_ms" db:"avg_sync_duration_ms"`
	HealthScore          float64   `json:"health_score" db:"health_score"`
	LastSyncAt           time.Time `json:"last_sync_at" db:"last_sync_at"`
	NetworkType          string    `json:"network_type,omitempty" db:"network_type"`
	AppVersion           string    `json:"app_version,omitempty" db:"app_version"`
	OSVersion            string    `json:"os_version,omitempty" db:"os_version"`
}

// FailureRatePct returns the share of failed syncs as a percentage.
func (h DeviceHealth) FailureRatePct() float64 {
	if h.TotalSyncs == 0 {
		return 0
	}
	return float64(h.FailedSyncsCount) / float64(h.TotalSyncs) * 100
}

// ConflictRatePct returns the share of syncs that hit a conflict as a percentage.
func (h DeviceHealth) ConflictRatePct() float64 {
	if h.TotalSyncs == 0 {
		return 0
	}
	return float64(h.ConflictsEncountered) / float64(h.TotalSyncs) * 100
}
