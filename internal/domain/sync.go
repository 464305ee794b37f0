package domain

import (
	"fmt"
	"time"
)

// SyncItem is one client mutation inside a batch.
// Version is the server version the client last saw for the entity.
type SyncItem struct {
	Domain          string         `json:"domain" validate:"required,max=64"`
	MobileID        string         `json:"mobile_id" validate:"required,max=128"`
	Version         int64          `json:"version" validate:"gte=0"`
	Fields          map[string]any `json:"fields"`
	ClientTimestamp time.Time      `json:"client_timestamp"`
}

// EntityRef identifies a syncable entity within a tenant.
type EntityRef struct {
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Domain   string `json:"domain" db:"domain"`
	MobileID string `json:"mobile_id" db:"mobile_id"`
}

// Key returns a stable string form usable as a lock or map key.
func (r EntityRef) Key() string {
	return fmt.Sprintf("%s/%s/%s", r.TenantID, r.Domain, r.MobileID)
}

// Entity is the server-side state of a syncable entity.
// The engine only interprets Version and LastModified; Fields is opaque.
type Entity struct {
	Ref          EntityRef      `json:"ref"`
	Version      int64          `json:"version" db:"version"`
	LastModified time.Time      `json:"last_modified" db:"last_modified"`
	Fields       map[string]any `json:"fields" db:"fields"`
}

// DeviceMetadata carries descriptive fields reported by the device.
type DeviceMetadata struct {
	NetworkType string `json:"network_type,omitempty"`
	AppVersion  string `json:"app_version,omitempty"`
	OSVersion   string `json:"os_version,omitempty"`
}

// BatchRequest is a batch of mutations from one device.
type BatchRequest struct {
	TenantID       string         `json:"tenant_id" validate:"required"`
	UserID         string         `json:"user_id" validate:"required"`
	DeviceID       string         `json:"device_id" validate:"required"`
	IdempotencyKey string         `json:"idempotency_key" validate:"required,max=255"`
	Items          []SyncItem     `json:"items" validate:"dive"`
	Metadata       DeviceMetadata `json:"metadata"`
}

// ItemStatus is the per-item result of a batch.
type ItemStatus string

const (
	ItemStatusSynced   ItemStatus = "synced"
	ItemStatusConflict ItemStatus = "conflict"
	ItemStatusFailed   ItemStatus = "failed"
)

// ItemResult reports what happened to a single submitted item.
type ItemResult struct {
	Index      int        `json:"index"`
	Domain     string     `json:"domain"`
	MobileID   string     `json:"mobile_id"`
	Status     ItemStatus `json:"status"`
	Version    int64      `json:"version,omitempty"`
	ConflictID string     `json:"conflict_id,omitempty"`
	Code       ErrorCode  `json:"code,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// ItemError is a structured per-item failure.
type ItemError struct {
	Index     int       `json:"index"`
	MobileID  string    `json:"mobile_id,omitempty"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// BatchOutcome is the structured result of processing a batch.
// It is the exact snapshot replayed for a repeated idempotency key.
type BatchOutcome struct {
	IdempotencyKey string         `json:"idempotency_key"`
	SyncedItems    int            `json:"synced_items"`
	FailedItems    int            `json:"failed_items"`
	Conflicts      []ConflictInfo `json:"conflicts"`
	Errors         []ItemError    `json:"errors"`
	Results        []ItemResult   `json:"results"`
	ProcessedAt    time.Time      `json:"processed_at"`
	DurationMs     int64          `json:"duration_ms"`
}

// HasUnresolvedConflicts reports whether the device must act before retrying.
func (o *BatchOutcome) HasUnresolvedConflicts() bool {
	for _, c := range o.Conflicts {
		if !c.Resolved {
			return true
		}
	}
	return false
}
