package analytics

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// Store persists hourly snapshots
type Store interface {
	// WriteSnapshot inserts a snapshot once per (tenant, bucket).
	// It reports false when the bucket was already written.
	WriteSnapshot(ctx context.Context, snap domain.AnalyticsSnapshot) (bool, error)
	// ListSnapshots returns a tenant's snapshots with BucketStart >= since, oldest first
	ListSnapshots(ctx context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error)
}
