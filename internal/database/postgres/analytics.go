package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/domain"
)

// AnalyticsStore is a PostgreSQL analytics.Store
type AnalyticsStore struct {
	db *pgxpool.Pool
}

// NewAnalyticsStore creates a new PostgreSQL analytics snapshot store
func NewAnalyticsStore(db *pgxpool.Pool) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// WriteSnapshot inserts a bucket once. A second write for the same bucket
// is ignored and reports created=false.
func (s *AnalyticsStore) WriteSnapshot(ctx context.Context, snap domain.AnalyticsSnapshot) (bool, error) {
	query := `
		INSERT INTO sync_analytics_snapshots
			(tenant_id, bucket_start, batches, items, synced_items, failed_items, conflicts,
			 success_rate_pct, conflict_rate_pct, avg_duration_ms, p50_duration_ms, p95_duration_ms, p99_duration_ms,
			 created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, NOW()))
		ON CONFLICT (tenant_id, bucket_start) DO NOTHING
	`
	var createdAt *time.Time
	if !snap.CreatedAt.IsZero() {
		createdAt = &snap.CreatedAt
	}
	tag, err := s.db.Exec(ctx, query,
		snap.TenantID, snap.BucketStart, snap.Batches, snap.Items, snap.SyncedItems, snap.FailedItems, snap.Conflicts,
		snap.SuccessRatePct, snap.ConflictRatePct, snap.AvgDurationMs, snap.P50DurationMs, snap.P95DurationMs, snap.P99DurationMs,
		createdAt,
	)
	if err != nil {
		return false, fmt.Errorf(ErrMsgWriteSnapshot, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListSnapshots returns buckets at or after since, oldest first
func (s *AnalyticsStore) ListSnapshots(ctx context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error) {
	query := `
		SELECT tenant_id, bucket_start, batches, items, synced_items, failed_items, conflicts,
		       success_rate_pct, conflict_rate_pct, avg_duration_ms, p50_duration_ms, p95_duration_ms, p99_duration_ms,
		       created_at
		FROM sync_analytics_snapshots
		WHERE tenant_id = $1 AND bucket_start >= $2
		ORDER BY bucket_start
	`
	rows, err := s.db.Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListSnapshots, err)
	}
	defer rows.Close()

	out := []domain.AnalyticsSnapshot{}
	for rows.Next() {
		var snap domain.AnalyticsSnapshot
		err := rows.Scan(
			&snap.TenantID, &snap.BucketStart, &snap.Batches, &snap.Items, &snap.SyncedItems, &snap.FailedItems, &snap.Conflicts,
			&snap.SuccessRatePct, &snap.ConflictRatePct, &snap.AvgDurationMs, &snap.P50DurationMs, &snap.P95DurationMs, &snap.P99DurationMs,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(ErrMsgListSnapshots, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(ErrMsgListSnapshots, err)
	}
	return out, nil
}
