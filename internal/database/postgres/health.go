package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/domain"
)

const healthColumns = `device_id, user_id, tenant_id, total_syncs, failed_syncs_count, conflicts_encountered,
	avg_sync_duration_ms, health_score, last_sync_at, network_type, app_version, os_version`

const healthLockNamespace = "sync_device_health"

// HealthRepository is a PostgreSQL health.Repository
type HealthRepository struct {
	db *pgxpool.Pool
}

// NewHealthRepository creates a new PostgreSQL device health repository
func NewHealthRepository(db *pgxpool.Pool) *HealthRepository {
	return &HealthRepository{db: db}
}

func (r *HealthRepository) Get(ctx context.Context, deviceID, userID string) (*domain.DeviceHealth, error) {
	query := `SELECT ` + healthColumns + ` FROM sync_device_health WHERE device_id = $1 AND user_id = $2`
	h, err := scanHealth(r.db.QueryRow(ctx, query, deviceID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetHealth, err)
	}
	return h, nil
}

// Update serializes writers of one row with a transaction-scoped advisory
// lock, which also covers the first insert where no row exists to lock.
func (r *HealthRepository) Update(ctx context.Context, deviceID, userID string, fn func(*domain.DeviceHealth) error) (*domain.DeviceHealth, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgFailedToBeginTransaction, err)
	}
	defer SafeRollback(ctx, tx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryKey(healthLockNamespace, deviceID, userID)); err != nil {
		return nil, fmt.Errorf(ErrMsgFailedToAcquireLock, err)
	}

	query := `SELECT ` + healthColumns + ` FROM sync_device_health WHERE device_id = $1 AND user_id = $2`
	h, err := scanHealth(tx.QueryRow(ctx, query, deviceID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		h = &domain.DeviceHealth{DeviceID: deviceID, UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf(ErrMsgUpdateHealth, err)
	}

	if err := fn(h); err != nil {
		return nil, err
	}

	upsert := `
		INSERT INTO sync_device_health (` + healthColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (device_id, user_id) DO UPDATE
		SET tenant_id = EXCLUDED.tenant_id,
		    total_syncs = EXCLUDED.total_syncs,
		    failed_syncs_count = EXCLUDED.failed_syncs_count,
		    conflicts_encountered = EXCLUDED.conflicts_encountered,
		    avg_sync_duration_ms = EXCLUDED.avg_sync_duration_ms,
		    health_score = EXCLUDED.health_score,
		    last_sync_at = EXCLUDED.last_sync_at,
		    network_type = EXCLUDED.network_type,
		    app_version = EXCLUDED.app_version,
		    os_version = EXCLUDED.os_version
	`
	_, err = tx.Exec(ctx, upsert,
		deviceID, userID, h.TenantID, h.TotalSyncs, h.FailedSyncsCount, h.ConflictsEncountered,
		h.AvgSyncDurationMs, h.HealthScore, h.LastSyncAt, h.NetworkType, h.AppVersion, h.OSVersion,
	)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgUpdateHealth, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf(ErrMsgFailedToCommitTransaction, err)
	}
	h.DeviceID, h.UserID = deviceID, userID
	return h, nil
}

func (r *HealthRepository) ListByUser(ctx context.Context, userID string) ([]domain.DeviceHealth, error) {
	query := `SELECT ` + healthColumns + ` FROM sync_device_health WHERE user_id = $1 ORDER BY device_id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListHealth, err)
	}
	defer rows.Close()

	var out []domain.DeviceHealth
	for rows.Next() {
		h, err := scanHealth(rows)
		if err != nil {
			return nil, fmt.Errorf(ErrMsgListHealth, err)
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(ErrMsgListHealth, err)
	}
	return out, nil
}

func scanHealth(row pgx.Row) (*domain.DeviceHealth, error) {
	var h domain.DeviceHealth
	err := row.Scan(
		&h.DeviceID, &h.UserID, &h.TenantID, &h.TotalSyncs, &h.FailedSyncsCount, &h.ConflictsEncountered,
		&h.AvgSyncDurationMs, &h.HealthScore, &h.LastSyncAt, &h.NetworkType, &h.AppVersion, &h.OSVersion,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
