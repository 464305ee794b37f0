package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/analytics"
	"github.com/osse101/mobilesync/internal/config"
	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/database"
	"github.com/osse101/mobilesync/internal/database/memory"
	"github.com/osse101/mobilesync/internal/database/postgres"
	"github.com/osse101/mobilesync/internal/eventlog"
	"github.com/osse101/mobilesync/internal/health"
	"github.com/osse101/mobilesync/internal/idempotency"
	"github.com/osse101/mobilesync/internal/policy"
	"github.com/osse101/mobilesync/internal/upload"
)

// Repositories holds all repository implementations used by the application.
// Pool is nil on the memory backend.
type Repositories struct {
	Pool        *pgxpool.Pool
	Idempotency idempotency.Store
	Policies    policy.Repository
	Entities    conflict.EntityStore
	Conflicts   conflict.Log
	Health      health.Repository
	Uploads     upload.SessionStore
	Analytics   analytics.Store
	EventLog    eventlog.Repository
}

// InitializeRepositories connects the configured storage backend. For
// postgres it opens the pool and applies the embedded migrations.
func InitializeRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendMemory:
		slog.Warn(LogMsgMemoryStorageWarned)
		return &Repositories{
			Idempotency: memory.NewIdempotencyStore(),
			Policies:    memory.NewPolicyRepository(),
			Entities:    memory.NewEntityStore(),
			Conflicts:   memory.NewConflictLog(),
			Health:      memory.NewHealthRepository(),
			Uploads:     memory.NewUploadSessionStore(),
			Analytics:   memory.NewAnalyticsStore(),
			EventLog:    memory.NewEventLog(),
		}, nil

	case config.StorageBackendPostgres, "":
		pool, err := database.NewPool(ctx, cfg.GetDBConnString(), cfg.DBMaxConns, cfg.DBMaxConnIdleTime, cfg.DBMaxConnLifetime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedConnectDB, err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
		}
		slog.Info(LogMsgMigrationsApplied)

		return &Repositories{
			Pool:        pool,
			Idempotency: postgres.NewIdempotencyStore(pool),
			Policies:    postgres.NewPolicyRepository(pool),
			Entities:    postgres.NewEntityStore(pool),
			Conflicts:   postgres.NewConflictLog(pool),
			Health:      postgres.NewHealthRepository(pool),
			Uploads:     postgres.NewUploadSessionStore(pool),
			Analytics:   postgres.NewAnalyticsStore(pool),
			EventLog:    postgres.NewEventLogRepository(pool),
		}, nil

	default:
		return nil, fmt.Errorf("%s: %q", ErrMsgUnknownStorage, cfg.StorageBackend)
	}
}

// Close releases the database pool, if any
func (r *Repositories) Close() {
	if r.Pool != nil {
		r.Pool.Close()
	}
}
