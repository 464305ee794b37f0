package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/domain"
)

// PolicyRepository is a PostgreSQL policy.Repository
type PolicyRepository struct {
	db *pgxpool.Pool
}

// NewPolicyRepository creates a new PostgreSQL policy repository
func NewPolicyRepository(db *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) GetPolicy(ctx context.Context, tenantID, domainName string) (*domain.ConflictPolicy, error) {
	query := `
		SELECT tenant_id, domain, resolution_strategy, auto_resolve, notify_on_conflict, updated_at
		FROM tenant_conflict_policies
		WHERE tenant_id = $1 AND domain = $2
	`
	var p domain.ConflictPolicy
	err := r.db.QueryRow(ctx, query, tenantID, domainName).Scan(
		&p.TenantID, &p.Domain, &p.Strategy, &p.AutoResolve, &p.NotifyOnConflict, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetPolicy, err)
	}
	return &p, nil
}

func (r *PolicyRepository) UpsertPolicy(ctx context.Context, p domain.ConflictPolicy) error {
	query := `
		INSERT INTO tenant_conflict_policies
			(tenant_id, domain, resolution_strategy, auto_resolve, notify_on_conflict, updated_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		ON CONFLICT (tenant_id, domain) DO UPDATE
		SET resolution_strategy = EXCLUDED.resolution_strategy,
		    auto_resolve = EXCLUDED.auto_resolve,
		    notify_on_conflict = EXCLUDED.notify_on_conflict,
		    updated_at = EXCLUDED.updated_at
	`
	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		updatedAt = &p.UpdatedAt
	}
	_, err := r.db.Exec(ctx, query,
		p.TenantID, p.Domain, string(p.Strategy), p.AutoResolve, p.NotifyOnConflict, updatedAt,
	)
	if err != nil {
		return fmt.Errorf(ErrMsgUpsertPolicy, err)
	}
	return nil
}

func (r *PolicyRepository) ListPolicies(ctx context.Context, tenantID string) ([]domain.ConflictPolicy, error) {
	query := `
		SELECT tenant_id, domain, resolution_strategy, auto_resolve, notify_on_conflict, updated_at
		FROM tenant_conflict_policies
		WHERE tenant_id = $1
		ORDER BY domain
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListPolicies, err)
	}
	defer rows.Close()

	var out []domain.ConflictPolicy
	for rows.Next() {
		var p domain.ConflictPolicy
		if err := rows.Scan(&p.TenantID, &p.Domain, &p.Strategy, &p.AutoResolve, &p.NotifyOnConflict, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf(ErrMsgListPolicies, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(ErrMsgListPolicies, err)
	}
	return out, nil
}
