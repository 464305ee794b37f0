package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/domain"
)

const fieldsColumn = "fields"

// EntityStore is a PostgreSQL conflict.EntityStore
type EntityStore struct {
	db *pgxpool.Pool
}

// NewEntityStore creates a new PostgreSQL entity store
func NewEntityStore(db *pgxpool.Pool) *EntityStore {
	return &EntityStore{db: db}
}

func (s *EntityStore) Get(ctx context.Context, ref domain.EntityRef) (*domain.Entity, error) {
	query := `
		SELECT version, last_modified, fields
		FROM sync_entities
		WHERE tenant_id = $1 AND domain = $2 AND mobile_id = $3
	`
	e := domain.Entity{Ref: ref}
	var fields []byte
	err := s.db.QueryRow(ctx, query, ref.TenantID, ref.Domain, ref.MobileID).Scan(&e.Version, &e.LastModified, &fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetEntity, err)
	}
	if e.Fields, err = unmarshalJSON(fieldsColumn, fields); err != nil {
		return nil, err
	}
	return &e, nil
}

// CompareAndSwap inserts when expectedVersion is 0 and otherwise updates
// only the row still at expectedVersion. Zero affected rows is a mismatch.
func (s *EntityStore) CompareAndSwap(ctx context.Context, ref domain.EntityRef, expectedVersion int64, fields map[string]any, lastModified time.Time) (int64, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := marshalJSON(fieldsColumn, fields)
	if err != nil {
		return 0, err
	}

	next := expectedVersion + 1
	var tag pgconn.CommandTag
	if expectedVersion == 0 {
		tag, err = s.db.Exec(ctx, `
			INSERT INTO sync_entities (tenant_id, domain, mobile_id, version, last_modified, fields)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tenant_id, domain, mobile_id) DO NOTHING
		`, ref.TenantID, ref.Domain, ref.MobileID, next, lastModified, data)
	} else {
		tag, err = s.db.Exec(ctx, `
			UPDATE sync_entities
			SET version = $5, last_modified = $6, fields = $7
			WHERE tenant_id = $1 AND domain = $2 AND mobile_id = $3 AND version = $4
		`, ref.TenantID, ref.Domain, ref.MobileID, expectedVersion, next, lastModified, data)
	}
	if err != nil {
		return 0, fmt.Errorf(ErrMsgCASEntity, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrVersionMismatch
	}
	return next, nil
}
