package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
)

const conflictColumns = `conflict_id, tenant_id, device_id, domain, mobile_id, server_version, client_version,
	resolution_strategy, winning_side, status, client_data, server_data, client_timestamp,
	resolution, created_at, resolved_at`

// ConflictLog is a PostgreSQL conflict.Log
type ConflictLog struct {
	db *pgxpool.Pool
}

// NewConflictLog creates a new PostgreSQL conflict log
func NewConflictLog(db *pgxpool.Pool) *ConflictLog {
	return &ConflictLog{db: db}
}

func (l *ConflictLog) Append(ctx context.Context, rec domain.ConflictRecord) error {
	clientData, err := marshalJSON("client_data", rec.ClientData)
	if err != nil {
		return err
	}
	serverData, err := marshalJSON("server_data", rec.ServerData)
	if err != nil {
		return err
	}

	query := `INSERT INTO conflict_resolution_log (` + conflictColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = l.db.Exec(ctx, query,
		rec.ID, rec.TenantID, rec.DeviceID, rec.Domain, rec.MobileID,
		rec.ServerVersion, rec.ClientVersion, string(rec.Strategy), string(rec.WinningSide), string(rec.Status),
		clientData, serverData, rec.ClientTimestamp,
		textOrNil(string(rec.Resolution)), rec.CreatedAt, rec.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf(ErrMsgAppendConflict, err)
	}
	return nil
}

func (l *ConflictLog) Get(ctx context.Context, id string) (*domain.ConflictRecord, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflict_resolution_log WHERE conflict_id = $1`
	rows, err := l.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetConflict, err)
	}
	defer rows.Close()

	recs, err := scanConflicts(rows)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetConflict, err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrConflictNotFound
	}
	return &recs[0], nil
}

// MarkResolved transitions a pending row exactly once
func (l *ConflictLog) MarkResolved(ctx context.Context, id string, resolution domain.Resolution, winner domain.Side, resolvedAt time.Time) error {
	query := `
		UPDATE conflict_resolution_log
		SET status = 'resolved', resolution = $2, winning_side = $3, resolved_at = $4
		WHERE conflict_id = $1 AND status = 'pending'
	`
	tag, err := l.db.Exec(ctx, query, id, string(resolution), string(winner), resolvedAt)
	if err != nil {
		return fmt.Errorf(ErrMsgResolveConflict, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = l.db.QueryRow(ctx, `SELECT TRUE FROM conflict_resolution_log WHERE conflict_id = $1`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrConflictNotFound
	}
	if err != nil {
		return fmt.Errorf(ErrMsgResolveConflict, err)
	}
	return domain.ErrConflictAlreadyResolved
}

// Settle moves an applying row to its final status
func (l *ConflictLog) Settle(ctx context.Context, id string, status domain.ConflictStatus) error {
	query := `
		UPDATE conflict_resolution_log
		SET status = $2
		WHERE conflict_id = $1 AND status = 'applying'
	`
	tag, err := l.db.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf(ErrMsgSettleConflict, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflictAlreadyResolved
	}
	return nil
}

// List returns matching rows newest first
func (l *ConflictLog) List(ctx context.Context, filter conflict.Filter) ([]domain.ConflictRecord, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + conflictColumns + ` FROM conflict_resolution_log WHERE 1=1`)

	args := []interface{}{}
	argNum := 1

	if filter.TenantID != "" {
		fmt.Fprintf(&queryBuilder, " AND tenant_id = $%d", argNum)
		args = append(args, filter.TenantID)
		argNum++
	}

	if filter.DeviceID != "" {
		fmt.Fprintf(&queryBuilder, " AND device_id = $%d", argNum)
		args = append(args, filter.DeviceID)
		argNum++
	}

	if filter.Status != "" {
		fmt.Fprintf(&queryBuilder, " AND status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, conflict_id")

	if filter.Limit > 0 {
		fmt.Fprintf(&queryBuilder, " LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := l.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListConflicts, err)
	}
	defer rows.Close()

	recs, err := scanConflicts(rows)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListConflicts, err)
	}
	return recs, nil
}

func scanConflicts(rows pgx.Rows) ([]domain.ConflictRecord, error) {
	var recs []domain.ConflictRecord

	for rows.Next() {
		var rec domain.ConflictRecord
		var clientData, serverData []byte
		var resolution *string

		err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.DeviceID, &rec.Domain, &rec.MobileID,
			&rec.ServerVersion, &rec.ClientVersion, &rec.Strategy, &rec.WinningSide, &rec.Status,
			&clientData, &serverData, &rec.ClientTimestamp,
			&resolution, &rec.CreatedAt, &rec.ResolvedAt,
		)
		if err != nil {
			return nil, err
		}

		rec.Resolution = domain.Resolution(derefText(resolution))
		if rec.ClientData, err = unmarshalJSON("client_data", clientData); err != nil {
			return nil, err
		}
		if rec.ServerData, err = unmarshalJSON("server_data", serverData); err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}
