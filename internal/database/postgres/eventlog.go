package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/eventlog"
)

// EventLogRepository is a PostgreSQL eventlog.Repository
type EventLogRepository struct {
	db *pgxpool.Pool
}

// NewEventLogRepository creates a new PostgreSQL event log repository
func NewEventLogRepository(db *pgxpool.Pool) *EventLogRepository {
	return &EventLogRepository{db: db}
}

// LogEvent stores an event in the database
func (r *EventLogRepository) LogEvent(ctx context.Context, evt eventlog.Event) error {
	query := `
		INSERT INTO sync_events (event_type, tenant_id, device_id, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	`

	payload := evt.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := marshalJSON("payload", payload)
	if err != nil {
		return err
	}
	metadataJSON, err := marshalJSON("metadata", evt.Metadata)
	if err != nil {
		return err
	}

	var createdAt *time.Time
	if !evt.CreatedAt.IsZero() {
		createdAt = &evt.CreatedAt
	}

	if _, err := r.db.Exec(ctx, query, evt.EventType, evt.TenantID, evt.DeviceID, payloadJSON, metadataJSON, createdAt); err != nil {
		return fmt.Errorf(ErrMsgLogEvent, err)
	}
	return nil
}

// GetEvents retrieves events based on filter criteria
func (r *EventLogRepository) GetEvents(ctx context.Context, filter eventlog.EventFilter) ([]eventlog.Event, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, event_type, tenant_id, device_id, payload, metadata, created_at
		FROM sync_events
		WHERE 1=1`)

	args := []interface{}{}
	argNum := 1

	if filter.TenantID != nil {
		fmt.Fprintf(&queryBuilder, " AND tenant_id = $%d", argNum)
		args = append(args, *filter.TenantID)
		argNum++
	}

	if filter.DeviceID != nil {
		fmt.Fprintf(&queryBuilder, " AND device_id = $%d", argNum)
		args = append(args, *filter.DeviceID)
		argNum++
	}

	if filter.EventType != nil {
		fmt.Fprintf(&queryBuilder, " AND event_type = $%d", argNum)
		args = append(args, *filter.EventType)
		argNum++
	}

	if filter.Since != nil {
		fmt.Fprintf(&queryBuilder, " AND created_at >= $%d", argNum)
		args = append(args, *filter.Since)
		argNum++
	}

	if filter.Until != nil {
		fmt.Fprintf(&queryBuilder, " AND created_at <= $%d", argNum)
		args = append(args, *filter.Until)
		argNum++
	}

	queryBuilder.WriteString(" ORDER BY id DESC")

	if filter.Limit > 0 {
		fmt.Fprintf(&queryBuilder, " LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetEvents, err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetEvents, err)
	}
	return events, nil
}

// CleanupOldEvents removes events older than the specified number of days
func (r *EventLogRepository) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	query := `
		DELETE FROM sync_events
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`

	result, err := r.db.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf(ErrMsgCleanupEvents, err)
	}

	return result.RowsAffected(), nil
}

// scanEvents scans rows into Event structs
func scanEvents(rows pgx.Rows) ([]eventlog.Event, error) {
	var events []eventlog.Event

	for rows.Next() {
		var evt eventlog.Event
		var payloadJSON, metadataJSON []byte

		err := rows.Scan(
			&evt.ID,
			&evt.EventType,
			&evt.TenantID,
			&evt.DeviceID,
			&payloadJSON,
			&metadataJSON,
			&evt.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if evt.Payload, err = unmarshalJSON("payload", payloadJSON); err != nil {
			return nil, err
		}
		if evt.Metadata, err = unmarshalJSON("metadata", metadataJSON); err != nil {
			return nil, err
		}

		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
