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

const uploadColumns = `upload_id, device_id, filename, mime_type, expected_total_size, chunk_size, total_chunks,
	uploaded_chunks, file_hash, status, file_path, created_at, expires_at, finalized_at`

// UploadSessionStore is a PostgreSQL upload.SessionStore
type UploadSessionStore struct {
	db *pgxpool.Pool
}

// NewUploadSessionStore creates a new PostgreSQL upload session store
func NewUploadSessionStore(db *pgxpool.Pool) *UploadSessionStore {
	return &UploadSessionStore{db: db}
}

func (u *UploadSessionStore) Create(ctx context.Context, s *domain.UploadSession) error {
	query := `INSERT INTO upload_sessions (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := u.db.Exec(ctx, query,
		s.ID, s.DeviceID, s.Filename, s.MimeType, s.ExpectedTotalSize, s.ChunkSize, s.TotalChunks,
		toInt32s(s.UploadedChunks), s.FileHash, string(s.Status), s.FilePath, s.CreatedAt, s.ExpiresAt, s.FinalizedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf(ErrMsgCreateUpload, domain.ErrUploadInvalid)
	}
	if err != nil {
		return fmt.Errorf(ErrMsgCreateUpload, err)
	}
	return nil
}

func (u *UploadSessionStore) Get(ctx context.Context, id string) (*domain.UploadSession, error) {
	query := `SELECT ` + uploadColumns + ` FROM upload_sessions WHERE upload_id = $1`
	s, err := scanUpload(u.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(ErrMsgGetUpload, err)
	}
	return s, nil
}

// AddChunk merges index into the sorted chunk set of an active session
func (u *UploadSessionStore) AddChunk(ctx context.Context, id string, index int) (*domain.UploadSession, error) {
	query := `
		UPDATE upload_sessions
		SET uploaded_chunks = (
			SELECT array_agg(DISTINCT c ORDER BY c)
			FROM unnest(array_append(uploaded_chunks, $2::integer)) AS c
		)
		WHERE upload_id = $1 AND status = 'active'
		RETURNING ` + uploadColumns
	s, err := scanUpload(u.db.QueryRow(ctx, query, id, int32(index)))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf(ErrMsgAddChunk, err)
	}
	if _, err := u.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrUploadNotActive
}

// ResetChunks empties the chunk set of an active session
func (u *UploadSessionStore) ResetChunks(ctx context.Context, id string) error {
	tag, err := u.db.Exec(ctx, `
		UPDATE upload_sessions
		SET uploaded_chunks = '{}'
		WHERE upload_id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return fmt.Errorf(ErrMsgResetChunks, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := u.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrUploadNotActive
}

// Transition moves a session from one state to another. Finalizing also
// records the assembled file path.
func (u *UploadSessionStore) Transition(ctx context.Context, id string, from, to domain.UploadState, filePath string, at time.Time) error {
	var tag pgconn.CommandTag
	var err error
	if to == domain.UploadStateFinalized {
		tag, err = u.db.Exec(ctx, `
			UPDATE upload_sessions
			SET status = $3, file_path = $4, finalized_at = $5
			WHERE upload_id = $1 AND status = $2
		`, id, string(from), string(to), filePath, at)
	} else {
		tag, err = u.db.Exec(ctx, `
			UPDATE upload_sessions
			SET status = $3
			WHERE upload_id = $1 AND status = $2
		`, id, string(from), string(to))
	}
	if err != nil {
		return fmt.Errorf(ErrMsgTransitionUpload, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := u.Get(ctx, id); err != nil {
		return err
	}
	return domain.ErrUploadNotActive
}

func (u *UploadSessionStore) ListExpired(ctx context.Context, now time.Time) ([]domain.UploadSession, error) {
	query := `SELECT ` + uploadColumns + ` FROM upload_sessions
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at`
	rows, err := u.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListUploads, err)
	}
	defer rows.Close()

	var out []domain.UploadSession
	for rows.Next() {
		s, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf(ErrMsgListUploads, err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(ErrMsgListUploads, err)
	}
	return out, nil
}

func scanUpload(row pgx.Row) (*domain.UploadSession, error) {
	var s domain.UploadSession
	var chunks []int32
	err := row.Scan(
		&s.ID, &s.DeviceID, &s.Filename, &s.MimeType, &s.ExpectedTotalSize, &s.ChunkSize, &s.TotalChunks,
		&chunks, &s.FileHash, &s.Status, &s.FilePath, &s.CreatedAt, &s.ExpiresAt, &s.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}
	s.UploadedChunks = toInts(chunks)
	return &s, nil
}
