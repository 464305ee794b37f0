package upload

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// SessionStore persists upload sessions
type SessionStore interface {
	Create(ctx context.Context, s *domain.UploadSession) error
	// Get returns domain.ErrUploadNotFound for an unknown id
	Get(ctx context.Context, id string) (*domain.UploadSession, error)
	// AddChunk atomically adds index to the uploaded set and returns the updated session
	AddChunk(ctx context.Context, id string, index int) (*domain.UploadSession, error)
	// ResetChunks empties the uploaded set of an active session
	ResetChunks(ctx context.Context, id string) error
	// Transition moves a session from one state to another, failing with
	// domain.ErrUploadNotActive when it is no longer in from.
	Transition(ctx context.Context, id string, from, to domain.UploadState, filePath string, at time.Time) error
	// ListExpired returns active sessions whose expires_at is at or before now
	ListExpired(ctx context.Context, now time.Time) ([]domain.UploadSession, error)
}

// Assembly describes a reassembled file awaiting promotion
type Assembly struct {
	Path     string
	Size     int64
	Checksum string
}

// BlobStorage holds chunk bytes while a session is active and the final
// file once promoted.
type BlobStorage interface {
	WriteChunk(ctx context.Context, uploadID string, index int, data []byte) error
	Assemble(ctx context.Context, uploadID string, totalChunks int) (Assembly, error)
	Promote(ctx context.Context, assembledPath, name string) (string, error)
	// Discard releases all temporary storage held by uploadID
	Discard(ctx context.Context, uploadID string) error
}
