package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/mobilesync/internal/concurrency"
	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// Config controls session sizing and the public URL of finalized files
type Config struct {
	ChunkSize     int64
	TTL           time.Duration
	PublicBaseURL string
}

// InitRequest opens a new upload session
type InitRequest struct {
	Filename  string `json:"filename" validate:"required,max=255"`
	TotalSize int64  `json:"total_size" validate:"gt=0"`
	MimeType  string `json:"mime_type" validate:"max=127"`
	FileHash  string `json:"file_hash" validate:"required,len=64,hexadecimal"`
	DeviceID  string `json:"-"`
}

// ChunkResult reports the session after a chunk upload
type ChunkResult struct {
	Uploaded        bool    `json:"uploaded"`
	ChunkIndex      int     `json:"chunk_index"`
	RemainingChunks int     `json:"remaining_chunks"`
	ProgressPct     float64 `json:"progress_pct"`
	Duplicate       bool    `json:"duplicate,omitempty"`
}

// Manager runs the resumable upload state machine
type Manager struct {
	sessions  SessionStore
	blobs     BlobStorage
	locks     *concurrency.LockManager
	publisher event.Publisher
	cfg       Config
	now       func() time.Time
	newID     func() string
}

// NewManager creates a Manager. publisher may be nil.
func NewManager(sessions SessionStore, blobs BlobStorage, locks *concurrency.LockManager, publisher event.Publisher, cfg Config) *Manager {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = domain.DefaultChunkSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultUploadTTL
	}
	if locks == nil {
		locks = concurrency.NewLockManager()
	}
	return &Manager{
		sessions:  sessions,
		blobs:     blobs,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Init creates an active session with a fixed chunk size
func (m *Manager) Init(ctx context.Context, req InitRequest) (*domain.UploadSession, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf(ErrMsgFilenameRequired, domain.ErrUploadInvalid)
	}
	if req.TotalSize <= 0 {
		return nil, fmt.Errorf(ErrMsgTotalSizeInvalid, domain.ErrUploadInvalid)
	}
	if !isSHA256Hex(req.FileHash) {
		return nil, fmt.Errorf(ErrMsgFileHashInvalid, domain.ErrUploadInvalid)
	}

	now := m.now()
	s := &domain.UploadSession{
		ID:                m.newID(),
		DeviceID:          req.DeviceID,
		Filename:          filepath.Base(req.Filename),
		MimeType:          req.MimeType,
		ExpectedTotalSize: req.TotalSize,
		ChunkSize:         m.cfg.ChunkSize,
		TotalChunks:       int((req.TotalSize + m.cfg.ChunkSize - 1) / m.cfg.ChunkSize),
		UploadedChunks:    []int{},
		FileHash:          strings.ToLower(req.FileHash),
		Status:            domain.UploadStateActive,
		CreatedAt:         now,
		ExpiresAt:         now.Add(m.cfg.TTL),
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf(ErrMsgStore, domain.ErrStoreUnavailable, err)
	}

	logger.FromContext(ctx).Info(LogMsgSessionCreated,
		"upload_id", s.ID,
		"total_size", s.ExpectedTotalSize,
		"total_chunks", s.TotalChunks)
	return s, nil
}

// UploadChunk verifies and records one chunk. Re-sending a recorded chunk
// with a matching checksum succeeds without rewriting it.
func (m *Manager) UploadChunk(ctx context.Context, id string, index int, data []byte, checksum string) (*ChunkResult, error) {
	log := logger.FromContext(ctx)

	s, err := m.activeSession(ctx, id)
	if err != nil {
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}
	if index < 0 || index >= s.TotalChunks {
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf(ErrMsgChunkIndex, domain.ErrChunkOutOfRange, index, s.TotalChunks)
	}
	if want := s.ExpectedChunkSize(index); int64(len(data)) != want {
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf(ErrMsgChunkSize, domain.ErrChunkSizeMismatch, index, len(data), want)
	}
	if !strings.EqualFold(Checksum(data), strings.TrimSpace(checksum)) {
		log.Warn(LogMsgChecksumRejected, "upload_id", id, "chunk_index", index)
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, fmt.Errorf(ErrMsgChunkChecksum, domain.ErrChecksumMismatch, index)
	}

	unlock := m.locks.Lock(lockPrefix + id)
	defer unlock()

	// State may have moved while the checksum was computed
	s, err = m.activeSession(ctx, id)
	if err != nil {
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}
	if s.HasChunk(index) {
		log.Debug(LogMsgChunkDuplicate, "upload_id", id, "chunk_index", index)
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultReplay).Inc()
		return chunkResult(s, index, true), nil
	}

	if err := m.blobs.WriteChunk(ctx, id, index, data); err != nil {
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf(ErrMsgStorage, err)
	}
	s, err = m.sessions.AddChunk(ctx, id, index)
	if err != nil {
		metrics.UploadChunksTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, m.storeErr(err)
	}

	metrics.UploadChunksTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Debug(LogMsgChunkStored, "upload_id", id, "chunk_index", index, "progress_pct", s.ProgressPct())
	return chunkResult(s, index, false), nil
}

// Status returns the derived progress of a session
func (m *Manager) Status(ctx context.Context, id string) (*domain.UploadStatus, error) {
	s, err := m.sessions.Get(ctx, id)
	if err != nil {
		return nil, m.storeErr(err)
	}
	state := s.Status
	if state == domain.UploadStateActive && s.Expired(m.now()) {
		state = domain.UploadStateExpired
	}
	return &domain.UploadStatus{
		UploadID:       s.ID,
		Status:         state,
		UploadedChunks: s.UploadedChunks,
		MissingChunks:  s.MissingChunks(),
		ProgressPct:    s.ProgressPct(),
		ExpiresAt:      s.ExpiresAt,
	}, nil
}

// Finalize reassembles the chunks, verifies the whole-file hash and moves
// the file into permanent storage. Finalizing twice returns the same reference.
func (m *Manager) Finalize(ctx context.Context, id string) (*domain.FileReference, error) {
	log := logger.FromContext(ctx)
	unlock := m.locks.Lock(lockPrefix + id)
	defer unlock()

	s, err := m.sessions.Get(ctx, id)
	if err != nil {
		return nil, m.storeErr(err)
	}
	if s.Status == domain.UploadStateFinalized {
		return m.reference(s), nil
	}
	if err := m.checkActive(ctx, s); err != nil {
		return nil, err
	}
	if !s.Complete() {
		return nil, fmt.Errorf(ErrMsgMissingChunks, domain.ErrUploadIncomplete, len(s.MissingChunks()))
	}

	asm, err := m.blobs.Assemble(ctx, id, s.TotalChunks)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgStorage, err)
	}
	if !strings.EqualFold(asm.Checksum, s.FileHash) {
		log.Warn(LogMsgFileHashMismatch, "upload_id", id, "computed", asm.Checksum, "claimed", s.FileHash)
		if err := m.sessions.ResetChunks(ctx, id); err != nil {
			return nil, m.storeErr(err)
		}
		m.discard(ctx, id)
		return nil, fmt.Errorf(ErrMsgFileChecksum, domain.ErrChecksumMismatch, asm.Checksum, s.FileHash)
	}

	finalPath, err := m.blobs.Promote(ctx, asm.Path, storedName(s))
	if err != nil {
		return nil, fmt.Errorf(ErrMsgStorage, err)
	}
	now := m.now()
	if err := m.sessions.Transition(ctx, id, domain.UploadStateActive, domain.UploadStateFinalized, finalPath, now); err != nil {
		return nil, m.storeErr(err)
	}
	m.discard(ctx, id)

	s.Status = domain.UploadStateFinalized
	s.FilePath = finalPath
	s.FinalizedAt = &now
	ref := m.reference(s)

	metrics.UploadsFinalized.Inc()
	log.Info(LogMsgFinalized, "upload_id", id, "file_size", ref.Size, "path", finalPath)
	if m.publisher != nil {
		m.publisher.PublishWithRetry(ctx, event.NewUploadFinalizedEvent(s.DeviceID, *ref))
	}
	return ref, nil
}

// Cancel stops a session and releases its temporary storage immediately.
// Cancelling an already cancelled session is a no-op.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	unlock := m.locks.Lock(lockPrefix + id)
	defer unlock()

	s, err := m.sessions.Get(ctx, id)
	if err != nil {
		return m.storeErr(err)
	}
	switch s.Status {
	case domain.UploadStateCancelled:
		return nil
	case domain.UploadStateActive:
	default:
		return fmt.Errorf("%w: %s", domain.ErrUploadNotActive, s.Status)
	}

	if err := m.sessions.Transition(ctx, id, domain.UploadStateActive, domain.UploadStateCancelled, "", m.now()); err != nil {
		return m.storeErr(err)
	}
	m.discard(ctx, id)
	logger.FromContext(ctx).Info(LogMsgCancelled, "upload_id", id)
	return nil
}

// Reference returns the stable handle of a finalized upload, used to
// validate sync items that point at an upload.
func (m *Manager) Reference(ctx context.Context, id string) (*domain.FileReference, error) {
	s, err := m.sessions.Get(ctx, id)
	if err != nil {
		return nil, m.storeErr(err)
	}
	if s.Status != domain.UploadStateFinalized {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrUploadRefNotUsable, id, s.Status)
	}
	return m.reference(s), nil
}

// SweepExpired expires active sessions past their TTL and reclaims their
// temporary storage. It returns the number of sessions expired.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	now := m.now()
	expired, err := m.sessions.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf(ErrMsgStore, domain.ErrStoreUnavailable, err)
	}

	count := 0
	for _, s := range expired {
		if m.expire(ctx, s.ID, now) {
			count++
		}
	}
	return count, nil
}

func (m *Manager) expire(ctx context.Context, id string, now time.Time) bool {
	unlock := m.locks.Lock(lockPrefix + id)
	defer unlock()

	if err := m.sessions.Transition(ctx, id, domain.UploadStateActive, domain.UploadStateExpired, "", now); err != nil {
		return false
	}
	m.discard(ctx, id)
	logger.FromContext(ctx).Info(LogMsgExpired, "upload_id", id)
	return true
}

// activeSession loads a session and checks it can still accept chunks
func (m *Manager) activeSession(ctx context.Context, id string) (*domain.UploadSession, error) {
	s, err := m.sessions.Get(ctx, id)
	if err != nil {
		return nil, m.storeErr(err)
	}
	if err := m.checkActive(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) checkActive(ctx context.Context, s *domain.UploadSession) error {
	switch s.Status {
	case domain.UploadStateActive:
		if s.Expired(m.now()) {
			return fmt.Errorf("%w: %s", domain.ErrUploadExpired, s.ID)
		}
		return nil
	case domain.UploadStateExpired:
		return fmt.Errorf("%w: %s", domain.ErrUploadExpired, s.ID)
	default:
		return fmt.Errorf("%w: %s is %s", domain.ErrUploadNotActive, s.ID, s.Status)
	}
}

func (m *Manager) discard(ctx context.Context, id string) {
	if err := m.blobs.Discard(ctx, id); err != nil {
		logger.FromContext(ctx).Warn(LogMsgDiscardFailed, "upload_id", id, "error", err)
	}
}

func (m *Manager) reference(s *domain.UploadSession) *domain.FileReference {
	return &domain.FileReference{
		UploadID: s.ID,
		URL:      strings.TrimRight(m.cfg.PublicBaseURL, "/") + "/" + path.Base(filepath.ToSlash(s.FilePath)),
		Path:     s.FilePath,
		Size:     s.ExpectedTotalSize,
		Checksum: s.FileHash,
		MimeType: s.MimeType,
	}
}

func (m *Manager) storeErr(err error) error {
	if errors.Is(err, domain.ErrUploadNotFound) || errors.Is(err, domain.ErrUploadNotActive) {
		return err
	}
	return fmt.Errorf(ErrMsgStore, domain.ErrStoreUnavailable, err)
}

func chunkResult(s *domain.UploadSession, index int, duplicate bool) *ChunkResult {
	return &ChunkResult{
		Uploaded:        true,
		ChunkIndex:      index,
		RemainingChunks: s.TotalChunks - len(s.UploadedChunks),
		ProgressPct:     s.ProgressPct(),
		Duplicate:       duplicate,
	}
}

// storedName names the permanent file by upload id, keeping the extension
func storedName(s *domain.UploadSession) string {
	return s.ID + strings.ToLower(filepath.Ext(s.Filename))
}

// Checksum returns the lower-case hex SHA-256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func isSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
