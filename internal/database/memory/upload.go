package memory

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// UploadSessionStore is an in-memory upload.SessionStore
type UploadSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.UploadSession
}

// NewUploadSessionStore creates an empty store
func NewUploadSessionStore() *UploadSessionStore {
	return &UploadSessionStore{sessions: make(map[string]domain.UploadSession)}
}

func cloneSession(s domain.UploadSession) *domain.UploadSession {
	s.UploadedChunks = append([]int{}, s.UploadedChunks...)
	return &s
}

func (u *UploadSessionStore) Create(_ context.Context, s *domain.UploadSession) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sessions[s.ID] = *cloneSession(*s)
	return nil
}

func (u *UploadSessionStore) Get(_ context.Context, id string) (*domain.UploadSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	return cloneSession(s), nil
}

func (u *UploadSessionStore) AddChunk(_ context.Context, id string, index int) (*domain.UploadSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	if s.Status != domain.UploadStateActive {
		return nil, domain.ErrUploadNotActive
	}
	c := cloneSession(s)
	c.AddChunk(index)
	u.sessions[id] = *c
	return cloneSession(*c), nil
}

func (u *UploadSessionStore) ResetChunks(_ context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	if s.Status != domain.UploadStateActive {
		return domain.ErrUploadNotActive
	}
	s.UploadedChunks = []int{}
	u.sessions[id] = s
	return nil
}

func (u *UploadSessionStore) Transition(_ context.Context, id string, from, to domain.UploadState, filePath string, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	if s.Status != from {
		return domain.ErrUploadNotActive
	}
	s.Status = to
	if to == domain.UploadStateFinalized {
		s.FilePath = filePath
		s.FinalizedAt = &at
	}
	u.sessions[id] = s
	return nil
}

func (u *UploadSessionStore) ListExpired(_ context.Context, now time.Time) ([]domain.UploadSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []domain.UploadSession
	for _, s := range u.sessions {
		if s.Status == domain.UploadStateActive && s.Expired(now) {
			out = append(out, *cloneSession(s))
		}
	}
	return out, nil
}
