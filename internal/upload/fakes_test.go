package upload

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

type mapSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.UploadSession
}

func newMapSessions() *mapSessions {
	return &mapSessions{sessions: make(map[string]domain.UploadSession)}
}

func clone(s domain.UploadSession) *domain.UploadSession {
	s.UploadedChunks = append([]int(nil), s.UploadedChunks...)
	return &s
}

func (m *mapSessions) Create(_ context.Context, s *domain.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *clone(*s)
	return nil
}

func (m *mapSessions) Get(_ context.Context, id string) (*domain.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	return clone(s), nil
}

func (m *mapSessions) AddChunk(_ context.Context, id string, index int) (*domain.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	c := clone(s)
	c.AddChunk(index)
	m.sessions[id] = *c
	return clone(*c), nil
}

func (m *mapSessions) ResetChunks(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrUploadNotFound
	}
	s.UploadedChunks = nil
	m.sessions[id] = s
	return nil
}

func (m *mapSessions) Transition(_ context.Context, id string, from, to domain.UploadState, filePath string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
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
	m.sessions[id] = s
	return nil
}

func (m *mapSessions) ListExpired(_ context.Context, now time.Time) ([]domain.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UploadSession
	for _, s := range m.sessions {
		if s.Status == domain.UploadStateActive && !now.Before(s.ExpiresAt) {
			out = append(out, *clone(s))
		}
	}
	return out, nil
}
