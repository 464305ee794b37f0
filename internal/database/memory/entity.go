package memory

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// EntityStore is an in-memory conflict.EntityStore
type EntityStore struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity
}

// NewEntityStore creates an empty store
func NewEntityStore() *EntityStore {
	return &EntityStore{entities: make(map[string]domain.Entity)}
}

func (s *EntityStore) Get(_ context.Context, ref domain.EntityRef) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[ref.Key()]
	if !ok {
		return nil, nil
	}
	e.Fields = copyFields(e.Fields)
	return &e, nil
}

func (s *EntityStore) CompareAndSwap(_ context.Context, ref domain.EntityRef, expectedVersion int64, fields map[string]any, lastModified time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.entities[ref.Key()]
	if current.Version != expectedVersion {
		return 0, domain.ErrVersionMismatch
	}
	next := expectedVersion + 1
	s.entities[ref.Key()] = domain.Entity{
		Ref:          ref,
		Version:      next,
		LastModified: lastModified,
		Fields:       copyFields(fields),
	}
	return next, nil
}

// Put seeds an entity at a given version
func (s *EntityStore) Put(e domain.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Fields = copyFields(e.Fields)
	s.entities[e.Ref.Key()] = e
}

func copyFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
