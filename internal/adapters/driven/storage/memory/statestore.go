// Package memory provides in-memory store implementations, used in
// tests and for ephemeral runs where persistence is not required.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
)

// Ensure DocumentStateStore implements the interface.
var _ driven.DocumentStateStore = (*DocumentStateStore)(nil)

// DocumentStateStore is an in-memory implementation of
// driven.DocumentStateStore.
type DocumentStateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.DocumentState
}

// NewDocumentStateStore creates a new in-memory document state store.
func NewDocumentStateStore() *DocumentStateStore {
	return &DocumentStateStore{
		states: make(map[string]*domain.DocumentState),
	}
}

// Save stores or replaces the current state for a path. The state is
// deep-copied so later caller mutations cannot alter the stored snapshot.
func (s *DocumentStateStore) Save(_ context.Context, state *domain.DocumentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Path] = state.Clone()
	return nil
}

// Get retrieves the current state for a path.
func (s *DocumentStateStore) Get(_ context.Context, path string) (*domain.DocumentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return state.Clone(), nil
}

// List returns the paths of all tracked documents, sorted.
func (s *DocumentStateStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.states))
	for path := range s.states {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// Delete removes the state for a path.
func (s *DocumentStateStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, path)
	return nil
}
