package memory

import (
	"context"
	"sync"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
// Insertion order doubles as recency order: sessions are persisted at
// their terminal transition, so later writes are more recent.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.DeltaSession
	order    []string
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.DeltaSession),
	}
}

// Save persists a session record.
func (s *SessionStore) Save(_ context.Context, session *domain.DeltaSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.order = append(s.order, session.ID)
	}
	s.sessions[session.ID] = *session
	return nil
}

// Get retrieves a session by id.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.DeltaSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

// ListByPath returns sessions for a document path, most recent first,
// bounded by limit (0 = no limit).
func (s *SessionStore) ListByPath(_ context.Context, path string, limit int) ([]*domain.DeltaSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*domain.DeltaSession
	for i := len(s.order) - 1; i >= 0; i-- {
		session := s.sessions[s.order[i]]
		if session.Path != path {
			continue
		}
		sessions = append(sessions, &session)
		if limit > 0 && len(sessions) == limit {
			break
		}
	}
	return sessions, nil
}

// ListAll returns all persisted sessions, most recent first.
func (s *SessionStore) ListAll(_ context.Context) ([]*domain.DeltaSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*domain.DeltaSession, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		session := s.sessions[s.order[i]]
		sessions = append(sessions, &session)
	}
	return sessions, nil
}
