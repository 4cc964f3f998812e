package driven

import (
	"context"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

// SessionStore persists completed delta sessions. Sessions are written
// once at their terminal transition and never mutated afterwards.
// Aggregate statistics are computed by scanning persisted sessions, so
// implementations must be correct from cold storage.
type SessionStore interface {
	// Save persists a session record.
	Save(ctx context.Context, session *domain.DeltaSession) error

	// Get retrieves a session by id.
	// Returns domain.ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*domain.DeltaSession, error)

	// ListByPath returns sessions for a document path, most recent
	// first, bounded by limit (0 = no limit).
	ListByPath(ctx context.Context, path string, limit int) ([]*domain.DeltaSession, error)

	// ListAll returns all persisted sessions, most recent first.
	ListAll(ctx context.Context) ([]*domain.DeltaSession, error)
}
