package driven

import (
	"context"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

// DocumentStateStore persists document-state snapshots. Exactly one
// current state is retained per document path; saving supersedes the
// previous snapshot rather than mutating it.
type DocumentStateStore interface {
	// Save stores or replaces the current state for a path.
	Save(ctx context.Context, state *domain.DocumentState) error

	// Get retrieves the current state for a path.
	// Returns domain.ErrNotFound if the path is untracked.
	Get(ctx context.Context, path string) (*domain.DocumentState, error)

	// List returns the paths of all tracked documents.
	List(ctx context.Context) ([]string, error)

	// Delete removes the state for a path.
	Delete(ctx context.Context, path string) error
}
