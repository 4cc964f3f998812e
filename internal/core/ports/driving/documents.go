package driving

import (
	"context"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

// DocumentDirectory exposes persisted document states to
// administrative callers.
type DocumentDirectory interface {
	// DocumentState returns the current persisted state for a path.
	// Returns nil without error for untracked paths.
	DocumentState(ctx context.Context, path string) (*domain.DocumentState, error)

	// TrackedPaths lists all document paths with a persisted state.
	TrackedPaths(ctx context.Context) ([]string, error)
}
