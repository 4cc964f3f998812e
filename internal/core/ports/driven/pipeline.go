package driven

import (
	"context"
	"time"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

// Pipeline is the external collaborator that transforms content once a
// change has been identified. kbdelta does not define the semantic
// content of the stages; it only dispatches classified change groups
// to them and records the derived artifact ids they return.
type Pipeline interface {
	// ProcessAdded processes newly added content units and returns the
	// ids of the derived artifacts (chunks, vectors, graph nodes),
	// keyed by the change id that produced them. Must be idempotent if
	// called twice with identical input after a crash.
	ProcessAdded(ctx context.Context, changes []*domain.ContentChange) (map[string][]string, error)

	// ProcessModified reprocesses modified content units and returns
	// the ids of the artifacts now representing them, keyed by change id.
	ProcessModified(ctx context.Context, changes []*domain.ContentChange) (map[string][]string, error)

	// Remove deletes derived artifacts by id.
	Remove(ctx context.Context, artifactIDs []string) error

	// EstimateBaseline estimates the full-processing duration for a
	// document. Used only for efficiency reporting; implementations
	// may return a fixed constant.
	EstimateBaseline(ctx context.Context, path string) (time.Duration, error)
}
