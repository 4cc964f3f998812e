// Package memory provides an in-memory implementation of the
// processing pipeline port. It fabricates artifact ids rather than
// deriving real chunks or vectors, which makes it suitable for local
// development, validation runs, and tests. Production deployments
// substitute an adapter that fronts the real processing pipeline.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.Pipeline = (*Pipeline)(nil)

// defaultBaseline is the full-processing estimate reported when none
// is configured. It only feeds efficiency reporting.
const defaultBaseline = 30 * time.Second

// Pipeline is an in-memory driven.Pipeline. Every processed change
// yields one fabricated artifact id, and removed ids are retained for
// inspection. Safe for concurrent use.
type Pipeline struct {
	mu       sync.RWMutex
	baseline time.Duration

	// artifacts maps artifact id to the change id that produced it.
	artifacts map[string]string
	removed   []string
}

// NewPipeline creates an in-memory pipeline. A non-positive baseline
// falls back to the default estimate.
func NewPipeline(baseline time.Duration) *Pipeline {
	if baseline <= 0 {
		baseline = defaultBaseline
	}
	return &Pipeline{
		baseline:  baseline,
		artifacts: make(map[string]string),
	}
}

// ProcessAdded fabricates artifact ids for newly added content units.
func (p *Pipeline) ProcessAdded(ctx context.Context, changes []*domain.ContentChange) (map[string][]string, error) {
	return p.process(ctx, changes)
}

// ProcessModified fabricates artifact ids for modified content units.
func (p *Pipeline) ProcessModified(ctx context.Context, changes []*domain.ContentChange) (map[string][]string, error) {
	return p.process(ctx, changes)
}

func (p *Pipeline) process(ctx context.Context, changes []*domain.ContentChange) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[string][]string, len(changes))
	for _, change := range changes {
		artifactID := uuid.New().String()
		p.artifacts[artifactID] = change.ID
		result[change.ID] = append(result[change.ID], artifactID)
	}
	return result, nil
}

// Remove forgets the given artifact ids. Unknown ids are ignored so
// that retried removals stay idempotent.
func (p *Pipeline) Remove(ctx context.Context, artifactIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range artifactIDs {
		delete(p.artifacts, id)
		p.removed = append(p.removed, id)
	}
	return nil
}

// EstimateBaseline returns the configured full-processing estimate.
func (p *Pipeline) EstimateBaseline(ctx context.Context, _ string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.baseline, nil
}

// ArtifactCount reports how many artifacts are currently held.
func (p *Pipeline) ArtifactCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.artifacts)
}

// Removed returns a copy of the removed artifact id log.
func (p *Pipeline) Removed() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, len(p.removed))
	copy(out, p.removed)
	return out
}
