package domain

import (
	"fmt"
	"time"
)

// DeltaConfig is the process-wide tunable policy for delta detection
// and refresh. A single value is supplied at orchestrator construction
// and treated as immutable for the orchestrator's lifetime.
type DeltaConfig struct {
	// PageLevelDetection enables the page-level detection pass.
	PageLevelDetection bool

	// SectionLevelDetection enables the section-level detection pass.
	SectionLevelDetection bool

	// SimilarityAnalysis enables similarity scoring of modifications.
	SimilarityAnalysis bool

	// DependencyLinking enables recording of related-change edges.
	DependencyLinking bool

	// MinSimilarityForUpdate marks changes below this similarity as
	// significant. They are always kept.
	MinSimilarityForUpdate float64

	// MaxSimilarityForSkip drops changes above this similarity as
	// cosmetic. A change survives filtering iff similarity <= this.
	MaxSimilarityForSkip float64

	// MaxParallel bounds concurrently in-flight per-document refreshes.
	MaxParallel int

	// ChangeBatchSize bounds how many changes one pipeline call carries.
	ChangeBatchSize int

	// ProcessingTimeout bounds each external pipeline call.
	ProcessingTimeout time.Duration

	// LockTimeout bounds per-document lock acquisition.
	LockTimeout time.Duration

	// RollbackEnabled creates a rollback point before destructive steps.
	RollbackEnabled bool

	// BackupBeforeProcessing snapshots the prior document state into
	// the rollback payload even for additive-only sessions.
	BackupBeforeProcessing bool

	// FallbackToFull allows escalation to full processing.
	FallbackToFull bool

	// MaxChangePercentage is the change ratio above which a refresh
	// escalates to full processing.
	MaxChangePercentage float64

	// CacheEnabled turns on the advisory fingerprint cache.
	CacheEnabled bool

	// CacheTTL bounds the age of cached fingerprints.
	CacheTTL time.Duration

	// PipelineRate caps external pipeline calls per second.
	// Zero means unlimited.
	PipelineRate float64
}

// DefaultDeltaConfig returns sensible defaults for delta refresh.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{
		PageLevelDetection:     true,
		SectionLevelDetection:  true,
		SimilarityAnalysis:     true,
		DependencyLinking:      true,
		MinSimilarityForUpdate: 0.3,
		MaxSimilarityForSkip:   0.95,
		MaxParallel:            4,
		ChangeBatchSize:        50,
		ProcessingTimeout:      5 * time.Minute,
		LockTimeout:            30 * time.Second,
		RollbackEnabled:        true,
		BackupBeforeProcessing: true,
		FallbackToFull:         true,
		MaxChangePercentage:    0.5,
		CacheEnabled:           true,
		CacheTTL:               time.Hour,
	}
}

// Validate checks the configuration for contract violations. Invalid
// configuration is a programming error and is surfaced synchronously.
func (c DeltaConfig) Validate() error {
	if c.MinSimilarityForUpdate < 0 || c.MinSimilarityForUpdate > 1 {
		return fmt.Errorf("%w: min similarity %v outside [0,1]", ErrInvalidConfig, c.MinSimilarityForUpdate)
	}
	if c.MaxSimilarityForSkip < 0 || c.MaxSimilarityForSkip > 1 {
		return fmt.Errorf("%w: max similarity %v outside [0,1]", ErrInvalidConfig, c.MaxSimilarityForSkip)
	}
	if c.MinSimilarityForUpdate > c.MaxSimilarityForSkip {
		return fmt.Errorf("%w: min similarity %v exceeds max %v", ErrInvalidConfig, c.MinSimilarityForUpdate, c.MaxSimilarityForSkip)
	}
	if c.MaxChangePercentage < 0 || c.MaxChangePercentage > 1 {
		return fmt.Errorf("%w: max change percentage %v outside [0,1]", ErrInvalidConfig, c.MaxChangePercentage)
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("%w: max parallel %d below 1", ErrInvalidConfig, c.MaxParallel)
	}
	if c.ChangeBatchSize < 1 {
		return fmt.Errorf("%w: change batch size %d below 1", ErrInvalidConfig, c.ChangeBatchSize)
	}
	if c.ProcessingTimeout < 0 {
		return fmt.Errorf("%w: negative processing timeout", ErrInvalidConfig)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("%w: negative lock timeout", ErrInvalidConfig)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: negative cache TTL", ErrInvalidConfig)
	}
	if c.PipelineRate < 0 {
		return fmt.Errorf("%w: negative pipeline rate", ErrInvalidConfig)
	}
	return nil
}
