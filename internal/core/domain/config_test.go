package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDefaultDeltaConfig tests that the defaults validate
func TestDefaultDeltaConfig(t *testing.T) {
	cfg := DefaultDeltaConfig()

	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.PageLevelDetection)
	assert.True(t, cfg.SectionLevelDetection)
	assert.True(t, cfg.SimilarityAnalysis)
	assert.True(t, cfg.RollbackEnabled)
	assert.Equal(t, 4, cfg.MaxParallel)
}

// TestDeltaConfig_Validate tests rejection of contract violations
func TestDeltaConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DeltaConfig)
	}{
		{"min similarity above 1", func(c *DeltaConfig) { c.MinSimilarityForUpdate = 1.1 }},
		{"max similarity below 0", func(c *DeltaConfig) { c.MaxSimilarityForSkip = -0.1 }},
		{"min above max", func(c *DeltaConfig) {
			c.MinSimilarityForUpdate = 0.9
			c.MaxSimilarityForSkip = 0.5
		}},
		{"change percentage above 1", func(c *DeltaConfig) { c.MaxChangePercentage = 1.5 }},
		{"zero max parallel", func(c *DeltaConfig) { c.MaxParallel = 0 }},
		{"zero batch size", func(c *DeltaConfig) { c.ChangeBatchSize = 0 }},
		{"negative timeout", func(c *DeltaConfig) { c.ProcessingTimeout = -1 }},
		{"negative lock timeout", func(c *DeltaConfig) { c.LockTimeout = -1 }},
		{"negative cache TTL", func(c *DeltaConfig) { c.CacheTTL = -1 }},
		{"negative pipeline rate", func(c *DeltaConfig) { c.PipelineRate = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDeltaConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
