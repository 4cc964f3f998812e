package file

import (
	"time"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
)

// DeltaConfigFromStore builds the refresh policy from a config store,
// starting from defaults and overriding any key the user has set.
// Keys live under the [delta] table of the config file.
func DeltaConfigFromStore(store driven.ConfigStore) domain.DeltaConfig {
	config := domain.DefaultDeltaConfig()

	if _, ok := store.Get("delta.page_level_detection"); ok {
		config.PageLevelDetection = store.GetBool("delta.page_level_detection")
	}
	if _, ok := store.Get("delta.section_level_detection"); ok {
		config.SectionLevelDetection = store.GetBool("delta.section_level_detection")
	}
	if _, ok := store.Get("delta.similarity_analysis"); ok {
		config.SimilarityAnalysis = store.GetBool("delta.similarity_analysis")
	}
	if _, ok := store.Get("delta.dependency_linking"); ok {
		config.DependencyLinking = store.GetBool("delta.dependency_linking")
	}
	if _, ok := store.Get("delta.min_similarity_for_update"); ok {
		config.MinSimilarityForUpdate = store.GetFloat("delta.min_similarity_for_update")
	}
	if _, ok := store.Get("delta.max_similarity_for_skip"); ok {
		config.MaxSimilarityForSkip = store.GetFloat("delta.max_similarity_for_skip")
	}
	if v := store.GetInt("delta.max_parallel"); v > 0 {
		config.MaxParallel = v
	}
	if v := store.GetInt("delta.change_batch_size"); v > 0 {
		config.ChangeBatchSize = v
	}
	if v := store.GetInt("delta.processing_timeout_seconds"); v > 0 {
		config.ProcessingTimeout = time.Duration(v) * time.Second
	}
	if v := store.GetInt("delta.lock_timeout_seconds"); v > 0 {
		config.LockTimeout = time.Duration(v) * time.Second
	}
	if _, ok := store.Get("delta.rollback_enabled"); ok {
		config.RollbackEnabled = store.GetBool("delta.rollback_enabled")
	}
	if _, ok := store.Get("delta.backup_before_processing"); ok {
		config.BackupBeforeProcessing = store.GetBool("delta.backup_before_processing")
	}
	if _, ok := store.Get("delta.fallback_to_full"); ok {
		config.FallbackToFull = store.GetBool("delta.fallback_to_full")
	}
	if _, ok := store.Get("delta.max_change_percentage"); ok {
		config.MaxChangePercentage = store.GetFloat("delta.max_change_percentage")
	}
	if _, ok := store.Get("delta.cache_enabled"); ok {
		config.CacheEnabled = store.GetBool("delta.cache_enabled")
	}
	if v := store.GetInt("delta.cache_ttl_seconds"); v > 0 {
		config.CacheTTL = time.Duration(v) * time.Second
	}
	if v := store.GetFloat("delta.pipeline_rate"); v > 0 {
		config.PipelineRate = v
	}

	return config
}

// SchedulerConfigFromStore builds the scheduler configuration from a
// config store. Keys live under the [scheduler] table.
func SchedulerConfigFromStore(store driven.ConfigStore) domain.SchedulerConfig {
	config := domain.DefaultSchedulerConfig()

	if _, ok := store.Get("scheduler.enabled"); ok {
		config.Enabled = store.GetBool("scheduler.enabled")
	}

	refresh := config.TaskConfigs[domain.TaskIDDeltaRefresh]
	if _, ok := store.Get("scheduler.refresh_enabled"); ok {
		refresh.Enabled = store.GetBool("scheduler.refresh_enabled")
	}
	if v := store.GetInt("scheduler.refresh_interval_minutes"); v > 0 {
		refresh.Interval = time.Duration(v) * time.Minute
	}
	config.TaskConfigs[domain.TaskIDDeltaRefresh] = refresh

	prune := config.TaskConfigs[domain.TaskIDHistoryPrune]
	if _, ok := store.Get("scheduler.prune_enabled"); ok {
		prune.Enabled = store.GetBool("scheduler.prune_enabled")
	}
	if v := store.GetInt("scheduler.prune_interval_hours"); v > 0 {
		prune.Interval = time.Duration(v) * time.Hour
	}
	config.TaskConfigs[domain.TaskIDHistoryPrune] = prune

	return config
}
