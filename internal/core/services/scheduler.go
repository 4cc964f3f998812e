package services

import (
	"context"
	"sync"
	"time"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driving"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// Scheduler manages background task execution: periodic delta refresh
// of all tracked documents and session-history pruning.
// It is a pure core service with no external control API.
// Refreshes go through the job manager so scheduled runs take the same
// per-path locks as manually triggered ones.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	jobs    driving.JobManager
	tracker *Tracker

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	jobs driving.JobManager,
	tracker *Tracker,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		jobs:     jobs,
		tracker:  tracker,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initialise tasks in store
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	// Run the main scheduler loop
	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDDeltaRefresh); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDDeltaRefresh, "Delta Refresh", taskCfg); err != nil {
			return err
		}
	}
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDHistoryPrune); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDHistoryPrune, "History Prune", taskCfg); err != nil {
			return err
		}
	}

	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		// Create new task
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		// Update interval if changed
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from now
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	// Use a 1-minute ticker to check for due tasks
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || task.NextRun.Before(now) || task.NextRun.Equal(now) {
			// A task whose previous run is still going is not
			// relaunched; it becomes due again once it finishes.
			if !s.markInFlight(task.ID) {
				continue
			}
			s.runTask(ctx, task)
		}
	}
}

// markInFlight reserves a task for execution. It reports false when a
// previous run of the same task has not finished yet.
func (s *Scheduler) markInFlight(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[taskID] {
		return false
	}
	s.inFlight[taskID] = true
	return true
}

// clearInFlight releases a task reservation.
func (s *Scheduler) clearInFlight(taskID string) {
	s.mu.Lock()
	delete(s.inFlight, taskID)
	s.mu.Unlock()
}

// runTask executes a single task. The caller must have reserved the
// task via markInFlight.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.clearInFlight(task.ID)

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDDeltaRefresh:
			result.ItemsProcessed, err = s.runDeltaRefresh(ctx)
		case domain.TaskIDHistoryPrune:
			err = s.store.PruneHistory(ctx, 100)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		// Update task state
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		// Record result for history
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
	}()
}

// runDeltaRefresh refreshes every tracked document through the job
// manager and counts the sessions that completed. Going through the
// job manager means a scheduled refresh contends on the per-path lock
// with manual refreshes instead of racing them; a path that cannot be
// locked in time is skipped until the next run.
func (s *Scheduler) runDeltaRefresh(ctx context.Context) (int, error) {
	if s.jobs == nil || s.tracker == nil {
		return 0, nil
	}

	paths, err := s.tracker.TrackedPaths(ctx)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		session, err := s.jobs.Refresh(ctx, path, domain.ModeIncremental)
		if err != nil {
			logger.Warn("scheduler: refresh of %s failed: %v", path, err)
			continue
		}
		if session != nil && session.Status == domain.StatusCompleted {
			completed++
		}
	}
	return completed, nil
}
