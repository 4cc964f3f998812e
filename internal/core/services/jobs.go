package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driving"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// Ensure JobManager implements the interface.
var _ driving.JobManager = (*JobManager)(nil)

// jobRetention is how long finished jobs stay queryable before the
// registry forgets them. Long-lived processes such as watch sessions
// submit jobs indefinitely, so the registry must not grow unbounded.
const jobRetention = 5 * time.Minute

// JobManager is the concurrency facade over the orchestrator. It
// serialises refreshes per document path, tracks background jobs in a
// registry, and supports cooperative cancellation.
type JobManager struct {
	orch        driving.RefreshOrchestrator
	lockTimeout time.Duration
	retention   time.Duration

	mu    sync.Mutex
	locks map[string]chan struct{}
	jobs  map[string]*jobRecord
}

// jobRecord tracks one background job.
type jobRecord struct {
	status  driving.JobStatus
	cancel  context.CancelFunc
	done    chan struct{}
	session *domain.DeltaSession
	err     error
}

// NewJobManager creates a job manager over an orchestrator. A
// non-positive lockTimeout waits indefinitely for per-path locks.
func NewJobManager(orch driving.RefreshOrchestrator, lockTimeout time.Duration) *JobManager {
	return &JobManager{
		orch:        orch,
		lockTimeout: lockTimeout,
		retention:   jobRetention,
		locks:       make(map[string]chan struct{}),
		jobs:        make(map[string]*jobRecord),
	}
}

// Refresh runs a refresh synchronously. A second concurrent request
// for the same path waits on the per-path lock rather than racing the
// detector and tracker.
func (m *JobManager) Refresh(ctx context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error) {
	release, err := m.acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	defer release()

	return m.orch.Refresh(ctx, path, mode)
}

// Submit starts a background refresh and returns its job id. The job
// runs detached from the caller's context; Cancel stops it.
func (m *JobManager) Submit(_ context.Context, path string, mode domain.ProcessingMode) (string, error) {
	jobCtx, cancel := context.WithCancel(context.Background())

	record := &jobRecord{
		status: driving.JobStatus{
			JobID:     uuid.New().String(),
			Path:      path,
			State:     driving.JobRunning,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[record.status.JobID] = record
	m.mu.Unlock()

	go m.runJob(jobCtx, record, path, mode)

	logger.Debug("Submitted background job %s for %s", record.status.JobID, path)
	return record.status.JobID, nil
}

// runJob executes one background job under the per-path lock.
func (m *JobManager) runJob(ctx context.Context, record *jobRecord, path string, mode domain.ProcessingMode) {
	defer close(record.done)

	session, err := func() (*domain.DeltaSession, error) {
		release, acquireErr := m.acquire(ctx, path)
		if acquireErr != nil {
			return nil, acquireErr
		}
		defer release()
		return m.orch.Refresh(ctx, path, mode)
	}()

	m.mu.Lock()
	record.session = session
	record.err = err
	record.status.Session = session

	switch {
	case err == nil:
		record.status.State = driving.JobCompleted
	case errors.Is(err, context.Canceled):
		record.status.State = driving.JobCancelled
	default:
		record.status.State = driving.JobFailed
		record.status.Error = err.Error()
	}
	m.mu.Unlock()

	// Finished jobs stay queryable for the retention window, then the
	// registry forgets them.
	jobID := record.status.JobID
	time.AfterFunc(m.retention, func() {
		m.mu.Lock()
		delete(m.jobs, jobID)
		m.mu.Unlock()
		logger.Debug("Job %s evicted from registry", jobID)
	})
}

// Status reports a background job's state.
func (m *JobManager) Status(jobID string) (*driving.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	}

	// Return a copy to avoid race conditions
	copied := record.status
	return &copied, nil
}

// Wait blocks until a background job finishes and returns its terminal
// session.
func (m *JobManager) Wait(ctx context.Context, jobID string) (*domain.DeltaSession, error) {
	m.mu.Lock()
	record, ok := m.jobs[jobID]
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-record.done:
		return record.session, record.err
	}
}

// Cancel requests cooperative cancellation of a background job. The
// job is removed from the registry once the cancellation is
// acknowledged by the running task.
func (m *JobManager) Cancel(jobID string) error {
	m.mu.Lock()
	record, ok := m.jobs[jobID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, jobID)
	}

	record.cancel()

	go func() {
		<-record.done
		m.mu.Lock()
		delete(m.jobs, jobID)
		m.mu.Unlock()
		logger.Debug("Job %s removed from registry after cancellation", jobID)
	}()

	return nil
}

// acquire takes the per-path lock, bounded by the lock timeout.
func (m *JobManager) acquire(ctx context.Context, path string) (func(), error) {
	m.mu.Lock()
	lock, ok := m.locks[path]
	if !ok {
		lock = make(chan struct{}, 1)
		m.locks[path] = lock
	}
	m.mu.Unlock()

	var timeout <-chan time.Time
	if m.lockTimeout > 0 {
		timer := time.NewTimer(m.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, fmt.Errorf("%w: %s after %s", domain.ErrLockTimeout, path, m.lockTimeout)
	}
}
