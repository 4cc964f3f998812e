package driving

import (
	"context"
	"time"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

// JobState classifies a background refresh job.
type JobState int

const (
	// JobRunning indicates the job's task is still executing.
	JobRunning JobState = iota

	// JobCompleted indicates the task finished with a session result.
	JobCompleted

	// JobFailed indicates the task finished with an error.
	JobFailed

	// JobCancelled indicates cooperative cancellation was acknowledged.
	JobCancelled
)

// String returns the state's display name.
func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// JobStatus reports a background job's progress.
type JobStatus struct {
	// JobID identifies the job.
	JobID string

	// Path is the refresh target.
	Path string

	// State is the job's current state.
	State JobState

	// StartedAt is when the job was submitted.
	StartedAt time.Time

	// Session is the terminal session, set once the job completes.
	Session *domain.DeltaSession

	// Error is the captured failure, set when State is JobFailed.
	Error string
}

// JobManager is the concurrency facade over the orchestrator. It
// provides synchronous and background calling conventions with
// per-document mutual exclusion.
type JobManager interface {
	// Refresh runs a refresh synchronously, blocking until the session
	// completes. Concurrent calls for the same path serialise on the
	// per-path lock.
	Refresh(ctx context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error)

	// Submit starts a background refresh and returns its job id.
	Submit(ctx context.Context, path string, mode domain.ProcessingMode) (string, error)

	// Status reports a background job's state.
	// Returns domain.ErrNotFound for unknown job ids.
	Status(jobID string) (*JobStatus, error)

	// Wait blocks until a background job finishes and returns its
	// terminal session.
	Wait(ctx context.Context, jobID string) (*domain.DeltaSession, error)

	// Cancel requests cooperative cancellation of a background job.
	Cancel(jobID string) error
}
