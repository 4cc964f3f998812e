package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessingMode selects how a refresh is executed.
type ProcessingMode int

const (
	// ModeIncremental touches only affected content units.
	ModeIncremental ProcessingMode = iota

	// ModeFull reprocesses the entire document through the pipeline.
	ModeFull

	// ModeValidation runs detection and decision-making but applies
	// nothing; the would-be plan is recorded in the processing log.
	ModeValidation
)

// String returns the mode's display name.
func (m ProcessingMode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModeFull:
		return "full"
	case ModeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// SessionStatus tracks a session through its lifecycle. Transitions
// are monotonic: a session never returns to Pending, and terminal
// statuses accept no further mutation, with the single exception of
// Failed -> RolledBack via an explicit rollback.
type SessionStatus int

const (
	// StatusPending is the initial status at session creation.
	StatusPending SessionStatus = iota

	// StatusProcessing indicates changes are being applied.
	StatusProcessing

	// StatusCompleted indicates the session finished successfully.
	StatusCompleted

	// StatusFailed indicates the session aborted with an error.
	StatusFailed

	// StatusRolledBack indicates a failed session's effects were undone.
	StatusRolledBack
)

// String returns the status display name.
func (s SessionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status accepts no further transitions
// other than Failed -> RolledBack.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	case StatusPending, StatusProcessing:
		return false
	default:
		return false
	}
}

// RollbackPoint is a pre-session snapshot sufficient to undo a
// session's effects. Write-once per session and read-only thereafter.
type RollbackPoint struct {
	// SessionID links to the owning session.
	SessionID string

	// PreviousState is the document state captured before any
	// destructive step.
	PreviousState *DocumentState

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time
}

// DeltaSession is a single refresh attempt for one document, from
// change detection through completion or rollback. Once a session
// reaches a terminal status it is persisted append-only and never
// mutated again.
type DeltaSession struct {
	// ID is the unique session identifier.
	ID string

	// Path is the document being refreshed.
	Path string

	// Mode is the processing mode chosen for this session.
	Mode ProcessingMode

	// Status is the current lifecycle status.
	Status SessionStatus

	// TotalChanges is the number of changes detected for the session.
	TotalChanges int

	// ProcessedChanges counts changes applied so far.
	ProcessedChanges int

	// FailedChanges counts changes whose application failed.
	FailedChanges int

	// StartedAt is when the session was created.
	StartedAt time.Time

	// EndedAt is when the session reached a terminal status.
	EndedAt time.Time

	// BaselineEstimate is the estimated full-processing duration,
	// used only for efficiency reporting.
	BaselineEstimate time.Duration

	// TimeSaved is BaselineEstimate minus elapsed processing time.
	TimeSaved time.Duration

	// EfficiencyRatio is TimeSaved / BaselineEstimate when the
	// baseline is positive.
	EfficiencyRatio float64

	// ProcessingLog is the append-only audit trail of steps taken.
	ProcessingLog []string

	// ErrorLog is the append-only record of errors encountered.
	ErrorLog []string

	// Rollback is the write-once rollback payload, if one was created.
	Rollback *RollbackPoint

	// CanRollback indicates the rollback payload is usable.
	CanRollback bool
}

// NewDeltaSession creates a pending session with a fresh id.
func NewDeltaSession(path string, mode ProcessingMode) *DeltaSession {
	return &DeltaSession{
		ID:        uuid.New().String(),
		Path:      path,
		Mode:      mode,
		Status:    StatusPending,
		StartedAt: time.Now().UTC(),
	}
}

// Transition moves the session to the next status, enforcing the
// monotonic state machine. The only transition out of a terminal
// status is Failed -> RolledBack.
func (s *DeltaSession) Transition(next SessionStatus) error {
	if s.Status == next {
		return nil
	}

	if s.Status.Terminal() {
		if s.Status == StatusFailed && next == StatusRolledBack {
			s.Status = next
			return nil
		}
		return fmt.Errorf("%w: %s -> %s", ErrSessionFinalised, s.Status, next)
	}

	switch {
	case s.Status == StatusPending && next == StatusProcessing:
	case s.Status == StatusPending && next.Terminal():
	case s.Status == StatusProcessing && next.Terminal():
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
	}

	s.Status = next
	if next.Terminal() && s.EndedAt.IsZero() {
		s.EndedAt = time.Now().UTC()
	}
	return nil
}

// AppendLog adds a timestamped entry to the processing log.
func (s *DeltaSession) AppendLog(message string) {
	s.ProcessingLog = append(s.ProcessingLog, logEntry(message))
}

// AppendError adds a timestamped entry to the error log.
func (s *DeltaSession) AppendError(message string) {
	s.ErrorLog = append(s.ErrorLog, logEntry(message))
}

// SetRollbackPoint attaches the write-once rollback payload. A second
// call for the same session is rejected.
func (s *DeltaSession) SetRollbackPoint(point *RollbackPoint) error {
	if s.Rollback != nil {
		return fmt.Errorf("%w: rollback point", ErrAlreadyExists)
	}
	s.Rollback = point
	s.CanRollback = point != nil && point.PreviousState != nil
	return nil
}

// Elapsed returns the session's wall-clock duration. For sessions
// still in flight it measures up to now.
func (s *DeltaSession) Elapsed() time.Duration {
	end := s.EndedAt
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(s.StartedAt)
}

// ComputeEfficiency derives the time-saved metrics against a
// full-processing baseline. A non-positive baseline zeroes the ratio.
func (s *DeltaSession) ComputeEfficiency(baseline time.Duration) {
	s.BaselineEstimate = baseline
	s.TimeSaved = baseline - s.Elapsed()
	if baseline > 0 {
		s.EfficiencyRatio = float64(s.TimeSaved) / float64(baseline)
	} else {
		s.EfficiencyRatio = 0
	}
}

func logEntry(message string) string {
	return time.Now().UTC().Format(time.RFC3339) + " " + message
}
