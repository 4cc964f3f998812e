package driving

import (
	"context"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

// RefreshOrchestrator coordinates delta refreshes of tracked documents.
// Expected failure modes are reported through the returned session's
// terminal status, not through the error value; errors are reserved
// for contract violations and infrastructure faults.
type RefreshOrchestrator interface {
	// Refresh runs one refresh attempt for a document and returns its
	// terminal session.
	Refresh(ctx context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error)

	// RefreshAll refreshes many documents in bounded-parallel batches.
	// One failing document does not cancel others; its session is
	// returned as failed.
	RefreshAll(ctx context.Context, paths []string) ([]*domain.DeltaSession, error)

	// Rollback restores the pre-session snapshot of a failed session
	// and marks it rolled back.
	Rollback(ctx context.Context, sessionID string) (*domain.DeltaSession, error)

	// Status returns the refresh status for a document path.
	Status(ctx context.Context, path string) (*RefreshStatus, error)
}

// RefreshStatus represents the current state of a refresh operation.
type RefreshStatus struct {
	// Path identifies the document.
	Path string

	// Running indicates if a refresh is currently in progress.
	Running bool

	// SessionID identifies the active session, if any.
	SessionID string

	// ChangesProcessed is the count of changes applied so far.
	ChangesProcessed int

	// TotalChanges is the count of changes detected.
	TotalChanges int

	// ErrorCount is the number of errors encountered.
	ErrorCount int
}

// SessionDirectory exposes persisted session history and aggregate
// statistics to administrative callers.
type SessionDirectory interface {
	// Session retrieves one session by id.
	Session(ctx context.Context, id string) (*domain.DeltaSession, error)

	// History returns recent sessions for a path, most recent first.
	History(ctx context.Context, path string, limit int) ([]*domain.DeltaSession, error)

	// Statistics aggregates all persisted sessions.
	Statistics(ctx context.Context) (*SessionStatistics, error)
}

// SessionStatistics aggregates persisted session records.
type SessionStatistics struct {
	// TotalSessions is the number of persisted sessions.
	TotalSessions int

	// CountByStatus breaks sessions down by terminal status name.
	CountByStatus map[string]int

	// AverageProcessingMillis is the mean session duration.
	AverageProcessingMillis float64

	// AverageEfficiencyRatio is the mean time-saved ratio.
	AverageEfficiencyRatio float64

	// TotalTimeSavedMillis sums time saved across sessions.
	TotalTimeSavedMillis int64
}
