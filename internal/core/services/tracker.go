package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driving"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// Ensure Tracker implements the interfaces.
var (
	_ driving.SessionDirectory  = (*Tracker)(nil)
	_ driving.DocumentDirectory = (*Tracker)(nil)
)

// Tracker is the sole writer of persisted document states and
// completed sessions, and the sole holder of in-memory active-session
// state. Operations on unknown session ids are logged no-ops, never
// fatal.
type Tracker struct {
	stateStore   driven.DocumentStateStore
	sessionStore driven.SessionStore

	mu     sync.RWMutex
	active map[string]*domain.DeltaSession
}

// NewTracker creates a tracker over the given stores.
func NewTracker(stateStore driven.DocumentStateStore, sessionStore driven.SessionStore) *Tracker {
	return &Tracker{
		stateStore:   stateStore,
		sessionStore: sessionStore,
		active:       make(map[string]*domain.DeltaSession),
	}
}

// StartSession creates and registers a processing session with a
// fresh id.
func (t *Tracker) StartSession(_ context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error) {
	session := domain.NewDeltaSession(path, mode)
	if err := session.Transition(domain.StatusProcessing); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.active[session.ID] = session
	t.mu.Unlock()

	logger.Info("Started %s session %s for %s", mode, session.ID, path)
	return session, nil
}

// ActiveSessions returns copies of all sessions currently in flight.
func (t *Tracker) ActiveSessions() []*domain.DeltaSession {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sessions := make([]*domain.DeltaSession, 0, len(t.active))
	for _, session := range t.active {
		copied := *session
		sessions = append(sessions, &copied)
	}
	return sessions
}

// AddChanges records the detected change count on an active session.
func (t *Tracker) AddChanges(sessionID string, changes []*domain.ContentChange) {
	t.withActive(sessionID, "add changes", func(session *domain.DeltaSession) {
		session.TotalChanges += len(changes)
		session.AppendLog(fmt.Sprintf("detected %d changes", len(changes)))
	})
}

// SetMode records a processing-mode escalation on an active session.
func (t *Tracker) SetMode(sessionID string, mode domain.ProcessingMode) {
	t.withActive(sessionID, "set mode", func(session *domain.DeltaSession) {
		session.Mode = mode
	})
}

// UpdateProgress records applied and failed change counts.
func (t *Tracker) UpdateProgress(sessionID string, processed, failed int) {
	t.withActive(sessionID, "update progress", func(session *domain.DeltaSession) {
		session.ProcessedChanges += processed
		session.FailedChanges += failed
	})
}

// AppendLog adds an entry to an active session's processing log.
func (t *Tracker) AppendLog(sessionID, message string) {
	t.withActive(sessionID, "append log", func(session *domain.DeltaSession) {
		session.AppendLog(message)
	})
}

// LogError adds an entry to an active session's error log.
func (t *Tracker) LogError(sessionID, message string) {
	t.withActive(sessionID, "log error", func(session *domain.DeltaSession) {
		session.AppendError(message)
	})
}

// CreateRollbackPoint attaches a pre-session snapshot to an active
// session. The snapshot is deep-copied so it cannot alias live state.
// Rollback payloads are write-once; a duplicate call is logged and
// ignored.
func (t *Tracker) CreateRollbackPoint(sessionID string, previous *domain.DocumentState) {
	t.withActive(sessionID, "create rollback point", func(session *domain.DeltaSession) {
		point := &domain.RollbackPoint{
			SessionID:     sessionID,
			PreviousState: previous.Clone(),
			CreatedAt:     time.Now().UTC(),
		}
		if err := session.SetRollbackPoint(point); err != nil {
			logger.Warn("Rollback point for session %s already exists", sessionID)
			return
		}
		session.AppendLog("rollback point created")
	})
}

// CompleteSession transitions an active session to its terminal
// status, computes efficiency against the baseline, removes it from
// the active set, and persists it.
func (t *Tracker) CompleteSession(ctx context.Context, sessionID string, success bool, baseline time.Duration) (*domain.DeltaSession, error) {
	t.mu.Lock()
	session, ok := t.active[sessionID]
	if ok {
		delete(t.active, sessionID)
	}
	t.mu.Unlock()

	if !ok {
		logger.Warn("Complete requested for unknown session %s", sessionID)
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	status := domain.StatusCompleted
	if !success {
		status = domain.StatusFailed
	}
	if err := session.Transition(status); err != nil {
		return nil, err
	}
	session.ComputeEfficiency(baseline)

	if err := t.sessionStore.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logger.Info("Session %s finished as %s (%d/%d changes, saved %s)",
		session.ID, session.Status, session.ProcessedChanges, session.TotalChanges, session.TimeSaved)
	return session, nil
}

// AbandonSession removes a cancelled session from the active set
// without persisting it. The session stays in its last consistent
// state.
func (t *Tracker) AbandonSession(sessionID string) {
	t.mu.Lock()
	delete(t.active, sessionID)
	t.mu.Unlock()
	logger.Info("Session %s abandoned after cancellation", sessionID)
}

// MarkRolledBack transitions a persisted failed session to rolled
// back and re-persists it. This is the single allowed mutation of a
// terminal session record.
func (t *Tracker) MarkRolledBack(ctx context.Context, session *domain.DeltaSession) error {
	if err := session.Transition(domain.StatusRolledBack); err != nil {
		return err
	}
	session.AppendLog("session rolled back to pre-session snapshot")
	if err := t.sessionStore.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// RecordFailedSession persists a session that failed before it was
// ever registered, so batch refreshes always yield a terminal record.
func (t *Tracker) RecordFailedSession(ctx context.Context, session *domain.DeltaSession) error {
	if !session.Status.Terminal() {
		if err := session.Transition(domain.StatusFailed); err != nil {
			return err
		}
	}
	return t.sessionStore.Save(ctx, session)
}

// SaveDocumentState persists the current state for a path. It is only
// called after the orchestrator reports success, so a cancelled
// session never leaves a half-written state.
func (t *Tracker) SaveDocumentState(ctx context.Context, state *domain.DocumentState) error {
	if err := t.stateStore.Save(ctx, state); err != nil {
		return fmt.Errorf("save document state: %w", err)
	}
	return nil
}

// DocumentState returns the persisted state for a path, or nil with
// no error when the path is untracked. A missing previous state is
// the detector's safe "no changes" default, not a failure.
func (t *Tracker) DocumentState(ctx context.Context, path string) (*domain.DocumentState, error) {
	state, err := t.stateStore.Get(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document state: %w", err)
	}
	return state, nil
}

// TrackedPaths lists all documents with a persisted state.
func (t *Tracker) TrackedPaths(ctx context.Context) ([]string, error) {
	return t.stateStore.List(ctx)
}

// Session retrieves a session by id, checking the active set before
// persisted storage.
func (t *Tracker) Session(ctx context.Context, id string) (*domain.DeltaSession, error) {
	t.mu.RLock()
	if session, ok := t.active[id]; ok {
		copied := *session
		t.mu.RUnlock()
		return &copied, nil
	}
	t.mu.RUnlock()

	return t.sessionStore.Get(ctx, id)
}

// History returns recent persisted sessions for a path, most recent
// first.
func (t *Tracker) History(ctx context.Context, path string, limit int) ([]*domain.DeltaSession, error) {
	return t.sessionStore.ListByPath(ctx, path, limit)
}

// Statistics aggregates all persisted sessions. It scans cold storage
// on every call, so it is correct with no in-memory cache.
func (t *Tracker) Statistics(ctx context.Context) (*driving.SessionStatistics, error) {
	sessions, err := t.sessionStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	stats := &driving.SessionStatistics{
		TotalSessions: len(sessions),
		CountByStatus: make(map[string]int),
	}
	if len(sessions) == 0 {
		return stats, nil
	}

	var totalElapsed time.Duration
	var totalRatio float64
	for _, session := range sessions {
		stats.CountByStatus[session.Status.String()]++
		totalElapsed += session.Elapsed()
		totalRatio += session.EfficiencyRatio
		stats.TotalTimeSavedMillis += session.TimeSaved.Milliseconds()
	}
	stats.AverageProcessingMillis = float64(totalElapsed.Milliseconds()) / float64(len(sessions))
	stats.AverageEfficiencyRatio = totalRatio / float64(len(sessions))
	return stats, nil
}

// withActive runs fn against an active session under the tracker's
// lock. Unknown ids are logged and ignored.
func (t *Tracker) withActive(sessionID, operation string, fn func(*domain.DeltaSession)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.active[sessionID]
	if !ok {
		logger.Warn("Ignoring %s for unknown session %s", operation, sessionID)
		return
	}
	fn(session)
}
