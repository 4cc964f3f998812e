package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driving"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// Ensure DeltaOrchestrator implements the interface.
var _ driving.RefreshOrchestrator = (*DeltaOrchestrator)(nil)

// DeltaOrchestrator runs the delta-refresh control loop: detect
// changes, decide the processing mode, create a rollback point,
// dispatch change groups to the external pipeline, update tracked
// state, and finalise or roll back sessions.
type DeltaOrchestrator struct {
	config   domain.DeltaConfig
	detector *ChangeDetector
	tracker  *Tracker
	pipeline driven.Pipeline
	limiter  *rate.Limiter

	// Status tracking
	mu            sync.RWMutex
	activeRefresh map[string]*driving.RefreshStatus

	// stateFromFile is swapped in tests to supply synthetic states.
	stateFromFile func(string) (*domain.DocumentState, error)
}

// NewDeltaOrchestrator creates an orchestrator. The configuration is
// validated here and treated as immutable for the orchestrator's
// lifetime.
func NewDeltaOrchestrator(
	config domain.DeltaConfig,
	detector *ChangeDetector,
	tracker *Tracker,
	pipeline driven.Pipeline,
) (*DeltaOrchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	burst := 1
	if config.PipelineRate > 0 {
		limit = rate.Limit(config.PipelineRate)
		if config.PipelineRate > 1 {
			burst = int(config.PipelineRate)
		}
	}

	return &DeltaOrchestrator{
		config:        config,
		detector:      detector,
		tracker:       tracker,
		pipeline:      pipeline,
		limiter:       rate.NewLimiter(limit, burst),
		activeRefresh: make(map[string]*driving.RefreshStatus),
		stateFromFile: domain.NewDocumentStateFromFile,
	}, nil
}

// Refresh runs one refresh attempt for a document. Expected failure
// modes finish as a terminal session; errors are reserved for missing
// documents, cancellation, and infrastructure faults.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *DeltaOrchestrator) Refresh(ctx context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error) {
	// 1. Snapshot the document as it is now
	current, err := o.stateFromFile(path)
	if err != nil {
		return nil, err
	}

	// 2. Load the previous state; nil means initial ingest
	previous, err := o.tracker.DocumentState(ctx, path)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		carryFingerprints(current, previous)
	}

	// 3. Register the session
	session, err := o.tracker.StartSession(ctx, path, mode)
	if err != nil {
		return nil, err
	}

	o.setStatus(path, &driving.RefreshStatus{Path: path, Running: true, SessionID: session.ID})
	defer o.clearStatus(path)

	// 4. Initial ingest: with no previous state there is nothing to
	// diff, so the requested mode decides what happens
	if previous == nil {
		return o.initialIngest(ctx, session, current, mode)
	}

	// 5. Detect changes
	changes, err := o.detector.DetectChanges(current, previous)
	if err != nil {
		o.tracker.LogError(session.ID, err.Error())
		return o.tracker.CompleteSession(ctx, session.ID, false, 0)
	}

	// 6. No changes in incremental mode completes as a no-op. When the
	// document hash moved but every unit-level change was filtered as
	// cosmetic, the stored snapshot is superseded without reprocessing
	// so the same cosmetic delta is not re-detected on every run.
	if len(changes) == 0 && mode == domain.ModeIncremental {
		if current.ContentHash != previous.ContentHash {
			carryArtifacts(current, previous)
			current.ProcessingVersion = previous.ProcessingVersion
			if err := o.tracker.SaveDocumentState(ctx, current); err != nil {
				o.tracker.LogError(session.ID, err.Error())
				return o.tracker.CompleteSession(ctx, session.ID, false, 0)
			}
			o.tracker.AppendLog(session.ID, "cosmetic changes only; snapshot superseded without reprocessing")
		} else {
			o.tracker.AppendLog(session.ID, "no changes detected")
		}
		return o.tracker.CompleteSession(ctx, session.ID, true, o.estimateBaseline(ctx, path))
	}

	o.tracker.AddChanges(session.ID, changes)
	o.updateStatus(path, func(st *driving.RefreshStatus) { st.TotalChanges = len(changes) })

	// 7. Impact analysis: escalate to full processing when warranted
	effectiveMode := mode
	if mode == domain.ModeIncremental && o.shouldUseFullProcessing(changes, previous) {
		effectiveMode = domain.ModeFull
		o.tracker.SetMode(session.ID, domain.ModeFull)
		o.tracker.AppendLog(session.ID, "escalated to full processing")
		logger.Info("Escalating %s to full processing (%d changes)", path, len(changes))
	}

	// 8. Validation mode records the plan and applies nothing
	if mode == domain.ModeValidation {
		o.tracker.AppendLog(session.ID, fmt.Sprintf("validation plan: %s", summariseChanges(changes, effectiveMode)))
		return o.tracker.CompleteSession(ctx, session.ID, true, o.estimateBaseline(ctx, path))
	}

	// 9. Rollback point before any destructive step
	if o.config.RollbackEnabled || o.config.BackupBeforeProcessing {
		o.tracker.CreateRollbackPoint(session.ID, previous)
	}

	// 10. Apply changes through the external pipeline
	if effectiveMode == domain.ModeFull {
		err = o.applyFull(ctx, session, current, previous)
		if err == nil {
			o.tracker.UpdateProgress(session.ID, len(changes), 0)
			o.updateStatus(path, func(st *driving.RefreshStatus) { st.ChangesProcessed = len(changes) })
		}
	} else {
		err = o.applyChangeGroups(ctx, session, current, changes)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Cancelled sessions stay in their last consistent state;
			// no state write has happened.
			o.tracker.AppendLog(session.ID, "cancellation acknowledged")
			o.tracker.AbandonSession(session.ID)
			return session, ctxErr
		}
		o.tracker.LogError(session.ID, err.Error())
		return o.tracker.CompleteSession(ctx, session.ID, false, o.estimateBaseline(ctx, path))
	}

	// 11. Persist the new state only after pipeline success
	current.ProcessingVersion = previous.ProcessingVersion + 1
	if err := o.tracker.SaveDocumentState(ctx, current); err != nil {
		o.tracker.LogError(session.ID, err.Error())
		return o.tracker.CompleteSession(ctx, session.ID, false, o.estimateBaseline(ctx, path))
	}

	return o.tracker.CompleteSession(ctx, session.ID, true, o.estimateBaseline(ctx, path))
}

// initialIngest handles the first refresh of an untracked document.
// Incremental runs register the snapshot and complete as a no-op; an
// explicit full run builds the document from scratch through the
// pipeline; validation reports the build plan and applies nothing.
func (o *DeltaOrchestrator) initialIngest(
	ctx context.Context,
	session *domain.DeltaSession,
	current *domain.DocumentState,
	mode domain.ProcessingMode,
) (*domain.DeltaSession, error) {
	path := current.Path

	switch mode {
	case domain.ModeFull:
		rebuild := rebuildChanges(current)
		o.tracker.AddChanges(session.ID, rebuild)
		o.updateStatus(path, func(st *driving.RefreshStatus) { st.TotalChanges = len(rebuild) })
		o.tracker.AppendLog(session.ID, "no previous state; building initial snapshot in full")

		if err := o.applyGroup(ctx, session, current, rebuild, "added"); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				o.tracker.AppendLog(session.ID, "cancellation acknowledged")
				o.tracker.AbandonSession(session.ID)
				return session, ctxErr
			}
			o.tracker.LogError(session.ID, err.Error())
			return o.tracker.CompleteSession(ctx, session.ID, false, o.estimateBaseline(ctx, path))
		}

		current.ProcessingVersion = 1
		if err := o.tracker.SaveDocumentState(ctx, current); err != nil {
			o.tracker.LogError(session.ID, err.Error())
			return o.tracker.CompleteSession(ctx, session.ID, false, 0)
		}
		return o.tracker.CompleteSession(ctx, session.ID, true, o.estimateBaseline(ctx, path))

	case domain.ModeValidation:
		rebuild := rebuildChanges(current)
		o.tracker.AddChanges(session.ID, rebuild)
		o.tracker.AppendLog(session.ID, fmt.Sprintf("validation plan: %s", summariseChanges(rebuild, domain.ModeFull)))
		return o.tracker.CompleteSession(ctx, session.ID, true, o.estimateBaseline(ctx, path))

	default:
		o.tracker.AppendLog(session.ID, "no previous state; registering initial snapshot")
		if err := o.tracker.SaveDocumentState(ctx, current); err != nil {
			o.tracker.LogError(session.ID, err.Error())
			return o.tracker.CompleteSession(ctx, session.ID, false, 0)
		}
		return o.tracker.CompleteSession(ctx, session.ID, true, o.estimateBaseline(ctx, path))
	}
}

// RefreshAll refreshes documents in batches of MaxParallel. Failures
// are isolated per document: a failing refresh is recorded as a failed
// session and does not cancel others in the same batch.
func (o *DeltaOrchestrator) RefreshAll(ctx context.Context, paths []string) ([]*domain.DeltaSession, error) {
	sessions := make([]*domain.DeltaSession, len(paths))

	for start := 0; start < len(paths); start += o.config.MaxParallel {
		if err := ctx.Err(); err != nil {
			return sessions, err
		}

		end := start + o.config.MaxParallel
		if end > len(paths) {
			end = len(paths)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				sessions[idx] = o.refreshIsolated(ctx, paths[idx])
			}(i)
		}
		wg.Wait()
	}

	return sessions, nil
}

// refreshIsolated runs one refresh and converts a raised error into a
// failed session record.
func (o *DeltaOrchestrator) refreshIsolated(ctx context.Context, path string) *domain.DeltaSession {
	session, err := o.Refresh(ctx, path, domain.ModeIncremental)
	if err == nil {
		return session
	}
	if session != nil {
		return session
	}

	logger.Warn("Refresh of %s failed before a session started: %v", path, err)
	session = domain.NewDeltaSession(path, domain.ModeIncremental)
	session.AppendError(err.Error())
	if recordErr := o.tracker.RecordFailedSession(ctx, session); recordErr != nil {
		logger.Warn("Failed to record failed session for %s: %v", path, recordErr)
	}
	return session
}

// Rollback restores the pre-session snapshot from a failed session's
// rollback payload and marks the session rolled back.
func (o *DeltaOrchestrator) Rollback(ctx context.Context, sessionID string) (*domain.DeltaSession, error) {
	session, err := o.tracker.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: session %s is %s, not failed", domain.ErrInvalidTransition, sessionID, session.Status)
	}
	if !session.CanRollback || session.Rollback == nil || session.Rollback.PreviousState == nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrRollbackUnavailable, sessionID)
	}

	if err := o.tracker.SaveDocumentState(ctx, session.Rollback.PreviousState); err != nil {
		return nil, err
	}
	if err := o.tracker.MarkRolledBack(ctx, session); err != nil {
		return nil, err
	}

	logger.Info("Session %s rolled back", sessionID)
	return session, nil
}

// Status returns the refresh status for a document path.
func (o *DeltaOrchestrator) Status(_ context.Context, path string) (*driving.RefreshStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeRefresh[path]; ok {
		// Return a copy to avoid race conditions
		copied := *status
		return &copied, nil
	}

	// Not running - return idle status
	return &driving.RefreshStatus{Path: path, Running: false}, nil
}

// shouldUseFullProcessing applies the escalation policy: deletions and
// high-volume edits make surgical incremental updates riskier than a
// clean rebuild, so the policy trades some wasted work for correctness.
func (o *DeltaOrchestrator) shouldUseFullProcessing(changes []*domain.ContentChange, previous *domain.DocumentState) bool {
	if len(changes) == 0 {
		return false
	}

	highImpact := 0
	for _, change := range changes {
		if change.Kind == domain.ChangeDeleted {
			return true
		}
		if change.HighImpact() {
			highImpact++
		}
	}
	if highImpact*2 > len(changes) {
		return true
	}

	if o.config.FallbackToFull {
		baseline := len(previous.Pages) + len(previous.Sections)
		if baseline == 0 {
			baseline = 1
		}
		if float64(len(changes))/float64(baseline) > o.config.MaxChangePercentage {
			return true
		}
	}

	return false
}

// applyChangeGroups dispatches changes grouped by kind, in kind order:
// added, modified, deleted, with moves and renames processed as
// modifications. Within a group, detection order is preserved. Failure
// of any group aborts the session; partially applied groups are not
// reverted here - that is what Rollback is for.
func (o *DeltaOrchestrator) applyChangeGroups(
	ctx context.Context,
	session *domain.DeltaSession,
	current *domain.DocumentState,
	changes []*domain.ContentChange,
) error {
	var added, modified, deleted []*domain.ContentChange
	for _, change := range changes {
		switch change.Kind {
		case domain.ChangeAdded:
			added = append(added, change)
		case domain.ChangeModified, domain.ChangeMoved, domain.ChangeRenamed:
			modified = append(modified, change)
		case domain.ChangeDeleted:
			deleted = append(deleted, change)
		}
	}

	if err := o.applyGroup(ctx, session, current, added, "added"); err != nil {
		return err
	}
	if err := o.applyGroup(ctx, session, current, modified, "modified"); err != nil {
		return err
	}
	return o.removeGroup(ctx, session, current, deleted)
}

// applyGroup dispatches one kind group in batches through the
// pipeline and records the derived artifacts on the new state.
func (o *DeltaOrchestrator) applyGroup(
	ctx context.Context,
	session *domain.DeltaSession,
	current *domain.DocumentState,
	group []*domain.ContentChange,
	label string,
) error {
	for _, batch := range batchChanges(group, o.config.ChangeBatchSize) {
		artifacts, err := o.dispatch(ctx, label, batch)
		if err != nil {
			o.tracker.UpdateProgress(session.ID, 0, len(batch))
			o.updateStatus(session.Path, func(st *driving.RefreshStatus) { st.ErrorCount++ })
			return fmt.Errorf("%w: %s group: %v", domain.ErrApply, label, err)
		}

		for _, change := range batch {
			recordArtifacts(current, change, artifacts[change.ID])
		}
		o.tracker.UpdateProgress(session.ID, len(batch), 0)
		o.updateStatus(session.Path, func(st *driving.RefreshStatus) { st.ChangesProcessed += len(batch) })
		o.tracker.AppendLog(session.ID, fmt.Sprintf("applied %d %s changes", len(batch), label))
	}
	return nil
}

// removeGroup deletes the derived artifacts of deleted content units.
func (o *DeltaOrchestrator) removeGroup(
	ctx context.Context,
	session *domain.DeltaSession,
	current *domain.DocumentState,
	deleted []*domain.ContentChange,
) error {
	for _, batch := range batchChanges(deleted, o.config.ChangeBatchSize) {
		var artifactIDs []string
		for _, change := range batch {
			artifactIDs = append(artifactIDs, change.AffectedArtifacts...)
		}

		if err := o.pipelineCall(ctx, func(callCtx context.Context) error {
			return o.pipeline.Remove(callCtx, artifactIDs)
		}); err != nil {
			o.tracker.UpdateProgress(session.ID, 0, len(batch))
			o.updateStatus(session.Path, func(st *driving.RefreshStatus) { st.ErrorCount++ })
			return fmt.Errorf("%w: deleted group: %v", domain.ErrApply, err)
		}

		for _, change := range batch {
			clearArtifacts(current, change)
		}
		o.tracker.UpdateProgress(session.ID, len(batch), 0)
		o.updateStatus(session.Path, func(st *driving.RefreshStatus) { st.ChangesProcessed += len(batch) })
		o.tracker.AppendLog(session.ID, fmt.Sprintf("removed artifacts for %d deleted changes", len(batch)))
	}
	return nil
}

// applyFull reprocesses the entire document: every remaining previous
// artifact is removed and every current content unit is processed as
// an addition.
func (o *DeltaOrchestrator) applyFull(
	ctx context.Context,
	session *domain.DeltaSession,
	current *domain.DocumentState,
	previous *domain.DocumentState,
) error {
	var stale []string
	for _, ids := range previous.PageArtifacts {
		stale = append(stale, ids...)
	}
	for _, ids := range previous.SectionArtifacts {
		stale = append(stale, ids...)
	}
	if len(stale) > 0 {
		if err := o.pipelineCall(ctx, func(callCtx context.Context) error {
			return o.pipeline.Remove(callCtx, stale)
		}); err != nil {
			return fmt.Errorf("%w: full rebuild removal: %v", domain.ErrApply, err)
		}
		o.tracker.AppendLog(session.ID, fmt.Sprintf("removed %d stale artifacts for rebuild", len(stale)))
	}

	rebuild := rebuildChanges(current)
	for _, batch := range batchChanges(rebuild, o.config.ChangeBatchSize) {
		artifacts, err := o.dispatch(ctx, "added", batch)
		if err != nil {
			return fmt.Errorf("%w: full rebuild: %v", domain.ErrApply, err)
		}
		for _, change := range batch {
			recordArtifacts(current, change, artifacts[change.ID])
		}
		o.tracker.AppendLog(session.ID, fmt.Sprintf("rebuilt %d content units", len(batch)))
	}
	return nil
}

// dispatch routes a batch to the pipeline's per-kind entry point,
// paced by the rate limiter and bounded by the processing timeout.
func (o *DeltaOrchestrator) dispatch(ctx context.Context, label string, batch []*domain.ContentChange) (map[string][]string, error) {
	var artifacts map[string][]string
	err := o.pipelineCall(ctx, func(callCtx context.Context) error {
		var callErr error
		switch label {
		case "added":
			artifacts, callErr = o.pipeline.ProcessAdded(callCtx, batch)
		default:
			artifacts, callErr = o.pipeline.ProcessModified(callCtx, batch)
		}
		return callErr
	})
	return artifacts, err
}

// pipelineCall wraps one external call with rate pacing and the
// processing timeout. A timeout is a failure, never a silent skip.
func (o *DeltaOrchestrator) pipelineCall(ctx context.Context, fn func(context.Context) error) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx := ctx
	if o.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.ProcessingTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s", domain.ErrTimeout, o.config.ProcessingTimeout)
	}
	return err
}

// estimateBaseline asks the pipeline for the full-processing baseline.
// Estimation failures are logged, not fatal: efficiency metrics are
// reporting, not policy.
func (o *DeltaOrchestrator) estimateBaseline(ctx context.Context, path string) time.Duration {
	baseline, err := o.pipeline.EstimateBaseline(ctx, path)
	if err != nil {
		logger.Debug("Baseline estimate for %s unavailable: %v", path, err)
		return 0
	}
	return baseline
}

// setStatus records the refresh status for a path.
func (o *DeltaOrchestrator) setStatus(path string, status *driving.RefreshStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeRefresh[path] = status
}

// clearStatus removes the refresh status for a path.
func (o *DeltaOrchestrator) clearStatus(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeRefresh, path)
}

// updateStatus mutates an active refresh status under the lock, so a
// concurrent Status reader always sees a consistent snapshot.
func (o *DeltaOrchestrator) updateStatus(path string, fn func(*driving.RefreshStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeRefresh[path]; ok {
		fn(status)
	}
}

// carryFingerprints copies the previous fine-grained fingerprints onto
// a freshly statted state when the caller has not supplied new ones
// and the content is unchanged, so unchanged units are not re-derived.
func carryFingerprints(current, previous *domain.DocumentState) {
	if current.ContentHash != previous.ContentHash {
		return
	}
	if hasFineFingerprints(current) {
		return
	}
	for k, v := range previous.Pages {
		current.Pages[k] = v
	}
	for k, v := range previous.Sections {
		current.Sections[k] = v
	}
	for k, v := range previous.PageArtifacts {
		current.PageArtifacts[k] = append([]string(nil), v...)
	}
	for k, v := range previous.SectionArtifacts {
		current.SectionArtifacts[k] = append([]string(nil), v...)
	}
	current.ProcessingVersion = previous.ProcessingVersion
}

// carryArtifacts keeps previously derived fingerprints and artifacts
// on a superseding snapshot whose content units were not reprocessed.
func carryArtifacts(current, previous *domain.DocumentState) {
	if !hasFineFingerprints(current) {
		for k, v := range previous.Pages {
			current.Pages[k] = v
		}
		for k, v := range previous.Sections {
			current.Sections[k] = v
		}
	}
	for page := range current.Pages {
		if ids, ok := previous.PageArtifacts[page]; ok {
			current.PageArtifacts[page] = append([]string(nil), ids...)
		}
	}
	for id := range current.Sections {
		if ids, ok := previous.SectionArtifacts[id]; ok {
			current.SectionArtifacts[id] = append([]string(nil), ids...)
		}
	}
}

// recordArtifacts attributes derived artifact ids to the change's
// content unit on the new state.
func recordArtifacts(state *domain.DocumentState, change *domain.ContentChange, artifactIDs []string) {
	if len(artifactIDs) == 0 {
		return
	}
	change.AffectedArtifacts = artifactIDs
	if change.SectionID != "" {
		state.SectionArtifacts[change.SectionID] = artifactIDs
		return
	}
	if change.Page > 0 {
		state.PageArtifacts[change.Page] = artifactIDs
	}
}

// clearArtifacts drops a deleted unit's keys from the new state.
func clearArtifacts(state *domain.DocumentState, change *domain.ContentChange) {
	if change.SectionID != "" {
		delete(state.Sections, change.SectionID)
		delete(state.SectionArtifacts, change.SectionID)
		return
	}
	delete(state.Pages, change.Page)
	delete(state.PageArtifacts, change.Page)
}

// rebuildChanges synthesises added changes for every content unit of a
// state, for full reprocessing. A state with no fine-grained
// fingerprints rebuilds as one whole-document unit.
func rebuildChanges(state *domain.DocumentState) []*domain.ContentChange {
	var changes []*domain.ContentChange

	for _, page := range sortedPageKeys(state.Pages, nil) {
		fp := state.Pages[page]
		change := domain.NewContentChange(domain.ChangeAdded, state.Path)
		change.Page = page
		change.NewFingerprint = &fp
		changes = append(changes, change)
	}
	for _, id := range sortedSectionKeys(state.Sections, nil) {
		fp := state.Sections[id]
		change := domain.NewContentChange(domain.ChangeAdded, state.Path)
		change.SectionID = id
		change.Page = fp.Page
		change.NewFingerprint = &fp
		changes = append(changes, change)
	}

	if len(changes) == 0 {
		fp := domain.ContentFingerprint{ContentHash: state.ContentHash, Length: int(state.Size)}
		change := domain.NewContentChange(domain.ChangeAdded, state.Path)
		change.NewFingerprint = &fp
		changes = append(changes, change)
	}
	return changes
}

// batchChanges splits a group into batches of at most size.
func batchChanges(changes []*domain.ContentChange, size int) [][]*domain.ContentChange {
	if len(changes) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}

	var batches [][]*domain.ContentChange
	for start := 0; start < len(changes); start += size {
		end := start + size
		if end > len(changes) {
			end = len(changes)
		}
		batches = append(batches, changes[start:end])
	}
	return batches
}

// summariseChanges renders a one-line plan for validation sessions.
func summariseChanges(changes []*domain.ContentChange, mode domain.ProcessingMode) string {
	counts := make(map[domain.ChangeKind]int)
	for _, change := range changes {
		counts[change.Kind]++
	}
	return fmt.Sprintf("mode=%s added=%d modified=%d deleted=%d moved=%d renamed=%d",
		mode, counts[domain.ChangeAdded], counts[domain.ChangeModified],
		counts[domain.ChangeDeleted], counts[domain.ChangeMoved], counts[domain.ChangeRenamed])
}
