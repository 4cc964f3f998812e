package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ferrous-labs/kbdelta/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.kbdelta/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbdelta", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStateStore returns a DocumentStateStore interface backed by this store.
func (s *Store) DocumentStateStore() driven.DocumentStateStore {
	return &documentStateStore{store: s}
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document State Store ====================

// documentStateStore implements driven.DocumentStateStore.
type documentStateStore struct {
	store *Store
}

var _ driven.DocumentStateStore = (*documentStateStore)(nil)

// Save stores or replaces the current state for a path.
func (s *documentStateStore) Save(ctx context.Context, state *domain.DocumentState) error {
	if state == nil {
		return domain.ErrInvalidInput
	}

	pagesJSON, err := json.Marshal(state.Pages)
	if err != nil {
		return fmt.Errorf("marshalling pages: %w", err)
	}
	sectionsJSON, err := json.Marshal(state.Sections)
	if err != nil {
		return fmt.Errorf("marshalling sections: %w", err)
	}
	pageArtifactsJSON, err := json.Marshal(state.PageArtifacts)
	if err != nil {
		return fmt.Errorf("marshalling page artifacts: %w", err)
	}
	sectionArtifactsJSON, err := json.Marshal(state.SectionArtifacts)
	if err != nil {
		return fmt.Errorf("marshalling section artifacts: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO document_states (path, modified_at, size, content_hash, pages, sections,
			page_artifacts, section_artifacts, processing_version, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			modified_at = excluded.modified_at,
			size = excluded.size,
			content_hash = excluded.content_hash,
			pages = excluded.pages,
			sections = excluded.sections,
			page_artifacts = excluded.page_artifacts,
			section_artifacts = excluded.section_artifacts,
			processing_version = excluded.processing_version,
			captured_at = excluded.captured_at
	`, state.Path, formatNullableTime(state.ModifiedAt), state.Size, state.ContentHash,
		string(pagesJSON), string(sectionsJSON),
		string(pageArtifactsJSON), string(sectionArtifactsJSON),
		state.ProcessingVersion, formatNullableTime(state.CapturedAt))

	if err != nil {
		return fmt.Errorf("saving document state: %w", err)
	}
	return nil
}

// Get retrieves the current state for a path.
func (s *documentStateStore) Get(ctx context.Context, path string) (*domain.DocumentState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT path, modified_at, size, content_hash, pages, sections,
			page_artifacts, section_artifacts, processing_version, captured_at
		FROM document_states WHERE path = ?
	`, path)

	var state domain.DocumentState
	var modifiedAt, capturedAt sql.NullString
	var pagesJSON, sectionsJSON, pageArtifactsJSON, sectionArtifactsJSON string
	if err := row.Scan(&state.Path, &modifiedAt, &state.Size, &state.ContentHash,
		&pagesJSON, &sectionsJSON, &pageArtifactsJSON, &sectionArtifactsJSON,
		&state.ProcessingVersion, &capturedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document state: %w", err)
	}

	if err := json.Unmarshal([]byte(pagesJSON), &state.Pages); err != nil {
		return nil, fmt.Errorf("unmarshalling pages: %w", err)
	}
	if err := json.Unmarshal([]byte(sectionsJSON), &state.Sections); err != nil {
		return nil, fmt.Errorf("unmarshalling sections: %w", err)
	}
	if err := json.Unmarshal([]byte(pageArtifactsJSON), &state.PageArtifacts); err != nil {
		return nil, fmt.Errorf("unmarshalling page artifacts: %w", err)
	}
	if err := json.Unmarshal([]byte(sectionArtifactsJSON), &state.SectionArtifacts); err != nil {
		return nil, fmt.Errorf("unmarshalling section artifacts: %w", err)
	}

	// JSON null round-trips as nil maps; callers expect usable maps.
	if state.Pages == nil {
		state.Pages = make(map[int]domain.ContentFingerprint)
	}
	if state.Sections == nil {
		state.Sections = make(map[string]domain.ContentFingerprint)
	}
	if state.PageArtifacts == nil {
		state.PageArtifacts = make(map[int][]string)
	}
	if state.SectionArtifacts == nil {
		state.SectionArtifacts = make(map[string][]string)
	}

	state.ModifiedAt = parseNullableTime(modifiedAt)
	state.CapturedAt = parseNullableTime(capturedAt)

	return &state, nil
}

// List returns the paths of all tracked documents.
func (s *documentStateStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT path FROM document_states ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("querying document states: %w", err)
	}
	defer rows.Close()

	var paths []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document states: %w", err)
	}

	return paths, nil
}

// Delete removes the state for a path.
func (s *documentStateStore) Delete(ctx context.Context, path string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM document_states WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("deleting document state: %w", err)
	}
	return nil
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Save persists a session record.
func (s *sessionStore) Save(ctx context.Context, session *domain.DeltaSession) error {
	if session == nil {
		return domain.ErrInvalidInput
	}

	processingLogJSON, err := json.Marshal(session.ProcessingLog)
	if err != nil {
		return fmt.Errorf("marshalling processing log: %w", err)
	}
	errorLogJSON, err := json.Marshal(session.ErrorLog)
	if err != nil {
		return fmt.Errorf("marshalling error log: %w", err)
	}

	var rollbackJSON interface{}
	if session.Rollback != nil {
		encoded, err := json.Marshal(session.Rollback)
		if err != nil {
			return fmt.Errorf("marshalling rollback point: %w", err)
		}
		rollbackJSON = string(encoded)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO delta_sessions (id, path, mode, status, total_changes, processed_changes,
			failed_changes, started_at, ended_at, baseline_estimate_ms, time_saved_ms,
			efficiency_ratio, processing_log, error_log, rollback_point, can_rollback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total_changes = excluded.total_changes,
			processed_changes = excluded.processed_changes,
			failed_changes = excluded.failed_changes,
			ended_at = excluded.ended_at,
			baseline_estimate_ms = excluded.baseline_estimate_ms,
			time_saved_ms = excluded.time_saved_ms,
			efficiency_ratio = excluded.efficiency_ratio,
			processing_log = excluded.processing_log,
			error_log = excluded.error_log,
			rollback_point = excluded.rollback_point,
			can_rollback = excluded.can_rollback
	`, session.ID, session.Path, int(session.Mode), int(session.Status),
		session.TotalChanges, session.ProcessedChanges, session.FailedChanges,
		session.StartedAt.Format(time.RFC3339Nano), formatNullableTime(session.EndedAt),
		session.BaselineEstimate.Milliseconds(), session.TimeSaved.Milliseconds(),
		session.EfficiencyRatio, string(processingLogJSON), string(errorLogJSON),
		rollbackJSON, boolToInt(session.CanRollback))

	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Get retrieves a session by id.
func (s *sessionStore) Get(ctx context.Context, id string) (*domain.DeltaSession, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, path, mode, status, total_changes, processed_changes, failed_changes,
			started_at, ended_at, baseline_estimate_ms, time_saved_ms, efficiency_ratio,
			processing_log, error_log, rollback_point, can_rollback
		FROM delta_sessions WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying session: %w", err)
		}
		return nil, domain.ErrNotFound
	}
	return scanSession(rows)
}

// ListByPath returns sessions for a document path, most recent first.
func (s *sessionStore) ListByPath(ctx context.Context, path string, limit int) ([]*domain.DeltaSession, error) {
	query := `
		SELECT id, path, mode, status, total_changes, processed_changes, failed_changes,
			started_at, ended_at, baseline_estimate_ms, time_saved_ms, efficiency_ratio,
			processing_log, error_log, rollback_point, can_rollback
		FROM delta_sessions WHERE path = ? ORDER BY started_at DESC`
	args := []interface{}{path}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListAll returns all persisted sessions, most recent first.
func (s *sessionStore) ListAll(ctx context.Context) ([]*domain.DeltaSession, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, path, mode, status, total_changes, processed_changes, failed_changes,
			started_at, ended_at, baseline_estimate_ms, time_saved_ms, efficiency_ratio,
			processing_log, error_log, rollback_point, can_rollback
		FROM delta_sessions ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// collectSessions drains a result set into session records.
func collectSessions(rows *sql.Rows) ([]*domain.DeltaSession, error) {
	var sessions []*domain.DeltaSession //nolint:prealloc // size unknown from query
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

// scanSession scans a session from *sql.Rows.
func scanSession(rows *sql.Rows) (*domain.DeltaSession, error) {
	var session domain.DeltaSession
	var mode, status, canRollback int
	var startedAt string
	var endedAt, rollbackJSON sql.NullString
	var baselineMillis, timeSavedMillis int64
	var processingLogJSON, errorLogJSON string

	if err := rows.Scan(&session.ID, &session.Path, &mode, &status,
		&session.TotalChanges, &session.ProcessedChanges, &session.FailedChanges,
		&startedAt, &endedAt, &baselineMillis, &timeSavedMillis, &session.EfficiencyRatio,
		&processingLogJSON, &errorLogJSON, &rollbackJSON, &canRollback); err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.Mode = domain.ProcessingMode(mode)
	session.Status = domain.SessionStatus(status)
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		session.StartedAt = t
	}
	session.EndedAt = parseNullableTime(endedAt)
	session.BaselineEstimate = time.Duration(baselineMillis) * time.Millisecond
	session.TimeSaved = time.Duration(timeSavedMillis) * time.Millisecond
	session.CanRollback = canRollback == 1

	if err := json.Unmarshal([]byte(processingLogJSON), &session.ProcessingLog); err != nil {
		return nil, fmt.Errorf("unmarshalling processing log: %w", err)
	}
	if err := json.Unmarshal([]byte(errorLogJSON), &session.ErrorLog); err != nil {
		return nil, fmt.Errorf("unmarshalling error log: %w", err)
	}
	if rollbackJSON.Valid && rollbackJSON.String != "" {
		var point domain.RollbackPoint
		if err := json.Unmarshal([]byte(rollbackJSON.String), &point); err != nil {
			return nil, fmt.Errorf("unmarshalling rollback point: %w", err)
		}
		session.Rollback = &point
	}

	return &session, nil
}
