package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

func TestSessionsCmd_Use(t *testing.T) {
	assert.Equal(t, "sessions [path]", sessionsCmd.Use)
}

func TestSessionsCmd_RequiresPath(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sessions"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSessionsCmd_EmptyHistory(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No sessions recorded for /docs/guide.pdf")
}

func TestSessionsCmd_ListsHistory(t *testing.T) {
	_, _, sessions, _, cleanup := setupTestServices()
	defer cleanup()

	first := terminalSession("/docs/guide.pdf", domain.ModeIncremental, domain.StatusCompleted)
	second := terminalSession("/docs/guide.pdf", domain.ModeFull, domain.StatusFailed)
	sessions.history["/docs/guide.pdf"] = []*domain.DeltaSession{second, first}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), first.ID)
	assert.Contains(t, buf.String(), second.ID)
	assert.Contains(t, buf.String(), "failed (full)")
	assert.Contains(t, buf.String(), "Total: 2 sessions")
}

func TestSessionsCmd_HonoursLimit(t *testing.T) {
	_, _, sessions, _, cleanup := setupTestServices()
	defer cleanup()

	first := terminalSession("/docs/guide.pdf", domain.ModeIncremental, domain.StatusCompleted)
	second := terminalSession("/docs/guide.pdf", domain.ModeIncremental, domain.StatusCompleted)
	sessions.history["/docs/guide.pdf"] = []*domain.DeltaSession{second, first}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "--limit", "1", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Total: 1 sessions")
}

func TestSessionsShowCmd_PrintsAuditTrail(t *testing.T) {
	_, _, sessions, _, cleanup := setupTestServices()
	defer cleanup()

	session := terminalSession("/docs/guide.pdf", domain.ModeIncremental, domain.StatusFailed)
	session.AppendLog("detected 3 changes")
	sessions.byID[session.ID] = session

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sessions", "show", session.ID})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "/docs/guide.pdf: failed")
	assert.Contains(t, buf.String(), "Processing log:")
	assert.Contains(t, buf.String(), "detected 3 changes")
	assert.Contains(t, buf.String(), "Error log:")
	assert.Contains(t, buf.String(), "pipeline unavailable")
}

func TestSessionsShowCmd_UnknownSession(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sessions", "show", "missing"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionsCmd_ServiceNotConfigured(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()
	sessionDirectory = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sessions", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session service not configured")
}
