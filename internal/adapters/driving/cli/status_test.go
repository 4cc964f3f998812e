package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/core/ports/driving"
)

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status [path]", statusCmd.Use)
}

func TestStatusCmd_NoTrackedDocuments(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No tracked documents")
}

func TestStatusCmd_UntrackedPath(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "/docs/unknown.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "/docs/unknown.pdf: not tracked")
}

func TestStatusCmd_ShowsDocumentDetail(t *testing.T) {
	_, _, sessions, documents, cleanup := setupTestServices()
	defer cleanup()

	state := domain.NewDocumentState("/docs/guide.pdf")
	state.ProcessingVersion = 4
	state.Pages[1] = domain.ContentFingerprint{ContentHash: "h1"}
	state.Pages[2] = domain.ContentFingerprint{ContentHash: "h2"}
	state.Sections["1.0"] = domain.ContentFingerprint{ContentHash: "h3"}
	documents.states["/docs/guide.pdf"] = state

	last := terminalSession("/docs/guide.pdf", domain.ModeIncremental, domain.StatusCompleted)
	sessions.history["/docs/guide.pdf"] = []*domain.DeltaSession{last}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Version:   4")
	assert.Contains(t, buf.String(), "Pages:     2")
	assert.Contains(t, buf.String(), "Sections:  1")
	assert.Contains(t, buf.String(), "Last run:  completed")
}

func TestStatusCmd_ShowsRunningRefresh(t *testing.T) {
	orch, _, _, documents, cleanup := setupTestServices()
	defer cleanup()

	documents.states["/docs/guide.pdf"] = domain.NewDocumentState("/docs/guide.pdf")
	orch.statusFn = func(_ context.Context, path string) (*driving.RefreshStatus, error) {
		return &driving.RefreshStatus{
			Path:             path,
			Running:          true,
			SessionID:        "session-1",
			ChangesProcessed: 2,
			TotalChanges:     5,
		}, nil
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "running (session session-1, 2/5 changes")
}

func TestStatusCmd_ListsAllTracked(t *testing.T) {
	_, _, _, documents, cleanup := setupTestServices()
	defer cleanup()

	documents.states["/docs/a.pdf"] = domain.NewDocumentState("/docs/a.pdf")
	documents.states["/docs/b.pdf"] = domain.NewDocumentState("/docs/b.pdf")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Tracked documents: 2")
	assert.Contains(t, buf.String(), "/docs/a.pdf")
	assert.Contains(t, buf.String(), "/docs/b.pdf")
}

func TestStatusCmd_ServiceNotConfigured(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()
	refreshOrchestrator = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status service not configured")
}
