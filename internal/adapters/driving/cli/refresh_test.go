package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

func TestRefreshCmd_Use(t *testing.T) {
	assert.Equal(t, "refresh [path...]", refreshCmd.Use)
}

func TestRefreshCmd_HasFlags(t *testing.T) {
	assert.NotNil(t, refreshCmd.Flags().Lookup("full"))
	assert.NotNil(t, refreshCmd.Flags().Lookup("validate"))

	background := refreshCmd.Flags().Lookup("background")
	require.NotNil(t, background)
	assert.Equal(t, "b", background.Shorthand)
}

func TestRefreshCmd_ServiceNotConfigured(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()
	jobManager = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"refresh", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refresh service not configured")
}

func TestRefreshCmd_FullAndValidateExclusive(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"refresh", "--full", "--validate", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestRefreshCmd_RefreshesPath(t *testing.T) {
	orch, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	var gotMode domain.ProcessingMode
	orch.refreshFn = func(_ context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error) {
		gotMode = mode
		return terminalSession(path, mode, domain.StatusCompleted), nil
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"refresh", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, domain.ModeIncremental, gotMode)
	assert.Contains(t, buf.String(), "/docs/guide.pdf: completed")
	assert.Contains(t, buf.String(), "3 processed")
}

func TestRefreshCmd_FullFlagSelectsFullMode(t *testing.T) {
	orch, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	var gotMode domain.ProcessingMode
	orch.refreshFn = func(_ context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error) {
		gotMode = mode
		return terminalSession(path, mode, domain.StatusCompleted), nil
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"refresh", "--full", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, domain.ModeFull, gotMode)
}

func TestRefreshCmd_NoArgsRefreshesTracked(t *testing.T) {
	_, _, _, documents, cleanup := setupTestServices()
	defer cleanup()

	documents.states["/docs/a.pdf"] = domain.NewDocumentState("/docs/a.pdf")
	documents.states["/docs/b.pdf"] = domain.NewDocumentState("/docs/b.pdf")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"refresh"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "/docs/a.pdf: completed")
	assert.Contains(t, buf.String(), "/docs/b.pdf: completed")
}

func TestRefreshCmd_NoTrackedDocuments(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"refresh"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No tracked documents")
}

func TestRefreshCmd_FailedSessionReturnsError(t *testing.T) {
	orch, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	orch.refreshFn = func(_ context.Context, path string, mode domain.ProcessingMode) (*domain.DeltaSession, error) {
		return terminalSession(path, mode, domain.StatusFailed), nil
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"refresh", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 documents failed")
	assert.Contains(t, buf.String(), "pipeline unavailable")
}

func TestRefreshCmd_RefreshErrorPropagates(t *testing.T) {
	orch, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	orch.refreshFn = func(context.Context, string, domain.ProcessingMode) (*domain.DeltaSession, error) {
		return nil, errors.New("store unavailable")
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"refresh", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestRefreshCmd_BackgroundSubmitsJob(t *testing.T) {
	_, jobs, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"refresh", "--background", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Len(t, jobs.submitted, 1)
	assert.Contains(t, buf.String(), "Submitted job job-1 for /docs/guide.pdf")
	// Without --wait, no session summary is printed.
	assert.NotContains(t, buf.String(), "completed")
}

func TestRefreshCmd_BackgroundWaitPrintsSummary(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"refresh", "--background", "--wait", "/docs/guide.pdf"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Submitted job job-1")
	assert.Contains(t, buf.String(), "/docs/guide.pdf: completed")
}
