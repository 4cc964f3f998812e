package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCmd_Use(t *testing.T) {
	assert.Equal(t, "stats", statsCmd.Use)
}

func TestStatsCmd_NoSessions(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Sessions:       0")
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestStatsCmd_PrintsAggregates(t *testing.T) {
	_, _, sessions, _, cleanup := setupTestServices()
	defer cleanup()

	sessions.stats.TotalSessions = 5
	sessions.stats.CountByStatus["completed"] = 4
	sessions.stats.CountByStatus["failed"] = 1
	sessions.stats.AverageProcessingMillis = 1500
	sessions.stats.AverageEfficiencyRatio = 0.6
	sessions.stats.TotalTimeSavedMillis = 90000

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Sessions:       5")
	assert.Contains(t, buf.String(), "completed:    4")
	assert.Contains(t, buf.String(), "failed:       1")
	assert.Contains(t, buf.String(), "Avg duration:   1.5s")
	assert.Contains(t, buf.String(), "Avg efficiency: 60%")
	assert.Contains(t, buf.String(), "Time saved:     1m30s")
}

func TestStatsCmd_ServiceNotConfigured(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()
	sessionDirectory = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"stats"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "session service not configured")
}
