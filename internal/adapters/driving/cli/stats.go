package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate refresh statistics",
	Long: `Aggregates all persisted refresh sessions: counts by terminal
status, average processing time, and total time saved against full
reprocessing baselines.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if sessionDirectory == nil {
		return errors.New("session service not configured")
	}

	ctx := context.Background()

	stats, err := sessionDirectory.Statistics(ctx)
	if err != nil {
		return fmt.Errorf("aggregating sessions: %w", err)
	}

	cmd.Printf("Sessions:       %d\n", stats.TotalSessions)
	if stats.TotalSessions == 0 {
		return nil
	}

	statuses := make([]string, 0, len(stats.CountByStatus))
	for status := range stats.CountByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		cmd.Printf("  %-13s %d\n", status+":", stats.CountByStatus[status])
	}

	cmd.Printf("Avg duration:   %s\n",
		time.Duration(stats.AverageProcessingMillis*float64(time.Millisecond)).Round(time.Millisecond))
	cmd.Printf("Avg efficiency: %.0f%%\n", stats.AverageEfficiencyRatio*100)
	cmd.Printf("Time saved:     %s\n",
		(time.Duration(stats.TotalTimeSavedMillis) * time.Millisecond).Round(time.Millisecond))
	return nil
}
