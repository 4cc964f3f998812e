package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

var (
	refreshFull       bool
	refreshValidate   bool
	refreshBackground bool
	refreshWait       bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [path...]",
	Short: "Refresh tracked documents",
	Long: `Detects changes in the given documents and reprocesses only the
affected content units. Without arguments, all tracked documents are
refreshed. Escalates to full reprocessing automatically when the
change volume makes incremental processing uneconomical.`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshFull, "full", false, "Force full reprocessing instead of incremental")
	refreshCmd.Flags().BoolVar(&refreshValidate, "validate", false, "Detect and plan only, apply nothing")
	refreshCmd.Flags().BoolVarP(&refreshBackground, "background", "b", false, "Run as a background job")
	refreshCmd.Flags().BoolVar(&refreshWait, "wait", false, "With --background, wait for jobs to finish")

	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if jobManager == nil || refreshOrchestrator == nil {
		return errors.New("refresh service not configured")
	}
	if refreshFull && refreshValidate {
		return errors.New("--full and --validate are mutually exclusive")
	}

	ctx := context.Background()
	mode := refreshMode()

	paths := args
	if len(paths) == 0 {
		if documentDirectory == nil {
			return errors.New("document directory not configured")
		}
		tracked, err := documentDirectory.TrackedPaths(ctx)
		if err != nil {
			return fmt.Errorf("listing tracked documents: %w", err)
		}
		if len(tracked) == 0 {
			cmd.Println("No tracked documents. Run 'kbdelta refresh <path>' to start tracking one.")
			return nil
		}
		paths = tracked
	}

	if refreshBackground {
		return runBackgroundRefresh(ctx, cmd, paths, mode)
	}

	var failures int
	for _, path := range paths {
		session, err := jobManager.Refresh(ctx, path, mode)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", path, err)
		}
		printSessionSummary(cmd, session)
		if session.Status == domain.StatusFailed {
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(paths))
	}
	return nil
}

func runBackgroundRefresh(ctx context.Context, cmd *cobra.Command, paths []string, mode domain.ProcessingMode) error {
	jobIDs := make([]string, 0, len(paths))
	for _, path := range paths {
		jobID, err := jobManager.Submit(ctx, path, mode)
		if err != nil {
			return fmt.Errorf("submit %s: %w", path, err)
		}
		cmd.Printf("Submitted job %s for %s\n", jobID, path)
		jobIDs = append(jobIDs, jobID)
	}

	if !refreshWait {
		return nil
	}

	for _, jobID := range jobIDs {
		session, err := jobManager.Wait(ctx, jobID)
		if err != nil {
			return fmt.Errorf("job %s: %w", jobID, err)
		}
		printSessionSummary(cmd, session)
	}
	return nil
}

func refreshMode() domain.ProcessingMode {
	switch {
	case refreshFull:
		return domain.ModeFull
	case refreshValidate:
		return domain.ModeValidation
	default:
		return domain.ModeIncremental
	}
}

// printSessionSummary renders one terminal session in the shared
// format used by refresh, rollback, and sessions show.
func printSessionSummary(cmd *cobra.Command, session *domain.DeltaSession) {
	cmd.Printf("%s: %s\n", session.Path, session.Status)
	cmd.Printf("  Session:  %s\n", session.ID)
	cmd.Printf("  Mode:     %s\n", session.Mode)
	cmd.Printf("  Changes:  %d processed, %d failed of %d\n",
		session.ProcessedChanges, session.FailedChanges, session.TotalChanges)
	cmd.Printf("  Elapsed:  %s\n", session.Elapsed().Round(time.Millisecond))

	if session.BaselineEstimate > 0 {
		cmd.Printf("  Saved:    %s (%.0f%% of baseline)\n",
			session.TimeSaved.Round(time.Millisecond), session.EfficiencyRatio*100)
	}
	if session.Status == domain.StatusFailed && len(session.ErrorLog) > 0 {
		cmd.Printf("  Error:    %s\n", session.ErrorLog[len(session.ErrorLog)-1])
		if session.CanRollback {
			cmd.Printf("  Run 'kbdelta rollback %s' to restore the previous state.\n", session.ID)
		}
	}
}
