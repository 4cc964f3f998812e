package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show refresh status for tracked documents",
	Long: `Shows the persisted state and current refresh activity for tracked
documents. With a path argument, shows detail for that document only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if refreshOrchestrator == nil || documentDirectory == nil {
		return errors.New("status service not configured")
	}

	ctx := context.Background()

	if len(args) > 0 {
		return printDocumentStatus(ctx, cmd, args[0])
	}

	paths, err := documentDirectory.TrackedPaths(ctx)
	if err != nil {
		return fmt.Errorf("listing tracked documents: %w", err)
	}
	if len(paths) == 0 {
		cmd.Println("No tracked documents.")
		return nil
	}

	cmd.Printf("Tracked documents: %d\n\n", len(paths))
	for _, path := range paths {
		if err := printDocumentStatus(ctx, cmd, path); err != nil {
			return err
		}
		cmd.Println()
	}
	return nil
}

func printDocumentStatus(ctx context.Context, cmd *cobra.Command, path string) error {
	state, err := documentDirectory.DocumentState(ctx, path)
	if err != nil {
		return fmt.Errorf("loading state for %s: %w", path, err)
	}
	if state == nil {
		cmd.Printf("%s: not tracked\n", path)
		return nil
	}

	cmd.Printf("%s\n", path)
	cmd.Printf("  Version:   %d\n", state.ProcessingVersion)
	cmd.Printf("  Pages:     %d\n", len(state.Pages))
	cmd.Printf("  Sections:  %d\n", len(state.Sections))
	cmd.Printf("  Captured:  %s\n", state.CapturedAt.Format("2006-01-02 15:04:05"))

	status, err := refreshOrchestrator.Status(ctx, path)
	if err != nil {
		return fmt.Errorf("refresh status for %s: %w", path, err)
	}
	if status.Running {
		cmd.Printf("  Refresh:   running (session %s, %d/%d changes, %d errors)\n",
			status.SessionID, status.ChangesProcessed, status.TotalChanges, status.ErrorCount)
	} else if sessionDirectory != nil {
		recent, err := sessionDirectory.History(ctx, path, 1)
		if err == nil && len(recent) > 0 {
			cmd.Printf("  Last run:  %s at %s\n",
				recent[0].Status, recent[0].EndedAt.Format("2006-01-02 15:04:05"))
			if recent[0].Status == domain.StatusFailed && recent[0].CanRollback {
				cmd.Printf("  Rollback:  available (session %s)\n", recent[0].ID)
			}
		}
	}
	return nil
}
