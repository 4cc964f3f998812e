package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions [path]",
	Short: "List refresh sessions for a document",
	Long: `Lists persisted refresh sessions for a document, most recent first.
Use 'sessions show' to inspect one session's audit trail.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessions,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show one session's audit trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 10, "Maximum number of sessions to list")

	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	if sessionDirectory == nil {
		return errors.New("session service not configured")
	}

	path := args[0]
	ctx := context.Background()

	sessions, err := sessionDirectory.History(ctx, path, sessionsLimit)
	if err != nil {
		return fmt.Errorf("loading history for %s: %w", path, err)
	}
	if len(sessions) == 0 {
		cmd.Printf("No sessions recorded for %s\n", path)
		return nil
	}

	cmd.Printf("Sessions for %s:\n\n", path)
	for _, session := range sessions {
		cmd.Printf("  %s\n", session.ID)
		cmd.Printf("    Status:   %s (%s)\n", session.Status, session.Mode)
		cmd.Printf("    Started:  %s\n", session.StartedAt.Format("2006-01-02 15:04:05"))
		cmd.Printf("    Changes:  %d processed, %d failed of %d\n",
			session.ProcessedChanges, session.FailedChanges, session.TotalChanges)
		cmd.Println()
	}

	cmd.Printf("Total: %d sessions\n", len(sessions))
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	if sessionDirectory == nil {
		return errors.New("session service not configured")
	}

	sessionID := args[0]
	ctx := context.Background()

	session, err := sessionDirectory.Session(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	printSessionSummary(cmd, session)

	if len(session.ProcessingLog) > 0 {
		cmd.Println("\n  Processing log:")
		for _, entry := range session.ProcessingLog {
			cmd.Printf("    %s\n", entry)
		}
	}
	if len(session.ErrorLog) > 0 {
		cmd.Println("\n  Error log:")
		for _, entry := range session.ErrorLog {
			cmd.Printf("    %s\n", entry)
		}
	}
	if session.Rollback != nil {
		cmd.Printf("\n  Rollback point captured at %s\n",
			session.Rollback.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
