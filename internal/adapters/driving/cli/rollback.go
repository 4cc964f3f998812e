package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [session-id]",
	Short: "Roll back a failed refresh session",
	Long: `Restores the document state captured before a failed session and
marks the session rolled back. Only failed sessions with a rollback
point can be rolled back.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	if refreshOrchestrator == nil {
		return errors.New("refresh service not configured")
	}

	sessionID := args[0]
	ctx := context.Background()

	session, err := refreshOrchestrator.Rollback(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	cmd.Printf("Session %s rolled back.\n", session.ID)
	cmd.Printf("  Document: %s\n", session.Path)
	cmd.Printf("  Restored state captured at %s\n",
		session.Rollback.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
