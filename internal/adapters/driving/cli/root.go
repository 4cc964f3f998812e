// Package cli implements the kbdelta command tree. Commands talk to
// the core exclusively through the driving ports; the composition root
// wires concrete services in via SetServices before Execute.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ferrous-labs/kbdelta/internal/core/ports/driving"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// version is stamped by the build via Execute.
var version = "dev"

// Services injected by the composition root. Commands check for nil
// and fail with a configuration error rather than panicking.
var (
	refreshOrchestrator driving.RefreshOrchestrator
	jobManager          driving.JobManager
	sessionDirectory    driving.SessionDirectory
	documentDirectory   driving.DocumentDirectory
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "kbdelta",
	Short: "Incremental refresh for derived knowledge bases",
	Long: `kbdelta keeps a derived knowledge base in sync with its source
documents. It fingerprints document content at page and section level,
detects what actually changed, and reprocesses only the affected
content units instead of rebuilding everything from scratch.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging to stderr")
}

// SetServices wires core services into the command tree.
func SetServices(
	orch driving.RefreshOrchestrator,
	jobs driving.JobManager,
	sessions driving.SessionDirectory,
	documents driving.DocumentDirectory,
) {
	refreshOrchestrator = orch
	jobManager = jobs
	sessionDirectory = sessions
	documentDirectory = documents
}

// Execute runs the root command. A non-empty v overrides the version
// string shown by the version command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
