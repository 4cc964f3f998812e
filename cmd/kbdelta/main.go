// Command kbdelta is the entry point for the delta-refresh CLI. It
// wires the sqlite metadata store, the TOML config store, the
// in-memory pipeline adapter, and the core services behind the
// command tree, then hands control to cobra.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ferrous-labs/kbdelta/internal/adapters/driven/config/file"
	pipelinemem "github.com/ferrous-labs/kbdelta/internal/adapters/driven/pipeline/memory"
	"github.com/ferrous-labs/kbdelta/internal/adapters/driven/storage/sqlite"
	"github.com/ferrous-labs/kbdelta/internal/adapters/driving/cli"
	"github.com/ferrous-labs/kbdelta/internal/core/services"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kbdelta: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	deltaConfig := file.DeltaConfigFromStore(configStore)

	detector, err := services.NewChangeDetector(deltaConfig)
	if err != nil {
		return fmt.Errorf("configuring detector: %w", err)
	}

	tracker := services.NewTracker(store.DocumentStateStore(), store.SessionStore())
	pipeline := pipelinemem.NewPipeline(0)

	orchestrator, err := services.NewDeltaOrchestrator(deltaConfig, detector, tracker, pipeline)
	if err != nil {
		return fmt.Errorf("configuring orchestrator: %w", err)
	}

	jobs := services.NewJobManager(orchestrator, deltaConfig.LockTimeout)

	schedulerConfig := file.SchedulerConfigFromStore(configStore)
	if schedulerConfig.Enabled {
		scheduler := services.NewScheduler(schedulerConfig, store.SchedulerStore(), jobs, tracker)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("stopping scheduler: %v", err)
			}
		}()
	}

	cli.SetServices(orchestrator, jobs, tracker, tracker)
	return cli.Execute(version)
}
