package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ferrous-labs/kbdelta/internal/core/domain"
	"github.com/ferrous-labs/kbdelta/internal/logger"
)

// watchDebounce coalesces bursts of write events for the same file
// (editors typically emit several per save) into one refresh job.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Watch documents and refresh on change",
	Long: `Watches the given documents for filesystem changes and submits a
background refresh job whenever one is written. Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if jobManager == nil {
		return errors.New("refresh service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchPaths(ctx, cmd, args)
}

func watchPaths(ctx context.Context, cmd *cobra.Command, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch each document's directory rather than the file itself so
	// rename-and-replace saves keep delivering events.
	targets := make(map[string]bool, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", path, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("cannot watch %s: %w", path, err)
		}
		targets[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
		}
	}

	cmd.Printf("Watching %d documents. Press Ctrl+C to stop.\n", len(targets))

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, timer := range timers {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			cmd.Println("\nStopping watch.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if !targets[path] {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
				logger.Debug("watch: %s on %s", event.Op, path)
				scheduleRefresh(ctx, cmd, &mu, timers, path)
			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				cmd.Printf("%s removed; still watching for it to reappear\n", path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// scheduleRefresh (re)arms the debounce timer for a path; when it
// fires, a background refresh job is submitted.
func scheduleRefresh(ctx context.Context, cmd *cobra.Command, mu *sync.Mutex, timers map[string]*time.Timer, path string) {
	mu.Lock()
	defer mu.Unlock()

	if timer, ok := timers[path]; ok {
		timer.Reset(watchDebounce)
		return
	}

	timers[path] = time.AfterFunc(watchDebounce, func() {
		mu.Lock()
		delete(timers, path)
		mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		jobID, err := jobManager.Submit(ctx, path, domain.ModeIncremental)
		if err != nil {
			cmd.PrintErrf("refresh %s: %v\n", path, err)
			return
		}
		cmd.Printf("%s changed; submitted job %s\n", path, jobID)
	})
}
