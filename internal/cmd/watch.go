package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the session and re-render status on changes",
	Long: `Watch the session directory and re-render the status display
whenever the transcript or session state changes on disk. Useful when
agents are driving the session from other terminals. Press Ctrl-C to stop.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	tableDir := filepath.Join(tb.Dir(), "table")
	tb.Close()

	if _, err := os.Stat(tableDir); err != nil {
		return fmt.Errorf("no session to watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(tableDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", tableDir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if err := renderStatus(); err != nil {
		return err
	}
	fmt.Printf("\nWatching %s (Ctrl-C to stop)\n", tableDir)

	// Debounce: a single append can produce several write events.
	debounce := time.NewTimer(0)
	<-debounce.C
	dirty := false

	for {
		select {
		case <-sigCh:
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			dirty = true
			debounce.Reset(200 * time.Millisecond)

		case <-debounce.C:
			if !dirty {
				continue
			}
			dirty = false
			fmt.Print("\n---\n\n")
			if err := renderStatus(); err != nil {
				fmt.Fprintf(os.Stderr, "status: %v\n", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		}
	}
}

// renderStatus opens a fresh table so the display reflects the state on disk.
func renderStatus() error {
	tb, err := openTable()
	if err != nil {
		return err
	}
	defer tb.Close()

	status, err := tb.Status()
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}
