package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
	"github.com/abdul-hamid-achik/flagrun/packages/logging"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// watchSet tracks the files whose changes trigger a re-run and the
// directories watched to observe them. Editors often replace files instead of
// writing in place, so directories are watched rather than files.
type watchSet struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]bool
}

func newWatchSet(w *fsnotify.Watcher) *watchSet {
	return &watchSet{watcher: w, files: make(map[string]bool), dirs: make(map[string]bool)}
}

// refresh watches the challenge tree file and every test program it names.
func (s *watchSet) refresh(configPath string) error {
	s.files = make(map[string]bool)
	s.add(configPath)

	tree, err := config.Load(configPath)
	if err != nil {
		return err
	}
	for unit := range tree.Units() {
		s.add(unit.Program)
	}
	return nil
}

func (s *watchSet) add(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	s.files[abs] = true

	dir := filepath.Dir(abs)
	if s.dirs[dir] {
		return
	}
	if err := s.watcher.Add(dir); err == nil {
		s.dirs[dir] = true
	}
}

func (s *watchSet) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return s.files[abs]
}

// watchAndRun runs once, then re-runs after every debounced change until ctx
// is cancelled.
func watchAndRun(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	log := logging.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	set := newWatchSet(watcher)
	rerun := func() {
		if _, err := runOnce(ctx, cmd, opts); err != nil {
			printError(err)
		}
		if err := set.refresh(opts.configPath); err != nil {
			log.Warn("watching config only", "error", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	}

	rerun()

	var (
		debounce <-chan time.Time
		changed  string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if set.matches(event) {
				changed = event.Name
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running tests...\n\n", changed)
			rerun()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}
