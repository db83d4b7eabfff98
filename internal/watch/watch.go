// Package watch re-runs a job whenever its input files change.
//
// Change notifications come from fsnotify. Bursts of events are coalesced
// with a debounce timer, and a file that is rotated away (renamed or
// removed, then recreated) can be followed to its replacement.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// ErrRotated is returned when a watched file disappears and FollowRotate is off.
var ErrRotated = errors.New("watched file rotated")

// Options configures the watcher behavior.
type Options struct {
	Paths         []string                        // Files whose changes trigger a run
	Debounce      time.Duration                   // Quiet period before re-running
	FollowRotate  bool                            // Wait for rotated files to reappear
	RotateTimeout time.Duration                   // How long to wait for a rotated file
	Run           func(ctx context.Context) error // Job executed on start and on change
	Logger        *slog.Logger
}

// Watcher runs a job and re-runs it when its inputs change.
type Watcher struct {
	opts    Options
	tracked map[string]bool
	watcher *fsnotify.Watcher
	runs    int
}

// New creates a new Watcher with the given options.
func New(opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.RotateTimeout <= 0 {
		opts.RotateTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tracked := make(map[string]bool, len(opts.Paths))
	for _, p := range opts.Paths {
		tracked[filepath.Clean(p)] = true
	}
	return &Watcher{opts: opts, tracked: tracked}
}

// Runs reports how many times the job has been started.
func (w *Watcher) Runs() int {
	return w.runs
}

// Run executes the job once, then again after every settled change. It
// blocks until ctx is cancelled or the watcher fails. A failing first run is
// returned; later failures are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.tracked) == 0 {
		return errors.New("no files to watch")
	}
	if w.opts.Run == nil {
		return errors.New("no job to run")
	}

	if err := w.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	defer w.watcher.Close()

	w.runs++
	if err := w.opts.Run(ctx); err != nil {
		return err
	}

	return w.watch(ctx)
}

// setupWatcher initializes the fsnotify watcher.
func (w *Watcher) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for path := range w.tracked {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	w.watcher = watcher
	return nil
}

// watch waits for changes and triggers debounced runs.
func (w *Watcher) watch(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.opts.Debounce)
		} else {
			timer.Stop()
			timer.Reset(w.opts.Debounce)
		}
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			name := filepath.Clean(event.Name)
			if !w.tracked[name] {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.opts.Logger.Debug("input changed", "file", name, "op", event.Op.String())
				schedule()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if err := w.handleRotation(ctx, name); err != nil {
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
				schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)

		case <-fire:
			fire = nil
			w.runs++
			w.opts.Logger.Info("re-running", "run", w.runs)
			if err := w.opts.Run(ctx); err != nil {
				w.opts.Logger.Error("run failed", "run", w.runs, "error", err)
			}
		}
	}
}

// handleRotation waits for a renamed or removed file to reappear and
// watches the replacement.
func (w *Watcher) handleRotation(ctx context.Context, path string) error {
	if !w.opts.FollowRotate {
		return fmt.Errorf("%s: %w", path, ErrRotated)
	}
	_ = w.watcher.Remove(path)

	timeout := time.After(w.opts.RotateTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for %s to reappear", path)
		case <-ticker.C:
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}
			w.opts.Logger.Info("following rotated file", "file", path)
			return nil
		}
	}
}
