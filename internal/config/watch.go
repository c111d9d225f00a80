package config

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/inkstorm/internal/effects"
)

// DefaultWatchDebounce is the quiet time Watch waits for after a change.
const DefaultWatchDebounce = 100 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	sched    effects.Scheduler
	logger   *log.Logger
}

// WithWatchDebounce sets the quiet time after a change.
func WithWatchDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithWatchScheduler sets the scheduler that runs debounced reloads.
func WithWatchScheduler(s effects.Scheduler) WatchOption {
	return func(o *watchOptions) { o.sched = s }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *log.Logger) WatchOption {
	return func(o *watchOptions) {
		if l != nil {
			o.logger = l.WithPrefix("config")
		}
	}
}

// Watch reloads the configuration at path whenever the file changes and
// passes the result to fn. It blocks until ctx is done. The directory is
// watched rather than the file, so editors that save by renaming a new
// file into place are seen too.
func Watch(ctx context.Context, path string, fn func(*Config, error), opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultWatchDebounce, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	reload := func() {
		c, err := Load(abs)
		if err != nil {
			o.logger.Warn("config reload failed", "path", abs, "err", err)
		} else {
			o.logger.Info("config reloaded", "path", abs)
		}
		fn(c, err)
	}
	d := effects.NewDebouncer(o.sched, o.debounce)
	defer d.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			o.logger.Debug("config changed", "path", abs, "op", ev.Op)
			if o.debounce == 0 {
				reload()
				continue
			}
			d.Trigger(reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			o.logger.Warn("config watch error", "err", err)
		}
	}
}
