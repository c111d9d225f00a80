package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/effects"
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/keydown"
	"github.com/dshills/inkstorm/internal/mode"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/outline"
	"github.com/dshills/inkstorm/internal/store"
	"github.com/dshills/inkstorm/internal/tui"
)

// screenFunc returns an initialized screen.
type screenFunc func() (tcell.Screen, error)

func openScreen() (tcell.Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create terminal: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	return s, nil
}

type editOptions struct {
	modeName   string
	restore    bool
	previewOut string
}

func newEditCommand(g *globals, screen screenFunc) *cobra.Command {
	var o editOptions
	cmd := &cobra.Command{
		Use:   "edit FILE",
		Short: "Edit a markdown file in the terminal",
		Long: "Edit FILE in the terminal. F2 cycles between wysiwyg, instant and\n" +
			"source mode, Ctrl+Q saves and quits. The file is also saved each time\n" +
			"typing settles.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), g, screen, o, args[0], cmd.Flags().Changed("mode"))
		},
	}
	cmd.Flags().StringVarP(&o.modeName, "mode", "m", "", "mode to open in: wysiwyg, ir or sv")
	cmd.Flags().BoolVar(&o.restore, "restore", false, "start from the cached copy of FILE when one exists")
	cmd.Flags().StringVar(&o.previewOut, "preview-out", "", "write the rendered source view preview to this file")
	return cmd
}

func runEdit(ctx context.Context, g *globals, screen screenFunc, o editOptions, path string, modeSet bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}
	// The terminal owns stderr while editing.
	logger, closeLog, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	m := cfg.Mode()
	if modeSet {
		if m, err = oracle.ParseMode(o.modeName); err != nil {
			return err
		}
	}

	text, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc := string(text)

	var sinks []effects.Sink
	sinks = append(sinks, effects.SinkFunc(func(text string) error {
		return save(path, text)
	}))
	if cfg.Cache.Enabled {
		cache, err := openCache(cfg, path)
		if err != nil {
			return err
		}
		if o.restore {
			if e, ok, err := cache.Load(); err != nil {
				logger.Warn("cache load failed", "path", cache.Path(), "err", err)
			} else if ok {
				logger.Info("restored from cache", "updated", e.Updated)
				doc = e.Value
			}
		}
		sinks = append(sinks, cache)
	}

	ts, closeHints, err := triggers(cfg)
	if err != nil {
		return err
	}
	defer closeHints()

	bindings := keydown.DefaultBindings()
	overrides, err := key.ParseBindings(cfg.Hotkeys)
	if err != nil {
		return err
	}
	for cmd, ev := range overrides {
		bindings[cmd] = ev
	}

	s, err := screen()
	if err != nil {
		return err
	}
	defer s.Fini()
	s.EnableMouse()
	s.EnablePaste()
	s.EnableFocus()

	var host *tui.Host
	refresh := func() {
		if host != nil {
			host.Refresh()
		}
	}

	opts := []mode.Option{
		mode.WithMode(m),
		mode.WithOracle(oracle.New(oracle.WithLogger(logger))),
		mode.WithDebounce(cfg.Debounce.SideEffect.Std()),
		mode.WithIndent(cfg.Indent()),
		mode.WithAutoPairs(cfg.Editor.AutoPairs),
		mode.WithBindings(bindings),
		mode.WithHints(sessionOptions(cfg, ts)...),
		mode.WithSinks(sinks...),
		mode.WithLogger(logger),
		mode.WithHooks(mode.Hooks{
			Hint: refresh,
			Esc:  refresh,
		}),
	}
	if cfg.Counter.Enabled {
		opts = append(opts, mode.WithCounter(cfg.Counter.Max, func(n int, over bool) {
			if host == nil {
				return
			}
			status := fmt.Sprintf("%d chars", n)
			if over {
				status += fmt.Sprintf(" (over %d)", cfg.Counter.Max)
			}
			host.SetStatus(status)
		}))
	}
	if cfg.Outline.Enabled {
		opts = append(opts, mode.WithOutline(outline.New(func(markup string) {
			logger.Debug("outline changed", "bytes", len(markup))
		})))
	}
	if o.previewOut != "" {
		p, err := mode.NewPreview(cfg.Preview.Style, cfg.Preview.Width, func(out string) {
			if err := os.WriteFile(o.previewOut, []byte(out), 0o644); err != nil {
				logger.Warn("write preview failed", "path", o.previewOut, "err", err)
			}
		})
		if err != nil {
			return err
		}
		opts = append(opts, mode.WithPreview(p))
	}

	ctl := mode.New(opts...)
	defer ctl.Close()
	host = tui.New(s, ctl, tui.WithLogger(logger))
	if err := ctl.SetValue(doc); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if g.configPath != "" {
		go watchConfig(ctx, g.configPath, logger, host)
	}

	logger.Info("editing", "path", path, "mode", m)
	if err := host.Run(ctx); err != nil {
		return err
	}
	ctl.Flush()
	return save(path, ctl.Value())
}

// save replaces path with text by renaming a temporary file over it. An
// existing file keeps its permissions.
func save(path, text string) error {
	perm := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func openCache(cfg *config.Config, path string) (*store.FileCache, error) {
	id := cfg.Cache.ID
	if id == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("cache id: %w", err)
		}
		id = abs
	}
	return store.NewFileCache(cfg.Cache.Path, id)
}

// watchConfig applies log level changes from the configuration file while
// editing. Other settings take effect on the next start.
func watchConfig(ctx context.Context, path string, logger *log.Logger, host *tui.Host) {
	err := config.Watch(ctx, path, func(c *config.Config, err error) {
		if err != nil {
			host.SetStatus("config error")
			return
		}
		logger.SetLevel(c.LogLevel())
		host.SetStatus("config reloaded")
	}, config.WithWatchLogger(logger))
	if err != nil {
		logger.Warn("config watch stopped", "err", err)
	}
}
