// Package cli implements the inkstorm command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dshills/inkstorm/internal/config"
)

// Version information reported by --version.
type Version struct {
	Version string
	Commit  string
	Date    string
}

// globals holds the persistent flags.
type globals struct {
	configPath string
	logLevel   string
	logFile    string
}

// NewRootCommand builds the inkstorm command tree.
func NewRootCommand(v Version) *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "inkstorm",
		Short:         "inkstorm - markdown editor with wysiwyg, instant and source modes",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", v.Version, v.Commit, v.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to a TOML or YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(
		newRenderCommand(g),
		newHintCommand(g),
		newEditCommand(g, openScreen),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(v Version) int {
	if err := NewRootCommand(v).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// load reads the configuration and applies flag overrides.
func (g *globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		if _, err := log.ParseLevel(g.logLevel); err != nil {
			return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", g.logLevel)
		}
		cfg.Log.Level = g.logLevel
	}
	if g.logFile != "" {
		cfg.Log.File = g.logFile
	}
	return cfg, nil
}

// newLogger opens the configured log destination. fallback is used when no
// file is configured. The returned close function is never nil.
func newLogger(cfg *config.Config, fallback io.Writer) (*log.Logger, func() error, error) {
	w, closeFn := fallback, func() error { return nil }
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, f.Close
	}
	l := log.NewWithOptions(w, log.Options{
		Level:           cfg.LogLevel(),
		ReportTimestamp: true,
		Prefix:          "inkstorm",
	})
	return l, closeFn, nil
}
