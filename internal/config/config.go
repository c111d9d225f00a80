// Package config provides configuration for inkstorm.
//
// Settings are layered: built-in defaults, then a TOML or YAML file, then
// environment variables prefixed with INKSTORM_. The result is validated
// before use, and Watch reloads it when the file changes.
//
// A configuration file looks like:
//
//	[editor]
//	mode = "ir"
//	tab_width = 2
//
//	[debounce]
//	side_effect = "500ms"
//	hint = "150ms"
//
//	[hint]
//	limit = 8
//	emoji_extra = { gopher = "https://example.com/gopher.png" }
//
//	[hotkeys]
//	bold = "Ctrl+B"
package config

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/reconcile"
)

// Config is the complete configuration.
type Config struct {
	Editor   EditorConfig      `toml:"editor" yaml:"editor"`
	Debounce DebounceConfig    `toml:"debounce" yaml:"debounce"`
	Hint     HintConfig        `toml:"hint" yaml:"hint"`
	Cache    CacheConfig       `toml:"cache" yaml:"cache"`
	Counter  CounterConfig     `toml:"counter" yaml:"counter"`
	Outline  OutlineConfig     `toml:"outline" yaml:"outline"`
	Preview  PreviewConfig     `toml:"preview" yaml:"preview"`
	Log      LogConfig         `toml:"log" yaml:"log"`
	Hotkeys  map[string]string `toml:"hotkeys" yaml:"hotkeys"`
}

// EditorConfig holds editing settings.
type EditorConfig struct {
	// Mode is the mode the editor opens in: wysiwyg, ir or sv.
	Mode string `toml:"mode" yaml:"mode"`
	// TabWidth is the number of spaces Tab inserts.
	TabWidth int `toml:"tab_width" yaml:"tab_width"`
	// AutoPairs lists closers the host inserts on its own; typing them
	// does not start a reconciliation.
	AutoPairs string `toml:"auto_pairs" yaml:"auto_pairs"`
}

// DebounceConfig holds the debounce intervals.
type DebounceConfig struct {
	// SideEffect is the quiet time before the settled document is saved
	// and reported.
	SideEffect Duration `toml:"side_effect" yaml:"side_effect"`
	// Hint delays candidate lookups.
	Hint Duration `toml:"hint" yaml:"hint"`
}

// HintConfig holds autocomplete settings.
type HintConfig struct {
	MaxKey int `toml:"max_key" yaml:"max_key"`
	Limit  int `toml:"limit" yaml:"limit"`
	// Emoji enables the ":" trigger.
	Emoji bool `toml:"emoji" yaml:"emoji"`
	// EmojiExtra adds or overrides emoji; values are glyphs or image URLs.
	EmojiExtra map[string]string `toml:"emoji_extra" yaml:"emoji_extra"`
	// Languages are offered after a code fence; empty means the built-in
	// list.
	Languages []string `toml:"languages" yaml:"languages"`
	// Script is a Lua file providing candidates for ScriptTrigger.
	Script        string `toml:"script" yaml:"script"`
	ScriptTrigger string `toml:"script_trigger" yaml:"script_trigger"`
}

// CacheConfig configures the on-disk document cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
	// ID names the document inside the cache file. Empty means the path
	// of the edited file.
	ID string `toml:"id" yaml:"id"`
}

// CounterConfig configures the length counter.
type CounterConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	Max     int  `toml:"max" yaml:"max"`
}

// OutlineConfig configures the outline.
type OutlineConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// PreviewConfig configures the split-view preview.
type PreviewConfig struct {
	// Style is a glamour style name or path.
	Style string `toml:"style" yaml:"style"`
	// Width wraps the preview; zero means no wrapping.
	Width int `toml:"width" yaml:"width"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	// File receives log output; empty means stderr.
	File string `toml:"file" yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Mode:      oracle.WYSIWYG.String(),
			TabWidth:  4,
			AutoPairs: reconcile.DefaultAutoPairs,
		},
		Debounce: DebounceConfig{
			SideEffect: Duration(800 * time.Millisecond),
			Hint:       Duration(200 * time.Millisecond),
		},
		Hint: HintConfig{
			MaxKey:        32,
			Limit:         8,
			Emoji:         true,
			ScriptTrigger: "@",
		},
		Cache:   CacheConfig{Enabled: false},
		Counter: CounterConfig{Enabled: true},
		Outline: OutlineConfig{Enabled: true},
		Preview: PreviewConfig{Style: "dark", Width: 80},
		Log:     LogConfig{Level: "info"},
	}
}

// Mode returns the configured editing mode. Call it on a validated Config.
func (c *Config) Mode() oracle.Mode {
	m, err := oracle.ParseMode(c.Editor.Mode)
	if err != nil {
		return oracle.WYSIWYG
	}
	return m
}

// Indent returns the text Tab inserts.
func (c *Config) Indent() string {
	return strings.Repeat(" ", max(c.Editor.TabWidth, 1))
}

// LogLevel returns the configured log level, or info when it is invalid.
func (c *Config) LogLevel() log.Level {
	l, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return l
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
