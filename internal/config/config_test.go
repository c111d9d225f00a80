package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/oracle"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Mode() != oracle.WYSIWYG || c.Indent() != "    " || c.LogLevel() != log.InfoLevel {
		t.Errorf("defaults: mode %s indent %q level %s", c.Mode(), c.Indent(), c.LogLevel())
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "inkstorm.toml", `
[editor]
mode = "ir"
tab_width = 2

[debounce]
side_effect = "250ms"

[hint]
emoji_extra = { gopher = "https://example.com/g.png" }

[hotkeys]
bold = "Ctrl+K"
`},
		{"yaml", "inkstorm.yaml", `
editor:
  mode: ir
  tab_width: 2
debounce:
  side_effect: 250ms
hint:
  emoji_extra:
    gopher: https://example.com/g.png
hotkeys:
  bold: Ctrl+K
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			if err := Decode(tt.file, []byte(tt.content), c); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if c.Mode() != oracle.IR || c.Editor.TabWidth != 2 {
				t.Errorf("editor = %+v", c.Editor)
			}
			if c.Debounce.SideEffect.Std() != 250*time.Millisecond {
				t.Errorf("side effect = %s", c.Debounce.SideEffect)
			}
			if c.Debounce.Hint.Std() != 200*time.Millisecond {
				t.Errorf("unset hint delay lost its default: %s", c.Debounce.Hint)
			}
			if c.Hint.EmojiExtra["gopher"] == "" || c.Hotkeys["bold"] != "Ctrl+K" {
				t.Errorf("hint %+v hotkeys %v", c.Hint, c.Hotkeys)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	c := Default()
	err := Decode("bad.toml", []byte("[editor\nmode = 1"), c)
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Path != "bad.toml" || perr.Line == 0 {
		t.Errorf("err = %v", err)
	}
	if err := Decode("x.ini", nil, c); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := []string{
		"INKSTORM_EDITOR_MODE=sv",
		"INKSTORM_DEBOUNCE_HINT=50ms",
		"INKSTORM_COUNTER_MAX=100",
		"INKSTORM_CACHE_ENABLED=true",
		"INKSTORM_UNKNOWN=1",
		"HOME=/root",
	}
	if err := ApplyEnv(c, env); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != oracle.SV || c.Debounce.Hint.Std() != 50*time.Millisecond || c.Counter.Max != 100 || !c.Cache.Enabled {
		t.Errorf("config = %+v", c)
	}

	err := ApplyEnv(c, []string{"INKSTORM_HINT_LIMIT=many"})
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "hint.limit") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		setting string
	}{
		{"mode", func(c *Config) { c.Editor.Mode = "rich" }, "editor.mode"},
		{"tab width", func(c *Config) { c.Editor.TabWidth = 0 }, "editor.tab_width"},
		{"debounce", func(c *Config) { c.Debounce.SideEffect = -1 }, "debounce.side_effect"},
		{"limit", func(c *Config) { c.Hint.Limit = 0 }, "hint.limit"},
		{"cache path", func(c *Config) { c.Cache.Enabled = true }, "cache.path"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"hotkey", func(c *Config) { c.Hotkeys = map[string]string{"bold": "Hyper+Nope"} }, "hotkeys.bold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), tt.setting) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("env over file", func(t *testing.T) {
		path := writeFile(t, "inkstorm.toml", "[log]\nlevel = \"debug\"\n[editor]\nmode = \"sv\"\n")
		t.Setenv("INKSTORM_EDITOR_MODE", "ir")
		c, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if c.LogLevel() != log.DebugLevel || c.Mode() != oracle.IR {
			t.Errorf("config = %+v", c)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err != nil {
			t.Errorf("missing file: %v", err)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		bad := writeFile(t, "bad.toml", "[editor]\nmode = \"rich\"\n")
		if _, err := Load(bad); !errors.Is(err, ErrInvalid) {
			t.Errorf("invalid file: %v", err)
		}
	})
}

func TestWatch(t *testing.T) {
	path := writeFile(t, "inkstorm.toml", "[editor]\nmode = \"ir\"\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config, err error) {
			if err == nil {
				got <- c
			}
		}, WithWatchDebounce(0))
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.Mode() != oracle.SV {
				continue
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch: %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("[editor]\nmode = \"sv\"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload seen")
		}
	}
}
