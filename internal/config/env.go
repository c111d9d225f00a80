package config

import (
	"strconv"
	"strings"
)

// EnvPrefix starts every environment variable the configuration reads.
const EnvPrefix = "INKSTORM_"

// envSetters maps variable names, without the prefix, to the setting they
// override.
var envSetters = map[string]func(c *Config, v string) error{
	"EDITOR_MODE":       func(c *Config, v string) error { c.Editor.Mode = v; return nil },
	"EDITOR_TAB_WIDTH":  intSetter("editor.tab_width", func(c *Config) *int { return &c.Editor.TabWidth }),
	"EDITOR_AUTO_PAIRS": func(c *Config, v string) error { c.Editor.AutoPairs = v; return nil },
	"DEBOUNCE_SIDE_EFFECT": func(c *Config, v string) error {
		return durationSet("debounce.side_effect", &c.Debounce.SideEffect, v)
	},
	"DEBOUNCE_HINT": func(c *Config, v string) error {
		return durationSet("debounce.hint", &c.Debounce.Hint, v)
	},
	"HINT_MAX_KEY":    intSetter("hint.max_key", func(c *Config) *int { return &c.Hint.MaxKey }),
	"HINT_LIMIT":      intSetter("hint.limit", func(c *Config) *int { return &c.Hint.Limit }),
	"HINT_EMOJI":      boolSetter("hint.emoji", func(c *Config) *bool { return &c.Hint.Emoji }),
	"HINT_SCRIPT":     func(c *Config, v string) error { c.Hint.Script = v; return nil },
	"CACHE_ENABLED":   boolSetter("cache.enabled", func(c *Config) *bool { return &c.Cache.Enabled }),
	"CACHE_PATH":      func(c *Config, v string) error { c.Cache.Path = v; return nil },
	"CACHE_ID":        func(c *Config, v string) error { c.Cache.ID = v; return nil },
	"COUNTER_ENABLED": boolSetter("counter.enabled", func(c *Config) *bool { return &c.Counter.Enabled }),
	"COUNTER_MAX":     intSetter("counter.max", func(c *Config) *int { return &c.Counter.Max }),
	"OUTLINE_ENABLED": boolSetter("outline.enabled", func(c *Config) *bool { return &c.Outline.Enabled }),
	"PREVIEW_STYLE":   func(c *Config, v string) error { c.Preview.Style = v; return nil },
	"PREVIEW_WIDTH":   intSetter("preview.width", func(c *Config) *int { return &c.Preview.Width }),
	"LOG_LEVEL":       func(c *Config, v string) error { c.Log.Level = v; return nil },
	"LOG_FILE":        func(c *Config, v string) error { c.Log.File = v; return nil },
}

// ApplyEnv overrides settings of c from environ, a list of KEY=value
// entries. Variables with the prefix but no matching setting are ignored.
// Empty values are treated as set.
func ApplyEnv(c *Config, environ []string) error {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		set, ok := envSetters[strings.TrimPrefix(name, EnvPrefix)]
		if !ok {
			continue
		}
		if err := set(c, value); err != nil {
			return err
		}
	}
	return nil
}

func intSetter(setting string, field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalid(setting, v)
		}
		*field(c) = n
		return nil
	}
}

func boolSetter(setting string, field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return invalid(setting, v)
		}
		*field(c) = b
		return nil
	}
}

func durationSet(setting string, d *Duration, v string) error {
	if err := d.UnmarshalText([]byte(v)); err != nil {
		return invalid(setting, v)
	}
	return nil
}
