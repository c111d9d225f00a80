package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/oracle"
)

// Load builds the configuration from defaults, the file at path and the
// environment. A missing file is not an error; an empty path skips the
// file layer.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := Decode(path, data, c); err != nil {
				return nil, err
			}
		}
	}
	if err := ApplyEnv(c, os.Environ()); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode merges the file contents data into c. The format follows the
// extension of path: .toml, .yaml or .yml.
func Decode(path string, data []byte, c *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			perr := &ParseError{Path: path, Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return perr
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return &ParseError{Path: path, Err: err}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// Validate reports every invalid setting, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	if _, err := oracle.ParseMode(c.Editor.Mode); err != nil {
		errs = append(errs, invalid("editor.mode", c.Editor.Mode))
	}
	if c.Editor.TabWidth < 1 || c.Editor.TabWidth > 16 {
		errs = append(errs, invalid("editor.tab_width", c.Editor.TabWidth))
	}
	if c.Debounce.SideEffect < 0 {
		errs = append(errs, invalid("debounce.side_effect", c.Debounce.SideEffect))
	}
	if c.Debounce.Hint < 0 {
		errs = append(errs, invalid("debounce.hint", c.Debounce.Hint))
	}
	if c.Hint.MaxKey < 1 {
		errs = append(errs, invalid("hint.max_key", c.Hint.MaxKey))
	}
	if c.Hint.Limit < 1 {
		errs = append(errs, invalid("hint.limit", c.Hint.Limit))
	}
	if c.Hint.Script != "" && c.Hint.ScriptTrigger == "" {
		errs = append(errs, invalid("hint.script_trigger", `""`))
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, invalid("cache.path", `""`))
	}
	if c.Counter.Max < 0 {
		errs = append(errs, invalid("counter.max", c.Counter.Max))
	}
	if c.Preview.Width < 0 {
		errs = append(errs, invalid("preview.width", c.Preview.Width))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, invalid("log.level", c.Log.Level))
	}
	for cmd, spec := range c.Hotkeys {
		if _, err := key.Parse(spec); err != nil {
			errs = append(errs, invalid("hotkeys."+cmd, spec))
		}
	}
	return errors.Join(errs...)
}
