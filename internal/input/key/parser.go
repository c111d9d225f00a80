package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse reads a hotkey specification such as "Ctrl+B", "<C-S-BS>" or "Tab".
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	var parts []string
	switch {
	case len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">"):
		parts = strings.Split(spec[1:len(spec)-1], "-")
	case len(spec) > 1 && strings.Contains(spec, "+"):
		parts = strings.Split(spec, "+")
	default:
		parts = []string{spec}
	}

	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		m := ModifierFromName(p)
		if m == ModNone {
			return Event{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, p, spec)
		}
		mods = mods.With(m)
	}
	return parseKey(parts[len(parts)-1], mods, spec)
}

func parseKey(name string, mods Modifier, spec string) (Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, fmt.Errorf("%w: missing key in %q", ErrInvalidSpec, spec)
	}
	if k := FromName(name); k != KeyNone {
		return Special(k, mods), nil
	}
	switch strings.ToLower(name) {
	case "space":
		return RuneEvent(' ', mods), nil
	case "plus":
		return RuneEvent('+', mods), nil
	case "lt":
		return RuneEvent('<', mods), nil
	case "bar":
		return RuneEvent('|', mods), nil
	}
	if utf8.RuneCountInString(name) != 1 {
		return Event{}, fmt.Errorf("%w: unknown key %q in %q", ErrInvalidSpec, name, spec)
	}
	r, _ := utf8.DecodeRuneInString(name)
	return RuneEvent(r, mods), nil
}

// MustParse is Parse for specifications known to be valid.
func MustParse(spec string) Event {
	ev, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return ev
}

// Bindings maps command names to the key presses that trigger them.
type Bindings map[string]Event

// ParseBindings parses a command-to-spec table. Every invalid entry is
// reported in the joined error; valid entries are still returned.
func ParseBindings(specs map[string]string) (Bindings, error) {
	b := make(Bindings, len(specs))
	var errs []error
	for cmd, spec := range specs {
		ev, err := Parse(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("hotkey %s: %w", cmd, err))
			continue
		}
		b[cmd] = ev
	}
	return b, errors.Join(errs...)
}

// Lookup returns the command bound to ev.
func (b Bindings) Lookup(ev Event) (string, bool) {
	for cmd, bound := range b {
		if bound.Equals(ev) {
			return cmd, true
		}
	}
	return "", false
}
