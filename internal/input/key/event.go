package key

import (
	"strings"
	"unicode"
)

// Event is a single key press.
type Event struct {
	Key       Key
	Rune      rune
	Modifiers Modifier
}

// RuneEvent returns a character event.
func RuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// Special returns an event for a non-character key.
func Special(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods}
}

// IsRune reports whether e carries a character.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsChar reports whether e types a printable character. Shift does not
// count as a modifier for characters.
func (e Event) IsChar() bool {
	return e.IsRune() && unicode.IsPrint(e.Rune) && !e.IsModified()
}

// IsModified reports whether a modifier other than Shift-on-a-character is
// held.
func (e Event) IsModified() bool {
	if e.IsRune() {
		return e.Modifiers.Has(ModCtrl | ModAlt | ModMeta)
	}
	return e.Modifiers != ModNone
}

// Is reports whether e is k with exactly mods held.
func (e Event) Is(k Key, mods Modifier) bool {
	return e.Key == k && e.Modifiers == mods
}

// Equals reports whether two events describe the same key press. Rune
// comparison ignores case when Ctrl is held.
func (e Event) Equals(o Event) bool {
	if e.Key != o.Key || e.Modifiers != o.Modifiers {
		return false
	}
	if e.Key != KeyRune {
		return true
	}
	if e.Modifiers.Has(ModCtrl) {
		return unicode.ToLower(e.Rune) == unicode.ToLower(o.Rune)
	}
	return e.Rune == o.Rune
}

// String returns the event in the joined form accepted by Parse.
func (e Event) String() string {
	var b strings.Builder
	if mods := e.Modifiers.String(); mods != "" {
		b.WriteString(mods)
		b.WriteByte('+')
	}
	switch {
	case e.Key != KeyRune:
		b.WriteString(e.Key.String())
	case e.Rune == ' ':
		b.WriteString("Space")
	case e.Rune == '+':
		b.WriteString("Plus")
	default:
		b.WriteRune(e.Rune)
	}
	return b.String()
}
