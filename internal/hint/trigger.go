package hint

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Trigger opens a session when its prefix is typed.
type Trigger struct {
	// Prefix is the trigger text, such as ":" or "```".
	Prefix string
	// LineStart restricts the trigger to the start of a line, after at most
	// three spaces.
	LineStart bool
	// Source provides the candidates.
	Source Source
}

// Match is a detected trigger.
type Match struct {
	Trigger *Trigger
	// Key is the text typed after the prefix.
	Key string
	// Start is the byte offset of the prefix in the line.
	Start int
}

// Span returns the prefix and key as typed.
func (m Match) Span() string { return m.Trigger.Prefix + m.Key }

// detect finds the right-most trigger in before, the line text up to the
// caret. The prefix must follow whitespace or the line start, and the key
// after it must hold no whitespace and be shorter than maxKey.
func detect(triggers []*Trigger, before string, maxKey int) (Match, bool) {
	var best Match
	found := false
	for _, t := range triggers {
		if t.Prefix == "" {
			continue
		}
		i := strings.LastIndex(before, t.Prefix)
		if i < 0 || (found && i <= best.Start) {
			continue
		}
		if !boundary(before, i, t.LineStart) {
			continue
		}
		key := before[i+len(t.Prefix):]
		if len(key) >= maxKey || strings.ContainsFunc(key, unicode.IsSpace) {
			continue
		}
		best = Match{Trigger: t, Key: key, Start: i}
		found = true
	}
	return best, found
}

func boundary(line string, i int, lineStart bool) bool {
	if lineStart {
		return i <= 3 && strings.Trim(line[:i], " ") == ""
	}
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(line[:i])
	return unicode.IsSpace(r)
}
