package hint

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// Candidate is one entry of the hint list.
type Candidate struct {
	// Display is what the list shows.
	Display string
	// Value is inserted in place of the trigger span.
	Value string
	// Matched holds byte offsets into Display to highlight.
	Matched []int
}

// Source provides candidates for a key. Implementations may block; the
// session drops results that arrive after the key has changed.
type Source interface {
	Candidates(ctx context.Context, key string) ([]Candidate, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, key string) ([]Candidate, error)

// Candidates implements Source.
func (f SourceFunc) Candidates(ctx context.Context, key string) ([]Candidate, error) {
	return f(ctx, key)
}

var folder = cases.Fold()

// hasPrefixFold reports whether s starts with prefix ignoring case.
func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(folder.String(s), folder.String(prefix))
}

// prefixMatch returns the byte offsets of the first n runes of s.
func prefixMatch(s string, n int) []int {
	var out []int
	for i := range s {
		if len(out) == n {
			break
		}
		out = append(out, i)
	}
	return out
}
