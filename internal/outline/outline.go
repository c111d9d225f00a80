// Package outline derives a table of contents from the headings of a
// surface. It only reads the tree; the markup it produces is for the host
// to show beside the document.
package outline

import (
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dshills/inkstorm/internal/surface"
)

// Heading is one outline entry.
type Heading struct {
	Level int
	Text  string
	// ID is the anchor slug, unique within the document.
	ID string
}

var lower = cases.Lower(language.Und)

// Headings returns the headings under root in document order.
func Headings(root *surface.Node) []Heading {
	var out []Heading
	seen := make(map[string]int)
	for _, h := range surface.FindAll(root, surface.OfKind(surface.KindHeading)) {
		text := headingText(h)
		id := slug(text)
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id += "-" + strconv.Itoa(n)
		} else {
			seen[id] = 1
		}
		out = append(out, Heading{Level: h.Attrs.Level, Text: text, ID: id})
	}
	return out
}

// headingText returns the visible text of h, without instant-rendering
// markers.
func headingText(h *surface.Node) string {
	var b strings.Builder
	for _, l := range surface.Leaves(h) {
		if l.Kind != surface.KindMarker {
			b.WriteString(l.Text)
		}
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(b.String()), "#"))
}

// slug lowercases text, keeps letters, digits, '-' and '_', and turns
// spaces into '-'.
func slug(text string) string {
	var b strings.Builder
	for _, r := range lower.String(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Render returns hs as a nested markdown list of anchor links.
func Render(hs []Heading) string {
	if len(hs) == 0 {
		return ""
	}
	top := hs[0].Level
	for _, h := range hs {
		top = min(top, h.Level)
	}
	var b strings.Builder
	for _, h := range hs {
		b.WriteString(strings.Repeat("  ", h.Level-top))
		b.WriteString("- [")
		b.WriteString(h.Text)
		b.WriteString("](#")
		b.WriteString(h.ID)
		b.WriteString(")\n")
	}
	return b.String()
}

// Outline keeps the table of contents of a document current. Regenerate
// fits reconcile.WithAfterReconcile.
type Outline struct {
	mu       sync.Mutex
	items    []Heading
	markup   string
	onChange func(markup string)
}

// New returns an Outline that calls onChange whenever the markup changes.
// onChange may be nil.
func New(onChange func(markup string)) *Outline {
	return &Outline{onChange: onChange}
}

// Regenerate recomputes the outline from root.
func (o *Outline) Regenerate(root *surface.Node) {
	items := Headings(root)
	markup := Render(items)

	o.mu.Lock()
	changed := markup != o.markup
	o.items, o.markup = items, markup
	fn := o.onChange
	o.mu.Unlock()

	if changed && fn != nil {
		fn(markup)
	}
}

// Items returns the current entries.
func (o *Outline) Items() []Heading {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Heading(nil), o.items...)
}

// Markup returns the current rendered outline.
func (o *Outline) Markup() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.markup
}
