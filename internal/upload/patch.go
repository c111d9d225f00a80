package upload

import (
	"strings"

	"github.com/dshills/inkstorm/internal/surface"
)

var linkKinds = surface.OfKind(surface.KindLink, surface.KindImage)

// Patch replaces the destination from with to everywhere in s: on link and
// image nodes and in leaves that spell it out, such as instant-rendering
// markers and source blocks. The selection keeps its place. It returns the
// number of nodes changed.
func Patch(s *surface.Surface, from, to string) int {
	n := 0
	for _, l := range surface.FindAll(s.Root, linkKinds) {
		if l.Attrs.Dest == from {
			l.Attrs.Dest = to
			n++
		}
	}
	n += rewrite(s, from, to)
	return n
}

// Discard removes placeholder p from s. It returns the number of nodes
// changed.
func Discard(s *surface.Surface, p Placeholder) int {
	n := 0
	for _, l := range surface.FindAll(s.Root, linkKinds) {
		if l.Attrs.Dest != p.URL() {
			continue
		}
		parent := l.Parent()
		holdsCaret := l.Contains(s.Selection().Start.Node) || l.Contains(s.Caret().Node)
		l.Remove()
		if holdsCaret {
			s.CaretAtEndOf(parent)
		}
		n++
	}
	n += rewrite(s, p.Markdown(), "")
	return n
}

// rewrite replaces from with to in every leaf, shifting selection points
// that sit after a replacement.
func rewrite(s *surface.Surface, from, to string) int {
	n := 0
	sel := s.Selection()
	for _, l := range surface.Leaves(s.Root) {
		if !strings.Contains(l.Text, from) {
			continue
		}
		if sel.Start.Node == l {
			sel.Start.Offset = shift(l.Text, sel.Start.Offset, from, to)
		}
		if sel.End.Node == l {
			sel.End.Offset = shift(l.Text, sel.End.Offset, from, to)
		}
		l.Text = strings.ReplaceAll(l.Text, from, to)
		n++
	}
	if n > 0 && sel.Start.Node != nil {
		s.SetSelection(sel)
	}
	return n
}

func shift(text string, off int, from, to string) int {
	off = min(off, len(text))
	k := strings.Count(text[:off], from)
	return max(off+k*(len(to)-len(from)), 0)
}
