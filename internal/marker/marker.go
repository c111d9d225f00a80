// Package marker keeps the caret alive across a subtree replacement.
//
// Before a block is serialized for re-rendering, the caret is written into
// the text as a private-use sentinel (surface.CaretMark). The oracle treats
// it as an ordinary character, so it comes back inside the freshly rendered
// nodes at the same logical place. Restore finds it, puts the caret there
// and removes it.
//
// The Anchor interface hides the technique so a host with stable node
// identity can swap in something else.
package marker

import (
	"strings"

	"github.com/dshills/inkstorm/internal/surface"
)

// Anchor places and restores a cursor anchor around a re-render.
type Anchor interface {
	// Place collapses the selection and anchors the caret.
	Place(s *surface.Surface)
	// Restore moves the caret back to the anchor inside root and removes
	// the anchor. It reports whether the anchor was found; when it was not,
	// the surface is left untouched.
	Restore(root *surface.Node, s *surface.Surface) bool
}

// Sentinel is the Anchor that writes surface.CaretMark into the text.
type Sentinel struct{}

// Place implements Anchor.
func (Sentinel) Place(s *surface.Surface) {
	s.SetSelection(surface.Caret(s.Caret()))
	p := s.Caret()
	leaf := p.Node
	leaf.Text = leaf.Text[:p.Offset] + surface.CaretMark + leaf.Text[p.Offset:]
	s.SetCaret(leaf, p.Offset)
}

// Restore implements Anchor. Every copy of the mark under root is removed,
// including copies the oracle moved into node attributes; the caret goes to
// the first one found in a leaf.
func (Sentinel) Restore(root *surface.Node, s *surface.Surface) bool {
	if root == nil {
		return false
	}
	var (
		found  *surface.Node
		offset int
	)
	surface.Walk(root, func(n *surface.Node, entering bool) surface.WalkStatus {
		if !entering {
			return surface.WalkContinue
		}
		if n.Kind.IsLeaf() {
			if i := strings.Index(n.Text, surface.CaretMark); i >= 0 {
				if found == nil {
					found, offset = n, i
				}
				n.Text = strip(n.Text)
			}
			return surface.WalkContinue
		}
		scrubAttrs(n)
		return surface.WalkContinue
	})
	if found == nil {
		return false
	}
	s.SetCaret(found, offset)
	return true
}

// Scrub removes every mark under root without touching the selection.
func Scrub(root *surface.Node) {
	surface.Walk(root, func(n *surface.Node, entering bool) surface.WalkStatus {
		if entering {
			n.Text = strip(n.Text)
			scrubAttrs(n)
		}
		return surface.WalkContinue
	})
}

func scrubAttrs(n *surface.Node) {
	a := &n.Attrs
	a.Info = strip(a.Info)
	a.Label = strip(a.Label)
	a.Dest = strip(a.Dest)
	a.Title = strip(a.Title)
}

func strip(s string) string {
	if !strings.Contains(s, surface.CaretMark) {
		return s
	}
	return strings.ReplaceAll(s, surface.CaretMark, "")
}

// Fallback puts the caret at the end of the last of nodes, or at the end of
// the document when nodes is empty or detached.
func Fallback(s *surface.Surface, nodes ...*surface.Node) {
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n != nil && s.Root.Contains(n) {
			s.CaretAtEndOf(n)
			return
		}
	}
	s.CaretAtEnd()
}
