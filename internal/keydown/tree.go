package keydown

import (
	"strings"

	"github.com/dshills/inkstorm/internal/surface"
)

// caretBlock returns the text block holding the caret.
func caretBlock(s *surface.Surface) (*surface.Node, surface.Point) {
	p := s.Caret()
	return surface.TextBlock(p.Node), p
}

func atStart(block *surface.Node, p surface.Point) bool {
	return surface.OffsetIn(block, p) == 0
}

func atEnd(block *surface.Node, p surface.Point) bool {
	return surface.OffsetIn(block, p) == len(block.TextContent())
}

// blank reports whether block holds no characters and no inline objects
// other than a task marker.
func blank(block *surface.Node) bool {
	if block.TextContent() != "" {
		return false
	}
	return surface.Find(block, surface.OfKind(surface.KindImage, surface.KindFootnoteRef,
		surface.KindHardBreak, surface.KindHTMLInline)) == nil
}

func paragraph() *surface.Node {
	return surface.NewBlock(surface.KindParagraph, surface.NewText(""))
}

// task returns the task marker leading block, if any.
func task(block *surface.Node) *surface.Node {
	if c := block.FirstChild(); c != nil && c.Kind == surface.KindTaskMarker {
		return c
	}
	return nil
}

// moveFrom appends from and every following sibling to dst.
func moveFrom(from, dst *surface.Node) {
	for c := from; c != nil; {
		next := c.Next()
		dst.AppendChild(c)
		c = next
	}
}

// moveRange appends first through last, which must be siblings, to dst.
func moveRange(first, last, dst *surface.Node) {
	for c := first; c != nil; {
		next := c.Next()
		dst.AppendChild(c)
		if c == last {
			return
		}
		c = next
	}
}

// lineIndent returns the leading spaces and tabs of line.
func lineIndent(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
