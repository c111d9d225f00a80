package surface

import "strings"

// CaretMark is the zero-width sentinel that stands in for the caret while a
// fragment travels through serialization and re-rendering. It is a
// private-use code point, so markdown treats it as an ordinary letter.
const CaretMark = "\uE000"

// Point is a position inside the surface. For leaves Offset is a byte
// offset into Text; for other nodes it is a child index.
type Point struct {
	Node   *Node
	Offset int
}

// IsZero reports whether the point is unset.
func (p Point) IsZero() bool { return p.Node == nil }

// Range is a selection between two points. Start never follows End.
type Range struct {
	Start Point
	End   Point
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.Start.Node == r.End.Node && r.Start.Offset == r.End.Offset
}

// Caret returns a collapsed range at p.
func Caret(p Point) Range { return Range{Start: p, End: p} }

// Surface is an editable document tree with a selection.
type Surface struct {
	Root *Node
	sel  Range
}

// New creates a surface holding a single empty paragraph.
func New() *Surface {
	s := &Surface{Root: NewNode(KindDocument)}
	s.EnsureBlock()
	s.SetCaret(FirstLeaf(s.Root), 0)
	return s
}

// Selection returns the current selection.
func (s *Surface) Selection() Range { return s.sel }

// SetSelection replaces the selection, normalising both points onto leaves.
func (s *Surface) SetSelection(r Range) {
	start := s.resolve(r.Start)
	end := s.resolve(r.End)
	if ComparePoints(s.Root, start, end) > 0 {
		start, end = end, start
	}
	s.sel = Range{Start: start, End: end}
}

// SetCaret collapses the selection at (n, offset).
func (s *Surface) SetCaret(n *Node, offset int) {
	p := s.resolve(Point{Node: n, Offset: offset})
	s.sel = Caret(p)
}

// Caret returns the focus point of the selection (its end).
func (s *Surface) Caret() Point { return s.sel.End }

// CaretAtStart collapses the selection to the start of the first leaf.
func (s *Surface) CaretAtStart() {
	s.EnsureBlock()
	s.SetCaret(FirstLeaf(s.Root), 0)
}

// CaretAtEnd collapses the selection to the end of the last leaf.
func (s *Surface) CaretAtEnd() {
	s.EnsureBlock()
	leaf := LastLeaf(s.Root)
	s.SetCaret(leaf, len(leaf.Text))
}

// CaretAtEndOf collapses the selection to the end of n's last leaf.
func (s *Surface) CaretAtEndOf(n *Node) {
	leaf := LastLeaf(n)
	if leaf == nil {
		leaf = EnsureText(n)
	}
	s.SetCaret(leaf, len(leaf.Text))
}

// CaretAtStartOf collapses the selection to the start of n's first leaf.
func (s *Surface) CaretAtStartOf(n *Node) {
	leaf := FirstLeaf(n)
	if leaf == nil {
		leaf = EnsureText(n)
	}
	s.SetCaret(leaf, 0)
}

// Valid reports whether the selection points into the current tree.
func (s *Surface) Valid() bool {
	return s.sel.Start.Node != nil && s.sel.End.Node != nil &&
		s.Root.Contains(s.sel.Start.Node) && s.Root.Contains(s.sel.End.Node)
}

// EnsureBlock guarantees the root holds at least one block so that a
// selection can always be computed.
func (s *Surface) EnsureBlock() {
	if s.Root.firstChild == nil {
		s.Root.AppendChild(NewBlock(KindParagraph, NewText("")))
	}
	if FirstLeaf(s.Root) == nil {
		EnsureText(s.Root.lastChild)
	}
}

// resolve moves a point onto a leaf.
func (s *Surface) resolve(p Point) Point {
	if p.Node == nil {
		s.EnsureBlock()
		return Point{Node: FirstLeaf(s.Root)}
	}
	if p.Node.Kind.IsLeaf() {
		if p.Offset < 0 {
			p.Offset = 0
		}
		if p.Offset > len(p.Node.Text) {
			p.Offset = len(p.Node.Text)
		}
		return p
	}
	if c := p.Node.Child(p.Offset); c != nil {
		if l := FirstLeaf(c); l != nil {
			return Point{Node: l}
		}
	}
	if l := LastLeaf(p.Node); l != nil {
		return Point{Node: l, Offset: len(l.Text)}
	}
	leaf := EnsureText(p.Node)
	return Point{Node: leaf}
}

// EnsureText returns a leaf inside n, creating the missing structure down
// to an empty text leaf when n has none.
func EnsureText(n *Node) *Node {
	if l := FirstLeaf(n); l != nil {
		return l
	}
	if n.lastChild != nil {
		return EnsureText(n.lastChild)
	}
	var child *Node
	switch {
	case n.Kind.IsTextBlock(), n.Kind.IsInline():
		child = NewText("")
	case n.Kind == KindList:
		child = NewBlock(KindListItem, NewBlock(KindParagraph, NewText("")))
	case n.Kind == KindTable:
		child = NewBlock(KindTableRow, NewBlock(KindTableCell, NewText("")))
		child.Attrs.Header = true
	case n.Kind == KindTableRow:
		child = NewBlock(KindTableCell, NewText(""))
	case n.Kind == KindLinkRefBlock:
		child = NewBlock(KindLinkRefDef, NewText(""))
	default:
		child = NewBlock(KindParagraph, NewText(""))
	}
	n.AppendChild(child)
	return FirstLeaf(child)
}

// leafIndex returns the position of the leaf in document order.
func leafIndex(root, leaf *Node) int {
	i := 0
	found := -1
	Walk(root, func(c *Node, entering bool) WalkStatus {
		if !entering || !c.Kind.IsLeaf() {
			return WalkContinue
		}
		if c == leaf {
			found = i
			return WalkStop
		}
		i++
		return WalkContinue
	})
	return found
}

// ComparePoints orders two leaf points in document order.
func ComparePoints(root *Node, a, b Point) int {
	if a.Node == b.Node {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	}
	ia, ib := leafIndex(root, a.Node), leafIndex(root, b.Node)
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	}
	return 0
}

// Line describes the line around the caret inside its text block.
type Line struct {
	Before string // text from line start to caret
	After  string // text from caret to line end
}

// Text returns the whole line.
func (l Line) Text() string { return l.Before + l.After }

// CurrentLine returns the line around the caret within its text block.
func (s *Surface) CurrentLine() Line {
	caret := s.Caret()
	block := TextBlock(caret.Node)
	if block == nil {
		return Line{}
	}
	before, after := SplitText(block, caret)
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	if i := strings.IndexByte(after, '\n'); i >= 0 {
		after = after[:i]
	}
	return Line{Before: before, After: after}
}

// SplitText returns the characters of block before and after p.
func SplitText(block *Node, p Point) (string, string) {
	var before, after strings.Builder
	seen := false
	for _, leaf := range Leaves(block) {
		switch {
		case leaf == p.Node:
			before.WriteString(leaf.Text[:p.Offset])
			after.WriteString(leaf.Text[p.Offset:])
			seen = true
		case seen:
			after.WriteString(leaf.Text)
		default:
			before.WriteString(leaf.Text)
		}
	}
	return before.String(), after.String()
}

// OffsetIn returns the byte offset of p within the characters of n.
// It returns -1 when p is not inside n.
func OffsetIn(n *Node, p Point) int {
	offset := 0
	for _, leaf := range Leaves(n) {
		if leaf == p.Node {
			return offset + p.Offset
		}
		offset += len(leaf.Text)
	}
	return -1
}

// PointAt maps a byte offset within the characters of n back to a point.
func PointAt(n *Node, offset int) Point {
	leaves := Leaves(n)
	for _, leaf := range leaves {
		if offset <= len(leaf.Text) {
			return Point{Node: leaf, Offset: offset}
		}
		offset -= len(leaf.Text)
	}
	if len(leaves) == 0 {
		return Point{Node: EnsureText(n)}
	}
	last := leaves[len(leaves)-1]
	return Point{Node: last, Offset: len(last.Text)}
}
