package surface

import (
	"strings"
	"unicode/utf8"
)

// DeleteResult describes what a single-character delete did.
type DeleteResult int

const (
	// DeletedNothing means there was nothing to delete.
	DeletedNothing DeleteResult = iota
	// DeletedChar means one character was removed inside the text block.
	DeletedChar
	// AtBlockBoundary means the caret sits at the edge of its text block.
	AtBlockBoundary
)

// InsertText replaces the selection with text and leaves the caret after it.
func (s *Surface) InsertText(text string) {
	s.DeleteSelection()
	p := s.Caret()
	leaf := p.Node
	leaf.Text = leaf.Text[:p.Offset] + text + leaf.Text[p.Offset:]
	s.SetCaret(leaf, p.Offset+len(text))
}

// DeleteSelection removes the selected content and collapses the caret to
// the start of the former selection. Blocks joined by the deletion are
// merged into the first one.
func (s *Surface) DeleteSelection() bool {
	r := s.sel
	if r.Collapsed() {
		return false
	}
	start, end := r.Start, r.End
	if start.Node == end.Node {
		leaf := start.Node
		leaf.Text = leaf.Text[:start.Offset] + leaf.Text[end.Offset:]
		s.SetCaret(leaf, start.Offset)
		return true
	}

	leaves := Leaves(s.Root)
	si, ei := -1, -1
	for i, l := range leaves {
		if l == start.Node {
			si = i
		}
		if l == end.Node {
			ei = i
		}
	}
	if si < 0 || ei < 0 {
		return false
	}

	start.Node.Text = start.Node.Text[:start.Offset]
	end.Node.Text = end.Node.Text[end.Offset:]

	startBlock := TextBlock(start.Node)
	var touched []*Node
	for _, l := range leaves[si+1 : ei] {
		parent := l.parent
		l.Remove()
		touched = append(touched, parent)
	}
	for _, p := range touched {
		pruneEmpty(s.Root, p, startBlock)
	}

	endBlock := TextBlock(end.Node)
	if startBlock != nil && endBlock != nil && startBlock != endBlock {
		endBlock.MoveChildrenTo(startBlock)
		parent := endBlock.parent
		endBlock.Remove()
		pruneEmpty(s.Root, parent, startBlock)
	}
	s.SetCaret(start.Node, start.Offset)
	return true
}

// pruneEmpty removes n and its ancestors while they hold no leaves.
func pruneEmpty(root, n, keep *Node) {
	for n != nil && n != root && n != keep && !n.Contains(keep) {
		if FirstLeaf(n) != nil {
			return
		}
		parent := n.parent
		n.Remove()
		n = parent
	}
}

// DeleteBackward removes the character before the caret inside its text
// block.
func (s *Surface) DeleteBackward() DeleteResult {
	if s.DeleteSelection() {
		return DeletedChar
	}
	p := s.Caret()
	if p.Offset > 0 {
		_, size := utf8.DecodeLastRuneInString(p.Node.Text[:p.Offset])
		p.Node.Text = p.Node.Text[:p.Offset-size] + p.Node.Text[p.Offset:]
		s.SetCaret(p.Node, p.Offset-size)
		return DeletedChar
	}
	block := TextBlock(p.Node)
	if atom := atomBefore(block, p.Node); atom != nil {
		removeAtom(s.Root, atom, block)
		return DeletedChar
	}
	for prev := PrevLeaf(s.Root, p.Node); prev != nil && TextBlock(prev) == block; prev = PrevLeaf(s.Root, prev) {
		if prev.Text == "" {
			continue
		}
		_, size := utf8.DecodeLastRuneInString(prev.Text)
		prev.Text = prev.Text[:len(prev.Text)-size]
		s.SetCaret(prev, len(prev.Text))
		return DeletedChar
	}
	return AtBlockBoundary
}

// DeleteForward removes the character after the caret inside its text block.
func (s *Surface) DeleteForward() DeleteResult {
	if s.DeleteSelection() {
		return DeletedChar
	}
	p := s.Caret()
	if p.Offset < len(p.Node.Text) {
		_, size := utf8.DecodeRuneInString(p.Node.Text[p.Offset:])
		p.Node.Text = p.Node.Text[:p.Offset] + p.Node.Text[p.Offset+size:]
		return DeletedChar
	}
	block := TextBlock(p.Node)
	if atom := atomAfter(block, p.Node); atom != nil {
		removeAtom(s.Root, atom, block)
		return DeletedChar
	}
	for next := NextLeaf(s.Root, p.Node); next != nil && TextBlock(next) == block; next = NextLeaf(s.Root, next) {
		if next.Text == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(next.Text)
		next.Text = next.Text[size:]
		return DeletedChar
	}
	return AtBlockBoundary
}

// isAtom reports whether n is an inline node drawn without text of its
// own, such as a footnote reference or a hard break in wysiwyg mode.
func isAtom(n *Node) bool {
	switch n.Kind {
	case KindFootnoteRef, KindImage, KindHardBreak:
		return FirstLeaf(n) == nil
	}
	return false
}

// atomBefore returns the atom between the previous non-empty text of block
// and leaf, if any.
func atomBefore(block, leaf *Node) *Node {
	for n := leaf; n != nil && n != block; n = n.parent {
		for sib := n.prev; sib != nil; sib = sib.prev {
			if a, done := edgeAtom(sib, true); done {
				return a
			}
		}
	}
	return nil
}

// atomAfter returns the atom between leaf and the next non-empty text of
// block, if any.
func atomAfter(block, leaf *Node) *Node {
	for n := leaf; n != nil && n != block; n = n.parent {
		for sib := n.next; sib != nil; sib = sib.next {
			if a, done := edgeAtom(sib, false); done {
				return a
			}
		}
	}
	return nil
}

// edgeAtom looks at the trailing (or leading) edge of n. done is true when
// the edge is an atom, returned in a, or non-empty text.
func edgeAtom(n *Node, trailing bool) (a *Node, done bool) {
	if isAtom(n) {
		return n, true
	}
	if n.Kind.IsLeaf() {
		return nil, n.Text != ""
	}
	c := n.firstChild
	if trailing {
		c = n.lastChild
	}
	for c != nil {
		if a, done := edgeAtom(c, trailing); done {
			return a, true
		}
		if trailing {
			c = c.prev
		} else {
			c = c.next
		}
	}
	return nil, false
}

func removeAtom(root, atom, block *Node) {
	parent := atom.parent
	atom.Remove()
	pruneEmpty(root, parent, block)
}

// DeleteBytesBefore removes n bytes before the caret, crossing leaves of the
// same text block.
func (s *Surface) DeleteBytesBefore(n int) {
	for n > 0 {
		p := s.Caret()
		take := p.Offset
		if take > n {
			take = n
		}
		p.Node.Text = p.Node.Text[:p.Offset-take] + p.Node.Text[p.Offset:]
		s.SetCaret(p.Node, p.Offset-take)
		n -= take
		if n == 0 {
			return
		}
		prev := PrevLeaf(s.Root, p.Node)
		if prev == nil || TextBlock(prev) != TextBlock(p.Node) {
			return
		}
		s.SetCaret(prev, len(prev.Text))
	}
}

// PreviousTextBlock returns the text block before block in document order.
func (s *Surface) PreviousTextBlock(block *Node) *Node {
	first := FirstLeaf(block)
	if first == nil {
		return nil
	}
	prev := PrevLeaf(s.Root, first)
	if prev == nil {
		return nil
	}
	return TextBlock(prev)
}

// NextTextBlock returns the text block after block in document order.
func (s *Surface) NextTextBlock(block *Node) *Node {
	last := LastLeaf(block)
	if last == nil {
		return nil
	}
	next := NextLeaf(s.Root, last)
	if next == nil {
		return nil
	}
	return TextBlock(next)
}

// MergeIntoPrevious appends the inline content of block to the previous text
// block and removes block. The caret lands at the join. Fenced blocks are
// never merged into.
func (s *Surface) MergeIntoPrevious(block *Node) bool {
	prev := s.PreviousTextBlock(block)
	if prev == nil || Fences.Has(prev.Kind) || Fences.Has(block.Kind) {
		return false
	}
	joint := LastLeaf(prev)
	offset := len(joint.Text)
	block.MoveChildrenTo(prev)
	parent := block.parent
	block.Remove()
	pruneEmpty(s.Root, parent, prev)
	s.SetCaret(joint, offset)
	return true
}

// SplitBlock splits the text block holding the caret in two. Inline
// ancestors of the caret are split as well. The caret moves to the start of
// the new block, which is returned together with the original.
func (s *Surface) SplitBlock() (left, right *Node) {
	s.DeleteSelection()
	p := s.Caret()
	block := TextBlock(p.Node)
	if block == nil {
		return nil, nil
	}
	leaf := p.Node
	tail := leaf.ShallowClone()
	tail.Text = leaf.Text[p.Offset:]
	leaf.Text = leaf.Text[:p.Offset]
	leaf.InsertAfter(tail)

	cur := tail
	for cur.parent != block {
		parent := cur.parent
		clone := parent.ShallowClone()
		for c := cur; c != nil; {
			next := c.next
			clone.AppendChild(c)
			c = next
		}
		parent.InsertAfter(clone)
		cur = clone
	}

	newBlock := block.ShallowClone()
	for c := cur; c != nil; {
		next := c.next
		newBlock.AppendChild(c)
		c = next
	}
	block.InsertAfter(newBlock)
	EnsureText(block)
	s.SetCaret(FirstLeaf(newBlock), 0)
	return block, newBlock
}

// MoveLeft moves the caret one character left.
func (s *Surface) MoveLeft() bool {
	p := s.Caret()
	if !s.sel.Collapsed() {
		s.sel = Caret(s.sel.Start)
		return true
	}
	if p.Offset > 0 {
		_, size := utf8.DecodeLastRuneInString(p.Node.Text[:p.Offset])
		s.SetCaret(p.Node, p.Offset-size)
		return true
	}
	prev := PrevLeaf(s.Root, p.Node)
	if prev == nil {
		return false
	}
	offset := len(prev.Text)
	if TextBlock(prev) == TextBlock(p.Node) && offset > 0 {
		_, size := utf8.DecodeLastRuneInString(prev.Text)
		offset -= size
	}
	s.SetCaret(prev, offset)
	return true
}

// MoveRight moves the caret one character right.
func (s *Surface) MoveRight() bool {
	p := s.Caret()
	if !s.sel.Collapsed() {
		s.sel = Caret(s.sel.End)
		return true
	}
	if p.Offset < len(p.Node.Text) {
		_, size := utf8.DecodeRuneInString(p.Node.Text[p.Offset:])
		s.SetCaret(p.Node, p.Offset+size)
		return true
	}
	next := NextLeaf(s.Root, p.Node)
	if next == nil {
		return false
	}
	offset := 0
	if TextBlock(next) == TextBlock(p.Node) && next.Text != "" {
		_, offset = utf8.DecodeRuneInString(next.Text)
	}
	s.SetCaret(next, offset)
	return true
}

// MoveVertical moves the caret one line up (dir < 0) or down (dir > 0),
// keeping the byte column where possible.
func (s *Surface) MoveVertical(dir int) bool {
	p := s.Caret()
	block := TextBlock(p.Node)
	if block == nil {
		return false
	}
	text := block.TextContent()
	off := OffsetIn(block, p)
	lineStart := strings.LastIndexByte(text[:off], '\n') + 1
	col := off - lineStart

	if dir < 0 {
		if lineStart > 0 {
			prevStart := strings.LastIndexByte(text[:lineStart-1], '\n') + 1
			s.setCaretPoint(PointAt(block, min(prevStart+col, lineStart-1)))
			return true
		}
		prev := s.PreviousTextBlock(block)
		if prev == nil {
			return false
		}
		ptext := prev.TextContent()
		lastStart := strings.LastIndexByte(ptext, '\n') + 1
		s.setCaretPoint(PointAt(prev, min(lastStart+col, len(ptext))))
		return true
	}

	if i := strings.IndexByte(text[off:], '\n'); i >= 0 {
		nextStart := off + i + 1
		nextEnd := len(text)
		if j := strings.IndexByte(text[nextStart:], '\n'); j >= 0 {
			nextEnd = nextStart + j
		}
		s.setCaretPoint(PointAt(block, min(nextStart+col, nextEnd)))
		return true
	}
	next := s.NextTextBlock(block)
	if next == nil {
		return false
	}
	ntext := next.TextContent()
	firstEnd := len(ntext)
	if j := strings.IndexByte(ntext, '\n'); j >= 0 {
		firstEnd = j
	}
	s.setCaretPoint(PointAt(next, min(col, firstEnd)))
	return true
}

func (s *Surface) setCaretPoint(p Point) {
	s.SetCaret(p.Node, p.Offset)
}

// MergeText joins adjacent text leaves under n and drops empty text leaves
// that have a sibling leaf.
func MergeText(n *Node) {
	Walk(n, func(c *Node, entering bool) WalkStatus {
		if !entering || c.Kind.IsLeaf() {
			return WalkContinue
		}
		for ch := c.firstChild; ch != nil; {
			next := ch.next
			if ch.Kind == KindText && next != nil && next.Kind == KindText {
				ch.Text += next.Text
				next.Remove()
				continue
			}
			ch = next
		}
		return WalkContinue
	})
}
