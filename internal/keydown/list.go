package keydown

import (
	"slices"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/surface"
)

// listKeys handles Enter, Backspace, Tab and Shift+Tab in a list item's
// leading paragraph.
func listKeys(ctx *Context, ev key.Event) Result {
	s := ctx.Surface()
	start := s.Selection().Start
	block := surface.TextBlock(start.Node)
	if block == nil || block.Kind != surface.KindParagraph {
		return Pass
	}
	item := block.Parent()
	if item == nil || item.Kind != surface.KindListItem {
		return Pass
	}

	switch {
	case ev.Is(key.KeyEnter, key.ModNone):
		return listEnter(ctx, item, block)
	case ev.Is(key.KeyBackspace, key.ModNone):
		if !s.Selection().Collapsed() || block != item.FirstChild() || !atStart(block, start) {
			return Pass
		}
		return listBackspace(ctx, item, block)
	case ev.Is(key.KeyTab, key.ModNone):
		if block != item.FirstChild() || !atStart(block, start) {
			return Pass
		}
		if indent(item, lastSelected(s, item)) {
			keepSelection(s, func() { ctx.Engine.ReconcileAt(item) })
		}
		return Handled
	case ev.Is(key.KeyTab, key.ModShift):
		last := lastSelected(s, item)
		if nested(item) {
			outdent(item, last)
			keepSelection(s, func() { ctx.Engine.ReconcileAt(item) })
			return Handled
		}
		lift(s, item)
		ctx.Engine.AfterMutation()
		return Handled
	}
	return Pass
}

func listEnter(ctx *Context, item, block *surface.Node) Result {
	s := ctx.Surface()
	if blank(block) && item.ChildCount() == 1 && s.Selection().Collapsed() {
		if nested(item) {
			outdent(item, item)
			ctx.Engine.ReconcileAt(item)
			return Handled
		}
		lift(s, item)
		ctx.Engine.AfterMutation()
		return Handled
	}

	checkbox := task(block)
	_, right := s.SplitBlock()
	if right == nil {
		return Pass
	}
	next := item.ShallowClone()
	moveFrom(right, next)
	item.InsertAfter(next)
	if checkbox != nil && task(right) == nil {
		right.PrependChild(surface.NewNode(surface.KindTaskMarker))
	}
	ctx.Engine.ReconcileAt(right)
	return Handled
}

func listBackspace(ctx *Context, item, block *surface.Node) Result {
	s := ctx.Surface()
	if t := task(block); t != nil {
		t.Remove()
		ctx.Engine.AfterMutation()
		return Handled
	}
	switch {
	case nested(item) && item.Prev() == nil:
		outdent(item, item)
		ctx.Engine.ReconcileAt(item)
	case item.Prev() == nil:
		lift(s, item)
		ctx.Engine.AfterMutation()
	default:
		prev := item.Prev()
		if !s.MergeIntoPrevious(block) {
			return Handled
		}
		if item.Parent() != nil {
			moveFrom(item.FirstChild(), prev)
			item.Remove()
		}
		ctx.Engine.ReconcileAt(s.Caret().Node)
	}
	return Handled
}

// nested reports whether item belongs to a list inside another item.
func nested(item *surface.Node) bool {
	list := item.Parent()
	return list != nil && list.Parent() != nil && list.Parent().Kind == surface.KindListItem
}

// lastSelected returns the last sibling of item the selection reaches.
func lastSelected(s *surface.Surface, item *surface.Node) *surface.Node {
	r := s.Selection()
	if r.Collapsed() {
		return item
	}
	end := surface.Closest(r.End.Node, surface.KindSetOf(surface.KindListItem))
	for end != nil && end.Parent() != item.Parent() {
		end = surface.Closest(end.Parent(), surface.KindSetOf(surface.KindListItem))
	}
	if end == nil || end.Index() < item.Index() {
		return item
	}
	return end
}

// blockPos locates a point by the index of its text block in document
// order and the offset inside that block.
type blockPos struct{ block, offset int }

func posOf(root *surface.Node, p surface.Point) (blockPos, bool) {
	b := surface.TextBlock(p.Node)
	i := slices.Index(textBlocks(root), b)
	if b == nil || i < 0 {
		return blockPos{}, false
	}
	return blockPos{block: i, offset: surface.OffsetIn(b, p)}, true
}

func (bp blockPos) point(root *surface.Node) (surface.Point, bool) {
	blocks := textBlocks(root)
	if bp.block >= len(blocks) {
		return surface.Point{}, false
	}
	b := blocks[bp.block]
	return surface.PointAt(b, min(bp.offset, len(b.TextContent()))), true
}

func textBlocks(root *surface.Node) []*surface.Node {
	return surface.FindAll(root, func(n *surface.Node) bool { return n.Kind.IsTextBlock() })
}

// keepSelection runs render, which rebuilds the list, and selects the same
// text again. Moving items never adds or drops a text block.
func keepSelection(s *surface.Surface, render func()) {
	r := s.Selection()
	start, ok1 := posOf(s.Root, r.Start)
	end, ok2 := posOf(s.Root, r.End)
	render()
	if r.Collapsed() || !ok1 || !ok2 {
		return
	}
	ps, ok1 := start.point(s.Root)
	pe, ok2 := end.point(s.Root)
	if ok1 && ok2 {
		s.SetSelection(surface.Range{Start: ps, End: pe})
	}
}

// sublist returns an empty list of the same type as list.
func sublist(list *surface.Node) *surface.Node {
	l := list.ShallowClone()
	if l.Attrs.Ordered {
		l.Attrs.Start = 1
	}
	return l
}

func sameType(a, b *surface.Node) bool {
	return a.Attrs.Ordered == b.Attrs.Ordered && a.Attrs.Bullet == b.Attrs.Bullet && a.Attrs.Delim == b.Attrs.Delim
}

// indent moves first through last under the item before first.
func indent(first, last *surface.Node) bool {
	prev := first.Prev()
	if prev == nil {
		return false
	}
	list := first.Parent()
	sub := prev.LastChild()
	if sub == nil || sub.Kind != surface.KindList || !sameType(sub, list) {
		sub = sublist(list)
		prev.AppendChild(sub)
	}
	moveRange(first, last, sub)
	return true
}

// outdent moves first through last out of their nested list to follow the
// parent item. Items after last become a list nested in last.
func outdent(first, last *surface.Node) {
	list := first.Parent()
	parent := list.Parent()
	if after := last.Next(); after != nil {
		rest := sublist(list)
		moveFrom(after, rest)
		last.AppendChild(rest)
	}
	at := parent
	for c := first; c != nil; {
		next := c.Next()
		at.InsertAfter(c)
		at = c
		if c == last {
			break
		}
		c = next
	}
	if !list.HasChildren() {
		list.Remove()
	}
}

// lift turns item into plain blocks, splitting its list around it, and
// puts the caret at the start of the first block.
func lift(s *surface.Surface, item *surface.Node) {
	list := item.Parent()
	if after := item.Next(); after != nil {
		rest := list.ShallowClone()
		if rest.Attrs.Ordered {
			rest.Attrs.Start = list.Attrs.Start + item.Index() + 1
		}
		moveFrom(after, rest)
		list.InsertAfter(rest)
	}
	blocks := item.Children()
	at := list
	for _, b := range blocks {
		at.InsertAfter(b)
		at = b
	}
	item.Remove()
	if !list.HasChildren() {
		list.Remove()
	}
	if len(blocks) == 0 {
		return
	}
	if t := task(blocks[0]); t != nil {
		t.Remove()
	}
	s.CaretAtStartOf(blocks[0])
}
