package keydown

import (
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/surface"
)

var cellKind = surface.KindSetOf(surface.KindTableCell)

// tableKeys moves between cells. Tab and Shift+Tab walk the cells in
// reading order, wrapping at row ends; Tab in the last cell adds a row.
// Enter and the vertical arrows move by row in the same column, and the
// arrows leave the table past its first or last row.
func tableKeys(ctx *Context, ev key.Event) Result {
	s := ctx.Surface()
	p := s.Caret()
	cell := surface.Closest(p.Node, cellKind)
	if cell == nil {
		return Pass
	}
	row := cell.Parent()
	table := row.Parent()
	col := cell.Index()

	switch {
	case ev.Is(key.KeyTab, key.ModNone):
		next := nextCell(cell)
		if next == nil {
			r := newRow(table)
			row.InsertAfter(r)
			s.CaretAtStartOf(r.FirstChild())
			ctx.Engine.AfterMutation()
			return Handled
		}
		s.CaretAtEndOf(next)
	case ev.Is(key.KeyTab, key.ModShift):
		if prev := prevCell(cell); prev != nil {
			s.CaretAtEndOf(prev)
		}
	case ev.Is(key.KeyEnter, key.ModNone):
		below := row.Next()
		if below == nil {
			below = newRow(table)
			row.InsertAfter(below)
			s.CaretAtStartOf(cellAt(below, col))
			ctx.Engine.AfterMutation()
			return Handled
		}
		s.CaretAtEndOf(cellAt(below, col))
	case ev.Is(key.KeyUp, key.ModNone):
		if above := row.Prev(); above != nil {
			s.CaretAtEndOf(cellAt(above, col))
			return Handled
		}
		if prev := s.PreviousTextBlock(table); prev != nil {
			s.CaretAtEndOf(prev)
			return Handled
		}
		para := paragraph()
		table.InsertBefore(para)
		s.CaretAtStartOf(para)
		ctx.Engine.AfterMutation()
	case ev.Is(key.KeyDown, key.ModNone):
		if below := row.Next(); below != nil {
			s.CaretAtEndOf(cellAt(below, col))
			return Handled
		}
		if next := s.NextTextBlock(table); next != nil {
			s.CaretAtStartOf(next)
			return Handled
		}
		para := paragraph()
		table.InsertAfter(para)
		s.CaretAtStartOf(para)
		ctx.Engine.AfterMutation()
	case ev.Is(key.KeyLeft, key.ModNone):
		prev := prevCell(cell)
		if prev == nil || !s.Selection().Collapsed() || !atStart(cell, p) {
			return Pass
		}
		s.CaretAtEndOf(prev)
	case ev.Is(key.KeyRight, key.ModNone):
		next := nextCell(cell)
		if next == nil || !s.Selection().Collapsed() || !atEnd(cell, p) {
			return Pass
		}
		s.CaretAtStartOf(next)
	default:
		return Pass
	}
	return Handled
}

func nextCell(cell *surface.Node) *surface.Node {
	if n := cell.Next(); n != nil {
		return n
	}
	if r := cell.Parent().Next(); r != nil {
		return r.FirstChild()
	}
	return nil
}

func prevCell(cell *surface.Node) *surface.Node {
	if p := cell.Prev(); p != nil {
		return p
	}
	if r := cell.Parent().Prev(); r != nil {
		return r.LastChild()
	}
	return nil
}

// cellAt returns the cell of row in column col, or the row's last cell
// when the row is short.
func cellAt(row *surface.Node, col int) *surface.Node {
	if c := row.Child(col); c != nil {
		return c
	}
	if c := row.LastChild(); c != nil {
		return c
	}
	return surface.EnsureText(row).Parent()
}

func columns(table *surface.Node) int {
	n := len(table.Attrs.Aligns)
	for r := table.FirstChild(); r != nil; r = r.Next() {
		n = max(n, r.ChildCount())
	}
	return max(n, 1)
}

// newRow returns an empty body row as wide as table.
func newRow(table *surface.Node) *surface.Node {
	row := surface.NewNode(surface.KindTableRow)
	for i := 0; i < columns(table); i++ {
		c := surface.NewBlock(surface.KindTableCell, surface.NewText(""))
		if i < len(table.Attrs.Aligns) {
			c.Attrs.Align = table.Attrs.Aligns[i]
		}
		row.AppendChild(c)
	}
	return row
}

// insertRow adds an empty row below the caret's row.
func insertRow(ctx *Context) Result {
	s := ctx.Surface()
	cell := surface.Closest(s.Caret().Node, cellKind)
	if cell == nil {
		return Pass
	}
	row := cell.Parent()
	r := newRow(row.Parent())
	row.InsertAfter(r)
	s.CaretAtStartOf(cellAt(r, cell.Index()))
	ctx.Engine.AfterMutation()
	return Handled
}

// deleteRow removes the caret's row. The header row stays.
func deleteRow(ctx *Context) Result {
	s := ctx.Surface()
	cell := surface.Closest(s.Caret().Node, cellKind)
	if cell == nil {
		return Pass
	}
	row := cell.Parent()
	if row.Attrs.Header || row.Prev() == nil {
		return Handled
	}
	target := row.Next()
	if target == nil {
		target = row.Prev()
	}
	col := cell.Index()
	row.Remove()
	s.CaretAtEndOf(cellAt(target, col))
	ctx.Engine.AfterMutation()
	return Handled
}
