package tui

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/inkstorm/internal/surface"
)

// Span is a run of text drawn with one style.
type Span struct {
	Text  string
	Style tcell.Style
	// Leaf is the surface leaf Text comes from, nil for decorations such
	// as list bullets.
	Leaf *surface.Node
	// Offset is the byte offset of Text in Leaf.
	Offset int
}

// Line is one screen row.
type Line []Span

// Width returns the number of cells l covers.
func (l Line) Width() int {
	w := 0
	for _, s := range l {
		w += stringWidth(s.Text)
	}
	return w
}

// Layout is a surface laid out in rows.
type Layout struct {
	Lines []Line
	// CaretX and CaretY give the caret cell.
	CaretX, CaretY int
}

var (
	styleMarker  = tcell.StyleDefault.Dim(true)
	styleCode    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleDecor   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHeading = tcell.StyleDefault.Bold(true).Foreground(tcell.ColorAqua)
)

type layoutBuilder struct {
	out      *Layout
	caret    surface.Point
	caretSet bool
	cur      Line
	rest     string
}

// Build lays out the surface under root with the caret at caret.
func Build(root *surface.Node, caret surface.Point) *Layout {
	b := &layoutBuilder{out: &Layout{}, caret: caret}
	for i, c := range root.Children() {
		if i > 0 {
			b.out.Lines = append(b.out.Lines, nil)
		}
		b.block(c, "", "")
	}
	if len(b.out.Lines) == 0 {
		b.out.Lines = append(b.out.Lines, nil)
	}
	return b.out
}

// block lays out n. first prefixes its first row and rest the others.
func (b *layoutBuilder) block(n *surface.Node, first, rest string) {
	switch {
	case n.Kind == surface.KindList:
		num := n.Attrs.Start
		for i, item := range n.Children() {
			marker := "• "
			if n.Attrs.Ordered {
				marker = strconv.Itoa(num+i) + string(n.Attrs.Delim) + " "
			}
			p := first
			if i > 0 {
				p = rest
			}
			b.children(item, p+marker, rest+strings.Repeat(" ", stringWidth(marker)))
			if !n.Attrs.Tight && item.Next() != nil {
				b.out.Lines = append(b.out.Lines, nil)
			}
		}
	case n.Kind == surface.KindBlockquote:
		b.children(n, first+"│ ", rest+"│ ")
	case n.Kind == surface.KindTable:
		for i, row := range n.Children() {
			p := first
			if i > 0 {
				p = rest
			}
			b.row(row, p)
			if row.Attrs.Header {
				b.start(rest)
				b.decor(strings.Repeat("─", max(b.out.lineWidth()-stringWidth(rest), 3)))
				b.end()
			}
		}
	case n.Kind == surface.KindThematicBreak && !n.HasChildren():
		b.start(first)
		b.decor(strings.Repeat("─", 20))
		b.end()
	case n.Kind.IsTextBlock():
		style := tcell.StyleDefault
		switch n.Kind {
		case surface.KindHeading:
			style = styleHeading
		case surface.KindCodeBlock, surface.KindMathBlock:
			style = styleCode
		}
		b.start(first)
		b.rest = rest
		b.inline(n, style)
		b.end()
	default:
		b.children(n, first, rest)
	}
}

func (b *layoutBuilder) children(n *surface.Node, first, rest string) {
	for i, c := range n.Children() {
		p := first
		if i > 0 {
			p = rest
		}
		b.block(c, p, rest)
	}
}

func (b *layoutBuilder) row(row *surface.Node, prefix string) {
	b.start(prefix)
	b.rest = prefix
	for _, cell := range row.Children() {
		b.decor("│ ")
		style := tcell.StyleDefault
		if row.Attrs.Header {
			style = style.Bold(true)
		}
		b.inline(cell, style)
		b.decor(" ")
	}
	b.decor("│")
	b.end()
}

func (b *layoutBuilder) inline(n *surface.Node, style tcell.Style) {
	if !n.HasChildren() && n.Kind.IsTextBlock() && b.caret.Node == n {
		b.placeCaret(0)
	}
	for c := n.FirstChild(); c != nil; c = c.Next() {
		switch c.Kind {
		case surface.KindText:
			b.text(c, style)
		case surface.KindMarker:
			b.text(c, styleMarker)
		case surface.KindCodeInfo:
			fence := n.Attrs.Fence
			if fence == "" {
				fence = "```"
			}
			b.decor(fence)
			b.text(c, styleMarker)
		case surface.KindStrong:
			b.inline(c, style.Bold(true))
		case surface.KindEmphasis:
			b.inline(c, style.Italic(true))
		case surface.KindStrike:
			b.inline(c, style.StrikeThrough(true))
		case surface.KindCodeSpan:
			b.inline(c, style.Reverse(true))
		case surface.KindLink, surface.KindImage:
			b.inline(c, style.Underline(true))
		case surface.KindTaskMarker:
			if c.Attrs.Checked {
				b.decor("☑ ")
			} else {
				b.decor("☐ ")
			}
		case surface.KindHardBreak:
			b.end()
			b.start(b.rest)
		default:
			b.inline(c, style)
		}
	}
}

func (b *layoutBuilder) text(leaf *surface.Node, style tcell.Style) {
	off := 0
	for i, seg := range strings.Split(leaf.Text, "\n") {
		if i > 0 {
			b.end()
			b.start(b.rest)
		}
		if !b.caretSet && b.caret.Node == leaf && b.caret.Offset >= off && b.caret.Offset <= off+len(seg) {
			b.placeCaret(stringWidth(seg[:b.caret.Offset-off]))
		}
		if seg != "" {
			b.cur = append(b.cur, Span{Text: seg, Style: style, Leaf: leaf, Offset: off})
		}
		off += len(seg) + 1
	}
}

func (b *layoutBuilder) placeCaret(dx int) {
	b.out.CaretX = b.cur.Width() + dx
	b.out.CaretY = len(b.out.Lines)
	b.caretSet = true
}

func (b *layoutBuilder) decor(s string) {
	b.cur = append(b.cur, Span{Text: s, Style: styleDecor})
}

func (b *layoutBuilder) start(prefix string) {
	b.cur = nil
	if prefix != "" {
		b.decor(prefix)
	}
}

func (b *layoutBuilder) end() {
	b.out.Lines = append(b.out.Lines, b.cur)
	b.cur = nil
}

func (l *Layout) lineWidth() int {
	if len(l.Lines) == 0 {
		return 0
	}
	return l.Lines[len(l.Lines)-1].Width()
}

// PointAt returns the surface position drawn at cell x of row y. A cell
// past the end of a row maps to the end of its last leaf.
func (l *Layout) PointAt(x, y int) (surface.Point, bool) {
	if y < 0 || y >= len(l.Lines) {
		return surface.Point{}, false
	}
	var last *Span
	col := 0
	for i := range l.Lines[y] {
		s := &l.Lines[y][i]
		w := stringWidth(s.Text)
		if s.Leaf != nil {
			if x < col+w {
				return surface.Point{Node: s.Leaf, Offset: s.Offset + byteAt(s.Text, x-col)}, true
			}
			last = s
		}
		col += w
	}
	if last == nil {
		return surface.Point{}, false
	}
	return surface.Point{Node: last.Leaf, Offset: last.Offset + len(last.Text)}, true
}

// byteAt returns the byte offset of the rune covering cell col of s.
func byteAt(s string, col int) int {
	w := 0
	for i, r := range s {
		w += cellWidth(r)
		if w > col {
			return i
		}
	}
	return len(s)
}

func cellWidth(r rune) int {
	if r == '\t' {
		return 1
	}
	return runewidth.RuneWidth(r)
}

func stringWidth(s string) int {
	w := 0
	for _, r := range s {
		w += cellWidth(r)
	}
	return w
}
