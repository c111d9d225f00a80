package keydown

import (
	"regexp"
	"strings"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/surface"
)

var (
	ruleRe   = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	setextRe = regexp.MustCompile(`^ {0,3}(?:=+|-+)[ \t]*$`)
)

// source returns the markdown of block without its trailing newline.
func source(ctx *Context, block *surface.Node) string {
	e := ctx.Engine
	return strings.TrimSuffix(e.Oracle().Serialize(e.Mode(), block), "\n")
}

// enterAtEnd returns the paragraph an unmodified Enter ends, if any.
func enterAtEnd(ctx *Context, ev key.Event) *surface.Node {
	if !ev.Is(key.KeyEnter, key.ModNone) {
		return nil
	}
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || block.Kind != surface.KindParagraph || !s.Selection().Collapsed() || !atEnd(block, p) {
		return nil
	}
	return block
}

// tableHeader turns a paragraph that reads like a table header row into a
// table when Enter is pressed at its end.
func tableHeader(ctx *Context, ev key.Event) Result {
	block := enterAtEnd(ctx, ev)
	if block == nil {
		return Pass
	}
	text := source(ctx, block)
	if strings.Contains(text, "\n") {
		return Pass
	}
	cells, ok := headerCells(text)
	if !ok {
		return Pass
	}
	md := "|" + strings.Join(cells, "|") + surface.CaretMark + "|\n|" + strings.Repeat("---|", len(cells))
	ctx.Engine.Replace([]*surface.Node{block}, md)
	return Handled
}

// headerCells splits a "|a|b|" line into its cells.
func headerCells(line string) ([]string, bool) {
	t := strings.TrimSpace(line)
	if len(t) < 2 || t[0] != '|' || t[len(t)-1] != '|' || t[len(t)-2] == '\\' {
		return nil, false
	}
	var (
		cells  []string
		cur    strings.Builder
		filled bool
	)
	inner := t[1 : len(t)-1]
	for i := 0; i < len(inner); i++ {
		switch {
		case inner[i] == '\\' && i+1 < len(inner):
			cur.WriteByte(inner[i])
			cur.WriteByte(inner[i+1])
			i++
		case inner[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(inner[i])
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	for _, c := range cells {
		if c != "" {
			filled = true
		}
	}
	return cells, filled
}

// ruleCompletion finishes a thematic break or a setext heading underline
// and moves the caret into a new paragraph below it.
func ruleCompletion(ctx *Context, ev key.Event) Result {
	if !ev.Is(key.KeyEnter, key.ModNone) {
		return Pass
	}
	s := ctx.Surface()
	if block, _ := caretBlock(s); block != nil && block.Kind == surface.KindThematicBreak {
		para := paragraph()
		block.InsertAfter(para)
		s.CaretAtStartOf(para)
		ctx.Engine.AfterMutation()
		return Handled
	}

	block := enterAtEnd(ctx, ev)
	if block == nil {
		return Pass
	}
	text := source(ctx, block)
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	setext := len(lines) > 1 && setextRe.MatchString(last)
	if !setext && !ruleRe.MatchString(last) {
		return Pass
	}
	ctx.Engine.Replace([]*surface.Node{block}, text+"\n\n"+surface.CaretMark)
	return Handled
}

// headingEnter ends a heading. The text after the caret, if any, moves into
// a new paragraph below; at the heading's start a paragraph is opened above.
func headingEnter(ctx *Context, ev key.Event) Result {
	if !ev.Is(key.KeyEnter, key.ModNone) {
		return Pass
	}
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || block.Kind != surface.KindHeading {
		return Pass
	}
	if s.DeleteSelection() {
		p = s.Caret()
	}
	before, after := surface.SplitText(block, p)
	if m := block.FirstChild(); m != nil && m.Kind == surface.KindMarker {
		before = strings.TrimPrefix(before, m.Text)
	}

	switch {
	case after == "":
		para := paragraph()
		block.InsertAfter(para)
		s.CaretAtStartOf(para)
		ctx.Engine.AfterMutation()
	case before == "":
		block.InsertBefore(paragraph())
		ctx.Engine.AfterMutation()
	default:
		_, right := s.SplitBlock()
		right.Kind = surface.KindParagraph
		right.Attrs = surface.Attrs{}
		ctx.Engine.ReconcileAt(right)
	}
	return Handled
}
