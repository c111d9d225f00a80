package keydown

import (
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/surface"
)

// quoteKeys leaves a blockquote one layer at a time: Enter on an empty
// paragraph moves it out below the quote, Backspace at the start of the
// quote's first paragraph moves that paragraph out above.
func quoteKeys(ctx *Context, ev key.Event) Result {
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || block.Kind != surface.KindParagraph || !s.Selection().Collapsed() {
		return Pass
	}
	quote := block.Parent()
	if quote == nil || quote.Kind != surface.KindBlockquote {
		return Pass
	}

	switch {
	case ev.Is(key.KeyEnter, key.ModNone):
		if !blank(block) {
			return Pass
		}
		if after := block.Next(); after != nil {
			rest := quote.ShallowClone()
			moveFrom(after, rest)
			quote.InsertAfter(rest)
		}
		quote.InsertAfter(block)
	case ev.Is(key.KeyBackspace, key.ModNone):
		if block != quote.FirstChild() || !atStart(block, p) {
			return Pass
		}
		quote.InsertBefore(block)
	default:
		return Pass
	}

	if !quote.HasChildren() {
		quote.Remove()
	}
	s.CaretAtStartOf(block)
	ctx.Engine.AfterMutation()
	return Handled
}
