package keydown

import (
	"strings"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/reconcile"
	"github.com/dshills/inkstorm/internal/surface"
)

// fenceKeys keeps edits inside code and math blocks from touching the
// structure around them. Enter keeps the line's indentation, Tab indents,
// and Backspace or Delete at the content's edge never reach the fence.
func fenceKeys(ctx *Context, ev key.Event) Result {
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || !surface.Fences.Has(block.Kind) {
		return Pass
	}
	content := surface.Find(block, surface.OfKind(surface.KindText))
	if content == nil {
		content = surface.EnsureText(block)
	}
	if p.Node != content {
		// Caret on a fence marker or the info string: Enter steps into the
		// content, Backspace at the very start unwraps an empty block.
		switch {
		case ev.Is(key.KeyEnter, key.ModNone):
			s.SetCaret(content, 0)
			return Handled
		case ev.Is(key.KeyBackspace, key.ModNone) && s.Selection().Collapsed() &&
			p.Offset == 0 && p.Node == block.FirstChild():
			if content.Text == "" {
				unwrapFence(ctx, block)
			}
			return Handled
		}
		return Pass
	}

	switch {
	case ev.Is(key.KeyEnter, key.ModNone):
		before := content.Text[:p.Offset]
		line := before[strings.LastIndexByte(before, '\n')+1:]
		ctx.Engine.Input(reconcile.Text("\n" + lineIndent(line)))
	case ev.Is(key.KeyTab, key.ModNone):
		ctx.Engine.Input(reconcile.Text(ctx.indent()))
	case ev.Is(key.KeyTab, key.ModShift):
		if dedent(content, p, ctx.indent(), s) {
			ctx.Engine.AfterMutation()
		}
	case ev.Is(key.KeyBackspace, key.ModNone):
		if !s.Selection().Collapsed() || p.Offset > 0 {
			return Pass
		}
		if content.Text == "" {
			unwrapFence(ctx, block)
		}
	case ev.Is(key.KeyDelete, key.ModNone):
		if !s.Selection().Collapsed() || p.Offset < len(content.Text) {
			return Pass
		}
	default:
		return Pass
	}
	return Handled
}

// unwrapFence replaces an empty fence with an empty paragraph.
func unwrapFence(ctx *Context, block *surface.Node) {
	para := paragraph()
	block.ReplaceWith(para)
	ctx.Surface().CaretAtStartOf(para)
	ctx.Engine.AfterMutation()
}

// dedent removes up to one indent from the start of the caret's line.
func dedent(leaf *surface.Node, p surface.Point, indent string, s *surface.Surface) bool {
	start := strings.LastIndexByte(leaf.Text[:p.Offset], '\n') + 1
	rest := leaf.Text[start:]
	n := 0
	switch {
	case strings.HasPrefix(rest, "\t"):
		n = 1
	default:
		for n < len(indent) && n < len(rest) && rest[n] == ' ' {
			n++
		}
	}
	if n == 0 {
		return false
	}
	leaf.Text = leaf.Text[:start] + rest[n:]
	s.SetCaret(leaf, max(start, p.Offset-n))
	return true
}
