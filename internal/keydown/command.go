package keydown

import (
	"strings"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/surface"
)

// Commands that can be bound to keys.
const (
	CmdBold           = "bold"
	CmdItalic         = "italic"
	CmdStrike         = "strike"
	CmdInlineCode     = "inline-code"
	CmdHeadingUp      = "heading-up"
	CmdHeadingDown    = "heading-down"
	CmdToggleCheck    = "toggle-check"
	CmdInsertTableRow = "insert-table-row"
	CmdDeleteTableRow = "delete-table-row"
)

// DefaultHotkeys binds every command to its default key.
var DefaultHotkeys = map[string]string{
	CmdBold:           "Ctrl+B",
	CmdItalic:         "Ctrl+I",
	CmdStrike:         "Ctrl+D",
	CmdInlineCode:     "Ctrl+G",
	CmdHeadingUp:      "Ctrl+=",
	CmdHeadingDown:    "Ctrl+-",
	CmdToggleCheck:    "Ctrl+J",
	CmdInsertTableRow: "Ctrl+Enter",
	CmdDeleteTableRow: "Ctrl+Shift+Backspace",
}

// DefaultBindings returns DefaultHotkeys parsed.
func DefaultBindings() key.Bindings {
	b := make(key.Bindings, len(DefaultHotkeys))
	for cmd, spec := range DefaultHotkeys {
		b[cmd] = key.MustParse(spec)
	}
	return b
}

var inlineDelims = map[string]struct {
	kind  surface.Kind
	delim string
}{
	CmdBold:       {surface.KindStrong, "**"},
	CmdItalic:     {surface.KindEmphasis, "*"},
	CmdStrike:     {surface.KindStrike, "~~"},
	CmdInlineCode: {surface.KindCodeSpan, "`"},
}

func commands(ctx *Context, ev key.Event) Result {
	bindings := ctx.Bindings
	if bindings == nil {
		bindings = DefaultBindings()
	}
	cmd, ok := bindings.Lookup(ev)
	if !ok {
		return Pass
	}
	if d, ok := inlineDelims[cmd]; ok {
		return wrap(ctx, d.kind, d.delim)
	}
	switch cmd {
	case CmdHeadingUp:
		return headingLevel(ctx, -1)
	case CmdHeadingDown:
		return headingLevel(ctx, 1)
	case CmdToggleCheck:
		return toggleTask(ctx)
	case CmdInsertTableRow:
		return insertRow(ctx)
	case CmdDeleteTableRow:
		return deleteRow(ctx)
	}
	return Pass
}

// wrap surrounds the selection with delim, or removes the formatting when
// the caret already sits inside it.
func wrap(ctx *Context, kind surface.Kind, delim string) Result {
	s := ctx.Surface()
	r := s.Selection()
	block := surface.TextBlock(r.Start.Node)
	if block == nil || surface.Fences.Has(block.Kind) {
		return Pass
	}
	if surface.TextBlock(r.End.Node) != block {
		return Handled
	}
	if r.Collapsed() {
		if f := surface.Closest(r.End.Node, surface.KindSetOf(kind)); f != nil && block.Contains(f) {
			unwrap(s, f)
			ctx.Engine.ReconcileAt(block)
			return Handled
		}
	}

	from := surface.OffsetIn(block, r.Start)
	to := surface.OffsetIn(block, r.End)
	selected := block.TextContent()[from:to]
	s.DeleteSelection()
	s.InsertText(delim + selected + delim)
	p := surface.PointAt(block, from+len(delim)+len(selected))
	s.SetCaret(p.Node, p.Offset)
	ctx.Engine.ReconcileAt(block)
	return Handled
}

// unwrap replaces f with its content, dropping delimiter markers.
func unwrap(s *surface.Surface, f *surface.Node) {
	caret := s.Caret()
	var keep []*surface.Node
	for c := f.FirstChild(); c != nil; c = c.Next() {
		if c.Kind != surface.KindMarker {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		keep = []*surface.Node{surface.NewText("")}
	}
	movedCaret := caret.Node.Kind == surface.KindMarker && f.Contains(caret.Node)
	f.ReplaceWith(keep...)
	if movedCaret {
		s.CaretAtStartOf(keep[0])
	}
}

// headingLevel moves the caret's block one heading level. Going up, a
// paragraph becomes a level 6 heading and level 1 stays; going down, level
// 6 becomes a paragraph.
func headingLevel(ctx *Context, dir int) Result {
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || (block.Kind != surface.KindParagraph && block.Kind != surface.KindHeading) {
		return Pass
	}
	level := block.Attrs.Level
	if block.Kind == surface.KindParagraph {
		level = 0
	}
	next := level
	switch {
	case dir < 0 && level == 0:
		next = 6
	case dir < 0:
		next = max(level-1, 1)
	case level > 0:
		next = (level + 1) % 7
	}
	if next == level {
		return Handled
	}

	marker := block.FirstChild()
	if marker != nil && marker.Kind != surface.KindMarker {
		marker = nil
	}
	ir := marker != nil || ctx.Engine.Mode() == oracle.IR

	if next == 0 {
		block.Kind = surface.KindParagraph
		block.Attrs = surface.Attrs{}
		if marker != nil {
			marker.Remove()
			if p.Node == marker {
				s.CaretAtStartOf(block)
			}
		}
	} else {
		block.Kind = surface.KindHeading
		block.Attrs.Level = next
		prefix := strings.Repeat("#", next) + " "
		switch {
		case marker != nil:
			marker.Text = prefix
			if p.Node == marker {
				s.SetCaret(marker, min(p.Offset, len(prefix)))
			}
		case ir:
			block.PrependChild(surface.NewMarker(prefix))
		}
	}
	if !s.Valid() {
		s.CaretAtEndOf(block)
	}
	ctx.Engine.ReconcileAt(block)
	return Handled
}

func toggleTask(ctx *Context) Result {
	s := ctx.Surface()
	block, _ := caretBlock(s)
	if block == nil {
		return Pass
	}
	t := task(block)
	if t == nil {
		return Pass
	}
	t.Attrs.Checked = !t.Attrs.Checked
	if ctx.EchoesEdits {
		ctx.Engine.MarkReplay()
	}
	ctx.Engine.AfterMutation()
	return Handled
}

// taskClick toggles a task when its checkbox is clicked. The host puts the
// caret right after the checkbox for such a click.
func taskClick(ctx *Context, ev key.Event) Result {
	if ev.Key != key.KeyClick {
		return Pass
	}
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || task(block) == nil || !s.Selection().Collapsed() || !atStart(block, p) {
		return Pass
	}
	return toggleTask(ctx)
}

// previews moves the caret for arrow keys and clicks and opens the code or
// math block the caret lands in, closing any other.
func previews(ctx *Context, ev key.Event) Result {
	s := ctx.Surface()
	switch {
	case ev.Is(key.KeyUp, key.ModNone):
		s.MoveVertical(-1)
	case ev.Is(key.KeyDown, key.ModNone):
		if !s.MoveVertical(1) {
			block, _ := caretBlock(s)
			if block != nil && block.Kind != surface.KindParagraph {
				para := paragraph()
				s.Root.AppendChild(para)
				s.CaretAtStartOf(para)
				ctx.Engine.AfterMutation()
			}
		}
	case ev.Is(key.KeyLeft, key.ModNone):
		s.MoveLeft()
	case ev.Is(key.KeyRight, key.ModNone):
		s.MoveRight()
	case ev.Key == key.KeyClick:
	default:
		return Pass
	}
	syncPreviews(s)
	return Handled
}

// syncPreviews expands the fence holding the caret and collapses the rest.
func syncPreviews(s *surface.Surface) {
	open := surface.Closest(s.Caret().Node, surface.Fences)
	for _, f := range surface.FindAll(s.Root, surface.OfKind(surface.KindCodeBlock, surface.KindMathBlock)) {
		f.Attrs.Expanded = f == open
	}
}
