package keydown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/surface"
)

var (
	itemLineRe  = regexp.MustCompile(`^([ \t]*)(?:([-*+])|([0-9]{1,9})([.)]))([ \t]+)(\[[ xX]\][ \t]+)?`)
	quoteLineRe = regexp.MustCompile(`^[ \t]*(?:>[ \t]?)+`)
)

// continuation returns the block syntax that starts line and the syntax the
// next line should start with.
func continuation(line string) (prefix, next string) {
	if m := itemLineRe.FindStringSubmatch(line); m != nil {
		prefix = m[0]
		if m[2] != "" {
			next = m[1] + m[2] + m[5]
		} else {
			n, _ := strconv.Atoi(m[3])
			next = m[1] + strconv.Itoa(n+1) + m[4] + m[5]
		}
		if m[6] != "" {
			next += "[ ] "
		}
		return prefix, next
	}
	if q := quoteLineRe.FindString(line); q != "" {
		if !strings.HasSuffix(q, " ") {
			return q, q + " "
		}
		return q, q
	}
	return "", ""
}

// sourceEnter continues list and blockquote syntax on the next line. Enter
// on a line holding nothing but that syntax clears it instead.
func sourceEnter(ctx *Context, ev key.Event) Result {
	if !ev.Is(key.KeyEnter, key.ModNone) {
		return Pass
	}
	s := ctx.Surface()
	block, _ := caretBlock(s)
	if block == nil || block.Kind != surface.KindSource {
		return Pass
	}
	s.DeleteSelection()
	line := s.CurrentLine()
	prefix, next := continuation(line.Before)
	switch {
	case prefix == "":
		s.InsertText("\n" + lineIndent(line.Before))
	case line.Before == prefix && strings.TrimSpace(line.After) == "":
		s.DeleteBytesBefore(len(line.Before))
	default:
		s.InsertText("\n" + next)
	}
	ctx.Engine.Reconcile()
	return Handled
}

// sourceTab indents list lines as a whole and inserts indentation
// elsewhere. Shift+Tab removes one indent from the line start.
func sourceTab(ctx *Context, ev key.Event) Result {
	s := ctx.Surface()
	block, p := caretBlock(s)
	if block == nil || block.Kind != surface.KindSource || p.Node.Kind != surface.KindText {
		return Pass
	}
	indent := ctx.indent()
	switch {
	case ev.Is(key.KeyTab, key.ModNone):
		line := s.CurrentLine()
		if !s.Selection().Collapsed() || !itemLineRe.MatchString(line.Text()) {
			s.InsertText(indent)
			break
		}
		leaf := p.Node
		start := p.Offset - len(line.Before)
		if start < 0 {
			s.InsertText(indent)
			break
		}
		leaf.Text = leaf.Text[:start] + indent + leaf.Text[start:]
		s.SetCaret(leaf, p.Offset+len(indent))
	case ev.Is(key.KeyTab, key.ModShift):
		if !dedent(p.Node, p, indent, s) {
			return Handled
		}
	default:
		return Pass
	}
	ctx.Engine.AfterMutation()
	return Handled
}
