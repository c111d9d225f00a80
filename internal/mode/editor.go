// Package mode holds the Mode Controller and the three editing modes it
// switches between.
//
// Each mode is an EditorMode strategy that owns its own surface and
// reconciliation engine. Switching serializes the outgoing surface to
// markdown and renders that text into a fresh surface for the incoming
// mode, so two modes never share a live tree.
package mode

import (
	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/keydown"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/reconcile"
	"github.com/dshills/inkstorm/internal/scope"
	"github.com/dshills/inkstorm/internal/surface"
)

// EditorMode is the strategy behind one editing mode.
type EditorMode interface {
	// Mode names the strategy.
	Mode() oracle.Mode
	// Engine returns the mode's reconciliation engine.
	Engine() *reconcile.Engine
	// Root returns the root of the mode's surface.
	Root() *surface.Node
	// ResolveScope returns the blocks a change at n re-renders.
	ResolveScope(n *surface.Node) scope.Scope
	// Serialize returns the markdown of nodes.
	Serialize(nodes ...*surface.Node) string
	// HandleKeydown runs ev through the mode's structural key handlers.
	HandleKeydown(ctx *keydown.Context, ev key.Event) keydown.Result
	// DefaultKey performs the plain editing action of a key no handler
	// took. edited reports whether text changed.
	DefaultKey(ctx *keydown.Context, ev key.Event) (handled, edited bool)
}

type builder func(o oracle.Oracle, l *log.Logger, opts ...reconcile.Option) EditorMode

var strategies = map[oracle.Mode]builder{
	oracle.WYSIWYG: newWYSIWYG,
	oracle.IR:      newIR,
	oracle.SV:      newSV,
}

type base struct {
	mode     oracle.Mode
	engine   *reconcile.Engine
	resolver scope.Resolver
	chain    *keydown.Chain
}

func newBase(m oracle.Mode, o oracle.Oracle, r scope.Resolver, chain *keydown.Chain, opts []reconcile.Option) *base {
	opts = append(opts, reconcile.WithResolver(r))
	return &base{
		mode:     m,
		engine:   reconcile.New(m, o, surface.New(), opts...),
		resolver: r,
		chain:    chain,
	}
}

func (b *base) Mode() oracle.Mode         { return b.mode }
func (b *base) Engine() *reconcile.Engine { return b.engine }
func (b *base) Root() *surface.Node       { return b.engine.Surface().Root }

func (b *base) ResolveScope(n *surface.Node) scope.Scope {
	return b.resolver.Resolve(b.Root(), n)
}

func (b *base) Serialize(nodes ...*surface.Node) string {
	return b.engine.Oracle().Serialize(b.mode, nodes...)
}

func (b *base) HandleKeydown(ctx *keydown.Context, ev key.Event) keydown.Result {
	return b.chain.Handle(ctx, ev)
}

// edit covers the keys every mode treats the same way.
func (b *base) edit(ctx *keydown.Context, ev key.Event) (handled, edited bool) {
	e := b.engine
	s := e.Surface()
	switch {
	case ev.Is(key.KeyBackspace, key.ModNone):
		e.Input(reconcile.InputEvent{Kind: reconcile.DeleteBackward})
	case ev.Is(key.KeyDelete, key.ModNone):
		e.Input(reconcile.InputEvent{Kind: reconcile.DeleteForward})
	case ev.Is(key.KeyTab, key.ModNone):
		e.Input(reconcile.Text(indentOf(ctx)))
	case ev.IsChar():
		e.Input(reconcile.Text(string(ev.Rune)))
	default:
		return b.navigate(s, ev), false
	}
	return true, true
}

func (b *base) navigate(s *surface.Surface, ev key.Event) bool {
	switch {
	case ev.Is(key.KeyLeft, key.ModNone):
		s.MoveLeft()
	case ev.Is(key.KeyRight, key.ModNone):
		s.MoveRight()
	case ev.Is(key.KeyUp, key.ModNone):
		s.MoveVertical(-1)
	case ev.Is(key.KeyDown, key.ModNone):
		s.MoveVertical(1)
	case ev.Is(key.KeyHome, key.ModNone):
		if block := surface.TextBlock(s.Caret().Node); block != nil {
			s.CaretAtStartOf(block)
		}
	case ev.Is(key.KeyEnd, key.ModNone):
		if block := surface.TextBlock(s.Caret().Node); block != nil {
			s.CaretAtEndOf(block)
		}
	case ev.Key == key.KeyClick:
	default:
		return false
	}
	return true
}

func indentOf(ctx *keydown.Context) string {
	if ctx.Indent != "" {
		return ctx.Indent
	}
	return keydown.DefaultIndent
}

// richMode is the strategy shared by the rendered modes. Enter splits the
// block and re-renders the new half; Shift+Enter breaks the line inside
// the block.
type richMode struct{ *base }

func newWYSIWYG(o oracle.Oracle, l *log.Logger, opts ...reconcile.Option) EditorMode {
	return richMode{newBase(oracle.WYSIWYG, o, scope.Blocks{}, keydown.Rich(keydown.WithLogger(l)), opts)}
}

func newIR(o oracle.Oracle, l *log.Logger, opts ...reconcile.Option) EditorMode {
	return richMode{newBase(oracle.IR, o, scope.Blocks{}, keydown.Rich(keydown.WithLogger(l)), opts)}
}

func (m richMode) DefaultKey(ctx *keydown.Context, ev key.Event) (handled, edited bool) {
	e := m.engine
	switch {
	case ev.Is(key.KeyEnter, key.ModNone):
		_, right := e.Surface().SplitBlock()
		if right == nil {
			return true, false
		}
		e.ReconcileAt(right)
		return true, true
	case ev.Is(key.KeyEnter, key.ModShift):
		e.Input(reconcile.Text("\n"))
		return true, true
	}
	return m.edit(ctx, ev)
}

// sourceMode is the split-view strategy: one raw text surface with a
// rendered preview beside it.
type sourceMode struct{ *base }

func newSV(o oracle.Oracle, l *log.Logger, opts ...reconcile.Option) EditorMode {
	return sourceMode{newBase(oracle.SV, o, scope.Source{}, keydown.Source(keydown.WithLogger(l)), opts)}
}

func (m sourceMode) DefaultKey(ctx *keydown.Context, ev key.Event) (handled, edited bool) {
	if ev.Is(key.KeyEnter, key.ModNone) || ev.Is(key.KeyEnter, key.ModShift) {
		m.engine.Input(reconcile.Text("\n"))
		return true, true
	}
	return m.edit(ctx, ev)
}
