// Package reconcile keeps a mode's surface consistent with its markdown.
//
// Each qualifying edit runs one cycle: the caret is anchored, the smallest
// block that must change is resolved, serialized and re-rendered by the
// oracle, the result is spliced in place of the old block, the caret is
// restored from the anchor, adjacent blocks of the same kind are merged and
// the debounced side effects are armed.
//
// An entry guard sits in front of the cycle. While an IME composition is in
// progress nothing is re-rendered; after the engine's own synthetic edits
// the echoing input event is swallowed once.
package reconcile

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/effects"
	"github.com/dshills/inkstorm/internal/marker"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/scope"
	"github.com/dshills/inkstorm/internal/surface"
)

// Engine reconciles one surface.
type Engine struct {
	mode     oracle.Mode
	oracle   oracle.Oracle
	surface  *surface.Surface
	anchor   marker.Anchor
	resolver scope.Resolver
	pipeline *effects.Pipeline
	logger   *log.Logger

	observers []Observer
	after     []func(root *surface.Node)
	autoPairs string

	entry Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithPrefix("reconcile")
		}
	}
}

// WithAnchor replaces the sentinel anchor.
func WithAnchor(a marker.Anchor) Option {
	return func(e *Engine) { e.anchor = a }
}

// WithResolver replaces the scope resolver.
func WithResolver(r scope.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithPipeline sets the side-effect pipeline armed after every cycle.
func WithPipeline(p *effects.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithObserver adds a cycle observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithAfterReconcile adds a hook run on the settled tree after every cycle,
// before side effects are armed.
func WithAfterReconcile(fn func(root *surface.Node)) Option {
	return func(e *Engine) { e.after = append(e.after, fn) }
}

// WithAutoPairs sets the characters treated as host auto-pairing noise.
func WithAutoPairs(chars string) Option {
	return func(e *Engine) { e.autoPairs = chars }
}

// New creates an Engine for mode over s.
func New(mode oracle.Mode, o oracle.Oracle, s *surface.Surface, opts ...Option) *Engine {
	e := &Engine{
		mode:      mode,
		oracle:    o,
		surface:   s,
		anchor:    marker.Sentinel{},
		logger:    log.New(io.Discard),
		autoPairs: DefaultAutoPairs,
	}
	if mode == oracle.SV {
		e.resolver = scope.Source{}
	} else {
		e.resolver = scope.Blocks{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the mode the engine renders for.
func (e *Engine) Mode() oracle.Mode { return e.mode }

// Surface returns the surface the engine owns.
func (e *Engine) Surface() *surface.Surface { return e.surface }

// Oracle returns the oracle the engine renders with.
func (e *Engine) Oracle() oracle.Oracle { return e.oracle }

// Entry returns the state of the entry guard.
func (e *Engine) Entry() Entry { return e.entry }

// CompositionStart holds reconciliation until CompositionEnd. A pending
// side-effect flush is dropped; CompositionEnd arms a new one once the
// composed text is reconciled.
func (e *Engine) CompositionStart() {
	e.entry = Composing
	if e.pipeline != nil {
		e.pipeline.Stop()
	}
}

// CompositionEnd releases the guard and reconciles the composed text.
func (e *Engine) CompositionEnd() {
	if e.entry != Composing {
		return
	}
	e.entry = Ready
	e.Reconcile()
}

// MarkReplay swallows the next input event.
func (e *Engine) MarkReplay() {
	e.entry = Replaying
}

// Input applies ev to the surface and reconciles when it qualifies. It
// reports whether a cycle ran.
func (e *Engine) Input(ev InputEvent) bool {
	switch e.entry {
	case Replaying:
		e.entry = Ready
		e.arm()
		return false
	case Composing:
		e.apply(ev)
		return false
	}

	e.apply(ev)
	if ev.Kind == InsertComposition {
		return false
	}
	if e.autoPair(ev) {
		e.logger.Debug("auto-pair ignored", "data", ev.Data)
		e.arm()
		return false
	}
	if suppressed(e.surface, ev) {
		e.arm()
		return false
	}
	e.Reconcile()
	return true
}

func (e *Engine) autoPair(ev InputEvent) bool {
	if ev.Kind != InsertText || e.autoPairs == "" {
		return false
	}
	r := []rune(ev.Data)
	return len(r) == 1 && strings.ContainsRune(e.autoPairs, r[0])
}

func (e *Engine) apply(ev InputEvent) {
	s := e.surface
	if !s.Valid() {
		s.CaretAtEnd()
	}
	switch ev.Kind {
	case InsertText, InsertFromPaste, InsertComposition:
		s.InsertText(ev.Data)
	case DeleteBackward:
		if s.DeleteBackward() == surface.AtBlockBoundary {
			if block := surface.TextBlock(s.Caret().Node); block != nil {
				s.MergeIntoPrevious(block)
			}
		}
	case DeleteForward:
		if s.DeleteForward() == surface.AtBlockBoundary {
			block := surface.TextBlock(s.Caret().Node)
			if block == nil {
				return
			}
			if next := s.NextTextBlock(block); next != nil {
				p := s.Caret()
				if s.MergeIntoPrevious(next) {
					s.SetCaret(p.Node, p.Offset)
				}
			}
		}
	}
}

// Reconcile runs a cycle for the block holding the caret.
func (e *Engine) Reconcile() {
	s := e.surface
	if !s.Valid() {
		s.CaretAtEnd()
	}
	e.ReconcileAt(s.Caret().Node)
}

// ReconcileAt runs a cycle for the scope of n.
func (e *Engine) ReconcileAt(n *surface.Node) {
	s := e.surface
	if !s.Valid() {
		s.CaretAtEnd()
	}
	e.anchor.Place(s)
	sc := e.resolver.Resolve(s.Root, n)
	e.observe(ScopeResolved)

	text := e.oracle.Serialize(e.mode, sc.Nodes...)
	nodes := e.oracle.Render(e.mode, text)
	e.observe(OracleCalled)

	e.splice(sc, nodes)
	e.logger.Debug("reconciled", "mode", e.mode, "scope", sc.Kind, "blocks", len(nodes))
	e.restore(nodes)
	e.settle()
}

// Replace renders markdown and splices it in place of old. A caret mark in
// markdown becomes the new caret; without one the caret goes to the end of
// the new blocks. old must be adjacent siblings; when it is empty the
// whole surface is replaced.
func (e *Engine) Replace(old []*surface.Node, markdown string) {
	var sc scope.Scope
	if len(old) == 0 {
		sc = scope.Whole(e.surface.Root)
	} else {
		sc = scope.Scope{Nodes: old, Kind: old[0].Kind}
	}
	e.observe(ScopeResolved)
	nodes := e.oracle.Render(e.mode, markdown)
	e.observe(OracleCalled)
	e.splice(sc, nodes)
	e.restore(nodes)
	e.settle()
}

// Load replaces the whole surface with markdown without arming side
// effects.
func (e *Engine) Load(markdown string) {
	s := e.surface
	s.Root.SetChildren(e.oracle.Render(e.mode, markdown)...)
	if !e.anchor.Restore(s.Root, s) {
		s.CaretAtStart()
	}
	e.normalize()
}

// Value serializes the whole surface.
func (e *Engine) Value() string {
	return e.oracle.Serialize(e.mode, e.surface.Root)
}

// AfterMutation settles a tree that a handler edited directly.
func (e *Engine) AfterMutation() {
	if !e.surface.Valid() {
		e.surface.CaretAtEnd()
	}
	e.settle()
}

// Arm arms side effects without touching the tree.
func (e *Engine) Arm() { e.arm() }

func (e *Engine) splice(sc scope.Scope, nodes []*surface.Node) {
	expanded := expandedFences(sc.Nodes)
	if sc.Whole || len(sc.Nodes) == 0 {
		e.surface.Root.SetChildren(nodes...)
	} else {
		for _, n := range sc.Nodes[1:] {
			n.Remove()
		}
		sc.Nodes[0].ReplaceWith(nodes...)
	}
	carryExpanded(nodes, expanded)
	e.observe(Spliced)
}

func (e *Engine) restore(nodes []*surface.Node) {
	s := e.surface
	if !e.anchor.Restore(s.Root, s) {
		e.logger.Debug("anchor lost, using fallback", "mode", e.mode)
		marker.Fallback(s, nodes...)
	}
	e.observe(CursorRestored)
}

func (e *Engine) settle() {
	e.normalize()
	for _, fn := range e.after {
		fn(e.surface.Root)
	}
	e.arm()
	e.observe(SideEffectsArmed)
	e.observe(Idle)
}

func (e *Engine) arm() {
	if e.pipeline != nil {
		e.pipeline.Arm(e.Value)
	}
}

func (e *Engine) observe(st State) {
	for _, o := range e.observers {
		o(st)
	}
}

// normalize merges adjacent top-level blocks that markdown would read as
// one: link reference runs, footnote runs and lists of the same type.
func (e *Engine) normalize() {
	root := e.surface.Root
	for n := root.FirstChild(); n != nil; {
		next := n.Next()
		if next != nil && mergeable(n, next) {
			next.MoveChildrenTo(n)
			next.Remove()
			if n.Kind == surface.KindList {
				n.Attrs.Tight = false
			}
			continue
		}
		n = next
	}
	e.surface.EnsureBlock()
	if !e.surface.Valid() {
		e.surface.CaretAtEnd()
	}
}

func mergeable(a, b *surface.Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case surface.KindLinkRefBlock, surface.KindFootnotesBlock:
		return true
	case surface.KindList:
		return a.Attrs.Ordered == b.Attrs.Ordered &&
			a.Attrs.Bullet == b.Attrs.Bullet &&
			a.Attrs.Delim == b.Attrs.Delim
	}
	return false
}

func expandedFences(nodes []*surface.Node) []bool {
	var out []bool
	for _, n := range nodes {
		for _, f := range surface.FindAll(n, surface.OfKind(surface.KindCodeBlock, surface.KindMathBlock)) {
			out = append(out, f.Attrs.Expanded)
		}
	}
	return out
}

func carryExpanded(nodes []*surface.Node, expanded []bool) {
	i := 0
	for _, n := range nodes {
		for _, f := range surface.FindAll(n, surface.OfKind(surface.KindCodeBlock, surface.KindMathBlock)) {
			if i < len(expanded) {
				f.Attrs.Expanded = expanded[i]
			}
			i++
		}
	}
}
