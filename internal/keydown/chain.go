// Package keydown implements the structural key handling that runs before
// a key press reaches the surface.
//
// A Chain holds handlers ordered by priority. Each handler looks at the
// caret's surroundings and either performs a structural edit (splitting a
// list item, leaving a blockquote, moving between table cells) and reports
// Handled, or reports Pass and lets the next handler look. A key that every
// handler passes falls through to the host's default behaviour.
//
// Handlers that edit the tree directly finish by calling the engine's
// AfterMutation or ReconcileAt so that the caret, normalization and side
// effects stay consistent.
package keydown

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/hint"
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/reconcile"
	"github.com/dshills/inkstorm/internal/surface"
)

// Result is the outcome of a handler.
type Result uint8

const (
	// Pass lets the next handler look at the key.
	Pass Result = iota
	// Handled consumes the key.
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "pass"
}

// Handler priorities. Higher runs first.
const (
	PriorityHint     = 100
	PriorityCommand  = 90
	PriorityComplete = 80
	PriorityHeading  = 70
	PriorityList     = 60
	PriorityQuote    = 50
	PriorityFence    = 40
	PriorityTable    = 30
	PriorityTask     = 25
	PriorityPreview  = 20
	PriorityEscape   = 0
)

// DefaultIndent is inserted by Tab inside code and source.
const DefaultIndent = "    "

// Context is what a handler works on.
type Context struct {
	Engine *reconcile.Engine
	// Hint is the autocomplete session, if any.
	Hint *hint.Session
	// Bindings maps command names to key presses.
	Bindings key.Bindings
	// Indent is inserted by Tab where Tab inserts text.
	Indent string
	// Esc is called for an Escape nothing else consumed.
	Esc func()
	// EchoesEdits is set when the host reports the engine's own edits back
	// as input events.
	EchoesEdits bool
}

// Surface returns the surface being edited.
func (c *Context) Surface() *surface.Surface { return c.Engine.Surface() }

func (c *Context) indent() string {
	if c.Indent == "" {
		return DefaultIndent
	}
	return c.Indent
}

// Handler handles key presses.
type Handler interface {
	Handle(ctx *Context, ev key.Event) Result
	Name() string
	Priority() int
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc struct {
	name string
	prio int
	fn   func(*Context, key.Event) Result
}

// NewHandlerFunc creates a named handler with the given priority.
func NewHandlerFunc(name string, priority int, fn func(*Context, key.Event) Result) *HandlerFunc {
	return &HandlerFunc{name: name, prio: priority, fn: fn}
}

// Handle implements Handler.
func (h *HandlerFunc) Handle(ctx *Context, ev key.Event) Result {
	if h.fn == nil {
		return Pass
	}
	return h.fn(ctx, ev)
}

// Name implements Handler.
func (h *HandlerFunc) Name() string { return h.name }

// Priority implements Handler.
func (h *HandlerFunc) Priority() int { return h.prio }

// Chain runs handlers in priority order until one handles the key.
type Chain struct {
	handlers []Handler
	logger   *log.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l.WithPrefix("keydown")
		}
	}
}

// WithHandlers adds handlers to the chain.
func WithHandlers(hs ...Handler) Option {
	return func(c *Chain) {
		for _, h := range hs {
			c.Add(h)
		}
	}
}

// NewChain creates an empty chain.
func NewChain(opts ...Option) *Chain {
	c := &Chain{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add inserts h after every handler of equal or higher priority.
func (c *Chain) Add(h Handler) {
	i := slices.IndexFunc(c.handlers, func(o Handler) bool { return o.Priority() < h.Priority() })
	if i < 0 {
		c.handlers = append(c.handlers, h)
		return
	}
	c.handlers = slices.Insert(c.handlers, i, h)
}

// Names returns the handler names in the order they run.
func (c *Chain) Names() []string {
	names := make([]string, len(c.handlers))
	for i, h := range c.handlers {
		names[i] = h.Name()
	}
	return names
}

// Handle offers ev to each handler in turn.
func (c *Chain) Handle(ctx *Context, ev key.Event) Result {
	if ctx == nil || ctx.Engine == nil {
		return Pass
	}
	s := ctx.Surface()
	if !s.Valid() {
		s.CaretAtEnd()
	}
	for _, h := range c.handlers {
		if h.Handle(ctx, ev) == Handled {
			c.logger.Debug("key handled", "key", ev, "handler", h.Name())
			return Handled
		}
	}
	return Pass
}

// Rich returns the chain for the WYSIWYG and IR modes.
func Rich(opts ...Option) *Chain {
	c := NewChain(opts...)
	c.Add(NewHandlerFunc("hint", PriorityHint, hintKeys))
	c.Add(NewHandlerFunc("command", PriorityCommand, commands))
	c.Add(NewHandlerFunc("table-header", PriorityComplete, tableHeader))
	c.Add(NewHandlerFunc("rule", PriorityComplete, ruleCompletion))
	c.Add(NewHandlerFunc("heading", PriorityHeading, headingEnter))
	c.Add(NewHandlerFunc("list", PriorityList, listKeys))
	c.Add(NewHandlerFunc("blockquote", PriorityQuote, quoteKeys))
	c.Add(NewHandlerFunc("fence", PriorityFence, fenceKeys))
	c.Add(NewHandlerFunc("table", PriorityTable, tableKeys))
	c.Add(NewHandlerFunc("task", PriorityTask, taskClick))
	c.Add(NewHandlerFunc("preview", PriorityPreview, previews))
	c.Add(NewHandlerFunc("escape", PriorityEscape, escape))
	return c
}

// Source returns the chain for split-view source editing.
func Source(opts ...Option) *Chain {
	c := NewChain(opts...)
	c.Add(NewHandlerFunc("hint", PriorityHint, hintKeys))
	c.Add(NewHandlerFunc("command", PriorityCommand, commands))
	c.Add(NewHandlerFunc("source-enter", PriorityList, sourceEnter))
	c.Add(NewHandlerFunc("source-tab", PriorityList, sourceTab))
	c.Add(NewHandlerFunc("escape", PriorityEscape, escape))
	return c
}

func hintKeys(ctx *Context, ev key.Event) Result {
	if ctx.Hint != nil && ctx.Hint.Key(ev) {
		return Handled
	}
	return Pass
}

func escape(ctx *Context, ev key.Event) Result {
	if !ev.Is(key.KeyEscape, key.ModNone) || ctx.Esc == nil {
		return Pass
	}
	ctx.Esc()
	return Handled
}
