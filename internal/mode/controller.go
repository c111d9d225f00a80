package mode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/effects"
	"github.com/dshills/inkstorm/internal/hint"
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/keydown"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/outline"
	"github.com/dshills/inkstorm/internal/reconcile"
	"github.com/dshills/inkstorm/internal/surface"
	"github.com/dshills/inkstorm/internal/upload"
)

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("controller closed")

// DefaultDebounce is the quiet time before side effects run.
const DefaultDebounce = 800 * time.Millisecond

// Hooks are the host callbacks. They run with the controller locked and
// must not call back into it.
type Hooks struct {
	// Input receives the canonical text once edits settle.
	Input func(text string)
	Focus func(text string)
	Blur  func(text string)
	// Esc receives an Escape that nothing else consumed.
	Esc func()
	// Snapshot receives the surface after every reconciliation.
	Snapshot func(root *surface.Node)
	// Uploaded reports the end of an upload started by Drop or Paste.
	Uploaded func(name string, err error)
	// Hint is called whenever the hint list opens, moves or closes.
	Hint func()
}

// Controller owns the active editing mode and routes host events to it.
// It is safe for concurrent use; every entry point and every timer
// callback holds the same lock.
type Controller struct {
	mu sync.Mutex

	oracle    *oracle.Markdown
	sched     effects.Scheduler
	delay     time.Duration
	sinks     []effects.Sink
	pipeline  *effects.Pipeline
	hintOpts  []hint.Option
	hint      *hint.Session
	bindings  key.Bindings
	indent    string
	autoPairs string
	echoes    bool
	hooks     Hooks
	uploader  upload.Uploader
	outline   *outline.Outline
	preview   *Preview
	logger    *log.Logger

	initial oracle.Mode
	active  EditorMode
	kctx    *keydown.Context
	scroll  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMode sets the mode the controller starts in.
func WithMode(m oracle.Mode) Option {
	return func(c *Controller) { c.initial = m }
}

// WithOracle sets the markdown oracle.
func WithOracle(o *oracle.Markdown) Option {
	return func(c *Controller) { c.oracle = o }
}

// WithScheduler sets the scheduler behind every debounce.
func WithScheduler(s effects.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithDebounce sets the side-effect delay. Zero runs side effects right
// after each edit.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.delay = d }
}

// WithSinks adds side-effect sinks, such as a store.FileCache.
func WithSinks(sinks ...effects.Sink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, sinks...) }
}

// WithCounter reports the document length after edits settle.
func WithCounter(max int, report func(count int, over bool)) Option {
	return WithSinks(effects.Counter{Max: max, Report: report})
}

// WithHints configures the hint session: triggers, delay and limits.
func WithHints(opts ...hint.Option) Option {
	return func(c *Controller) { c.hintOpts = append(c.hintOpts, opts...) }
}

// WithBindings sets the command hotkeys.
func WithBindings(b key.Bindings) Option {
	return func(c *Controller) { c.bindings = b }
}

// WithIndent sets the text Tab inserts.
func WithIndent(s string) Option {
	return func(c *Controller) { c.indent = s }
}

// WithAutoPairs sets the characters ignored as host auto-pairing.
func WithAutoPairs(chars string) Option {
	return func(c *Controller) { c.autoPairs = chars }
}

// WithEchoedEdits tells the controller the host reports the engine's own
// edits back as input.
func WithEchoedEdits() Option {
	return func(c *Controller) { c.echoes = true }
}

// WithHooks sets the host callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// WithUploader sets the collaborator for pasted and dropped files.
func WithUploader(u upload.Uploader) Option {
	return func(c *Controller) { c.uploader = u }
}

// WithOutline keeps o in step with the document.
func WithOutline(o *outline.Outline) Option {
	return func(c *Controller) { c.outline = o }
}

// WithPreview renders the split-view preview into p after edits settle.
func WithPreview(p *Preview) Option {
	return func(c *Controller) { c.preview = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller with an empty document.
func New(opts ...Option) *Controller {
	c := &Controller{
		delay:     DefaultDebounce,
		bindings:  keydown.DefaultBindings(),
		indent:    keydown.DefaultIndent,
		autoPairs: reconcile.DefaultAutoPairs,
		logger:    log.New(io.Discard),
		initial:   oracle.WYSIWYG,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.oracle == nil {
		c.oracle = oracle.New(oracle.WithLogger(c.logger))
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	sinks := append([]effects.Sink(nil), c.sinks...)
	if c.hooks.Input != nil {
		sinks = append(sinks, effects.Notify(c.hooks.Input))
	}
	if c.preview != nil {
		sinks = append(sinks, effects.SinkFunc(c.renderPreview))
	}
	c.pipeline = effects.NewPipeline(c.sched, c.delay,
		effects.WithLocker(&c.mu),
		effects.WithLogger(c.logger),
		effects.WithSinks(sinks...),
	)

	hintOpts := append([]hint.Option{hint.WithLogger(c.logger)}, c.hintOpts...)
	hintOpts = append(hintOpts,
		hint.WithLocker(&c.mu),
		hint.OnSelect(c.applyHint),
		hint.OnChange(c.hintChanged),
	)
	c.hint = hint.NewSession(hintOpts...)

	build, ok := strategies[c.initial]
	if !ok {
		c.logger.Warn("unknown initial mode, using wysiwyg", "mode", c.initial)
		build = strategies[oracle.WYSIWYG]
	}
	c.install(build, "")
	return c
}

// install makes a fresh mode from build the active one and loads text
// into it. The caller holds the lock.
func (c *Controller) install(build builder, text string) {
	m := build(c.oracle, c.logger,
		reconcile.WithLogger(c.logger),
		reconcile.WithPipeline(c.pipeline),
		reconcile.WithAutoPairs(c.autoPairs),
		reconcile.WithAfterReconcile(c.afterReconcile),
	)
	c.active = m
	c.kctx = &keydown.Context{
		Engine:      m.Engine(),
		Hint:        c.hint,
		Bindings:    c.bindings,
		Indent:      c.indent,
		Esc:         c.hooks.Esc,
		EchoesEdits: c.echoes,
	}
	c.load(text)
}

func (c *Controller) load(text string) {
	c.active.Engine().Load(text)
	c.afterReconcile(c.active.Root())
}

func (c *Controller) afterReconcile(root *surface.Node) {
	if c.outline != nil {
		if c.active.Mode() == oracle.SV {
			// Source blocks carry no headings; read them from a rendering.
			blocks := c.oracle.Render(oracle.WYSIWYG, c.active.Engine().Value())
			c.outline.Regenerate(surface.NewBlock(surface.KindDocument, blocks...))
		} else {
			c.outline.Regenerate(root)
		}
	}
	if c.hooks.Snapshot != nil {
		c.hooks.Snapshot(root)
	}
}

func (c *Controller) renderPreview(text string) error {
	if c.active == nil || c.active.Mode() != oracle.SV {
		return nil
	}
	return c.preview.Settled(text)
}

func (c *Controller) hintChanged() {
	if c.hooks.Hint != nil {
		c.hooks.Hint()
	}
}

// SetValue replaces the document. Side effects are not armed.
func (c *Controller) SetValue(markdown string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.hint.Close()
	c.load(markdown)
	return nil
}

// Value returns the canonical markdown of the document.
func (c *Controller) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Engine().Value()
}

// Mode returns the active mode.
func (c *Controller) Mode() oracle.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Mode()
}

// Switch makes m the active mode. The document is carried over as text;
// the outgoing surface is dropped.
func (c *Controller) Switch(m oracle.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	build, ok := strategies[m]
	if !ok {
		return fmt.Errorf("switch to %s: %w", m, oracle.ErrUnknownMode)
	}
	from := c.active.Mode()
	if from == m {
		return nil
	}
	c.hint.Close()
	c.pipeline.Flush()
	c.install(build, c.active.Engine().Value())
	c.logger.Info("mode switched", "from", from, "to", m)
	return nil
}

// Key handles one key press. It reports whether the press was consumed;
// an unconsumed press is left to the host.
func (c *Controller) Key(ev key.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.key(ev)
}

func (c *Controller) key(ev key.Event) bool {
	if c.active.Engine().Entry() == reconcile.Composing {
		return false
	}
	hintOpen := c.hint.State() == hint.Open

	handled, edited := false, false
	if c.active.HandleKeydown(c.kctx, ev) == keydown.Handled {
		handled = true
		edited = !ev.Key.IsNavigation()
	} else {
		handled, edited = c.active.DefaultKey(c.kctx, ev)
	}

	switch {
	case ev.Is(key.KeyEscape, key.ModNone):
	case hintOpen && (ev.Is(key.KeyUp, key.ModNone) || ev.Is(key.KeyDown, key.ModNone)):
	case edited:
		c.updateHint()
	default:
		c.hint.Close()
	}
	return handled
}

// Type presses the keys that spell text. Newlines press Enter and tabs
// press Tab.
func (c *Controller) Type(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, r := range text {
		switch r {
		case '\n':
			c.key(key.Special(key.KeyEnter, key.ModNone))
		case '\t':
			c.key(key.Special(key.KeyTab, key.ModNone))
		default:
			c.key(key.RuneEvent(r, key.ModNone))
		}
	}
}

// Input delivers a raw input event from the host, bypassing key handling.
func (c *Controller) Input(ev reconcile.InputEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.active.Engine().Input(ev)
	c.updateHint()
}

// CompositionStart marks the start of an IME composition.
func (c *Controller) CompositionStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.hint.Close()
	c.active.Engine().CompositionStart()
}

// CompositionUpdate inserts composed text without reconciling.
func (c *Controller) CompositionUpdate(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.active.Engine().Input(reconcile.InputEvent{Kind: reconcile.InsertComposition, Data: text})
}

// CompositionEnd ends the composition and reconciles the composed text.
func (c *Controller) CompositionEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.active.Engine().CompositionEnd()
	c.updateHint()
}

// Focus reports that the editor gained focus.
func (c *Controller) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.hooks.Focus != nil {
		c.hooks.Focus(c.active.Engine().Value())
	}
}

// Blur reports that the editor lost focus. The hint list closes.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.hint.Close()
	if c.hooks.Blur != nil {
		c.hooks.Blur(c.active.Engine().Value())
	}
}

// Scroll records the first visible line of the surface.
func (c *Controller) Scroll(top int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if top < 0 {
		top = 0
	}
	c.scroll = top
}

// ScrollTop returns the first visible line.
func (c *Controller) ScrollTop() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scroll
}

// View calls fn with the active mode and the hint session while holding
// the lock. fn must not call back into the controller.
func (c *Controller) View(fn func(m EditorMode, h *hint.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.active, c.hint)
}

// HintState returns the state of the hint list.
func (c *Controller) HintState() hint.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hint.State()
}

// Flush runs pending side effects now. It reports whether any were
// pending.
func (c *Controller) Flush() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Flush()
}

// Close flushes pending side effects, stops every timer and waits for
// uploads in flight to finish.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pipeline.Flush()
	c.pipeline.Stop()
	c.hint.Close()
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// updateHint looks for a trigger before the caret. The list stays closed
// inside code and math blocks and while text is selected, except on the
// opening line of a code block where the info string is typed.
func (c *Controller) updateHint() {
	s := c.active.Engine().Surface()
	if !s.Selection().Collapsed() {
		c.hint.Close()
		return
	}
	p := s.Caret()
	if block, ok := openingLine(p); ok {
		before := p.Node.Text[:p.Offset]
		if p.Node.Kind == surface.KindCodeInfo {
			before = block.Attrs.Fence + before
		}
		c.hint.Update(before, len(before))
		return
	}
	if surface.Closest(p.Node, surface.Fences) != nil {
		c.hint.Close()
		return
	}
	line := s.CurrentLine()
	c.hint.Update(line.Text(), len(line.Before))
}

// applyHint replaces the trigger span before the caret with the picked
// value. A fence value picked on the opening line of a code block becomes
// its info string and the caret moves into the code.
func (c *Controller) applyHint(sel hint.Selection) {
	e := c.active.Engine()
	s := e.Surface()
	span := sel.Match.Span()
	value := sel.Candidate.Value
	if block, ok := openingLine(s.Caret()); ok && strings.HasPrefix(value, sel.Match.Trigger.Prefix) {
		setInfo(s, block, strings.TrimSuffix(strings.TrimPrefix(value, sel.Match.Trigger.Prefix), "\n"))
		e.AfterMutation()
		c.logger.Debug("hint applied", "span", span, "info", block.Attrs.Info)
		return
	}
	if strings.HasSuffix(s.CurrentLine().Before, span) {
		s.DeleteBytesBefore(len(span))
	}
	e.Input(reconcile.InputEvent{Kind: reconcile.InsertFromPaste, Data: value})
	c.logger.Debug("hint applied", "span", span, "value", value)
}

// openingLine reports whether p sits in the first line of a code block,
// on the opening fence or in the info string, and returns the block.
func openingLine(p surface.Point) (*surface.Node, bool) {
	if p.Node == nil || (p.Node.Kind != surface.KindCodeInfo && p.Node.Kind != surface.KindMarker) {
		return nil, false
	}
	block := p.Node.Parent()
	if block == nil || block.Kind != surface.KindCodeBlock || block.FirstChild() != p.Node {
		return nil, false
	}
	if i := strings.IndexByte(p.Node.Text, '\n'); i >= 0 && p.Offset > i {
		return nil, false
	}
	return block, true
}

// setInfo replaces the info string of block and puts the caret at the
// start of its code.
func setInfo(s *surface.Surface, block *surface.Node, info string) {
	leaf := block.FirstChild()
	fence := leaf.Text[:len(leaf.Text)-len(strings.TrimLeft(leaf.Text, "`~"))]
	rest := ""
	if i := strings.IndexByte(leaf.Text, '\n'); i >= 0 {
		rest = leaf.Text[i+1:]
	}
	leaf.Text = fence + info + "\n" + rest
	block.Attrs.Info = info
	if content := surface.Find(block, surface.OfKind(surface.KindText)); content != nil {
		s.SetCaret(content, 0)
	}
}
