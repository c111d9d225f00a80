// Package tui is a terminal host for the Mode Controller. It draws the
// active mode's surface with tcell and turns terminal events into
// controller calls.
package tui

import (
	"context"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkstorm/internal/hint"
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/mode"
	"github.com/dshills/inkstorm/internal/oracle"
)

var modeCycle = map[oracle.Mode]oracle.Mode{
	oracle.WYSIWYG: oracle.IR,
	oracle.IR:      oracle.SV,
	oracle.SV:      oracle.WYSIWYG,
}

// Host runs a Controller on a tcell screen. The screen must be
// initialized by the caller.
type Host struct {
	screen tcell.Screen
	ctl    *mode.Controller
	logger *log.Logger

	clip   mode.Clipboard
	paste  *strings.Builder
	layout *Layout

	mu     sync.Mutex
	status string
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l.WithPrefix("tui")
		}
	}
}

// New creates a Host drawing ctl on screen.
func New(screen tcell.Screen, ctl *mode.Controller, opts ...Option) *Host {
	h := &Host{
		screen: screen,
		ctl:    ctl,
		logger: log.New(io.Discard),
		layout: &Layout{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetStatus sets the text shown after the mode name in the status row and
// schedules a redraw. It may be called from any goroutine.
func (h *Host) SetStatus(s string) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
	h.Refresh()
}

// Refresh schedules a redraw. It may be called from controller hooks.
func (h *Host) Refresh() {
	_ = h.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Run draws and handles events until Ctrl+Q is pressed or ctx is done.
func (h *Host) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			h.Refresh()
		case <-done:
		}
	}()

	h.Draw()
	for {
		ev := h.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return nil
		}
		if !h.Handle(ev) {
			return nil
		}
		h.Draw()
	}
}

// Handle applies one terminal event. It returns false when the host
// should stop.
func (h *Host) Handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if h.paste != nil {
			h.collect(ev)
			return true
		}
		return h.key(ev)
	case *tcell.EventPaste:
		if ev.Start() {
			h.paste = &strings.Builder{}
			return true
		}
		if h.paste != nil {
			text := h.paste.String()
			h.paste = nil
			if err := h.ctl.Paste(mode.Paste{Text: text}); err != nil {
				h.logger.Warn("paste failed", "err", err)
			}
		}
	case *tcell.EventMouse:
		h.mouse(ev)
	case *tcell.EventFocus:
		if ev.Focused {
			h.ctl.Focus()
		} else {
			h.ctl.Blur()
		}
	case *tcell.EventResize:
		h.screen.Sync()
	}
	return true
}

func (h *Host) collect(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		h.paste.WriteRune(ev.Rune())
	case tcell.KeyEnter, tcell.KeyLF:
		h.paste.WriteByte('\n')
	case tcell.KeyTab:
		h.paste.WriteByte('\t')
	}
}

func (h *Host) key(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyF2 {
		next := modeCycle[h.ctl.Mode()]
		if err := h.ctl.Switch(next); err != nil {
			h.logger.Warn("mode switch failed", "err", err)
		}
		return true
	}
	switch r, _ := ctrlLetter(ev); r {
	case 'q':
		return false
	case 'c':
		h.clip = h.ctl.Copy()
		return true
	case 'x':
		h.clip = h.ctl.Cut()
		return true
	case 'v':
		if err := h.ctl.Paste(mode.Paste{Text: h.clip.Text, HTML: h.clip.HTML}); err != nil {
			h.logger.Warn("paste failed", "err", err)
		}
		return true
	}
	if k, ok := KeyEvent(ev); ok {
		h.ctl.Key(k)
	}
	return true
}

// ctrlLetter returns the lower case letter of a Ctrl+letter press, which
// terminals report either as a control key or as a rune with Ctrl held.
func ctrlLetter(ev *tcell.EventKey) (rune, bool) {
	switch k := ev.Key(); {
	case k == tcell.KeyRune && ev.Modifiers()&tcell.ModCtrl != 0:
		return unicode.ToLower(ev.Rune()), true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		switch k {
		case tcell.KeyTab, tcell.KeyEnter, tcell.KeyBackspace:
			return 0, false
		}
		return rune('a' + k - tcell.KeyCtrlA), true
	}
	return 0, false
}

func (h *Host) mouse(ev *tcell.EventMouse) {
	switch btn := ev.Buttons(); {
	case btn&tcell.WheelUp != 0:
		h.ctl.Scroll(h.ctl.ScrollTop() - 3)
	case btn&tcell.WheelDown != 0:
		h.ctl.Scroll(h.ctl.ScrollTop() + 3)
	case btn&tcell.Button1 != 0:
		x, y := ev.Position()
		p, ok := h.layout.PointAt(x, y+h.ctl.ScrollTop())
		if !ok {
			return
		}
		placed := false
		h.ctl.View(func(m mode.EditorMode, _ *hint.Session) {
			if m.Root().Contains(p.Node) && p.Offset <= len(p.Node.Text) {
				m.Engine().Surface().SetCaret(p.Node, p.Offset)
				placed = true
			}
		})
		if placed {
			h.ctl.Key(key.Special(key.KeyClick, key.ModNone))
		}
	}
}

// KeyEvent converts a tcell key press. Control letters become the letter
// with Ctrl held. It reports false for keys the editor has no name for.
func KeyEvent(ev *tcell.EventKey) (key.Event, bool) {
	mods := modifiers(ev.Modifiers())
	k := ev.Key()
	switch k {
	case tcell.KeyRune:
		return key.RuneEvent(ev.Rune(), mods), true
	case tcell.KeyEscape:
		return key.Special(key.KeyEscape, mods), true
	case tcell.KeyEnter:
		return key.Special(key.KeyEnter, mods), true
	case tcell.KeyTab:
		return key.Special(key.KeyTab, mods), true
	case tcell.KeyBacktab:
		return key.Special(key.KeyTab, mods|key.ModShift), true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return key.Special(key.KeyBackspace, mods&^key.ModCtrl), true
	case tcell.KeyDelete:
		return key.Special(key.KeyDelete, mods), true
	case tcell.KeyHome:
		return key.Special(key.KeyHome, mods), true
	case tcell.KeyEnd:
		return key.Special(key.KeyEnd, mods), true
	case tcell.KeyPgUp:
		return key.Special(key.KeyPageUp, mods), true
	case tcell.KeyPgDn:
		return key.Special(key.KeyPageDown, mods), true
	case tcell.KeyUp:
		return key.Special(key.KeyUp, mods), true
	case tcell.KeyDown:
		return key.Special(key.KeyDown, mods), true
	case tcell.KeyLeft:
		return key.Special(key.KeyLeft, mods), true
	case tcell.KeyRight:
		return key.Special(key.KeyRight, mods), true
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return key.RuneEvent(rune('a'+k-tcell.KeyCtrlA), mods|key.ModCtrl), true
	}
	return key.Event{}, false
}

func modifiers(m tcell.ModMask) key.Modifier {
	var out key.Modifier
	if m&tcell.ModShift != 0 {
		out |= key.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		out |= key.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		out |= key.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		out |= key.ModMeta
	}
	return out
}
