// Package hint implements the autocomplete list that opens while typing.
//
// A Session watches the line around the caret. When the text before the
// caret ends in a configured trigger (":" for emoji, "```" at line start for
// code languages) followed by a short key, the trigger's Source is asked
// for candidates and the list opens. Arrow keys move the selection, Enter
// or Tab picks a candidate and Escape closes the list without touching the
// document.
//
// Sources may be slow. Each lookup carries a generation number and results
// for an older generation, or for a session that has closed, are dropped.
package hint

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dshills/inkstorm/internal/effects"
	"github.com/dshills/inkstorm/internal/input/key"
)

// Defaults for a session.
const (
	DefaultMaxKey = 32
	DefaultLimit  = 8
)

// State is the state of a session.
type State uint8

const (
	Closed State = iota
	Computing
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Computing:
		return "computing"
	case Open:
		return "open"
	}
	return fmt.Sprintf("State(%d)", s)
}

// Selection is a picked candidate together with the trigger span it
// replaces.
type Selection struct {
	Match     Match
	Candidate Candidate
}

// Session is one autocomplete list. Its methods must be called with the
// session's locker held, or from a single goroutine when no locker is set.
type Session struct {
	triggers []*Trigger
	maxKey   int
	limit    int
	debounce *effects.Debouncer
	locker   sync.Locker
	onSelect func(Selection)
	onChange func()
	logger   *log.Logger

	state  State
	gen    uint64
	match  Match
	items  []Candidate
	sel    int
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithTrigger adds a trigger.
func WithTrigger(prefix string, lineStart bool, src Source) Option {
	return func(s *Session) {
		s.triggers = append(s.triggers, &Trigger{Prefix: prefix, LineStart: lineStart, Source: src})
	}
}

// WithDelay debounces lookups by d using sched. Without it lookups run
// synchronously inside Update.
func WithDelay(sched effects.Scheduler, d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = effects.NewDebouncer(sched, d)
		}
	}
}

// WithLocker sets the lock taken when delayed results are applied.
func WithLocker(l sync.Locker) Option {
	return func(s *Session) { s.locker = l }
}

// WithLimit caps the number of candidates shown.
func WithLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithMaxKey bounds the key length that keeps a trigger alive.
func WithMaxKey(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxKey = n
		}
	}
}

// OnSelect sets the callback that applies a picked candidate.
func OnSelect(fn func(Selection)) Option {
	return func(s *Session) { s.onSelect = fn }
}

// OnChange sets the callback run whenever the list changes.
func OnChange(fn func()) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l.WithPrefix("hint")
		}
	}
}

// NewSession creates a closed session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		maxKey: DefaultMaxKey,
		limit:  DefaultLimit,
		locker: &sync.Mutex{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session state.
func (s *Session) State() State { return s.state }

// Items returns the candidates shown.
func (s *Session) Items() []Candidate { return s.items }

// Selected returns the index of the highlighted candidate.
func (s *Session) Selected() int { return s.sel }

// Match returns the trigger the session is open for.
func (s *Session) Match() Match { return s.match }

// Update looks at line, the text of the caret's line, with the caret at
// byte offset cursor. It opens, refreshes or closes the list.
func (s *Session) Update(line string, cursor int) {
	if cursor < 0 || cursor > len(line) {
		cursor = len(line)
	}
	m, ok := detect(s.triggers, line[:cursor], s.maxKey)
	if !ok {
		s.Close()
		return
	}
	if s.state != Closed && m.Trigger == s.match.Trigger && m.Key == s.match.Key && m.Start == s.match.Start {
		return
	}

	s.stopLookup()
	s.gen++
	gen := s.gen
	s.match = m
	s.state = Computing
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	src := m.Trigger.Source

	if s.debounce == nil {
		items, err := src.Candidates(ctx, m.Key)
		s.apply(gen, items, err)
		return
	}
	s.debounce.Trigger(func() {
		items, err := src.Candidates(ctx, m.Key)
		s.locker.Lock()
		defer s.locker.Unlock()
		s.apply(gen, items, err)
	})
}

func (s *Session) apply(gen uint64, items []Candidate, err error) {
	if gen != s.gen || s.state == Closed {
		s.logger.Debug("late candidates dropped", "gen", gen)
		return
	}
	if err != nil {
		s.logger.Warn("hint source failed", "key", s.match.Key, "err", err)
		s.Close()
		return
	}
	if len(items) == 0 {
		s.Close()
		return
	}
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	s.items = items
	s.sel = 0
	s.state = Open
	s.changed()
}

// Key handles navigation while the list is open. It reports whether ev was
// consumed.
func (s *Session) Key(ev key.Event) bool {
	if s.state == Closed {
		return false
	}
	if ev.Is(key.KeyEscape, key.ModNone) {
		s.Close()
		return true
	}
	if s.state != Open {
		return false
	}
	n := len(s.items)
	switch {
	case ev.Is(key.KeyUp, key.ModNone):
		s.sel = (s.sel - 1 + n) % n
	case ev.Is(key.KeyDown, key.ModNone):
		s.sel = (s.sel + 1) % n
	case ev.Is(key.KeyEnter, key.ModNone), ev.Is(key.KeyTab, key.ModNone):
		return s.Select(s.sel)
	default:
		return false
	}
	s.changed()
	return true
}

// Select picks candidate i, closes the list and hands the selection to the
// OnSelect callback.
func (s *Session) Select(i int) bool {
	if s.state != Open || i < 0 || i >= len(s.items) {
		return false
	}
	sel := Selection{Match: s.match, Candidate: s.items[i]}
	s.Close()
	if s.onSelect != nil {
		s.onSelect(sel)
	}
	return true
}

// Close closes the list and cancels any lookup in flight.
func (s *Session) Close() {
	if s.state == Closed {
		return
	}
	s.stopLookup()
	s.gen++
	s.state = Closed
	s.items = nil
	s.sel = 0
	s.match = Match{}
	s.changed()
}

func (s *Session) stopLookup() {
	if s.debounce != nil {
		s.debounce.Cancel()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
