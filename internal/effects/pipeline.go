// Package effects runs the debounced work that follows a settled edit.
//
// After each reconciliation the engine arms the Pipeline. When no further
// edit arrives within the interval, the Pipeline serializes the document
// once and hands the text to every Sink in order: the persistence cache,
// the change callback, the counter, the history snapshot and any preview.
// Rapid edits therefore produce a single flush that sees the latest text.
package effects

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rivo/uniseg"
)

// Sink receives the canonical text of a settled document.
type Sink interface {
	Settled(text string) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(text string) error

// Settled implements Sink.
func (f SinkFunc) Settled(text string) error { return f(text) }

// Notify adapts a callback that cannot fail.
func Notify(f func(text string)) Sink {
	return SinkFunc(func(text string) error {
		f(text)
		return nil
	})
}

// Pipeline debounces side effects of reconciliation.
type Pipeline struct {
	debounce *Debouncer
	locker   sync.Locker
	logger   *log.Logger

	mu    sync.Mutex
	sinks []Sink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger that reports sink failures.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l.WithPrefix("effects")
		}
	}
}

// WithLocker makes timer-driven flushes hold l. The mode controller passes
// its own mutex so a flush never observes a half-spliced tree.
func WithLocker(l sync.Locker) Option {
	return func(p *Pipeline) { p.locker = l }
}

// WithSinks appends sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// NewPipeline creates a Pipeline that flushes delay after the last Arm.
func NewPipeline(sched Scheduler, delay time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		debounce: NewDebouncer(sched, delay),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.locker != nil {
		p.debounce.SetLocker(p.locker)
	}
	return p
}

// AddSink appends a sink.
func (p *Pipeline) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Arm schedules a flush, replacing any pending one. text is called when the
// flush runs, so it sees the document as it is then. A non-positive delay
// flushes immediately on the caller's goroutine.
func (p *Pipeline) Arm(text func() string) {
	if p.debounce.Delay() <= 0 {
		p.run(text)
		return
	}
	p.debounce.Trigger(func() { p.run(text) })
}

// Flush runs a pending flush now, on the caller's goroutine and without
// taking the locker; the caller is expected to hold it. It reports whether
// a flush was pending.
func (p *Pipeline) Flush() bool {
	return p.debounce.Flush()
}

// Stop drops any pending flush.
func (p *Pipeline) Stop() {
	p.debounce.Cancel()
}

// Armed reports whether a flush is pending.
func (p *Pipeline) Armed() bool {
	return p.debounce.Pending()
}

func (p *Pipeline) run(text func() string) {
	s := text()
	p.mu.Lock()
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.Unlock()
	for _, sink := range sinks {
		if err := sink.Settled(s); err != nil {
			p.logger.Warn("side effect failed", "err", err)
		}
	}
}

// Counter reports the length of the document in grapheme clusters.
type Counter struct {
	// Max is the soft limit; zero means none.
	Max int
	// Report receives the count and whether it is over Max.
	Report func(count int, over bool)
}

// Settled implements Sink.
func (c Counter) Settled(text string) error {
	n := uniseg.GraphemeClusterCount(text)
	if c.Report != nil {
		c.Report(n, c.Max > 0 && n > c.Max)
	}
	return nil
}
