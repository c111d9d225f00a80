package effects

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestManualScheduler(t *testing.T) {
	m := &Manual{}
	var order []int
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	stopped := m.AfterFunc(5*time.Millisecond, func() { order = append(order, 0) })

	if !stopped.Stop() {
		t.Fatal("Stop() = false for pending timer")
	}
	if stopped.Stop() {
		t.Error("second Stop() = true")
	}

	m.Advance(15 * time.Millisecond)
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("after 15ms order = %v", order)
	}
	m.Advance(5 * time.Millisecond)
	if len(order) != 2 || order[1] != 2 {
		t.Fatalf("after 20ms order = %v", order)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d", m.Pending())
	}
}

func TestDebouncerLastWins(t *testing.T) {
	m := &Manual{}
	d := NewDebouncer(m, 100*time.Millisecond)
	var got []string

	d.Trigger(func() { got = append(got, "a") })
	m.Advance(50 * time.Millisecond)
	d.Trigger(func() { got = append(got, "b") })
	m.Advance(50 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	m.Advance(50 * time.Millisecond)
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("got = %v, want [b]", got)
	}
	if d.Pending() {
		t.Error("still pending after fire")
	}
}

func TestDebouncerCancelAndFlush(t *testing.T) {
	m := &Manual{}
	d := NewDebouncer(m, time.Second)
	calls := 0

	d.Trigger(func() { calls++ })
	if !d.Cancel() {
		t.Error("Cancel() = false with pending function")
	}
	m.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("cancelled function ran")
	}

	d.Trigger(func() { calls++ })
	if !d.Flush() {
		t.Error("Flush() = false with pending function")
	}
	m.Advance(time.Second)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if d.Flush() {
		t.Error("Flush() = true with nothing pending")
	}
}

type countingLocker struct {
	sync.Mutex
	locks int
}

func (l *countingLocker) Lock() {
	l.Mutex.Lock()
	l.locks++
}

func TestPipelineFlushesOncePerWindow(t *testing.T) {
	m := &Manual{}
	lock := &countingLocker{}
	var seen []string
	p := NewPipeline(m, 200*time.Millisecond,
		WithLocker(lock),
		WithSinks(Notify(func(s string) { seen = append(seen, s) })),
	)

	doc := "a"
	p.Arm(func() string { return doc })
	doc = "ab"
	p.Arm(func() string { return doc })
	doc = "abc"

	if !p.Armed() {
		t.Fatal("not armed")
	}
	m.Advance(200 * time.Millisecond)

	if len(seen) != 1 || seen[0] != "abc" {
		t.Fatalf("seen = %v, want [abc]", seen)
	}
	if lock.locks != 1 {
		t.Errorf("locker taken %d times, want 1", lock.locks)
	}
}

func TestPipelineStop(t *testing.T) {
	m := &Manual{}
	calls := 0
	p := NewPipeline(m, time.Second, WithSinks(Notify(func(string) { calls++ })))
	p.Arm(func() string { return "x" })
	p.Stop()
	m.Advance(2 * time.Second)
	if calls != 0 || p.Armed() {
		t.Errorf("calls = %d, armed = %v", calls, p.Armed())
	}
}

func TestPipelineImmediateAndSinkFailure(t *testing.T) {
	var order []string
	failing := SinkFunc(func(string) error {
		order = append(order, "fail")
		return errors.New("disk full")
	})
	p := NewPipeline(nil, 0, WithSinks(failing))
	p.AddSink(Notify(func(s string) { order = append(order, s) }))

	p.Arm(func() string { return "now" })

	if len(order) != 2 || order[0] != "fail" || order[1] != "now" {
		t.Errorf("order = %v", order)
	}
	if p.Flush() {
		t.Error("Flush() = true after immediate run")
	}
}

func TestCounter(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		max   int
		count int
		over  bool
	}{
		{"ascii", "hello", 0, 5, false},
		{"combining", "é", 0, 1, false},
		{"emoji", "👍🏽!", 0, 2, false},
		{"over", "abcd", 3, 4, true},
		{"at limit", "abc", 3, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var count int
			var over bool
			c := Counter{Max: tt.max, Report: func(n int, o bool) { count, over = n, o }}
			if err := c.Settled(tt.text); err != nil {
				t.Fatal(err)
			}
			if count != tt.count || over != tt.over {
				t.Errorf("Report(%d, %v), want (%d, %v)", count, over, tt.count, tt.over)
			}
		})
	}
}
