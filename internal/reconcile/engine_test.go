package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/dshills/inkstorm/internal/effects"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/surface"
)

type harness struct {
	*Engine
	sched   *effects.Manual
	states  []State
	cycles  int
	flushed []string
}

func newHarness(t *testing.T, mode oracle.Mode, markdown string) *harness {
	t.Helper()
	h := &harness{sched: &effects.Manual{}}
	p := effects.NewPipeline(h.sched, 100*time.Millisecond,
		effects.WithSinks(effects.Notify(func(s string) { h.flushed = append(h.flushed, s) })))
	h.Engine = New(mode, oracle.New(), surface.New(),
		WithPipeline(p),
		WithObserver(func(st State) {
			h.states = append(h.states, st)
			if st == ScopeResolved {
				h.cycles++
			}
		}),
	)
	h.Load(markdown)
	return h
}

// caretAt puts the caret after the first occurrence of needle.
func (h *harness) caretAt(t *testing.T, needle string) {
	t.Helper()
	for _, leaf := range surface.Leaves(h.Surface().Root) {
		if i := strings.Index(leaf.Text, needle); i >= 0 {
			h.Surface().SetCaret(leaf, i+len(needle))
			return
		}
	}
	t.Fatalf("no leaf holds %q", needle)
}

func (h *harness) caretOffset() int {
	s := h.Surface()
	return surface.OffsetIn(surface.TextBlock(s.Caret().Node), s.Caret())
}

func TestScenarioHeadingTyped(t *testing.T) {
	for _, mode := range []oracle.Mode{oracle.WYSIWYG, oracle.IR} {
		t.Run(mode.String(), func(t *testing.T) {
			h := newHarness(t, mode, "")
			h.Input(Text("#"))
			if got := h.Surface().Root.FirstChild().Kind; got != surface.KindParagraph {
				t.Fatalf("after '#' block = %s", got)
			}
			if !h.Input(Text(" ")) {
				t.Fatal("space completing a heading did not reconcile")
			}
			block := h.Surface().Root.FirstChild()
			if block.Kind != surface.KindHeading || block.Attrs.Level != 1 {
				t.Fatalf("block = %s", surface.Dump(block))
			}
			if surface.TextBlock(h.Surface().Caret().Node) != block {
				t.Error("caret left the heading")
			}
			if got := h.Value(); got != "# \n" {
				t.Errorf("Value = %q", got)
			}
		})
	}
}

func TestCursorPreservation(t *testing.T) {
	tests := []struct {
		name   string
		mode   oracle.Mode
		doc    string
		after  string
		insert string
		want   string
	}{
		{"paragraph", oracle.WYSIWYG, "hello world\n", "hello", "X", "helloX world\n"},
		{"strong wysiwyg", oracle.WYSIWYG, "a **bold** c\n", "bo", "Z", "a **boZld** c\n"},
		{"strong ir", oracle.IR, "a **bold** c\n", "bo", "Z", "a **boZld** c\n"},
		{"list item", oracle.WYSIWYG, "- one\n- two\n", "tw", "w", "- one\n- twwo\n"},
		{"source", oracle.SV, "# a\n\nbody\n", "bo", "!", "# a\n\nbo!dy\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.mode, tt.doc)
			h.caretAt(t, tt.after)
			before := h.caretOffset()

			if !h.Input(Text(tt.insert)) {
				t.Fatal("no cycle ran")
			}
			if got := h.Value(); got != tt.want {
				t.Errorf("Value = %q, want %q", got, tt.want)
			}
			if got := h.caretOffset(); got != before+len(tt.insert) {
				t.Errorf("caret offset = %d, want %d", got, before+len(tt.insert))
			}
			if strings.Contains(h.Surface().Root.TextContent(), surface.CaretMark) {
				t.Error("caret mark left in tree")
			}
		})
	}
}

func TestWhitespaceSuppression(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "abc\n")
	h.caretAt(t, "abc")
	h.cycles = 0

	if h.Input(Text(" ")) {
		t.Fatal("trailing space reconciled")
	}
	if h.cycles != 0 {
		t.Errorf("cycles = %d", h.cycles)
	}
	if got := h.Surface().Root.TextContent(); got != "abc " {
		t.Errorf("text = %q", got)
	}
	h.sched.Advance(100 * time.Millisecond)
	if len(h.flushed) != 1 {
		t.Fatalf("content change not notified: %v", h.flushed)
	}

	if !h.Input(Text("d")) {
		t.Error("letter after space did not reconcile")
	}
}

func TestWhitespaceCompletesSyntax(t *testing.T) {
	tests := []struct {
		name  string
		typed string
		kind  surface.Kind
	}{
		{"heading", "##", surface.KindHeading},
		{"bullet", "-", surface.KindList},
		{"ordered", "1.", surface.KindList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, oracle.WYSIWYG, "")
			for _, r := range tt.typed {
				h.Input(Text(string(r)))
			}
			if !h.Input(Text(" ")) {
				t.Fatal("completion did not reconcile")
			}
			if got := h.Surface().Root.FirstChild().Kind; got != tt.kind {
				t.Errorf("block = %s, want %s", got, tt.kind)
			}
		})
	}
}

func TestMiddleSpaceReconciles(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "ab\n")
	h.caretAt(t, "a")
	if !h.Input(Text(" ")) {
		t.Error("space inside a word was suppressed")
	}
}

func TestCompositionHoldsCycle(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "x\n")
	h.caretAt(t, "x")
	h.cycles = 0

	h.CompositionStart()
	h.Input(InputEvent{Kind: InsertComposition, Data: "に"})
	h.Input(InputEvent{Kind: InsertComposition, Data: "ほ"})
	if h.cycles != 0 {
		t.Fatalf("cycles during composition = %d", h.cycles)
	}
	if h.Entry() != Composing {
		t.Fatalf("Entry = %s", h.Entry())
	}
	h.CompositionEnd()
	if h.cycles != 1 || h.Entry() != Ready {
		t.Errorf("cycles = %d, entry = %s", h.cycles, h.Entry())
	}
	if got := h.Value(); got != "xにほ\n" {
		t.Errorf("Value = %q", got)
	}
}

func TestReplaySwallowsOneEvent(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "x\n")
	h.caretAt(t, "x")
	h.cycles = 0

	h.MarkReplay()
	if h.Input(Text("y")) {
		t.Fatal("replayed event reconciled")
	}
	if got := h.Value(); got != "x\n" {
		t.Errorf("replayed event applied: %q", got)
	}
	if h.Entry() != Ready {
		t.Errorf("Entry = %s", h.Entry())
	}
	if !h.Input(Text("y")) {
		t.Error("next event swallowed too")
	}
}

func TestAutoPairIgnored(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "x\n")
	h.caretAt(t, "x")
	if h.Input(Text("”")) {
		t.Error("auto-pair closer reconciled")
	}
	if got := h.Surface().Root.TextContent(); got != "x”" {
		t.Errorf("text = %q", got)
	}
}

func TestDeleteBackwardMergesBlocks(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "a\n\nb\n")
	h.Surface().CaretAtStartOf(h.Surface().Root.LastChild())

	h.Input(InputEvent{Kind: DeleteBackward})

	if got := h.Value(); got != "ab\n" {
		t.Errorf("Value = %q", got)
	}
	if got := h.caretOffset(); got != 1 {
		t.Errorf("caret offset = %d", got)
	}
}

func TestCycleStates(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "a\n")
	h.caretAt(t, "a")
	h.states = nil

	h.Input(Text("b"))

	want := []State{ScopeResolved, OracleCalled, Spliced, CursorRestored, SideEffectsArmed, Idle}
	if len(h.states) != len(want) {
		t.Fatalf("states = %v", h.states)
	}
	for i := range want {
		if h.states[i] != want[i] {
			t.Errorf("state %d = %s, want %s", i, h.states[i], want[i])
		}
	}
}

func TestSideEffectsDebounced(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "")
	for _, c := range "abc" {
		h.Input(Text(string(c)))
		h.sched.Advance(50 * time.Millisecond)
	}
	if len(h.flushed) != 0 {
		t.Fatalf("flushed early: %v", h.flushed)
	}
	h.sched.Advance(100 * time.Millisecond)
	if len(h.flushed) != 1 || h.flushed[0] != "abc\n" {
		t.Errorf("flushed = %q", h.flushed)
	}
}

func TestReplaceWithTable(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "|a|b|c|\n")
	block := h.Surface().Root.FirstChild()

	h.Replace([]*surface.Node{block}, "|a|b|c"+surface.CaretMark+"|\n|---|---|---|\n")

	if got := h.Value(); got != "|a|b|c|\n|---|---|---|\n" {
		t.Errorf("Value = %q", got)
	}
	cell := surface.Closest(h.Surface().Caret().Node, surface.KindSetOf(surface.KindTableCell))
	if cell == nil || cell.TextContent() != "c" {
		t.Errorf("caret not in last header cell")
	}
}

type lostAnchor struct{}

func (lostAnchor) Place(*surface.Surface) {}
func (lostAnchor) Restore(*surface.Node, *surface.Surface) bool { return false }

func TestAnchorMissFallsBack(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "one\n\ntwo\n")
	h.anchor = lostAnchor{}
	h.Surface().CaretAtStart()

	h.Input(Text("x"))

	c := h.Surface().Caret()
	if c.Node.Text != "xone" || c.Offset != len("xone") {
		t.Errorf("caret = %q@%d, want end of re-rendered block", c.Node.Text, c.Offset)
	}
}

func TestNormalizeMergesLists(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "- a\n\npara\n\n- b\n")
	middle := h.Surface().Root.Child(1)
	middle.Remove()

	h.AfterMutation()

	root := h.Surface().Root
	if root.ChildCount() != 1 || root.FirstChild().ChildCount() != 2 {
		t.Fatalf("tree = %s", surface.Dump(root))
	}
	if got := h.Value(); got != "- a\n\n- b\n" {
		t.Errorf("Value = %q", got)
	}
}

func TestExpandedFenceSurvives(t *testing.T) {
	h := newHarness(t, oracle.WYSIWYG, "```\ncode\n```\n")
	fence := h.Surface().Root.FirstChild()
	fence.Attrs.Expanded = true
	h.caretAt(t, "code")

	h.Input(Text("!"))

	got := h.Surface().Root.FirstChild()
	if content := surface.Find(got, surface.OfKind(surface.KindText)); !got.Attrs.Expanded || content == nil || content.Text != "code!" {
		t.Errorf("fence = %s expanded=%v", surface.Dump(got), got.Attrs.Expanded)
	}
}
