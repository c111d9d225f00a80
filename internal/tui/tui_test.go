package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkstorm/internal/hint"
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/mode"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/surface"
)

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want string
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), "a"},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "Enter"},
		{"shift enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModShift), "Shift+Enter"},
		{"backtab", tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone), "Shift+Tab"},
		{"ctrl letter", tcell.NewEventKey(tcell.KeyCtrlB, 0, tcell.ModCtrl), "Ctrl+b"},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), "Up"},
		{"backspace2", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), "Backspace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyEvent(tt.ev)
			if !ok {
				t.Fatal("not converted")
			}
			if !got.Equals(key.MustParse(tt.want)) {
				t.Errorf("KeyEvent = %s, want %s", got, tt.want)
			}
		})
	}

	if _, ok := KeyEvent(tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone)); ok {
		t.Error("F5 converted")
	}
}

func lineText(l Line) string {
	var b strings.Builder
	for _, s := range l {
		b.WriteString(s.Text)
	}
	return b.String()
}

func render(t *testing.T, m oracle.Mode, doc string) []*surface.Node {
	t.Helper()
	return oracle.New().Render(m, doc)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		mode oracle.Mode
		doc  string
		want []string
	}{
		{"heading and paragraph", oracle.WYSIWYG, "# Title\n\nbody\n", []string{"Title", "", "body"}},
		{"ir markers", oracle.IR, "# Title\n", []string{"# Title"}},
		{"list", oracle.WYSIWYG, "- a\n- b\n", []string{"• a", "• b"}},
		{"ordered", oracle.WYSIWYG, "1. x\n2. y\n", []string{"1. x", "2. y"}},
		{"task", oracle.WYSIWYG, "- [x] done\n", []string{"• ☑ done"}},
		{"quote", oracle.WYSIWYG, "> q\n", []string{"│ q"}},
		{"code", oracle.WYSIWYG, "```\na\nb\n```\n", []string{"```", "a", "b"}},
		{"code info", oracle.WYSIWYG, "```go\nx\n```\n", []string{"```go", "x"}},
		{"source", oracle.SV, "# a\nb\n", []string{"# a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := surface.NewBlock(surface.KindDocument, render(t, tt.mode, tt.doc)...)
			l := Build(root, surface.Point{})
			var got []string
			for _, line := range l.Lines {
				got = append(got, lineText(line))
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaretAndPointAt(t *testing.T) {
	root := surface.NewBlock(surface.KindDocument, render(t, oracle.WYSIWYG, "- 世界 ok\n")...)
	leaf := surface.FirstLeaf(root)
	caret := surface.Point{Node: leaf, Offset: len("世界")}

	l := Build(root, caret)
	if l.CaretY != 0 || l.CaretX != 2+4 {
		t.Errorf("caret at %d,%d", l.CaretX, l.CaretY)
	}

	p, ok := l.PointAt(4, 0)
	if !ok || p.Node != leaf || p.Offset != len("世") {
		t.Errorf("PointAt(4,0) = %+v %v", p, ok)
	}
	p, ok = l.PointAt(30, 0)
	if !ok || p.Offset != len(leaf.Text) {
		t.Errorf("PointAt past end = %+v %v", p, ok)
	}
	if _, ok := l.PointAt(0, 5); ok {
		t.Error("PointAt below the last row")
	}
}

func newHost(t *testing.T, opts ...mode.Option) (*Host, tcell.SimulationScreen, *mode.Controller) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Fini)
	s.SetSize(40, 8)
	ctl := mode.New(append([]mode.Option{mode.WithDebounce(0)}, opts...)...)
	t.Cleanup(func() { ctl.Close() })
	return New(s, ctl), s, ctl
}

func screenRow(s tcell.SimulationScreen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func TestHostTyping(t *testing.T) {
	h, s, ctl := newHost(t)
	for _, r := range "hi" {
		h.Handle(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	if got := ctl.Value(); got != "hi\n" {
		t.Fatalf("Value = %q", got)
	}
	h.Draw()
	if got := screenRow(s, 0); got != "hi" {
		t.Errorf("row 0 = %q", got)
	}
	if got := screenRow(s, 7); !strings.Contains(got, "wysiwyg") {
		t.Errorf("status row = %q", got)
	}
	x, y, visible := s.GetCursor()
	if x != 2 || y != 0 || !visible {
		t.Errorf("cursor at %d,%d visible %v", x, y, visible)
	}

	if h.Handle(tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl)) {
		t.Error("Ctrl+Q did not stop the host")
	}
}

func TestHostModeCycle(t *testing.T) {
	h, s, ctl := newHost(t)
	ctl.SetValue("# T\n")
	h.Handle(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone))
	if ctl.Mode() != oracle.IR {
		t.Fatalf("mode = %s", ctl.Mode())
	}
	h.Draw()
	if got := screenRow(s, 0); got != "# T" {
		t.Errorf("row 0 = %q", got)
	}
	h.Handle(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone))
	h.Handle(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone))
	if ctl.Mode() != oracle.WYSIWYG || ctl.Value() != "# T\n" {
		t.Errorf("after a full cycle: %s %q", ctl.Mode(), ctl.Value())
	}
}

func TestHostBracketedPaste(t *testing.T) {
	h, _, ctl := newHost(t)
	h.Handle(tcell.NewEventPaste(true))
	for _, r := range "a" {
		h.Handle(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	h.Handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	h.Handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	h.Handle(tcell.NewEventKey(tcell.KeyRune, 'b', tcell.ModNone))
	if got := ctl.Value(); strings.Contains(got, "a") {
		t.Fatalf("paste applied before it ended: %q", got)
	}
	h.Handle(tcell.NewEventPaste(false))
	if got := ctl.Value(); got != "a\n\nb\n" {
		t.Errorf("Value = %q", got)
	}
}

func TestHostClick(t *testing.T) {
	h, _, ctl := newHost(t)
	ctl.SetValue("abc\n")
	h.Draw()
	h.Handle(tcell.NewEventMouse(1, 0, tcell.Button1, tcell.ModNone))
	h.Handle(tcell.NewEventKey(tcell.KeyRune, 'X', tcell.ModNone))
	if got := ctl.Value(); got != "aXbc\n" {
		t.Errorf("Value = %q", got)
	}
}

func TestHostHintList(t *testing.T) {
	src := hint.SourceFunc(func(_ context.Context, k string) ([]hint.Candidate, error) {
		return []hint.Candidate{{Display: "smile", Value: "😄"}, {Display: "smirk", Value: "😏"}}, nil
	})
	h, s, _ := newHost(t, mode.WithHints(hint.WithTrigger(":", false, src)))
	for _, r := range ":s" {
		h.Handle(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	h.Draw()
	if got := screenRow(s, 1); !strings.Contains(got, "smile") {
		t.Errorf("row 1 = %q", got)
	}
	if got := screenRow(s, 2); !strings.Contains(got, "smirk") {
		t.Errorf("row 2 = %q", got)
	}
}

func TestHostStatus(t *testing.T) {
	h, s, _ := newHost(t)
	h.SetStatus("12 chars")
	h.Draw()
	if got := screenRow(s, 7); !strings.Contains(got, "12 chars") {
		t.Errorf("status row = %q", got)
	}
}
