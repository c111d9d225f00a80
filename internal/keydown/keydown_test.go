package keydown

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/dshills/inkstorm/internal/hint"
	"github.com/dshills/inkstorm/internal/input/key"
	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/reconcile"
	"github.com/dshills/inkstorm/internal/surface"
)

type fixture struct {
	*Context
	chain *Chain
	escs  int
}

func newFixture(t *testing.T, mode oracle.Mode, markdown string) *fixture {
	t.Helper()
	e := reconcile.New(mode, oracle.New(), surface.New())
	e.Load(markdown)
	f := &fixture{chain: Rich()}
	if mode == oracle.SV {
		f.chain = Source()
	}
	f.Context = &Context{Engine: e, Esc: func() { f.escs++ }}
	return f
}

func (f *fixture) press(spec string) Result {
	return f.chain.Handle(f.Context, key.MustParse(spec))
}

func (f *fixture) typeText(text string) {
	for _, r := range text {
		f.Engine.Input(reconcile.Text(string(r)))
	}
}

func (f *fixture) leaf(t *testing.T, needle string) (*surface.Node, int) {
	t.Helper()
	for _, l := range surface.Leaves(f.Surface().Root) {
		if i := strings.Index(l.Text, needle); i >= 0 {
			return l, i
		}
	}
	t.Fatalf("no leaf holds %q in %s", needle, surface.Dump(f.Surface().Root))
	return nil, 0
}

func (f *fixture) caretBefore(t *testing.T, needle string) {
	t.Helper()
	l, i := f.leaf(t, needle)
	f.Surface().SetCaret(l, i)
}

func (f *fixture) caretAfter(t *testing.T, needle string) {
	t.Helper()
	l, i := f.leaf(t, needle)
	f.Surface().SetCaret(l, i+len(needle))
}

func (f *fixture) caretBlock() *surface.Node {
	return surface.TextBlock(f.Surface().Caret().Node)
}

func (f *fixture) expectValue(t *testing.T, want string) {
	t.Helper()
	if got := f.Engine.Value(); got != want {
		t.Errorf("Value = %q, want %q\ntree: %s", got, want, surface.Dump(f.Surface().Root))
	}
}

func TestChainOrder(t *testing.T) {
	names := Rich().Names()
	if names[0] != "hint" || names[len(names)-1] != "escape" {
		t.Errorf("order = %v", names)
	}
	if slices.Index(names, "table-header") > slices.Index(names, "rule") {
		t.Errorf("equal priorities reordered: %v", names)
	}

	f := newFixture(t, oracle.WYSIWYG, "- a\n")
	var seen []string
	f.chain.Add(NewHandlerFunc("first", 1000, func(*Context, key.Event) Result {
		seen = append(seen, "first")
		return Handled
	}))
	if f.press("Enter") != Handled || len(seen) != 1 {
		t.Fatal("higher priority handler did not run first")
	}
	f.expectValue(t, "- a\n")
}

func TestScenarioHeadingEnter(t *testing.T) {
	for _, mode := range []oracle.Mode{oracle.WYSIWYG, oracle.IR} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, mode, "")
			f.typeText("# ")
			if f.press("Enter") != Handled {
				t.Fatal("Enter passed")
			}
			root := f.Surface().Root
			if root.ChildCount() != 2 {
				t.Fatalf("tree = %s", surface.Dump(root))
			}
			if h := root.FirstChild(); h.Kind != surface.KindHeading || h.Attrs.Level != 1 {
				t.Errorf("first block = %s", surface.Dump(h))
			}
			if p := root.LastChild(); p.Kind != surface.KindParagraph || f.caretBlock() != p {
				t.Errorf("caret not in new paragraph: %s", surface.Dump(root))
			}
			f.expectValue(t, "# \n")
		})
	}
}

func TestHeadingEnterSplits(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "# Title\n")
	f.caretAfter(t, "Ti")
	f.press("Enter")
	f.expectValue(t, "# Ti\n\ntle\n")
	if f.caretBlock().Kind != surface.KindParagraph {
		t.Error("caret left the new paragraph")
	}

	f = newFixture(t, oracle.WYSIWYG, "# Title\n")
	f.Surface().CaretAtStart()
	f.press("Enter")
	if first := f.Surface().Root.FirstChild(); first.Kind != surface.KindParagraph {
		t.Errorf("no paragraph above: %s", surface.Dump(f.Surface().Root))
	}
	f.expectValue(t, "# Title\n")
}

func TestScenarioTableHeader(t *testing.T) {
	for _, mode := range []oracle.Mode{oracle.WYSIWYG, oracle.IR} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, mode, "")
			f.typeText("|a|b|c|")
			if f.press("Enter") != Handled {
				t.Fatal("Enter passed")
			}
			table := f.Surface().Root.FirstChild()
			if table.Kind != surface.KindTable || table.FirstChild().ChildCount() != 3 {
				t.Fatalf("tree = %s", surface.Dump(f.Surface().Root))
			}
			f.expectValue(t, "|a|b|c|\n|---|---|---|\n")
			cell := surface.Closest(f.Surface().Caret().Node, cellKind)
			if cell == nil || cell.TextContent() != "c" {
				t.Error("caret not in the last header cell")
			}
		})
	}
}

func TestHeaderCells(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"|a|b|c|", []string{"a", "b", "c"}},
		{"| a | b |", []string{"a", "b"}},
		{`|a\|b|c|`, []string{`a\|b`, "c"}},
		{"|a|", []string{"a"}},
		{"||", nil},
		{"a|b", nil},
		{"|a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := headerCells(tt.line)
			if tt.want == nil {
				if ok {
					t.Errorf("accepted: %v", got)
				}
				return
			}
			if !ok || !slices.Equal(got, tt.want) {
				t.Errorf("cells = %v, %v", got, ok)
			}
		})
	}
}

func TestRuleCompletion(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		kind surface.Kind
	}{
		{"thematic break", "***", "---\n", surface.KindThematicBreak},
		{"setext", "Title\n===", "# Title\n", surface.KindHeading},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, oracle.WYSIWYG, "x\n")
			leaf, _ := f.leaf(t, "x")
			leaf.Text = tt.text
			f.Surface().SetCaret(leaf, len(tt.text))

			if f.press("Enter") != Handled {
				t.Fatal("Enter passed")
			}
			root := f.Surface().Root
			if root.FirstChild().Kind != tt.kind || f.caretBlock() != root.LastChild() {
				t.Errorf("tree = %s", surface.Dump(root))
			}
			f.expectValue(t, tt.want)
		})
	}
}

func TestScenarioListIndent(t *testing.T) {
	t.Run("caret", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "- a\n- b\n- c\n")
		f.caretBefore(t, "b")
		if f.press("Tab") != Handled {
			t.Fatal("Tab passed")
		}
		f.expectValue(t, "- a\n  - b\n- c\n")
		if l, _ := f.leaf(t, "b"); f.Surface().Caret().Node != l {
			t.Error("caret left the item")
		}
	})

	t.Run("selection", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "- a\n- b\n- c\n")
		b, _ := f.leaf(t, "b")
		c, _ := f.leaf(t, "c")
		f.Surface().SetSelection(surface.Range{
			Start: surface.Point{Node: b},
			End:   surface.Point{Node: c, Offset: 1},
		})
		f.press("Tab")
		f.expectValue(t, "- a\n  - b\n  - c\n")

		r := f.Surface().Selection()
		if b, _ := f.leaf(t, "b"); r.Start.Node != b || r.Start.Offset != 0 {
			t.Errorf("selection start %s at %d", surface.Dump(r.Start.Node), r.Start.Offset)
		}
		if c, _ := f.leaf(t, "c"); r.End.Node != c || r.End.Offset != 1 {
			t.Errorf("selection end %s at %d", surface.Dump(r.End.Node), r.End.Offset)
		}
		f.press("Shift+Tab")
		f.expectValue(t, "- a\n- b\n- c\n")
	})

	t.Run("first item", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "- a\n- b\n")
		f.caretBefore(t, "a")
		if f.press("Tab") != Handled {
			t.Error("Tab on first item leaked")
		}
		f.expectValue(t, "- a\n- b\n")
	})

	t.Run("mid text", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "- a\n- bc\n")
		f.caretAfter(t, "b")
		if f.press("Tab") != Pass {
			t.Error("Tab inside text handled")
		}
	})

	t.Run("outdent", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "- a\n  - b\n- c\n")
		f.caretBefore(t, "b")
		f.press("Shift+Tab")
		f.expectValue(t, "- a\n- b\n- c\n")
	})
}

func TestListEnter(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "- ab\n")
	f.caretAfter(t, "a")
	f.press("Enter")
	f.expectValue(t, "- a\n- b\n")

	f = newFixture(t, oracle.WYSIWYG, "- a\n")
	f.caretAfter(t, "a")
	f.press("Enter")
	if n := f.Surface().Root.FirstChild().ChildCount(); n != 2 {
		t.Fatalf("items = %d", n)
	}
	f.press("Enter")
	root := f.Surface().Root
	if root.LastChild().Kind != surface.KindParagraph || f.caretBlock() != root.LastChild() {
		t.Errorf("empty item did not leave the list: %s", surface.Dump(root))
	}
	f.expectValue(t, "- a\n")
}

func TestTaskEnter(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "- [x] a\n")
	f.caretAfter(t, "a")
	f.press("Enter")
	list := f.Surface().Root.FirstChild()
	if list.ChildCount() != 2 {
		t.Fatalf("tree = %s", surface.Dump(list))
	}
	box := task(list.LastChild().FirstChild())
	if box == nil || box.Attrs.Checked {
		t.Errorf("new item = %s", surface.Dump(list.LastChild()))
	}
}

func TestListBackspace(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		before string
		want   string
	}{
		{"first item lifts", "- a\n- b\n", "a", "a\n\n- b\n"},
		{"later item merges", "- a\n- b\n", "b", "- ab\n"},
		{"checkbox first", "- [ ] a\n", "a", "- a\n"},
		{"nested outdents", "- a\n  - b\n", "b", "- a\n- b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, oracle.WYSIWYG, tt.doc)
			f.caretBefore(t, tt.before)
			if f.press("Backspace") != Handled {
				t.Fatal("Backspace passed")
			}
			f.expectValue(t, tt.want)
		})
	}
}

func TestBlockquoteExit(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "> > a\n")
	inner := f.Surface().Root.FirstChild().FirstChild()
	para := paragraph()
	inner.AppendChild(para)
	f.Surface().CaretAtStartOf(para)

	f.press("Enter")
	if outer := f.Surface().Root.FirstChild(); outer.ChildCount() != 2 || f.caretBlock().Parent() != outer {
		t.Fatalf("first Enter: %s", surface.Dump(f.Surface().Root))
	}
	f.press("Enter")
	root := f.Surface().Root
	if root.ChildCount() != 2 || f.caretBlock() != root.LastChild() {
		t.Fatalf("second Enter: %s", surface.Dump(root))
	}
	f.expectValue(t, "> > a\n")

	f = newFixture(t, oracle.WYSIWYG, "> a\n")
	f.Surface().CaretAtStart()
	f.press("Backspace")
	f.expectValue(t, "a\n")

	f = newFixture(t, oracle.WYSIWYG, "> a\n")
	f.caretAfter(t, "a")
	if f.press("Enter") != Pass {
		t.Error("Enter in a filled quote paragraph handled")
	}
}

func TestFenceKeys(t *testing.T) {
	t.Run("enter keeps indent", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "```\n  x\n```\n")
		f.caretAfter(t, "x")
		f.press("Enter")
		l, _ := f.leaf(t, "x")
		if l.Text != "  x\n  " || f.Surface().Caret().Offset != len(l.Text) {
			t.Errorf("content = %q caret %d", l.Text, f.Surface().Caret().Offset)
		}
	})

	t.Run("tab", func(t *testing.T) {
		f := newFixture(t, oracle.WYSIWYG, "```\nx\n```\n")
		f.caretBefore(t, "x")
		f.press("Tab")
		f.expectValue(t, "```\n    x\n```\n")
		f.press("Shift+Tab")
		f.expectValue(t, "```\nx\n```\n")
	})

	t.Run("backspace stays inside", func(t *testing.T) {
		f := newFixture(t, oracle.IR, "```\nx\n```\n")
		f.caretBefore(t, "x")
		if f.press("Backspace") != Handled {
			t.Fatal("Backspace passed")
		}
		f.expectValue(t, "```\nx\n```\n")
	})

	for _, m := range []oracle.Mode{oracle.WYSIWYG, oracle.IR} {
		t.Run("backspace empties "+m.String(), func(t *testing.T) {
			f := newFixture(t, m, "```\n```\n")
			f.Surface().CaretAtStart()
			f.press("Backspace")
			if f.Surface().Root.FirstChild().Kind != surface.KindParagraph {
				t.Errorf("tree = %s", surface.Dump(f.Surface().Root))
			}
		})

		t.Run("enter leaves the info "+m.String(), func(t *testing.T) {
			f := newFixture(t, m, "```go\nx\n```\n")
			f.Surface().CaretAtStart()
			if f.press("Enter") != Handled {
				t.Fatal("Enter passed")
			}
			l, _ := f.leaf(t, "x")
			if p := f.Surface().Caret(); p.Node != l || p.Offset != 0 {
				t.Errorf("caret in %s at %d", surface.Dump(p.Node), p.Offset)
			}
			f.expectValue(t, "```go\nx\n```\n")
		})
	}
}

func caretCell(f *fixture) string {
	c := surface.Closest(f.Surface().Caret().Node, cellKind)
	if c == nil {
		return "<none>"
	}
	return c.TextContent()
}

func TestTableNavigation(t *testing.T) {
	const doc = "|a|b|\n|---|---|\n|1|2|\n"

	f := newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "a")
	for _, want := range []string{"b", "1", "2"} {
		f.press("Tab")
		if got := caretCell(f); got != want {
			t.Fatalf("Tab landed in %q, want %q", got, want)
		}
	}
	f.press("Tab")
	table := f.Surface().Root.FirstChild()
	if table.ChildCount() != 3 || surface.Closest(f.Surface().Caret().Node, cellKind) != table.LastChild().FirstChild() {
		t.Errorf("Tab in last cell: %s", surface.Dump(table))
	}

	f = newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "1")
	f.press("Shift+Tab")
	if got := caretCell(f); got != "b" {
		t.Errorf("Shift+Tab landed in %q", got)
	}

	f = newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "a")
	f.press("Enter")
	if got := caretCell(f); got != "1" {
		t.Errorf("Enter landed in %q", got)
	}

	f = newFixture(t, oracle.WYSIWYG, doc)
	f.caretBefore(t, "b")
	f.press("Left")
	if got := caretCell(f); got != "a" {
		t.Errorf("Left landed in %q", got)
	}
}

func TestTableExits(t *testing.T) {
	const doc = "|a|b|\n|---|---|\n|1|2|\n"

	f := newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "a")
	f.press("Up")
	root := f.Surface().Root
	if root.FirstChild().Kind != surface.KindParagraph || f.caretBlock() != root.FirstChild() {
		t.Errorf("Up from header: %s", surface.Dump(root))
	}

	f = newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "2")
	f.press("Down")
	root = f.Surface().Root
	if root.LastChild().Kind != surface.KindParagraph || f.caretBlock() != root.LastChild() {
		t.Errorf("Down from last row: %s", surface.Dump(root))
	}
	f.expectValue(t, doc)
}

func TestTableRows(t *testing.T) {
	const doc = "|a|b|\n|---|---|\n|1|2|\n"

	f := newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "1")
	f.press("Ctrl+Enter")
	f.expectValue(t, "|a|b|\n|---|---|\n|1|2|\n|||\n")
	if table := f.Surface().Root.FirstChild(); surface.Closest(f.Surface().Caret().Node, cellKind) != table.LastChild().FirstChild() {
		t.Error("caret not in the new row")
	}

	f = newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "1")
	f.press("Ctrl+Shift+Backspace")
	f.expectValue(t, "|a|b|\n|---|---|\n")
	if got := caretCell(f); got != "a" {
		t.Errorf("caret in %q", got)
	}

	f = newFixture(t, oracle.WYSIWYG, doc)
	f.caretAfter(t, "a")
	f.press("Ctrl+Shift+Backspace")
	f.expectValue(t, doc)
}

func TestTaskToggle(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "- [ ] a\n")
	f.caretAfter(t, "a")
	if f.press("Ctrl+J") != Handled {
		t.Fatal("toggle passed")
	}
	f.expectValue(t, "- [x] a\n")

	f = newFixture(t, oracle.WYSIWYG, "- [ ] a\n")
	f.EchoesEdits = true
	f.caretBefore(t, "a")
	f.press("Click")
	f.expectValue(t, "- [x] a\n")
	if f.Engine.Entry() != reconcile.Replaying {
		t.Errorf("Entry = %s", f.Engine.Entry())
	}
}

func TestPreviewOpens(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "a\n\n```\ncode\n```\n")
	f.caretAfter(t, "a")
	fence := f.Surface().Root.LastChild()

	f.press("Down")
	if f.caretBlock() != fence || !fence.Attrs.Expanded {
		t.Fatalf("Down: caret in %s expanded=%v", surface.Dump(f.caretBlock()), fence.Attrs.Expanded)
	}
	f.press("Up")
	if fence.Attrs.Expanded {
		t.Error("fence stayed open after leaving")
	}
}

func TestFormatting(t *testing.T) {
	for _, mode := range []oracle.Mode{oracle.WYSIWYG, oracle.IR} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, mode, "ab\n")
			leaf, _ := f.leaf(t, "ab")
			f.Surface().SetSelection(surface.Range{
				Start: surface.Point{Node: leaf},
				End:   surface.Point{Node: leaf, Offset: 2},
			})
			f.press("Ctrl+B")
			f.expectValue(t, "**ab**\n")
			if surface.Closest(f.Surface().Caret().Node, surface.KindSetOf(surface.KindStrong)) == nil {
				t.Fatal("caret outside the new strong")
			}
			f.press("Ctrl+B")
			f.expectValue(t, "ab\n")
		})
	}
}

func TestHeadingLevels(t *testing.T) {
	for _, mode := range []oracle.Mode{oracle.WYSIWYG, oracle.IR} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, mode, "a\n")
			f.caretAfter(t, "a")
			steps := []struct {
				spec string
				want string
			}{
				{"Ctrl+=", "###### a\n"},
				{"Ctrl+=", "##### a\n"},
				{"Ctrl+-", "###### a\n"},
				{"Ctrl+-", "a\n"},
				{"Ctrl+-", "a\n"},
			}
			for _, st := range steps {
				f.press(st.spec)
				f.expectValue(t, st.want)
			}
		})
	}
}

func TestEscape(t *testing.T) {
	f := newFixture(t, oracle.WYSIWYG, "x\n")
	f.Hint = hint.NewSession(hint.WithTrigger(":", false, hint.SourceFunc(
		func(context.Context, string) ([]hint.Candidate, error) {
			return []hint.Candidate{{Display: "a", Value: "a"}}, nil
		})))
	f.Hint.Update(":a", 2)

	if f.press("Escape") != Handled || f.escs != 0 {
		t.Fatalf("first Escape: escs=%d", f.escs)
	}
	if f.Hint.State() != hint.Closed {
		t.Error("hint still open")
	}
	f.expectValue(t, "x\n")
	if f.press("Escape") != Handled || f.escs != 1 {
		t.Errorf("second Escape: escs=%d", f.escs)
	}

	f.Esc = nil
	if f.press("Escape") != Pass {
		t.Error("Escape without hook handled")
	}
}

func TestSourceEnter(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bullet", "- a\n", "- a\n- \n"},
		{"ordered", "1. a\n", "1. a\n2. \n"},
		{"task", "- [x] a\n", "- [x] a\n- [ ] \n"},
		{"quote", "> a\n", "> a\n> \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, oracle.SV, tt.doc)
			f.Surface().CaretAtEnd()
			if f.press("Enter") != Handled {
				t.Fatal("Enter passed")
			}
			f.expectValue(t, tt.want)
		})
	}

	f := newFixture(t, oracle.SV, "- a\n")
	f.Surface().CaretAtEnd()
	f.press("Enter")
	f.press("Enter")
	f.expectValue(t, "- a\n")
}

func TestSourceTab(t *testing.T) {
	f := newFixture(t, oracle.SV, "- a\n- b\n")
	f.caretAfter(t, "- b")
	f.press("Tab")
	f.expectValue(t, "- a\n    - b\n")
	f.press("Shift+Tab")
	f.expectValue(t, "- a\n- b\n")
}
