package scope

import (
	"testing"

	"github.com/dshills/inkstorm/internal/surface"
)

func p(s string) *surface.Node {
	return surface.NewBlock(surface.KindParagraph, surface.NewText(s))
}

func item(blocks ...*surface.Node) *surface.Node {
	return surface.NewBlock(surface.KindListItem, blocks...)
}

func list(items ...*surface.Node) *surface.Node {
	return surface.NewBlock(surface.KindList, items...)
}

func TestResolveParagraph(t *testing.T) {
	target := p("b")
	root := surface.NewBlock(surface.KindDocument, p("a"), target, p("c"))

	got := Blocks{}.Resolve(root, surface.FirstLeaf(target))
	if got.Whole || len(got.Nodes) != 1 || got.Nodes[0] != target || got.Kind != surface.KindParagraph {
		t.Fatalf("scope = %+v", got)
	}
}

func TestResolveNestedListClimbsToOutermost(t *testing.T) {
	deep := p("deep")
	outer := list(item(p("one"), list(item(deep))), item(p("two")))
	before, after := p("before"), p("after")
	root := surface.NewBlock(surface.KindDocument, before, outer, after)

	got := Blocks{}.Resolve(root, surface.FirstLeaf(deep))
	if len(got.Nodes) != 1 || got.Nodes[0] != outer {
		t.Fatalf("scope = %v", got.Nodes)
	}
	for _, n := range got.Nodes {
		if n == before || n == after {
			t.Error("sibling paragraph in scope")
		}
	}
}

func TestResolveContainerNesting(t *testing.T) {
	inQuote := p("q")
	quote := surface.NewBlock(surface.KindBlockquote, list(item(inQuote)))

	inList := p("l")
	outer := list(item(surface.NewBlock(surface.KindBlockquote, inList)))

	root := surface.NewBlock(surface.KindDocument, quote, p("gap"), outer)

	tests := []struct {
		name string
		n    *surface.Node
		want *surface.Node
	}{
		{"list inside quote", inQuote, quote},
		{"quote inside list", inList, outer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Blocks{}.Resolve(root, surface.FirstLeaf(tt.n))
			if got.First() != tt.want {
				t.Errorf("scope = %s, want %s", got.First().Kind, tt.want.Kind)
			}
		})
	}
}

func TestResolveMergesAdjacentRuns(t *testing.T) {
	a := surface.NewBlock(surface.KindLinkRefBlock, surface.NewBlock(surface.KindLinkRefDef, surface.NewText("[a]: /a")))
	b := surface.NewBlock(surface.KindLinkRefBlock, surface.NewBlock(surface.KindLinkRefDef, surface.NewText("[b]: /b")))
	l1, l2 := list(item(p("x"))), list(item(p("y")))
	root := surface.NewBlock(surface.KindDocument, a, b, p("mid"), l1, l2)

	got := Blocks{}.Resolve(root, surface.FirstLeaf(b))
	if len(got.Nodes) != 2 || got.First() != a || got.Last() != b {
		t.Errorf("link refs scope = %v", got.Nodes)
	}
	got = Blocks{}.Resolve(root, surface.FirstLeaf(l1))
	if len(got.Nodes) != 2 || got.First() != l1 || got.Last() != l2 {
		t.Errorf("list scope = %v", got.Nodes)
	}
}

func TestResolveTableAndFence(t *testing.T) {
	cell := surface.NewBlock(surface.KindTableCell, surface.NewText("c"))
	table := surface.NewBlock(surface.KindTable, surface.NewBlock(surface.KindTableRow, cell))
	code := surface.NewBlock(surface.KindCodeBlock, surface.NewText("x"))
	root := surface.NewBlock(surface.KindDocument, table, code)

	if got := (Blocks{}).Resolve(root, surface.FirstLeaf(cell)); got.First() != table || got.Kind != surface.KindTable {
		t.Errorf("cell scope = %+v", got)
	}
	if got := (Blocks{}).Resolve(root, surface.FirstLeaf(code)); got.First() != code {
		t.Errorf("code scope = %+v", got)
	}
}

func TestResolveFallsBackToWhole(t *testing.T) {
	root := surface.NewBlock(surface.KindDocument, p("a"), p("b"))
	detached := surface.NewText("x")

	tests := []struct {
		name string
		n    *surface.Node
	}{
		{"nil", nil},
		{"detached", detached},
		{"root", root},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Blocks{}.Resolve(root, tt.n)
			if !got.Whole || len(got.Nodes) != 2 || got.Kind != surface.KindDocument {
				t.Errorf("scope = %+v", got)
			}
		})
	}
}

func TestSourceResolver(t *testing.T) {
	src := surface.NewBlock(surface.KindSource, surface.NewText("- a\n- b"))
	root := surface.NewBlock(surface.KindDocument, surface.NewBlock(surface.KindSource, surface.NewText("x")), src)

	got := Source{}.Resolve(root, surface.FirstLeaf(src))
	if len(got.Nodes) != 1 || got.First() != src || got.Whole {
		t.Errorf("scope = %+v", got)
	}
	if got := (Source{}).Resolve(root, nil); !got.Whole {
		t.Error("nil node did not resolve to whole")
	}
}
