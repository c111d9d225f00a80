// Package scope finds the part of the surface that must be re-rendered
// after an edit.
package scope

import (
	"github.com/dshills/inkstorm/internal/surface"
)

// Scope is the unit handed to the oracle for one reconciliation.
type Scope struct {
	// Nodes are adjacent siblings serialized together, in document order.
	Nodes []*surface.Node
	// Whole is set when the scope is the entire surface. Nodes then holds
	// the root's children and a splice replaces only those.
	Whole bool
	// Kind is the kind of the block that decided the scope.
	Kind surface.Kind
}

// First returns the first scope node, or nil.
func (s Scope) First() *surface.Node {
	if len(s.Nodes) == 0 {
		return nil
	}
	return s.Nodes[0]
}

// Last returns the last scope node, or nil.
func (s Scope) Last() *surface.Node {
	if len(s.Nodes) == 0 {
		return nil
	}
	return s.Nodes[len(s.Nodes)-1]
}

var (
	// containers are re-rendered as a whole; the outermost one wins, so a
	// list inside a blockquote resolves to the blockquote and a blockquote
	// inside a list resolves to the list.
	containers = surface.KindSetOf(
		surface.KindList,
		surface.KindBlockquote,
		surface.KindTable,
		surface.KindFootnotesBlock,
		surface.KindLinkRefBlock,
	)

	leafBlocks = surface.KindSetOf(
		surface.KindParagraph,
		surface.KindHeading,
		surface.KindThematicBreak,
		surface.KindCodeBlock,
		surface.KindMathBlock,
		surface.KindHTMLBlock,
		surface.KindSource,
	)

	// adjacent runs of these kinds form one serialization unit.
	runs = surface.KindSetOf(
		surface.KindList,
		surface.KindBlockquote,
		surface.KindFootnotesBlock,
		surface.KindLinkRefBlock,
	)
)

// Resolver picks scopes.
type Resolver interface {
	Resolve(root, n *surface.Node) Scope
}

// Blocks is the Resolver for the rendered modes.
type Blocks struct{}

// Resolve implements Resolver. It returns the whole surface when n is nil,
// detached from root, or outside every known block.
func (Blocks) Resolve(root, n *surface.Node) Scope {
	if n == nil || !root.Contains(n) || n == root {
		return Whole(root)
	}
	b := surface.Outermost(n, containers, root)
	if b == nil {
		b = surface.Closest(n, leafBlocks)
	}
	if b == nil || b == root {
		return Whole(root)
	}
	return Scope{Nodes: withRuns(b), Kind: b.Kind}
}

// Source is the Resolver for split view, where every block is raw text.
type Source struct{}

// Resolve implements Resolver.
func (Source) Resolve(root, n *surface.Node) Scope {
	if n == nil || !root.Contains(n) {
		return Whole(root)
	}
	b := surface.TopLevel(root, n)
	if b == nil {
		return Whole(root)
	}
	return Scope{Nodes: []*surface.Node{b}, Kind: b.Kind}
}

// Whole returns the scope covering the whole surface.
func Whole(root *surface.Node) Scope {
	return Scope{Nodes: root.Children(), Whole: true, Kind: surface.KindDocument}
}

// withRuns extends b over its siblings of the same kind.
func withRuns(b *surface.Node) []*surface.Node {
	if !runs.Has(b.Kind) {
		return []*surface.Node{b}
	}
	first := b
	for p := first.Prev(); p != nil && p.Kind == b.Kind; p = p.Prev() {
		first = p
	}
	var nodes []*surface.Node
	for c := first; c != nil && c.Kind == b.Kind; c = c.Next() {
		nodes = append(nodes, c)
	}
	return nodes
}
