package surface

// WalkStatus controls a tree walk.
type WalkStatus int

const (
	// WalkContinue continues the walk.
	WalkContinue WalkStatus = iota
	// WalkSkipChildren skips the children of the current node.
	WalkSkipChildren
	// WalkStop ends the walk.
	WalkStop
)

// Walker is called for every node on entry and exit.
type Walker func(n *Node, entering bool) WalkStatus

// Walk traverses n depth-first.
func Walk(n *Node, fn Walker) {
	walk(n, fn)
}

func walk(n *Node, fn Walker) WalkStatus {
	status := fn(n, true)
	if status == WalkStop {
		return WalkStop
	}
	if status != WalkSkipChildren {
		for c := n.firstChild; c != nil; {
			next := c.next
			if walk(c, fn) == WalkStop {
				return WalkStop
			}
			c = next
		}
	}
	if fn(n, false) == WalkStop {
		return WalkStop
	}
	return WalkContinue
}

// Closest returns the nearest ancestor-or-self of n whose kind is in set.
func Closest(n *Node, set KindSet) *Node {
	for p := n; p != nil; p = p.parent {
		if set.Has(p.Kind) {
			return p
		}
	}
	return nil
}

// Outermost returns the farthest ancestor-or-self of n whose kind is in set,
// not looking past stop.
func Outermost(n *Node, set KindSet, stop *Node) *Node {
	var found *Node
	for p := n; p != nil && p != stop; p = p.parent {
		if set.Has(p.Kind) {
			found = p
		}
	}
	return found
}

// Block returns the nearest block ancestor-or-self of n.
func Block(n *Node) *Node {
	for p := n; p != nil; p = p.parent {
		if p.Kind.IsBlock() {
			return p
		}
	}
	return nil
}

// TextBlock returns the nearest ancestor-or-self holding inline content.
func TextBlock(n *Node) *Node {
	return Closest(n, TextBlocks)
}

// TopLevel returns the ancestor-or-self of n that is a direct child of root.
func TopLevel(root, n *Node) *Node {
	for p := n; p != nil; p = p.parent {
		if p.parent == root {
			return p
		}
	}
	return nil
}

// Leaves returns every leaf under n in document order.
func Leaves(n *Node) []*Node {
	var out []*Node
	Walk(n, func(c *Node, entering bool) WalkStatus {
		if entering && c.Kind.IsLeaf() {
			out = append(out, c)
		}
		return WalkContinue
	})
	return out
}

// FirstLeaf returns the first leaf under n.
func FirstLeaf(n *Node) *Node {
	if n.Kind.IsLeaf() {
		return n
	}
	for c := n.firstChild; c != nil; c = c.next {
		if l := FirstLeaf(c); l != nil {
			return l
		}
	}
	return nil
}

// LastLeaf returns the last leaf under n.
func LastLeaf(n *Node) *Node {
	if n.Kind.IsLeaf() {
		return n
	}
	for c := n.lastChild; c != nil; c = c.prev {
		if l := LastLeaf(c); l != nil {
			return l
		}
	}
	return nil
}

// NextLeaf returns the leaf following n in document order within root.
func NextLeaf(root, n *Node) *Node {
	for p := n; p != nil && p != root; p = p.parent {
		for s := p.next; s != nil; s = s.next {
			if l := FirstLeaf(s); l != nil {
				return l
			}
		}
	}
	return nil
}

// PrevLeaf returns the leaf preceding n in document order within root.
func PrevLeaf(root, n *Node) *Node {
	for p := n; p != nil && p != root; p = p.parent {
		for s := p.prev; s != nil; s = s.prev {
			if l := LastLeaf(s); l != nil {
				return l
			}
		}
	}
	return nil
}

// Find returns the first node under n for which match returns true.
func Find(n *Node, match func(*Node) bool) *Node {
	var found *Node
	Walk(n, func(c *Node, entering bool) WalkStatus {
		if entering && match(c) {
			found = c
			return WalkStop
		}
		return WalkContinue
	})
	return found
}

// FindAll returns every node under n for which match returns true.
func FindAll(n *Node, match func(*Node) bool) []*Node {
	var out []*Node
	Walk(n, func(c *Node, entering bool) WalkStatus {
		if entering && match(c) {
			out = append(out, c)
		}
		return WalkContinue
	})
	return out
}

// OfKind returns a matcher for FindAll that selects nodes of the given kinds.
func OfKind(kinds ...Kind) func(*Node) bool {
	set := KindSetOf(kinds...)
	return func(n *Node) bool { return set.Has(n.Kind) }
}
