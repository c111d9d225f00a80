package surface

import (
	"fmt"
	"strings"
)

// Dump renders n as a compact one-line s-expression for tests and logs.
//
//	paragraph(text"a" strong(marker"**" text"b" marker"**"))
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n)
	return b.String()
}

func dump(b *strings.Builder, n *Node) {
	if n.Kind.IsLeaf() {
		fmt.Fprintf(b, "%s%q", n.Kind, n.Text)
		return
	}
	b.WriteString(n.Kind.String())
	if n.firstChild == nil {
		return
	}
	b.WriteByte('(')
	for c := n.firstChild; c != nil; c = c.next {
		if c != n.firstChild {
			b.WriteByte(' ')
		}
		dump(b, c)
	}
	b.WriteByte(')')
}

// Extract returns a detached document holding a copy of the content
// selected by r. Blocks partially covered by r are trimmed to the covered
// characters.
func Extract(root *Node, r Range) *Node {
	doc := NewNode(KindDocument)
	if r.Collapsed() || r.Start.Node == nil {
		return doc
	}
	leaves := Leaves(root)
	si, ei := -1, -1
	for i, l := range leaves {
		if l == r.Start.Node {
			si = i
		}
		if l == r.End.Node {
			ei = i
		}
	}
	if si < 0 || ei < 0 {
		return doc
	}

	clone := root.Clone()
	cloned := Leaves(clone)
	if si == ei {
		cloned[si].Text = cloned[si].Text[r.Start.Offset:r.End.Offset]
	} else {
		cloned[si].Text = cloned[si].Text[r.Start.Offset:]
		cloned[ei].Text = cloned[ei].Text[:r.End.Offset]
	}
	for i, l := range cloned {
		if i >= si && i <= ei {
			continue
		}
		parent := l.parent
		l.Remove()
		pruneEmpty(clone, parent, nil)
	}
	clone.MoveChildrenTo(doc)
	return doc
}
