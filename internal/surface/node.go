package surface

import "strings"

// Attrs holds the kind-specific attributes of a node.
type Attrs struct {
	// Level is the heading level (1-6).
	Level int

	// Ordered, Start, Delim and Bullet describe a list.
	Ordered bool
	Start   int
	Delim   byte // '.' or ')' for ordered lists
	Bullet  byte // '-', '*' or '+' for bullet lists
	Tight   bool

	// Checked is the state of a task marker.
	Checked bool

	// Info and Fence describe a fenced code block.
	Info  string
	Fence string

	// Label, Dest and Title describe links, images, footnotes and
	// link reference definitions.
	Label string
	Dest  string
	Title string
	Auto  bool
	Ref   RefStyle

	// Delim of emphasis ('*' or '_').
	EmDelim byte

	// Header marks the header row of a table.
	Header bool
	// Aligns holds the column alignments of a table.
	Aligns []Align
	// Align is the alignment of a table cell.
	Align Align

	// Expanded is true when a code or math block is opened for editing
	// instead of showing its rendered preview.
	Expanded bool
}

// RefStyle is the way a link names its destination.
type RefStyle uint8

const (
	RefInline    RefStyle = iota // [text](dest)
	RefFull                      // [text][label]
	RefCollapsed                 // [text][]
	RefShortcut                  // [text]
)

func (a Attrs) clone() Attrs {
	c := a
	if a.Aligns != nil {
		c.Aligns = append([]Align(nil), a.Aligns...)
	}
	return c
}

// Node is a node of the editable surface.
type Node struct {
	Kind  Kind
	Text  string
	Attrs Attrs

	parent     *Node
	firstChild *Node
	lastChild  *Node
	prev       *Node
	next       *Node
}

// NewNode creates a detached node of the given kind.
func NewNode(kind Kind) *Node {
	return &Node{Kind: kind}
}

// NewText creates a detached text leaf.
func NewText(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// NewMarker creates a detached marker leaf holding visible syntax.
func NewMarker(s string) *Node {
	return &Node{Kind: KindMarker, Text: s}
}

// NewCodeInfo creates a detached leaf holding the info string of a code
// block followed by the newline that ends the opening line.
func NewCodeInfo(info string) *Node {
	return &Node{Kind: KindCodeInfo, Text: info + "\n"}
}

// NewBlock creates a block of the given kind with the given children.
func NewBlock(kind Kind, children ...*Node) *Node {
	n := NewNode(kind)
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// Parent returns the parent node, or nil for a detached or root node.
func (n *Node) Parent() *Node { return n.parent }

// FirstChild returns the first child.
func (n *Node) FirstChild() *Node { return n.firstChild }

// LastChild returns the last child.
func (n *Node) LastChild() *Node { return n.lastChild }

// Prev returns the previous sibling.
func (n *Node) Prev() *Node { return n.prev }

// Next returns the next sibling.
func (n *Node) Next() *Node { return n.next }

// HasChildren reports whether n has any children.
func (n *Node) HasChildren() bool { return n.firstChild != nil }

// Children returns the children of n as a slice.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.next {
		out = append(out, c)
	}
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	count := 0
	for c := n.firstChild; c != nil; c = c.next {
		count++
	}
	return count
}

// Index returns the position of n among its siblings.
func (n *Node) Index() int {
	i := 0
	for c := n.prev; c != nil; c = c.prev {
		i++
	}
	return i
}

// Child returns the i-th child, or nil.
func (n *Node) Child(i int) *Node {
	c := n.firstChild
	for ; c != nil && i > 0; i-- {
		c = c.next
	}
	return c
}

// AppendChild adds c as the last child of n, detaching it first.
func (n *Node) AppendChild(c *Node) {
	c.Remove()
	c.parent = n
	if n.lastChild == nil {
		n.firstChild = c
		n.lastChild = c
		return
	}
	c.prev = n.lastChild
	n.lastChild.next = c
	n.lastChild = c
}

// PrependChild adds c as the first child of n, detaching it first.
func (n *Node) PrependChild(c *Node) {
	if n.firstChild == nil {
		n.AppendChild(c)
		return
	}
	n.firstChild.InsertBefore(c)
}

// InsertBefore inserts c as the previous sibling of n.
func (n *Node) InsertBefore(c *Node) {
	c.Remove()
	c.parent = n.parent
	c.next = n
	c.prev = n.prev
	if n.prev != nil {
		n.prev.next = c
	} else if n.parent != nil {
		n.parent.firstChild = c
	}
	n.prev = c
}

// InsertAfter inserts c as the next sibling of n.
func (n *Node) InsertAfter(c *Node) {
	c.Remove()
	c.parent = n.parent
	c.prev = n
	c.next = n.next
	if n.next != nil {
		n.next.prev = c
	} else if n.parent != nil {
		n.parent.lastChild = c
	}
	n.next = c
}

// Remove detaches n from its parent and siblings.
func (n *Node) Remove() {
	if n.prev != nil {
		n.prev.next = n.next
	} else if n.parent != nil && n.parent.firstChild == n {
		n.parent.firstChild = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if n.parent != nil && n.parent.lastChild == n {
		n.parent.lastChild = n.prev
	}
	n.parent = nil
	n.prev = nil
	n.next = nil
}

// ReplaceWith puts nodes in place of n and detaches n.
func (n *Node) ReplaceWith(nodes ...*Node) {
	anchor := n
	for _, r := range nodes {
		if r == n {
			continue
		}
		anchor.InsertAfter(r)
		anchor = r
	}
	n.Remove()
}

// RemoveChildren detaches every child of n.
func (n *Node) RemoveChildren() {
	for c := n.firstChild; c != nil; {
		next := c.next
		c.parent, c.prev, c.next = nil, nil, nil
		c = next
	}
	n.firstChild = nil
	n.lastChild = nil
}

// SetChildren replaces the children of n.
func (n *Node) SetChildren(children ...*Node) {
	n.RemoveChildren()
	for _, c := range children {
		n.AppendChild(c)
	}
}

// MoveChildrenTo appends all children of n to dst.
func (n *Node) MoveChildrenTo(dst *Node) {
	for c := n.firstChild; c != nil; {
		next := c.next
		dst.AppendChild(c)
		c = next
	}
}

// Clone returns a deep copy of n, detached.
func (n *Node) Clone() *Node {
	c := &Node{Kind: n.Kind, Text: n.Text, Attrs: n.Attrs.clone()}
	for ch := n.firstChild; ch != nil; ch = ch.next {
		c.AppendChild(ch.Clone())
	}
	return c
}

// ShallowClone returns a copy of n without children.
func (n *Node) ShallowClone() *Node {
	return &Node{Kind: n.Kind, Text: n.Text, Attrs: n.Attrs.clone()}
}

// TextContent returns the characters of every leaf under n in document order.
func (n *Node) TextContent() string {
	if n.Kind.IsLeaf() {
		return n.Text
	}
	var b strings.Builder
	Walk(n, func(c *Node, entering bool) WalkStatus {
		if entering && c.Kind.IsLeaf() {
			b.WriteString(c.Text)
		}
		return WalkContinue
	})
	return b.String()
}

// Contains reports whether d is n or a descendant of n.
func (n *Node) Contains(d *Node) bool {
	for p := d; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of n.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}
