package oracle

import (
	"strconv"
	"strings"

	"github.com/dshills/inkstorm/internal/surface"
)

// joinBlocks serializes sibling blocks separated by blank lines. Blocks
// that serialize to nothing are left out.
func joinBlocks(blocks []*surface.Node) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := serializeBlock(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func serializeBlock(n *surface.Node) string {
	switch n.Kind {
	case surface.KindParagraph:
		return serializeInlines(n)

	case surface.KindHeading:
		if startsWithMarker(n) {
			return serializeInlines(n)
		}
		level := n.Attrs.Level
		if level < 1 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + strings.ReplaceAll(serializeInlines(n), "\n", " ")

	case surface.KindThematicBreak:
		if t := n.TextContent(); strings.TrimSpace(t) != "" {
			return t
		}
		return "---"

	case surface.KindCodeBlock:
		if startsWithMarker(n) {
			return n.TextContent()
		}
		head, content := n.Attrs.Info+"\n", n.TextContent()
		if info := n.FirstChild(); info != nil && info.Kind == surface.KindCodeInfo {
			head, content = info.Text, strings.TrimPrefix(content, info.Text)
			if !strings.Contains(head, "\n") {
				head += "\n"
			}
		}
		fence := fenceFor(head + content)
		return fence + head + content + "\n" + fence

	case surface.KindMathBlock:
		if startsWithMarker(n) {
			return n.TextContent()
		}
		return "$$\n" + n.TextContent() + "\n$$"

	case surface.KindHTMLBlock, surface.KindSource, surface.KindLinkRefDef:
		return n.TextContent()

	case surface.KindLinkRefBlock:
		var lines []string
		for c := n.FirstChild(); c != nil; c = c.Next() {
			if t := c.TextContent(); t != "" {
				lines = append(lines, t)
			}
		}
		return strings.Join(lines, "\n")

	case surface.KindBlockquote:
		return prefixLines(joinBlocks(n.Children()), "> ")

	case surface.KindList:
		return serializeList(n)

	case surface.KindListItem:
		return serializeItem(n, "- ", false)

	case surface.KindTable:
		return serializeTable(n)

	case surface.KindTableRow:
		return serializeRow(n, n.ChildCount())

	case surface.KindFootnotesBlock:
		return joinBlocks(n.Children())

	case surface.KindFootnoteDef:
		return indentLines(joinBlocks(n.Children()), "[^"+n.Attrs.Label+"]: ", "    ")
	}
	return serializeInlines(n)
}

func startsWithMarker(n *surface.Node) bool {
	c := n.FirstChild()
	return c != nil && c.Kind == surface.KindMarker
}

func serializeList(n *surface.Node) string {
	sep := "\n\n"
	if n.Attrs.Tight {
		sep = "\n"
	}
	items := make([]string, 0, n.ChildCount())
	i := 0
	for item := n.FirstChild(); item != nil; item = item.Next() {
		items = append(items, serializeItem(item, listMarker(n, i), n.Attrs.Tight))
		i++
	}
	return strings.Join(items, sep)
}

func listMarker(list *surface.Node, i int) string {
	if list.Attrs.Ordered {
		delim := list.Attrs.Delim
		if delim == 0 {
			delim = '.'
		}
		return strconv.Itoa(list.Attrs.Start+i) + string(delim) + " "
	}
	bullet := list.Attrs.Bullet
	if bullet == 0 {
		bullet = '-'
	}
	return string(bullet) + " "
}

func serializeItem(item *surface.Node, marker string, tight bool) string {
	sep := "\n\n"
	if tight {
		sep = "\n"
	}
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.Next() {
		s := serializeBlock(c)
		if s == "" && len(parts) > 0 {
			continue
		}
		parts = append(parts, s)
	}
	return indentLines(strings.Join(parts, sep), marker, strings.Repeat(" ", len(marker)))
}

// indentLines prefixes the first line with first and every other non-empty
// line with rest.
func indentLines(body, first, rest string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		switch {
		case i == 0:
			lines[i] = first + l
		case l != "":
			lines[i] = rest + l
		}
	}
	return strings.Join(lines, "\n")
}

// prefixLines prefixes every line; empty lines get the trimmed prefix.
func prefixLines(body, prefix string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = strings.TrimRight(prefix, " ")
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func serializeTable(n *surface.Node) string {
	cols := len(n.Attrs.Aligns)
	for r := n.FirstChild(); r != nil; r = r.Next() {
		if c := r.ChildCount(); c > cols {
			cols = c
		}
	}
	if cols == 0 {
		return ""
	}
	var lines []string
	for r := n.FirstChild(); r != nil; r = r.Next() {
		lines = append(lines, serializeRow(r, cols))
		if r == n.FirstChild() {
			lines = append(lines, delimiterRow(n.Attrs.Aligns, cols))
		}
	}
	return strings.Join(lines, "\n")
}

func serializeRow(r *surface.Node, cols int) string {
	var b strings.Builder
	b.WriteByte('|')
	cell := r.FirstChild()
	for i := 0; i < cols; i++ {
		if cell != nil {
			b.WriteString(escapePipes(strings.ReplaceAll(serializeInlines(cell), "\n", " ")))
			cell = cell.Next()
		}
		b.WriteByte('|')
	}
	return b.String()
}

func delimiterRow(aligns []surface.Align, cols int) string {
	var b strings.Builder
	b.WriteByte('|')
	for i := 0; i < cols; i++ {
		a := surface.AlignNone
		if i < len(aligns) {
			a = aligns[i]
		}
		switch a {
		case surface.AlignLeft:
			b.WriteString(":--")
		case surface.AlignCenter:
			b.WriteString(":-:")
		case surface.AlignRight:
			b.WriteString("--:")
		default:
			b.WriteString("---")
		}
		b.WriteByte('|')
	}
	return b.String()
}

// escapePipes escapes every pipe not already escaped.
func escapePipes(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '|' && (i == 0 || s[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func serializeInlines(n *surface.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.Next() {
		b.WriteString(serializeInline(c))
	}
	return b.String()
}

func serializeInline(n *surface.Node) string {
	switch n.Kind {
	case surface.KindText, surface.KindMarker:
		return n.Text
	case surface.KindHardBreak:
		return "\\\n"
	case surface.KindTaskMarker:
		if n.Attrs.Checked {
			return "[x] "
		}
		return "[ ] "
	case surface.KindHTMLInline:
		return n.TextContent()
	}

	// Instant-rendering nodes carry their own syntax.
	if startsWithMarker(n) {
		return serializeInlines(n)
	}

	inner := serializeInlines(n)
	switch n.Kind {
	case surface.KindEmphasis, surface.KindStrong, surface.KindStrike:
		if inner == "" {
			return ""
		}
		d := "~~"
		if n.Kind != surface.KindStrike {
			delim := n.Attrs.EmDelim
			if delim == 0 {
				delim = '*'
			}
			d = string(delim)
			if n.Kind == surface.KindStrong {
				d += d
			}
		}
		return d + inner + d

	case surface.KindCodeSpan:
		if inner == "" {
			return ""
		}
		open, closing := codeSpanDelims(inner)
		return open + inner + closing

	case surface.KindLink:
		if n.Attrs.Auto {
			return "<" + inner + ">"
		}
		return "[" + inner + linkTail(n)

	case surface.KindImage:
		return "![" + n.Attrs.Label + "](" + destination(n.Attrs.Dest, n.Attrs.Title) + ")"

	case surface.KindFootnoteRef:
		return "[^" + n.Attrs.Label + "]"
	}
	return inner
}
