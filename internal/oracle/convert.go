package oracle

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/inkstorm/internal/surface"
)

// converter maps a goldmark tree onto surface nodes for one mode.
type converter struct {
	mode   Mode
	logger *log.Logger
}

func (c *converter) ir() bool { return c.mode == IR }

func (c *converter) blocks(parent ast.Node, src []byte) []*surface.Node {
	var out []*surface.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := c.block(n, src); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c *converter) appendBlocks(dst *surface.Node, parent ast.Node, src []byte) {
	for _, b := range c.blocks(parent, src) {
		dst.AppendChild(b)
	}
	if !dst.HasChildren() {
		dst.AppendChild(surface.NewBlock(surface.KindParagraph, surface.NewText("")))
	}
}

func (c *converter) block(n ast.Node, src []byte) *surface.Node {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return c.textBlock(surface.KindParagraph, n, src)

	case *ast.Heading:
		h := surface.NewNode(surface.KindHeading)
		h.Attrs.Level = n.Level
		if c.ir() {
			h.AppendChild(surface.NewMarker(strings.Repeat("#", n.Level) + " "))
		}
		c.inlines(h, n, src)
		ensureLeaf(h)
		return h

	case *ast.ThematicBreak:
		hr := surface.NewNode(surface.KindThematicBreak)
		if c.ir() {
			hr.AppendChild(surface.NewMarker("---"))
		}
		return hr

	case *ast.FencedCodeBlock:
		info := ""
		if n.Info != nil {
			info = string(n.Info.Segment.Value(src))
		}
		return c.codeBlock(info, strings.TrimSuffix(segmentsText(n.Lines(), src), "\n"))

	case *ast.CodeBlock:
		return c.codeBlock("", strings.TrimSuffix(segmentsText(n.Lines(), src), "\n"))

	case *ast.HTMLBlock:
		raw := segmentsText(n.Lines(), src)
		if n.HasClosure() {
			raw += string(n.ClosureLine.Value(src))
		}
		return surface.NewBlock(surface.KindHTMLBlock, surface.NewText(strings.TrimRight(raw, "\n")))

	case *ast.Blockquote:
		q := surface.NewNode(surface.KindBlockquote)
		c.appendBlocks(q, n, src)
		return q

	case *ast.List:
		l := surface.NewNode(surface.KindList)
		l.Attrs.Ordered = n.IsOrdered()
		l.Attrs.Start = n.Start
		l.Attrs.Tight = n.IsTight
		if l.Attrs.Ordered {
			l.Attrs.Delim = n.Marker
		} else {
			l.Attrs.Bullet = n.Marker
		}
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			li := surface.NewNode(surface.KindListItem)
			c.appendBlocks(li, item, src)
			l.AppendChild(li)
		}
		return l

	case *east.Table:
		return c.table(n, src)
	}

	c.logger.Debug("block degraded to text", "kind", n.Kind().String())
	if n.Lines().Len() == 0 {
		return nil
	}
	return surface.NewBlock(surface.KindParagraph, surface.NewText(strings.TrimSuffix(segmentsText(n.Lines(), src), "\n")))
}

func (c *converter) textBlock(kind surface.Kind, n ast.Node, src []byte) *surface.Node {
	b := surface.NewNode(kind)
	c.inlines(b, n, src)
	ensureLeaf(b)
	return b
}

func (c *converter) codeBlock(info, content string) *surface.Node {
	b := surface.NewNode(surface.KindCodeBlock)
	b.Attrs.Info = info
	b.Attrs.Fence = fenceFor(content)
	if c.ir() {
		b.AppendChild(surface.NewMarker(b.Attrs.Fence + info + "\n"))
		b.AppendChild(surface.NewText(content))
		b.AppendChild(surface.NewMarker("\n" + b.Attrs.Fence))
		return b
	}
	b.AppendChild(surface.NewCodeInfo(info))
	b.AppendChild(surface.NewText(content))
	return b
}

func (c *converter) mathBlock(content string) *surface.Node {
	b := surface.NewNode(surface.KindMathBlock)
	if c.ir() {
		b.AppendChild(surface.NewMarker("$$\n"))
		b.AppendChild(surface.NewText(content))
		b.AppendChild(surface.NewMarker("\n$$"))
		return b
	}
	b.AppendChild(surface.NewText(content))
	return b
}

func (c *converter) table(n *east.Table, src []byte) *surface.Node {
	t := surface.NewNode(surface.KindTable)
	for _, a := range n.Alignments {
		t.Attrs.Aligns = append(t.Attrs.Aligns, alignOf(a))
	}
	for r := n.FirstChild(); r != nil; r = r.NextSibling() {
		row := surface.NewNode(surface.KindTableRow)
		_, row.Attrs.Header = r.(*east.TableHeader)
		for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tc := surface.NewNode(surface.KindTableCell)
			if tcell, ok := cell.(*east.TableCell); ok {
				tc.Attrs.Align = alignOf(tcell.Alignment)
			}
			c.inlines(tc, cell, src)
			ensureLeaf(tc)
			row.AppendChild(tc)
		}
		t.AppendChild(row)
	}
	return t
}

func alignOf(a east.Alignment) surface.Align {
	switch a {
	case east.AlignLeft:
		return surface.AlignLeft
	case east.AlignCenter:
		return surface.AlignCenter
	case east.AlignRight:
		return surface.AlignRight
	}
	return surface.AlignNone
}

func (c *converter) inlines(dst *surface.Node, parent ast.Node, src []byte) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		c.inline(dst, n, src)
	}
	splitFootnoteRefs(dst, c.ir())
}

func (c *converter) inline(dst *surface.Node, n ast.Node, src []byte) {
	switch n := n.(type) {
	case *ast.Text:
		s := string(n.Segment.Value(src))
		if n.HardLineBreak() {
			if strings.HasSuffix(s, `\`) && (n.Segment.Stop >= len(src) || src[n.Segment.Stop] != '\\') {
				s = s[:len(s)-1]
			}
			appendText(dst, s)
			dst.AppendChild(surface.NewNode(surface.KindHardBreak))
			return
		}
		if n.SoftLineBreak() {
			s += "\n"
		}
		appendText(dst, s)

	case *ast.String:
		appendText(dst, string(n.Value))

	case *ast.CodeSpan:
		code := rawText(n, src)
		cs := surface.NewNode(surface.KindCodeSpan)
		if c.ir() {
			open, closing := codeSpanDelims(code)
			cs.AppendChild(surface.NewMarker(open))
			cs.AppendChild(surface.NewText(code))
			cs.AppendChild(surface.NewMarker(closing))
		} else {
			cs.AppendChild(surface.NewText(code))
		}
		dst.AppendChild(cs)

	case *ast.Emphasis:
		kind := surface.KindEmphasis
		if n.Level >= 2 {
			kind = surface.KindStrong
		}
		e := surface.NewNode(kind)
		e.Attrs.EmDelim = emDelim(n, src)
		c.wrapped(dst, e, n, src, strings.Repeat(string(e.Attrs.EmDelim), n.Level), "")

	case *east.Strikethrough:
		c.wrapped(dst, surface.NewNode(surface.KindStrike), n, src, "~~", "")

	case *ast.Link:
		l := surface.NewNode(surface.KindLink)
		l.Attrs.Dest = string(n.Destination)
		l.Attrs.Title = string(n.Title)
		l.Attrs.Ref, l.Attrs.Label = refStyle(n, src)
		c.wrapped(dst, l, n, src, "[", linkTail(l))

	case *ast.Image:
		img := surface.NewNode(surface.KindImage)
		img.Attrs.Dest = string(n.Destination)
		img.Attrs.Title = string(n.Title)
		alt := rawText(n, src)
		if c.ir() {
			img.AppendChild(surface.NewMarker("!["))
			img.AppendChild(surface.NewText(alt))
			img.AppendChild(surface.NewMarker("](" + destination(img.Attrs.Dest, img.Attrs.Title) + ")"))
		} else {
			img.Attrs.Label = alt
		}
		dst.AppendChild(img)

	case *ast.AutoLink:
		l := surface.NewNode(surface.KindLink)
		l.Attrs.Auto = true
		l.Attrs.Dest = string(n.URL(src))
		label := surface.NewText(string(n.Label(src)))
		if c.ir() {
			l.SetChildren(surface.NewMarker("<"), label, surface.NewMarker(">"))
		} else {
			l.SetChildren(label)
		}
		dst.AppendChild(l)

	case *ast.RawHTML:
		dst.AppendChild(surface.NewBlock(surface.KindHTMLInline, surface.NewText(segmentsText(n.Segments, src))))

	case *east.TaskCheckBox:
		t := surface.NewNode(surface.KindTaskMarker)
		t.Attrs.Checked = n.IsChecked
		dst.AppendChild(t)

	default:
		c.logger.Debug("inline degraded to text", "kind", n.Kind().String())
		appendText(dst, rawText(n, src))
	}
}

// wrapped converts a formatting node whose children are inline content,
// surrounding them with delimiter markers in IR mode.
func (c *converter) wrapped(dst, node *surface.Node, n ast.Node, src []byte, open, closing string) {
	if closing == "" {
		closing = open
	}
	if c.ir() {
		node.AppendChild(surface.NewMarker(open))
	}
	c.inlines(node, n, src)
	if c.ir() {
		node.AppendChild(surface.NewMarker(closing))
	} else if !node.HasChildren() {
		node.AppendChild(surface.NewText(""))
	}
	dst.AppendChild(node)
}

func appendText(dst *surface.Node, s string) {
	if last := dst.LastChild(); last != nil && last.Kind == surface.KindText {
		last.Text += s
		return
	}
	dst.AppendChild(surface.NewText(s))
}

func ensureLeaf(n *surface.Node) {
	if surface.FirstLeaf(n) == nil {
		n.AppendChild(surface.NewText(""))
	}
}

// segmentsText concatenates the source of every segment.
func segmentsText(segs *text.Segments, src []byte) string {
	var b strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// rawText returns the characters of every text node under n.
func rawText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// emDelim reads the emphasis character from the byte before the first
// text inside n.
func emDelim(n ast.Node, src []byte) byte {
	if t := firstText(n); t != nil && t.Segment.Start > 0 {
		if d := src[t.Segment.Start-1]; d == '*' || d == '_' {
			return d
		}
	}
	return '*'
}

func firstText(n ast.Node) *ast.Text {
	for c := n.FirstChild(); c != nil; c = c.FirstChild() {
		if t, ok := c.(*ast.Text); ok {
			return t
		}
	}
	return nil
}

func lastTextStop(n ast.Node) int {
	stop := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering && t.Segment.Stop > stop {
			stop = t.Segment.Stop
		}
		return ast.WalkContinue, nil
	})
	return stop
}

// refStyle detects how a link names its destination by looking at the
// source that follows its text.
func refStyle(n *ast.Link, src []byte) (surface.RefStyle, string) {
	stop := lastTextStop(n)
	if stop < 0 {
		return surface.RefInline, ""
	}
	i := stop
	for i < len(src) && src[i] != ']' && src[i] != '\n' {
		i++
	}
	if i >= len(src) || src[i] != ']' {
		return surface.RefInline, ""
	}
	i++
	switch {
	case i < len(src) && src[i] == '(':
		return surface.RefInline, ""
	case i < len(src) && src[i] == '[':
		end := strings.IndexByte(string(src[i:]), ']')
		if end < 0 {
			return surface.RefInline, ""
		}
		if end == 1 {
			return surface.RefCollapsed, ""
		}
		return surface.RefFull, string(src[i+1 : i+end])
	}
	return surface.RefShortcut, ""
}

// linkTail returns the syntax that closes a link's text.
func linkTail(l *surface.Node) string {
	switch l.Attrs.Ref {
	case surface.RefShortcut:
		return "]"
	case surface.RefCollapsed:
		return "][]"
	case surface.RefFull:
		return "][" + l.Attrs.Label + "]"
	}
	return "](" + destination(l.Attrs.Dest, l.Attrs.Title) + ")"
}

func destination(dest, title string) string {
	if dest == "" || strings.ContainsAny(dest, " \t()") {
		dest = "<" + dest + ">"
	}
	if title == "" {
		return dest
	}
	if strings.Contains(title, `"`) {
		return dest + " (" + title + ")"
	}
	return dest + ` "` + title + `"`
}

func codeSpanDelims(code string) (string, string) {
	ticks := strings.Repeat("`", longestRun(code, '`')+1)
	if strings.HasPrefix(code, "`") || strings.HasSuffix(code, "`") {
		return ticks + " ", " " + ticks
	}
	return ticks, ticks
}

func fenceFor(content string) string {
	n := longestRun(content, '`') + 1
	if n < 3 {
		n = 3
	}
	return strings.Repeat("`", n)
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			if cur > best {
				best = cur
			}
			continue
		}
		cur = 0
	}
	return best
}

var footnoteRefRe = regexp.MustCompile(`\[\^([^\]\s]+)\]`)

// splitFootnoteRefs cuts "[^label]" out of the text children of n.
func splitFootnoteRefs(n *surface.Node, ir bool) {
	for c := n.FirstChild(); c != nil; c = c.Next() {
		if c.Kind != surface.KindText {
			continue
		}
		loc := footnoteRefRe.FindStringSubmatchIndex(c.Text)
		if loc == nil {
			continue
		}
		ref := surface.NewNode(surface.KindFootnoteRef)
		ref.Attrs.Label = c.Text[loc[2]:loc[3]]
		if ir {
			ref.AppendChild(surface.NewMarker(c.Text[loc[0]:loc[1]]))
		}
		rest := surface.NewText(c.Text[loc[1]:])
		c.Text = c.Text[:loc[0]]
		c.InsertAfter(ref)
		ref.InsertAfter(rest)
		c = ref
	}
}
