package oracle

import (
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/inkstorm/internal/surface"
)

var policy = bluemonday.UGCPolicy()

// Sanitize strips everything from s that is not safe user content.
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// SafeHTML renders markdown to sanitized HTML.
func (m *Markdown) SafeHTML(markdown string) string {
	return Sanitize(m.ToHTML(markdown))
}

// HTMLToMarkdown converts pasted HTML into markdown. The HTML is sanitized
// first; unknown elements contribute their text.
func HTMLToMarkdown(s string) string {
	root, err := html.Parse(strings.NewReader(Sanitize(s)))
	if err != nil {
		return ""
	}
	doc := surface.NewNode(surface.KindDocument)
	htmlBlocks(root, doc)
	return joinBlocks(doc.Children())
}

var htmlBlockTags = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Head: true, atom.P: true, atom.Div: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Blockquote: true, atom.Pre: true,
	atom.Hr: true, atom.Table: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Aside: true, atom.Figure: true,
}

// htmlBlocks converts the children of parent into blocks appended to dst.
// Loose inline content is gathered into paragraphs.
func htmlBlocks(parent *html.Node, dst *surface.Node) {
	var para *surface.Node
	flush := func() {
		if para != nil && hasContent(para) {
			trimParagraph(para)
			dst.AppendChild(para)
		}
		para = nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && htmlBlockTags[c.DataAtom] {
			flush()
			htmlBlock(c, dst)
			continue
		}
		if c.Type == html.DocumentNode || c.Type == html.DoctypeNode {
			htmlBlocks(c, dst)
			continue
		}
		if para == nil {
			para = surface.NewNode(surface.KindParagraph)
		}
		htmlInline(c, para)
	}
	flush()
}

func htmlBlock(n *html.Node, dst *surface.Node) {
	switch n.DataAtom {
	case atom.Head:
		return

	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		h := surface.NewNode(surface.KindHeading)
		h.Attrs.Level = int(n.Data[1] - '0')
		htmlInlines(n, h)
		trimParagraph(h)
		ensureLeaf(h)
		dst.AppendChild(h)

	case atom.Ul, atom.Ol:
		l := surface.NewNode(surface.KindList)
		l.Attrs.Tight = true
		l.Attrs.Bullet = '-'
		if n.DataAtom == atom.Ol {
			l.Attrs.Ordered = true
			l.Attrs.Delim = '.'
			l.Attrs.Start = 1
			if v, err := strconv.Atoi(attr(n, "start")); err == nil {
				l.Attrs.Start = v
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.DataAtom != atom.Li {
				continue
			}
			item := surface.NewNode(surface.KindListItem)
			htmlBlocks(c, item)
			if !item.HasChildren() {
				item.AppendChild(surface.NewBlock(surface.KindParagraph, surface.NewText("")))
			}
			l.AppendChild(item)
		}
		if l.HasChildren() {
			dst.AppendChild(l)
		}

	case atom.Blockquote:
		q := surface.NewNode(surface.KindBlockquote)
		htmlBlocks(n, q)
		if q.HasChildren() {
			dst.AppendChild(q)
		}

	case atom.Pre:
		code := surface.NewNode(surface.KindCodeBlock)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Code {
				code.Attrs.Info = strings.TrimPrefix(attr(c, "class"), "language-")
			}
		}
		code.AppendChild(surface.NewText(strings.TrimSuffix(htmlText(n), "\n")))
		dst.AppendChild(code)

	case atom.Hr:
		dst.AppendChild(surface.NewNode(surface.KindThematicBreak))

	case atom.Table:
		if t := htmlTable(n); t != nil {
			dst.AppendChild(t)
		}

	default:
		htmlBlocks(n, dst)
	}
}

func htmlTable(n *html.Node) *surface.Node {
	t := surface.NewNode(surface.KindTable)
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				collect(c)
			}
		}
	}
	collect(n)
	for i, r := range rows {
		row := surface.NewNode(surface.KindTableRow)
		row.Attrs.Header = i == 0
		for c := r.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			cell := surface.NewNode(surface.KindTableCell)
			htmlInlines(c, cell)
			trimParagraph(cell)
			ensureLeaf(cell)
			row.AppendChild(cell)
		}
		t.AppendChild(row)
	}
	if !t.HasChildren() {
		return nil
	}
	return t
}

func htmlInlines(n *html.Node, dst *surface.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		htmlInline(c, dst)
	}
}

func htmlInline(n *html.Node, dst *surface.Node) {
	switch n.Type {
	case html.TextNode:
		appendText(dst, escapeInline(collapseSpace(n.Data)))
		return
	case html.ElementNode:
	default:
		return
	}

	wrap := func(kind surface.Kind) {
		e := surface.NewNode(kind)
		htmlInlines(n, e)
		if e.HasChildren() {
			dst.AppendChild(e)
		}
	}
	switch n.DataAtom {
	case atom.Strong, atom.B:
		wrap(surface.KindStrong)
	case atom.Em, atom.I:
		wrap(surface.KindEmphasis)
	case atom.Del, atom.S, atom.Strike:
		wrap(surface.KindStrike)
	case atom.Code:
		dst.AppendChild(surface.NewBlock(surface.KindCodeSpan, surface.NewText(htmlText(n))))
	case atom.A:
		l := surface.NewNode(surface.KindLink)
		l.Attrs.Dest = attr(n, "href")
		l.Attrs.Title = attr(n, "title")
		htmlInlines(n, l)
		if l.Attrs.Dest == "" {
			l.MoveChildrenTo(dst)
			return
		}
		ensureLeaf(l)
		dst.AppendChild(l)
	case atom.Img:
		img := surface.NewNode(surface.KindImage)
		img.Attrs.Dest = attr(n, "src")
		img.Attrs.Title = attr(n, "title")
		img.Attrs.Label = attr(n, "alt")
		dst.AppendChild(img)
	case atom.Br:
		dst.AppendChild(surface.NewNode(surface.KindHardBreak))
	default:
		htmlInlines(n, dst)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// htmlText returns the text under n verbatim.
func htmlText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			b.WriteString(p.Data)
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`,
)

func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}

func hasContent(p *surface.Node) bool {
	for c := p.FirstChild(); c != nil; c = c.Next() {
		if c.Kind != surface.KindText || strings.TrimSpace(c.Text) != "" {
			return true
		}
	}
	return false
}

// trimParagraph trims the outer whitespace of a block's inline text.
func trimParagraph(p *surface.Node) {
	if first := p.FirstChild(); first != nil && first.Kind == surface.KindText {
		first.Text = strings.TrimLeft(first.Text, " ")
	}
	if last := p.LastChild(); last != nil && last.Kind == surface.KindText {
		last.Text = strings.TrimRight(last.Text, " ")
	}
}
