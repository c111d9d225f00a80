package oracle

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/inkstorm/internal/surface"
)

type chunkKind int

const (
	chunkMarkdown chunkKind = iota
	chunkLinkRefs
	chunkFootnote
	chunkMath
)

// chunk is a run of source lines handled as a unit. Link reference and
// footnote definitions and $$ math blocks are cut out of the markdown
// before goldmark sees it, so that they survive every round trip in place.
type chunk struct {
	kind  chunkKind
	text  string   // markdown, footnote body or math content
	lines []string // raw link reference lines
	label string   // footnote label
}

var (
	linkRefRe   = regexp.MustCompile(`^ {0,3}\[((?:[^\]\\]|\\.)+)\]:[ \t]*(<[^>]*>|\S+)(?:[ \t]+("[^"]*"|'[^']*'|\([^)]*\)))?[ \t]*$`)
	footnoteRe  = regexp.MustCompile(`^\[\^([^\]\s]+)\]:`)
	fenceOpenRe = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
	hrRe        = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)

	blockPrefixRe = regexp.MustCompile(`^(?:[ \t]+|#{1,6}[ \t]+|>[ \t]?|[-*+][ \t]+|[0-9]{1,9}[.)][ \t]+|\[[ xX]\][ \t]+|\[\^[^\]\s]+\]:[ \t]*)`)
	openerRe      = regexp.MustCompile("^(?:`{3,}|~{3,}|\\$\\$|\\|)")
)

func stripCaret(s string) string {
	return strings.ReplaceAll(s, surface.CaretMark, "")
}

func isBlank(s string) bool {
	return strings.TrimSpace(stripCaret(s)) == ""
}

// liftCaret moves a caret mark that sits at the start of a line past the
// line's block syntax ("# ", "> ", "- [ ] ", a table pipe, a fence), where
// it would otherwise turn the line into a paragraph. A mark inside a
// thematic break is dropped.
func liftCaret(markdown string) string {
	i := strings.Index(markdown, surface.CaretMark)
	if i < 0 {
		return markdown
	}
	start := strings.LastIndexByte(markdown[:i], '\n') + 1
	end := len(markdown)
	if j := strings.IndexByte(markdown[i:], '\n'); j >= 0 {
		end = i + j
	}
	line := markdown[start:end]
	clean := stripCaret(line)

	if hrRe.MatchString(clean) && !strings.HasSuffix(line, surface.CaretMark) {
		return markdown[:start] + clean + markdown[end:]
	}
	if i != start {
		return markdown
	}

	rest := clean
	n := 0
	for {
		loc := blockPrefixRe.FindStringIndex(rest[n:])
		if loc == nil || loc[1] == 0 {
			break
		}
		n += loc[1]
	}
	if loc := openerRe.FindStringIndex(rest[n:]); loc != nil {
		n += loc[1]
	}
	if n == 0 {
		return markdown
	}
	return markdown[:start] + rest[:n] + surface.CaretMark + rest[n:] + markdown[end:]
}

// prescan splits markdown into chunks.
func prescan(markdown string) []chunk {
	markdown = liftCaret(markdown)
	lines := strings.Split(strings.TrimSuffix(markdown, "\n"), "\n")

	var (
		chunks  []chunk
		md      []string
		inFence bool
		fence   string
	)
	flush := func() {
		if len(md) > 0 {
			chunks = append(chunks, chunk{kind: chunkMarkdown, text: strings.Join(md, "\n")})
			md = nil
		}
	}
	atStart := func(i int) bool {
		return len(md) == 0 || isBlank(md[len(md)-1]) || i == 0
	}

	for i := 0; i < len(lines); {
		line := lines[i]
		clean := stripCaret(line)

		if inFence {
			md = append(md, line)
			if closesFence(clean, fence) {
				inFence = false
			}
			i++
			continue
		}
		if m := fenceOpenRe.FindStringSubmatch(clean); m != nil {
			inFence = true
			fence = m[1]
			md = append(md, line)
			i++
			continue
		}
		if !atStart(i) {
			md = append(md, line)
			i++
			continue
		}

		switch {
		case footnoteRe.MatchString(clean):
			flush()
			var ch chunk
			ch, i = scanFootnote(lines, i)
			chunks = append(chunks, ch)
		case isLinkRef(clean):
			flush()
			ch := chunk{kind: chunkLinkRefs}
			for i < len(lines) && isLinkRef(stripCaret(lines[i])) {
				ch.lines = append(ch.lines, lines[i])
				i++
			}
			chunks = append(chunks, ch)
		case strings.TrimSpace(clean) == "$$":
			flush()
			var ch chunk
			ch, i = scanMath(lines, i)
			chunks = append(chunks, ch)
		default:
			md = append(md, line)
			i++
		}
	}
	flush()
	return chunks
}

func isLinkRef(clean string) bool {
	m := linkRefRe.FindStringSubmatch(clean)
	return m != nil && !strings.HasPrefix(m[1], "^")
}

func closesFence(clean, fence string) bool {
	t := strings.TrimLeft(clean, " ")
	if len(clean)-len(t) > 3 || !strings.HasPrefix(t, fence) {
		return false
	}
	rest := strings.TrimLeft(t, fence[:1])
	return strings.TrimSpace(rest) == ""
}

// scanFootnote reads a footnote definition starting at lines[i]. The body
// continues over lines indented by four spaces or a tab, and over blank
// lines followed by such a line.
func scanFootnote(lines []string, i int) (chunk, int) {
	raw := lines[i]
	clean := stripCaret(raw)
	label := footnoteRe.FindStringSubmatch(clean)[1]

	j := strings.Index(raw, "]:") + 2
	if j < len(raw) && (raw[j] == ' ' || raw[j] == '\t') {
		j++
	}
	first := raw[j:]
	if strings.Contains(raw[:j], surface.CaretMark) {
		first = surface.CaretMark + first
	}
	body := []string{first}
	i++

	for i < len(lines) {
		line := lines[i]
		if isBlank(line) {
			k := i
			for k < len(lines) && isBlank(lines[k]) {
				k++
			}
			if k == len(lines) || !indented(lines[k]) {
				break
			}
			for ; i < k; i++ {
				body = append(body, dedent(lines[i]))
			}
			continue
		}
		if !indented(line) {
			break
		}
		body = append(body, dedent(line))
		i++
	}
	return chunk{kind: chunkFootnote, label: label, text: strings.Join(body, "\n")}, i
}

func indented(line string) bool {
	clean := stripCaret(line)
	return strings.HasPrefix(clean, "    ") || strings.HasPrefix(clean, "\t")
}

func dedent(line string) string {
	mark := ""
	if strings.HasPrefix(line, surface.CaretMark) {
		mark, line = surface.CaretMark, line[len(surface.CaretMark):]
	}
	switch {
	case strings.HasPrefix(line, "\t"):
		line = line[1:]
	case strings.HasPrefix(line, "    "):
		line = line[4:]
	default:
		line = strings.TrimLeft(line, " ")
	}
	return mark + line
}

// scanMath reads a $$ block starting at lines[i]. An unterminated block runs
// to the end of the document.
func scanMath(lines []string, i int) (chunk, int) {
	var body []string
	lead := strings.Contains(lines[i], surface.CaretMark)
	i++
	trail := false
	for i < len(lines) {
		line := lines[i]
		i++
		if strings.TrimSpace(stripCaret(line)) == "$$" {
			trail = strings.Contains(line, surface.CaretMark)
			break
		}
		body = append(body, line)
	}
	text := strings.Join(body, "\n")
	if lead {
		text = surface.CaretMark + text
	}
	if trail {
		text += surface.CaretMark
	}
	return chunk{kind: chunkMath, text: text}, i
}

// newRefContext collects the link reference definitions of every chunk and
// returns a constructor for parser contexts that know them.
func newRefContext(chunks []chunk) func() parser.Context {
	var refs []parser.Reference
	for _, ch := range chunks {
		if ch.kind != chunkLinkRefs {
			continue
		}
		for _, line := range ch.lines {
			label, dest, title := parseLinkRef(stripCaret(line))
			refs = append(refs, parser.NewReference([]byte(label), []byte(dest), []byte(title)))
		}
	}
	return func() parser.Context {
		ctx := parser.NewContext()
		for _, r := range refs {
			ctx.AddReference(r)
		}
		return ctx
	}
}

func parseLinkRef(clean string) (label, dest, title string) {
	m := linkRefRe.FindStringSubmatch(clean)
	if m == nil {
		return "", "", ""
	}
	dest = strings.TrimSuffix(strings.TrimPrefix(m[2], "<"), ">")
	title = m[3]
	if len(title) >= 2 {
		title = title[1 : len(title)-1]
	}
	return m[1], dest, title
}

func linkRefBlock(lines []string) *surface.Node {
	block := surface.NewNode(surface.KindLinkRefBlock)
	for _, line := range lines {
		def := surface.NewBlock(surface.KindLinkRefDef, surface.NewText(line))
		def.Attrs.Label, def.Attrs.Dest, def.Attrs.Title = parseLinkRef(stripCaret(line))
		block.AppendChild(def)
	}
	return block
}

func textReader(src []byte) text.Reader {
	return text.NewReader(src)
}
