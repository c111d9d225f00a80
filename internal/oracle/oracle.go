// Package oracle turns markdown into surface nodes and back.
//
// The oracle is pure: the same input always yields structurally equal
// output, and no input makes it fail. Malformed or half-typed markdown
// degrades to plain text.
//
// Each editing mode gets its own tree shape:
//
//   - WYSIWYG: formatting nodes hold only their content; syntax lives in
//     node attributes.
//   - IR (instant rendering): formatting nodes additionally hold Marker
//     leaves with their delimiters, so the syntax stays visible and
//     editable.
//   - SV (split view): the document is raw source split into blocks at
//     blank lines.
//
// Serialize is the inverse of Render for every mode. Once a document is
// settled, Render(m, Serialize(m, Render(m, text))) equals Render(m, text).
package oracle

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/dshills/inkstorm/internal/surface"
)

// Mode is an editing mode.
type Mode uint8

const (
	WYSIWYG Mode = iota
	IR
	SV
)

var modeNames = [...]string{WYSIWYG: "wysiwyg", IR: "ir", SV: "sv"}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Oracle renders markdown into surface nodes and serializes them back.
type Oracle interface {
	// Render parses markdown and returns top-level blocks for mode.
	Render(mode Mode, markdown string) []*surface.Node
	// Serialize returns the markdown for the given blocks.
	Serialize(mode Mode, nodes ...*surface.Node) string
}

// Markdown is the goldmark-backed Oracle.
type Markdown struct {
	md     goldmark.Markdown
	logger *log.Logger
}

// Option configures a Markdown oracle.
type Option func(*Markdown)

// WithLogger sets the logger used to report degraded input.
func WithLogger(l *log.Logger) Option {
	return func(m *Markdown) {
		if l != nil {
			m.logger = l.WithPrefix("oracle")
		}
	}
}

// New creates a Markdown oracle.
func New(opts ...Option) *Markdown {
	// Link reference definitions are lifted out before parsing, so the
	// paragraph transformer that would swallow nested ones is left out.
	p := parser.NewParser(
		parser.WithBlockParsers(parser.DefaultBlockParsers()...),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
	)
	m := &Markdown{
		md: goldmark.New(
			goldmark.WithParser(p),
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.TaskList),
		),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Render implements Oracle.
func (m *Markdown) Render(mode Mode, markdown string) []*surface.Node {
	markdown = normalizeNewlines(markdown)
	var blocks []*surface.Node
	if mode == SV {
		blocks = splitSource(markdown)
	} else {
		blocks = m.renderTree(mode, markdown)
	}
	if len(blocks) == 0 {
		blocks = []*surface.Node{surface.NewBlock(surface.KindParagraph, surface.NewText(""))}
	}
	return blocks
}

// Serialize implements Oracle.
func (m *Markdown) Serialize(mode Mode, nodes ...*surface.Node) string {
	var blocks []*surface.Node
	for _, n := range nodes {
		if n.Kind == surface.KindDocument {
			blocks = append(blocks, n.Children()...)
			continue
		}
		blocks = append(blocks, n)
	}
	out := joinBlocks(blocks)
	if out == "" {
		return ""
	}
	return out + "\n"
}

func (m *Markdown) renderTree(mode Mode, markdown string) []*surface.Node {
	chunks := prescan(markdown)
	ctx := newRefContext(chunks)
	c := converter{mode: mode, logger: m.logger}

	var blocks []*surface.Node
	for _, ch := range chunks {
		switch ch.kind {
		case chunkMarkdown:
			src := []byte(ch.text)
			doc := m.md.Parser().Parse(textReader(src), parser.WithContext(ctx()))
			blocks = append(blocks, c.blocks(doc, src)...)
		case chunkLinkRefs:
			blocks = append(blocks, linkRefBlock(ch.lines))
		case chunkFootnote:
			blocks = append(blocks, m.footnotes(mode, ch))
		case chunkMath:
			blocks = append(blocks, c.mathBlock(ch.text))
		}
	}
	return mergeFootnotes(blocks)
}

// footnotes renders a footnote definition chunk into a footnotes block
// holding one definition.
func (m *Markdown) footnotes(mode Mode, ch chunk) *surface.Node {
	def := surface.NewNode(surface.KindFootnoteDef)
	def.Attrs.Label = ch.label
	if strings.TrimSpace(ch.text) != "" {
		for _, b := range m.renderTree(mode, ch.text) {
			def.AppendChild(b)
		}
	}
	if !def.HasChildren() {
		def.AppendChild(surface.NewBlock(surface.KindParagraph, surface.NewText("")))
	}
	return surface.NewBlock(surface.KindFootnotesBlock, def)
}

// mergeFootnotes joins footnote blocks that follow each other.
func mergeFootnotes(blocks []*surface.Node) []*surface.Node {
	out := blocks[:0]
	for _, b := range blocks {
		if n := len(out); n > 0 && b.Kind == surface.KindFootnotesBlock && out[n-1].Kind == surface.KindFootnotesBlock {
			b.MoveChildrenTo(out[n-1])
			continue
		}
		out = append(out, b)
	}
	return out
}

// ToHTML renders markdown to HTML. The result is not sanitized.
func (m *Markdown) ToHTML(markdown string) string {
	var b strings.Builder
	src := []byte(strings.ReplaceAll(markdown, surface.CaretMark, ""))
	if err := m.md.Convert(src, &b); err != nil {
		m.logger.Warn("html conversion failed", "err", err)
		return ""
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
