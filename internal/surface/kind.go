package surface

import "fmt"

// Kind identifies the type of a surface node.
type Kind uint8

const (
	// KindDocument is the root of a surface.
	KindDocument Kind = iota

	// Leaf blocks
	KindParagraph
	KindHeading
	KindThematicBreak
	KindCodeBlock
	KindMathBlock
	KindHTMLBlock
	KindSource

	// Container blocks
	KindBlockquote
	KindList
	KindListItem
	KindTable
	KindTableRow
	KindTableCell
	KindFootnotesBlock
	KindFootnoteDef
	KindLinkRefBlock
	KindLinkRefDef

	// Inline
	KindText
	KindMarker
	KindCodeInfo
	KindEmphasis
	KindStrong
	KindStrike
	KindCodeSpan
	KindLink
	KindImage
	KindFootnoteRef
	KindTaskMarker
	KindHardBreak
	KindHTMLInline

	kindCount
)

var kindNames = [...]string{
	KindDocument:       "document",
	KindParagraph:      "paragraph",
	KindHeading:        "heading",
	KindThematicBreak:  "hr",
	KindCodeBlock:      "code",
	KindMathBlock:      "math",
	KindHTMLBlock:      "html",
	KindSource:         "source",
	KindBlockquote:     "blockquote",
	KindList:           "list",
	KindListItem:       "item",
	KindTable:          "table",
	KindTableRow:       "row",
	KindTableCell:      "cell",
	KindFootnotesBlock: "footnotes",
	KindFootnoteDef:    "footnote",
	KindLinkRefBlock:   "linkrefs",
	KindLinkRefDef:     "linkref",
	KindText:           "text",
	KindMarker:         "marker",
	KindCodeInfo:       "info",
	KindEmphasis:       "em",
	KindStrong:         "strong",
	KindStrike:         "del",
	KindCodeSpan:       "codespan",
	KindLink:           "link",
	KindImage:          "img",
	KindFootnoteRef:    "fnref",
	KindTaskMarker:     "task",
	KindHardBreak:      "br",
	KindHTMLInline:     "htmlinline",
}

// String returns a short name for the kind.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsBlock reports whether nodes of this kind are block-level.
func (k Kind) IsBlock() bool {
	return k >= KindParagraph && k <= KindLinkRefDef
}

// IsInline reports whether nodes of this kind are inline.
func (k Kind) IsInline() bool {
	return k >= KindText && k < kindCount
}

// IsLeaf reports whether nodes of this kind carry characters.
func (k Kind) IsLeaf() bool {
	return k == KindText || k == KindMarker || k == KindCodeInfo
}

// IsTextBlock reports whether the kind holds inline content directly.
func (k Kind) IsTextBlock() bool {
	switch k {
	case KindParagraph, KindHeading, KindThematicBreak, KindTableCell, KindCodeBlock,
		KindMathBlock, KindHTMLBlock, KindSource, KindLinkRefDef:
		return true
	}
	return false
}

// KindSet is a set of node kinds.
type KindSet uint64

// KindSetOf builds a set from the given kinds.
func KindSetOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << k
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// Common kind sets.
var (
	// Fences are blocks whose text is edited verbatim.
	Fences = KindSetOf(KindCodeBlock, KindMathBlock)

	// TextBlocks are blocks that hold inline content directly.
	TextBlocks = KindSetOf(KindParagraph, KindHeading, KindThematicBreak, KindTableCell,
		KindCodeBlock, KindMathBlock, KindHTMLBlock, KindSource, KindLinkRefDef)
)

// Align is a table column alignment.
type Align uint8

const (
	AlignNone Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)
