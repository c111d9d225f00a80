package reconcile

import (
	"regexp"
	"strings"

	"github.com/dshills/inkstorm/internal/surface"
)

// InputKind is the kind of mutation an input event carries.
type InputKind uint8

const (
	InsertText InputKind = iota
	DeleteBackward
	DeleteForward
	InsertFromPaste
	InsertComposition
)

// InputEvent is a text mutation delivered by the host.
type InputEvent struct {
	Kind InputKind
	Data string
}

// Text returns an InsertText event.
func Text(s string) InputEvent { return InputEvent{Kind: InsertText, Data: s} }

// DefaultAutoPairs are closers some hosts insert on their own.
const DefaultAutoPairs = "”’》」』"

// completions are lines whose trailing whitespace finishes markdown syntax,
// so typing it must re-render immediately.
var completions = []*regexp.Regexp{
	regexp.MustCompile(`^ {0,3}#{1,6}[ \t]+$`),                                       // ATX heading
	regexp.MustCompile(`^ {0,3}(?:[-*+]|[0-9]{1,9}[.)])(?:[ \t]+\[[ xX]\])?[ \t]+$`), // list item, task
	regexp.MustCompile(`^ {0,3}>[ \t]+$`),                                            // blockquote
	regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`), // thematic break
	regexp.MustCompile(`^ {0,3}\|.*\|[ \t]*$`),                                       // table header
}

var setextRe = regexp.MustCompile(`^ {0,3}(?:=+|-+)[ \t]*$`)

func isBlankInsert(data string) bool {
	return data != "" && strings.Trim(data, " \t") == ""
}

// suppressed reports whether typing ev leaves the tree alone: whitespace
// typed at the edge of a line changes nothing structural unless the line
// now completes markdown syntax.
func suppressed(s *surface.Surface, ev InputEvent) bool {
	if ev.Kind != InsertText || !isBlankInsert(ev.Data) {
		return false
	}
	line := s.CurrentLine()
	leading := strings.Trim(line.Before, " \t") == ""
	trailing := strings.Trim(line.After, " \t") == ""
	if !leading && !trailing {
		return false
	}
	text := line.Text()
	for _, re := range completions {
		if re.MatchString(text) {
			return false
		}
	}
	if setextRe.MatchString(text) {
		if block := surface.TextBlock(s.Caret().Node); block != nil {
			before, _ := surface.SplitText(block, s.Caret())
			if strings.Contains(before, "\n") {
				return false
			}
		}
	}
	return true
}
