package hint

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark-emoji/definition"
)

// commonEmoji are the short names offered from the GitHub table.
var commonEmoji = []string{
	"+1", "-1", "100", "angry", "bangbang", "blush", "book", "bug", "bulb",
	"calendar", "clap", "coffee", "confused", "construction", "cry", "eyes",
	"fire", "grin", "grinning", "heart", "heart_eyes", "heavy_check_mark",
	"innocent", "joy", "key", "kissing_heart", "laughing", "link", "lock",
	"memo", "muscle", "ok_hand", "point_left", "point_right", "pray",
	"question", "rage", "relaxed", "relieved", "rocket", "scream", "sleeping",
	"smile", "smile_cat", "smiley", "smiling_imp", "smirk", "sob", "sparkles",
	"star", "sunglasses", "sweat", "sweat_smile", "tada", "thinking", "warning",
	"wave", "white_check_mark", "wink", "x", "zap",
}

type emoji struct {
	name  string
	value string
}

// EmojiSource offers emoji by short name. Names match by case-insensitive
// prefix.
type EmojiSource struct {
	entries []emoji
}

// NewEmojiSource builds a source from the common GitHub emoji plus extra,
// which maps short names to a character or an image URL. Extra entries
// replace built-in ones of the same name.
func NewEmojiSource(extra map[string]string) *EmojiSource {
	table := definition.Github()
	byName := make(map[string]string, len(commonEmoji)+len(extra))
	for _, name := range commonEmoji {
		if e, ok := table.Get(name); ok {
			byName[name] = string(e.Unicode)
		}
	}
	for name, v := range extra {
		if name == "" || v == "" {
			continue
		}
		if isImage(v) {
			v = "![" + name + "](" + v + ")"
		}
		byName[name] = v
	}

	src := &EmojiSource{entries: make([]emoji, 0, len(byName))}
	for name, v := range byName {
		src.entries = append(src.entries, emoji{name: name, value: v})
	}
	slices.SortFunc(src.entries, func(a, b emoji) int { return strings.Compare(a.name, b.name) })
	return src
}

func isImage(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "/")
}

// Candidates implements Source.
func (s *EmojiSource) Candidates(ctx context.Context, key string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := utf8.RuneCountInString(key)
	var out []Candidate
	for _, e := range s.entries {
		if !hasPrefixFold(e.name, key) {
			continue
		}
		glyph := e.value
		if strings.HasPrefix(glyph, "![") {
			glyph = "□"
		}
		display := glyph + " " + e.name
		matched := prefixMatch(e.name, n)
		for i := range matched {
			matched[i] += len(glyph) + 1
		}
		out = append(out, Candidate{Display: display, Value: e.value, Matched: matched})
	}
	return out, nil
}
