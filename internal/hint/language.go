package hint

import (
	"context"

	"github.com/sahilm/fuzzy"
)

// DefaultLanguages are the fence languages offered when none are configured.
var DefaultLanguages = []string{
	"bash", "c", "cpp", "csharp", "css", "diff", "dockerfile", "go", "graphql",
	"html", "ini", "java", "javascript", "json", "kotlin", "lua", "makefile",
	"markdown", "mermaid", "objectivec", "perl", "php", "plaintext", "python",
	"r", "ruby", "rust", "scala", "shell", "sql", "swift", "toml", "typescript",
	"xml", "yaml",
}

// LanguageSource offers code fence languages by fuzzy match. Selecting one
// yields the opening fence line with its info string.
type LanguageSource struct {
	langs []string
	fence string
}

// NewLanguageSource returns a source over langs, or DefaultLanguages when
// langs is empty.
func NewLanguageSource(fence string, langs ...string) *LanguageSource {
	if len(langs) == 0 {
		langs = DefaultLanguages
	}
	return &LanguageSource{langs: langs, fence: fence}
}

// Candidates implements Source.
func (s *LanguageSource) Candidates(ctx context.Context, key string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		out := make([]Candidate, len(s.langs))
		for i, l := range s.langs {
			out[i] = Candidate{Display: l, Value: s.fence + l + "\n"}
		}
		return out, nil
	}
	matches := fuzzy.Find(key, s.langs)
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, Candidate{Display: m.Str, Value: s.fence + m.Str + "\n", Matched: m.MatchedIndexes})
	}
	return out, nil
}
