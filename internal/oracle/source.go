package oracle

import (
	"strings"

	"github.com/dshills/inkstorm/internal/surface"
)

// splitSource cuts raw markdown into source blocks at blank lines. Fenced
// code keeps its blank lines. A blank line holding the caret becomes a
// block of its own so the caret survives.
func splitSource(markdown string) []*surface.Node {
	var (
		blocks  []*surface.Node
		cur     []string
		inFence bool
		fence   string
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, surface.NewBlock(surface.KindSource, surface.NewText(strings.Join(cur, "\n"))))
			cur = nil
		}
	}

	for _, line := range strings.Split(strings.TrimSuffix(markdown, "\n"), "\n") {
		clean := stripCaret(line)
		switch {
		case inFence:
			cur = append(cur, line)
			inFence = !closesFence(clean, fence)
		case fenceOpenRe.MatchString(clean):
			m := fenceOpenRe.FindStringSubmatch(clean)
			inFence, fence = true, m[1]
			cur = append(cur, line)
		case strings.TrimSpace(clean) == "":
			flush()
			if strings.Contains(line, surface.CaretMark) {
				cur = []string{surface.CaretMark}
				flush()
			}
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return blocks
}
