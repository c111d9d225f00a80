package mode

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Preview renders the split-view pane. The controller feeds it the
// canonical text after edits settle in split view.
type Preview struct {
	r        *glamour.TermRenderer
	onRender func(out string)

	mu  sync.Mutex
	out string
}

// NewPreview creates a Preview using the glamour style at style, a
// built-in name such as "dark" or a JSON file, wrapped at width columns.
// onRender may be nil.
func NewPreview(style string, width int, onRender func(out string)) (*Preview, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("preview renderer: %w", err)
	}
	return &Preview{r: r, onRender: onRender}, nil
}

// Settled implements effects.Sink.
func (p *Preview) Settled(text string) error {
	out, err := p.r.Render(text)
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	p.mu.Lock()
	p.out = out
	p.mu.Unlock()
	if p.onRender != nil {
		p.onRender(out)
	}
	return nil
}

// Output returns the last rendering.
func (p *Preview) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out
}
