package tui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkstorm/internal/hint"
	"github.com/dshills/inkstorm/internal/mode"
	"github.com/dshills/inkstorm/internal/oracle"
)

var (
	styleStatus   = tcell.StyleDefault.Reverse(true)
	styleHint     = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray)
	styleHintSel  = tcell.StyleDefault.Reverse(true)
	styleHintMark = styleHint.Bold(true).Foreground(tcell.ColorYellow)
)

type hintView struct {
	state hint.State
	items []hint.Candidate
	sel   int
}

// Draw redraws the screen: the surface, the hint list under the caret and
// a status row.
func (h *Host) Draw() {
	var (
		m  oracle.Mode
		hv hintView
	)
	h.ctl.View(func(em mode.EditorMode, hs *hint.Session) {
		m = em.Mode()
		h.layout = Build(em.Root(), em.Engine().Surface().Caret())
		hv = hintView{state: hs.State(), items: append([]hint.Candidate(nil), hs.Items()...), sel: hs.Selected()}
	})

	s := h.screen
	s.Clear()
	w, ht := s.Size()
	body := max(ht-1, 1)

	top := h.ctl.ScrollTop()
	switch cy := h.layout.CaretY; {
	case cy < top:
		top = cy
	case cy >= top+body:
		top = cy - body + 1
	}
	h.ctl.Scroll(top)

	for y := 0; y < body && top+y < len(h.layout.Lines); y++ {
		drawLine(s, 0, y, w, h.layout.Lines[top+y])
	}
	cx, cy := h.layout.CaretX, h.layout.CaretY-top
	if hv.state == hint.Open {
		drawHint(s, cx, cy+1, w, body, hv)
	}

	h.mu.Lock()
	status := " " + m.String()
	if h.status != "" {
		status += "  " + h.status
	}
	h.mu.Unlock()
	fill(s, 0, ht-1, w, styleStatus)
	drawLine(s, 0, ht-1, w, Line{{Text: status, Style: styleStatus}})

	s.ShowCursor(cx, cy)
	s.Show()
}

func drawLine(s tcell.Screen, x, y, maxX int, l Line) int {
	for _, span := range l {
		for _, r := range span.Text {
			cw := cellWidth(r)
			if cw == 0 {
				continue
			}
			if x+cw > maxX {
				return x
			}
			if r == '\t' {
				r = ' '
			}
			s.SetContent(x, y, r, nil, span.Style)
			x += cw
		}
	}
	return x
}

func fill(s tcell.Screen, x, y, maxX int, style tcell.Style) {
	for ; x < maxX; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}

// drawHint draws the open hint list with its top left corner at x, y,
// flipping above the caret row when it would run past the body.
func drawHint(s tcell.Screen, x, y, maxX, body int, hv hintView) {
	width := 0
	for _, it := range hv.items {
		width = max(width, stringWidth(it.Display)+2)
	}
	if y+len(hv.items) > body {
		y = max(y-len(hv.items)-1, 0)
	}
	if x+width > maxX {
		x = max(maxX-width, 0)
	}
	for i, it := range hv.items {
		style := styleHint
		if i == hv.sel {
			style = styleHintSel
		}
		fill(s, x, y+i, min(x+width, maxX), style)
		drawLine(s, x+1, y+i, maxX, markMatched(it, style))
	}
}

// markMatched splits the candidate's display text so matched bytes stand
// out.
func markMatched(c hint.Candidate, style tcell.Style) Line {
	if len(c.Matched) == 0 {
		return Line{{Text: c.Display, Style: style}}
	}
	matched := make(map[int]bool, len(c.Matched))
	for _, i := range c.Matched {
		matched[i] = true
	}
	var l Line
	for i, r := range c.Display {
		st := style
		if matched[i] {
			st = styleHintMark
		}
		l = append(l, Span{Text: string(r), Style: st})
	}
	return l
}
