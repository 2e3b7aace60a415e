package ui

import (
	"image/color"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/spangraph/pkg/layout"
	"github.com/vanderheijden86/spangraph/pkg/render"
)

// Terminal cells are treated as CellWidth x CellHeight pixels so the layout
// runs in the same coordinate space as the SVG and PNG surfaces.
const (
	CellWidth  = 8
	CellHeight = 16
)

// Glyphs used on the terminal canvas.
const (
	glyphEdge     = '·'
	glyphSentence = '◆'
	glyphEntity   = '●'
)

type cell struct {
	r     rune
	fg    color.RGBA
	cont  bool // right half of a wide rune
	layer int  // edges 1, entities 2, text 3, sentence 4
}

// TermSurface is a render.Surface backed by a grid of terminal cells.
type TermSurface struct {
	mu    sync.RWMutex
	cols  int
	rows  int
	cells []cell
}

// NewTermSurface creates a canvas of cols x rows cells.
func NewTermSurface(cols, rows int) *TermSurface {
	cols, rows = max(cols, 1), max(rows, 1)
	return &TermSurface{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
}

// Dimensions returns the canvas size in cells.
func (s *TermSurface) Dimensions() (cols, rows int) {
	return s.cols, s.rows
}

// Size implements render.Surface, in pixels.
func (s *TermSurface) Size() (float64, float64) {
	return float64(s.cols * CellWidth), float64(s.rows * CellHeight)
}

// Clear implements render.Surface.
func (s *TermSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cells)
}

// Line implements render.Surface using Bresenham over cells.
func (s *TermSurface) Line(x1, y1, x2, y2 float64, style render.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c0, r0 := toCell(x1, y1)
	c1, r1 := toCell(x2, y2)
	dc, dr := abs(c1-c0), -abs(r1-r0)
	sc, sr := sign(c1-c0), sign(r1-r0)
	e := dc + dr
	for {
		s.put(c0, r0, cell{r: glyphEdge, fg: style.Stroke, layer: 1})
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * e
		if e2 >= dr {
			e += dr
			c0 += sc
		}
		if e2 <= dc {
			e += dc
			r0 += sr
		}
	}
}

// Circle implements render.Surface. A node is a single glyph at its centre;
// the sentence glyph is drawn above everything else.
func (s *TermSurface) Circle(cx, cy, r float64, style render.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	glyph, layer := glyphEntity, 2
	if style.Fill == render.ColorSentence {
		glyph, layer = glyphSentence, 4
	}
	c, row := toCell(cx, cy)
	s.put(c, row, cell{r: glyph, fg: style.Fill, layer: layer})
}

// Text implements render.Surface. Text starts at the cell containing the
// label anchor, on the row of the node it belongs to, and is cut at the
// right edge.
func (s *TermSurface) Text(x, y float64, text string, style render.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, row := toCell(x, y-layout.LabelOffsetY)
	if row < 0 || row >= s.rows || c >= s.cols {
		return
	}
	if c < 0 {
		text = runewidth.TruncateLeft(text, -c, "")
		c = 0
	}
	text = runewidth.Truncate(text, s.cols-c, "")
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		s.put(c, row, cell{r: r, fg: style.Fill, layer: 3})
		if w == 2 {
			s.put(c+1, row, cell{cont: true, fg: style.Fill, layer: 3})
		}
		c += w
	}
}

// put writes a cell unless a higher layer already occupies it.
func (s *TermSurface) put(c, r int, v cell) {
	if c < 0 || c >= s.cols || r < 0 || r >= s.rows {
		return
	}
	i := r*s.cols + c
	old := s.cells[i]
	if old.layer > v.layer {
		return
	}
	// Overwriting half of a wide rune blanks the other half.
	if old.cont && !v.cont && c > 0 {
		s.cells[i-1] = cell{r: ' ', layer: old.layer}
	}
	if !old.cont && c+1 < s.cols && s.cells[i+1].cont {
		s.cells[i+1] = cell{r: ' ', layer: old.layer}
	}
	s.cells[i] = v
}

// Rune returns the glyph at a cell, or ' ' when empty.
func (s *TermSurface) Rune(col, row int) rune {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if col < 0 || col >= s.cols || row < 0 || row >= s.rows {
		return ' '
	}
	if r := s.cells[row*s.cols+col].r; r != 0 {
		return r
	}
	return ' '
}

// PlainString returns the canvas without colour, one line per row.
func (s *TermSurface) PlainString() string {
	return s.render(func(text string, _ color.RGBA) string { return text })
}

// View returns the canvas coloured with lipgloss.
func (s *TermSurface) View() string {
	return s.render(func(text string, fg color.RGBA) string {
		// Body text uses the terminal's own foreground.
		if fg.A == 0 || fg == render.ColorText {
			return text
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(render.CSS(fg))).Render(text)
	})
}

func (s *TermSurface) render(paint func(string, color.RGBA) string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for r := 0; r < s.rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		var runColor color.RGBA
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(paint(run.String(), runColor))
				run.Reset()
			}
		}
		for c := 0; c < s.cols; c++ {
			v := s.cells[r*s.cols+c]
			if v.cont {
				continue
			}
			ch, fg := v.r, v.fg
			if ch == 0 {
				ch, fg = ' ', color.RGBA{}
			}
			if fg != runColor {
				flush()
				runColor = fg
			}
			run.WriteRune(ch)
		}
		flush()
	}
	return b.String()
}

func toCell(x, y float64) (int, int) {
	return int(math.Floor(x / CellWidth)), int(math.Floor(y / CellHeight))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
