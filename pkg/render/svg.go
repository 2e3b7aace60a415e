package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"sync"

	svg "github.com/ajstarks/svgo"
)

type elementKind int

const (
	elemLine elementKind = iota
	elemCircle
	elemText
)

type element struct {
	kind           elementKind
	x1, y1, x2, y2 float64 // circle: centre in x1,y1
	r              float64
	text           string
	style          Style
}

// SVGSurface keeps the drawn primitives like a DOM subtree and serializes
// them on demand. It is safe for one writer and concurrent readers.
type SVGSurface struct {
	mu         sync.RWMutex
	width      int
	height     int
	background color.RGBA
	elems      []element
}

// NewSVGSurface creates an empty surface of the given size.
func NewSVGSurface(width, height int) *SVGSurface {
	return &SVGSurface{width: width, height: height}
}

// SetBackground paints a full-size backdrop under the drawn elements.
func (s *SVGSurface) SetBackground(c color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = c
}

// Size implements Surface.
func (s *SVGSurface) Size() (float64, float64) {
	return float64(s.width), float64(s.height)
}

// Clear implements Surface.
func (s *SVGSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elems = s.elems[:0]
}

// Line implements Surface.
func (s *SVGSurface) Line(x1, y1, x2, y2 float64, style Style) {
	s.add(element{kind: elemLine, x1: x1, y1: y1, x2: x2, y2: y2, style: style})
}

// Circle implements Surface.
func (s *SVGSurface) Circle(cx, cy, r float64, style Style) {
	s.add(element{kind: elemCircle, x1: cx, y1: cy, r: r, style: style})
}

// Text implements Surface.
func (s *SVGSurface) Text(x, y float64, text string, style Style) {
	s.add(element{kind: elemText, x1: x, y1: y, text: text, style: style})
}

func (s *SVGSurface) add(e element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elems = append(s.elems, e)
}

// Len returns the number of primitives currently drawn.
func (s *SVGSurface) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elems)
}

// Counts returns the number of lines, circles and texts currently drawn.
func (s *SVGSurface) Counts() (lines, circles, texts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.elems {
		switch e.kind {
		case elemLine:
			lines++
		case elemCircle:
			circles++
		case elemText:
			texts++
		}
	}
	return lines, circles, texts
}

// Bytes returns the current contents as an SVG document.
func (s *SVGSurface) Bytes() []byte {
	var buf bytes.Buffer
	s.render(&buf)
	return buf.Bytes()
}

// WriteTo writes the current contents as an SVG document.
func (s *SVGSurface) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}

func (s *SVGSurface) render(w io.Writer) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canvas := svg.New(w)
	canvas.Start(s.width, s.height)
	if s.background.A != 0 {
		canvas.Rect(0, 0, s.width, s.height, fmt.Sprintf("fill:%s", CSS(s.background)))
	}
	for _, e := range s.elems {
		switch e.kind {
		case elemLine:
			canvas.Line(px(e.x1), px(e.y1), px(e.x2), px(e.y2), e.style.css())
		case elemCircle:
			canvas.Circle(px(e.x1), px(e.y1), px(e.r), e.style.css())
		case elemText:
			if e.style.Class != "" {
				canvas.Text(px(e.x1), px(e.y1), e.text, fmt.Sprintf(`class="%s"`, e.style.Class), e.style.css())
			} else {
				canvas.Text(px(e.x1), px(e.y1), e.text, e.style.css())
			}
		}
	}
	canvas.End()
}

func px(v float64) int {
	return int(math.Round(v))
}
