package render

import (
	"image"
	"io"
	"sync"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"
)

// PNGSurface rasterizes primitives immediately into an image.
type PNGSurface struct {
	mu     sync.Mutex
	dc     *gg.Context
	width  int
	height int
}

// NewPNGSurface creates a surface cleared to the backdrop colour.
func NewPNGSurface(width, height int) *PNGSurface {
	s := &PNGSurface{
		dc:     gg.NewContext(width, height),
		width:  width,
		height: height,
	}
	s.dc.SetFontFace(basicfont.Face7x13)
	s.Clear()
	return s
}

// Size implements Surface.
func (s *PNGSurface) Size() (float64, float64) {
	return float64(s.width), float64(s.height)
}

// Clear implements Surface.
func (s *PNGSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(ColorBackdrop)
	s.dc.Clear()
}

// Line implements Surface.
func (s *PNGSurface) Line(x1, y1, x2, y2 float64, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(style.Stroke)
	s.dc.SetLineWidth(style.StrokeWidth)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

// Circle implements Surface.
func (s *PNGSurface) Circle(cx, cy, r float64, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.DrawCircle(cx, cy, r)
	if style.Fill.A != 0 {
		s.dc.SetColor(style.Fill)
		s.dc.FillPreserve()
	}
	if style.Stroke.A != 0 {
		s.dc.SetColor(style.Stroke)
		s.dc.SetLineWidth(style.StrokeWidth)
		s.dc.Stroke()
	} else {
		s.dc.ClearPath()
	}
}

// Text implements Surface. The fixed 7x13 face ignores FontSize.
func (s *PNGSurface) Text(x, y float64, text string, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetColor(style.Fill)
	s.dc.DrawStringAnchored(text, x, y, 0, 0)
}

// Image returns the rendered image.
func (s *PNGSurface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.Image()
}

// EncodePNG writes the image as PNG.
func (s *PNGSurface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.EncodePNG(w)
}

// SavePNG writes the image to path.
func (s *PNGSurface) SavePNG(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dc.SavePNG(path)
}
