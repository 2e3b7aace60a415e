// Package render defines the drawing surface the layout simulator paints
// into and provides SVG and PNG implementations.
package render

import (
	"fmt"
	"image/color"
	"strings"
)

// Surface is a retained drawing target with a fixed size. Clear removes
// everything previously drawn.
type Surface interface {
	Size() (width, height float64)
	Clear()
	Line(x1, y1, x2, y2 float64, style Style)
	Circle(cx, cy, r float64, style Style)
	Text(x, y float64, text string, style Style)
}

// Style describes how a primitive is painted. A zero alpha colour means the
// fill or stroke is not painted.
type Style struct {
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth float64
	FontSize    float64
	Class       string
}

// Palette.
var (
	ColorSentence = color.RGBA{0xff, 0xd8, 0x9b, 0xff}
	ColorEntity   = color.RGBA{0xbf, 0xe1, 0xff, 0xff}
	ColorStroke   = color.RGBA{0x8a, 0xae, 0xd9, 0xff}
	ColorEdge     = color.RGBA{0xc9, 0xd6, 0xe5, 0xff}
	ColorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	ColorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	ColorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Styles used by the simulator and the preview.
var (
	EdgeStyle     = Style{Stroke: ColorEdge, StrokeWidth: 2}
	SentenceStyle = Style{Fill: ColorSentence, Stroke: ColorStroke, StrokeWidth: 1.5}
	EntityStyle   = Style{Fill: ColorEntity, Stroke: ColorStroke, StrokeWidth: 1.5}
	LabelStyle    = Style{Fill: ColorText, FontSize: 12, Class: "node-label"}
)

// CSS formats c as a #rrggbb colour, or "none" when c is transparent.
func CSS(c color.RGBA) string {
	if c.A == 0 {
		return "none"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// css renders the style as an inline style declaration.
func (s Style) css() string {
	parts := []string{"fill:" + CSS(s.Fill)}
	if s.Stroke.A != 0 {
		parts = append(parts, "stroke:"+CSS(s.Stroke))
		if s.StrokeWidth > 0 {
			parts = append(parts, fmt.Sprintf("stroke-width:%g", s.StrokeWidth))
		}
	}
	if s.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("font-size:%gpx;font-family:Arial,Helvetica,sans-serif", s.FontSize))
	}
	return strings.Join(parts, ";")
}

// Truncate shortens s to max runes, adding "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
