package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/render"
)

// Circular places the sentence node at the centre and spreads entity nodes
// evenly on a circle of radius min(width, height)/3, starting at twelve
// o'clock. Positions are returned in graph order.
func Circular(g model.Graph, width, height float64) []r2.Vec {
	out := make([]r2.Vec, len(g.Nodes))
	centre := r2.Vec{X: width / 2, Y: height / 2}
	radius := math.Min(width, height) / 3

	entities := 0
	for _, n := range g.Nodes {
		if n.Kind == model.KindEntity {
			entities++
		}
	}

	k := 0
	for i, n := range g.Nodes {
		if n.Kind != model.KindEntity {
			out[i] = centre
			continue
		}
		angle := 2*math.Pi*float64(k)/float64(entities) - math.Pi/2
		out[i] = r2.Add(centre, r2.Vec{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)})
		k++
	}
	return out
}

// DrawStatic clears surface and paints g once at the given positions, using
// the same styles as the animation. Missing positions default to the centre.
func DrawStatic(surface render.Surface, g model.Graph, positions []r2.Vec) {
	w, h := surface.Size()
	index := make(map[string]int, len(g.Nodes))
	pos := make([]r2.Vec, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = i
		if i < len(positions) {
			pos[i] = positions[i]
		} else {
			pos[i] = r2.Vec{X: w / 2, Y: h / 2}
		}
	}

	surface.Clear()
	for _, e := range g.Edges {
		si, ok1 := index[e.Source]
		ti, ok2 := index[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		surface.Line(pos[si].X, pos[si].Y, pos[ti].X, pos[ti].Y, render.EdgeStyle)
	}
	for i, n := range g.Nodes {
		style, radius := render.EntityStyle, EntityRadius
		if n.Kind == model.KindSentence {
			style, radius = render.SentenceStyle, SentenceRadius
		}
		surface.Circle(pos[i].X, pos[i].Y, radius, style)
		surface.Text(pos[i].X+radius+LabelOffsetX, pos[i].Y+LabelOffsetY, n.DisplayText(), render.LabelStyle)
	}
}
