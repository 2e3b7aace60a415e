// Package graph turns a flat list of spans into the sentence/entity graph
// drawn by the layout simulator.
package graph

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/spangraph/pkg/metrics"
	"github.com/vanderheijden86/spangraph/pkg/model"
)

// Build returns the graph for spans: the sentence node first, one entity
// node per span in input order, one spoke edge per entity, then an edge for
// every pair of spans that overlap or are adjacent. Build is pure.
func Build(spans []model.Span) model.Graph {
	defer metrics.Timer(metrics.GraphBuild)()

	nodes := make([]model.Node, 0, len(spans)+1)
	edges := make([]model.Edge, 0, len(spans))

	nodes = append(nodes, model.Node{
		ID:    model.SentenceID,
		Kind:  model.KindSentence,
		Label: model.SentenceLabel,
	})

	for i, s := range spans {
		text, start, end := s.Text, s.Start, s.End
		id := model.EntityID(i)
		nodes = append(nodes, model.Node{
			ID:    id,
			Kind:  model.KindEntity,
			Label: string(s.Label),
			Text:  &text,
			Start: &start,
			End:   &end,
		})
		edges = append(edges, model.Edge{Source: model.SentenceID, Target: id})
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if Related(spans[i], spans[j]) {
				edges = append(edges, model.Edge{Source: model.EntityID(i), Target: model.EntityID(j)})
			}
		}
	}

	return model.Graph{Nodes: nodes, Edges: edges}
}

// Overlaps reports whether the token ranges of a and b intersect.
func Overlaps(a, b model.Span) bool {
	return !(a.End < b.Start || b.End < a.Start)
}

// Adjacent reports whether a ends right before b starts or vice versa.
func Adjacent(a, b model.Span) bool {
	return a.End+1 == b.Start || b.End+1 == a.Start
}

// Related is the only cross-entity connectivity rule. It is symmetric.
func Related(a, b model.Span) bool {
	return Overlaps(a, b) || Adjacent(a, b)
}

// Format renders the graph as the plain-text node/edge listing used for
// console output.
func Format(g model.Graph) string {
	var sb strings.Builder
	sb.WriteString("Nodes:\n")
	for _, n := range g.Nodes {
		text := "null"
		if n.Text != nil {
			text = *n.Text
		}
		fmt.Fprintf(&sb, "  %s (%s): %s [%s]\n", n.ID, n.Kind, n.Label, text)
	}
	sb.WriteString("Edges:\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "  %s -> %s\n", e.Source, e.Target)
	}
	return sb.String()
}
