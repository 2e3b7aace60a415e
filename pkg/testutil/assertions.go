package testutil

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/spangraph/pkg/model"
)

// AssertValidGraph fails the test if g violates the model invariants.
func AssertValidGraph(t testing.TB, g model.Graph) {
	t.Helper()
	if err := g.Validate(); err != nil {
		t.Fatalf("invalid graph: %v", err)
	}
}

// AssertNodeCount verifies the number of nodes.
func AssertNodeCount(t testing.TB, g model.Graph, expected int) {
	t.Helper()
	if len(g.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(g.Nodes))
	}
}

// HasEdge reports whether g has an edge between a and b in either direction.
func HasEdge(g model.Graph, a, b string) bool {
	for _, e := range g.Edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return true
		}
	}
	return false
}

// AssertEdge verifies that g connects a and b.
func AssertEdge(t testing.TB, g model.Graph, a, b string) {
	t.Helper()
	if !HasEdge(g, a, b) {
		t.Errorf("expected edge %s - %s", a, b)
	}
}

// AssertNoEdge verifies that g does not connect a and b.
func AssertNoEdge(t testing.TB, g model.Graph, a, b string) {
	t.Helper()
	if HasEdge(g, a, b) {
		t.Errorf("unexpected edge %s - %s", a, b)
	}
}

// AssertSameGraph compares nodes and edges in order.
func AssertSameGraph(t testing.TB, want, got model.Graph) {
	t.Helper()
	if len(want.Nodes) != len(got.Nodes) || len(want.Edges) != len(got.Edges) {
		t.Fatalf("graph size mismatch: want %d/%d nodes/edges, got %d/%d",
			len(want.Nodes), len(want.Edges), len(got.Nodes), len(got.Edges))
	}
	for i := range want.Nodes {
		a, b := want.Nodes[i], got.Nodes[i]
		if a.ID != b.ID || a.Kind != b.Kind || a.Label != b.Label ||
			!equalStr(a.Text, b.Text) || !equalInt(a.Start, b.Start) || !equalInt(a.End, b.End) {
			t.Errorf("node %d differs: %+v vs %+v", i, a, b)
		}
	}
	for i := range want.Edges {
		if want.Edges[i] != got.Edges[i] {
			t.Errorf("edge %d differs: %+v vs %+v", i, want.Edges[i], got.Edges[i])
		}
	}
}

// AssertWithinBounds verifies every point lies in [margin, w-margin] x
// [margin, h-margin].
func AssertWithinBounds(t testing.TB, points []r2.Vec, w, h, margin float64) {
	t.Helper()
	for i, p := range points {
		if p.X < margin || p.X > w-margin || p.Y < margin || p.Y > h-margin {
			t.Errorf("point %d at (%.2f, %.2f) outside [%g,%g]x[%g,%g]",
				i, p.X, p.Y, margin, w-margin, margin, h-margin)
		}
	}
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
