package graph

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/testutil"
)

func TestSummarize(t *testing.T) {
	gen := testutil.New(2)

	tests := []struct {
		name       string
		fixture    testutil.SpanFixture
		components int
		hubDegree  int
	}{
		{"chain", gen.Chain(4), 1, 2},
		{"disjoint", gen.Disjoint(3), 3, 0},
		{"nested", gen.Nested(4), 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(tt.fixture.Spans)
			s := Summarize(g)
			if s.Nodes != len(g.Nodes) || s.Edges != len(g.Edges) {
				t.Errorf("counts %d/%d, want %d/%d", s.Nodes, s.Edges, len(g.Nodes), len(g.Edges))
			}
			if s.Entities != len(tt.fixture.Spans) {
				t.Errorf("entities = %d, want %d", s.Entities, len(tt.fixture.Spans))
			}
			if s.Links != tt.fixture.Links {
				t.Errorf("links = %d, want %d", s.Links, tt.fixture.Links)
			}
			if s.Components != tt.components {
				t.Errorf("components = %d, want %d", s.Components, tt.components)
			}
			if s.HubDegree != tt.hubDegree {
				t.Errorf("hub degree = %d, want %d", s.HubDegree, tt.hubDegree)
			}
		})
	}
}

func TestSummarize_SentenceOnly(t *testing.T) {
	s := Summarize(Build(nil))
	if s.Nodes != 1 || s.Entities != 0 || s.Components != 0 || s.Hub != "" {
		t.Errorf("unexpected summary: %+v", s)
	}
	if !strings.Contains(s.String(), "hub: n/a") {
		t.Errorf("String() = %q", s.String())
	}
}

func TestSummarize_HubIsFirstMaxInGraphOrder(t *testing.T) {
	words := testutil.Words(5)
	g := Build([]model.Span{
		testutil.Span(words, 0, 0, model.LabelAgent),
		testutil.Span(words, 1, 1, model.LabelAgent),
		testutil.Span(words, 2, 2, model.LabelAgent),
	})
	s := Summarize(g)
	if s.Hub != "e1" || s.HubDegree != 2 {
		t.Errorf("hub = %s (%d), want e1 (2)", s.Hub, s.HubDegree)
	}
}
