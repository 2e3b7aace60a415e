package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/spangraph/pkg/model"
)

// Summary describes the structure of a built graph.
type Summary struct {
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Entities   int    `json:"entities"`
	Links      int    `json:"links"`      // entity-entity edges
	Components int    `json:"components"` // among entity nodes only, ignoring the hub
	Hub        string `json:"hub"`        // entity with the most entity links, "" if none
	HubDegree  int    `json:"hub_degree"`
}

// String returns a one-line description.
func (s Summary) String() string {
	hub := "n/a"
	if s.Hub != "" {
		hub = fmt.Sprintf("%s (%d)", s.Hub, s.HubDegree)
	}
	return fmt.Sprintf("nodes: %d  edges: %d  clusters: %d  hub: %s", s.Nodes, s.Edges, s.Components, hub)
}

// Summarize computes structural counts for g. Entity clusters are the
// connected components of the entity-only subgraph, so every isolated span
// counts as its own cluster.
func Summarize(g model.Graph) Summary {
	s := Summary{Nodes: len(g.Nodes), Edges: len(g.Edges)}

	ids := make(map[string]int64, len(g.Nodes))
	names := make(map[int64]string, len(g.Nodes))
	u := simple.NewUndirectedGraph()
	for _, n := range g.Nodes {
		if n.Kind != model.KindEntity {
			continue
		}
		id := int64(len(ids))
		ids[n.ID] = id
		names[id] = n.ID
		u.AddNode(simple.Node(id))
		s.Entities++
	}

	for _, e := range g.Edges {
		from, okFrom := ids[e.Source]
		to, okTo := ids[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		s.Links++
		u.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	s.Components = len(topo.ConnectedComponents(u))

	for _, n := range g.Nodes {
		id, ok := ids[n.ID]
		if !ok {
			continue
		}
		if deg := u.From(id).Len(); deg > s.HubDegree {
			s.HubDegree = deg
			s.Hub = names[id]
		}
	}
	return s
}
