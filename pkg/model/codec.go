package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// MarshalGraph encodes g in the wire format shared with the store:
// {"nodes":[{"id","type","label","text",...}],"edges":[{"source","target"}]}.
// Nil slices are written as empty arrays.
func MarshalGraph(g Graph) ([]byte, error) {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	return json.Marshal(g)
}

// MarshalGraphIndent is MarshalGraph with two-space indentation.
func MarshalGraphIndent(g Graph) ([]byte, error) {
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Edges == nil {
		g.Edges = []Edge{}
	}
	return json.MarshalIndent(g, "", "  ")
}

// UnmarshalGraph decodes and validates a wire-format graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, fmt.Errorf("decode graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Graph{}, fmt.Errorf("invalid graph: %w", err)
	}
	return g, nil
}
