// Package model defines the span, node, edge and graph types shared by the
// generator, the graph builder, the layout simulator and the store.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Label classifies a span. The set is closed per deployment.
type Label string

const (
	LabelVictim         Label = "VICTIM"
	LabelObjective      Label = "OBJECTIVE"
	LabelFacilitator    Label = "FACILITATOR"
	LabelNegativeEffect Label = "NEGATIVE EFFECT"
	LabelAgent          Label = "AGENT"
)

// DefaultLabels is the label set used when no other set is configured.
var DefaultLabels = []Label{
	LabelVictim,
	LabelObjective,
	LabelFacilitator,
	LabelNegativeEffect,
	LabelAgent,
}

// Span is a contiguous run of whitespace-delimited tokens. Start and End are
// inclusive token indices.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// NodeKind distinguishes the sentence hub from entity nodes.
type NodeKind string

const (
	KindSentence NodeKind = "sentence"
	KindEntity   NodeKind = "entity"
)

// IsValid returns true if the kind is one of the known kinds.
func (k NodeKind) IsValid() bool {
	return k == KindSentence || k == KindEntity
}

const (
	// SentenceID is the id of the single sentence node of every graph.
	SentenceID = "sentence"
	// SentenceLabel is the label shown for the sentence node.
	SentenceLabel = "Sentence"
)

// EntityID returns the node id for the span at index i.
func EntityID(i int) string {
	return fmt.Sprintf("e%d", i)
}

// Node is the topological identity of a graph node. Positions and
// velocities are owned by the layout package, not by Node.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"type"`
	Label string   `json:"label"`
	Text  *string  `json:"text"`
	Start *int     `json:"start,omitempty"`
	End   *int     `json:"end,omitempty"`
}

// DisplayText returns the label drawn next to the node.
func (n Node) DisplayText() string {
	if n.Kind == KindSentence || n.Text == nil {
		return SentenceLabel
	}
	return n.Label + ": " + *n.Text
}

// Edge connects two nodes by id. Edges are undirected for layout purposes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is an ordered set of nodes and edges. Its topology does not change
// once built.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Validation errors.
var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrUnknownNode   = errors.New("edge references unknown node")
	ErrNoSentence    = errors.New("graph has no sentence node")
	ErrInvalidKind   = errors.New("invalid node type")
)

// Validate checks the invariants the builder guarantees: unique ids, a single
// sentence node and edges that reference existing nodes. An empty graph is
// valid.
func (g Graph) Validate() error {
	if len(g.Nodes) == 0 {
		if len(g.Edges) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownNode, g.Edges[0].Source)
		}
		return nil
	}

	seen := make(map[string]bool, len(g.Nodes))
	sentences := 0
	for _, n := range g.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if !n.Kind.IsValid() {
			return fmt.Errorf("%w: %q on node %s", ErrInvalidKind, n.Kind, n.ID)
		}
		if n.Kind == KindSentence {
			sentences++
		}
	}
	if sentences == 0 {
		return ErrNoSentence
	}
	if sentences > 1 {
		return fmt.Errorf("%w: %d sentence nodes", ErrDuplicateNode, sentences)
	}

	for _, e := range g.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("%w: %s", ErrUnknownNode, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("%w: %s", ErrUnknownNode, e.Target)
		}
	}
	return nil
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Entities returns the entity nodes in graph order.
func (g Graph) Entities() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == KindEntity {
			out = append(out, n)
		}
	}
	return out
}

// HasLabel reports whether any entity node carries the label.
func (g Graph) HasLabel(label string) bool {
	for _, n := range g.Nodes {
		if n.Kind == KindEntity && strings.EqualFold(n.Label, label) {
			return true
		}
	}
	return false
}

// NormalizeText returns the store key for a sentence: trimmed and lower-cased.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
