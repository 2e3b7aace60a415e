// Package testutil provides span fixtures for the common graph shapes and
// assertion helpers for graphs and layouts. Generators are deterministic.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/vanderheijden86/spangraph/pkg/model"
)

// SpanFixture is a sentence with a fixed set of spans over its tokens.
type SpanFixture struct {
	Description string
	Words       []string
	Spans       []model.Span
	Links       int // expected entity-entity edges
}

// Text returns the sentence the spans were cut from.
func (f SpanFixture) Text() string {
	return strings.Join(f.Words, " ")
}

// Words returns n placeholder tokens w0..w{n-1}.
func Words(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

// Span cuts the inclusive token range [start, end] out of words.
func Span(words []string, start, end int, label model.Label) model.Span {
	return model.Span{
		Start: start,
		End:   end,
		Text:  strings.Join(words[start:end+1], " "),
		Label: label,
	}
}

// Generator creates span fixtures.
type Generator struct {
	rng *rand.Rand
}

// New creates a Generator with the given seed (0 uses 42).
func New(seed int64) *Generator {
	if seed == 0 {
		seed = 42
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) label() model.Label {
	return model.DefaultLabels[g.rng.Intn(len(model.DefaultLabels))]
}

// Chain creates size single-token spans that touch end to start, so each
// span is adjacent to the next one only.
func (g *Generator) Chain(size int) SpanFixture {
	words := Words(size)
	spans := make([]model.Span, size)
	for i := range spans {
		spans[i] = Span(words, i, i, g.label())
	}
	return SpanFixture{
		Description: fmt.Sprintf("Chain of %d adjacent spans", size),
		Words:       words,
		Spans:       spans,
		Links:       max(0, size-1),
	}
}

// Disjoint creates size single-token spans separated by one unused token,
// so no pair is related.
func (g *Generator) Disjoint(size int) SpanFixture {
	words := Words(size * 2)
	spans := make([]model.Span, size)
	for i := range spans {
		spans[i] = Span(words, i*2, i*2, g.label())
	}
	return SpanFixture{
		Description: fmt.Sprintf("%d isolated spans", size),
		Words:       words,
		Spans:       spans,
	}
}

// Nested creates size spans that all contain token 0, so every pair
// overlaps.
func (g *Generator) Nested(size int) SpanFixture {
	words := Words(size)
	spans := make([]model.Span, size)
	for i := range spans {
		spans[i] = Span(words, 0, i, g.label())
	}
	return SpanFixture{
		Description: fmt.Sprintf("%d nested spans sharing token 0", size),
		Words:       words,
		Spans:       spans,
		Links:       size * (size - 1) / 2,
	}
}

// Random creates count spans of up to maxLen tokens over n tokens. Spans may
// repeat; the expected link count is not computed.
func (g *Generator) Random(n, count, maxLen int) SpanFixture {
	words := Words(n)
	spans := make([]model.Span, count)
	for i := range spans {
		start := g.rng.Intn(n)
		end := min(n-1, start+g.rng.Intn(maxLen))
		spans[i] = Span(words, start, end, g.label())
	}
	return SpanFixture{
		Description: fmt.Sprintf("%d random spans over %d tokens", count, n),
		Words:       words,
		Spans:       spans,
		Links:       -1,
	}
}
