// Package spans generates labelled token spans from a sentence. It is a mock
// stand-in for an entity extractor: spans are drawn from a seedable random
// source, not from any linguistic analysis.
package spans

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/metrics"
	"github.com/vanderheijden86/spangraph/pkg/model"
)

// Span count policy. The count is min(max(1, n/3), randInt(MinSpanDraw,
// min(MaxSpans, n))) for a sentence of n tokens.
const (
	MinTokens   = 2
	MinSpanDraw = 2
	MaxSpans    = 5
)

// attemptsPerSpan bounds the collision retries for each requested span.
const attemptsPerSpan = 64

// Option configures a Generator.
type Option func(*Generator)

// WithLabels replaces the label set. An empty set keeps the default.
func WithLabels(labels []model.Label) Option {
	return func(g *Generator) {
		if len(labels) > 0 {
			g.labels = append([]model.Label(nil), labels...)
		}
	}
}

// Generator produces spans. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	labels []model.Label
}

// New creates a Generator drawing from rng. A nil rng is seeded from seed 1
// so that callers never get ambient global randomness.
func New(rng *rand.Rand, opts ...Option) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	g := &Generator{
		rng:    rng,
		labels: model.DefaultLabels,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeeded creates a Generator with its own source seeded with seed.
func NewSeeded(seed int64, opts ...Option) *Generator {
	return New(rand.New(rand.NewSource(seed)), opts...)
}

// Labels returns the generator's label set.
func (g *Generator) Labels() []model.Label {
	return append([]model.Label(nil), g.labels...)
}

// Tokenize splits text on whitespace, dropping empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Generate returns a set of distinct spans over the tokens of text. Sentences
// with fewer than MinTokens tokens yield no spans.
func (g *Generator) Generate(text string) []model.Span {
	defer metrics.Timer(metrics.SpanGeneration)()

	words := Tokenize(text)
	n := len(words)
	if n < MinTokens {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	count := min(max(1, n/3), g.between(MinSpanDraw, min(MaxSpans, n)))
	maxLen := n / 4

	out := make([]model.Span, 0, count)
	used := make(map[[2]int]bool, count)
	for attempts := 0; len(out) < count && attempts < count*attemptsPerSpan; attempts++ {
		start := g.between(0, n-1)
		end := g.between(start, min(n-1, start+maxLen))

		key := [2]int{start, end}
		if used[key] {
			continue
		}
		used[key] = true

		out = append(out, model.Span{
			Start: start,
			End:   end,
			Text:  strings.Join(words[start:end+1], " "),
			Label: g.labels[g.between(0, len(g.labels)-1)],
		})
	}
	if len(out) < count {
		debug.Log("span retries exhausted: wanted %d, got %d", count, len(out))
	}
	return out
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

// Examples are sample sentences offered by the "random" action.
var Examples = []string{
	"Apple acquired a small startup in Berlin last month.",
	"Marie Curie studied at the University of Paris and won a prize in 1903.",
	"The concert in Madrid featured artists from Spain and Mexico.",
	"Google opened a new office in Zurich in 2019 to expand research.",
}

// RandomExample picks one of Examples.
func RandomExample(rng *rand.Rand) string {
	return Examples[rng.Intn(len(Examples))]
}
