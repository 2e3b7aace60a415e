// Package analysis runs the sentence pipeline: look the sentence up in the
// store, otherwise generate spans, build the graph and save it.
package analysis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/spangraph/internal/datasource"
	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/graph"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/spans"
)

// DefaultConcurrency bounds AnalyzeAll.
const DefaultConcurrency = 8

// ErrEmptyText is returned for blank input.
var ErrEmptyText = errors.New("empty text")

// GraphStore is the persistence the pipeline needs. *datasource.Store
// implements it.
type GraphStore interface {
	Lookup(ctx context.Context, text string) (datasource.Record, bool, error)
	Save(ctx context.Context, text string, g model.Graph) (int64, error)
}

// Result is the outcome of analysing one sentence.
type Result struct {
	Text     string        `json:"text"`
	ID       int64         `json:"id,omitempty"`
	Spans    []model.Span  `json:"spans"`
	Graph    model.Graph   `json:"graph"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration_ns"`
	Err      error         `json:"-"`
}

// Summary returns the structural summary of the result graph.
func (r Result) Summary() graph.Summary {
	return graph.Summarize(r.Graph)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConcurrency sets how many sentences AnalyzeAll processes at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithRefresh makes Analyze ignore stored graphs and regenerate.
func WithRefresh(refresh bool) Option {
	return func(a *Analyzer) { a.refresh = refresh }
}

// Analyzer runs the pipeline. A nil store disables persistence.
type Analyzer struct {
	store       GraphStore
	gen         *spans.Generator
	concurrency int
	refresh     bool
}

// New creates an Analyzer. The generator is required.
func New(store GraphStore, gen *spans.Generator, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:       store,
		gen:         gen,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the graph for text, from the store when present.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	res := Result{Text: strings.TrimSpace(text)}
	if res.Text == "" {
		return res, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if a.store != nil && !a.refresh {
		rec, ok, err := a.store.Lookup(ctx, res.Text)
		if err != nil {
			return res, err
		}
		if ok {
			res.ID = rec.ID
			res.Graph = rec.Graph
			res.Spans = SpansOf(rec.Graph)
			res.Cached = true
			res.Duration = time.Since(start)
			debug.Event("graph loaded from store", "id", rec.ID)
			return res, nil
		}
	}

	res.Spans = a.gen.Generate(res.Text)
	res.Graph = graph.Build(res.Spans)

	if a.store != nil {
		id, err := a.store.Save(ctx, res.Text, res.Graph)
		if err != nil {
			return res, fmt.Errorf("save %q: %w", res.Text, err)
		}
		res.ID = id
	}
	res.Duration = time.Since(start)
	debug.LogTiming("analyze", res.Duration)
	return res, nil
}

// AnalyzeAll analyses texts concurrently and returns one Result per input
// in input order. Per-sentence failures are reported in Result.Err; the
// returned error is non-nil only when ctx is cancelled. Texts that normalize
// to the same key are analysed once and share the result.
func (a *Analyzer) AnalyzeAll(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))

	var keys []string
	groups := make(map[string][]int)
	for i, t := range texts {
		k := model.NormalizeText(t)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, k := range keys {
		idx := groups[k]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := a.Analyze(gctx, texts[idx[0]])
			res.Err = err
			for _, i := range idx {
				r := res
				r.Text = strings.TrimSpace(texts[i])
				results[i] = r
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// SpansOf recovers the spans from the entity nodes of g, in node order.
func SpansOf(g model.Graph) []model.Span {
	var out []model.Span
	for _, n := range g.Entities() {
		s := model.Span{Label: model.Label(n.Label)}
		if n.Text != nil {
			s.Text = *n.Text
		}
		if n.Start != nil {
			s.Start = *n.Start
		}
		if n.End != nil {
			s.End = *n.End
		}
		out = append(out, s)
	}
	return out
}

// ReadLines reads one sentence per line, skipping blank lines and lines
// starting with '#'.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading sentences: %w", err)
	}
	return out, nil
}
