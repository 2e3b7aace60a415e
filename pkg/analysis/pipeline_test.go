package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vanderheijden86/spangraph/internal/datasource"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/spans"
	"github.com/vanderheijden86/spangraph/pkg/testutil"
)

type memStore struct {
	mu      sync.Mutex
	graphs  map[string]datasource.Record
	saves   int
	lookups int
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{graphs: make(map[string]datasource.Record)}
}

func (m *memStore) Lookup(_ context.Context, text string) (datasource.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	rec, ok := m.graphs[model.NormalizeText(text)]
	return rec, ok, nil
}

func (m *memStore) Save(_ context.Context, text string, g model.Graph) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return 0, errors.New("disk full")
	}
	m.saves++
	id := int64(len(m.graphs) + 1)
	m.graphs[model.NormalizeText(text)] = datasource.Record{
		Summary: datasource.Summary{ID: id, Text: text},
		Graph:   g,
	}
	return id, nil
}

func TestAnalyze_GeneratesThenReuses(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a := New(store, spans.NewSeeded(5))

	first, err := a.Analyze(ctx, "the quick brown fox jumps over the lazy dog")
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || first.ID == 0 {
		t.Errorf("first result = cached %v id %d", first.Cached, first.ID)
	}
	testutil.AssertValidGraph(t, first.Graph)
	if len(first.Spans) != len(first.Graph.Nodes)-1 {
		t.Errorf("%d spans for %d nodes", len(first.Spans), len(first.Graph.Nodes))
	}

	second, err := a.Analyze(ctx, "  The quick brown fox jumps over the LAZY dog ")
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.ID != first.ID {
		t.Errorf("second result = cached %v id %d", second.Cached, second.ID)
	}
	testutil.AssertSameGraph(t, first.Graph, second.Graph)
	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
	for i := range first.Spans {
		if first.Spans[i] != second.Spans[i] {
			t.Errorf("span %d = %+v, recovered %+v", i, first.Spans[i], second.Spans[i])
		}
	}
}

func TestAnalyze_Refresh(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a := New(store, spans.NewSeeded(1), WithRefresh(true))
	a.Analyze(ctx, "one two three")
	res, err := a.Analyze(ctx, "one two three")
	if err != nil {
		t.Fatal(err)
	}
	if res.Cached || store.lookups != 0 {
		t.Errorf("refresh consulted the store: cached=%v lookups=%d", res.Cached, store.lookups)
	}
}

func TestAnalyze_EmptyAndNoStore(t *testing.T) {
	a := New(nil, spans.NewSeeded(1))
	if _, err := a.Analyze(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v", err)
	}
	res, err := a.Analyze(context.Background(), "single")
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != 0 || len(res.Graph.Nodes) == 0 {
		t.Errorf("result without store = %+v", res)
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil, spans.NewSeeded(1)).Analyze(ctx, "a b"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyzeAll(t *testing.T) {
	store := newMemStore()
	store.failOn = "broken"
	a := New(store, spans.NewSeeded(3), WithConcurrency(2))

	texts := []string{
		"alpha beta gamma delta",
		"this one is broken on save",
		"ALPHA beta gamma delta",
		"",
		"epsilon zeta eta theta iota",
	}
	results, err := a.AnalyzeAll(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(texts) {
		t.Fatalf("got %d results", len(results))
	}

	if results[0].Err != nil || results[4].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[4].Err)
	}
	if results[1].Err == nil {
		t.Error("save failure not reported")
	}
	if !errors.Is(results[3].Err, ErrEmptyText) {
		t.Errorf("blank text err = %v", results[3].Err)
	}
	if results[0].ID != results[2].ID {
		t.Errorf("duplicate texts got ids %d and %d", results[0].ID, results[2].ID)
	}
	if results[2].Text != "ALPHA beta gamma delta" {
		t.Errorf("result text = %q", results[2].Text)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want 2", store.saves)
	}
}

func TestAnalyzeWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := datasource.Open(datasource.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a := New(store, spans.NewSeeded(9))
	first, err := a.Analyze(ctx, "Sensitive data leaked to the attacker")
	if err != nil {
		t.Fatal(err)
	}
	again, err := a.Analyze(ctx, "sensitive data leaked to the attacker")
	if err != nil {
		t.Fatal(err)
	}
	if !again.Cached || again.ID != first.ID {
		t.Errorf("sqlite-backed lookup missed: %+v", again)
	}
}

func TestReadLines(t *testing.T) {
	in := "# header\nfirst sentence\n\n   \n  second one  \n#skip\n"
	lines, err := ReadLines(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "first sentence" || lines[1] != "second one" {
		t.Errorf("lines = %q", lines)
	}
}
