// Package datasource persists analysed graphs in a SQLite database keyed by
// normalized sentence text, so a sentence seen before is not regenerated.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/metrics"
	"github.com/vanderheijden86/spangraph/pkg/model"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("graph not found")

// Summary describes a stored graph without decoding it.
type Summary struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is a stored graph with its summary.
type Record struct {
	Summary
	Graph model.Graph `json:"graph"`
}

// Store is a SQLite-backed graph store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path. Parent directories are
// created as needed. MemoryPath gives a throwaway database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}
	dsn := MemoryPath
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	debug.Event("store opened", "path", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Lookup returns the graph stored for text, matched after
// model.NormalizeText.
func (s *Store) Lookup(ctx context.Context, text string) (Record, bool, error) {
	defer metrics.Timer(metrics.StoreLookup)()

	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE norm = ?`, model.NormalizeText(text))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup %q: %w", text, err)
	}
	return rec, true, nil
}

// Save stores g under text, replacing any graph stored for the same
// normalized text, and returns the row id.
func (s *Store) Save(ctx context.Context, text string, g model.Graph) (int64, error) {
	defer metrics.Timer(metrics.StoreSave)()

	data, err := model.MarshalGraph(g)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO graphs (text, norm, graph, node_count, edge_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(norm) DO UPDATE SET
			text = excluded.text,
			graph = excluded.graph,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			updated_at = excluded.updated_at`,
		text, model.NormalizeText(text), string(data), len(g.Nodes), len(g.Edges), now, now)
	if err != nil {
		return 0, fmt.Errorf("save graph: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM graphs WHERE norm = ?`, model.NormalizeText(text)).Scan(&id); err != nil {
		return 0, fmt.Errorf("read graph id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_labels WHERE graph_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear labels: %w", err)
	}
	for _, label := range entityLabels(g) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO graph_labels (graph_id, label) VALUES (?, ?)`, id, label); err != nil {
			return 0, fmt.Errorf("save label %q: %w", label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	debug.Event("graph saved", "id", id, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return id, nil
}

// Get returns the graph with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes the graph with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// List returns summaries of all stored graphs, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	return s.querySummaries(ctx, selectSummary+` ORDER BY id DESC`)
}

// ByLabel returns summaries of graphs with at least one entity carrying
// label, compared case-insensitively.
func (s *Store) ByLabel(ctx context.Context, label string) ([]Summary, error) {
	return s.querySummaries(ctx, selectSummary+`
		WHERE id IN (SELECT graph_id FROM graph_labels WHERE label = ?)
		ORDER BY id DESC`, label)
}

// Labels returns the distinct entity labels across all stored graphs.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT label FROM graph_labels ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Count returns the number of stored graphs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graphs`).Scan(&n)
	return n, err
}

const (
	selectSummary = `SELECT id, text, node_count, edge_count, created_at, updated_at FROM graphs`
	selectRecord  = `SELECT id, text, node_count, edge_count, created_at, updated_at, graph FROM graphs`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner, extra ...any) (Summary, error) {
	var sum Summary
	var created, updated string
	dest := append([]any{&sum.ID, &sum.Text, &sum.NodeCount, &sum.EdgeCount, &created, &updated}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return Summary{}, err
	}
	sum.CreatedAt = parseTime(created)
	sum.UpdatedAt = parseTime(updated)
	return sum, nil
}

func scanRecord(sc scanner) (Record, error) {
	var raw string
	sum, err := scanSummary(sc, &raw)
	if err != nil {
		return Record{}, err
	}
	g, err := model.UnmarshalGraph([]byte(raw))
	if err != nil {
		return Record{}, fmt.Errorf("graph %d: %w", sum.ID, err)
	}
	return Record{Summary: sum, Graph: g}, nil
}

func (s *Store) querySummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// entityLabels returns the distinct entity labels of g in sorted order.
func entityLabels(g model.Graph) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range g.Entities() {
		if n.Label == "" || seen[n.Label] {
			continue
		}
		seen[n.Label] = true
		out = append(out, n.Label)
	}
	sort.Strings(out)
	return out
}
