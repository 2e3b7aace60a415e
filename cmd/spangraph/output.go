package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/spangraph/internal/datasource"
	"github.com/vanderheijden86/spangraph/pkg/analysis"
	"github.com/vanderheijden86/spangraph/pkg/graph"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/render"
)

type resultOutput struct {
	ID         int64         `json:"id,omitempty"`
	Text       string        `json:"text"`
	Cached     bool          `json:"cached"`
	DurationMS float64       `json:"duration_ms"`
	Spans      []model.Span  `json:"spans"`
	Summary    graph.Summary `json:"summary"`
	Graph      model.Graph   `json:"graph"`
	Error      string        `json:"error,omitempty"`
}

func newResultOutput(res analysis.Result) resultOutput {
	out := resultOutput{
		ID:         res.ID,
		Text:       res.Text,
		Cached:     res.Cached,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
		Spans:      res.Spans,
		Graph:      res.Graph,
	}
	if out.Spans == nil {
		out.Spans = []model.Span{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	} else {
		out.Summary = res.Summary()
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeText prints the span list, the node/edge listing and the summary.
func writeText(w io.Writer, res analysis.Result) {
	source := "generated"
	if res.Cached {
		source = "stored"
	}
	if res.ID != 0 {
		fmt.Fprintf(w, "#%d %q (%s)\n", res.ID, res.Text, source)
	} else {
		fmt.Fprintf(w, "%q (%s)\n", res.Text, source)
	}
	fmt.Fprintln(w, "Spans:")
	if len(res.Spans) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range res.Spans {
		fmt.Fprintf(w, "  [%d-%d] %s: %s\n", s.Start, s.End, s.Label, s.Text)
	}
	fmt.Fprint(w, graph.Format(res.Graph))
	fmt.Fprintln(w, res.Summary().String())
}

func writeBatch(w io.Writer, results []analysis.Result, jsonOut bool) error {
	if jsonOut {
		out := make([]resultOutput, len(results))
		for i, r := range results {
			out[i] = newResultOutput(r)
		}
		return writeJSON(w, out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNODES\tEDGES\tSOURCE\tTEXT")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "-\t-\t-\terror\t%s: %v\n", clip(r.Text, 60), r.Err)
			continue
		}
		source := "generated"
		if r.Cached {
			source = "stored"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n", r.ID, len(r.Graph.Nodes), len(r.Graph.Edges), source, clip(r.Text, 60))
	}
	return tw.Flush()
}

func listGraphs(ctx context.Context, store *datasource.Store, label string, jsonOut bool, w io.Writer) error {
	var (
		list []datasource.Summary
		err  error
	)
	if label != "" {
		list, err = store.ByLabel(ctx, label)
	} else {
		list, err = store.List(ctx)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		if list == nil {
			list = []datasource.Summary{}
		}
		return writeJSON(w, list)
	}
	if len(list) == 0 {
		if label != "" {
			fmt.Fprintf(w, "No stored graphs with label %q.\n", label)
		} else {
			fmt.Fprintln(w, "No stored graphs.")
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNODES\tEDGES\tUPDATED\tTEXT")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n", s.ID, s.NodeCount, s.EdgeCount,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"), clip(s.Text, 60))
	}
	return tw.Flush()
}

// clip collapses whitespace and shortens s for a table cell.
func clip(s string, n int) string {
	return render.Truncate(strings.Join(strings.Fields(s), " "), n)
}
