package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/spangraph/pkg/graph"
	"github.com/vanderheijden86/spangraph/pkg/layout"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/testutil"
)

func sampleGraph() model.Graph {
	return graph.Build(testutil.New(7).Chain(4).Spans)
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		path, format     string
		wantFmt, wantOut string
		wantErr          bool
	}{
		{"out.svg", "", "svg", "out.svg", false},
		{"out.PNG", "", "png", "out.PNG", false},
		{"out", "", "svg", "out.svg", false},
		{"out.txt", "", "svg", "out.txt", false},
		{"out.bin", ".png", "png", "out.bin", false},
		{"out.svg", "gif", "", "out.svg", true},
	}
	for _, tt := range tests {
		f, p, err := ResolveFormat(tt.path, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolveFormat(%q, %q) err = %v", tt.path, tt.format, err)
			continue
		}
		if !tt.wantErr && (f != tt.wantFmt || p != tt.wantOut) {
			t.Errorf("ResolveFormat(%q, %q) = %q, %q", tt.path, tt.format, f, p)
		}
	}
}

func TestSaveSnapshot_SVG(t *testing.T) {
	g := sampleGraph()
	path := filepath.Join(t.TempDir(), "nested", "graph")

	err := SaveSnapshot(SnapshotOptions{
		Path:     path,
		Title:    "w0 w1 w2 w3",
		Graph:    g,
		Width:    400,
		Height:   300,
		Duration: time.Second,
	})
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	data, err := os.ReadFile(path + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	var doc interface{}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid SVG: %v", err)
	}
	out := string(data)
	if got := strings.Count(out, "<circle"); got != len(g.Nodes) {
		t.Errorf("%d circles, want %d", got, len(g.Nodes))
	}
	if got := strings.Count(out, "<line"); got != len(g.Edges) {
		t.Errorf("%d lines, want %d", got, len(g.Edges))
	}
	for _, want := range []string{"w0 w1 w2 w3", "clusters: 1", "Sentence"} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestWriteSnapshot_PNG(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSnapshot(&buf, SnapshotOptions{
		Format: "png",
		Graph:  sampleGraph(),
		Width:  320,
		Height: 240,
		Layout: LayoutCircular,
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("bounds = %v", b)
	}
}

func TestPositions_ForceStaysInBounds(t *testing.T) {
	g := graph.Build(testutil.New(2).Nested(6).Spans)
	pos, err := Positions(SnapshotOptions{Graph: g, Width: 400, Height: 300, Duration: 500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertWithinBounds(t, pos, 400, 300, layout.Margin)

	again, _ := Positions(SnapshotOptions{Graph: g, Width: 400, Height: 300, Duration: 500 * time.Millisecond})
	for i := range pos {
		if pos[i] != again[i] {
			t.Fatalf("same seed gave different layouts at node %d", i)
		}
	}
}

func TestWriteSnapshot_Errors(t *testing.T) {
	var buf bytes.Buffer
	bad := model.Graph{Nodes: []model.Node{{ID: "x", Kind: model.KindEntity}}}
	if err := WriteSnapshot(&buf, SnapshotOptions{Graph: bad, Width: 10, Height: 10}); err == nil {
		t.Error("invalid graph accepted")
	}
	if err := WriteSnapshot(&buf, SnapshotOptions{Graph: sampleGraph()}); err == nil {
		t.Error("zero canvas accepted")
	}
	if err := WriteSnapshot(&buf, SnapshotOptions{Graph: sampleGraph(), Width: 10, Height: 10, Layout: "spiral"}); err == nil {
		t.Error("unknown layout accepted")
	}
	if err := SaveSnapshot(SnapshotOptions{Graph: sampleGraph(), Width: 10, Height: 10}); err == nil {
		t.Error("missing path accepted")
	}
}
