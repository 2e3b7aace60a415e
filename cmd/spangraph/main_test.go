package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/spangraph/pkg/model"
)

const testSentence = "Marie Curie studied at the University of Paris"

// isolate points the XDG directories at a temp dir so the user's config and
// database are never touched.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeResult(t *testing.T, data string) resultOutput {
	t.Helper()
	var out resultOutput
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, data)
	}
	return out
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "", "-version")
	if code != 0 || !strings.HasPrefix(out, "spangraph v") {
		t.Errorf("-version: code %d, output %q", code, out)
	}

	code, out, _ = runCLI(t, "", "-help")
	if code != 0 || !strings.Contains(out, "-text") || !strings.Contains(out, "-batch") {
		t.Errorf("-help: code %d, output %q", code, out)
	}

	code, _, _ = runCLI(t, "", "-no-such-flag")
	if code != 2 {
		t.Errorf("unknown flag exit code = %d, want 2", code)
	}
}

func TestNothingToDo(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "", "-db", ":memory:")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut, "nothing to do") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestTextJSON(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, "", "-db", ":memory:", "-seed", "3", "-json", "-text", testSentence)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	res := decodeResult(t, out)
	if res.Text != testSentence || res.Cached {
		t.Errorf("text %q cached %v", res.Text, res.Cached)
	}
	if len(res.Graph.Nodes) == 0 || res.Graph.Nodes[0].ID != model.SentenceID {
		t.Fatalf("graph does not start with the sentence node: %+v", res.Graph.Nodes)
	}
	if len(res.Graph.Nodes) != len(res.Spans)+1 {
		t.Errorf("%d nodes for %d spans", len(res.Graph.Nodes), len(res.Spans))
	}
	if res.Summary.Nodes != len(res.Graph.Nodes) || res.Summary.Edges != len(res.Graph.Edges) {
		t.Errorf("summary %+v does not match graph", res.Summary)
	}
	if err := res.Graph.Validate(); err != nil {
		t.Errorf("invalid graph: %v", err)
	}
}

func TestTextPlain(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, "", "-db", ":memory:", "-seed", "3", "-text", testSentence)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, want := range []string{"Spans:", "Nodes:", "Edges:", "sentence (sentence)", "nodes:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRandomExample(t *testing.T) {
	isolate(t)
	code, out, errOut := runCLI(t, "", "-db", ":memory:", "-seed", "5", "-random", "-json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if res := decodeResult(t, out); res.Text == "" {
		t.Error("random example produced no text")
	}
}

func TestSnapshotOutput(t *testing.T) {
	dir := isolate(t)

	svgPath := filepath.Join(dir, "out", "graph.svg")
	code, _, errOut := runCLI(t, "", "-db", ":memory:", "-seed", "1", "-text", testSentence, "-out", svgPath)
	if code != 0 {
		t.Fatalf("svg export exit %d: %s", code, errOut)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("svg output has no <svg> element")
	}

	pngPath := filepath.Join(dir, "preview.png")
	code, _, errOut = runCLI(t, "", "-db", ":memory:", "-text", testSentence, "-out", pngPath, "-preview", "-width", "320", "-height", "240")
	if code != 0 {
		t.Fatalf("png export exit %d: %s", code, errOut)
	}
	data, err = os.ReadFile(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("png output lacks the PNG signature")
	}

	// No extension: the configured default format is appended.
	bare := filepath.Join(dir, "bare")
	code, _, errOut = runCLI(t, "", "-db", ":memory:", "-text", testSentence, "-out", bare, "-preview")
	if code != 0 {
		t.Fatalf("bare export exit %d: %s", code, errOut)
	}
	if _, err := os.Stat(bare + ".svg"); err != nil {
		t.Errorf("expected %s.svg: %v", bare, err)
	}

	code, _, _ = runCLI(t, "", "-db", ":memory:", "-text", testSentence, "-out", bare, "-format", "bmp")
	if code != 1 {
		t.Errorf("unsupported format exit code = %d, want 1", code)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "graphs.db")

	code, out, errOut := runCLI(t, "", "-db", db, "-seed", "2", "-json", "-text", testSentence)
	if code != 0 {
		t.Fatalf("first run exit %d: %s", code, errOut)
	}
	first := decodeResult(t, out)
	if first.Cached || first.ID == 0 {
		t.Fatalf("first run: cached=%v id=%d", first.Cached, first.ID)
	}

	// Different seed, same normalized text: the stored graph wins.
	code, out, errOut = runCLI(t, "", "-db", db, "-seed", "99", "-json", "-text", "  marie curie STUDIED at the university of paris ")
	if code != 0 {
		t.Fatalf("second run exit %d: %s", code, errOut)
	}
	second := decodeResult(t, out)
	if !second.Cached || second.ID != first.ID {
		t.Errorf("second run: cached=%v id=%d, want stored id %d", second.Cached, second.ID, first.ID)
	}
	if len(second.Graph.Nodes) != len(first.Graph.Nodes) {
		t.Errorf("stored graph has %d nodes, want %d", len(second.Graph.Nodes), len(first.Graph.Nodes))
	}

	code, out, _ = runCLI(t, "", "-db", db, "-list")
	if code != 0 || !strings.Contains(out, "Marie Curie") {
		t.Errorf("-list: code %d\n%s", code, out)
	}

	code, out, _ = runCLI(t, "", "-db", db, "-show", strconv.FormatInt(first.ID, 10), "-json")
	if code != 0 {
		t.Fatalf("-show exit %d", code)
	}
	if shown := decodeResult(t, out); shown.Text != testSentence || !shown.Cached {
		t.Errorf("-show returned %+v", shown)
	}

	code, _, errOut = runCLI(t, "", "-db", db, "-show", "4242")
	if code != 1 || !strings.Contains(errOut, "not found") {
		t.Errorf("-show missing: code %d stderr %q", code, errOut)
	}

	code, out, _ = runCLI(t, "", "-db", db, "-list", "-label", "NoSuchLabel")
	if code != 0 || !strings.Contains(out, "No stored graphs with label") {
		t.Errorf("-list -label: code %d\n%s", code, out)
	}
}

func TestBatchFromStdin(t *testing.T) {
	isolate(t)
	input := "Apple opened an office in Berlin\n# skipped\n\nThe concert in Madrid was loud\napple opened an office in berlin\n"
	code, out, errOut := runCLI(t, input, "-db", ":memory:", "-seed", "4", "-batch", "-", "-json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var results []resultOutput
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID == 0 || results[0].ID != results[2].ID {
		t.Errorf("duplicate sentences got ids %d and %d", results[0].ID, results[2].ID)
	}
	for _, r := range results {
		if r.Error != "" {
			t.Errorf("%q failed: %s", r.Text, r.Error)
		}
	}
}

func TestBatchTable(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "sentences.txt")
	if err := os.WriteFile(file, []byte("one two three\nfour five six seven\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "", "-db", ":memory:", "-batch", file)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "ID") || !strings.Contains(out, "four five six seven") {
		t.Errorf("table output:\n%s", out)
	}

	code, _, _ = runCLI(t, "", "-db", ":memory:", "-batch", filepath.Join(dir, "missing.txt"))
	if code != 1 {
		t.Errorf("missing batch file exit code = %d, want 1", code)
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("canvas:\n  width: 10\n  height: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runCLI(t, "", "-config", path, "-db", ":memory:", "-text", testSentence)
	if code != 1 || !strings.Contains(errOut, "config") {
		t.Errorf("code %d stderr %q", code, errOut)
	}

}

func TestConfigExportFormat(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("export:\n  format: PNG\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bare := filepath.Join(dir, "snap")
	code, _, errOut := runCLI(t, "", "-config", path, "-db", ":memory:", "-text", testSentence, "-out", bare, "-preview")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if _, err := os.Stat(bare + ".png"); err != nil {
		t.Errorf("configured png format not used: %v", err)
	}
}

func TestTUIRequiresTerminal(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "", "-db", ":memory:", "-tui")
	if code != 1 || !strings.Contains(errOut, "terminal") {
		t.Errorf("code %d stderr %q", code, errOut)
	}
}

func TestClip(t *testing.T) {
	if got := clip("a  b\n c", 10); got != "a b c" {
		t.Errorf("clip = %q", got)
	}
	if got := clip(strings.Repeat("x", 20), 8); got != "xxxxx..." {
		t.Errorf("clip = %q", got)
	}
}
