package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTimingMetric_Record(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")

	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("unexpected stats: %+v", s)
	}

	m.Reset()
	if m.Count() != 0 {
		t.Errorf("expected reset count 0, got %d", m.Count())
	}
}

func TestTimingMetric_Disabled(t *testing.T) {
	SetEnabled(false)
	t.Cleanup(func() { SetEnabled(true) })

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("disabled metrics should not record, got %d", m.Count())
	}
}

func TestWriteReport(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	t.Cleanup(ResetAll)

	GraphBuild.Record(time.Millisecond)

	var buf bytes.Buffer
	if err := WriteReport(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "graph_build") {
		t.Errorf("report missing graph_build: %q", out)
	}
	if strings.Contains(out, "physics_step") {
		t.Errorf("report should skip empty metrics: %q", out)
	}
}
