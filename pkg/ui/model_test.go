package ui

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/spangraph/pkg/analysis"
	"github.com/vanderheijden86/spangraph/pkg/layout"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/spans"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const sentence = "Apple opened an office in Berlin last year"

func newTestModel(t *testing.T, opts ...Option) Model {
	t.Helper()
	a := analysis.New(nil, spans.NewSeeded(7))
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithSimulatorOptions(
			layout.WithRand(rand.New(rand.NewSource(1))),
			layout.WithClock(func() time.Time { return epoch }),
			layout.WithDuration(time.Second),
		),
	}
	return New(a, append(base, opts...)...)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	um, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return um, cmd
}

// analyze types text, presses enter and delivers the analysis result.
func analyze(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter produced no command")
	}
	if !m.Busy() {
		t.Error("model not busy after submit")
	}
	return update(t, m, cmd())
}

func TestModel_AnalyzeStartsAnimation(t *testing.T) {
	m := newTestModel(t)
	m, cmd := analyze(t, m, sentence)

	if m.Busy() {
		t.Error("still busy after result")
	}
	if m.Result() == nil {
		t.Fatal("no result")
	}
	if cmd == nil {
		t.Fatal("expected a frame tick to be scheduled")
	}
	sim := m.Simulator()
	if sim == nil || !sim.Running() {
		t.Fatal("simulator not running")
	}

	m, cmd = update(t, m, frameMsg{gen: m.gen, at: epoch.Add(16 * time.Millisecond)})
	if cmd == nil {
		t.Error("running animation should schedule the next frame")
	}
	if sim.Frames() != 1 {
		t.Errorf("frames = %d, want 1", sim.Frames())
	}
	if !strings.ContainsRune(m.Surface().PlainString(), glyphSentence) {
		t.Error("sentence glyph not drawn")
	}
}

func TestModel_StaleFrameIgnored(t *testing.T) {
	m := newTestModel(t)
	m, _ = analyze(t, m, sentence)

	m, cmd := update(t, m, frameMsg{gen: m.gen - 1, at: epoch.Add(16 * time.Millisecond)})
	if cmd != nil {
		t.Error("stale frame scheduled another tick")
	}
	if m.Simulator().Frames() != 0 {
		t.Errorf("stale frame advanced the simulation: %d frames", m.Simulator().Frames())
	}
}

func TestModel_AnimationEndsAfterDuration(t *testing.T) {
	m := newTestModel(t)
	m, _ = analyze(t, m, sentence)

	m, cmd := update(t, m, frameMsg{gen: m.gen, at: epoch.Add(2 * time.Second)})
	if cmd != nil {
		t.Error("finished animation scheduled another tick")
	}
	if got := m.Simulator().State(); got != layout.StateStopped {
		t.Errorf("state = %v, want stopped", got)
	}
}

func TestModel_SupersededAnalysisDropped(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("first sentence here")
	m, first := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.input.SetValue("second sentence here")
	m, second := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = update(t, m, first())
	if m.Result() != nil {
		t.Fatal("result of superseded request was applied")
	}
	m, _ = update(t, m, second())
	if m.Result() == nil || m.Result().Text != "second sentence here" {
		t.Fatalf("latest result not applied: %+v", m.Result())
	}
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("blank input started an analysis")
	}
	if m.Busy() {
		t.Error("blank input marked the model busy")
	}
}

func TestModel_ResizeRestartsSimulation(t *testing.T) {
	m := newTestModel(t)
	m, _ = analyze(t, m, sentence)
	gen := m.gen

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if cmd == nil {
		t.Error("resize with a graph should restart the animation")
	}
	if m.gen == gen {
		t.Error("generation not bumped on resize")
	}
	cols, rows := m.Surface().Dimensions()
	if cols != 118 || rows != 40-chromeRows {
		t.Errorf("canvas = %dx%d, want 118x%d", cols, rows, 40-chromeRows)
	}
	if m.Simulator().Surface() != m.Surface() {
		t.Error("simulator not bound to the new canvas")
	}
}

func TestModel_RandomExample(t *testing.T) {
	m := newTestModel(t)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if cmd == nil {
		t.Fatal("ctrl+r produced no command")
	}
	text := m.input.Value()
	found := false
	for _, ex := range spans.Examples {
		if ex == text {
			found = true
		}
	}
	if !found {
		t.Errorf("input %q is not an example sentence", text)
	}
}

func TestModel_CopyGraphJSON(t *testing.T) {
	var copied string
	m := newTestModel(t, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if copied != "" {
		t.Error("copied before any graph existed")
	}
	if m.status != "nothing to copy" {
		t.Errorf("status = %q", m.status)
	}

	m, _ = analyze(t, m, sentence)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	g, err := model.UnmarshalGraph([]byte(copied))
	if err != nil {
		t.Fatalf("copied text is not a graph: %v", err)
	}
	if len(g.Nodes) != len(m.Result().Graph.Nodes) {
		t.Errorf("copied %d nodes, want %d", len(g.Nodes), len(m.Result().Graph.Nodes))
	}
}

func TestModel_CopyFailureShown(t *testing.T) {
	m := newTestModel(t, WithClipboard(func(string) error {
		return errors.New("no clipboard")
	}))
	m, _ = analyze(t, m, sentence)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	if m.Err() == nil || !strings.Contains(m.View(), "no clipboard") {
		t.Errorf("copy error not reported: %v", m.Err())
	}
}

func TestModel_StopAnimation(t *testing.T) {
	m := newTestModel(t)
	m, _ = analyze(t, m, sentence)
	gen := m.gen

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.Simulator().Running() {
		t.Error("simulation still running after ctrl+s")
	}
	m, cmd := update(t, m, frameMsg{gen: gen, at: epoch.Add(16 * time.Millisecond)})
	if cmd != nil {
		t.Error("tick for stopped animation was rescheduled")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc did not quit")
	}
}

func TestModel_InitialText(t *testing.T) {
	m := newTestModel(t, WithInitialText(sentence))
	if m.Init() == nil {
		t.Fatal("Init returned nil")
	}
	if !m.Busy() || m.input.Value() != sentence {
		t.Fatalf("initial text not queued: busy=%v input=%q", m.Busy(), m.input.Value())
	}
	m, _ = update(t, m, m.analyzeCmd(1, sentence)())
	if m.Result() == nil {
		t.Fatal("initial analysis result dropped")
	}
}

func TestModel_AnalysisErrorShown(t *testing.T) {
	m := newTestModel(t)
	m.req = 1
	m, _ = update(t, m, analyzedMsg{seq: 1, err: analysis.ErrEmptyText})
	if !errors.Is(m.Err(), analysis.ErrEmptyText) {
		t.Errorf("err = %v", m.Err())
	}
	if !strings.Contains(m.View(), "error:") {
		t.Error("view does not show the error")
	}
}

func TestModel_View(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = analyze(t, m, sentence)
	m, _ = update(t, m, frameMsg{gen: m.gen, at: epoch.Add(16 * time.Millisecond)})

	view := m.View()
	for _, want := range []string{"spangraph", "nodes:", "running", "esc quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
