// Package ui is the interactive terminal front end: type a sentence, watch
// its span graph settle on a character canvas.
package ui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/spangraph/pkg/analysis"
	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/graph"
	"github.com/vanderheijden86/spangraph/pkg/layout"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/spans"
)

// Rows taken by everything except the canvas interior: title, input,
// canvas border (2), status, help.
const chromeRows = 6

const (
	defaultCols = 80
	defaultRows = 24
)

// analyzedMsg carries a finished analysis. seq identifies the request so
// results of superseded requests are dropped.
type analyzedMsg struct {
	seq int
	res analysis.Result
	err error
}

// frameMsg is one animation tick. gen identifies the simulation it was
// scheduled for.
type frameMsg struct {
	gen int
	at  time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithSimulatorOptions passes options to every simulator the model creates.
func WithSimulatorOptions(opts ...layout.Option) Option {
	return func(m *Model) { m.simOpts = append(m.simOpts, opts...) }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// WithInitialText analyses text as soon as the program starts.
func WithInitialText(text string) Option {
	return func(m *Model) { m.initial = text }
}

// WithRand sets the source used to pick random example sentences.
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) { m.rng = rng }
}

// Model is the bubbletea model.
type Model struct {
	analyzer *analysis.Analyzer
	input    textinput.Model
	surface  *TermSurface
	sim      *layout.Simulator
	simOpts  []layout.Option
	copy     func(string) error
	rng      *rand.Rand
	initial  string

	width, height int
	req           int // latest analysis request
	gen           int // current simulation generation
	busy          bool // an analysis is in flight

	result  *analysis.Result
	summary graph.Summary
	status  string
	err     error
}

// New creates a Model that analyses sentences with a.
func New(a *analysis.Analyzer, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a sentence and press enter"
	ti.Prompt = "> "
	ti.CharLimit = 1000
	ti.Focus()

	m := Model{
		analyzer: a,
		input:    ti,
		copy:     clipboard.WriteAll,
		width:    defaultCols,
		height:   defaultRows,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.surface = newCanvas(m.width, m.height)
	m.input.Width = max(m.width-4, 10)
	if m.initial != "" {
		m.input.SetValue(m.initial)
		m.req = 1
		m.busy = true
		m.status = "analysing..."
	}
	return m
}

func newCanvas(width, height int) *TermSurface {
	return NewTermSurface(max(width-2, 10), max(height-chromeRows, 4))
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.initial != "" {
		return tea.Batch(textinput.Blink, m.analyzeCmd(1, m.initial))
	}
	return textinput.Blink
}

func (m Model) analyzeCmd(seq int, text string) tea.Cmd {
	a := m.analyzer
	return func() tea.Msg {
		res, err := a.Analyze(context.Background(), text)
		return analyzedMsg{seq: seq, res: res, err: err}
	}
}

func tickCmd(gen int) tea.Cmd {
	return tea.Tick(layout.DefaultFrameInterval, func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(m.width-4, 10)
		m.surface = newCanvas(m.width, m.height)
		if m.result != nil {
			return m.restart(m.result.Graph)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case analyzedMsg:
		if msg.seq != m.req {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		res := msg.res
		m.result = &res
		m.summary = res.Summary()
		m.err = nil
		if res.Cached {
			m.status = fmt.Sprintf("loaded #%d from store", res.ID)
		} else {
			m.status = fmt.Sprintf("generated %d spans", len(res.Spans))
		}
		return m.restart(res.Graph)

	case frameMsg:
		if msg.gen != m.gen || m.sim == nil {
			return m, nil
		}
		if m.sim.Frame(msg.at) {
			return m, tickCmd(m.gen)
		}
		debug.Event("tui animation settled", "frames", m.sim.Frames())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case "ctrl+r":
		text := spans.RandomExample(m.rng)
		m.input.SetValue(text)
		m.input.CursorEnd()
		return m.submit(text)

	case "ctrl+y":
		if m.result == nil {
			m.status = "nothing to copy"
			return m, nil
		}
		data, err := model.MarshalGraphIndent(m.result.Graph)
		if err == nil {
			err = m.copy(string(data))
		}
		if err != nil {
			m.err = fmt.Errorf("copy: %w", err)
			return m, nil
		}
		m.status = "graph JSON copied"
		return m, nil

	case "ctrl+s":
		if m.sim != nil {
			m.sim.Stop()
			m.gen++
			m.status = "animation stopped"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.req++
	m.busy = true
	m.err = nil
	m.status = "analysing..."
	return m, m.analyzeCmd(m.req, text)
}

// restart starts a fresh simulation of g on the current canvas. Bumping the
// generation drops ticks still queued for the previous simulation.
func (m Model) restart(g model.Graph) (tea.Model, tea.Cmd) {
	m.gen++
	sim, err := layout.NewSimulator(g, m.surface, m.simOpts...)
	if err != nil {
		m.err = err
		m.sim = nil
		return m, nil
	}
	m.sim = sim
	return m, tickCmd(m.gen)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := titleStyle.Render("spangraph")
	if m.result != nil && m.result.Cached {
		title += " " + badgeStyle.Render("stored")
	}
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	b.WriteByte('\n')
	b.WriteString(canvasStyle.Render(m.surface.View()))
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render("enter analyse • ctrl+r random • ctrl+y copy JSON • ctrl+s stop • esc quit"))
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(truncate("error: "+m.err.Error(), m.width))
	}
	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.result != nil {
		parts = append(parts, m.summary.String())
	}
	if m.sim != nil {
		parts = append(parts, fmt.Sprintf("%s %d", m.sim.State(), m.sim.Frames()))
	}
	line := strings.Join(parts, "  |  ")
	return statusStyle.Render(truncate(line, m.width))
}

// Simulator returns the active simulator, or nil.
func (m Model) Simulator() *layout.Simulator { return m.sim }

// Surface returns the canvas.
func (m Model) Surface() *TermSurface { return m.surface }

// Result returns the last analysis result, or nil.
func (m Model) Result() *analysis.Result { return m.result }

// Busy reports whether an analysis is in flight.
func (m Model) Busy() bool { return m.busy }

// Err returns the last error shown in the status line.
func (m Model) Err() error { return m.err }

var _ tea.Model = Model{}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
