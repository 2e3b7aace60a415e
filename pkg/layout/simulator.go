// Package layout positions graph nodes with a small force-directed
// simulation and redraws them onto a render.Surface every frame.
//
// The simulation is time-boxed rather than convergence-tested: a Simulator
// runs for Duration after initialization and then stops, leaving its last
// frame on the surface.
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/metrics"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/render"
)

// Physics constants.
const (
	Repulsion      = 12000.0 // inverse-square repulsion strength
	Epsilon        = 0.01    // added to squared distance; minimum spring length
	SpringK        = 0.03
	RestLength     = 120.0
	Damping        = 0.65
	TimeStep       = 0.02
	Margin         = 20.0
	JitterX        = 100.0
	JitterY        = 60.0
	SentenceRadius = 18.0
	EntityRadius   = 14.0
	LabelOffsetX   = 6.0
	LabelOffsetY   = 4.0
)

// Scheduling defaults.
const (
	DefaultStepsPerFrame = 6
	DefaultDuration      = 8 * time.Second
	DefaultFrameInterval = 16 * time.Millisecond
)

// State is the lifecycle state of a Simulator.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNoSurface is returned when a Simulator is initialized without a surface.
var ErrNoSurface = errors.New("layout: nil surface")

// Body is the mutable simulation state of one node.
type Body struct {
	ID     string
	Kind   model.NodeKind
	Label  string // text drawn next to the node
	Pos    r2.Vec
	Vel    r2.Vec
	Radius float64
}

type spring struct {
	a, b int // indexes into bodies
	rest float64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the source used for initial jitter.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithClock sets the clock used to stamp initialization.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithDuration sets the wall-clock budget after which the simulation stops.
func WithDuration(d time.Duration) Option {
	return func(s *Simulator) { s.duration = d }
}

// WithStepsPerFrame sets how many physics steps run before each redraw.
func WithStepsPerFrame(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.stepsPerFrame = n
		}
	}
}

// Simulator owns body positions for one graph at a time and paints them on
// its surface. A Simulator is not safe for concurrent use; Player drives it
// from a single goroutine.
type Simulator struct {
	surface       render.Surface
	rng           *rand.Rand
	now           func() time.Time
	duration      time.Duration
	stepsPerFrame int

	state     State
	graph     model.Graph
	bodies    []Body
	index     map[string]int
	springs   []spring
	width     float64
	height    float64
	startedAt time.Time
	frames    int
	steps     int
}

// New returns an uninitialized Simulator bound to surface.
func New(surface render.Surface, opts ...Option) *Simulator {
	s := &Simulator{
		surface:       surface,
		now:           time.Now,
		duration:      DefaultDuration,
		stepsPerFrame: DefaultStepsPerFrame,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// NewSimulator returns a Simulator already initialized with g.
func NewSimulator(g model.Graph, surface render.Surface, opts ...Option) (*Simulator, error) {
	s := New(surface, opts...)
	if err := s.Init(g); err != nil {
		return nil, err
	}
	return s, nil
}

// Init validates g, clears the surface and places every node near the
// surface centre with zero velocity. Any previous graph and state are
// discarded; on success the Simulator is Running.
func (s *Simulator) Init(g model.Graph) error {
	if s.surface == nil {
		return ErrNoSurface
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	s.graph = g
	s.width, s.height = s.surface.Size()
	s.bodies = make([]Body, len(g.Nodes))
	s.index = make(map[string]int, len(g.Nodes))
	cx, cy := s.width/2, s.height/2
	for i, n := range g.Nodes {
		radius := EntityRadius
		if n.Kind == model.KindSentence {
			radius = SentenceRadius
		}
		s.bodies[i] = Body{
			ID:    n.ID,
			Kind:  n.Kind,
			Label: n.DisplayText(),
			Pos: r2.Vec{
				X: cx + (s.rng.Float64()-0.5)*2*JitterX,
				Y: cy + (s.rng.Float64()-0.5)*2*JitterY,
			},
			Radius: radius,
		}
		s.index[n.ID] = i
	}

	s.springs = make([]spring, len(g.Edges))
	for i, e := range g.Edges {
		s.springs[i] = spring{a: s.index[e.Source], b: s.index[e.Target], rest: RestLength}
	}

	s.surface.Clear()
	s.frames, s.steps = 0, 0
	s.startedAt = s.now()
	s.state = StateRunning
	debug.Event("simulation started", "nodes", len(s.bodies), "springs", len(s.springs),
		"width", s.width, "height", s.height)
	return nil
}

// Step advances the physics by one tick: pairwise repulsion, spring
// attraction, then damping, integration and clamping to the surface.
func (s *Simulator) Step() {
	defer metrics.Timer(metrics.PhysicsStep)()

	for i := 0; i < len(s.bodies); i++ {
		a := &s.bodies[i]
		for j := i + 1; j < len(s.bodies); j++ {
			b := &s.bodies[j]
			f := repulsion(a.Pos, b.Pos)
			a.Vel = r2.Add(a.Vel, f)
			b.Vel = r2.Sub(b.Vel, f)
		}
	}

	for _, sp := range s.springs {
		a, b := &s.bodies[sp.a], &s.bodies[sp.b]
		f := springForce(a.Pos, b.Pos, sp.rest)
		a.Vel = r2.Add(a.Vel, f)
		b.Vel = r2.Sub(b.Vel, f)
	}

	for i := range s.bodies {
		b := &s.bodies[i]
		b.Vel = r2.Scale(Damping, b.Vel)
		b.Pos = r2.Add(b.Pos, r2.Scale(TimeStep, b.Vel))
		b.Pos.X = clamp(b.Pos.X, Margin, s.width-Margin)
		b.Pos.Y = clamp(b.Pos.Y, Margin, s.height-Margin)
	}
	s.steps++
}

// repulsion returns the force on a pushing it away from b. The epsilon keeps
// coincident points finite.
func repulsion(a, b r2.Vec) r2.Vec {
	d := r2.Sub(a, b)
	dist2 := r2.Norm2(d) + Epsilon
	dist := math.Sqrt(dist2)
	return r2.Scale(Repulsion/dist2/dist, d)
}

// springForce returns the force on a pulling it toward the rest length from
// b. It is zero when the separation equals rest.
func springForce(a, b r2.Vec, rest float64) r2.Vec {
	d := r2.Sub(b, a)
	dist := math.Max(r2.Norm(d), Epsilon)
	return r2.Scale(SpringK*(dist-rest)/dist, d)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Frame runs one animation frame at time now: a batch of physics steps and a
// full redraw. It returns false once the simulation is not running, either
// because the time budget is spent or because it was stopped; in that case
// nothing is drawn and the previous frame stays on the surface.
func (s *Simulator) Frame(now time.Time) bool {
	if s.state != StateRunning {
		return false
	}
	if now.Sub(s.startedAt) >= s.duration {
		s.state = StateStopped
		debug.Event("simulation finished", "frames", s.frames, "steps", s.steps)
		return false
	}

	for i := 0; i < s.stepsPerFrame; i++ {
		s.Step()
	}
	s.Draw()
	s.frames++
	return true
}

// Draw clears the surface and paints edges, then nodes with their labels.
func (s *Simulator) Draw() {
	defer metrics.Timer(metrics.FrameRender)()

	s.surface.Clear()
	for _, sp := range s.springs {
		a, b := s.bodies[sp.a].Pos, s.bodies[sp.b].Pos
		s.surface.Line(a.X, a.Y, b.X, b.Y, render.EdgeStyle)
	}
	for _, b := range s.bodies {
		style := render.EntityStyle
		if b.Kind == model.KindSentence {
			style = render.SentenceStyle
		}
		s.surface.Circle(b.Pos.X, b.Pos.Y, b.Radius, style)
		s.surface.Text(b.Pos.X+b.Radius+LabelOffsetX, b.Pos.Y+LabelOffsetY, b.Label, render.LabelStyle)
	}
}

// Stop ends a running simulation before its time budget. The last drawn
// frame stays on the surface.
func (s *Simulator) Stop() {
	if s.state == StateRunning {
		s.state = StateStopped
	}
}

// State returns the lifecycle state.
func (s *Simulator) State() State { return s.state }

// Running reports whether more frames should be scheduled.
func (s *Simulator) Running() bool { return s.state == StateRunning }

// Frames returns the number of frames drawn since Init.
func (s *Simulator) Frames() int { return s.frames }

// Steps returns the number of physics steps since Init.
func (s *Simulator) Steps() int { return s.steps }

// Graph returns the graph being simulated.
func (s *Simulator) Graph() model.Graph { return s.graph }

// Surface returns the surface the simulator draws on.
func (s *Simulator) Surface() render.Surface { return s.surface }

// Bodies returns a copy of the current body states in graph order.
func (s *Simulator) Bodies() []Body {
	return append([]Body(nil), s.bodies...)
}

// Positions returns the current positions in graph order.
func (s *Simulator) Positions() []r2.Vec {
	out := make([]r2.Vec, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.Pos
	}
	return out
}

// Body returns the state of the node with the given id.
func (s *Simulator) Body(id string) (Body, bool) {
	i, ok := s.index[id]
	if !ok {
		return Body{}, false
	}
	return s.bodies[i], true
}

// SetPosition moves a body and zeroes its velocity. It is meant for tests
// and for restoring a saved layout.
func (s *Simulator) SetPosition(id string, p r2.Vec) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.bodies[i].Pos = p
	s.bodies[i].Vel = r2.Vec{}
	return true
}
