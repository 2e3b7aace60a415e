package layout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/spangraph/pkg/debug"
	"github.com/vanderheijden86/spangraph/pkg/model"
	"github.com/vanderheijden86/spangraph/pkg/render"
)

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithTicker sets the factory used to create a tick source for each run.
func WithTicker(fn func() Ticker) PlayerOption {
	return func(p *Player) { p.newTicker = fn }
}

// WithSimulatorOptions passes options through to the owned Simulator.
func WithSimulatorOptions(opts ...Option) PlayerOption {
	return func(p *Player) { p.simOpts = append(p.simOpts, opts...) }
}

// WithOnFrame sets a callback invoked after every drawn frame. Callbacks run
// on the animation goroutine and must not call Start or Stop.
func WithOnFrame(fn func(frame int)) PlayerOption {
	return func(p *Player) { p.onFrame = fn }
}

// WithOnStop sets a callback invoked when a run ends on its own, either
// because the time budget was spent or the context passed to Start was
// cancelled. It is not called for runs ended by Stop or a later Start.
func WithOnStop(fn func(State)) PlayerOption {
	return func(p *Player) { p.onStop = fn }
}

// Player animates one graph at a time on a shared surface. Starting a new
// graph cancels the running animation and waits for it to exit before the
// surface is cleared, so frames from an old graph never land on a new one.
type Player struct {
	newTicker func() Ticker
	simOpts   []Option
	onFrame   func(int)
	onStop    func(State)

	lifeMu sync.Mutex // serializes Start and Stop
	cancel context.CancelFunc
	done   chan struct{}
	quiet  *atomic.Bool
	runs   uint64

	simMu sync.Mutex // guards sim
	sim   *Simulator
}

// NewPlayer returns a Player drawing on surface.
func NewPlayer(surface render.Surface, opts ...PlayerOption) *Player {
	p := &Player{
		newTicker: func() Ticker { return NewClockTicker(DefaultFrameInterval) },
		onFrame:   func(int) {},
		onStop:    func(State) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.sim = New(surface, p.simOpts...)
	return p
}

// Start validates g, stops any previous animation and begins animating g.
// The animation runs until its time budget is spent, ctx is cancelled, or
// Stop or Start is called. On a validation error the previous animation
// keeps running.
func (p *Player) Start(ctx context.Context, g model.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	p.stopLocked()

	p.simMu.Lock()
	err := p.sim.Init(g)
	p.simMu.Unlock()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	quiet := new(atomic.Bool)
	p.cancel, p.done, p.quiet = cancel, done, quiet
	p.runs++
	go p.run(runCtx, p.runs, done, quiet)
	return nil
}

func (p *Player) run(ctx context.Context, id uint64, done chan struct{}, quiet *atomic.Bool) {
	defer close(done)

	ticker := p.newTicker()
	defer ticker.Stop()

	debug.Event("animation loop started", "run", id)
	for {
		select {
		case <-ctx.Done():
			p.simMu.Lock()
			p.sim.Stop()
			state := p.sim.State()
			p.simMu.Unlock()
			if !quiet.Load() {
				p.onStop(state)
			}
			return
		case now := <-ticker.C():
			p.simMu.Lock()
			drawn := p.sim.Frame(now)
			frames := p.sim.Frames()
			state := p.sim.State()
			p.simMu.Unlock()
			if !drawn {
				debug.Event("animation loop finished", "run", id, "frames", frames)
				p.onStop(state)
				return
			}
			p.onFrame(frames)
		}
	}
}

// Stop cancels the running animation and waits for it to exit. The last
// frame stays on the surface.
func (p *Player) Stop() {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.quiet.Store(true)
	p.cancel()
	<-p.done
	p.cancel, p.done, p.quiet = nil, nil, nil
}

// Wait blocks until the current animation ends or the timeout elapses. It
// reports whether the animation ended.
func (p *Player) Wait(timeout time.Duration) bool {
	p.lifeMu.Lock()
	done := p.done
	p.lifeMu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done returns a channel closed when the current animation ends. With no
// animation started it returns a closed channel.
func (p *Player) Done() <-chan struct{} {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}

// State returns the simulator state.
func (p *Player) State() State {
	p.simMu.Lock()
	defer p.simMu.Unlock()
	return p.sim.State()
}

// Graph returns the graph currently animated.
func (p *Player) Graph() model.Graph {
	p.simMu.Lock()
	defer p.simMu.Unlock()
	return p.sim.Graph()
}

// Positions returns a snapshot of node positions in graph order.
func (p *Player) Positions() []r2.Vec {
	p.simMu.Lock()
	defer p.simMu.Unlock()
	return p.sim.Positions()
}

// Frames returns the number of frames drawn for the current graph.
func (p *Player) Frames() int {
	p.simMu.Lock()
	defer p.simMu.Unlock()
	return p.sim.Frames()
}
