package layout

import (
	"sync"
	"time"
)

// Ticker delivers frame times. It stands in for the display refresh
// callback so that animation can be driven by a clock or by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// ClockTicker ticks at a fixed wall-clock interval.
type ClockTicker struct {
	t *time.Ticker
}

// NewClockTicker returns a ticker firing every interval. A non-positive
// interval uses DefaultFrameInterval.
func NewClockTicker(interval time.Duration) *ClockTicker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &ClockTicker{t: time.NewTicker(interval)}
}

// C implements Ticker.
func (c *ClockTicker) C() <-chan time.Time { return c.t.C }

// Stop implements Ticker.
func (c *ClockTicker) Stop() { c.t.Stop() }

// ManualTicker fires only when Tick is called.
type ManualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

// NewManualTicker returns a ticker with an unbuffered channel, so Tick
// blocks until the consumer has taken the frame.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// C implements Ticker.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop implements Ticker. Pending and later Tick calls return false.
func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Tick delivers t to the consumer, giving up after timeout. It reports
// whether the tick was received.
func (m *ManualTicker) Tick(t time.Time, timeout time.Duration) bool {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return false
	}
	select {
	case m.ch <- t:
		return true
	case <-time.After(timeout):
		return false
	}
}
