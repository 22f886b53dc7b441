package app

import (
	"sync"
	"time"
)

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

// NewTicker wraps time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &stdTicker{t: time.NewTicker(d)}
}

type stdTicker struct {
	t *time.Ticker
}

func (s *stdTicker) C() <-chan time.Time { return s.t.C }
func (s *stdTicker) Stop()              { s.t.Stop() }

// countdown drives a callback once per tick until stopped. Stop is idempotent
// and does not wait for an in-flight callback, so it is safe to call from
// inside that callback.
type countdown struct {
	ticker Ticker
	done   chan struct{}
	once   sync.Once
}

func startCountdown(newTicker TickerFactory, interval time.Duration, onTick func()) *countdown {
	c := &countdown{
		ticker: newTicker(interval),
		done:   make(chan struct{}),
	}
	go c.run(onTick)
	return c
}

func (c *countdown) run(onTick func()) {
	for {
		select {
		case <-c.done:
			return
		case _, ok := <-c.ticker.C():
			if !ok {
				return
			}
			select {
			case <-c.done:
				return
			default:
			}
			onTick()
		}
	}
}

func (c *countdown) stop() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.done)
		c.ticker.Stop()
	})
}

// ManualTicker is a Ticker fired explicitly, for tests and step-driven clients.
type ManualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

// NewManualTicker returns a ManualTicker with room for buffered ticks.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 1)}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Fire delivers one tick, blocking until the receiver accepts it. It reports
// false once the ticker has been stopped.
func (m *ManualTicker) Fire() bool {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return false
	}
	m.ch <- time.Now()
	return true
}

// Stopped reports whether Stop has been called.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
