package replay

import (
	"time"

	"reviewsync/internal/core/ports"
)

// intervalTicker adapts time.Ticker to the ports.Ticker surface. It is the
// production tick source: one tick per display-refresh-ish interval.
type intervalTicker struct {
	t *time.Ticker
}

// NewIntervalTicker returns a ticker firing every interval.
func NewIntervalTicker(interval time.Duration) ports.Ticker {
	return &intervalTicker{t: time.NewTicker(interval)}
}

func (t *intervalTicker) C() <-chan time.Time {
	return t.t.C
}

func (t *intervalTicker) Stop() {
	t.t.Stop()
}

// ManualTicker is a tick source driven explicitly by the caller. Tests use it
// to step the synchronizer deterministically together with an injected clock.
type ManualTicker struct {
	ch chan time.Time
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// Tick hands one tick to the loop. It blocks until the loop accepts it, so a
// following Tick call only returns after the previous tick began processing.
func (m *ManualTicker) Tick(at time.Time) {
	m.ch <- at
}

func (m *ManualTicker) C() <-chan time.Time {
	return m.ch
}

func (m *ManualTicker) Stop() {}
