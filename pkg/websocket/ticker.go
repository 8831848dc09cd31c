package websocket

import "time"

// ticker drives an Endpoint's once-a-second timeout checks (heartbeat ping
// cadence and close-handshake deadline). It wraps time.Ticker behind a
// small interface so tests can inject a synthetic clock instead of waiting
// on the wall clock.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

// realTicker adapts *time.Ticker to the ticker interface.
type realTicker struct{ t *time.Ticker }

func newRealTicker(period time.Duration) *realTicker {
	return &realTicker{t: time.NewTicker(period)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// manualTicker is a test double: each Tick() simulates one firing.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

// Tick simulates one second elapsing.
func (m *manualTicker) Tick(at time.Time) { m.ch <- at }

const tickPeriod = 1 * time.Second
