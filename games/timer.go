package games

import (
	"context"
	"github.com/lefinal/memorama/periodic"
	"sync"
	"time"
)

// DefaultTickInterval is the interval in which the SessionTimer counts seconds.
const DefaultTickInterval = time.Second

// SessionTimer counts elapsed seconds while running.
type SessionTimer struct {
	ticker *periodic.Ticker
	// onTick is called with the new elapsed seconds. It must not block.
	onTick  func(elapsed int)
	elapsed int
	m       sync.Mutex
}

// NewSessionTimer creates a stopped SessionTimer that increments once per
// tick interval. onTick may be nil.
func NewSessionTimer(tickInterval time.Duration, onTick func(elapsed int)) *SessionTimer {
	t := &SessionTimer{
		onTick: onTick,
	}
	t.ticker = periodic.NewTicker(tickInterval, t.tick)
	return t
}

func (t *SessionTimer) tick(ctx context.Context) {
	t.m.Lock()
	if ctx.Err() != nil {
		t.m.Unlock()
		return
	}
	t.elapsed++
	elapsed := t.elapsed
	t.m.Unlock()
	if t.onTick != nil {
		t.onTick(elapsed)
	}
}

// Start starts counting. A running timer is restarted without resetting the
// elapsed seconds.
func (t *SessionTimer) Start() {
	t.ticker.Start()
}

// Stop stops counting. No increments happen after Stop returned.
func (t *SessionTimer) Stop() {
	t.ticker.Stop()
}

// Reset sets the elapsed seconds to zero.
func (t *SessionTimer) Reset() {
	t.m.Lock()
	defer t.m.Unlock()
	t.elapsed = 0
}

// Elapsed returns the elapsed seconds.
func (t *SessionTimer) Elapsed() int {
	t.m.Lock()
	defer t.m.Unlock()
	return t.elapsed
}

// IsRunning describes whether the timer is counting.
func (t *SessionTimer) IsRunning() bool {
	return t.ticker.IsRunning()
}
