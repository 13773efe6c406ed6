// Package periodic provides a restartable ticker loop.
package periodic

import (
	"context"
	"sync"
	"time"
)

// Ticker calls a function periodically until stopped. It can be started
// again after being stopped.
type Ticker struct {
	interval time.Duration
	tick     func(ctx context.Context)
	// lifecycleMutex serializes Start and Stop.
	lifecycleMutex sync.Mutex
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewTicker creates a Ticker that calls tick every interval once started. The
// passed context is done as soon as Stop is called, so tick can check whether
// it was stopped in the meantime. tick must not call Start or Stop.
func NewTicker(interval time.Duration, tick func(ctx context.Context)) *Ticker {
	return &Ticker{
		interval: interval,
		tick:     tick,
	}
}

// Start starts the ticker. If it is already running, it is restarted with a
// full interval until the next tick.
func (t *Ticker) Start() {
	t.lifecycleMutex.Lock()
	defer t.lifecycleMutex.Unlock()
	t.stop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(ctx, done)
}

// Stop stops the ticker and waits until a currently running tick finished.
// Calling Stop on a stopped Ticker is a no-op.
func (t *Ticker) Stop() {
	t.lifecycleMutex.Lock()
	defer t.lifecycleMutex.Unlock()
	t.stop()
}

// IsRunning describes whether the ticker is started.
func (t *Ticker) IsRunning() bool {
	t.lifecycleMutex.Lock()
	defer t.lifecycleMutex.Unlock()
	return t.cancel != nil
}

func (t *Ticker) stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

func (t *Ticker) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		t.tick(ctx)
	}
}
