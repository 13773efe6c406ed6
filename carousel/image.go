package carousel

import (
	"context"
	"github.com/lefinal/memorama/periodic"
	"sync"
	"time"
)

// DefaultImagePeriod is the default interval for advancing image carousels.
const DefaultImagePeriod = 4 * time.Second

// ImageRotatorConfig configures an ImageRotator.
type ImageRotatorConfig struct {
	// Length is the number of images.
	Length int
	// Window is the number of images that are visible at once. Values of 0 or 1
	// result in a full-wrap carousel that shows one image at a time.
	Window int
	// Period is the interval for automatic advancing.
	Period time.Duration
}

// ImageRotator rotates through a list of images. It is either a full-wrap
// carousel or a windowed strip where the index is the first visible image and
// never exceeds Length-Window.
type ImageRotator struct {
	length int
	window int
	// onChange is called with the new index after each change. It must not block.
	onChange func(index int)
	ticker   *periodic.Ticker
	index    int
	m        sync.Mutex
}

// NewImageRotator creates a stopped ImageRotator. onChange may be nil.
func NewImageRotator(config ImageRotatorConfig, onChange func(index int)) *ImageRotator {
	r := &ImageRotator{
		length:   config.Length,
		window:   config.Window,
		onChange: onChange,
	}
	if r.window < 1 {
		r.window = 1
	}
	period := config.Period
	if period <= 0 {
		period = DefaultImagePeriod
	}
	r.ticker = periodic.NewTicker(period, func(_ context.Context) {
		r.Advance()
	})
	return r
}

// positions returns the number of distinct indices.
func (r *ImageRotator) positions() int {
	if r.window == 1 {
		return r.length
	}
	return r.length - r.window + 1
}

// schedules describes whether automatic advancing makes sense.
func (r *ImageRotator) schedules() bool {
	if r.window == 1 {
		return r.length > 0
	}
	return r.length > r.window
}

// Start starts automatic advancing and reports whether it was started. A
// full-wrap carousel without images and a strip that fits into its window are
// not started. Starting a running ImageRotator restarts the period.
func (r *ImageRotator) Start() bool {
	if !r.schedules() {
		return false
	}
	r.ticker.Start()
	return true
}

// IsRunning describes whether automatic advancing is active.
func (r *ImageRotator) IsRunning() bool {
	return r.ticker.IsRunning()
}

// Index returns the current index.
func (r *ImageRotator) Index() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.index
}

// Advance moves to the next index and wraps to 0 at the end.
func (r *ImageRotator) Advance() int {
	return r.move(1)
}

// Retreat moves to the previous index and wraps to the last one at the start.
func (r *ImageRotator) Retreat() int {
	return r.move(-1)
}

func (r *ImageRotator) move(delta int) int {
	r.m.Lock()
	positions := r.positions()
	if positions <= 1 {
		index := r.index
		r.m.Unlock()
		return index
	}
	r.index = ((r.index+delta)%positions + positions) % positions
	index := r.index
	r.m.Unlock()
	if r.onChange != nil {
		r.onChange(index)
	}
	return index
}

// Teardown stops automatic advancing.
func (r *ImageRotator) Teardown() {
	r.ticker.Stop()
}
