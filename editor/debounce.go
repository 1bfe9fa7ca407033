package editor

import (
	"sync"
	"time"
)

// Debouncer runs fn once delay has passed without another Trigger.
type Debouncer struct {
	delay time.Duration
	fn    func()
	timer *time.Timer
	mu    sync.Mutex
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		delay: delay,
		fn:    fn,
	}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending invocation. An invocation already running is not
// interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
