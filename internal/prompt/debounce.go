package prompt

import (
	"sync"
	"time"
)

// Debouncer signals on C once no Trigger has happened for the configured
// quiet period.
type Debouncer struct {
	quiet time.Duration
	c     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer. A zero or negative quiet period
// disables it: Trigger does nothing and C never fires.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet, c: make(chan struct{}, 1)}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	if d.quiet <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		d.timer = time.AfterFunc(d.quiet, d.fire)
		return
	}
	d.timer.Reset(d.quiet)
}

// C receives one value per elapsed quiet period.
func (d *Debouncer) C() <-chan struct{} {
	return d.c
}

// Stop cancels a pending signal.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) fire() {
	select {
	case d.c <- struct{}{}:
	default:
	}
}
