package utils

import (
	"sync"
	"time"
)

// Deferred is a cancellable deferred task. Schedule replaces any pending
// task, so a burst of Schedule calls inside the delay fires the last
// function exactly once (trailing-edge debounce).
type Deferred struct {
	mu    sync.Mutex
	timer *time.Timer
}

func NewDeferred() *Deferred {
	return &Deferred{}
}

// Schedule arranges fn to run after delay, replacing any pending task.
func (d *Deferred) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Stop cancels the pending task if any. Reports whether one was pending.
func (d *Deferred) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Pending reports whether a task is scheduled and has not fired.
func (d *Deferred) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
