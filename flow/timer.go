package flow

import (
	"sync"
	"time"
)

// debouncer is a single-slot, last-write-wins scheduled callback: each new
// schedule call replaces any pending one rather than queueing. Used for the
// autosave window and for auto-advance delays.
type debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// schedule runs fn after delay, cancelling any previously pending callback.
// fn always runs on the timer goroutine, never synchronously.
func (d *debouncer) schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, fn)
}

// cancel stops any pending callback.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
