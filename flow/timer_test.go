package flow

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_LastWriteWins(t *testing.T) {
	var d debouncer
	var fired atomic.Int32

	// Each schedule call must replace the previous pending one.
	for i := 0; i < 5; i++ {
		d.schedule(20*time.Millisecond, func() { fired.Add(1) })
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var d debouncer
	var fired atomic.Int32

	d.schedule(20*time.Millisecond, func() { fired.Add(1) })
	d.cancel()

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("fired %d times after cancel, want 0", got)
	}
}
