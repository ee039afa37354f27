package flow

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeCookieJar is an in-memory CookieJar standing in for the browser.
type fakeCookieJar struct {
	mu      sync.Mutex
	cookies map[string]string
}

func newFakeCookieJar() *fakeCookieJar {
	return &fakeCookieJar{cookies: make(map[string]string)}
}

func (j *fakeCookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.cookies[name]
	return v, ok
}

func (j *fakeCookieJar) Set(name, value string, _ time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = value
}

func (j *fakeCookieJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, name)
}

// recordTracker captures tracking events for assertions.
type recordTracker struct {
	mu     sync.Mutex
	events []trackedEvent
}

type trackedEvent struct {
	name    string
	payload map[string]any
}

func (t *recordTracker) Track(event string, payload map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, trackedEvent{name: event, payload: payload})
}

func (t *recordTracker) byName(name string) []trackedEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []trackedEvent
	for _, e := range t.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
