package flow

import "log/slog"

// Tracking event names. Events are fire-and-forget: never awaited, never
// blocking, never allowed to fail a transition.
const (
	EventStepViewed       = "step_viewed"
	EventExperimentViewed = "experiment_viewed"
	EventAutoAdvance      = "auto_advance_triggered"
	EventStepBack         = "step_back_clicked"
	EventFormSubmitted    = "form_submitted"
)

// Tracker receives named analytics events with structured payloads.
type Tracker interface {
	Track(event string, payload map[string]any)
}

// LogTracker writes tracking events to the structured log. It is the default
// sink when the embedder supplies none.
type LogTracker struct {
	Logger *slog.Logger
}

func (t LogTracker) Track(event string, payload map[string]any) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]any, 0, len(payload)*2+2)
	attrs = append(attrs, "event", event)
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	logger.Info("tracking event", attrs...)
}
