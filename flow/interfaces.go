package flow

import "net/url"

// Field is a live interactive field as reported by a FieldSource.
type Field struct {
	Name     string
	Type     string // text, email, url, number, checkbox, radio, select, textarea
	Value    string
	Checked  bool // checkbox / radio state
	Required bool

	Min *float64
	Max *float64
}

// FieldSource enumerates and mutates the form's interactive fields. The
// session reads from it to capture data and validate, and writes to it to
// restore persisted values.
type FieldSource interface {
	// StepFields returns the fields belonging to one step.
	StepFields(stepID string) []Field
	// AllFields returns every field of the form.
	AllFields() []Field
	// Restore pushes persisted values back into the fields.
	Restore(data FieldData)
}

// StepView is what the session asks a Renderer to paint after every
// successful transition: exactly one visible step plus progress context.
type StepView struct {
	Step         *StepDefinition
	Index        int
	TotalVisible int
	Progress     float64 // percent, 0..100
	IsLast       bool
	Variant      string
	State        State
}

// Renderer paints the current step. It must show exactly one step element
// and hide all others; animation, scrolling and focus are its business. It
// may not mutate form data.
type Renderer interface {
	Render(view StepView)
}

// StepChange is the notification payload emitted after every successful
// transition when URL updating is enabled.
type StepChange struct {
	StepID       string `json:"stepId"`
	StepIndex    int    `json:"stepIndex"`
	TotalVisible int    `json:"totalSteps"`
	Variant      string `json:"variant,omitempty"`
}

// HistoryUpdater reflects the active step in the shareable location without
// navigation and strips consumed query parameters.
type HistoryUpdater interface {
	ReplaceQuery(q url.Values)
	StepChanged(change StepChange)
}

type nopRenderer struct{}

func (nopRenderer) Render(StepView) {}

type nopHistory struct{}

func (nopHistory) ReplaceQuery(url.Values) {}
func (nopHistory) StepChanged(StepChange)  {}
