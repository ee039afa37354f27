// Package flow implements a multi-step form flow engine: an ordered list of
// steps whose visibility is driven by captured field data and an optional
// A/B experiment variant, with durable progress snapshots so a visitor can
// resume where they left off.
package flow

import "fmt"

// StepDefinition is one declared step of a form. Definitions are created at
// load time and never mutated afterwards.
type StepDefinition struct {
	// ID is the stable author-assigned identifier, the durable reference
	// used in progress snapshots and tracking events.
	ID string `yaml:"id"`

	// Order is the position in the full declared sequence, assigned at load.
	Order int `yaml:"-"`

	// ShowIf and HideIf are flat condition expressions (see EvaluateCondition).
	// HideIf wins when both match.
	ShowIf string `yaml:"show_if,omitempty"`
	HideIf string `yaml:"hide_if,omitempty"`

	// Variant marks a variant-specific step: visible only when the active
	// experiment variant equals this label.
	Variant string `yaml:"variant,omitempty"`

	Fields []FieldDefinition `yaml:"fields,omitempty"`
}

// FieldDefinition declares one interactive field of a step.
type FieldDefinition struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // text, email, url, number, checkbox, radio, select, textarea
	Required bool   `yaml:"required,omitempty"`
	Value    string `yaml:"value,omitempty"` // fixed option value for radio fields

	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// AutoAdvance triggers an automatic advance shortly after this field
	// changes. Only honored for radio and select fields.
	AutoAdvance bool `yaml:"auto_advance,omitempty"`
}

// Definition is the typed declarative schema of a whole form, parsed once at
// startup.
type Definition struct {
	ID         string           `yaml:"id"`
	StorageKey string           `yaml:"storage_key,omitempty"`
	ABTest     string           `yaml:"ab_test,omitempty"`
	ABSplit    []float64        `yaml:"ab_split,omitempty"`
	WebhookURL string           `yaml:"webhook_url,omitempty"`
	Steps      []StepDefinition `yaml:"steps"`
}

// Validate checks startup invariants: at least one step, unique step IDs.
func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return ErrNoSteps
	}
	seen := make(map[string]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		if s.ID == "" {
			return fmt.Errorf("%w: step at order %d has no id", ErrDuplicateStep, s.Order)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateStep, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// VariantLabels returns the distinct variant labels declared on steps, in
// first-seen order.
func (d *Definition) VariantLabels() []string {
	var labels []string
	seen := make(map[string]struct{})
	for _, s := range d.Steps {
		if s.Variant == "" {
			continue
		}
		if _, ok := seen[s.Variant]; ok {
			continue
		}
		seen[s.Variant] = struct{}{}
		labels = append(labels, s.Variant)
	}
	return labels
}

// StepByID returns the declared step with the given identifier.
func (d *Definition) StepByID(id string) (StepDefinition, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepDefinition{}, false
}
