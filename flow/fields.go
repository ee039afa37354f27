package flow

import "sync"

// DefinitionFields is a FieldSource backed by the declared field schema plus
// a live value map. It is the default source for server-side embeddings,
// where the form shape is known from the definition and values arrive as
// input events.
type DefinitionFields struct {
	mu     sync.RWMutex
	def    *Definition
	values map[string]string // text-like inputs and selects
	checks map[string]bool   // checkbox state
	radios map[string]string // radio group -> selected option value
}

var _ FieldSource = (*DefinitionFields)(nil)

func NewDefinitionFields(def *Definition) *DefinitionFields {
	return &DefinitionFields{
		def:    def,
		values: make(map[string]string),
		checks: make(map[string]bool),
		radios: make(map[string]string),
	}
}

// SetValue records an input event for a text-like or select field.
func (s *DefinitionFields) SetValue(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// SetChecked records a checkbox change.
func (s *DefinitionFields) SetChecked(name string, checked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checked
}

// SelectRadio records the checked option of a radio group.
func (s *DefinitionFields) SelectRadio(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radios[name] = value
}

// Apply records a raw value for the named field using its declared type.
// Unknown names are ignored.
func (s *DefinitionFields) Apply(name string, value any) {
	def, ok := s.fieldDef(name)
	if !ok {
		return
	}
	switch def.Type {
	case "checkbox":
		b, _ := value.(bool)
		s.SetChecked(name, b)
	case "radio":
		v, _ := value.(string)
		s.SelectRadio(name, v)
	default:
		v, _ := value.(string)
		s.SetValue(name, v)
	}
}

func (s *DefinitionFields) fieldDef(name string) (FieldDefinition, bool) {
	for _, step := range s.def.Steps {
		for _, f := range step.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return FieldDefinition{}, false
}

func (s *DefinitionFields) StepFields(stepID string) []Field {
	step, ok := s.def.StepByID(stepID)
	if !ok {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fieldsOf(step)
}

func (s *DefinitionFields) AllFields() []Field {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []Field
	for _, step := range s.def.Steps {
		all = append(all, s.fieldsOf(step)...)
	}
	return all
}

func (s *DefinitionFields) fieldsOf(step StepDefinition) []Field {
	fields := make([]Field, 0, len(step.Fields))
	for _, f := range step.Fields {
		live := Field{
			Name:     f.Name,
			Type:     f.Type,
			Required: f.Required,
			Min:      f.Min,
			Max:      f.Max,
		}
		switch f.Type {
		case "checkbox":
			live.Checked = s.checks[f.Name]
		case "radio":
			live.Value = f.Value
			live.Checked = f.Value != "" && s.radios[f.Name] == f.Value
		default:
			live.Value = s.values[f.Name]
		}
		fields = append(fields, live)
	}
	return fields
}

// Restore replaces all live values with the given persisted data. Fields not
// present in data are cleared.
func (s *DefinitionFields) Restore(data FieldData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.checks = make(map[string]bool)
	s.radios = make(map[string]string)
	for name, value := range data {
		def, ok := s.fieldDef(name)
		if !ok {
			continue
		}
		switch def.Type {
		case "checkbox":
			if b, ok := value.(bool); ok {
				s.checks[name] = b
			}
		case "radio":
			if v, ok := value.(string); ok {
				s.radios[name] = v
			}
		default:
			if v, ok := value.(string); ok {
				s.values[name] = v
			}
		}
	}
}
