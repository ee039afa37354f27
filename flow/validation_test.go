package flow

import "testing"

func f64(v float64) *float64 { return &v }

func TestValidateStep_RequiredText(t *testing.T) {
	step := StepDefinition{ID: "1"}
	fields := []Field{{Name: "email", Type: "email", Required: true, Value: "   "}}

	verr := ValidateStep(step, fields)
	if verr == nil || verr.Field != "email" {
		t.Errorf("ValidateStep = %v, want error on email", verr)
	}
}

func TestValidateStep_RequiredCheckbox(t *testing.T) {
	step := StepDefinition{ID: "1"}

	if verr := ValidateStep(step, []Field{{Name: "terms", Type: "checkbox", Required: true}}); verr == nil {
		t.Error("unchecked required checkbox should fail")
	}
	if verr := ValidateStep(step, []Field{{Name: "terms", Type: "checkbox", Required: true, Checked: true}}); verr != nil {
		t.Errorf("checked required checkbox failed: %v", verr)
	}
}

func TestValidateStep_RadioGroupAtLeastOneChecked(t *testing.T) {
	step := StepDefinition{ID: "1"}
	group := []Field{
		{Name: "plan", Type: "radio", Required: true, Value: "free"},
		{Name: "plan", Type: "radio", Required: true, Value: "pro"},
	}

	if verr := ValidateStep(step, group); verr == nil || verr.Field != "plan" {
		t.Errorf("unchecked radio group = %v, want error on plan", verr)
	}

	group[1].Checked = true
	if verr := ValidateStep(step, group); verr != nil {
		t.Errorf("checked radio group failed: %v", verr)
	}
}

func TestValidateStep_EmailShape(t *testing.T) {
	step := StepDefinition{ID: "1"}

	if verr := ValidateStep(step, []Field{{Name: "email", Type: "email", Value: "not-an-email"}}); verr == nil {
		t.Error("malformed email should fail")
	}
	if verr := ValidateStep(step, []Field{{Name: "email", Type: "email", Value: "a@b.com"}}); verr != nil {
		t.Errorf("valid email failed: %v", verr)
	}
	// Empty optional email passes: format checks only apply to entered values.
	if verr := ValidateStep(step, []Field{{Name: "email", Type: "email", Value: ""}}); verr != nil {
		t.Errorf("empty optional email failed: %v", verr)
	}
}

func TestValidateStep_URLShape(t *testing.T) {
	step := StepDefinition{ID: "1"}

	if verr := ValidateStep(step, []Field{{Name: "site", Type: "url", Value: "not a url"}}); verr == nil {
		t.Error("malformed URL should fail")
	}
	if verr := ValidateStep(step, []Field{{Name: "site", Type: "url", Value: "https://example.com"}}); verr != nil {
		t.Errorf("valid URL failed: %v", verr)
	}
}

func TestValidateStep_NumericRange(t *testing.T) {
	step := StepDefinition{ID: "1"}
	field := Field{Name: "seats", Type: "number", Min: f64(1), Max: f64(500)}

	tests := []struct {
		value string
		valid bool
	}{
		{"0", false},
		{"1", true},
		{"500", true},
		{"501", false},
		{"abc", false},
	}
	for _, tt := range tests {
		field.Value = tt.value
		verr := ValidateStep(step, []Field{field})
		if (verr == nil) != tt.valid {
			t.Errorf("seats=%q: verr = %v, want valid=%v", tt.value, verr, tt.valid)
		}
	}
}

func TestValidateStep_FirstOffendingFieldReported(t *testing.T) {
	step := StepDefinition{ID: "1"}
	fields := []Field{
		{Name: "first", Type: "text", Required: true},
		{Name: "second", Type: "text", Required: true},
	}

	verr := ValidateStep(step, fields)
	if verr == nil || verr.Field != "first" {
		t.Errorf("ValidateStep = %v, want error on first", verr)
	}
}
