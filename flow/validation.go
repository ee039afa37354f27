package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validator for field shape checks (email, url).
var fieldValidate = validator.New()

// ValidateStep checks the fields of a single step against their live values:
// required presence (checkbox checked, radio group "at least one checked",
// non-blank text), email shape, URL shape, and numeric min/max. Only the
// fields of the given step are checked. The first offending field is
// reported; nil means the step passes.
func ValidateStep(step StepDefinition, fields []Field) *ValidationError {
	checkedRadios := make(map[string]bool)
	for _, f := range fields {
		if f.Type == "radio" && f.Checked {
			checkedRadios[f.Name] = true
		}
	}

	seenRadio := make(map[string]bool)
	for _, f := range fields {
		if f.Required {
			switch f.Type {
			case "checkbox":
				if !f.Checked {
					return &ValidationError{Field: f.Name, Message: "must be checked"}
				}
			case "radio":
				if seenRadio[f.Name] {
					break
				}
				seenRadio[f.Name] = true
				if !checkedRadios[f.Name] {
					return &ValidationError{Field: f.Name, Message: "select an option"}
				}
			default:
				if strings.TrimSpace(f.Value) == "" {
					return &ValidationError{Field: f.Name, Message: "is required"}
				}
			}
		}

		if f.Value == "" {
			continue
		}

		switch f.Type {
		case "email":
			if err := fieldValidate.Var(f.Value, "email"); err != nil {
				return &ValidationError{Field: f.Name, Message: "must be a valid email address"}
			}
		case "url":
			if err := fieldValidate.Var(f.Value, "url"); err != nil {
				return &ValidationError{Field: f.Name, Message: "must be a valid URL"}
			}
		case "number":
			value, err := strconv.ParseFloat(f.Value, 64)
			if err != nil {
				return &ValidationError{Field: f.Name, Message: "must be a number"}
			}
			if f.Min != nil && value < *f.Min {
				return &ValidationError{Field: f.Name, Message: fmt.Sprintf("must be at least %v", *f.Min)}
			}
			if f.Max != nil && value > *f.Max {
				return &ValidationError{Field: f.Name, Message: fmt.Sprintf("must be at most %v", *f.Max)}
			}
		}
	}
	return nil
}
