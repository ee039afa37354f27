package flow

import "strings"

// EvaluateCondition evaluates a flat condition expression against captured
// field data. An expression is a comma-separated list of "field=value"
// clauses; the result is true only when every clause matches (logical AND).
// A clause matches when the stringified value for the field equals the
// expected value exactly. Malformed clauses (no "=") never match.
//
// Both show-if and hide-if expressions use AND across clauses; hide-if means
// "hide when all clauses match".
func EvaluateCondition(expression string, data FieldData) bool {
	if expression == "" {
		return false
	}
	for _, clause := range strings.Split(expression, ",") {
		field, want, ok := strings.Cut(strings.TrimSpace(clause), "=")
		if !ok {
			return false
		}
		field = strings.TrimSpace(field)
		want = strings.TrimSpace(want)
		if data.String(field) != want {
			return false
		}
	}
	return true
}

// stepVisible applies the show/hide conditions of a single step. Hide wins
// when both match.
func stepVisible(step StepDefinition, data FieldData) bool {
	if step.ShowIf != "" && !EvaluateCondition(step.ShowIf, data) {
		return false
	}
	if step.HideIf != "" && EvaluateCondition(step.HideIf, data) {
		return false
	}
	return true
}
