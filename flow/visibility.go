package flow

// VisibleSteps computes the ordered subsequence of steps currently eligible
// for display. A step is excluded when it carries a variant label different
// from the active variant, or when its show/hide conditions exclude it.
// Declared order is preserved; the computation is a full pass every time,
// never an incremental patch, and is idempotent for fixed inputs.
func VisibleSteps(steps []StepDefinition, data FieldData, activeVariant string) []StepDefinition {
	visible := make([]StepDefinition, 0, len(steps))
	for _, s := range steps {
		if s.Variant != "" && s.Variant != activeVariant {
			continue
		}
		if !stepVisible(s, data) {
			continue
		}
		visible = append(visible, s)
	}
	return visible
}

// ResolveIndex maps the previous position into a freshly recomputed visible
// sequence. Resolution order: the previous step identifier if still visible,
// else the previous numeric index if still in bounds, else the last valid
// index. An empty sequence resolves to 0; the caller must treat that case as
// an error condition of its own.
func ResolveIndex(visible []StepDefinition, previousID string, previousIndex int) int {
	if previousID != "" {
		for i, s := range visible {
			if s.ID == previousID {
				return i
			}
		}
	}
	if previousIndex >= 0 && previousIndex < len(visible) {
		return previousIndex
	}
	if len(visible) == 0 {
		return 0
	}
	if previousIndex < 0 {
		return 0
	}
	return len(visible) - 1
}
