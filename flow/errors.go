package flow

import (
	"errors"
	"fmt"
)

// Startup configuration errors. Per the failure policy, ErrNoSteps and
// ErrDuplicateStep abort session initialization; a misconfigured experiment
// only disables the experiment subsystem.
var (
	ErrNoSteps       = errors.New("no steps declared")
	ErrDuplicateStep = errors.New("duplicate step identifier")

	// ErrNoVisibleSteps is returned when conditions and variant gating leave
	// no step visible at initialization.
	ErrNoVisibleSteps = errors.New("no visible steps")

	// ErrSubmitInProgress guards against re-entrant submission.
	ErrSubmitInProgress = errors.New("submission already in progress")

	// ErrInvalidStepIndex is returned by Jump for an out-of-bounds target.
	ErrInvalidStepIndex = errors.New("step index out of bounds")

	// ErrNotSubmittable is returned by Submit outside the final step.
	ErrNotSubmittable = errors.New("form is not ready for submission")
)

// ValidationError reports the first field of a step that failed validation.
// It blocks the current transition and is surfaced to the end user; all other
// error classes stay internal.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}
