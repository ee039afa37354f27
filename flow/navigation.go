package flow

// State is the navigation state of a session.
//
//	AtStep --advance/retreat/jump--> AtStep
//	AtStep (last) --advance--> SubmitReady
//	SubmitReady --submit--> Submitting --> Submitted (terminal)
//	Submitting --failure--> SubmitFailed --submit--> Submitting (retry)
type State int

const (
	StateAtStep State = iota
	StateValidating
	StateSubmitReady
	StateSubmitting
	StateSubmitted
	StateSubmitFailed
)

func (s State) String() string {
	switch s {
	case StateAtStep:
		return "at_step"
	case StateValidating:
		return "validating"
	case StateSubmitReady:
		return "submit_ready"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateSubmitFailed:
		return "submit_failed"
	default:
		return "unknown"
	}
}
