package flow

import "log/slog"

// AssignVariant picks one label from labels given split weights and a single
// uniform draw in [0,100). Weights are percentages in label order; missing
// entries are filled with an equal share (100/len(labels)) and the padded
// vector is renormalized so it sums to exactly 100. The first label whose
// cumulative weight exceeds the draw wins; if floating-point rounding leaves
// no match, the first label is returned.
//
// The caller must not invoke this with zero labels: an experiment with no
// discovered variants is disabled, not assigned.
func AssignVariant(labels []string, weights []float64, draw float64) string {
	if len(labels) == 0 {
		return ""
	}

	normalized := normalizeWeights(weights, len(labels))

	cumulative := 0.0
	for i, w := range normalized {
		cumulative += w
		if draw < cumulative {
			return labels[i]
		}
	}
	return labels[0]
}

// normalizeWeights pads weights to n entries with equal shares and rescales
// the result proportionally so the total is exactly 100.
func normalizeWeights(weights []float64, n int) []float64 {
	out := make([]float64, n)
	equal := 100.0 / float64(n)

	total := 0.0
	for i := range out {
		w := equal
		if i < len(weights) && weights[i] > 0 {
			w = weights[i]
		}
		out[i] = w
		total += w
	}
	if total <= 0 {
		for i := range out {
			out[i] = equal
		}
		return out
	}
	if total != 100 {
		scale := 100 / total
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}

// Experiment holds the discovered variant labels and the assigned label for
// one named A/B test. The assignment is made at most once per session and is
// immutable afterwards, short of an explicit override or reset.
type Experiment struct {
	TestName string
	Labels   []string
	Assigned string
}

// Active reports whether the experiment has a usable assignment.
func (e *Experiment) Active() bool {
	return e != nil && e.Assigned != ""
}

// ExperimentRegistry exposes variant get/set/reset as methods on an object
// with session lifetime, backed by the dual variant store. It replaces the
// process-wide static helpers of earlier designs.
type ExperimentRegistry struct {
	store  *VariantStore
	logger *slog.Logger
}

func NewExperimentRegistry(store *VariantStore, logger *slog.Logger) *ExperimentRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExperimentRegistry{store: store, logger: logger}
}

// Variant returns the stored assignment for a test, if any.
func (r *ExperimentRegistry) Variant(testName string) (string, bool) {
	return r.store.Load(testName)
}

// SetVariant overrides the stored assignment. The override is durable: both
// backing stores are rewritten.
func (r *ExperimentRegistry) SetVariant(testName, label string) {
	r.logger.Info("experiment variant override", "test", testName, "variant", label)
	r.store.Save(testName, label)
}

// ResetVariant deletes the stored assignment so the next session redraws.
func (r *ExperimentRegistry) ResetVariant(testName string) {
	r.logger.Info("experiment variant reset", "test", testName)
	r.store.Clear(testName)
}
