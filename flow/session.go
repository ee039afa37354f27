package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"formflow/storage"
)

// Config holds the tunable behavior of a session. Zero values mean "use the
// default"; defaults are applied and validated with the usual
// defaults-then-validate pipeline.
type Config struct {
	AutoSaveDelay    time.Duration `default:"500ms" validate:"gte=0"`
	AutoAdvanceDelay time.Duration `default:"100ms" validate:"gte=0"`
	ProgressExpiry   time.Duration `default:"24h" validate:"gt=0"`
	SubmitTimeout    time.Duration `default:"30s" validate:"gt=0"`

	// ConfirmRestore asks the Confirm collaborator before restoring a
	// snapshot. Declining deletes the snapshot.
	ConfirmRestore bool
	Confirm        func() bool

	// DisableSave turns off progress persistence; the session runs purely
	// in-memory.
	DisableSave bool

	// DisableURL turns off StepChanged notifications to the HistoryUpdater.
	DisableURL bool

	// StorageKey overrides the derived progress slot key.
	StorageKey string
	// PagePath namespaces the derived key so the same form on different
	// pages does not collide.
	PagePath string

	// Transport, when set, is used for submission regardless of anything
	// else. Otherwise a declared webhook URL wins over OnSubmit; with
	// neither, submission is a logged no-op.
	Transport Transport
	OnSubmit  func(ctx context.Context, payload map[string]any) error
}

var configValidate = validator.New()

func prepareConfig(cfg *Config) error {
	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("failed to apply config defaults: %w", err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Env collects the external collaborators of a session. Every field is
// optional except that a nil Fields falls back to a DefinitionFields built
// from the form definition.
type Env struct {
	Fields  FieldSource
	Render  Renderer
	History HistoryUpdater
	Track   Tracker
	Cookies CookieJar
	Store   storage.KVStore
	Logger  *slog.Logger
	Clock   func() time.Time
	Rand    func() float64 // uniform in [0,1)
}

func (e *Env) fillDefaults(def *Definition) {
	if e.Store == nil {
		e.Store = storage.NewMemoryStore()
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Clock == nil {
		e.Clock = time.Now
	}
	if e.Rand == nil {
		e.Rand = rand.Float64
	}
	if e.Fields == nil {
		e.Fields = NewDefinitionFields(def)
	}
	if e.Render == nil {
		e.Render = nopRenderer{}
	}
	if e.History == nil {
		e.History = nopHistory{}
	}
	if e.Track == nil {
		e.Track = LogTracker{Logger: e.Logger}
	}
}

// Session is the top-level form flow object: it owns the field data map,
// recomputes step visibility on every change, sequences navigation, and
// persists progress. All methods are safe for concurrent use, though the
// logical model is a single event loop.
type Session struct {
	mu sync.Mutex

	id  string
	def *Definition
	cfg Config
	env Env

	data    FieldData
	visible []StepDefinition
	state   State
	index   int

	experiment *Experiment
	registry   *ExperimentRegistry
	variants   *VariantStore
	progress   *ProgressStore
	transport  Transport

	autosave    debouncer
	autoAdvance debouncer

	initialized bool
	destroyed   bool
}

// NewSession wires a session for the given definition. It fails on startup
// configuration errors (no steps, duplicate identifiers, invalid config).
func NewSession(def *Definition, cfg Config, env Env) (*Session, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := prepareConfig(&cfg); err != nil {
		return nil, err
	}
	env.fillDefaults(def)

	formID := def.ID
	if formID == "" {
		formID = "form_" + uuid.NewString()[:8]
	}
	key := ProgressKey(cfg.StorageKey, formID, cfg.PagePath)

	variants := NewVariantStore(env.Cookies, env.Store, env.Clock, env.Logger)
	s := &Session{
		id:        uuid.NewString(),
		def:       def,
		cfg:       cfg,
		env:       env,
		data:      FieldData{},
		variants:  variants,
		registry:  NewExperimentRegistry(variants, env.Logger),
		progress:  NewProgressStore(key, env.Store, cfg.ProgressExpiry, env.Clock, env.Logger),
		transport: selectTransport(cfg, def, env.Logger),
	}
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Registry exposes variant get/set/reset for embedding pages.
func (s *Session) Registry() *ExperimentRegistry { return s.registry }

// Init resolves the experiment variant, restores persisted progress, and
// lands the session on its starting step. The query carries the request-level
// surface: "variant" forces an assignment, "reset" clears progress; both are
// consumed and stripped before the query is handed back to the
// HistoryUpdater.
func (s *Session) Init(query url.Values) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}

	if q.Get("reset") == "true" {
		s.env.Logger.Info("progress reset requested", "form", s.def.ID)
		s.progress.Clear()
		q.Del("reset")
	}

	s.initExperiment(q)

	restoredID := ""
	if snap, ok := s.restoreProgress(); ok {
		s.data = snap.Data
		if s.data == nil {
			s.data = FieldData{}
		}
		restoredID = snap.ActiveStepID
		s.env.Fields.Restore(s.data)
	}

	s.visible = VisibleSteps(s.def.Steps, s.data, s.variantLabel())
	if len(s.visible) == 0 {
		s.env.Logger.Error("no steps visible at startup", "form", s.def.ID)
		return ErrNoVisibleSteps
	}
	s.index = ResolveIndex(s.visible, restoredID, 0)
	s.state = StateAtStep

	s.env.History.ReplaceQuery(q)
	s.render()
	s.notifyStepChanged()
	s.trackStepViewed()

	s.initialized = true
	return nil
}

// initExperiment resolves the active variant: request override > stored
// assignment > fresh draw. Overrides and fresh draws are re-saved. An
// enabled experiment with no discovered labels disables the subsystem.
func (s *Session) initExperiment(q url.Values) {
	test := s.def.ABTest
	if test == "" {
		return
	}
	labels := s.def.VariantLabels()
	if len(labels) == 0 {
		s.env.Logger.Warn("experiment disabled: no variant steps declared", "test", test)
		return
	}

	var assigned string
	if override := q.Get("variant"); override != "" {
		assigned = strings.ToUpper(override)
		q.Del("variant")
		s.variants.Save(test, assigned)
		s.env.Logger.Info("experiment variant forced by query", "test", test, "variant", assigned)
	} else if stored, ok := s.variants.Load(test); ok {
		assigned = stored
	} else {
		assigned = AssignVariant(labels, s.def.ABSplit, s.env.Rand()*100)
		s.variants.Save(test, assigned)
		s.env.Logger.Info("experiment variant assigned", "test", test, "variant", assigned)
	}

	s.experiment = &Experiment{TestName: test, Labels: labels, Assigned: assigned}
	s.track(EventExperimentViewed, map[string]any{
		"testName": test,
		"variant":  assigned,
	})
}

// restoreProgress loads the stored snapshot and rejects it on variant
// mismatch between the stored assignment and the freshly resolved one.
func (s *Session) restoreProgress() (ProgressSnapshot, bool) {
	if s.cfg.DisableSave {
		return ProgressSnapshot{}, false
	}
	var confirm func() bool
	if s.cfg.ConfirmRestore && s.cfg.Confirm != nil {
		confirm = s.cfg.Confirm
	}
	snap, ok := s.progress.Load(confirm)
	if !ok {
		return ProgressSnapshot{}, false
	}
	if s.experiment.Active() && snap.Variant != s.experiment.Assigned {
		s.env.Logger.Info("discarding snapshot from a different variant",
			"stored", snap.Variant, "assigned", s.experiment.Assigned)
		s.progress.Clear()
		return ProgressSnapshot{}, false
	}
	return snap, true
}

func (s *Session) variantLabel() string {
	if s.experiment.Active() {
		return s.experiment.Assigned
	}
	return ""
}

// Variant returns the active experiment variant label, if any.
func (s *Session) Variant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variantLabel()
}

// State returns the current navigation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StepIndex returns the current index into the visible sequence.
func (s *Session) StepIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// CurrentStep returns the currently active step definition.
func (s *Session) CurrentStep() (StepDefinition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < 0 || s.index >= len(s.visible) {
		return StepDefinition{}, false
	}
	return s.visible[s.index], true
}

// VisibleSteps returns a copy of the current visible sequence.
func (s *Session) VisibleSteps() []StepDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StepDefinition(nil), s.visible...)
}

// Data returns a copy of the captured field data.
func (s *Session) Data() FieldData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// SetData merges values into the field data map, pushes them back into the
// fields, recomputes visibility and persists.
func (s *Session) SetData(values FieldData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = v
	}
	s.env.Fields.Restore(s.data)
	s.recompute()
	s.persist()
}

// FieldChanged is the input-event path: capture everything, recompute
// visibility, schedule the debounced autosave, and arm auto-advance when the
// changed field requests it.
func (s *Session) FieldChanged(name string) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.captureData()
	s.recompute()

	if !s.cfg.DisableSave {
		s.autosave.schedule(s.cfg.AutoSaveDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.destroyed {
				s.persist()
			}
		})
	}

	def, onStep := s.autoAdvanceField(name)
	stepID := ""
	if len(s.visible) > 0 && s.index < len(s.visible) {
		stepID = s.visible[s.index].ID
	}
	s.mu.Unlock()

	if onStep {
		s.autoAdvance.schedule(s.cfg.AutoAdvanceDelay, func() {
			s.track(EventAutoAdvance, map[string]any{
				"field":  def.Name,
				"stepId": stepID,
			})
			if err := s.Advance(); err != nil {
				s.env.Logger.Debug("auto-advance blocked by validation", "field", def.Name, "error", err)
			}
		})
	}
}

// autoAdvanceField reports whether the named field triggers auto-advance.
// Only radio and select fields qualify.
func (s *Session) autoAdvanceField(name string) (FieldDefinition, bool) {
	for _, step := range s.def.Steps {
		for _, f := range step.Fields {
			if f.Name != name || !f.AutoAdvance {
				continue
			}
			if f.Type == "radio" || f.Type == "select" {
				return f, true
			}
		}
	}
	return FieldDefinition{}, false
}

// Advance validates the current step, captures data, recomputes visibility
// and moves forward — to the next visible step, or to SubmitReady past the
// last one. A *ValidationError keeps the session on the current step with
// persisted data untouched.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if s.state != StateAtStep {
		return nil
	}
	if len(s.visible) == 0 {
		s.env.Logger.Warn("advance with no visible steps", "form", s.def.ID)
		return nil
	}

	current := s.visible[s.index]
	s.state = StateValidating
	if verr := ValidateStep(current, s.env.Fields.StepFields(current.ID)); verr != nil {
		s.state = StateAtStep
		return verr
	}

	s.captureData()
	s.recompute()
	resolved := ResolveIndex(s.visible, current.ID, s.index)

	if resolved+1 < len(s.visible) {
		s.index = resolved + 1
		s.state = StateAtStep
		s.persist()
		s.render()
		s.notifyStepChanged()
		s.trackStepViewed()
		return nil
	}

	s.index = resolved
	s.state = StateSubmitReady
	s.persist()
	s.render()
	return nil
}

// Retreat moves one step back without re-validating the step being left.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if s.state == StateSubmitReady || s.state == StateSubmitFailed {
		// Stepping back from the submit screen re-opens the last step.
		s.state = StateAtStep
		s.render()
		return nil
	}
	if s.state != StateAtStep || s.index == 0 {
		return nil
	}

	from := s.visible[s.index].ID
	s.index--
	to := s.visible[s.index].ID

	s.persist()
	s.render()
	s.notifyStepChanged()
	s.track(EventStepBack, map[string]any{
		"fromStep": from,
		"toStep":   to,
	})
	return nil
}

// Jump moves directly to a visible step index. Validation of skipped steps
// is bypassed; this is a caller-privileged operation.
func (s *Session) Jump(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if target < 0 || target >= len(s.visible) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidStepIndex, target, len(s.visible))
	}

	s.index = target
	s.state = StateAtStep
	s.persist()
	s.render()
	s.notifyStepChanged()
	s.trackStepViewed()
	return nil
}

// Submit validates the final visible step exactly as Advance would, then
// delegates to the submission transport. Success clears persisted progress;
// failure preserves everything for retry. Re-entrant submits are rejected
// while a submission is in flight.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return ErrSubmitInProgress
	case StateSubmitted:
		s.mu.Unlock()
		return nil
	case StateSubmitReady, StateSubmitFailed:
	case StateAtStep:
		if s.index != len(s.visible)-1 {
			s.mu.Unlock()
			return ErrNotSubmittable
		}
	default:
		s.mu.Unlock()
		return ErrNotSubmittable
	}
	if len(s.visible) == 0 {
		s.mu.Unlock()
		return ErrNotSubmittable
	}

	final := s.visible[len(s.visible)-1]
	if verr := ValidateStep(final, s.env.Fields.StepFields(final.ID)); verr != nil {
		s.mu.Unlock()
		return verr
	}

	s.captureData()
	s.recompute()
	payload := s.buildPayload()
	s.state = StateSubmitting
	s.mu.Unlock()

	err := s.transport.Submit(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateSubmitFailed
		s.env.Logger.Error("submission failed", "form", s.def.ID, "error", err)
		return err
	}

	s.state = StateSubmitted
	s.progress.Clear()
	s.track(EventFormSubmitted, map[string]any{
		"formId":  s.def.ID,
		"variant": s.variantLabel(),
	})
	s.render()
	return nil
}

// Reset clears persisted progress and captured data and returns to the first
// visible step.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosave.cancel()
	s.autoAdvance.cancel()
	s.progress.Clear()
	s.data = FieldData{}
	s.env.Fields.Restore(s.data)
	s.recompute()
	s.index = 0
	s.state = StateAtStep
	s.render()
	s.notifyStepChanged()
}

// Export serializes the captured data as "json" or "csv".
func (s *Session) Export(format string) (string, error) {
	data := s.Data()
	switch format {
	case "json", "":
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("export failed: %w", err)
		}
		return string(raw), nil
	case "csv":
		names := make([]string, 0, len(data))
		for name := range data {
			names = append(names, name)
		}
		sort.Strings(names)
		values := make([]string, len(names))
		for i, name := range names {
			values[i] = data.String(name)
		}
		return strings.Join(names, ",") + "\n" + strings.Join(values, ","), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// Destroy cancels pending timers and detaches the session. Further
// operations are no-ops.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosave.cancel()
	s.autoAdvance.cancel()
	s.destroyed = true
	s.initialized = false
}

// captureData pulls every live field value into the data map: the checked
// option for radio groups (absent when none is checked), the checked state
// for checkboxes, the raw value for everything else.
func (s *Session) captureData() {
	for _, f := range s.env.Fields.AllFields() {
		switch f.Type {
		case "radio":
			if f.Checked {
				s.data[f.Name] = f.Value
			}
		case "checkbox":
			s.data[f.Name] = f.Checked
		case "submit", "hidden":
		default:
			s.data[f.Name] = f.Value
		}
	}
}

// recompute rebuilds the visible sequence and clamps the index if the
// sequence shrank below it.
func (s *Session) recompute() {
	s.visible = VisibleSteps(s.def.Steps, s.data, s.variantLabel())
	if s.index >= len(s.visible) {
		s.index = len(s.visible) - 1
		if s.index < 0 {
			s.index = 0
		}
	}
}

// persist writes the current snapshot; storage failures are logged inside
// the store and never block navigation.
func (s *Session) persist() {
	if s.cfg.DisableSave {
		return
	}
	snap := ProgressSnapshot{
		Data:    s.data.Clone(),
		Variant: s.variantLabel(),
	}
	if s.index < len(s.visible) {
		snap.ActiveStepID = s.visible[s.index].ID
	}
	s.progress.Save(snap)
}

func (s *Session) buildPayload() map[string]any {
	payload := make(map[string]any, len(s.data)+1)
	for k, v := range s.data {
		payload[k] = v
	}
	payload["_meta"] = SubmissionMeta{
		Variant:   s.variantLabel(),
		Timestamp: s.env.Clock().UnixMilli(),
		FormID:    s.def.ID,
	}
	return payload
}

func (s *Session) currentView() StepView {
	view := StepView{
		Index:        s.index,
		TotalVisible: len(s.visible),
		Variant:      s.variantLabel(),
		State:        s.state,
	}
	if s.index < len(s.visible) {
		step := s.visible[s.index]
		view.Step = &step
		view.IsLast = s.index == len(s.visible)-1
		view.Progress = float64(s.index+1) / float64(len(s.visible)) * 100
	}
	return view
}

func (s *Session) render() {
	s.env.Render.Render(s.currentView())
}

func (s *Session) notifyStepChanged() {
	if s.cfg.DisableURL || s.index >= len(s.visible) {
		return
	}
	s.env.History.StepChanged(StepChange{
		StepID:       s.visible[s.index].ID,
		StepIndex:    s.index,
		TotalVisible: len(s.visible),
		Variant:      s.variantLabel(),
	})
}

func (s *Session) trackStepViewed() {
	if s.index >= len(s.visible) {
		return
	}
	s.track(EventStepViewed, map[string]any{
		"stepId":     s.visible[s.index].ID,
		"stepIndex":  s.index,
		"totalSteps": len(s.visible),
		"variant":    s.variantLabel(),
	})
}

// track fires an event at the sink. Fire-and-forget: the sink must not block
// and cannot fail a transition.
func (s *Session) track(event string, payload map[string]any) {
	s.env.Track.Track(event, payload)
}
