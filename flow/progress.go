package flow

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"

	"formflow/storage"
)

const (
	// SchemaVersion tags every written snapshot.
	SchemaVersion = "3.1.0"

	progressKeyPrefix     = "formflow_"
	defaultProgressExpiry = 24 * time.Hour
)

// acceptedSchemaPrefixes lists the readable snapshot generations: the current
// one plus the previous two. Anything else is discarded whole, never
// partially trusted.
var acceptedSchemaPrefixes = []string{"3.", "2."}

// ProgressSnapshot is the durable record of in-progress answers and
// position, written on every successful navigation and on debounced input.
type ProgressSnapshot struct {
	ActiveStepID  string    `json:"activeStepIdentifier,omitempty"`
	Data          FieldData `json:"data"`
	CapturedAt    int64     `json:"capturedAtEpochMillis"`
	SchemaVersion string    `json:"schemaVersion"`
	Variant       string    `json:"assignedVariantLabel,omitempty"`
}

// ProgressKey derives the storage slot name: an explicit configured key wins,
// else the form id namespaced by the page path so the same form on different
// pages does not collide.
func ProgressKey(customKey, formID, pagePath string) string {
	if customKey != "" {
		return progressKeyPrefix + customKey
	}
	path := strings.ReplaceAll(strings.Trim(pagePath, "/"), "/", "_")
	if path == "" {
		path = "home"
	}
	return progressKeyPrefix + formID + "_" + path
}

// ProgressStore persists ProgressSnapshots to a single key-value slot.
// Write and delete failures are logged and swallowed: the session keeps
// operating in-memory and the end user never sees them.
type ProgressStore struct {
	key    string
	kv     storage.KVStore
	expiry time.Duration
	clock  func() time.Time
	logger *slog.Logger
}

func NewProgressStore(key string, kv storage.KVStore, expiry time.Duration, clock func() time.Time, logger *slog.Logger) *ProgressStore {
	if expiry <= 0 {
		expiry = defaultProgressExpiry
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressStore{key: key, kv: kv, expiry: expiry, clock: clock, logger: logger}
}

// Key returns the slot name this store writes to.
func (s *ProgressStore) Key() string { return s.key }

// Save serializes and writes the snapshot, stamping the schema version and
// capture time.
func (s *ProgressStore) Save(snap ProgressSnapshot) {
	snap.SchemaVersion = SchemaVersion
	if snap.CapturedAt == 0 {
		snap.CapturedAt = s.clock().UnixMilli()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("progress store: marshal failed", "key", s.key, "error", err)
		return
	}
	if err := s.kv.Set(s.key, string(raw)); err != nil {
		s.logger.Error("progress store: write failed", "key", s.key, "error", err)
	}
}

// Load reads and validates the stored snapshot. It returns false — deleting
// the slot — when the raw value is missing or unparsable, the snapshot is
// expired, the schema version is not accepted, the data field is not an
// object, or the confirm callback (when non-nil) declines the restore.
//
// The expiry boundary is exclusive: a snapshot captured exactly expiry ago is
// already expired.
func (s *ProgressStore) Load(confirm func() bool) (ProgressSnapshot, bool) {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Error("progress store: read failed", "key", s.key, "error", err)
		return ProgressSnapshot{}, false
	}
	if !ok {
		return ProgressSnapshot{}, false
	}

	parsed, err := gabs.ParseJSON([]byte(raw))
	if err != nil {
		s.logger.Warn("progress store: discarding unparsable snapshot", "key", s.key, "error", err)
		s.Clear()
		return ProgressSnapshot{}, false
	}

	version, _ := parsed.Path("schemaVersion").Data().(string)
	if !schemaVersionAccepted(version) {
		s.logger.Warn("progress store: discarding snapshot with unknown schema version",
			"key", s.key, "version", version)
		s.Clear()
		return ProgressSnapshot{}, false
	}

	capturedAt, ok := numberAt(parsed, "capturedAtEpochMillis")
	if !ok {
		s.logger.Warn("progress store: discarding snapshot without capture time", "key", s.key)
		s.Clear()
		return ProgressSnapshot{}, false
	}
	age := s.clock().Sub(time.UnixMilli(capturedAt))
	if age >= s.expiry {
		s.logger.Info("progress store: discarding expired snapshot", "key", s.key, "age", age)
		s.Clear()
		return ProgressSnapshot{}, false
	}

	if _, ok := parsed.Path("data").Data().(map[string]any); !ok {
		s.logger.Warn("progress store: discarding snapshot with malformed data", "key", s.key)
		s.Clear()
		return ProgressSnapshot{}, false
	}

	if confirm != nil && !confirm() {
		s.logger.Info("progress store: restore declined", "key", s.key)
		s.Clear()
		return ProgressSnapshot{}, false
	}

	var snap ProgressSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Warn("progress store: discarding undecodable snapshot", "key", s.key, "error", err)
		s.Clear()
		return ProgressSnapshot{}, false
	}
	return snap, true
}

// Clear deletes the slot. Errors are logged, never surfaced.
func (s *ProgressStore) Clear() {
	if err := s.kv.Delete(s.key); err != nil {
		s.logger.Error("progress store: delete failed", "key", s.key, "error", err)
	}
}

func schemaVersionAccepted(version string) bool {
	for _, prefix := range acceptedSchemaPrefixes {
		if strings.HasPrefix(version, prefix) {
			return true
		}
	}
	return false
}

func numberAt(c *gabs.Container, path string) (int64, bool) {
	v, ok := c.Path(path).Data().(float64)
	if !ok {
		return 0, false
	}
	return int64(v), true
}
