package flow

import (
	"encoding/json"
	"log/slog"
	"time"

	"formflow/storage"
)

const (
	variantKeyPrefix     = "formflow_ab_"
	variantCookieMaxAge  = 30 * 24 * time.Hour
	variantSchemaVersion = "1"
)

// CookieJar is the durable cookie-like store of the embedding environment.
// The server embodiment backs it with real HTTP cookies.
type CookieJar interface {
	Get(name string) (value string, ok bool)
	Set(name, value string, maxAge time.Duration)
	Delete(name string)
}

// storedVariant is the persistent-store record for an assignment. The cookie
// stores the bare label as its value.
type storedVariant struct {
	Label      string `json:"label"`
	CapturedAt int64  `json:"capturedAtEpochMillis"`
}

// VariantStore persists experiment assignments redundantly: a cookie with a
// 30-day expiry plus a persistent key-value slot. Both writes are
// best-effort; a failure of either is logged and does not roll back the
// other.
type VariantStore struct {
	cookies CookieJar
	kv      storage.KVStore
	clock   func() time.Time
	logger  *slog.Logger
}

func NewVariantStore(cookies CookieJar, kv storage.KVStore, clock func() time.Time, logger *slog.Logger) *VariantStore {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VariantStore{cookies: cookies, kv: kv, clock: clock, logger: logger}
}

func variantKey(testName string) string {
	return variantKeyPrefix + testName
}

// Save writes the assignment to both backing stores.
func (s *VariantStore) Save(testName, label string) {
	key := variantKey(testName)

	if s.cookies != nil {
		s.cookies.Set(key, label, variantCookieMaxAge)
	}

	record := storedVariant{Label: label, CapturedAt: s.clock().UnixMilli()}
	raw, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("variant store: marshal failed", "test", testName, "error", err)
		return
	}
	if err := s.kv.Set(key, string(raw)); err != nil {
		s.logger.Error("variant store: persistent write failed", "test", testName, "error", err)
	}
}

// Load reads the cookie first and falls back to the persistent store. It
// returns false when neither holds a parseable value.
func (s *VariantStore) Load(testName string) (string, bool) {
	key := variantKey(testName)

	if s.cookies != nil {
		if label, ok := s.cookies.Get(key); ok && label != "" {
			return label, true
		}
	}

	raw, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Error("variant store: persistent read failed", "test", testName, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}

	var record storedVariant
	if err := json.Unmarshal([]byte(raw), &record); err != nil || record.Label == "" {
		s.logger.Warn("variant store: discarding unparsable record", "test", testName, "error", err)
		return "", false
	}
	return record.Label, true
}

// Clear deletes the assignment from both stores, best-effort.
func (s *VariantStore) Clear(testName string) {
	key := variantKey(testName)
	if s.cookies != nil {
		s.cookies.Delete(key)
	}
	if err := s.kv.Delete(key); err != nil {
		s.logger.Error("variant store: persistent delete failed", "test", testName, "error", err)
	}
}
