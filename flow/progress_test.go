package flow

import (
	"encoding/json"
	"testing"
	"time"

	"formflow/storage"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testProgressStore(kv storage.KVStore) *ProgressStore {
	return NewProgressStore("formflow_test", kv, 24*time.Hour, fixedClock(testNow), quietLogger())
}

func TestProgressStore_RoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := testProgressStore(kv)

	s.Save(ProgressSnapshot{
		ActiveStepID: "2",
		Data:         FieldData{"email": "a@b.com", "terms": true},
	})

	snap, ok := s.Load(nil)
	if !ok {
		t.Fatal("Load failed after Save")
	}
	if snap.ActiveStepID != "2" {
		t.Errorf("ActiveStepID = %q, want 2", snap.ActiveStepID)
	}
	if snap.Data.String("email") != "a@b.com" {
		t.Errorf("email = %q, want a@b.com", snap.Data.String("email"))
	}
	if snap.Data.String("terms") != "true" {
		t.Errorf("terms = %q, want true", snap.Data.String("terms"))
	}
	if snap.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", snap.SchemaVersion, SchemaVersion)
	}
}

func TestProgressStore_MissingSlot(t *testing.T) {
	s := testProgressStore(storage.NewMemoryStore())

	if _, ok := s.Load(nil); ok {
		t.Error("Load succeeded on empty slot")
	}
}

func TestProgressStore_ExpiryBoundaryIsExclusive(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"well within window", time.Hour, true},
		{"just inside", 24*time.Hour - time.Millisecond, true},
		{"exactly at boundary", 24 * time.Hour, false},
		{"past boundary", 25 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			s := testProgressStore(kv)
			s.Save(ProgressSnapshot{
				ActiveStepID: "1",
				Data:         FieldData{},
				CapturedAt:   testNow.Add(-tt.age).UnixMilli(),
			})

			_, ok := s.Load(nil)
			if ok != tt.want {
				t.Errorf("Load with age %v = %v, want %v", tt.age, ok, tt.want)
			}
			if !tt.want {
				if _, exists, _ := kv.Get("formflow_test"); exists {
					t.Error("expired snapshot not deleted")
				}
			}
		})
	}
}

func TestProgressStore_RejectsUnknownSchemaVersion(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := testProgressStore(kv)

	raw, _ := json.Marshal(ProgressSnapshot{
		ActiveStepID:  "1",
		Data:          FieldData{},
		CapturedAt:    testNow.UnixMilli(),
		SchemaVersion: "1.0.0",
	})
	kv.Set("formflow_test", string(raw))

	if _, ok := s.Load(nil); ok {
		t.Error("Load accepted an unsupported schema version")
	}
	if _, exists, _ := kv.Get("formflow_test"); exists {
		t.Error("rejected snapshot not deleted")
	}
}

func TestProgressStore_AcceptsPreviousGeneration(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := testProgressStore(kv)

	raw, _ := json.Marshal(ProgressSnapshot{
		ActiveStepID:  "1",
		Data:          FieldData{"plan": "pro"},
		CapturedAt:    testNow.UnixMilli(),
		SchemaVersion: "2.4.0",
	})
	kv.Set("formflow_test", string(raw))

	snap, ok := s.Load(nil)
	if !ok {
		t.Fatal("Load rejected a previous-generation snapshot")
	}
	if snap.Data.String("plan") != "pro" {
		t.Errorf("plan = %q, want pro", snap.Data.String("plan"))
	}
}

func TestProgressStore_RejectsCorruptPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{oops"},
		{"data is not an object", `{"schemaVersion":"3.1.0","capturedAtEpochMillis":1748779200000,"data":"nope"}`},
		{"data missing", `{"schemaVersion":"3.1.0","capturedAtEpochMillis":1748779200000}`},
		{"capture time missing", `{"schemaVersion":"3.1.0","data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := storage.NewMemoryStore()
			s := testProgressStore(kv)
			kv.Set("formflow_test", tt.raw)

			if _, ok := s.Load(nil); ok {
				t.Error("Load accepted a corrupt snapshot")
			}
			if _, exists, _ := kv.Get("formflow_test"); exists {
				t.Error("corrupt snapshot not deleted")
			}
		})
	}
}

func TestProgressStore_DeclinedConfirmationDeletesSlot(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := testProgressStore(kv)
	s.Save(ProgressSnapshot{ActiveStepID: "1", Data: FieldData{}})

	if _, ok := s.Load(func() bool { return false }); ok {
		t.Error("Load restored despite declined confirmation")
	}
	if _, exists, _ := kv.Get("formflow_test"); exists {
		t.Error("slot survived a declined restore")
	}
}

func TestProgressKey(t *testing.T) {
	tests := []struct {
		custom, formID, path string
		want                 string
	}{
		{"checkout", "ignored", "/x", "formflow_checkout"},
		{"", "signup", "/pricing/eu", "formflow_signup_pricing_eu"},
		{"", "signup", "", "formflow_signup_home"},
	}
	for _, tt := range tests {
		if got := ProgressKey(tt.custom, tt.formID, tt.path); got != tt.want {
			t.Errorf("ProgressKey(%q, %q, %q) = %q, want %q", tt.custom, tt.formID, tt.path, got, tt.want)
		}
	}
}
