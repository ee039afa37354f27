package flow

import (
	"testing"
	"time"

	"formflow/storage"
)

func TestVariantStore_SaveWritesBothStores(t *testing.T) {
	jar := newFakeCookieJar()
	kv := storage.NewMemoryStore()
	s := NewVariantStore(jar, kv, nil, quietLogger())

	s.Save("pricing", "B")

	if v, ok := jar.Get("formflow_ab_pricing"); !ok || v != "B" {
		t.Errorf("cookie = %q, %v; want B, true", v, ok)
	}
	if _, ok, _ := kv.Get("formflow_ab_pricing"); !ok {
		t.Error("persistent slot not written")
	}
}

func TestVariantStore_CookieTakesPrecedence(t *testing.T) {
	jar := newFakeCookieJar()
	kv := storage.NewMemoryStore()
	s := NewVariantStore(jar, kv, nil, quietLogger())

	s.Save("pricing", "A")
	// Simulate divergence: only the cookie changes.
	jar.Set("formflow_ab_pricing", "B", time.Hour)

	if got, ok := s.Load("pricing"); !ok || got != "B" {
		t.Errorf("Load = %q, %v; want B, true", got, ok)
	}
}

func TestVariantStore_FallsBackToPersistentStore(t *testing.T) {
	jar := newFakeCookieJar()
	kv := storage.NewMemoryStore()
	s := NewVariantStore(jar, kv, nil, quietLogger())

	s.Save("pricing", "A")
	jar.Delete("formflow_ab_pricing") // cookie expired

	if got, ok := s.Load("pricing"); !ok || got != "A" {
		t.Errorf("Load = %q, %v; want A, true", got, ok)
	}
}

func TestVariantStore_UnparsableRecordIsAbsent(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewVariantStore(nil, kv, nil, quietLogger())

	kv.Set("formflow_ab_pricing", "{not json")

	if got, ok := s.Load("pricing"); ok {
		t.Errorf("Load returned %q for corrupt record, want absent", got)
	}
}

func TestVariantStore_Clear(t *testing.T) {
	jar := newFakeCookieJar()
	kv := storage.NewMemoryStore()
	s := NewVariantStore(jar, kv, nil, quietLogger())

	s.Save("pricing", "A")
	s.Clear("pricing")

	if _, ok := s.Load("pricing"); ok {
		t.Error("Load found a value after Clear")
	}
}

func TestExperimentRegistry_SetAndReset(t *testing.T) {
	store := NewVariantStore(newFakeCookieJar(), storage.NewMemoryStore(), nil, quietLogger())
	reg := NewExperimentRegistry(store, quietLogger())

	reg.SetVariant("pricing", "B")
	if got, ok := reg.Variant("pricing"); !ok || got != "B" {
		t.Errorf("Variant = %q, %v; want B, true", got, ok)
	}

	reg.ResetVariant("pricing")
	if _, ok := reg.Variant("pricing"); ok {
		t.Error("Variant found after reset")
	}
}
