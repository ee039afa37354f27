package badgerkv

import "testing"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Errorf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set("formflow_signup_home", `{"data":{}}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get("formflow_signup_home")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v, want present", ok, err)
	}
	if v != `{"data":{}}` {
		t.Errorf("Get = %q", v)
	}

	if err := s.Delete("formflow_signup_home"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get("formflow_signup_home"); ok {
		t.Error("key survived Delete")
	}
}

func TestStore_DeleteAbsentKey(t *testing.T) {
	s := openTestStore(t)

	if err := s.Delete("never-set"); err != nil {
		t.Errorf("Delete(never-set) = %v, want nil", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open accepted a persistent config without a path")
	}
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get("k")
	if err != nil || !ok || v != "v" {
		t.Errorf("Get after reopen = %q, %v, %v; want v, true, nil", v, ok, err)
	}
}
