package localstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var v string
	found, err := s.Get("anything", &v)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("missing file should yield an empty store")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected an error for an empty path")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	type session struct {
		Token string `json:"token"`
	}

	if err := s.Set(KeySession, session{Token: "abc"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Reopen to prove the value survives the file round trip.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	var got session
	found, err := reopened.Get(KeySession, &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found || got.Token != "abc" {
		t.Errorf("round trip failed, found=%v got=%+v", found, got)
	}
}

func TestGetCorruptValueReportsFoundWithError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if err := s.Set(KeyDarkMode, "definitely not a bool"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var dark bool
	found, err := s.Get(KeyDarkMode, &dark)
	if !found {
		t.Error("corrupt value is still present and must report found")
	}
	if err == nil {
		t.Error("expected a parse error for the corrupt value")
	}
}

func TestOpenCorruptFileStartsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{{{ not json"), 0o600); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("corrupt file must not be fatal: %v", err)
	}

	var v string
	if found, _ := s.Get(KeySession, &v); found {
		t.Error("corrupt file should be discarded")
	}
}

func TestDelete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if err := s.Set(KeySession, "abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Delete(KeySession); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var v string
	if found, _ := s.Get(KeySession, &v); found {
		t.Error("deleted key should be gone")
	}

	// Deleting an absent key is a no-op.
	if err := s.Delete("never-existed"); err != nil {
		t.Errorf("deleting an absent key should not fail: %v", err)
	}
}
