package state_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"github.com/danhigham/tgsend/internal/domain"
	"github.com/danhigham/tgsend/internal/state"
)

type record struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	IDs   []int64 `json:"ids,omitempty"`
}

func TestStore_SaveLoad(t *testing.T) {
	s := state.New(t.TempDir(), nil)

	in := record{Name: "alice", Count: 3, IDs: []int64{1, 2}}
	if err := s.Save("test.json", &in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	var out record
	if err := s.Load("test.json", &out); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out.Name != "alice" || out.Count != 3 || len(out.IDs) != 2 {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := state.New(t.TempDir(), nil)

	var out record
	err := s.Load("missing.json", &out)
	if !errors.Is(err, state.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := state.New(dir, nil)
	var out record
	err := s.Load("bad.json", &out)
	if domain.KindOf(err) != domain.ErrCorruptState {
		t.Errorf("Load() error kind = %q, want CorruptState", domain.KindOf(err))
	}
}

func TestStore_UpdateCreates(t *testing.T) {
	s := state.New(t.TempDir(), nil)

	var rec record
	err := s.Update("counter.json", &rec, func() error {
		rec.Count++
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	var out record
	if err := s.Load("counter.json", &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 {
		t.Errorf("Count = %d, want 1", out.Count)
	}
}

func TestStore_UpdateReloadsBeforeMutating(t *testing.T) {
	dir := t.TempDir()
	s := state.New(dir, nil)

	if err := s.Save("counter.json", &record{Count: 5}); err != nil {
		t.Fatal(err)
	}

	// Stale in-memory value must be refreshed from disk inside the lock.
	rec := record{Count: 0}
	err := s.Update("counter.json", &rec, func() error {
		rec.Count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var out record
	if err := s.Load("counter.json", &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 6 {
		t.Errorf("Count = %d, want 6", out.Count)
	}
}

func TestStore_UpdateAbortLeavesRecord(t *testing.T) {
	s := state.New(t.TempDir(), nil)

	if err := s.Save("rec.json", &record{Name: "before"}); err != nil {
		t.Fatal(err)
	}

	var rec record
	wantErr := errors.New("abort")
	err := s.Update("rec.json", &rec, func() error {
		rec.Name = "after"
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Update() error = %v, want abort", err)
	}

	var out record
	if err := s.Load("rec.json", &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "before" {
		t.Errorf("Name = %q, want %q (aborted update must not write)", out.Name, "before")
	}
}

func TestStore_LockContention(t *testing.T) {
	dir := t.TempDir()
	s := state.New(dir, nil)

	// Hold the record lock the way a second instance would.
	fl := flock.New(filepath.Join(dir, "held.json.lock"))
	ok, err := fl.TryLock()
	if err != nil || !ok {
		t.Fatalf("setup lock: ok=%v err=%v", ok, err)
	}
	defer fl.Unlock()

	var rec record
	err = s.Update("held.json", &rec, func() error { return nil })
	if domain.KindOf(err) != domain.ErrLockContention {
		t.Errorf("Update() error kind = %q, want LockContention", domain.KindOf(err))
	}
}
