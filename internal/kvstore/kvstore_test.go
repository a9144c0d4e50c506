package kvstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

var testCounter atomic.Int64

func newTestSQLite(t interface {
	Fatalf(format string, args ...interface{})
}, key []byte) *SQLite {
	name := fmt.Sprintf("kvstore-test-%d", testCounter.Add(1))
	s, err := NewSQLiteInMemory(name, key)
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	return s
}

// storeModelCheck runs random operation sequences against a Store and a map
// model and requires identical observations.
func storeModelCheck(t *rapid.T, s Store) {
	model := map[string]string{}
	keyGen := rapid.SampledFrom([]string{"notes_guest", "notes_a", "notes_b", "lastUser"})

	steps := rapid.IntRange(1, 40).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		key := keyGen.Draw(t, "key")
		switch rapid.IntRange(0, 2).Draw(t, "op") {
		case 0:
			value := rapid.StringMatching(`[ -~]{0,40}`).Draw(t, "value")
			if err := s.Set(key, value); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			model[key] = value
		case 1:
			if err := s.Remove(key); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			delete(model, key)
		case 2:
			got, ok, err := s.Get(key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			want, wantOK := model[key]
			if ok != wantOK || got != want {
				t.Fatalf("Get(%q) = (%q,%v), model has (%q,%v)", key, got, ok, want, wantOK)
			}
		}
	}
}

func testMemory_MatchesModel(t *rapid.T) {
	storeModelCheck(t, NewMemory())
}

func TestMemory_MatchesModel(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testMemory_MatchesModel)
}

func testSQLite_MatchesModel(t *rapid.T) {
	s := newTestSQLite(t, nil)
	defer s.Close()
	storeModelCheck(t, s)
}

func TestSQLite_MatchesModel(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testSQLite_MatchesModel)
}

func TestSQLite_EncryptedFile_ReopensWithSameKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	s, err := OpenSQLite(path, key)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := s.Set("notes_guest", `[{"id":"n1"}]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenSQLite(path, key)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Get("notes_guest")
	if err != nil || !ok || got != `[{"id":"n1"}]` {
		t.Fatalf("unexpected value after reopen: %q %v %v", got, ok, err)
	}

	wrong := make([]byte, 32)
	if _, err := OpenSQLite(path, wrong); err == nil {
		t.Fatal("opening with the wrong key should fail")
	}
}

func TestSQLite_RejectsShortKey(t *testing.T) {
	t.Parallel()
	if _, err := NewSQLiteInMemory("short-key", make([]byte, 16)); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
}

func TestSQLite_ClosedStoreErrors(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, _, err := s.Get("k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Set("k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestFaulty_FailsOnDemand(t *testing.T) {
	t.Parallel()
	f := NewFaulty(NewMemory())
	boom := errors.New("disk full")

	f.FailSets(boom)
	if err := f.Set("k", "v"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	f.FailSets(nil)
	if err := f.Set("k", "v"); err != nil {
		t.Fatalf("Set should succeed after reset: %v", err)
	}

	f.FailGets(boom)
	if _, _, err := f.Get("k"); !errors.Is(err, boom) {
		t.Fatalf("expected injected read error, got %v", err)
	}
}
