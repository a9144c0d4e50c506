package s3client

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func TestClient_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := TestClient(t, "backups")

	if _, err := c.GetObject(ctx, "notekeep/u1/notes.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}

	if err := c.PutObject(ctx, "notekeep/u1/notes.json", []byte(`[]`), "application/json"); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	got, err := c.GetObject(ctx, "notekeep/u1/notes.json")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestClient_OverwriteIsLastWriterWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := TestClient(t, "backups")

	rapid.Check(t, func(rt *rapid.T) {
		key := "k/" + rapid.StringMatching(`[a-z0-9]{1,12}`).Draw(rt, "key")
		writes := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 64), 1, 4).Draw(rt, "writes")
		for _, w := range writes {
			if err := c.PutObject(ctx, key, w, "application/octet-stream"); err != nil {
				rt.Fatalf("PutObject failed: %v", err)
			}
		}
		got, err := c.GetObject(ctx, key)
		if err != nil {
			rt.Fatalf("GetObject failed: %v", err)
		}
		if string(got) != string(writes[len(writes)-1]) {
			rt.Fatalf("expected last write to win")
		}
	})
}
