package notes

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestVisible_GroceriesScenario(t *testing.T) {
	t.Parallel()
	repo, _ := setupRepository(t, "notes_guest")
	note, _ := repo.Create()
	_, _, _ = repo.Update(note.ID, Patch{Title: strPtr("Groceries"), Tags: ParseTags("home, errands")})

	got := Visible(repo.All(), Filter{SearchText: "err"})
	if len(got) != 1 || got[0].ID != note.ID {
		t.Fatalf("search 'err' should find the note via its tag, got %+v", got)
	}
	if got := Visible(repo.All(), Filter{Tag: "work"}); len(got) != 0 {
		t.Fatalf("tag 'work' should match nothing, got %+v", got)
	}
}

func TestVisible_NoFilterReturnsAllInOrder(t *testing.T) {
	t.Parallel()
	collection := []Note{{ID: "c"}, {ID: "b"}, {ID: "a"}}
	got := Visible(collection, Filter{})
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestFilter_CaseInsensitiveAcrossFields(t *testing.T) {
	t.Parallel()
	n := Note{Title: "Quarterly BUDGET", Tags: []string{"Work"}, ContentPlain: "Rent and Utilities"}
	for _, q := range []string{"budget", "WORK", "utilities", "rent and"} {
		if !(Filter{SearchText: q}).Matches(n) {
			t.Fatalf("search %q should match", q)
		}
	}
	if (Filter{SearchText: "holiday"}).Matches(n) {
		t.Fatal("unrelated search should not match")
	}
	// Tag filter is exact
	if (Filter{Tag: "work"}).Matches(n) {
		t.Fatal("tag filter must match tags exactly")
	}
}

// =============================================================================
// Property: tag filter AND search text composition
// =============================================================================

func testVisible_FilterComposition(t *rapid.T) {
	tagGen := rapid.SampledFrom([]string{"work", "home", "misc"})
	textGen := rapid.SampledFrom([]string{"", "budget", "Budget plan", "groceries", "BUDGET"})

	var collection []Note
	for i, n := 0, rapid.IntRange(0, 15).Draw(t, "n"); i < n; i++ {
		collection = append(collection, Note{
			ID:           string(rune('a' + i)),
			Title:        textGen.Draw(t, "title"),
			Tags:         rapid.SliceOfN(tagGen, 0, 3).Draw(t, "tags"),
			ContentPlain: textGen.Draw(t, "plain"),
		})
	}
	f := Filter{
		SearchText: rapid.SampledFrom([]string{"", "budget", "plan", "home"}).Draw(t, "search"),
		Tag:        rapid.SampledFrom([]string{"", "work", "home"}).Draw(t, "tag"),
	}

	got := Visible(collection, f)

	expected := []Note{}
	for _, n := range collection {
		tagOK := f.Tag == "" || n.HasTag(f.Tag)
		q := strings.ToLower(f.SearchText)
		textOK := q == "" || strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.ContentPlain), q) ||
			strings.Contains(strings.ToLower(strings.Join(n.Tags, "\x00")), q)
		if tagOK && textOK {
			expected = append(expected, n)
		}
	}

	if len(got) != len(expected) {
		t.Fatalf("filter %+v: got %d notes, want %d", f, len(got), len(expected))
	}
	for i := range got {
		if got[i].ID != expected[i].ID {
			t.Fatalf("order mismatch at %d: %q vs %q", i, got[i].ID, expected[i].ID)
		}
	}
}

func TestVisible_FilterComposition(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testVisible_FilterComposition)
}
