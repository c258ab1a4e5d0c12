package results

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"herpid/internal/verdict"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "results.csv"), nil)
}

func record(ref, species, image string, v verdict.Verdict, text string) Record {
	return Record{Reference: ref, Species: species, QueryImage: image, Verdict: v, ResultText: text}
}

func TestAppendPersistsAndRoundTrips(t *testing.T) {
	store := testStore(t)

	recs := []Record{
		record("ref.PNG", "L. annulata", "img1.jpg", verdict.Match, "This is a match for the species."),
		record("ref.PNG", "L. annulata", "img2.jpg", verdict.NoMatch, "Line one.\nLine two."),
		record("ref.PNG", "L. ornata", "img1.jpg", verdict.Unknown, ""),
	}
	for _, rec := range recs {
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if !store.Contains(rec.Key()) {
			t.Fatalf("Contains(%v) = false after Append", rec.Key())
		}
	}

	reopened := Open(store.Path(), nil)
	if got := reopened.Load(false); got != 3 {
		t.Fatalf("Load returned %d records, want 3", got)
	}
	loaded := reopened.Records()
	if loaded[1].ResultText != "Line one. Line two." {
		t.Fatalf("newlines not normalized: %q", loaded[1].ResultText)
	}
	if loaded[0].Verdict != verdict.Match || loaded[1].Verdict != verdict.NoMatch || loaded[2].Verdict != verdict.Unknown {
		t.Fatalf("verdicts did not round trip: %+v", loaded)
	}
	for _, rec := range loaded {
		if !reopened.Contains(rec.Key()) {
			t.Fatalf("seen set missing %v after Load", rec.Key())
		}
	}
}

func TestAppendRejectsDuplicateKey(t *testing.T) {
	store := testStore(t)
	rec := record("r", "s", "q", verdict.Match, "match for sure")
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(rec); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := testStore(t)
	if got := store.Load(false); got != 0 {
		t.Fatalf("Load of missing file returned %d", got)
	}
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	if err := os.WriteFile(path, []byte("not,a,valid\ntable\x00"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store := Open(path, nil)
	if got := store.Load(false); got != 0 {
		t.Fatalf("corrupt table hydrated %d records, want 0", got)
	}
	if store.Len() != 0 {
		t.Fatalf("store not empty after corrupt load")
	}
}

func TestLoadRetryFailuresDropsErrorRows(t *testing.T) {
	store := testStore(t)
	ok := record("r", "s", "good.jpg", verdict.Match, "is a match")
	failed := record("r", "s", "bad.jpg", verdict.Unknown, "Error: image file not found")
	if err := store.Append(ok); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(failed); err != nil {
		t.Fatalf("Append: %v", err)
	}

	resumed := Open(store.Path(), nil)
	if got := resumed.Load(false); got != 2 {
		t.Fatalf("default load returned %d rows, want 2", got)
	}
	if !resumed.Contains(failed.Key()) {
		t.Fatal("failed row should be skipped by default resume")
	}

	retried := Open(store.Path(), nil)
	if got := retried.Load(true); got != 1 {
		t.Fatalf("retry-failures load returned %d rows, want 1", got)
	}
	if retried.Contains(failed.Key()) {
		t.Fatal("failed row should be re-attempted with retry_failures")
	}
	if !retried.Contains(ok.Key()) {
		t.Fatal("successful row must survive retry-failures hydration")
	}
}

func TestClearRemovesTable(t *testing.T) {
	store := testStore(t)
	if err := store.Append(record("r", "s", "q", verdict.Match, "matches")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Len() != 0 || store.Contains(Key{"r", "s", "q"}) {
		t.Fatal("store not empty after Clear")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("table still on disk after Clear: %v", err)
	}
	// Clearing an already-missing table is fine.
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestFlushLeavesNoTempFiles(t *testing.T) {
	store := testStore(t)
	for i := 0; i < 3; i++ {
		rec := record("r", "s", "img"+string(rune('a'+i))+".jpg", verdict.Match, "matches")
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".results-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestCount(t *testing.T) {
	store := testStore(t)
	_ = store.Append(record("r", "s", "a", verdict.Match, "is a match"))
	_ = store.Append(record("r", "s", "b", verdict.NoMatch, "no match"))
	_ = store.Append(record("r", "s", "c", verdict.Unknown, "unclear"))
	_ = store.Append(record("r", "s", "d", verdict.Unknown, "Error: boom"))

	tally := store.Count()
	if tally.Match != 1 || tally.NoMatch != 1 || tally.Unknown != 1 || tally.Failed != 1 {
		t.Fatalf("unexpected tally %+v", tally)
	}
}
