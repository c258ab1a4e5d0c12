package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"herpid/internal/config"
	"herpid/internal/media"
	"herpid/internal/results"
	"herpid/internal/testsupport"
)

type clientFunc func(ctx context.Context, reference, candidate media.ImagePayload, description string) (string, error)

func (f clientFunc) Identify(ctx context.Context, reference, candidate media.ImagePayload, description string) (string, error) {
	return f(ctx, reference, candidate, description)
}

func matchClient(calls *int) clientFunc {
	return func(context.Context, media.ImagePayload, media.ImagePayload, string) (string, error) {
		if calls != nil {
			*calls++
		}
		return "This is a match for the species.", nil
	}
}

func noopSleeper(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
}

// batchConfig builds a config with one reference and one species directory
// holding two candidate images.
func batchConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithReferences(config.Reference{FileName: "ref.PNG", Description: "zigzag blotches"}),
		testsupport.WithSpecies("sp1"),
	)
	testsupport.WriteImage(t, filepath.Join(cfg.Paths.ReferenceDir, "ref.PNG"))
	testsupport.WriteImage(t, filepath.Join(cfg.Paths.CandidateDir, "sp1", "a.jpg"))
	testsupport.WriteImage(t, filepath.Join(cfg.Paths.CandidateDir, "sp1", "b.jpg"))
	return cfg
}

func TestRunProcessesAllUnits(t *testing.T) {
	cfg := batchConfig(t)
	store := results.Open(cfg.Paths.ResultsPath, nil)

	var calls int
	var delays []time.Duration
	r := New(cfg, store, matchClient(&calls), WithSleeper(noopSleeper(&delays)))

	stats, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Total != 2 || stats.Processed != 2 || stats.Skipped != 0 || stats.Errors != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if calls != 2 {
		t.Fatalf("expected 2 client calls, got %d", calls)
	}
	if len(delays) != 2 || delays[0] != time.Second {
		t.Fatalf("expected pacing after each request, got %v", delays)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", store.Len())
	}
	for _, rec := range store.Records() {
		if rec.Verdict.Serialize() != "true" {
			t.Fatalf("unexpected verdict %s for %s", rec.Verdict, rec.QueryImage)
		}
	}
}

func TestRunResumeIsIdempotent(t *testing.T) {
	cfg := batchConfig(t)

	first := results.Open(cfg.Paths.ResultsPath, nil)
	if _, err := New(cfg, first, matchClient(nil), WithSleeper(noopSleeper(nil))).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, err := os.ReadFile(cfg.Paths.ResultsPath)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}

	var calls int
	second := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err := New(cfg, second, matchClient(&calls), WithSleeper(noopSleeper(nil))).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if calls != 0 {
		t.Fatalf("resume must not issue requests, got %d", calls)
	}
	if stats.Processed != 0 || stats.Skipped != 2 {
		t.Fatalf("unexpected resume stats %+v", stats)
	}

	after, err := os.ReadFile(cfg.Paths.ResultsPath)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("resume run modified the persisted table")
	}
}

func TestRunRecordsFailedUnits(t *testing.T) {
	cfg := batchConfig(t)
	store := results.Open(cfg.Paths.ResultsPath, nil)

	client := clientFunc(func(_ context.Context, _, candidate media.ImagePayload, _ string) (string, error) {
		return "", errors.New("gemini identify: failed after 3 attempts: http 503")
	})
	stats, err := New(cfg, store, client, WithSleeper(noopSleeper(nil))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Errors != 2 || stats.Processed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for _, rec := range store.Records() {
		if !rec.Failed() {
			t.Fatalf("record %s not marked failed: %q", rec.QueryImage, rec.ResultText)
		}
		if rec.Verdict.Serialize() != "" {
			t.Fatalf("failed unit must have unknown verdict, got %s", rec.Verdict)
		}
	}

	// Default resume treats failed units as done.
	var calls int
	resumed := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err = New(cfg, resumed, matchClient(&calls), WithSleeper(noopSleeper(nil))).Run(context.Background())
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}
	if calls != 0 || stats.Skipped != 2 {
		t.Fatalf("failed units not skipped on resume: calls=%d stats=%+v", calls, stats)
	}

	// retry_failures re-attempts them.
	cfg.Batch.RetryFailures = true
	retried := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err = New(cfg, retried, matchClient(&calls), WithSleeper(noopSleeper(nil))).Run(context.Background())
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if calls != 2 || stats.Processed != 2 {
		t.Fatalf("retry_failures did not re-attempt: calls=%d stats=%+v", calls, stats)
	}
	if tally := retried.Count(); tally.Failed != 0 || tally.Match != 2 {
		t.Fatalf("failed rows not replaced: %+v", tally)
	}
}

func TestRunFreshClearsPriorResults(t *testing.T) {
	cfg := batchConfig(t)

	first := results.Open(cfg.Paths.ResultsPath, nil)
	if _, err := New(cfg, first, matchClient(nil), WithSleeper(noopSleeper(nil))).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cfg.Batch.Fresh = true
	var calls int
	fresh := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err := New(cfg, fresh, matchClient(&calls), WithSleeper(noopSleeper(nil))).Run(context.Background())
	if err != nil {
		t.Fatalf("fresh run: %v", err)
	}
	if calls != 2 || stats.Processed != 2 || stats.Skipped != 0 {
		t.Fatalf("fresh mode did not reprocess: calls=%d stats=%+v", calls, stats)
	}
}

func TestRunMissingReferenceImageFailsUnits(t *testing.T) {
	cfg := batchConfig(t)
	if err := os.Remove(filepath.Join(cfg.Paths.ReferenceDir, "ref.PNG")); err != nil {
		t.Fatalf("remove reference: %v", err)
	}

	var calls int
	store := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err := New(cfg, store, matchClient(&calls), WithSleeper(noopSleeper(nil))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("client must not be called without a reference image, got %d calls", calls)
	}
	if stats.Errors != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunSecondInstanceRefused(t *testing.T) {
	cfg := batchConfig(t)
	lock := flock.New(cfg.Paths.ResultsPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: locked=%v err=%v", locked, err)
	}
	defer func() { _ = lock.Unlock() }()

	store := results.Open(cfg.Paths.ResultsPath, nil)
	if _, err := New(cfg, store, matchClient(nil), WithSleeper(noopSleeper(nil))).Run(context.Background()); err == nil {
		t.Fatal("expected lock conflict error")
	}
}

type fakeCache struct {
	entries map[string]string
	puts    int
}

func cacheKey(reference, species, item string) string {
	return reference + "|" + species + "|" + item
}

func (f *fakeCache) Get(_ context.Context, reference, species, item, _ string) (string, bool, error) {
	raw, ok := f.entries[cacheKey(reference, species, item)]
	return raw, ok, nil
}

func (f *fakeCache) Put(_ context.Context, reference, species, item, _, raw string) error {
	f.entries[cacheKey(reference, species, item)] = raw
	f.puts++
	return nil
}

func TestRunConsultsResponseCache(t *testing.T) {
	cfg := batchConfig(t)
	cache := &fakeCache{entries: map[string]string{
		cacheKey("ref.PNG", "sp1", "a.jpg"): "NO MATCH. Cached verdict.",
	}}

	var calls int
	var delays []time.Duration
	store := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err := New(cfg, store, matchClient(&calls),
		WithCache(cache),
		WithSleeper(noopSleeper(&delays)),
	).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("cached unit must not hit the client, got %d calls", calls)
	}
	if stats.Processed != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(delays) != 1 {
		t.Fatalf("cache hits must not pace, got %v", delays)
	}
	if cache.puts != 1 {
		t.Fatalf("expected fresh response cached once, got %d puts", cache.puts)
	}

	var cached results.Record
	for _, rec := range store.Records() {
		if rec.QueryImage == "a.jpg" {
			cached = rec
		}
	}
	if cached.Verdict.Serialize() != "false" {
		t.Fatalf("cached response not recorded with parsed verdict: %+v", cached)
	}
}

func TestRunLimitStopsEarly(t *testing.T) {
	cfg := batchConfig(t)
	var calls int
	store := results.Open(cfg.Paths.ResultsPath, nil)
	stats, err := New(cfg, store, matchClient(&calls),
		WithSleeper(noopSleeper(nil)),
		WithLimit(1),
	).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls != 1 || stats.Processed != 1 {
		t.Fatalf("limit not honored: calls=%d stats=%+v", calls, stats)
	}
}

func TestRunProgressCallback(t *testing.T) {
	cfg := batchConfig(t)
	var seen []int
	store := results.Open(cfg.Paths.ResultsPath, nil)
	_, err := New(cfg, store, matchClient(nil),
		WithSleeper(noopSleeper(nil)),
		WithProgress(func(completed, total int) {
			if total != 2 {
				t.Fatalf("unexpected total %d", total)
			}
			seen = append(seen, completed)
		}),
	).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected progress sequence %v", seen)
	}
}

func TestRunCancelledContext(t *testing.T) {
	cfg := batchConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := results.Open(cfg.Paths.ResultsPath, nil)
	if _, err := New(cfg, store, matchClient(nil), WithSleeper(noopSleeper(nil))).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("cancelled run must not record units, got %d", store.Len())
	}
}
