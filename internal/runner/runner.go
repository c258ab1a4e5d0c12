package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"herpid/internal/config"
	"herpid/internal/jobs"
	"herpid/internal/logging"
	"herpid/internal/media"
	"herpid/internal/results"
	"herpid/internal/verdict"
)

// InferenceClient issues one comparison request per work unit.
type InferenceClient interface {
	Identify(ctx context.Context, reference, candidate media.ImagePayload, description string) (string, error)
}

// ResponseCache looks up and stores raw responses keyed by work unit.
type ResponseCache interface {
	Get(ctx context.Context, reference, species, queryImage, model string) (string, bool, error)
	Put(ctx context.Context, reference, species, queryImage, model, raw string) error
}

// Stats are the batch counters reported after a run.
type Stats struct {
	Total     int
	Processed int
	Skipped   int
	Errors    int
}

// Runner drives the batch: enumerate work units, skip done ones, run the
// rest through the inference client, and record every outcome.
type Runner struct {
	cfg     *config.Config
	store   *results.Store
	client  InferenceClient
	cache   ResponseCache
	lister  jobs.Lister
	logger  *slog.Logger
	sleeper func(context.Context, time.Duration) error
	onUnit  func(completed, total int)
	limit   int
}

// Option customizes the runner.
type Option func(*Runner)

// WithLister overrides the candidate directory lister (useful for tests).
func WithLister(lister jobs.Lister) Option {
	return func(r *Runner) {
		if lister != nil {
			r.lister = lister
		}
	}
}

// WithCache attaches a response cache consulted before each client call.
func WithCache(cache ResponseCache) Option {
	return func(r *Runner) {
		r.cache = cache
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.WithComponent(logger, "runner")
		}
	}
}

// WithSleeper overrides how the pacing delay is performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		if sleeper != nil {
			r.sleeper = sleeper
		}
	}
}

// WithProgress registers a callback invoked after every unit transition.
func WithProgress(fn func(completed, total int)) Option {
	return func(r *Runner) {
		r.onUnit = fn
	}
}

// WithLimit stops the run after the given number of non-skipped units.
// Zero means no limit.
func WithLimit(limit int) Option {
	return func(r *Runner) {
		r.limit = limit
	}
}

// New constructs a runner. The config must already be validated.
func New(cfg *config.Config, store *results.Store, client InferenceClient, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		store:  store,
		client: client,
		lister: jobs.FSLister{Root: cfg.Paths.CandidateDir},
		logger: logging.WithComponent(logging.NewNop(), "runner"),
		sleeper: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the batch and returns the final counters. Per-unit failures
// are recorded and counted, never fatal; Run only errors on a broken result
// store, an unreadable candidate tree, a second concurrent run, or context
// cancellation.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	lock := flock.New(r.store.Path() + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Stats{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return Stats{}, fmt.Errorf("another run is already writing to %s", r.store.Path())
	}
	defer func() { _ = lock.Unlock() }()

	logger := r.logger.With(slog.String("run_id", uuid.NewString()))

	if r.cfg.Batch.Fresh {
		if err := r.store.Clear(); err != nil {
			return Stats{}, err
		}
		logger.Info("fresh mode: cleared prior results")
	} else {
		prior := r.store.Load(r.cfg.Batch.RetryFailures)
		logger.Info("resume mode: hydrated prior results",
			slog.Int("rows", prior),
			slog.Bool("retry_failures", r.cfg.Batch.RetryFailures),
		)
	}

	references := r.cfg.References
	species := r.cfg.Identification.Species

	total, err := jobs.Total(references, species, r.lister)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: total}
	logger.Info("batch starting",
		slog.Int("total_units", total),
		slog.Int("references", len(references)),
		slog.Int("species", len(species)),
		slog.String("model", r.cfg.Gemini.Model),
	)

	refImages := make(map[string]refImage, len(references))
	var (
		currentRef string
		refStats   Stats
		completed  int
	)
	flushRefSummary := func() {
		if currentRef == "" {
			return
		}
		logger.Info("reference complete",
			slog.String("reference", currentRef),
			slog.Int("processed", refStats.Processed),
			slog.Int("skipped", refStats.Skipped),
			slog.Int("errors", refStats.Errors),
		)
	}

	walkErr := jobs.Walk(references, species, r.lister, func(unit jobs.WorkUnit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if unit.Reference != currentRef {
			flushRefSummary()
			currentRef = unit.Reference
			refStats = Stats{}
		}

		key := results.Key{Reference: unit.Reference, Species: unit.Species, QueryImage: unit.Item}
		if r.store.Contains(key) {
			stats.Skipped++
			refStats.Skipped++
			completed++
			r.reportProgress(completed, total)
			logger.Debug("skipping completed unit",
				slog.String("species", unit.Species),
				slog.String("item", unit.Item),
			)
			return nil
		}

		outcome, requested := r.process(ctx, unit, refImages, logger)
		if outcome.failed && ctx.Err() != nil {
			// Cancellation is a run abort, not a unit failure; leave the
			// unit unrecorded so the next run re-attempts it.
			return ctx.Err()
		}
		if err := r.store.Append(results.Record{
			Reference:  unit.Reference,
			Species:    unit.Species,
			QueryImage: unit.Item,
			Verdict:    outcome.verdict,
			ResultText: outcome.text,
		}); err != nil {
			return err
		}

		if outcome.failed {
			stats.Errors++
			refStats.Errors++
			logger.Warn("unit failed",
				slog.String("reference", unit.Reference),
				slog.String("species", unit.Species),
				slog.String("item", unit.Item),
				slog.Any("error", outcome.err),
			)
		} else {
			stats.Processed++
			refStats.Processed++
			logger.Info("unit complete",
				slog.String("reference", unit.Reference),
				slog.String("species", unit.Species),
				slog.String("item", unit.Item),
				slog.String("verdict", outcome.verdict.String()),
			)
		}
		completed++
		r.reportProgress(completed, total)

		if r.limit > 0 && stats.Processed+stats.Errors >= r.limit {
			return jobs.ErrStop
		}

		// Pacing applies only when a request actually went out; skips and
		// cache hits cost the API nothing.
		if requested {
			if delay := r.cfg.PacingInterval(); delay > 0 {
				if err := r.sleeper(ctx, delay); err != nil {
					return err
				}
			}
		}
		return nil
	})

	flushRefSummary()
	logger.Info("batch complete",
		slog.Int("total_units", stats.Total),
		slog.Int("processed", stats.Processed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
	)
	// jobs.Walk already swallows ErrStop, so a non-nil walkErr is always a
	// genuine failure.
	if walkErr != nil {
		return stats, walkErr
	}
	return stats, nil
}

type refImage struct {
	payload media.ImagePayload
	err     error
}

type outcome struct {
	text    string
	verdict verdict.Verdict
	failed  bool
	err     error
}

func failedOutcome(err error) (outcome, bool) {
	return outcome{
		text:    verdict.ErrorMarker + " " + err.Error(),
		verdict: verdict.Unknown,
		failed:  true,
		err:     err,
	}, false
}

// process turns one work unit into an outcome. The second return value
// reports whether an inference request was actually issued.
func (r *Runner) process(ctx context.Context, unit jobs.WorkUnit, refImages map[string]refImage, logger *slog.Logger) (outcome, bool) {
	ref, ok := refImages[unit.Reference]
	if !ok {
		payload, err := media.LoadImage(filepath.Join(r.cfg.Paths.ReferenceDir, unit.Reference))
		ref = refImage{payload: payload, err: err}
		refImages[unit.Reference] = ref
	}
	if ref.err != nil {
		return failedOutcome(ref.err)
	}

	candidate, err := media.LoadImage(filepath.Join(r.cfg.Paths.CandidateDir, unit.Species, unit.Item))
	if err != nil {
		return failedOutcome(err)
	}

	if r.cache != nil {
		raw, hit, err := r.cache.Get(ctx, unit.Reference, unit.Species, unit.Item, r.cfg.Gemini.Model)
		if err != nil {
			logger.Warn("response cache lookup failed", slog.Any("error", err))
		} else if hit {
			logger.Debug("response cache hit",
				slog.String("species", unit.Species),
				slog.String("item", unit.Item),
			)
			return outcome{text: raw, verdict: verdict.Parse(raw)}, false
		}
	}

	raw, err := r.client.Identify(ctx, ref.payload, candidate, unit.Description)
	if err != nil {
		out, _ := failedOutcome(err)
		return out, true
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, unit.Reference, unit.Species, unit.Item, r.cfg.Gemini.Model, raw); err != nil {
			logger.Warn("response cache store failed", slog.Any("error", err))
		}
	}

	return outcome{text: raw, verdict: verdict.Parse(raw)}, true
}

func (r *Runner) reportProgress(completed, total int) {
	if r.onUnit != nil {
		r.onUnit(completed, total)
	}
}
