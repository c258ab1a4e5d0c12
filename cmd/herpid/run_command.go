package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"herpid/internal/logging"
	"herpid/internal/respcache"
	"herpid/internal/results"
	"herpid/internal/runner"
	"herpid/internal/services/gemini"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var fresh bool
	var retryFailures bool
	var limit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the comparison batch",
		Long: "Compare every candidate image against each reference specimen and " +
			"record the verdicts. Completed comparisons are skipped, so an " +
			"interrupted batch picks up where it left off.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			if fresh {
				cfg.Batch.Fresh = true
			}
			if retryFailures {
				cfg.Batch.RetryFailures = true
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store := results.Open(cfg.Paths.ResultsPath, logger)
			client := gemini.NewClient(gemini.Config{
				APIKey:         cfg.Gemini.APIKey,
				BaseURL:        cfg.Gemini.BaseURL,
				Model:          cfg.Gemini.Model,
				TargetSpecies:  cfg.Identification.TargetSpecies,
				TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
			},
				gemini.WithLogger(logger),
				gemini.WithRetryPolicy(gemini.RetryPolicy{
					MaxAttempts: cfg.Batch.RetryAttempts,
					BaseDelay:   time.Duration(cfg.Batch.RetryBaseSeconds) * time.Second,
					MaxDelay:    time.Duration(cfg.Batch.RetryMaxSeconds) * time.Second,
				}),
			)

			opts := []runner.Option{runner.WithLogger(logger)}
			if cfg.ResponseCache.Enabled {
				cache, err := respcache.Open(cfg.ResponseCache.Path)
				if err != nil {
					logger.Warn("response cache unavailable, continuing without it",
						slog.Any("error", err))
				} else {
					defer cache.Close()
					opts = append(opts, runner.WithCache(cache))
				}
			}
			if limit > 0 {
				opts = append(opts, runner.WithLimit(limit))
			}

			var bar *progressbar.ProgressBar
			if progressEnabled() {
				opts = append(opts, runner.WithProgress(func(completed, total int) {
					if bar == nil {
						bar = newProgressBar(total)
					}
					_ = bar.Set(completed)
				}))
			}

			stats, runErr := runner.New(cfg, store, client, opts...).Run(signalCtx)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}
			if runErr != nil {
				return runErr
			}

			printRunSummary(cmd, stats, store)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "Discard prior results and process every comparison again")
	cmd.Flags().BoolVar(&retryFailures, "retry-failures", false, "Re-attempt comparisons that previously recorded an error")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many comparisons (0 = no limit)")
	return cmd
}

func progressEnabled() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("comparing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func printRunSummary(cmd *cobra.Command, stats runner.Stats, store *results.Store) {
	tally := store.Count()
	rows := [][]string{
		{"Comparisons", strconv.Itoa(stats.Total)},
		{"Processed", strconv.Itoa(stats.Processed)},
		{"Skipped", strconv.Itoa(stats.Skipped)},
		{"Errors", strconv.Itoa(stats.Errors)},
		{"Matches", strconv.Itoa(tally.Match)},
		{"No matches", strconv.Itoa(tally.NoMatch)},
		{"Unclear", strconv.Itoa(tally.Unknown)},
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, 1))
	fmt.Fprintf(out, "Results written to %s\n", store.Path())
}
