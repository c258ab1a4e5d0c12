package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"herpid/internal/logging"
	"herpid/internal/results"
)

const resultTextPreview = 72

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var summaryOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the recorded comparison results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store := results.Open(cfg.Paths.ResultsPath, logging.NewNop())
			if store.Load(false) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No results recorded at %s\n", store.Path())
				return nil
			}

			out := cmd.OutOrStdout()
			if !summaryOnly {
				rows := make([][]string, 0, store.Len())
				for _, rec := range store.Records() {
					if failedOnly && !rec.Failed() {
						continue
					}
					rows = append(rows, []string{
						rec.Reference,
						rec.Species,
						rec.QueryImage,
						resultLabel(rec),
						truncate(rec.ResultText, resultTextPreview),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Reference", "Species", "Image", "Verdict", "Response"},
					rows,
				))
			}

			tally := store.Count()
			fmt.Fprintln(out, renderTable(
				[]string{"Verdict", "Count"},
				[][]string{
					{"match", strconv.Itoa(tally.Match)},
					{"no-match", strconv.Itoa(tally.NoMatch)},
					{"unclear", strconv.Itoa(tally.Unknown)},
					{"error", strconv.Itoa(tally.Failed)},
				},
				1,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Show only the verdict tally")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Show only comparisons that recorded an error")
	return cmd
}

func resultLabel(rec results.Record) string {
	if rec.Failed() {
		return "error"
	}
	return rec.Verdict.String()
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
