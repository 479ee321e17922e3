package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subgen/internal/history"
	"subgen/internal/job"
)

const historyTimeFormat = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var batchID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past batches and their job outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				if batchID != "" {
					return showBatch(cmd, store, batchID, jsonOutput)
				}
				batches, err := store.ListBatches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, batches)
				}
				if len(batches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No batches recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBatchTable(batches))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to list")
	cmd.Flags().StringVarP(&batchID, "batch", "b", "", "Show the jobs of one batch (ID or unique prefix)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d batch(es)\n", removed)
				return nil
			})
		},
	})
	return cmd
}

func withHistory(cmd *cobra.Command, ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cmd.Context(), cfg.Paths.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func showBatch(cmd *cobra.Command, store *history.Store, idOrPrefix string, jsonOutput bool) error {
	b, err := store.GetBatch(cmd.Context(), idOrPrefix)
	switch {
	case errors.Is(err, history.ErrNotFound):
		return fmt.Errorf("no batch matches %q", idOrPrefix)
	case errors.Is(err, history.ErrAmbiguous):
		return fmt.Errorf("%q matches several batches; use a longer prefix", idOrPrefix)
	case err != nil:
		return err
	}
	jobs, err := store.Jobs(cmd.Context(), b.ID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, struct {
			Batch history.Batch       `json:"batch"`
			Jobs  []history.JobRecord `json:"jobs"`
		}{b, jobs})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s (%s)\n", b.ID, b.Status)
	fmt.Fprintf(out, "Started %s, model %s, output %s\n", formatHistoryTime(b.StartedAt), b.Model, b.OutputDir)
	fmt.Fprintln(out, renderJobTable(jobs))
	return nil
}

func renderBatchTable(batches []history.Batch) string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			shortBatchID(b.ID),
			formatHistoryTime(b.StartedAt),
			b.Status,
			b.Model,
			fmt.Sprintf("%d/%d", b.Succeeded, b.Total),
			strconv.Itoa(b.Failed),
			strconv.Itoa(b.Cancelled),
			batchDuration(b),
		})
	}
	return renderTable(
		[]string{"Batch", "Started", "Status", "Model", "Succeeded", "Failed", "Cancelled", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderJobTable(jobs []history.JobRecord) string {
	rows := make([][]string, 0, len(jobs))
	for _, rec := range jobs {
		rows = append(rows, []string{
			strconv.Itoa(rec.Index + 1),
			rec.Source,
			string(rec.State),
			jobRecordDetail(rec),
		})
	}
	return renderTable(
		[]string{"#", "Source", "State", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func jobRecordDetail(rec history.JobRecord) string {
	switch rec.Outcome {
	case job.OutcomeSuccess:
		if rec.Skipped {
			return "exists " + rec.SubtitlePath
		}
		return rec.SubtitlePath
	case job.OutcomeFailure:
		return failureDetail(job.Failure(rec.Stage, rec.ErrorKind, rec.Message))
	case job.OutcomeCancelled:
		return "at " + string(rec.Stage)
	default:
		return ""
	}
}

func shortBatchID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatHistoryTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeFormat)
}

func batchDuration(b history.Batch) string {
	if !b.Finished() {
		return "-"
	}
	return b.FinishedAt.Sub(b.StartedAt).Round(time.Second).String()
}
