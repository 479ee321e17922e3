package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"subgen/internal/batch"
	"subgen/internal/job"
	"subgen/internal/notifications"
	"subgen/internal/runner"
)

type jobReport struct {
	Index        int    `json:"index"`
	ID           string `json:"id"`
	Source       string `json:"source"`
	Outcome      string `json:"outcome"`
	SubtitlePath string `json:"subtitle_path,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`
	Stage        string `json:"stage,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Message      string `json:"message,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

type batchReport struct {
	ID              string      `json:"id"`
	Status          string      `json:"status"`
	Total           int         `json:"total"`
	Succeeded       int         `json:"succeeded"`
	Failed          int         `json:"failed"`
	Cancelled       int         `json:"cancelled"`
	Skipped         int         `json:"skipped"`
	DurationSeconds float64     `json:"duration_seconds"`
	Jobs            []jobReport `json:"jobs"`
}

func newBatchReport(snap batch.Snapshot) batchReport {
	report := batchReport{
		ID:              snap.ID,
		Status:          snap.Label(),
		Total:           snap.Total,
		Succeeded:       snap.Succeeded(),
		Failed:          snap.Failed(),
		Cancelled:       snap.Cancelled(),
		Skipped:         snap.Skipped(),
		DurationSeconds: snap.Elapsed().Round(time.Millisecond).Seconds(),
		Jobs:            make([]jobReport, 0, len(snap.Results)),
	}
	for _, r := range snap.Results {
		entry := jobReport{
			Index:   r.Job.Index,
			ID:      r.Job.ID,
			Source:  r.Job.Source,
			Outcome: string(r.Outcome.Kind),
		}
		switch r.Outcome.Kind {
		case job.OutcomeSuccess:
			entry.SubtitlePath = r.Outcome.SubtitlePath
			entry.Skipped = r.Outcome.Skipped
		case job.OutcomeFailure:
			entry.Stage = string(r.Outcome.Stage)
			entry.ErrorKind = string(r.Outcome.ErrorKind)
			entry.Message = r.Outcome.Message
			entry.Hint = runner.Hint(r.Outcome.ErrorKind)
		case job.OutcomeCancelled:
			entry.Stage = string(r.Outcome.Stage)
		}
		report.Jobs = append(report.Jobs, entry)
	}
	return report
}

func renderResultsTable(snap batch.Snapshot) string {
	rows := make([][]string, 0, len(snap.Results))
	for _, r := range snap.Results {
		rows = append(rows, []string{
			strconv.Itoa(r.Job.Index + 1),
			r.Job.Source,
			outcomeLabel(r.Outcome),
			outcomeDetail(r.Outcome),
		})
	}
	return renderTable(
		[]string{"#", "Source", "Outcome", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func outcomeLabel(o job.Outcome) string {
	if o.Kind == job.OutcomeSuccess && o.Skipped {
		return "skipped"
	}
	return string(o.Kind)
}

func outcomeDetail(o job.Outcome) string {
	switch o.Kind {
	case job.OutcomeSuccess:
		return o.SubtitlePath
	case job.OutcomeCancelled:
		return "at " + string(o.Stage)
	default:
		return failureDetail(o)
	}
}

func failureDetail(o job.Outcome) string {
	detail := fmt.Sprintf("%s/%s", o.Stage, o.ErrorKind)
	if msg := strings.TrimSpace(o.Message); msg != "" {
		detail += ": " + msg
	}
	return detail
}

// summaryLine renders the closing "succeeded X/N" line.
func summaryLine(snap batch.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "succeeded %d/%d", snap.Succeeded(), snap.Total)
	if n := snap.Skipped(); n > 0 {
		fmt.Fprintf(&b, " (%d already existed)", n)
	}
	if n := snap.Failed(); n > 0 {
		fmt.Fprintf(&b, ", %d failed", n)
	}
	if n := snap.Cancelled(); n > 0 {
		fmt.Fprintf(&b, ", %d cancelled", n)
	}
	fmt.Fprintf(&b, " in %s", snap.Elapsed().Round(time.Second))
	return b.String()
}

func notificationSummary(snap batch.Snapshot) notifications.BatchSummary {
	summary := notifications.BatchSummary{
		Total:     snap.Total,
		Succeeded: snap.Succeeded(),
		Failed:    snap.Failed(),
		Cancelled: snap.Cancelled(),
		Duration:  snap.Elapsed(),
	}
	for _, r := range snap.Results {
		if r.Outcome.Kind == job.OutcomeFailure {
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("%s %s: %s", r.Job.Label(snap.Total), r.Job.Source, failureDetail(r.Outcome)))
		}
	}
	return summary
}
