package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"subgen/internal/batch"
	"subgen/internal/job"
)

// progressPrinter renders batch events. In live mode a single status line is
// redrawn in place and finished jobs scroll above it; otherwise one line is
// written per state change.
type progressPrinter struct {
	out      io.Writer
	live     bool
	colorize bool
	caser    cases.Caser
	drawn    bool
	// announced tracks the last state printed per job in plain mode.
	announced map[int]job.State
}

func newProgressPrinter(out io.Writer, live, colorize bool) *progressPrinter {
	return &progressPrinter{
		out:       out,
		live:      live,
		colorize:  colorize,
		caser:     cases.Title(language.English),
		announced: make(map[int]job.State),
	}
}

func (p *progressPrinter) handle(ev batch.Event) {
	snap := ev.Snapshot
	switch ev.Type {
	case batch.EventJobOutcome:
		if ev.JobIndex >= 0 && ev.JobIndex < len(snap.Jobs) {
			p.line(outcomeLine(snap.Jobs[ev.JobIndex], snap.Total, p.colorize))
		}
	case batch.EventJobState:
		if !p.live && ev.JobIndex >= 0 && ev.JobIndex < len(snap.Jobs) {
			js := snap.Jobs[ev.JobIndex]
			if js.State.Active() && p.announced[ev.JobIndex] != js.State {
				p.announced[ev.JobIndex] = js.State
				p.line(fmt.Sprintf("%s%s %s %s", statusIndent, js.Job.Label(snap.Total), p.stageLabel(js.State.Stage()), js.Job.Source))
			}
		}
	case batch.EventBatchStatus:
		if snap.Status == batch.StatusCancelling {
			p.notice("cancelling; press Ctrl+C again to abort")
		}
	}

	if !p.live {
		return
	}
	if snap.Completed() {
		p.clear()
		return
	}
	p.redraw(p.statusLine(snap))
}

// notice prints a message that stays on screen.
func (p *progressPrinter) notice(message string) {
	line := statusIndent + message
	if p.colorize {
		line = ansiYellow + line + ansiReset
	}
	p.line(line)
}

func (p *progressPrinter) line(text string) {
	p.clear()
	fmt.Fprintln(p.out, text)
}

func (p *progressPrinter) redraw(text string) {
	fmt.Fprint(p.out, ansiClearLine+text)
	p.drawn = true
}

func (p *progressPrinter) clear() {
	if p.drawn {
		fmt.Fprint(p.out, ansiClearLine)
		p.drawn = false
	}
}

func (p *progressPrinter) statusLine(snap batch.Snapshot) string {
	parts := []string{fmt.Sprintf("[%d/%d done]", snap.Done, snap.Total)}
	for _, js := range snap.Active() {
		parts = append(parts, js.Job.Label(snap.Total)+" "+p.progressLabel(js))
	}
	if snap.Status == batch.StatusCancelling {
		parts = append(parts, "cancelling")
	}
	return strings.Join(parts, "  ")
}

func (p *progressPrinter) progressLabel(js batch.JobSnapshot) string {
	label := p.stageLabel(js.State.Stage())
	pr := js.Progress
	if pr.Stage != js.State.Stage() {
		return label
	}
	switch {
	case pr.Stalled:
		return label + " (stalled)"
	case pr.Percent >= 0:
		return fmt.Sprintf("%s %3.0f%%", label, pr.Percent)
	default:
		return label
	}
}

func (p *progressPrinter) stageLabel(stage job.Stage) string {
	return p.caser.String(string(stage))
}

// outcomeLine renders a finished job as a status line.
func outcomeLine(js batch.JobSnapshot, total int, colorize bool) string {
	label := js.Job.Label(total)
	if js.Outcome == nil {
		return renderStatusLine(label, statusInfo, string(js.State), colorize)
	}
	o := *js.Outcome
	switch o.Kind {
	case job.OutcomeSuccess:
		if o.Skipped {
			return renderStatusLine(label, statusInfo, "exists "+o.SubtitlePath, colorize)
		}
		return renderStatusLine(label, statusOK, o.SubtitlePath, colorize)
	case job.OutcomeCancelled:
		return renderStatusLine(label, statusWarn, fmt.Sprintf("cancelled while %s", o.Stage), colorize)
	default:
		return renderStatusLine(label, statusError, failureDetail(o), colorize)
	}
}
