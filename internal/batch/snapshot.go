package batch

import (
	"time"

	"subgen/internal/job"
)

// Status is the lifecycle of a batch.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRunning    Status = "running"
	StatusCancelling Status = "cancelling"
	StatusCompleted  Status = "completed"
)

// JobSnapshot is the observable state of one job.
type JobSnapshot struct {
	Job      job.Job
	State    job.State
	Progress job.Progress
	Outcome  *job.Outcome
}

// Result pairs a finished job with its outcome.
type Result struct {
	Job     job.Job
	Outcome job.Outcome
}

// Snapshot is an immutable copy of a batch's state.
type Snapshot struct {
	ID     string
	Status Status
	// Jobs is in submission order.
	Jobs []JobSnapshot
	// Results holds the finished jobs in submission order, regardless of
	// completion order.
	Results         []Result
	Total           int
	Done            int
	CancelRequested bool
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Completed reports whether every job has an outcome.
func (s Snapshot) Completed() bool { return s.Status == StatusCompleted }

// Succeeded counts successful jobs, including skipped ones.
func (s Snapshot) Succeeded() int { return s.count(job.OutcomeSuccess) }

// Failed counts failed jobs.
func (s Snapshot) Failed() int { return s.count(job.OutcomeFailure) }

// Cancelled counts cancelled jobs.
func (s Snapshot) Cancelled() int { return s.count(job.OutcomeCancelled) }

// Skipped counts jobs that reused an existing subtitle.
func (s Snapshot) Skipped() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome.Skipped {
			n++
		}
	}
	return n
}

func (s Snapshot) count(kind job.OutcomeKind) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome.Kind == kind {
			n++
		}
	}
	return n
}

// Active returns the in-flight jobs in submission order.
func (s Snapshot) Active() []JobSnapshot {
	var active []JobSnapshot
	for _, js := range s.Jobs {
		if js.State.Active() {
			active = append(active, js)
		}
	}
	return active
}

// Elapsed returns the batch runtime so far, or the total once finished.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// Label is the final status label used for history and metrics:
// "cancelled" when Cancel was requested, otherwise the status itself.
func (s Snapshot) Label() string {
	if s.Status == StatusCompleted && s.CancelRequested {
		return "cancelled"
	}
	return string(s.Status)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Jobs = make([]JobSnapshot, len(s.Jobs))
	for i, js := range s.Jobs {
		if js.Outcome != nil {
			o := *js.Outcome
			js.Outcome = &o
		}
		out.Jobs[i] = js
	}
	out.Results = append([]Result(nil), s.Results...)
	return out
}

// EventType classifies an Event.
type EventType string

const (
	EventSnapshot    EventType = "snapshot"
	EventJobState    EventType = "job_state"
	EventJobProgress EventType = "job_progress"
	EventJobOutcome  EventType = "job_outcome"
	EventBatchStatus EventType = "batch_status"
)

// Event is emitted on every change. JobIndex is -1 for batch-level events.
type Event struct {
	Type     EventType
	JobIndex int
	Snapshot Snapshot
}
