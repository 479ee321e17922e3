package job_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"subgen/internal/job"
)

func TestValidTransitionFollowsPipelineOrder(t *testing.T) {
	cases := []struct {
		from job.State
		to   job.State
		want bool
	}{
		{job.StatePending, job.StateFetching, true},
		{job.StatePending, job.StateCancelled, true},
		{job.StatePending, job.StateTranscribing, false},
		{job.StateFetching, job.StateTranscribing, true},
		{job.StateFetching, job.StateFailed, true},
		{job.StateTranscribing, job.StateWriting, true},
		{job.StateTranscribing, job.StateFetching, false},
		{job.StateWriting, job.StateSucceeded, true},
		{job.StateSucceeded, job.StateFetching, false},
		{job.StateFailed, job.StatePending, false},
		{job.StateCancelled, job.StateFetching, false},
	}
	for _, tc := range cases {
		if got := job.ValidTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseModelTier(t *testing.T) {
	tier, err := job.ParseModelTier("  Balanced ")
	if err != nil {
		t.Fatalf("ParseModelTier returned error: %v", err)
	}
	if tier != job.ModelBalanced {
		t.Fatalf("unexpected tier %q", tier)
	}
	if _, err := job.ParseModelTier("huge"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestFromErrorPreservesStageAndKind(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("wrapped: %w", job.FetchError(job.KindNotFound, "video unavailable", cause))

	outcome := job.FromError(job.StageFetching, err)
	if outcome.Kind != job.OutcomeFailure {
		t.Fatalf("expected failure, got %s", outcome.Kind)
	}
	if outcome.Stage != job.StageFetching || outcome.ErrorKind != job.KindNotFound {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Message != "video unavailable" {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
	if outcome.State() != job.StateFailed {
		t.Fatalf("unexpected state %s", outcome.State())
	}
}

func TestFromErrorMapsCancellation(t *testing.T) {
	outcome := job.FromError(job.StageTranscribing, fmt.Errorf("run: %w", context.Canceled))
	if outcome.Kind != job.OutcomeCancelled || outcome.Stage != job.StageTranscribing {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	outcome = job.FromError(job.StageFetching, job.TranscribeError(job.KindCancelled, "stopped", nil))
	if outcome.Kind != job.OutcomeCancelled {
		t.Fatalf("expected cancelled outcome, got %+v", outcome)
	}
	if outcome.Stage != job.StageTranscribing {
		t.Fatalf("expected stage from stage error, got %s", outcome.Stage)
	}
	if outcome.ErrorKind != "" || outcome.Message != "" {
		t.Fatalf("cancelled outcome should carry no error detail, got %+v", outcome)
	}
	if got := job.Cancelled(job.StagePending).String(); got != "cancelled (pending)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := job.WriteError(job.KindPathNotWritable, "cannot write", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach cause")
	}
	if job.KindOf(fmt.Errorf("x: %w", err)) != job.KindPathNotWritable {
		t.Fatal("expected KindOf to unwrap stage error")
	}
	if got := err.Error(); got != "writing: path_not_writable: cannot write: disk full" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := job.New(0, "https://example.com/a", job.Options{})
	b := job.New(1, "https://example.com/b", job.Options{})
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if len(a.ShortID()) != 8 {
		t.Fatalf("unexpected short id %q", a.ShortID())
	}
	if a.Label(3) != "1/3" {
		t.Fatalf("unexpected label %q", a.Label(3))
	}
}
