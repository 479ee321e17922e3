package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subgen/internal/job"
)

type fakePool struct{ size, inUse int }

func (p fakePool) Size() int  { return p.size }
func (p fakePool) InUse() int { return p.inUse }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func assertContains(t *testing.T, text string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, text)
		}
	}
}

func TestJobStateTracksInFlightAndStageDurations(t *testing.T) {
	m := New(nil)
	clock := time.Unix(0, 0)
	m.nowFunc = func() time.Time { return clock }

	j := job.New(0, "https://example.com/a", job.Options{Model: job.ModelFastest})
	m.JobState(j, job.StateFetching)
	assertContains(t, scrape(t, m), "subgen_jobs_in_flight 1")

	clock = clock.Add(2 * time.Second)
	m.JobState(j, job.StateTranscribing)
	clock = clock.Add(3 * time.Second)
	m.JobState(j, job.StateWriting)
	m.JobState(j, job.StateSucceeded)
	m.JobOutcome(j, job.Success("/out/a.srt"))

	assertContains(t, scrape(t, m),
		"subgen_jobs_in_flight 0",
		`subgen_stage_duration_seconds_sum{stage="fetching"} 2`,
		`subgen_stage_duration_seconds_sum{stage="transcribing"} 3`,
		`subgen_stage_duration_seconds_count{stage="writing"} 1`,
		`subgen_jobs_total{error_kind="",outcome="success",stage=""} 1`,
	)
	if len(m.stages) != 0 {
		t.Fatalf("terminal job left tracked: %v", m.stages)
	}
}

func TestCancelledPendingJobNeverCountsInFlight(t *testing.T) {
	m := New(nil)
	j := job.New(1, "https://example.com/b", job.Options{})
	m.JobState(j, job.StateCancelled)
	m.JobOutcome(j, job.Cancelled(job.StagePending))
	assertContains(t, scrape(t, m),
		"subgen_jobs_in_flight 0",
		`subgen_jobs_total{error_kind="",outcome="cancelled",stage="pending"} 1`,
	)
}

func TestCancelledRunningJobDropsFromInFlight(t *testing.T) {
	m := New(nil)
	clock := time.Unix(0, 0)
	m.nowFunc = func() time.Time { return clock }

	j := job.New(2, "https://example.com/c", job.Options{Model: job.ModelFastest})
	m.JobState(j, job.StateFetching)
	clock = clock.Add(time.Second)
	m.JobState(j, job.StateTranscribing)
	assertContains(t, scrape(t, m), "subgen_jobs_in_flight 1")

	clock = clock.Add(4 * time.Second)
	m.JobState(j, job.StateCancelled)
	m.JobOutcome(j, job.Cancelled(job.StageTranscribing))
	assertContains(t, scrape(t, m),
		"subgen_jobs_in_flight 0",
		`subgen_stage_duration_seconds_sum{stage="transcribing"} 4`,
		`subgen_jobs_total{error_kind="",outcome="cancelled",stage="transcribing"} 1`,
	)
	if len(m.stages) != 0 {
		t.Fatalf("cancelled job left tracked: %v", m.stages)
	}
}

func TestServerExposesMetrics(t *testing.T) {
	m := New(fakePool{size: 2, inUse: 1})
	m.BatchCompleted("completed")

	srv, err := m.Start("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assertContains(t, string(body),
		`subgen_batches_total{status="completed"} 1`,
		"subgen_engine_pool_slots 2",
		"subgen_engine_pool_slots_in_use 1",
	)
}
