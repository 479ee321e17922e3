// Package metrics exposes Prometheus instrumentation for batch runs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"subgen/internal/job"
)

const namespace = "subgen"

// Metrics records job lifecycle measurements into its own registry.
type Metrics struct {
	registry *prometheus.Registry

	jobsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge
	batchesTotal  *prometheus.CounterVec

	mu      sync.Mutex
	stages  map[string]stageMark
	nowFunc func() time.Time
}

type stageMark struct {
	state job.State
	at    time.Time
}

// New builds a Metrics instance. pool may be nil; when set, engine slot
// usage is read at scrape time.
func New(pool PoolStats) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs finished, by outcome, stage and error kind.",
		}, []string{"outcome", "stage", "error_kind"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per job stage.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s → ~17m
		}, []string{"stage"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Jobs currently fetching, transcribing or writing.",
		}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches finished, by final status.",
		}, []string{"status"}),
		stages:  make(map[string]stageMark),
		nowFunc: time.Now,
	}
	m.registry.MustRegister(m.jobsTotal, m.stageDuration, m.jobsInFlight, m.batchesTotal)
	if pool != nil {
		m.registry.MustRegister(newPoolCollector(pool))
	}
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// JobState records a state transition, closing the timer of the previous
// stage.
func (m *Metrics) JobState(j job.Job, state job.State) {
	now := m.nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, seen := m.stages[j.ID]
	if seen && prev.state.Active() {
		m.stageDuration.WithLabelValues(string(prev.state.Stage())).Observe(now.Sub(prev.at).Seconds())
	}
	wasActive := seen && prev.state.Active()
	switch {
	case state.Active() && !wasActive:
		m.jobsInFlight.Inc()
	case !state.Active() && wasActive:
		m.jobsInFlight.Dec()
	}
	if state.Terminal() {
		delete(m.stages, j.ID)
		return
	}
	m.stages[j.ID] = stageMark{state: state, at: now}
}

// JobOutcome counts a finished job.
func (m *Metrics) JobOutcome(_ job.Job, outcome job.Outcome) {
	m.jobsTotal.WithLabelValues(string(outcome.Kind), string(outcome.Stage), string(outcome.ErrorKind)).Inc()
}

// BatchCompleted counts a finished batch.
func (m *Metrics) BatchCompleted(status string) {
	m.batchesTotal.WithLabelValues(status).Inc()
}
