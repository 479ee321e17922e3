package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"subgen/internal/job"
	"subgen/internal/logging"
	"subgen/internal/runner"
)

var (
	// ErrEmptyBatch is returned when no usable source remains after cleanup.
	ErrEmptyBatch = errors.New("batch has no sources")
	// ErrInvalidOptions wraps option validation failures.
	ErrInvalidOptions = errors.New("invalid job options")
	// ErrPreflight wraps setup failures detected before any job runs.
	ErrPreflight = errors.New("batch preflight failed")
)

// JobRunner executes one job to completion.
type JobRunner interface {
	Run(ctx context.Context, j job.Job, obs runner.Observer) job.Outcome
}

// PreflightFunc validates a submission before the batch is created.
type PreflightFunc func(ctx context.Context, opts job.Options) error

// Recorder persists batch history. Errors are logged and never fail a batch.
type Recorder interface {
	BatchStarted(ctx context.Context, batchID string, jobs []job.Job) error
	JobFinished(ctx context.Context, batchID string, j job.Job, outcome job.Outcome) error
	BatchFinished(ctx context.Context, batchID, status string) error
}

// Observer receives lifecycle callbacks on the coordinator goroutine and
// must return quickly.
type Observer interface {
	JobState(j job.Job, state job.State)
	JobOutcome(j job.Job, outcome job.Outcome)
	BatchCompleted(status string)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets the worker count; values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithPreflight installs a setup check run by Submit.
func WithPreflight(fn PreflightFunc) Option {
	return func(s *Scheduler) { s.preflight = fn }
}

// WithRecorder installs a history sink.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logging.NewComponentLogger(logger, "batch")
	}
}

// Scheduler submits and supervises batches.
type Scheduler struct {
	runner      JobRunner
	concurrency int
	preflight   PreflightFunc
	recorder    Recorder
	observers   []Observer
	logger      *slog.Logger
}

// New constructs a Scheduler around r.
func New(r JobRunner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:      r,
		concurrency: 1,
		logger:      logging.NewComponentLogger(nil, "batch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Concurrency returns the worker count.
func (s *Scheduler) Concurrency() int { return s.concurrency }

// NormalizeSources trims sources and drops blanks and duplicates, keeping
// first-seen order.
func NormalizeSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

// Submit validates the request and starts a batch. ctx bounds validation
// only; the batch runs until it completes or Cancel is called.
func (s *Scheduler) Submit(ctx context.Context, sources []string, opts job.Options) (*Handle, error) {
	cleaned := NormalizeSources(sources)
	if len(cleaned) == 0 {
		return nil, ErrEmptyBatch
	}
	if !opts.Model.Valid() {
		return nil, fmt.Errorf("%w: unknown model tier %q", ErrInvalidOptions, opts.Model)
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("%w: output directory required", ErrInvalidOptions)
	}
	if s.preflight != nil {
		if err := s.preflight(ctx, opts); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPreflight, err)
		}
	}

	jobs := make([]job.Job, len(cleaned))
	for i, src := range cleaned {
		jobs[i] = job.New(i, src, opts)
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(logging.WithBatch(context.WithoutCancel(ctx), id))
	h := newHandle(id, jobs)
	c := &coordinator{
		sched:  s,
		handle: h,
		ctx:    runCtx,
		cancel: cancel,
		logger: logging.WithContext(runCtx, s.logger),
	}
	go c.run()
	return h, nil
}

// Cancel requests cancellation. It returns immediately and is a no-op for a
// completed batch.
func (s *Scheduler) Cancel(h *Handle) {
	select {
	case h.requests <- request{kind: requestCancel}:
	case <-h.done:
	}
}

// Progress returns a snapshot of the batch.
func (s *Scheduler) Progress(h *Handle) Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case h.requests <- request{kind: requestSnapshot, snapshot: reply}:
		return <-reply
	case <-h.done:
		return h.final.clone()
	}
}

// Wait blocks until the batch completes or ctx is done. On ctx expiry the
// current snapshot is returned with ctx's error.
func (s *Scheduler) Wait(ctx context.Context, h *Handle) (Snapshot, error) {
	select {
	case <-h.done:
		return h.final.clone(), nil
	case <-ctx.Done():
		return s.Progress(h), ctx.Err()
	}
}

// Subscribe returns a channel of events starting with the current snapshot.
// The channel closes after the completion event. Slow readers lose
// intermediate events, never the final one. The returned func unsubscribes.
func (s *Scheduler) Subscribe(h *Handle) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	reply := make(chan Snapshot, 1)
	select {
	case h.requests <- request{kind: requestSubscribe, sub: ch, snapshot: reply}:
		<-reply
	case <-h.done:
		ch <- Event{Type: EventBatchStatus, JobIndex: -1, Snapshot: h.final.clone()}
		close(ch)
		return ch, func() {}
	}
	unsubscribe := func() {
		select {
		case h.requests <- request{kind: requestUnsubscribe, sub: ch}:
		case <-h.done:
		}
	}
	return ch, unsubscribe
}

// Handle identifies a submitted batch.
type Handle struct {
	id       string
	total    int
	requests chan request
	done     chan struct{}
	jobs     []job.Job
	// final is written by the coordinator before done is closed.
	final Snapshot
}

func newHandle(id string, jobs []job.Job) *Handle {
	return &Handle{
		id:       id,
		total:    len(jobs),
		requests: make(chan request),
		done:     make(chan struct{}),
		jobs:     jobs,
	}
}

// ID returns the batch identifier.
func (h *Handle) ID() string { return h.id }

// Total returns the number of jobs in the batch.
func (h *Handle) Total() int { return h.total }

// Done is closed once the batch has completed.
func (h *Handle) Done() <-chan struct{} { return h.done }
