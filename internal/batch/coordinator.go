package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"subgen/internal/job"
	"subgen/internal/logging"
)

const subscriberBuffer = 64

type requestKind int

const (
	requestSnapshot requestKind = iota
	requestCancel
	requestSubscribe
	requestUnsubscribe
)

type request struct {
	kind     requestKind
	snapshot chan Snapshot
	sub      chan Event
}

type updateKind int

const (
	updateState updateKind = iota
	updateProgress
	updateOutcome
)

type update struct {
	kind     updateKind
	index    int
	state    job.State
	progress job.Progress
	outcome  job.Outcome
}

// workerObserver forwards runner callbacks to the coordinator.
type workerObserver struct {
	updates chan<- update
}

func (o workerObserver) OnState(j job.Job, state job.State) {
	o.updates <- update{kind: updateState, index: j.Index, state: state}
}

func (o workerObserver) OnProgress(j job.Job, p job.Progress) {
	o.updates <- update{kind: updateProgress, index: j.Index, progress: p}
}

type coordinator struct {
	sched  *Scheduler
	handle *Handle
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	state    Snapshot
	next     int
	subs     map[chan Event]struct{}
	updates  chan update
	dispatch chan job.Job
	wg       sync.WaitGroup
}

func (c *coordinator) run() {
	defer c.cancel()
	jobs := c.handle.jobs
	c.state = Snapshot{
		ID:     c.handle.id,
		Status: StatusIdle,
		Jobs:   make([]JobSnapshot, len(jobs)),
		Total:  len(jobs),
	}
	for i, j := range jobs {
		c.state.Jobs[i] = JobSnapshot{Job: j, State: job.StatePending}
	}
	c.subs = make(map[chan Event]struct{})
	c.updates = make(chan update, c.sched.concurrency*4)
	c.dispatch = make(chan job.Job)

	c.recordStart()
	c.state.StartedAt = time.Now()
	c.setStatus(StatusRunning)
	workers := min(c.sched.concurrency, len(jobs))
	c.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("jobs", len(jobs)),
		logging.Int("concurrency", workers),
	)
	for range workers {
		c.wg.Add(1)
		go c.worker()
	}

	for c.state.Done < c.state.Total {
		var (
			dispatch chan job.Job
			next     job.Job
		)
		if c.state.Status == StatusRunning && c.next < len(jobs) {
			dispatch = c.dispatch
			next = jobs[c.next]
		}
		select {
		case dispatch <- next:
			c.next++
		case u := <-c.updates:
			c.apply(u)
		case req := <-c.handle.requests:
			c.serve(req)
		}
	}
	close(c.dispatch)
	c.wg.Wait()
	c.finish()
}

func (c *coordinator) worker() {
	defer c.wg.Done()
	obs := workerObserver{updates: c.updates}
	for j := range c.dispatch {
		outcome := c.sched.runner.Run(c.ctx, j, obs)
		c.updates <- update{kind: updateOutcome, index: j.Index, outcome: outcome}
	}
}

func (c *coordinator) apply(u update) {
	js := &c.state.Jobs[u.index]
	switch u.kind {
	case updateState:
		if js.Outcome != nil || js.State == u.state {
			return
		}
		js.State = u.state
		for _, o := range c.sched.observers {
			o.JobState(js.Job, u.state)
		}
		c.emit(EventJobState, u.index)
	case updateProgress:
		if js.Outcome != nil {
			return
		}
		js.Progress = u.progress
		c.emit(EventJobProgress, u.index)
	case updateOutcome:
		c.settle(u.index, u.outcome)
	}
}

// settle records the single outcome of a job.
func (c *coordinator) settle(index int, outcome job.Outcome) {
	js := &c.state.Jobs[index]
	if js.Outcome != nil {
		return
	}
	if state := outcome.State(); js.State != state {
		js.State = state
		for _, o := range c.sched.observers {
			o.JobState(js.Job, state)
		}
	}
	js.Outcome = &outcome
	c.state.Done++
	c.state.Results = c.state.Results[:0:0]
	for _, other := range c.state.Jobs {
		if other.Outcome != nil {
			c.state.Results = append(c.state.Results, Result{Job: other.Job, Outcome: *other.Outcome})
		}
	}

	if c.sched.recorder != nil {
		if err := c.sched.recorder.JobFinished(c.recordCtx(), c.state.ID, js.Job, outcome); err != nil {
			c.logger.Warn("history update failed; batch continues",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_write_failed"),
				logging.String(logging.FieldErrorHint, "check history_path permissions"),
			)
		}
	}
	for _, o := range c.sched.observers {
		o.JobOutcome(js.Job, outcome)
	}
	c.emit(EventJobOutcome, index)
}

func (c *coordinator) serve(req request) {
	switch req.kind {
	case requestSnapshot:
		req.snapshot <- c.state.clone()
	case requestCancel:
		c.requestCancel()
	case requestSubscribe:
		c.subs[req.sub] = struct{}{}
		snap := c.state.clone()
		deliver(req.sub, Event{Type: EventSnapshot, JobIndex: -1, Snapshot: snap})
		req.snapshot <- snap
	case requestUnsubscribe:
		if _, ok := c.subs[req.sub]; ok {
			delete(c.subs, req.sub)
			close(req.sub)
		}
	}
}

func (c *coordinator) requestCancel() {
	if c.state.Status != StatusRunning {
		return
	}
	c.state.CancelRequested = true
	c.setStatus(StatusCancelling)
	c.cancel()
	drained := len(c.handle.jobs) - c.next
	for ; c.next < len(c.handle.jobs); c.next++ {
		c.settle(c.next, job.Cancelled(job.StagePending))
	}
	c.logger.Info("batch cancellation requested",
		logging.String(logging.FieldEventType, "batch_cancel"),
		logging.Int("drained", drained),
		logging.Int("in_flight", c.state.Total-c.state.Done),
	)
}

func (c *coordinator) finish() {
	c.state.FinishedAt = time.Now()
	c.state.Status = StatusCompleted
	final := c.state.clone()
	c.handle.final = final
	label := final.Label()

	if c.sched.recorder != nil {
		if err := c.sched.recorder.BatchFinished(c.recordCtx(), final.ID, label); err != nil {
			c.logger.Warn("history finalize failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "history_write_failed"),
				logging.String(logging.FieldErrorHint, "check history_path permissions"),
			)
		}
	}
	for _, o := range c.sched.observers {
		o.BatchCompleted(label)
	}
	c.emit(EventBatchStatus, -1)
	for sub := range c.subs {
		close(sub)
	}
	c.subs = nil

	c.logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.String("status", label),
		logging.Int("succeeded", final.Succeeded()),
		logging.Int("failed", final.Failed()),
		logging.Int("cancelled", final.Cancelled()),
		logging.Int("skipped", final.Skipped()),
		logging.Int("total", final.Total),
		logging.Duration("elapsed", final.Elapsed().Round(time.Millisecond)),
	)
	close(c.handle.done)
}

func (c *coordinator) setStatus(status Status) {
	c.state.Status = status
	c.emit(EventBatchStatus, -1)
}

func (c *coordinator) recordStart() {
	if c.sched.recorder == nil {
		return
	}
	if err := c.sched.recorder.BatchStarted(c.recordCtx(), c.handle.id, c.handle.jobs); err != nil {
		c.logger.Warn("history insert failed; batch continues unrecorded",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_write_failed"),
			logging.String(logging.FieldErrorHint, "check history_path permissions"),
		)
	}
}

func (c *coordinator) recordCtx() context.Context {
	return context.WithoutCancel(c.ctx)
}

func (c *coordinator) emit(kind EventType, index int) {
	if len(c.subs) == 0 {
		return
	}
	ev := Event{Type: kind, JobIndex: index, Snapshot: c.state.clone()}
	for sub := range c.subs {
		deliver(sub, ev)
	}
}

// deliver never blocks: when the buffer is full the oldest event is dropped.
// Every event carries a full snapshot, so only intermediate detail is lost.
func deliver(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
