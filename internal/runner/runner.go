package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subgen/internal/fetch"
	"subgen/internal/job"
	"subgen/internal/logging"
	"subgen/internal/subtitles"
	"subgen/internal/transcribe"
)

// Observer receives job lifecycle notifications. Calls happen on the runner's
// goroutine and must not block for long.
type Observer interface {
	OnState(j job.Job, state job.State)
	OnProgress(j job.Job, progress job.Progress)
}

// Workspaces hands out private per-job directories.
type Workspaces interface {
	Acquire(j job.Job) (dir string, release func(), err error)
}

// WriteFunc persists segments to dest.
type WriteFunc func(segments []job.Segment, dest string) (string, error)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "runner")
	}
}

// WithEnginePool bounds concurrent transcriptions across runners sharing pool.
func WithEnginePool(pool *transcribe.EnginePool) Option {
	return func(r *Runner) {
		r.pool = pool
	}
}

// WithWriter replaces the subtitle writer (primarily for tests).
func WithWriter(write WriteFunc) Option {
	return func(r *Runner) {
		if write != nil {
			r.write = write
		}
	}
}

// Runner drives one job at a time; a single Runner is safe for concurrent
// use by multiple workers.
type Runner struct {
	source     fetch.AudioSource
	engine     transcribe.SpeechEngine
	workspaces Workspaces
	pool       *transcribe.EnginePool
	write      WriteFunc
	claims     *claimSet
	logger     *slog.Logger
}

// New constructs a Runner.
func New(source fetch.AudioSource, engine transcribe.SpeechEngine, workspaces Workspaces, opts ...Option) *Runner {
	r := &Runner{
		source:     source,
		engine:     engine,
		workspaces: workspaces,
		write:      subtitles.Write,
		claims:     newClaimSet(),
		logger:     logging.NewComponentLogger(nil, "runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes j and returns its outcome.
func (r *Runner) Run(ctx context.Context, j job.Job, obs Observer) job.Outcome {
	if obs == nil {
		obs = nopObserver{}
	}
	ctx = logging.WithJob(ctx, j.ID, j.Index)
	exec := &execution{
		runner:  r,
		job:     j,
		obs:     obs,
		state:   job.StatePending,
		logger:  logging.WithContext(ctx, r.logger),
		sampler: logging.NewProgressSampler(10),
		started: time.Now(),
	}
	outcome := exec.run(ctx)
	exec.finish(outcome)
	return outcome
}

type execution struct {
	runner  *Runner
	job     job.Job
	obs     Observer
	state   job.State
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	started time.Time
}

func (e *execution) run(ctx context.Context) job.Outcome {
	if ctx.Err() != nil {
		return job.Cancelled(job.StagePending)
	}

	e.transition(job.StateFetching)
	workDir, release, err := e.runner.workspaces.Acquire(e.job)
	if err != nil {
		return job.Failure(job.StageFetching, job.KindPermissionDenied, fmt.Sprintf("prepare workspace: %v", err))
	}
	defer release()

	fetched, err := e.runner.source.Fetch(ctx, e.job.Source, fetch.Request{
		WorkDir:     workDir,
		CookiesFile: e.job.Options.CookiesFile,
		OnProgress:  e.progress,
	})
	if err != nil {
		return e.stageFailed(ctx, job.StageFetching, err)
	}
	e.logger.Info("audio fetched",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, string(job.StageFetching)),
		logging.String("title", fetched.Title),
		logging.Duration("duration_hint", fetched.DurationHint),
	)

	dest := e.runner.claims.claim(e.job, subtitles.OutputPath(e.job.Options.OutputDir, fetched.Title, e.job.Index, e.job.ShortID()))
	if e.job.Options.SkipExisting && subtitles.Exists(dest) {
		e.transition(job.StateWriting)
		e.logger.Info("subtitle already present; skipping transcription",
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.String("subtitle", dest),
		)
		outcome := job.Success(dest)
		outcome.Skipped = true
		return outcome
	}
	if ctx.Err() != nil {
		return job.Cancelled(job.StageFetching)
	}

	e.transition(job.StateTranscribing)
	segments, err := e.transcribe(ctx, fetched.AudioPath)
	if err != nil {
		return e.stageFailed(ctx, job.StageTranscribing, err)
	}
	if ctx.Err() != nil {
		return job.Cancelled(job.StageTranscribing)
	}

	e.transition(job.StateWriting)
	path, err := e.runner.write(segments, dest)
	if err != nil {
		return e.stageFailed(ctx, job.StageWriting, err)
	}
	e.progress(job.Progress{Stage: job.StageWriting, Percent: 100, Message: "subtitle written"})
	return job.Success(path)
}

func (e *execution) transcribe(ctx context.Context, audioPath string) ([]job.Segment, error) {
	if pool := e.runner.pool; pool != nil {
		release, err := pool.Acquire(ctx)
		if err != nil {
			return nil, job.TranscribeError(job.KindCancelled, "waiting for speech engine", err)
		}
		defer release()
	}
	return e.runner.engine.Recognize(ctx, audioPath, transcribe.Request{
		Model:      e.job.Options.Model,
		Language:   e.job.Options.Language,
		OnProgress: e.progress,
	})
}

// stageFailed folds err into an outcome. A cancelled context wins over
// whatever error the collaborator produced while being torn down.
func (e *execution) stageFailed(ctx context.Context, stage job.Stage, err error) job.Outcome {
	if ctx.Err() != nil {
		return job.Cancelled(stage)
	}
	return job.FromError(stage, err)
}

func (e *execution) transition(to job.State) {
	if !job.ValidTransition(e.state, to) {
		e.logger.Error("invalid job state transition",
			logging.String("from", string(e.state)),
			logging.String("to", string(to)),
		)
		return
	}
	e.state = to
	e.sampler.Reset()
	if stage := to.Stage(); stage != job.StagePending && !to.Terminal() {
		e.logger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String(logging.FieldStage, string(stage)),
		)
	}
	e.obs.OnState(e.job, to)
}

func (e *execution) progress(p job.Progress) {
	if p.Stage == "" {
		p.Stage = e.state.Stage()
	}
	if e.sampler.ShouldLog(p.Percent, string(p.Stage)) {
		e.logger.Debug("progress",
			logging.String(logging.FieldStage, string(p.Stage)),
			logging.Float64("percent", p.Percent),
			logging.String("message", p.Message),
		)
	}
	e.obs.OnProgress(e.job, p)
}

func (e *execution) finish(outcome job.Outcome) {
	e.transition(outcome.State())
	elapsed := time.Since(e.started).Round(time.Millisecond)
	switch outcome.Kind {
	case job.OutcomeSuccess:
		e.logger.Info("job succeeded",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("subtitle", outcome.SubtitlePath),
			logging.Bool("skipped", outcome.Skipped),
			logging.Duration("elapsed", elapsed),
		)
	case job.OutcomeCancelled:
		e.logger.Info("job cancelled",
			logging.String(logging.FieldEventType, "job_cancelled"),
			logging.String(logging.FieldStage, string(outcome.Stage)),
			logging.Duration("elapsed", elapsed),
		)
	default:
		e.logger.Warn("job failed",
			logging.String(logging.FieldEventType, "job_failure"),
			logging.String(logging.FieldStage, string(outcome.Stage)),
			logging.String(logging.FieldErrorKind, string(outcome.ErrorKind)),
			logging.String("error_message", outcome.Message),
			logging.String(logging.FieldErrorHint, Hint(outcome.ErrorKind)),
			logging.Duration("elapsed", elapsed),
		)
	}
}

type nopObserver struct{}

func (nopObserver) OnState(job.Job, job.State)       {}
func (nopObserver) OnProgress(job.Job, job.Progress) {}
