package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"subgen/internal/config"
	"subgen/internal/deps"
	"subgen/internal/job"
	"subgen/internal/language"
	"subgen/internal/logging"
	"subgen/internal/procexec"
)

// Options configures the whisper-cli wrapper.
type Options struct {
	Binary      string
	Catalog     Catalog
	Threads     int
	Processors  int
	Timeout     time.Duration
	CancelGrace time.Duration
}

// Option configures a WhisperCLI instance.
type Option func(*WhisperCLI)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(w *WhisperCLI) {
		if exec != nil {
			w.exec = exec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *WhisperCLI) {
		w.logger = logging.NewComponentLogger(logger, "transcribe")
	}
}

// WhisperCLI runs whisper.cpp's command-line tool.
type WhisperCLI struct {
	opts   Options
	exec   procexec.Executor
	logger *slog.Logger
}

// NewWhisperCLI constructs a whisper-cli backed SpeechEngine.
func NewWhisperCLI(opts Options, options ...Option) *WhisperCLI {
	opts.Binary = strings.TrimSpace(opts.Binary)
	if opts.Binary == "" {
		opts.Binary = "whisper-cli"
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.Processors <= 0 {
		opts.Processors = 1
	}
	w := &WhisperCLI{
		opts:   opts,
		exec:   procexec.Exec{},
		logger: logging.NewComponentLogger(nil, "transcribe"),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// NewFromConfig builds a WhisperCLI from the transcribe and batch sections.
func NewFromConfig(cfg *config.Config, options ...Option) *WhisperCLI {
	binary := cfg.Transcribe.Binary
	if resolved, err := deps.FindExecutable(binary); err == nil {
		binary = resolved
	}
	return NewWhisperCLI(Options{
		Binary:      binary,
		Catalog:     CatalogFromConfig(cfg),
		Threads:     cfg.Transcribe.Threads,
		Processors:  cfg.Transcribe.Processors,
		Timeout:     cfg.TranscribeTimeout(),
		CancelGrace: cfg.CancelGrace(),
	}, options...)
}

// CatalogFromConfig returns the model catalog described by cfg.
func CatalogFromConfig(cfg *config.Config) Catalog {
	return Catalog{Dir: cfg.Transcribe.ModelDir, Overrides: cfg.Transcribe.ModelOverrides}
}

// Recognize transcribes audioPath.
func (w *WhisperCLI) Recognize(ctx context.Context, audioPath string, req Request) ([]job.Segment, error) {
	if err := checkAudio(audioPath); err != nil {
		return nil, err
	}
	modelPath, err := w.opts.Catalog.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	lang, err := language.Resolve(req.Language)
	if err != nil {
		return nil, job.TranscribeError(job.KindMalformedOutput, err.Error(), err)
	}

	runCtx := ctx
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-l", lang,
		"-t", strconv.Itoa(w.opts.Threads),
		"-p", strconv.Itoa(w.opts.Processors),
		"-pp",
	}
	logger := logging.WithContext(ctx, w.logger)
	logger.Debug("starting whisper-cli",
		logging.String("binary", w.opts.Binary),
		logging.String("args", strings.Join(args, " ")),
	)

	var (
		mu       sync.Mutex
		segments []job.Segment
		parseErr error
	)
	onStdout := func(line string) {
		seg, ok, err := parseSegmentLine(line)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if parseErr == nil {
				parseErr = err
			}
			return
		}
		if ok {
			segments = append(segments, seg)
		}
	}
	onStderr := func(line string) {
		if percent, ok := parseProgress(line); ok && req.OnProgress != nil {
			req.OnProgress(job.Progress{
				Stage:   job.StageTranscribing,
				Percent: percent,
				Message: fmt.Sprintf("transcribing %.0f%%", percent),
			})
		}
	}

	started := time.Now()
	runErr := w.exec.Run(runCtx, procexec.Command{
		Binary: w.opts.Binary,
		Args:   args,
		Grace:  w.opts.CancelGrace,
	}, onStdout, onStderr)
	if runErr != nil {
		return nil, w.classify(ctx, runErr)
	}

	mu.Lock()
	collected := segments
	firstParseErr := parseErr
	mu.Unlock()
	if firstParseErr != nil {
		return nil, job.TranscribeError(job.KindMalformedOutput, firstParseErr.Error(), firstParseErr)
	}

	normalized := Normalize(collected)
	logger.Info("transcription finished",
		logging.Int("raw_segments", len(collected)),
		logging.Int("segments", len(normalized)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return normalized, nil
}

func (w *WhisperCLI) classify(parent context.Context, err error) error {
	var exitErr *procexec.ExitError
	switch {
	case errors.Is(err, procexec.ErrNotFound):
		return job.TranscribeError(job.KindExternalToolMissing, "whisper-cli not found", err)
	case parent.Err() != nil:
		return job.TranscribeError(job.KindCancelled, "transcription cancelled", parent.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return job.TranscribeError(job.KindTimeout, fmt.Sprintf("transcription exceeded %s", w.opts.Timeout), err)
	case errors.As(err, &exitErr):
		detail := exitErr.LastLine()
		if detail == "" {
			detail = fmt.Sprintf("whisper-cli exited with status %d", exitErr.Code)
		}
		return job.TranscribeError(job.KindMalformedOutput, detail, err)
	default:
		return job.TranscribeError(job.KindMalformedOutput, err.Error(), err)
	}
}

func checkAudio(path string) error {
	if strings.TrimSpace(path) == "" {
		return job.TranscribeError(job.KindMalformedOutput, "audio path required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return job.TranscribeError(job.KindMalformedOutput, "audio file not readable: "+path, err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return job.TranscribeError(job.KindMalformedOutput, "audio file empty or not a file: "+path, nil)
	}
	return nil
}
