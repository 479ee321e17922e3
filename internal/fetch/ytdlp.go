package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"subgen/internal/config"
	"subgen/internal/deps"
	"subgen/internal/job"
	"subgen/internal/logging"
	"subgen/internal/procexec"
)

const (
	metaPrefix = "SUBGEN_META\t"
	filePrefix = "SUBGEN_FILE\t"
)

// Options configures the yt-dlp wrapper.
type Options struct {
	Binary         string
	FFmpegLocation string
	AudioFormat    string
	StallGrace     time.Duration
	Timeout        time.Duration
	CancelGrace    time.Duration
}

// Option configures a YTDLP instance.
type Option func(*YTDLP)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(y *YTDLP) {
		if exec != nil {
			y.exec = exec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(y *YTDLP) {
		y.logger = logging.NewComponentLogger(logger, "fetch")
	}
}

// YTDLP fetches audio with yt-dlp.
type YTDLP struct {
	opts   Options
	exec   procexec.Executor
	logger *slog.Logger
}

// New constructs a yt-dlp backed AudioSource.
func New(opts Options, options ...Option) *YTDLP {
	opts.Binary = strings.TrimSpace(opts.Binary)
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	y := &YTDLP{
		opts:   opts,
		exec:   procexec.Exec{},
		logger: logging.NewComponentLogger(nil, "fetch"),
	}
	for _, opt := range options {
		opt(y)
	}
	return y
}

// NewFromConfig builds a YTDLP from the fetch and batch sections.
func NewFromConfig(cfg *config.Config, options ...Option) *YTDLP {
	binary := cfg.Fetch.Binary
	if resolved, err := deps.FindExecutable(binary); err == nil {
		binary = resolved
	}
	return New(Options{
		Binary:         binary,
		FFmpegLocation: deps.FFmpegLocation(cfg.Fetch.FFmpegLocation),
		AudioFormat:    cfg.Fetch.AudioFormat,
		StallGrace:     cfg.StallGrace(),
		Timeout:        cfg.FetchTimeout(),
		CancelGrace:    cfg.CancelGrace(),
	}, options...)
}

// Fetch downloads the audio of source into req.WorkDir.
func (y *YTDLP) Fetch(ctx context.Context, source string, req Request) (Result, error) {
	if err := ValidateSource(source); err != nil {
		return Result{}, err
	}
	source = strings.TrimSpace(source)
	if strings.TrimSpace(req.WorkDir) == "" {
		return Result{}, job.FetchError(job.KindPermissionDenied, "work directory required", nil)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return Result{}, job.FetchError(job.KindPermissionDenied, "prepare work directory", err)
	}

	runCtx := ctx
	if y.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, y.opts.Timeout)
		defer cancel()
	}

	args := y.buildArgs(source, req)
	logger := logging.WithContext(ctx, y.logger)
	logger.Debug("starting yt-dlp",
		logging.String("binary", y.opts.Binary),
		logging.String("args", strings.Join(redactArgs(args), " ")),
	)

	var (
		mu        sync.Mutex
		audioPath string
		meta      metadata
		output    []string
	)
	onStdout := func(line string) {
		switch {
		case strings.HasPrefix(line, filePrefix):
			mu.Lock()
			audioPath = strings.TrimSpace(strings.TrimPrefix(line, filePrefix))
			mu.Unlock()
			return
		case strings.HasPrefix(line, metaPrefix):
			mu.Lock()
			meta = parseMetadata(strings.TrimPrefix(line, metaPrefix))
			mu.Unlock()
			return
		}
		if update, ok := parseProgress(line); ok {
			emit(req.OnProgress, update)
			return
		}
		mu.Lock()
		output = appendBounded(output, line)
		mu.Unlock()
	}
	onStderr := func(line string) {
		mu.Lock()
		output = appendBounded(output, line)
		mu.Unlock()
	}

	cmd := procexec.Command{
		Binary:    y.opts.Binary,
		Args:      args,
		Dir:       req.WorkDir,
		Grace:     y.opts.CancelGrace,
		IdleAfter: y.opts.StallGrace,
		OnIdle: func(silence time.Duration) {
			logger.Warn("yt-dlp stalled",
				logging.String(logging.FieldEventType, "fetch_stalled"),
				logging.Duration("silence", silence.Round(time.Second)),
				logging.String(logging.FieldErrorHint, "check network connectivity; the download continues"),
			)
			emit(req.OnProgress, job.Progress{
				Stage:   job.StageFetching,
				Percent: -1,
				Message: fmt.Sprintf("no output for %s", silence.Round(time.Second)),
				Stalled: true,
			})
		},
	}

	runErr := y.exec.Run(runCtx, cmd, onStdout, onStderr)
	mu.Lock()
	collected := append([]string(nil), output...)
	reported := audioPath
	info := meta
	mu.Unlock()

	if runErr != nil {
		return Result{}, classifyRunError(ctx, runErr, collected, y.opts.Timeout)
	}

	resolved, err := resolveAudioPath(req.WorkDir, reported)
	if err != nil {
		return Result{}, err
	}
	title := info.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(resolved), filepath.Ext(resolved))
	}
	emit(req.OnProgress, job.Progress{Stage: job.StageFetching, Percent: 100, Message: "download complete"})
	return Result{AudioPath: resolved, Title: title, DurationHint: info.duration}, nil
}

func (y *YTDLP) buildArgs(source string, req Request) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-simulate",
		"--no-playlist",
		"-x",
		"--audio-format", y.opts.AudioFormat,
	}
	if loc := strings.TrimSpace(y.opts.FFmpegLocation); loc != "" {
		args = append(args, "--ffmpeg-location", loc)
	}
	args = append(args, "-o", filepath.Join(req.WorkDir, "%(title)s.%(ext)s"))
	if cookies := strings.TrimSpace(req.CookiesFile); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	args = append(args,
		"--print", "before_dl:"+metaPrefix+"%(title)s\t%(duration)s",
		"--print", "after_move:"+filePrefix+"%(filepath)s",
		source,
	)
	return args
}

type metadata struct {
	title    string
	duration time.Duration
}

func parseMetadata(raw string) metadata {
	title, durationText, _ := strings.Cut(raw, "\t")
	meta := metadata{title: strings.TrimSpace(title)}
	if meta.title == "NA" {
		meta.title = ""
	}
	if secs, err := strconv.ParseFloat(strings.TrimSpace(durationText), 64); err == nil && secs > 0 {
		meta.duration = time.Duration(secs * float64(time.Second))
	}
	return meta
}

func resolveAudioPath(workDir, reported string) (string, error) {
	if reported != "" {
		candidate := reported
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(workDir, candidate)
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			if within(workDir, candidate) {
				return candidate, nil
			}
		}
	}
	newest, err := newestAudioFile(workDir)
	if err != nil {
		return "", job.FetchError(job.KindPermissionDenied, "inspect work directory", err)
	}
	if newest == "" {
		return "", job.FetchError(job.KindNotFound, "missing output: yt-dlp produced no audio file", nil)
	}
	return newest, nil
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".wav": {}, ".opus": {}, ".flac": {}, ".ogg": {}, ".webm": {}, ".aac": {},
}

func newestAudioFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(dir, entry.Name())
			bestMod = info.ModTime()
		}
	}
	return best, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func emit(fn func(job.Progress), update job.Progress) {
	if fn != nil {
		fn(update)
	}
}

const maxOutputLines = 50

func appendBounded(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxOutputLines {
		lines = lines[len(lines)-maxOutputLines:]
	}
	return lines
}

// redactArgs hides the cookies file path from log output.
func redactArgs(args []string) []string {
	redacted := append([]string(nil), args...)
	for i := 0; i < len(redacted)-1; i++ {
		if redacted[i] == "--cookies" {
			redacted[i+1] = "<redacted>"
		}
	}
	return redacted
}
