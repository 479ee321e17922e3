package fetch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subgen/internal/fetch"
	"subgen/internal/job"
	"subgen/internal/procexec"
	"subgen/internal/testsupport"
)

const successScript = `printf '%s\n' "$@" > "ARGS_FILE"
printf 'SUBGEN_META\tTest Title\t12.5\n'
echo "[youtube] abc: Downloading webpage"
echo "[download]  42.3% of 1.00MiB at 1.00MiB/s ETA 00:01"
echo "[download] 100% of 1.00MiB"
printf 'audio' > "Test Title.mp3"
printf 'SUBGEN_FILE\t%s/Test Title.mp3\n' "$PWD"`

type progressLog struct {
	mu      sync.Mutex
	updates []job.Progress
}

func (p *progressLog) add(update job.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
}

func (p *progressLog) all() []job.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]job.Progress(nil), p.updates...)
}

func newFetcher(t *testing.T, body string, opts fetch.Options) (*fetch.YTDLP, string) {
	t.Helper()
	binDir := t.TempDir()
	argsFile := filepath.Join(binDir, "args.txt")
	script := testsupport.WriteScript(t, binDir, "yt-dlp", strings.ReplaceAll(body, "ARGS_FILE", argsFile))
	opts.Binary = script
	if opts.CancelGrace == 0 {
		opts.CancelGrace = time.Second
	}
	return fetch.New(opts), argsFile
}

func TestFetchSuccess(t *testing.T) {
	fetcher, argsFile := newFetcher(t, successScript, fetch.Options{FFmpegLocation: "/opt/ffmpeg/bin"})
	workDir := filepath.Join(t.TempDir(), "job")
	cookies := filepath.Join(t.TempDir(), "cookies.txt")

	var progress progressLog
	result, err := fetcher.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc", fetch.Request{
		WorkDir:     workDir,
		CookiesFile: cookies,
		OnProgress:  progress.add,
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.AudioPath != filepath.Join(workDir, "Test Title.mp3") {
		t.Fatalf("audio path = %q", result.AudioPath)
	}
	if result.Title != "Test Title" {
		t.Fatalf("title = %q", result.Title)
	}
	if result.DurationHint != 12500*time.Millisecond {
		t.Fatalf("duration = %v", result.DurationHint)
	}

	var percents []float64
	for _, update := range progress.all() {
		if update.Stage != job.StageFetching {
			t.Fatalf("unexpected stage %q", update.Stage)
		}
		percents = append(percents, update.Percent)
	}
	if len(percents) < 2 || percents[0] != 42.3 || percents[len(percents)-1] != 100 {
		t.Fatalf("unexpected progress percents %v", percents)
	}

	rawArgs, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(rawArgs)), "\n")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-x --audio-format mp3",
		"--ffmpeg-location /opt/ffmpeg/bin",
		"--cookies " + cookies,
		"-o " + filepath.Join(workDir, "%(title)s.%(ext)s"),
		"--no-playlist",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("source should be the last argument, got %q", args[len(args)-1])
	}
}

func TestFetchWithoutCookiesOmitsFlag(t *testing.T) {
	fetcher, argsFile := newFetcher(t, successScript, fetch.Options{})
	if _, err := fetcher.Fetch(context.Background(), "https://example.com/v/1", fetch.Request{WorkDir: t.TempDir()}); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	rawArgs, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if strings.Contains(string(rawArgs), "--cookies") || strings.Contains(string(rawArgs), "--ffmpeg-location") {
		t.Fatalf("unexpected optional flags in %q", rawArgs)
	}
}

type countingExecutor struct {
	calls int
	run   func(ctx context.Context) error
}

func (c *countingExecutor) Run(ctx context.Context, _ procexec.Command, _, _ procexec.LineFunc) error {
	c.calls++
	if c.run != nil {
		return c.run(ctx)
	}
	return nil
}

func TestFetchRejectsInvalidSourcesWithoutStartingProcess(t *testing.T) {
	for _, source := range []string{"", "   ", "not a url", "ftp://example.com/file", "/local/file.mp4", "https://"} {
		exec := &countingExecutor{}
		fetcher := fetch.New(fetch.Options{}, fetch.WithExecutor(exec))
		_, err := fetcher.Fetch(context.Background(), source, fetch.Request{WorkDir: t.TempDir()})
		if job.KindOf(err) != job.KindNotFound {
			t.Fatalf("source %q: kind = %q, err = %v", source, job.KindOf(err), err)
		}
		var stageErr *job.StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != job.StageFetching {
			t.Fatalf("source %q: expected fetching stage error, got %v", source, err)
		}
		if exec.calls != 0 {
			t.Fatalf("source %q: executor called %d times", source, exec.calls)
		}
	}
}

func TestFetchClassifiesToolErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
		want job.ErrorKind
	}{
		{"unavailable", "ERROR: [youtube] abc: Video unavailable", job.KindNotFound},
		{"404", "ERROR: unable to download webpage: HTTP Error 404: Not Found", job.KindNotFound},
		{"private", "ERROR: [youtube] abc: Private video. Sign in if you've been granted access", job.KindPermissionDenied},
		{"bot check", "ERROR: [youtube] abc: Sign in to confirm you're not a bot", job.KindPermissionDenied},
		{"network", "ERROR: unable to download webpage: <urlopen error [Errno -3] Temporary failure in name resolution>", job.KindNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher, _ := newFetcher(t, "echo \""+tc.line+"\" 1>&2\nexit 1", fetch.Options{})
			_, err := fetcher.Fetch(context.Background(), "https://example.com/watch", fetch.Request{WorkDir: t.TempDir()})
			if got := job.KindOf(err); got != tc.want {
				t.Fatalf("kind = %q, want %q (err %v)", got, tc.want, err)
			}
		})
	}
}

func TestFetchMissingBinary(t *testing.T) {
	fetcher := fetch.New(fetch.Options{Binary: filepath.Join(t.TempDir(), "yt-dlp")})
	_, err := fetcher.Fetch(context.Background(), "https://example.com/watch", fetch.Request{WorkDir: t.TempDir()})
	if got := job.KindOf(err); got != job.KindExternalToolMissing {
		t.Fatalf("kind = %q, want external_tool_missing (err %v)", got, err)
	}
}

func TestFetchMissingOutput(t *testing.T) {
	fetcher, _ := newFetcher(t, "echo done", fetch.Options{})
	_, err := fetcher.Fetch(context.Background(), "https://example.com/watch", fetch.Request{WorkDir: t.TempDir()})
	if got := job.KindOf(err); got != job.KindNotFound {
		t.Fatalf("kind = %q, want not_found (err %v)", got, err)
	}
	if !strings.Contains(err.Error(), "missing output") {
		t.Fatalf("expected missing output message, got %v", err)
	}
}

func TestFetchFallsBackToNewestAudioFile(t *testing.T) {
	fetcher, _ := newFetcher(t, "printf 'a' > old.m4a\nsleep 0.1\nprintf 'b' > 'Fresh Clip.mp3'", fetch.Options{})
	workDir := t.TempDir()
	result, err := fetcher.Fetch(context.Background(), "https://example.com/watch", fetch.Request{WorkDir: workDir})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.AudioPath != filepath.Join(workDir, "Fresh Clip.mp3") {
		t.Fatalf("audio path = %q", result.AudioPath)
	}
	if result.Title != "Fresh Clip" {
		t.Fatalf("title = %q", result.Title)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &countingExecutor{run: func(runCtx context.Context) error {
		cancel()
		<-runCtx.Done()
		return runCtx.Err()
	}}
	fetcher := fetch.New(fetch.Options{}, fetch.WithExecutor(exec))
	_, err := fetcher.Fetch(ctx, "https://example.com/watch", fetch.Request{WorkDir: t.TempDir()})
	if got := job.KindOf(err); got != job.KindCancelled {
		t.Fatalf("kind = %q, want cancelled (err %v)", got, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestFetchTimeoutIsNetworkError(t *testing.T) {
	fetcher, _ := newFetcher(t, "sleep 5", fetch.Options{Timeout: 200 * time.Millisecond, CancelGrace: 200 * time.Millisecond})
	_, err := fetcher.Fetch(context.Background(), "https://example.com/watch", fetch.Request{WorkDir: t.TempDir()})
	if got := job.KindOf(err); got != job.KindNetworkError {
		t.Fatalf("kind = %q, want network_error (err %v)", got, err)
	}
}

func TestFetchReportsStall(t *testing.T) {
	body := "echo '[download]   1.0% of 1.00MiB'\nsleep 1\n" + successScript
	fetcher, _ := newFetcher(t, body, fetch.Options{StallGrace: 300 * time.Millisecond})

	var progress progressLog
	if _, err := fetcher.Fetch(context.Background(), "https://example.com/watch", fetch.Request{WorkDir: t.TempDir(), OnProgress: progress.add}); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	stalls := 0
	for _, update := range progress.all() {
		if update.Stalled {
			stalls++
		}
	}
	if stalls != 1 {
		t.Fatalf("stalled events = %d, want 1", stalls)
	}
}
