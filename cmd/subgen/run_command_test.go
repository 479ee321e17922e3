package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subgen/internal/batch"
	"subgen/internal/job"
	"subgen/internal/testsupport"
)

const stubYTDLP = `for last; do :; done
id=${last##*=}
printf 'SUBGEN_META\tVideo %s\t3\n' "$id"
echo "[download]  50.0% of 1.00MiB at 1.00MiB/s ETA 00:01"
printf 'audio' > "Video $id.mp3"
printf 'SUBGEN_FILE\t%s/Video %s.mp3\n' "$PWD" "$id"`

const stubWhisper = `echo "[00:00:00.000 --> 00:00:01.500]   hello there"
echo "[00:00:01.500 --> 00:00:03.000]   general kenobi"`

func newRunEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t,
		testsupport.WithScript("yt-dlp", stubYTDLP),
		testsupport.WithScript("whisper-cli", stubWhisper),
		testsupport.WithModelFile("ggml-base-q5_1.bin"),
	)
	return writeTestConfig(t, cfg)
}

func TestParseSourceList(t *testing.T) {
	input := "\ufeffhttps://a.example/1\n\n  # comment\nhttps://b.example/2  \r\n#https://skipped\n"
	got, err := parseSourceList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parseSourceList: %v", err)
	}
	want := []string{"https://a.example/1", "https://b.example/2"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("sources = %q, want %q", got, want)
	}
}

func TestReadSourceFileMissing(t *testing.T) {
	if _, err := readSourceFile(filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Fatal("expected error for missing source list")
	}
}

func TestResolveJobOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Batch.SkipExisting = true
	out := filepath.Join(t.TempDir(), "subs")

	opts, err := resolveJobOptions(cfg, runFlags{model: "Accurate", language: "ja", output: out, force: true})
	if err != nil {
		t.Fatalf("resolveJobOptions: %v", err)
	}
	if opts.Model != job.ModelAccurate {
		t.Fatalf("model = %q", opts.Model)
	}
	if opts.Language != "ja" || opts.OutputDir != out || opts.SkipExisting {
		t.Fatalf("unexpected options %+v", opts)
	}

	if _, err := resolveJobOptions(cfg, runFlags{model: "huge"}); err == nil {
		t.Fatal("expected error for unknown model tier")
	}
	if _, err := resolveJobOptions(cfg, runFlags{cookies: filepath.Join(t.TempDir(), "nope.txt")}); err == nil {
		t.Fatal("expected error for missing cookies file")
	}
}

func TestRunCommandRequiresSources(t *testing.T) {
	configPath := newRunEnv(t)
	_, _, err := runCLI(t, configPath, "run")
	if err == nil || !strings.Contains(err.Error(), "no URLs") {
		t.Fatalf("expected missing URL error, got %v", err)
	}
}

func TestRunCommandRejectsConcurrencyOutOfRange(t *testing.T) {
	configPath := newRunEnv(t)
	tests := []struct {
		name  string
		value string
	}{
		{"above cap", "17"},
		{"negative", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, configPath, "run", "--concurrency", tt.value, "https://example.com/watch?v=one")
			if err == nil || !strings.Contains(err.Error(), "--concurrency must be between 1 and 16") {
				t.Fatalf("expected concurrency error, got %v", err)
			}
		})
	}
	if err := validateConcurrency(0); err != nil {
		t.Fatalf("zero should defer to config: %v", err)
	}
	if err := validateConcurrency(16); err != nil {
		t.Fatalf("cap should be accepted: %v", err)
	}
}

func TestRunCommandPreflightFailure(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, testsupport.WithScript("yt-dlp", stubYTDLP), testsupport.WithScript("whisper-cli", stubWhisper))
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, configPath, "run", "https://example.com/watch?v=one")
	if !errors.Is(err, batch.ErrPreflight) {
		t.Fatalf("expected preflight error for missing model, got %v", err)
	}
}

func TestRunCommandMixedBatch(t *testing.T) {
	configPath := newRunEnv(t)

	stdout, _, err := runCLI(t, configPath, "run", "--quiet",
		"https://example.com/watch?v=one", "not a url", "https://example.com/watch?v=one")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout, "succeeded 1/2, 1 failed") {
		t.Fatalf("summary missing from output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "fetching/not_found") {
		t.Fatalf("failure detail missing from output:\n%s", stdout)
	}

	_, _, err = runCLI(t, configPath, "run", "--quiet", "--fail-on-error", "not a url")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 jobs did not succeed") {
		t.Fatalf("expected fail-on-error exit, got %v", err)
	}
}

func TestRunCommandJSONAndSkipExisting(t *testing.T) {
	configPath := newRunEnv(t)
	source := "https://example.com/watch?v=two"

	stdout, _, err := runCLI(t, configPath, "run", "--json", source)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	var first batchReport
	if err := json.Unmarshal([]byte(stdout), &first); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout)
	}
	if first.Total != 1 || first.Succeeded != 1 || len(first.Jobs) != 1 {
		t.Fatalf("unexpected report %+v", first)
	}
	subtitle := first.Jobs[0].SubtitlePath
	data, err := os.ReadFile(subtitle)
	if err != nil {
		t.Fatalf("read subtitle: %v", err)
	}
	if !strings.HasPrefix(string(data), "1\n00:00:00,000 --> 00:00:01,500\nhello there\n") {
		t.Fatalf("unexpected subtitle content:\n%s", data)
	}

	stdout, _, err = runCLI(t, configPath, "run", "--json", source)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	var second batchReport
	if err := json.Unmarshal([]byte(stdout), &second); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if second.Skipped != 1 || !second.Jobs[0].Skipped || second.Jobs[0].SubtitlePath != subtitle {
		t.Fatalf("expected existing subtitle to be reused, got %+v", second)
	}

	stdout, _, err = runCLI(t, configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.Count(stdout, "completed") != 2 {
		t.Fatalf("expected two completed batches in history:\n%s", stdout)
	}

	id := first.ID[:8]
	stdout, _, err = runCLI(t, configPath, "history", "--batch", id)
	if err != nil {
		t.Fatalf("history --batch: %v", err)
	}
	if !strings.Contains(stdout, source) || !strings.Contains(stdout, "succeeded") {
		t.Fatalf("batch detail missing job row:\n%s", stdout)
	}
}
