package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subgen/internal/config"
	"subgen/internal/job"
	"subgen/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableDirectory_Creates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	result := CheckWritableDirectory("out", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestCheckWritableDirectory_BlockedByFile(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckWritableDirectory("out", filepath.Join(parent, "sub")); result.Passed {
		t.Fatal("expected failure when a file blocks the path")
	}
	if result := CheckWritableDirectory("out", ""); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckModelTier(t *testing.T) {
	if !CheckModelTier(job.ModelAccurate).Passed {
		t.Fatal("expected accurate tier to pass")
	}
	result := CheckModelTier(job.ModelTier("huge"))
	if result.Passed || !strings.Contains(result.Detail, "huge") {
		t.Fatalf("unexpected result for unknown tier: %+v", result)
	}
}

func TestCheckModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if CheckModel(cfg, job.ModelFastest).Passed {
		t.Fatal("expected failure without model file")
	}
	cfg = testsupport.NewConfig(t, testsupport.WithModelFile("ggml-base-q5_1.bin"))
	if result := CheckModel(cfg, job.ModelFastest); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLanguage(t *testing.T) {
	tests := []struct {
		hint string
		pass bool
	}{
		{"zh", true},
		{"auto", true},
		{"English", true},
		{"!!", false},
	}
	for _, tc := range tests {
		if got := CheckLanguage(tc.hint).Passed; got != tc.pass {
			t.Errorf("CheckLanguage(%q).Passed = %v, want %v", tc.hint, got, tc.pass)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, job.Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func readyConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithModelFile("ggml-base-q5_1.bin"),
	)
	cfg.Fetch.Binary = "yt-dlp"
	cfg.Transcribe.Binary = "whisper-cli"
	cfg.Fetch.FFmpegLocation = ""
	return cfg
}

func TestRunAll_Ready(t *testing.T) {
	cfg := readyConfig(t)
	opts := cfg.JobOptions()
	opts.Model = job.ModelFastest

	results := RunAll(context.Background(), cfg, opts)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if err := ForBatch(cfg)(context.Background(), opts); err != nil {
		t.Fatalf("ForBatch: %v", err)
	}
}

func TestCheck_ReportsMissingPieces(t *testing.T) {
	cfg := readyConfig(t)
	cfg.Transcribe.Binary = filepath.Join(t.TempDir(), "missing-whisper")
	opts := cfg.JobOptions()
	opts.Model = job.ModelAccurate

	err := Check(context.Background(), cfg, opts)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	for _, want := range []string{"whisper-cli", "Model (accurate)"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestFailed_IgnoresOptional(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Optional: true},
		{Name: "c"},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "c" {
		t.Fatalf("unexpected failed set: %+v", failed)
	}
}
