package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"subgen/internal/config"
	"subgen/internal/deps"
	"subgen/internal/job"
	"subgen/internal/language"
	"subgen/internal/transcribe"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableDirectory creates path when missing, then checks access.
func CheckWritableDirectory(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckSystemDeps evaluates the external tools for the given config.
// Both batch submission and the CLI check command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	ffmpeg := "ffmpeg"
	if location := deps.FFmpegLocation(cfg.Fetch.FFmpegLocation); location != "" {
		ffmpeg = location + string(os.PathSeparator) + "ffmpeg"
	}
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Fetch.Binary,
			Description: "Required for audio download",
		},
		{
			Name:        "whisper-cli",
			Command:     cfg.Transcribe.Binary,
			Description: "Required for transcription",
		},
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Used by yt-dlp for audio extraction",
			Optional:    true,
		},
	})
}

// CheckModelTier rejects unknown tier identifiers.
func CheckModelTier(tier job.ModelTier) Result {
	const name = "Model tier"
	if !tier.Valid() {
		return Result{Name: name, Detail: fmt.Sprintf("unknown tier %q (want one of %v)", tier, job.ModelTiers())}
	}
	return Result{Name: name, Passed: true, Detail: string(tier)}
}

// CheckModel verifies the model file for tier is present.
func CheckModel(cfg *config.Config, tier job.ModelTier) Result {
	name := fmt.Sprintf("Model (%s)", tier)
	path, err := transcribe.CatalogFromConfig(cfg).Resolve(tier)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckLanguage verifies the language hint is understood by the engine.
func CheckLanguage(hint string) Result {
	const name = "Language"
	code, err := language.Resolve(hint)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", code, language.DisplayName(code))}
}

func resultFromStatus(status deps.Status) Result {
	r := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	switch {
	case status.Available:
		r.Detail = status.Path
	case status.Detail != "":
		r.Detail = fmt.Sprintf("%s; %s", status.Detail, status.Description)
	default:
		r.Detail = status.Description
	}
	return r
}
