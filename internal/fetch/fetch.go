package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"subgen/internal/job"
)

// Request carries the per-job parameters of a fetch.
type Request struct {
	// WorkDir is the job's private directory. All output lands here.
	WorkDir string
	// CookiesFile is passed to the tool unmodified when set.
	CookiesFile string
	OnProgress  func(job.Progress)
}

// Result describes the downloaded audio.
type Result struct {
	AudioPath    string
	Title        string
	DurationHint time.Duration
}

// AudioSource retrieves audio for a source locator.
type AudioSource interface {
	Fetch(ctx context.Context, source string, req Request) (Result, error)
}

// ValidateSource checks that source is an absolute http(s) URL.
func ValidateSource(source string) error {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return job.FetchError(job.KindNotFound, "empty source", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return job.FetchError(job.KindNotFound, "malformed source locator", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return job.FetchError(job.KindNotFound, "malformed source locator: "+trimmed, nil)
	}
	return nil
}
