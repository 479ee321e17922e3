package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"subgen/internal/job"
	"subgen/internal/procexec"
)

var notFoundMarkers = []string{
	"http error 404",
	"video unavailable",
	"unsupported url",
	"is not a valid url",
	"does not exist",
	"no video formats found",
}

var permissionMarkers = []string{
	"http error 403",
	"sign in to confirm",
	"private video",
	"members-only",
	"login required",
	"cookies are no longer valid",
	"use --cookies",
}

// classifyRunError maps an executor error and the captured tool output onto
// a fetch error kind.
func classifyRunError(parent context.Context, err error, output []string, timeout time.Duration) error {
	switch {
	case errors.Is(err, procexec.ErrNotFound):
		return job.FetchError(job.KindExternalToolMissing, "yt-dlp not found", err)
	case parent.Err() != nil:
		return job.FetchError(job.KindCancelled, "download cancelled", parent.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return job.FetchError(job.KindNetworkError, fmt.Sprintf("download timed out after %s", timeout), err)
	}

	detail := lastErrorLine(output)
	lower := strings.ToLower(strings.Join(output, "\n"))
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return job.FetchError(job.KindNotFound, detail, err)
		}
	}
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return job.FetchError(job.KindPermissionDenied, detail, err)
		}
	}
	return job.FetchError(job.KindNetworkError, detail, err)
}

func lastErrorLine(output []string) string {
	for i := len(output) - 1; i >= 0; i-- {
		line := strings.TrimSpace(output[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	for i := len(output) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(output[i]); line != "" {
			return line
		}
	}
	return "yt-dlp failed"
}
