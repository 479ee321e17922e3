package transcribe

import (
	"context"

	"subgen/internal/job"
)

// Request carries per-job recognition parameters.
type Request struct {
	Model      job.ModelTier
	Language   string
	OnProgress func(job.Progress)
}

// SpeechEngine converts an audio file into timed segments. Implementations
// return either a complete normalized segment list or an error, never both.
type SpeechEngine interface {
	Recognize(ctx context.Context, audioPath string, req Request) ([]job.Segment, error)
}
