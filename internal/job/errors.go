package job

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	// Fetch kinds.
	KindNotFound            ErrorKind = "not_found"
	KindNetworkError        ErrorKind = "network_error"
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindExternalToolMissing ErrorKind = "external_tool_missing"

	// Transcribe kinds.
	KindModelMissing    ErrorKind = "model_missing"
	KindTimeout         ErrorKind = "timeout"
	KindMalformedOutput ErrorKind = "malformed_output"

	// Write kinds.
	KindPathNotWritable ErrorKind = "path_not_writable"
	KindEmptyInput      ErrorKind = "empty_input"

	// Shared.
	KindCancelled ErrorKind = "cancelled"
	KindUnknown   ErrorKind = "unknown"
)

// StageError is a stage-aware error with a classification kind.
type StageError struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
	Err     error
}

// Error formats stage failures for logs and UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	if e.Stage != "" {
		parts = append(parts, string(e.Stage))
	}
	if e.Kind != "" {
		parts = append(parts, string(e.Kind))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	text := strings.Join(parts, ": ")
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", text, e.Err)
	}
	return text
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind satisfies classifiers that inspect failure kinds.
func (e *StageError) ErrorKind() string {
	if e == nil {
		return ""
	}
	return string(e.Kind)
}

// FetchError builds an AudioFetcher failure.
func FetchError(kind ErrorKind, message string, err error) *StageError {
	return &StageError{Stage: StageFetching, Kind: kind, Message: message, Err: err}
}

// TranscribeError builds a Transcriber failure.
func TranscribeError(kind ErrorKind, message string, err error) *StageError {
	return &StageError{Stage: StageTranscribing, Kind: kind, Message: message, Err: err}
}

// WriteError builds a SubtitleWriter failure.
func WriteError(kind ErrorKind, message string, err error) *StageError {
	return &StageError{Stage: StageWriting, Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err when it is a *StageError.
func KindOf(err error) ErrorKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return KindUnknown
}
