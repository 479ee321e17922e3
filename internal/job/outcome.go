package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// OutcomeKind tags the Outcome variant.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "success"
	OutcomeFailure   OutcomeKind = "failure"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the terminal result recorded for a job. Only the fields of the
// active variant are populated.
type Outcome struct {
	Kind OutcomeKind

	// Success
	SubtitlePath string
	Skipped      bool

	// Failure and Cancelled. Only Failure carries ErrorKind and Message.
	Stage     Stage
	ErrorKind ErrorKind
	Message   string
}

// Success builds a successful outcome.
func Success(subtitlePath string) Outcome {
	return Outcome{Kind: OutcomeSuccess, SubtitlePath: subtitlePath}
}

// Failure builds a failed outcome for stage.
func Failure(stage Stage, kind ErrorKind, message string) Outcome {
	return Outcome{Kind: OutcomeFailure, Stage: stage, ErrorKind: kind, Message: strings.TrimSpace(message)}
}

// Cancelled builds a cancelled outcome recording the stage that was reached.
func Cancelled(stage Stage) Outcome {
	return Outcome{Kind: OutcomeCancelled, Stage: stage}
}

// FromError folds a stage error into a terminal outcome. Cancellation,
// either through the context or a cancelled-kind stage error, yields a
// Cancelled outcome.
func FromError(stage Stage, err error) Outcome {
	if err == nil {
		return Failure(stage, KindUnknown, fmt.Sprintf("%s failed without error detail", stage))
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		if stageErr.Stage != "" {
			stage = stageErr.Stage
		}
		if stageErr.Kind == KindCancelled {
			return Cancelled(stage)
		}
		message := strings.TrimSpace(stageErr.Message)
		if message == "" {
			message = strings.TrimSpace(err.Error())
		}
		return Failure(stage, stageErr.Kind, message)
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled(stage)
	}
	return Failure(stage, KindUnknown, err.Error())
}

// State returns the terminal job state matching the outcome.
func (o Outcome) State() State {
	switch o.Kind {
	case OutcomeSuccess:
		return StateSucceeded
	case OutcomeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}

// String renders the outcome for logs and tables.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		if o.Skipped {
			return "success (existing " + o.SubtitlePath + ")"
		}
		return "success " + o.SubtitlePath
	case OutcomeCancelled:
		return fmt.Sprintf("cancelled (%s)", o.Stage)
	case OutcomeFailure:
		return fmt.Sprintf("failed at %s: %s: %s", o.Stage, o.ErrorKind, o.Message)
	default:
		return "unknown"
	}
}
