package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized key for component names.
	FieldComponent = "component"
	// FieldBatchID identifies the batch a log line belongs to.
	FieldBatchID = "batch_id"
	// FieldJobID identifies the job a log line belongs to.
	FieldJobID = "job_id"
	// FieldJobIndex is the 1-based position of the job within its batch.
	FieldJobIndex = "job_index"
	// FieldStage is the pipeline stage name.
	FieldStage = "stage"
	// FieldEventType tags machine-readable event categories.
	FieldEventType = "event_type"
	// FieldErrorKind carries the classified failure kind.
	FieldErrorKind = "error_kind"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
)

type contextKey string

const (
	batchIDKey  contextKey = "batch_id"
	jobIDKey    contextKey = "job_id"
	jobIndexKey contextKey = "job_index"
	stageKey    contextKey = "stage"
)

// WithBatch annotates ctx with the batch identifier.
func WithBatch(ctx context.Context, batchID string) context.Context {
	if batchID == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, batchID)
}

// WithJob annotates ctx with the job identifier and its 0-based index.
func WithJob(ctx context.Context, jobID string, index int) context.Context {
	if jobID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, jobIDKey, jobID)
	return context.WithValue(ctx, jobIndexKey, index)
}

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	stage, ok := ctx.Value(stageKey).(string)
	return stage, ok && stage != ""
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := ctx.Value(batchIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if id, ok := ctx.Value(jobIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldJobID, id))
		if index, ok := ctx.Value(jobIndexKey).(int); ok {
			fields = append(fields, slog.Int(FieldJobIndex, index+1))
		}
	}
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
