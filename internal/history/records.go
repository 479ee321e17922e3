package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"subgen/internal/job"
)

// ErrNotFound is returned when a batch lookup matches nothing.
var ErrNotFound = errors.New("batch not found")

// ErrAmbiguous is returned when a batch ID prefix matches several batches.
var ErrAmbiguous = errors.New("batch id prefix is ambiguous")

// Batch summarizes one recorded batch run.
type Batch struct {
	ID         string
	Status     string
	Total      int
	Model      string
	Language   string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	Cancelled  int
}

// Finished reports whether the batch reached completion.
func (b Batch) Finished() bool { return !b.FinishedAt.IsZero() }

// JobRecord is one job row in a batch.
type JobRecord struct {
	JobID        string
	BatchID      string
	Index        int
	Source       string
	State        job.State
	Outcome      job.OutcomeKind
	Stage        job.Stage
	ErrorKind    job.ErrorKind
	Message      string
	SubtitlePath string
	Skipped      bool
	FinishedAt   time.Time
}

// BatchStarted records a new batch and its jobs as pending.
func (s *Store) BatchStarted(ctx context.Context, batchID string, jobs []job.Job) error {
	if batchID == "" {
		return errors.New("batch id required")
	}
	var opts job.Options
	if len(jobs) > 0 {
		opts = jobs[0].Options
	}
	now := formatTime(time.Now())

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, status, total, model, language, output_dir, started_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			batchID, "running", len(jobs),
			nullableString(string(opts.Model)),
			nullableString(opts.Language),
			nullableString(opts.OutputDir),
			now,
		); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for _, j := range jobs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO job_outcomes (job_id, batch_id, job_index, source, state)
                 VALUES (?, ?, ?, ?, ?)`,
				j.ID, batchID, j.Index, j.Source, job.StatePending,
			); err != nil {
				return fmt.Errorf("insert job %d: %w", j.Index, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		return nil
	})
}

// JobFinished stores the outcome of one job.
func (s *Store) JobFinished(ctx context.Context, batchID string, j job.Job, outcome job.Outcome) error {
	res, err := s.exec(ctx,
		`UPDATE job_outcomes
         SET state = ?, outcome = ?, stage = ?, error_kind = ?, message = ?,
             subtitle_path = ?, skipped = ?, finished_at = ?
         WHERE job_id = ? AND batch_id = ?`,
		outcome.State(),
		string(outcome.Kind),
		nullableString(string(outcome.Stage)),
		nullableString(string(outcome.ErrorKind)),
		nullableString(outcome.Message),
		nullableString(outcome.SubtitlePath),
		boolToInt(outcome.Skipped),
		formatTime(time.Now()),
		j.ID, batchID,
	)
	if err != nil {
		return fmt.Errorf("update job outcome: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s not recorded in batch %s", j.ID, batchID)
	}
	return nil
}

// BatchFinished closes a batch with its final status.
func (s *Store) BatchFinished(ctx context.Context, batchID, status string) error {
	if _, err := s.exec(ctx,
		`UPDATE batches SET status = ?, finished_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), batchID,
	); err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

const batchSelect = `SELECT b.id, b.status, b.total, b.model, b.language, b.output_dir,
       b.started_at, b.finished_at,
       COALESCE(SUM(CASE WHEN j.outcome = 'success' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN j.outcome = 'failure' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN j.outcome = 'cancelled' THEN 1 ELSE 0 END), 0)
FROM batches b
LEFT JOIN job_outcomes j ON j.batch_id = b.id`

func scanBatch(scanner interface{ Scan(dest ...any) error }) (Batch, error) {
	var (
		b          Batch
		model      sql.NullString
		language   sql.NullString
		outputDir  sql.NullString
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	if err := scanner.Scan(
		&b.ID, &b.Status, &b.Total, &model, &language, &outputDir,
		&startedAt, &finishedAt,
		&b.Succeeded, &b.Failed, &b.Cancelled,
	); err != nil {
		return Batch{}, err
	}
	b.Model = model.String
	b.Language = language.String
	b.OutputDir = outputDir.String
	b.StartedAt = parseTime(startedAt)
	b.FinishedAt = parseTime(finishedAt)
	return b, nil
}

// ListBatches returns the most recent batches first. A non-positive limit
// returns everything.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	query := batchSelect + ` GROUP BY b.id ORDER BY b.started_at DESC, b.id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetBatch looks a batch up by full ID or unique prefix.
func (s *Store) GetBatch(ctx context.Context, idOrPrefix string) (Batch, error) {
	if idOrPrefix == "" {
		return Batch{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		batchSelect+` WHERE b.id = ? OR b.id LIKE ? GROUP BY b.id ORDER BY b.id = ? DESC LIMIT 2`,
		idOrPrefix, stripWildcards(idOrPrefix)+"%", idOrPrefix,
	)
	if err != nil {
		return Batch{}, fmt.Errorf("get batch: %w", err)
	}
	defer rows.Close()

	var matches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return Batch{}, fmt.Errorf("scan batch: %w", err)
		}
		matches = append(matches, b)
	}
	if err := rows.Err(); err != nil {
		return Batch{}, err
	}
	switch {
	case len(matches) == 0:
		return Batch{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case matches[0].ID == idOrPrefix || len(matches) == 1:
		return matches[0], nil
	default:
		return Batch{}, fmt.Errorf("%w: %s", ErrAmbiguous, idOrPrefix)
	}
}

// Jobs returns the job rows of a batch in submission order.
func (s *Store) Jobs(ctx context.Context, batchID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, batch_id, job_index, source, state, outcome, stage, error_kind,
                message, subtitle_path, skipped, finished_at
         FROM job_outcomes WHERE batch_id = ? ORDER BY job_index`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			rec        JobRecord
			state      string
			outcome    sql.NullString
			stage      sql.NullString
			errorKind  sql.NullString
			message    sql.NullString
			subtitle   sql.NullString
			skipped    int
			finishedAt sql.NullString
		)
		if err := rows.Scan(
			&rec.JobID, &rec.BatchID, &rec.Index, &rec.Source, &state,
			&outcome, &stage, &errorKind, &message, &subtitle, &skipped, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.State = job.State(state)
		rec.Outcome = job.OutcomeKind(outcome.String)
		rec.Stage = job.Stage(stage.String)
		rec.ErrorKind = job.ErrorKind(errorKind.String)
		rec.Message = message.String
		rec.SubtitlePath = subtitle.String
		rec.Skipped = skipped != 0
		rec.FinishedAt = parseTime(finishedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear removes every recorded batch and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if _, err := s.exec(ctx, `DELETE FROM job_outcomes`); err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	res, err := s.exec(ctx, `DELETE FROM batches`)
	if err != nil {
		return 0, fmt.Errorf("clear batches: %w", err)
	}
	return res.RowsAffected()
}

func stripWildcards(value string) string {
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '%', '_':
			continue
		}
		out = append(out, value[i])
	}
	return string(out)
}
