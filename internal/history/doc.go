// Package history persists batch runs and their per-job outcomes in SQLite.
//
// The Store implements the batch recorder hooks: a batch row is written when
// the batch starts, each job row is updated as its outcome lands, and the
// batch row is closed once the batch completes. The CLI reads the same
// tables for `subgen history`.
//
// Schema changes bump schemaVersion; an old database must be cleared with
// `subgen history clear` or deleted.
package history
