// Package runner executes a single job through fetch, transcribe and write.
//
// Run never returns an error: every exit path, including cancellation, is
// folded into exactly one job.Outcome. State transitions are validated against the job state machine
// and reported to an Observer. The per-job workspace is removed on every exit
// path.
package runner
