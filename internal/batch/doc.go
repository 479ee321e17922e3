// Package batch schedules an ordered list of sources through the job runner.
//
// Each submitted batch gets one coordinator goroutine that owns its state.
// Workers report state transitions, progress and outcomes to the coordinator
// over channels; API calls (Progress, Cancel, Subscribe) are requests to the
// same goroutine, so they never wait on a runner. Snapshots handed out are
// deep copies.
//
// A batch always advances: a failed job records its outcome and the next job
// is dispatched. Cancel stops dispatching, cancels in-flight jobs and marks
// undispatched ones cancelled at the pending stage. The batch reaches
// StatusCompleted exactly once, after every job has an outcome.
package batch
