// Package job defines the unit of work the batch pipeline moves through its
// stages, together with the values each stage exchanges.
//
// A Job is immutable once enqueued: it carries its source locator and a
// resolved Options snapshot, and is passed by value between the scheduler and
// the runner. Stage failures are expressed as *StageError values tagged with
// the originating stage and an ErrorKind; the runner folds them into exactly
// one terminal Outcome per job.
//
// Keep this package free of I/O so every other layer can depend on it.
package job
