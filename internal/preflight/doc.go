// Package preflight provides readiness checks for the external tools, model
// files and directories a batch depends on.
//
// These checks run in two contexts:
//   - The batch scheduler calls the Func returned by ForBatch before a batch
//     is created. Any failing required check rejects the submission so no job
//     starts a doomed run.
//   - The CLI "subgen check" command renders the full RunAll report.
package preflight
