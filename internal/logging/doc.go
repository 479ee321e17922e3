// Package logging assembles structured slog loggers and attribute helpers
// used across subgen.
//
// It owns the console and JSON handlers, level parsing and output fan-out,
// and context helpers that stamp batch IDs, job IDs and stage names onto log
// lines so runner and scheduler code never passes them around by hand. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
