// Package logs reads the subgen log file for the CLI.
//
// Last returns the final lines of the file with bounded memory and the offset
// just past them; Follow then polls from that offset and hands each new line
// to a callback until the context ends. Truncation (log rotation by hand)
// restarts reading from the top of the file.
package logs
