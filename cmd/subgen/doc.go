// Package main hosts the subgen CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, wires the fetcher,
// transcriber, runner and batch scheduler together, and renders batch
// progress and results for terminals, pipes and JSON consumers. Heavy lifting
// lives in the internal packages; commands here only translate flags into
// their inputs.
package main
