// Package runner executes challenge test programs and classifies their outcome.
//
// An Executor runs a single config.Unit: it generates a fresh token, builds
// the child environment, starts "runtime program" in its own process group,
// captures interleaved stdout and stderr, and returns a RunResult with status
// pass, fail or error and whether the token appeared in the output.
//
// A Runner dispatches many units through a bounded worker pool and streams
// results back as they complete. Failures of one unit never affect another.
// Summary tallies results and decides the process exit code.
package runner
