// Package env builds the environment handed to test programs.
//
// A test program sees the per-run token under a single variable, a small
// allowlist of inherited host variables (PATH, HOME, locale), any names the
// caller opts into, and the entries of an optional .env file. Nothing else
// from the parent process leaks through.
package env
