// Package extract reduces captured test output to human-readable messages.
//
// Each line is passed through an ordered list of matchers and the first match
// wins: a JSON log line yields its msg or message field, a logfmt line yields
// its msg value, and otherwise a leading timestamp or level prefix is
// stripped. Lines no matcher recognizes are kept as they are. Blank lines are
// preserved so the output has the same line count as the input.
//
// Extraction is cosmetic. It never affects how a run is classified.
package extract
