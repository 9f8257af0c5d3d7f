// Package output provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: a colored results table followed by the output of failing tests
//   - JSON: machine-readable JSON output
//   - JUnit: JUnit XML grouped by challenge label, for CI integration
//   - TAP: Test Anything Protocol format
//
// Results arrive in completion order through FormatResult. Every formatter
// buffers them and writes its report in Flush, once the Summary is final.
package output
