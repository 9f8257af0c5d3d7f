package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
	"github.com/abdul-hamid-achik/flagrun/packages/extract"
)

// TAPFormatter formats run results in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer  io.Writer
	results []*runner.RunResult
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	f.results = append(f.results, result)
}

func (f *TAPFormatter) FormatError(err error) {
	// Errors are included in individual test results
}

func (f *TAPFormatter) FormatHeader(version string) {
	// Header is written in Flush
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush(summary *runner.Summary) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(f.results))

	for i, r := range f.results {
		n := i + 1
		name := testID(r)
		if r.FlagDetected {
			name += " # flag detected"
		}

		if r.Status == runner.StatusPass {
			fmt.Fprintf(f.writer, "ok %d - %s\n", n, name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", n, name)
		fmt.Fprintf(f.writer, "  ---\n")
		fmt.Fprintf(f.writer, "  severity: %s\n", r.Status)
		if r.ReturnCode != nil {
			fmt.Fprintf(f.writer, "  returncode: %d\n", *r.ReturnCode)
		}
		msgs := strings.TrimSpace(extract.Messages(cleanOutput(r.Output)))
		if msgs != "" {
			fmt.Fprintf(f.writer, "  output:\n")
			for _, line := range strings.Split(msgs, "\n") {
				fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(line))
			}
		}
		fmt.Fprintf(f.writer, "  ...\n")
	}

	if !summary.Success() && summary.FlagDetected == 0 {
		fmt.Fprintf(f.writer, "# flag not detected in any output\n")
	}
	fmt.Fprintln(f.writer)
	return nil
}

func escapeYAML(s string) string {
	if s == "" || strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return "\"" + s + "\""
	}
	return s
}
