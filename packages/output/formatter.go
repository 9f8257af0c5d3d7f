package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
)

// Formatter receives results as they complete and writes a report on Flush.
type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	Flush(summary *runner.Summary) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

// New returns the formatter for format writing to w. Console options are
// ignored by the other formats.
func New(format string, w io.Writer, opts ...ConsoleOption) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(append([]ConsoleOption{WithWriter(w)}, opts...)...), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected one of %s)", format, strings.Join(Formats, ", "))
	}
}

// cleanOutput strips terminal escape sequences from captured output.
func cleanOutput(s string) string {
	return stripansi.Strip(s)
}

func testID(r *runner.RunResult) string {
	return r.Unit.Label + " :: " + r.Name
}
