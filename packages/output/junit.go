package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
	"github.com/abdul-hamid-achik/flagrun/packages/extract"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite holds the units of one challenge label
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single unit
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a nonzero exit
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a unit that could not run to completion
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitFormatter formats run results as JUnit XML
type JUnitFormatter struct {
	writer  io.Writer
	results []*runner.RunResult
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	f.results = append(f.results, result)
}

func (f *JUnitFormatter) FormatError(err error) {
	// Errors are included in individual test cases
}

func (f *JUnitFormatter) FormatHeader(version string) {
	// No header needed for JUnit XML
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush(summary *runner.Summary) error {
	byLabel := make(map[string]*JUnitTestSuite)
	var labels []string

	for _, r := range f.results {
		suite, ok := byLabel[r.Unit.Label]
		if !ok {
			suite = &JUnitTestSuite{Name: r.Unit.Label}
			byLabel[r.Unit.Label] = suite
			labels = append(labels, r.Unit.Label)
		}

		tc := JUnitTestCase{
			Name:      r.Name,
			ClassName: r.Unit.Label,
			Time:      r.Seconds(),
		}
		out := cleanOutput(r.Output)

		switch r.Status {
		case runner.StatusFail:
			suite.Failures++
			msg := "exited with nonzero status"
			if r.ReturnCode != nil {
				msg = fmt.Sprintf("exit status %d", *r.ReturnCode)
			}
			tc.Failure = &JUnitFailure{
				Message: msg,
				Type:    "Failure",
				Content: extract.Messages(out),
			}
		case runner.StatusError:
			suite.Errors++
			tc.Error = &JUnitError{
				Message: firstLine(out),
				Type:    "Error",
				Content: out,
			}
		default:
			tc.SystemOut = out
		}

		suite.Tests++
		suite.Time += r.Seconds()
		suite.TestCases = append(suite.TestCases, tc)
	}

	sort.Strings(labels)
	suites := JUnitTestSuites{
		Name:      "flagrun",
		Tests:     summary.Total(),
		Failures:  summary.Fail,
		Errors:    summary.Error,
		Time:      summary.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, label := range labels {
		suites.TestSuites = append(suites.TestSuites, *byLabel[label])
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
