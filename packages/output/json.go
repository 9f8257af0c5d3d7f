package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID    string      `json:"runId,omitempty"`
	Summary  JSONSummary `json:"summary"`
	Tests    []JSONTest  `json:"tests"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary represents the run summary
type JSONSummary struct {
	Total        int     `json:"total"`
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`
	Errors       int     `json:"errors"`
	FlagDetected int     `json:"flagDetected"`
	Success      bool    `json:"success"`
	P50          float64 `json:"p50"`
	P95          float64 `json:"p95"`
}

// JSONTest represents a single unit result
type JSONTest struct {
	Challenge    string  `json:"challenge"`
	Name         string  `json:"name"`
	Runtime      string  `json:"runtime"`
	Program      string  `json:"program"`
	Status       string  `json:"status"`
	FlagDetected bool    `json:"flagDetected"`
	Duration     float64 `json:"duration"`
	ReturnCode   *int    `json:"returnCode,omitempty"`
	Output       string  `json:"output,omitempty"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer  io.Writer
	runID   string
	results []JSONTest
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// SetRunID tags the report with a run identifier.
func (f *JSONFormatter) SetRunID(id string) {
	f.runID = id
}

func (f *JSONFormatter) FormatResult(r *runner.RunResult) {
	f.results = append(f.results, JSONTest{
		Challenge:    r.Unit.Label,
		Name:         r.Name,
		Runtime:      r.Unit.Runtime,
		Program:      r.Unit.Program,
		Status:       string(r.Status),
		FlagDetected: r.FlagDetected,
		Duration:     float64(r.Duration.Milliseconds()),
		ReturnCode:   r.ReturnCode,
		Output:       cleanOutput(r.Output),
	})
}

func (f *JSONFormatter) FormatError(err error) {
	// Per-unit errors are part of each test entry
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(summary *runner.Summary) error {
	output := JSONOutput{
		RunID: f.runID,
		Summary: JSONSummary{
			Total:        summary.Total(),
			Passed:       summary.Pass,
			Failed:       summary.Fail,
			Errors:       summary.Error,
			FlagDetected: summary.FlagDetected,
			Success:      summary.Success(),
			P50:          float64(summary.Percentile(50).Milliseconds()),
			P95:          float64(summary.Percentile(95).Milliseconds()),
		},
		Tests:    f.results,
		Duration: float64(summary.Duration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
