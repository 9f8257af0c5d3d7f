package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range in microseconds: 1us to 1h.
const (
	histogramMin = 1
	histogramMax = 3_600_000_000
)

// Summary tallies results. It is not safe for concurrent use; results are
// fed from the single consumer of Runner.Run.
type Summary struct {
	Pass         int
	Fail         int
	Error        int
	FlagDetected int
	Duration     time.Duration
	Results      []*RunResult

	histogram *hdrhistogram.Histogram
}

func NewSummary() *Summary {
	return &Summary{
		histogram: hdrhistogram.New(histogramMin, histogramMax, 3),
	}
}

// Add records one result.
func (s *Summary) Add(r *RunResult) {
	switch r.Status {
	case StatusPass:
		s.Pass++
	case StatusFail:
		s.Fail++
	default:
		s.Error++
	}
	if r.FlagDetected {
		s.FlagDetected++
	}
	s.Results = append(s.Results, r)

	us := r.Duration.Microseconds()
	if us < histogramMin {
		us = histogramMin
	}
	if us > histogramMax {
		us = histogramMax
	}
	_ = s.histogram.RecordValue(us)
}

func (s *Summary) Total() int {
	return s.Pass + s.Fail + s.Error
}

// Failures returns failing and erroring results in arrival order.
func (s *Summary) Failures() []*RunResult {
	var out []*RunResult
	for _, r := range s.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Success is true when nothing failed and at least one token was detected.
func (s *Summary) Success() bool {
	return s.Fail == 0 && s.Error == 0 && s.FlagDetected > 0
}

// ExitCode returns 0 on Success and 1 otherwise.
func (s *Summary) ExitCode() int {
	if s.Success() {
		return 0
	}
	return 1
}

// Percentile returns the run duration at the given percentile (0-100).
func (s *Summary) Percentile(p float64) time.Duration {
	if s.histogram.TotalCount() == 0 {
		return 0
	}
	return time.Duration(s.histogram.ValueAtQuantile(p)) * time.Microsecond
}
