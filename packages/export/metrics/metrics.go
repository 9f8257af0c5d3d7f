// Package metrics exports run results as Prometheus metrics in the textfile
// collector format.
package metrics

const (
	// Namespace prefixes every exported metric.
	Namespace = "flagrun"
)

// DurationBuckets are the histogram buckets for unit durations, in seconds.
var DurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}
