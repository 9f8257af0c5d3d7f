package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
)

func TestExporter(t *testing.T) {
	e := NewExporter("run-1")
	e.Observe(&runner.RunResult{Status: runner.StatusPass, FlagDetected: true, Duration: 20 * time.Millisecond})
	e.Observe(&runner.RunResult{Status: runner.StatusFail, Duration: 3 * time.Second})

	path := filepath.Join(t.TempDir(), "flagrun.prom")
	require.NoError(t, e.WriteTextfile(path, time.Unix(1700000000, 0)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `flagrun_units_total{run_id="run-1",status="pass"} 1`)
	assert.Contains(t, out, `flagrun_units_total{run_id="run-1",status="fail"} 1`)
	assert.Contains(t, out, `flagrun_units_total{run_id="run-1",status="error"} 0`)
	assert.Contains(t, out, `flagrun_flags_detected_total{run_id="run-1"} 1`)
	assert.Contains(t, out, `flagrun_unit_duration_seconds_count{run_id="run-1"} 2`)
	assert.Contains(t, out, `flagrun_last_run_timestamp_seconds{run_id="run-1"} 1.7e+09`)
}

func TestExporter_Isolated(t *testing.T) {
	a := NewExporter("a")
	b := NewExporter("b")
	a.Observe(&runner.RunResult{Status: runner.StatusPass})

	families, err := b.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "flagrun_units_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 3)
		for _, m := range mf.GetMetric() {
			assert.Equal(t, float64(0), m.GetCounter().GetValue())
		}
	}
}
