package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
)

type recorder struct {
	calls []*RunSummary
}

func (r *recorder) Notify(s *RunSummary) error {
	r.calls = append(r.calls, s)
	return nil
}

func (r *recorder) Name() string { return "recorder" }

func summaryOf(results ...*runner.RunResult) *runner.Summary {
	s := runner.NewSummary()
	for _, r := range results {
		s.Add(r)
	}
	return s
}

func TestNewRunSummary(t *testing.T) {
	s := summaryOf(
		&runner.RunResult{Status: runner.StatusPass, FlagDetected: true},
		&runner.RunResult{
			Unit:   config.Unit{Label: "web"},
			Name:   "bad.sh",
			Status: runner.StatusFail,
			Output: "starting\n2024-01-01 10:00:00 - ERROR - disk full\n\n",
		},
	)

	rs := NewRunSummary("id", "test-config.json", s)
	assert.Equal(t, 2, rs.Total)
	assert.False(t, rs.Success)
	require.Len(t, rs.Failures, 1)
	assert.Equal(t, "disk full", rs.Failures[0].Message)
	assert.Equal(t, "fail", rs.Failures[0].Status)
}

func TestNewRunSummary_Truncates(t *testing.T) {
	s := runner.NewSummary()
	for i := 0; i < maxFailures+3; i++ {
		s.Add(&runner.RunResult{Status: runner.StatusError})
	}
	rs := NewRunSummary("id", "", s)
	assert.Len(t, rs.Failures, maxFailures)
	assert.Equal(t, 3, rs.Truncated)
}

func TestManager_Policies(t *testing.T) {
	ok := &RunSummary{Success: true}
	bad := &RunSummary{Success: false}

	tests := []struct {
		on   NotifyOn
		runs []*RunSummary
		want int
	}{
		{NotifyAlways, []*RunSummary{ok, bad}, 2},
		{NotifyFailure, []*RunSummary{ok, bad, ok}, 1},
		{NotifySuccess, []*RunSummary{ok, bad, ok}, 2},
		{NotifyRecovery, []*RunSummary{ok, bad, {Success: true}, ok}, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.on), func(t *testing.T) {
			rec := &recorder{}
			m := NewManager(tt.on, rec)
			for _, r := range tt.runs {
				require.NoError(t, m.Notify(r))
			}
			assert.Len(t, rec.calls, tt.want)
		})
	}
}

func TestManager_RecoveryFlag(t *testing.T) {
	rec := &recorder{}
	m := NewManager(NotifyRecovery, rec)
	require.NoError(t, m.Notify(&RunSummary{Success: false}))
	recovered := &RunSummary{Success: true}
	require.NoError(t, m.Notify(recovered))
	assert.True(t, recovered.IsRecovery)
}

func TestSlackNotifier(t *testing.T) {
	var got slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, WithSlackChannel("#ci"))
	err := n.Notify(&RunSummary{
		Total:    2,
		Passed:   1,
		Failed:   1,
		Duration: 1500 * time.Millisecond,
		Failures: []FailedUnit{{Label: "web", Name: "bad.sh", Status: "fail", Message: "disk full"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "#ci", got.Channel)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "danger", got.Attachments[0].Color)
	assert.Contains(t, got.Attachments[0].Title, "1 tests failed")
	assert.Contains(t, got.Attachments[0].Text, "web :: bad.sh")
	assert.Contains(t, got.Attachments[0].Text, "disk full")
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(&RunSummary{Success: true, FlagDetected: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
