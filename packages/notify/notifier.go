// Package notify posts run summaries to chat webhooks.
package notify

import (
	"strings"
	"time"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
	"github.com/abdul-hamid-achik/flagrun/packages/extract"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when the run fails
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when the run succeeds
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first success after one
	NotifyRecovery NotifyOn = "recovery"
)

// maxFailures bounds the failing units listed in a notification.
const maxFailures = 10

// RunSummary is the notification payload for one run.
type RunSummary struct {
	RunID        string
	Config       string
	Total        int
	Passed       int
	Failed       int
	Errors       int
	FlagDetected int
	Success      bool
	Duration     time.Duration
	Failures     []FailedUnit
	Truncated    int
	IsRecovery   bool
}

// FailedUnit is a failing or erroring unit with its last output message.
type FailedUnit struct {
	Label   string
	Name    string
	Status  string
	Message string
}

// NewRunSummary condenses a finished run.
func NewRunSummary(runID, configPath string, s *runner.Summary) *RunSummary {
	rs := &RunSummary{
		RunID:        runID,
		Config:       configPath,
		Total:        s.Total(),
		Passed:       s.Pass,
		Failed:       s.Fail,
		Errors:       s.Error,
		FlagDetected: s.FlagDetected,
		Success:      s.Success(),
		Duration:     s.Duration,
	}

	for i, r := range s.Failures() {
		if i == maxFailures {
			rs.Truncated = len(s.Failures()) - maxFailures
			break
		}
		rs.Failures = append(rs.Failures, FailedUnit{
			Label:   r.Unit.Label,
			Name:    r.Name,
			Status:  string(r.Status),
			Message: lastMessage(r.Output),
		})
	}
	return rs
}

// lastMessage returns the last non-blank extracted message line.
func lastMessage(output string) string {
	lines := strings.Split(extract.Messages(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != "" {
			return lines[i]
		}
	}
	return ""
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager applies the NotifyOn policy across consecutive runs.
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// Notify sends notifications based on the configured policy
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := false

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !summary.Success
	case NotifySuccess:
		shouldNotify = summary.Success
	case NotifyRecovery:
		if !m.lastState && summary.Success {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !summary.Success {
			shouldNotify = true
		}
	}

	m.lastState = summary.Success

	if !shouldNotify {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
