package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
	"github.com/abdul-hamid-achik/flagrun/packages/core/env"
	"github.com/abdul-hamid-achik/flagrun/packages/logging"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// process has exited or been killed.
const DefaultWaitDelay = 2 * time.Second

// Status is the classification of a single run.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// RunResult is the outcome of executing one unit.
type RunResult struct {
	Unit         config.Unit
	Name         string
	Status       Status
	Duration     time.Duration
	FlagDetected bool
	Output       string
	// ReturnCode is nil when the process never produced an exit status.
	ReturnCode *int
}

// Seconds returns the wall-clock duration in seconds.
func (r *RunResult) Seconds() float64 {
	return r.Duration.Seconds()
}

// Failed reports whether the run counts against the exit status.
func (r *RunResult) Failed() bool {
	return r.Status != StatusPass
}

// Executor runs one unit at a time. It is safe for concurrent use.
type Executor struct {
	env       *env.Builder
	timeout   time.Duration
	workDir   string
	waitDelay time.Duration
	newToken  func() (string, error)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithEnvironment sets the builder used for child environments.
func WithEnvironment(b *env.Builder) ExecutorOption {
	return func(e *Executor) {
		e.env = b
	}
}

// WithTimeout limits each run. Zero disables the limit.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithWorkDir sets the working directory of test programs.
func WithWorkDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.workDir = dir
	}
}

// WithTokenFunc replaces the token generator.
func WithTokenFunc(fn func() (string, error)) ExecutorOption {
	return func(e *Executor) {
		e.newToken = fn
	}
}

// NewExecutor creates an Executor publishing tokens under the default
// variable unless WithEnvironment is given.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		waitDelay: DefaultWaitDelay,
		newToken:  NewToken,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.env == nil {
		e.env, _ = env.NewBuilder(env.DefaultFlagVar)
	}
	return e
}

// Run executes "runtime program" once and classifies the outcome.
func (e *Executor) Run(ctx context.Context, unit config.Unit) *RunResult {
	log := logging.FromContext(ctx).With("label", unit.Label, "program", unit.Program)

	result := &RunResult{
		Unit:   unit,
		Name:   filepath.Base(unit.Program),
		Status: StatusError,
	}

	token, err := e.newToken()
	if err != nil {
		result.Output = err.Error()
		return result
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(runCtx, unit.Runtime, unit.Program)
	cmd.Env = e.env.Build(token)
	cmd.Dir = e.workDir
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = e.waitDelay
	setProcessGroup(cmd)

	log.Debug("unit started")
	start := time.Now()
	err = cmd.Run()
	result.Duration = time.Since(start)

	result.Output = output.String()
	result.FlagDetected = strings.Contains(result.Output, token)

	if cmd.ProcessState != nil {
		code := cmd.ProcessState.ExitCode()
		result.ReturnCode = &code
	}

	switch {
	case runCtx.Err() != nil && cmd.ProcessState != nil && !cmd.ProcessState.Success():
		if ctx.Err() != nil {
			result.Output = appendLine(result.Output, "killed: run cancelled")
		} else {
			result.Output = appendLine(result.Output, fmt.Sprintf("timed out after %s", e.timeout))
			log.Warn("unit timed out", "timeout", e.timeout)
		}
	case cmd.ProcessState == nil && ctx.Err() != nil:
		result.FlagDetected = false
		result.Output = NotStartedMessage
	case cmd.ProcessState == nil:
		result.FlagDetected = false
		result.Output = launchError(unit.Runtime, err)
	case cmd.ProcessState.Success():
		result.Status = StatusPass
	default:
		result.Status = StatusFail
	}

	log.Debug("unit finished", "status", result.Status, "duration", result.Duration, "flag", result.FlagDetected)
	return result
}

func launchError(runtime string, err error) string {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("%s not found: %v", runtime, err)
	}
	return fmt.Sprintf("failed to launch %s: %v", runtime, err)
}

func appendLine(s, line string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s + line
}
