package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
	"github.com/abdul-hamid-achik/flagrun/packages/core/env"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0755))
	return path
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tok, "FLAG{"))
		assert.True(t, strings.HasSuffix(tok, "}"))
		assert.Len(t, tok, len("FLAG{}")+2*TokenBytes)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestExecutor_Run(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()

	tests := []struct {
		name       string
		script     string
		wantStatus Status
		wantFlag   bool
		wantCode   int
	}{
		{
			name:       "echo flag and exit 0",
			script:     "echo \"$FLAG\"\nexit 0\n",
			wantStatus: StatusPass,
			wantFlag:   true,
		},
		{
			name:       "exit 1 without flag",
			script:     "exit 1\n",
			wantStatus: StatusFail,
			wantCode:   1,
		},
		{
			name:       "flag on stderr with nonzero exit",
			script:     "echo \"$FLAG\" >&2\nexit 3\n",
			wantStatus: StatusFail,
			wantFlag:   true,
			wantCode:   3,
		},
		{
			name:       "partial flag is not detected",
			script:     "echo \"${FLAG%?}\"\n",
			wantStatus: StatusPass,
		},
	}

	e := NewExecutor()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := writeScript(t, dir, "s"+string(rune('a'+i))+".sh", tt.script)
			res := e.Run(context.Background(), config.Unit{Label: "a", Runtime: "/bin/sh", Program: prog})

			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantFlag, res.FlagDetected)
			assert.Equal(t, filepath.Base(prog), res.Name)
			require.NotNil(t, res.ReturnCode)
			assert.Equal(t, tt.wantCode, *res.ReturnCode)
		})
	}
}

func TestExecutor_MissingRuntime(t *testing.T) {
	e := NewExecutor()
	res := e.Run(context.Background(), config.Unit{
		Label:   "a",
		Runtime: "/nonexistent/runtime-xyz",
		Program: "t.py",
	})

	assert.Equal(t, StatusError, res.Status)
	assert.False(t, res.FlagDetected)
	assert.Nil(t, res.ReturnCode)
	assert.Contains(t, res.Output, "/nonexistent/runtime-xyz")
	assert.Contains(t, res.Output, "not found")
}

func TestExecutor_EnvironmentIsolation(t *testing.T) {
	skipWithoutShell(t)
	t.Setenv("FLAGRUN_PARENT_SECRET", "hunter2")
	t.Setenv("FLAG", "parent-flag")

	prog := writeScript(t, t.TempDir(), "env.sh", "env\n")
	res := NewExecutor().Run(context.Background(), config.Unit{Label: "a", Runtime: "/bin/sh", Program: prog})

	require.Equal(t, StatusPass, res.Status)
	assert.True(t, res.FlagDetected)
	assert.NotContains(t, res.Output, "hunter2")
	assert.NotContains(t, res.Output, "parent-flag")
}

func TestExecutor_CustomFlagVar(t *testing.T) {
	skipWithoutShell(t)
	b, err := env.NewBuilder("SECRET_TOKEN")
	require.NoError(t, err)

	prog := writeScript(t, t.TempDir(), "tok.sh", "echo \"$SECRET_TOKEN\"\n")
	res := NewExecutor(WithEnvironment(b)).Run(context.Background(), config.Unit{Runtime: "/bin/sh", Program: prog})

	assert.Equal(t, StatusPass, res.Status)
	assert.True(t, res.FlagDetected)
}

func TestExecutor_Timeout(t *testing.T) {
	skipWithoutShell(t)
	prog := writeScript(t, t.TempDir(), "slow.sh", "sleep 5\n")

	start := time.Now()
	res := NewExecutor(WithTimeout(200*time.Millisecond)).Run(context.Background(), config.Unit{Runtime: "/bin/sh", Program: prog})

	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Output, "timed out after 200ms")
}

func TestExecutor_TokenError(t *testing.T) {
	e := NewExecutor(WithTokenFunc(func() (string, error) {
		return "", assert.AnError
	}))
	res := e.Run(context.Background(), config.Unit{Runtime: "/bin/sh", Program: "x.sh"})
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, assert.AnError.Error(), res.Output)
}

type fakeExecutor struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeExecutor) Run(ctx context.Context, unit config.Unit) *RunResult {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.calls[unit.Program]++
	f.mu.Unlock()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return &RunResult{Unit: unit, Name: unit.Program, Status: StatusError}
	}

	status := StatusPass
	if strings.HasPrefix(unit.Program, "fail") {
		status = StatusFail
	}
	return &RunResult{Unit: unit, Name: unit.Program, Status: status, FlagDetected: status == StatusPass}
}

func units(n int, prefix string) []config.Unit {
	out := make([]config.Unit, n)
	for i := range out {
		out[i] = config.Unit{Label: "c", Runtime: "rt", Program: prefix + string(rune('A'+i))}
	}
	return out
}

func TestRunner_BoundedParallelism(t *testing.T) {
	fake := &fakeExecutor{delay: 20 * time.Millisecond, calls: map[string]int{}}
	r := NewRunner(&Config{Jobs: 3}, WithExecutor(fake))

	all := append(units(10, "ok"), units(4, "fail")...)
	summary := r.RunAll(context.Background(), slices.Values(all), nil)

	assert.Equal(t, 14, summary.Total())
	assert.Equal(t, 10, summary.Pass)
	assert.Equal(t, 4, summary.Fail)
	assert.LessOrEqual(t, fake.peak.Load(), int32(3))
	assert.Len(t, fake.calls, 14)
	for prog, n := range fake.calls {
		assert.Equal(t, 1, n, prog)
	}
	assert.Equal(t, 1, summary.ExitCode())
}

func TestRunner_DefaultJobs(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), NewRunner(nil).Jobs())
	assert.Equal(t, 2, NewRunner(&Config{Jobs: 2}).Jobs())
}

func TestRunner_Cancellation(t *testing.T) {
	fake := &fakeExecutor{delay: time.Minute, calls: map[string]int{}}
	r := NewRunner(&Config{Jobs: 2}, WithExecutor(fake))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	var got []*RunResult
	summary := r.RunAll(ctx, slices.Values(units(6, "ok")), func(res *RunResult) {
		got = append(got, res)
	})

	assert.Len(t, got, 6)
	assert.Equal(t, 6, summary.Error)
	notStartedCount := 0
	for _, res := range got {
		if res.Output == NotStartedMessage {
			notStartedCount++
		}
	}
	assert.Equal(t, 4, notStartedCount)
}

func TestRunner_LaunchRate(t *testing.T) {
	fake := &fakeExecutor{calls: map[string]int{}}
	r := NewRunner(&Config{Jobs: 4, LaunchRate: 20}, WithExecutor(fake))

	start := time.Now()
	summary := r.RunAll(context.Background(), slices.Values(units(5, "ok")), nil)

	assert.Equal(t, 5, summary.Pass)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestRunner_EndToEnd(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	writeScript(t, dir, "ok.sh", "echo \"$FLAG\"\nexit 0\n")
	writeScript(t, dir, "bad.sh", "exit 1\n")

	tests := []struct {
		name     string
		doc      string
		wantExit int
		wantPass int
	}{
		{
			name:     "scenario pass",
			doc:      `{"a": {"runtime": "/bin/sh", "tests": ["ok.sh"]}}`,
			wantExit: 0,
			wantPass: 1,
		},
		{
			name:     "scenario fail",
			doc:      `{"a": {"runtime": "/bin/sh", "tests": ["bad.sh"]}}`,
			wantExit: 1,
		},
		{
			name:     "missing runtime",
			doc:      `{"a": {"runtime": "/nonexistent/py", "tests": ["ok.sh"]}}`,
			wantExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := filepath.Join(dir, "test-config.json")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tt.doc), 0644))

			tree, err := config.Load(cfgPath)
			require.NoError(t, err)

			r := NewRunner(&Config{Jobs: 2}, WithExecutor(NewExecutor(WithWorkDir(tree.BaseDir))))
			summary := r.RunAll(context.Background(), tree.Units(), nil)

			assert.Equal(t, 1, summary.Total())
			assert.Equal(t, tt.wantPass, summary.Pass)
			assert.Equal(t, tt.wantExit, summary.ExitCode())
		})
	}
}
