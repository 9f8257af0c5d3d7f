package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
	"github.com/abdul-hamid-achik/flagrun/packages/core/env"
	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
	"github.com/abdul-hamid-achik/flagrun/packages/export/metrics"
	"github.com/abdul-hamid-achik/flagrun/packages/logging"
	"github.com/abdul-hamid-achik/flagrun/packages/notify"
	"github.com/abdul-hamid-achik/flagrun/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "Run every test program in a challenge tree",
	Long: `Run every test program declared in a challenge tree.

Each program is started as "<runtime> <program>" with a fresh flag in the
environment. A run succeeds when no program fails or errors and at least one
program printed its flag.

Examples:
  flagrun run
  flagrun run challenges.yaml -j 8
  flagrun run --timeout 30s --flag SECRET
  flagrun run -o junit --output-file report.xml --metrics-file flagrun.prom`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCommand,
}

var (
	configFlag      string
	flagVarFlag     string
	jobsFlag        int
	timeoutFlag     string
	launchRateFlag  float64
	envFileFlag     string
	passEnvFlag     []string
	outputFlag      string
	outputFileFlag  string
	metricsFileFlag string
	noColorFlag     bool
	verboseFlag     int // 0=off, 1=-v, 2=-vv
	watchFlag       bool
	settingsFlag    string

	slackWebhookFlag string
	slackChannelFlag string
	notifyOnFlag     string
)

func init() {
	runCmd.Flags().StringVarP(&configFlag, "config", "c", getEnvString("FLAGRUN_CONFIG", config.DefaultConfigFile), "Path to challenge tree (JSON or YAML) (env: FLAGRUN_CONFIG)")
	runCmd.Flags().StringVar(&flagVarFlag, "flag", getEnvString("FLAGRUN_FLAG", config.DefaultFlagEnv), "Environment variable carrying the flag (env: FLAGRUN_FLAG)")
	runCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", getEnvInt("FLAGRUN_JOBS", 0), "Parallel jobs, 0 for one per CPU (env: FLAGRUN_JOBS)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("FLAGRUN_TIMEOUT", "0"), "Per-program timeout (e.g., 30s, 1m), 0 disables (env: FLAGRUN_TIMEOUT)")
	runCmd.Flags().Float64Var(&launchRateFlag, "launch-rate", getEnvFloat("FLAGRUN_LAUNCH_RATE", 0), "Maximum program launches per second, 0 disables (env: FLAGRUN_LAUNCH_RATE)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("FLAGRUN_ENV_FILE", ""), "Path to .env file passed to test programs (env: FLAGRUN_ENV_FILE)")
	runCmd.Flags().StringSliceVar(&passEnvFlag, "pass-env", nil, "Host environment variables test programs may inherit")

	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("FLAGRUN_OUTPUT", "console"), "Output format: console, json, junit, tap (env: FLAGRUN_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("FLAGRUN_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: FLAGRUN_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("FLAGRUN_METRICS_FILE", ""), "Write Prometheus metrics to file (env: FLAGRUN_METRICS_FILE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("FLAGRUN_NO_COLOR", false), "Disable colored output (env: FLAGRUN_NO_COLOR)")
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the challenge tree and test programs and re-run on changes")
	runCmd.Flags().StringVar(&settingsFlag, "settings", getEnvString("FLAGRUN_SETTINGS", ""), "Path to settings file (env: FLAGRUN_SETTINGS)")

	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("FLAGRUN_SLACK_WEBHOOK", ""), "Slack webhook URL for run notifications (env: FLAGRUN_SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("FLAGRUN_SLACK_CHANNEL", ""), "Slack channel override (env: FLAGRUN_SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("FLAGRUN_NOTIFY_ON", string(notify.NotifyFailure)), "When to notify: always, failure, success, recovery (env: FLAGRUN_NOTIFY_ON)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// runOptions is the resolved configuration of one run command.
type runOptions struct {
	configPath  string
	flagVar     string
	jobs        int
	timeout     time.Duration
	launchRate  float64
	envFile     string
	passEnv     []string
	format      string
	outputFile  string
	metricsFile string
	noColor     bool
	verbosity   int
	watch       bool
	notifier    *notify.Manager
}

// explicit reports whether a flag was set on the command line or through
// its environment variable, so it should win over the settings file.
func explicit(cmd *cobra.Command, name, envKey string) bool {
	if cmd.Flags().Changed(name) {
		return true
	}
	return envKey != "" && os.Getenv(envKey) != ""
}

func resolveRunOptions(cmd *cobra.Command, args []string) (*runOptions, error) {
	opts := &runOptions{
		configPath:  configFlag,
		flagVar:     flagVarFlag,
		jobs:        jobsFlag,
		launchRate:  launchRateFlag,
		envFile:     envFileFlag,
		passEnv:     passEnvFlag,
		format:      outputFlag,
		outputFile:  outputFileFlag,
		metricsFile: metricsFileFlag,
		noColor:     noColorFlag,
		verbosity:   verboseFlag,
		watch:       watchFlag,
	}
	if len(args) > 0 {
		opts.configPath = args[0]
	}

	timeout, err := time.ParseDuration(timeoutFlag)
	if err != nil {
		return nil, &exitError{code: ExitUsageError, err: fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)}
	}
	opts.timeout = timeout

	settings, err := loadSettings(opts.configPath)
	if err != nil {
		return nil, &exitError{code: ExitConfigError, err: err}
	}
	applySettings(cmd, opts, settings)

	if opts.jobs < 0 {
		return nil, &exitError{code: ExitUsageError, err: fmt.Errorf("--jobs must not be negative")}
	}
	if opts.timeout < 0 {
		return nil, &exitError{code: ExitUsageError, err: fmt.Errorf("--timeout must not be negative")}
	}

	if slackWebhookFlag != "" {
		on := notify.NotifyOn(notifyOnFlag)
		switch on {
		case notify.NotifyAlways, notify.NotifyFailure, notify.NotifySuccess, notify.NotifyRecovery:
		default:
			return nil, &exitError{code: ExitUsageError, err: fmt.Errorf("invalid --notify-on value %q (use always, failure, success, recovery)", notifyOnFlag)}
		}
		slack := notify.NewSlackNotifier(slackWebhookFlag, notify.WithSlackChannel(slackChannelFlag))
		opts.notifier = notify.NewManager(on, slack)
	}
	return opts, nil
}

func loadSettings(configPath string) (*config.Settings, error) {
	if settingsFlag != "" {
		s, err := config.LoadSettings(settingsFlag)
		if err != nil {
			return nil, err
		}
		return config.DefaultSettings().Merge(s), nil
	}

	s, err := config.FindAndLoadSettings(filepath.Dir(configPath))
	if err != nil {
		return nil, err
	}
	return config.DefaultSettings().Merge(s), nil
}

func applySettings(cmd *cobra.Command, opts *runOptions, s *config.Settings) {
	if !explicit(cmd, "flag", "FLAGRUN_FLAG") && s.FlagEnv != "" {
		opts.flagVar = s.FlagEnv
	}
	if !explicit(cmd, "jobs", "FLAGRUN_JOBS") && s.Jobs > 0 {
		opts.jobs = s.Jobs
	}
	if !explicit(cmd, "timeout", "FLAGRUN_TIMEOUT") && s.Timeout > 0 {
		opts.timeout = time.Duration(s.Timeout) * time.Millisecond
	}
	if !explicit(cmd, "launch-rate", "FLAGRUN_LAUNCH_RATE") && s.LaunchRate > 0 {
		opts.launchRate = s.LaunchRate
	}
	if !explicit(cmd, "env-file", "FLAGRUN_ENV_FILE") && s.EnvFile != "" {
		opts.envFile = s.EnvFile
	}
	if !explicit(cmd, "output", "FLAGRUN_OUTPUT") && len(s.Reporters) > 0 {
		opts.format = s.Reporters[0]
	}
	if !explicit(cmd, "no-color", "FLAGRUN_NO_COLOR") && s.GetNoColor() {
		opts.noColor = true
	}
	if !explicit(cmd, "verbose", "") && s.GetVerbose() && opts.verbosity == 0 {
		opts.verbosity = 1
	}
	opts.passEnv = append(append([]string(nil), s.PassEnv...), opts.passEnv...)

	if s.OutputDir != "" && opts.outputFile != "" && !filepath.IsAbs(opts.outputFile) {
		opts.outputFile = filepath.Join(s.OutputDir, opts.outputFile)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	opts, err := resolveRunOptions(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logging.New(cmd.ErrOrStderr(), opts.verbosity))

	if opts.watch {
		return watchAndRun(ctx, cmd, opts)
	}

	code, err := runOnce(ctx, cmd, opts)
	if err != nil || code != ExitSuccess {
		return &exitError{code: code, err: err}
	}
	return nil
}

// runOnce performs a complete run and returns the process exit code. The
// returned error, if any, explains a configuration or output problem.
func runOnce(ctx context.Context, cmd *cobra.Command, opts *runOptions) (int, error) {
	log := logging.FromContext(ctx)

	var out io.Writer = cmd.OutOrStdout()
	if opts.outputFile != "" {
		if dir := filepath.Dir(opts.outputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return ExitConfigError, fmt.Errorf("cannot create output directory: %w", err)
			}
		}
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return ExitConfigError, fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	tree, err := config.Load(opts.configPath)
	if err != nil {
		return ExitConfigError, err
	}

	total := 0
	for range tree.Units() {
		total++
	}

	consoleOpts := []output.ConsoleOption{
		output.WithVerbose(opts.verbosity > 0),
		output.WithNoColor(opts.noColor),
	}
	if opts.verbosity == 0 && opts.outputFile == "" && isTerminal(os.Stderr) {
		consoleOpts = append(consoleOpts, output.WithProgress(cmd.ErrOrStderr(), total))
	}
	formatter, err := output.New(opts.format, out, consoleOpts...)
	if err != nil {
		return ExitUsageError, err
	}

	builder, err := env.NewBuilder(opts.flagVar, env.WithPassthrough(opts.passEnv...), env.WithEnvFile(opts.envFile))
	if err != nil {
		return ExitConfigError, err
	}

	runID := uuid.NewString()
	if tagged, ok := formatter.(interface{ SetRunID(string) }); ok {
		tagged.SetRunID(runID)
	}

	var exporter *metrics.Exporter
	if opts.metricsFile != "" {
		exporter = metrics.NewExporter(runID)
	}

	executor := runner.NewExecutor(
		runner.WithEnvironment(builder),
		runner.WithTimeout(opts.timeout),
		runner.WithWorkDir(tree.BaseDir),
	)
	r := runner.NewRunner(&runner.Config{Jobs: opts.jobs, LaunchRate: opts.launchRate}, runner.WithExecutor(executor))

	if opts.verbosity > 0 {
		formatter.FormatHeader(version)
	}
	log.Info("starting run", "run_id", runID, "config", tree.Path, "units", total, "jobs", r.Jobs(), "flag_var", builder.FlagVar())

	summary := r.RunAll(ctx, tree.Units(), func(res *runner.RunResult) {
		formatter.FormatResult(res)
		if exporter != nil {
			exporter.Observe(res)
		}
	})

	log.Info("run finished", "run_id", runID, "pass", summary.Pass, "fail", summary.Fail, "error", summary.Error, "flags", summary.FlagDetected, "duration", summary.Duration)

	if ctx.Err() != nil {
		log.Warn("run cancelled")
		formatter.FormatError(fmt.Errorf("run cancelled: %w", context.Cause(ctx)))
	}

	if err := formatter.Flush(summary); err != nil {
		return ExitTestFailure, fmt.Errorf("error writing output: %w", err)
	}

	if opts.notifier != nil {
		if err := opts.notifier.Notify(notify.NewRunSummary(runID, tree.Path, summary)); err != nil {
			log.Warn("notification failed", "error", err)
		}
	}

	if exporter != nil {
		if err := exporter.WriteTextfile(opts.metricsFile, time.Now()); err != nil {
			log.Warn("metrics export failed", "path", opts.metricsFile, "error", err)
		}
	}

	return summary.ExitCode(), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
