package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
	"github.com/abdul-hamid-achik/flagrun/packages/extract"
)

const (
	flagMarker = "🚩"
	ruleWidth  = 72
)

type ConsoleFormatter struct {
	writer   io.Writer
	verbose  bool
	noColor  bool
	progress io.Writer
	total    int
	done     int
	results  []*runner.RunResult
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints a line per result as it arrives.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithProgress writes a "Running tests [done/total]" line to w, rewritten
// in place after each result. A nil writer disables it.
func WithProgress(w io.Writer, total int) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.progress = w
		f.total = total
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("flagrun"), version)
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	f.results = append(f.results, result)
	f.done++

	if f.verbose {
		fmt.Fprintf(f.writer, "%s %s (%dms)\n", resultCell(result), testID(result), result.Duration.Milliseconds())
		return
	}
	if f.progress != nil {
		fmt.Fprintf(f.progress, "\rRunning tests [%d/%d]", f.done, f.total)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) Flush(summary *runner.Summary) error {
	if f.progress != nil && !f.verbose && f.done > 0 {
		fmt.Fprint(f.progress, "\r\033[K")
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	t := table.NewWriter()
	t.SetTitle("Challenge Test Results")
	t.AppendHeader(table.Row{"Challenge", "Test", "Result", "Time (ms)"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Challenge", WidthMax: 40, WidthMaxEnforcer: text.WrapHard},
		{Name: "Test", WidthMax: 40, WidthMaxEnforcer: text.WrapHard},
		{Name: "Time (ms)", Align: text.AlignRight},
	})
	t.Style().Options.SeparateRows = true

	for _, r := range f.results {
		t.AppendRow(table.Row{
			cyan(r.Unit.Label),
			r.Name,
			resultCell(r),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
		})
	}
	fmt.Fprintln(f.writer, t.Render())

	fmt.Fprintln(f.writer, rule("", nil))
	failures := summary.Fail + summary.Error
	if failures == 0 {
		fmt.Fprintln(f.writer, green(fmt.Sprintf("%d tests passed", summary.Pass)))
	} else {
		fmt.Fprintln(f.writer, red(fmt.Sprintf("%d tests failed", failures)))
	}
	if summary.FlagDetected > 0 {
		fmt.Fprintln(f.writer, green(fmt.Sprintf("%s Flag detected in %d outputs", flagMarker, summary.FlagDetected)))
	} else {
		fmt.Fprintln(f.writer, red(flagMarker+" Flag not detected in any output"))
	}

	if summary.Total() > 0 {
		fmt.Fprintf(f.writer, "Time:  %dms (p50 %dms, p95 %dms, max %dms)\n",
			summary.Duration.Milliseconds(),
			summary.Percentile(50).Milliseconds(),
			summary.Percentile(95).Milliseconds(),
			summary.Percentile(100).Milliseconds())
	}

	failing := summary.Failures()
	if len(failing) == 0 {
		return nil
	}

	redRule := color.New(color.FgRed)
	fmt.Fprintln(f.writer, rule("Failing Test Output", redRule))
	for _, r := range failing {
		fmt.Fprintln(f.writer, rule(testID(r), redRule))
		out := strings.TrimRightFunc(r.Output, unicode.IsSpace)
		if out == "" {
			fmt.Fprintln(f.writer, color.New(color.Faint).Sprint("<no output captured>"))
		} else {
			fmt.Fprintln(f.writer, extract.Messages(out))
		}
		fmt.Fprintln(f.writer, rule("", redRule))
	}
	return nil
}

func resultCell(r *runner.RunResult) string {
	marker := " "
	if r.FlagDetected {
		marker = flagMarker
	}

	var status string
	switch r.Status {
	case runner.StatusPass:
		status = color.GreenString("✓ Pass")
	case runner.StatusFail:
		status = color.RedString("✗ Fail")
	default:
		status = color.RedString("⚠ Error")
	}
	return marker + " " + status
}

// rule renders a horizontal line with an optional centered title.
func rule(title string, c *color.Color) string {
	var line string
	if title == "" {
		line = strings.Repeat("─", ruleWidth)
	} else {
		title = " " + title + " "
		side := (ruleWidth - text.RuneWidthWithoutEscSequences(title)) / 2
		if side < 2 {
			side = 2
		}
		line = strings.Repeat("─", side) + title + strings.Repeat("─", side)
	}
	if c == nil {
		return line
	}
	return c.Sprint(line)
}
