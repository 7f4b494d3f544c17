package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rocval-dev/rocval/internal/engine"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// TextFormatter formats validation reports as human-readable terminal text.
type TextFormatter struct {
	writer      io.Writer
	EnableColor bool
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{
		writer:      w,
		EnableColor: true, // Default to true, caller can disable
	}
}

// colorize returns the string wrapped in ANSI color codes if enabled.
func (f *TextFormatter) colorize(text, code string) string {
	if !f.EnableColor {
		return text
	}
	return code + text + colorReset
}

// Format writes the validation report as terminal text.
//
//nolint:errcheck // Best-effort terminal output
func (f *TextFormatter) Format(report *engine.Report) error {
	rule := f.colorize(strings.Repeat("─", 80), colorGray)

	fmt.Fprintln(f.writer, rule)
	fmt.Fprintf(f.writer, "Profile: %s (v%s)\n", f.colorize(report.ProfileToken, colorBold), report.ProfileVersion)
	fmt.Fprintf(f.writer, "Run: %s\n", report.RunID)
	fmt.Fprintf(f.writer, "Started: %s\n", report.StartTime.Format(time.RFC3339))
	fmt.Fprintf(f.writer, "Duration: %s\n", report.Duration.Round(time.Millisecond))
	if report.Status != engine.RunCompleted {
		fmt.Fprintf(f.writer, "Status: %s\n", f.colorize(string(report.Status), colorYellow))
	}
	fmt.Fprintln(f.writer)

	if len(report.Results) == 0 {
		fmt.Fprintln(f.writer, "No checks evaluated.")
		return nil
	}

	fmt.Fprintln(f.writer, f.colorize("Checks:", colorBold))
	fmt.Fprintln(f.writer, rule)

	for _, res := range report.Results {
		f.formatResult(res)
	}

	fmt.Fprintln(f.writer, rule)
	fmt.Fprintln(f.writer)

	f.formatSummary(report.Summary)

	return nil
}

// formatResult formats a single check result.
//
//nolint:errcheck // Best-effort terminal output
func (f *TextFormatter) formatResult(res engine.CheckResult) {
	symbol, color := f.getStatusInfo(res.Status)
	coloredSymbol := f.colorize(symbol, color)
	coloredID := f.colorize(res.CheckID, color)

	fmt.Fprintf(f.writer, "%s %s: %s\n", coloredSymbol, coloredID, res.Name)

	if res.Requirement != "" {
		fmt.Fprintf(f.writer, "  Requirement: %s\n", res.Requirement)
	}
	fmt.Fprintf(f.writer, "  Severity: %s\n", res.Severity)

	statusText := f.colorize(strings.ToUpper(string(res.Status)), color)
	fmt.Fprintf(f.writer, "  Status: %s\n", statusText)
	if res.Message != "" {
		fmt.Fprintf(f.writer, "  Message: %s\n", res.Message)
	}

	if len(res.Violations) > 0 {
		fmt.Fprintln(f.writer, "  Violations:")
		for _, v := range res.Violations {
			fmt.Fprintf(f.writer, "    - %s\n", v)
		}
	}

	fmt.Fprintln(f.writer)
}

// formatSummary formats the summary statistics.
//
//nolint:errcheck // Best-effort terminal output
func (f *TextFormatter) formatSummary(summary engine.Summary) {
	fmt.Fprintln(f.writer, f.colorize("Summary:", colorBold))
	fmt.Fprintln(f.writer, f.colorize(strings.Repeat("─", 80), colorGray))

	fmt.Fprintf(f.writer, "Checks:     %d total\n", summary.TotalChecks)
	fmt.Fprintf(f.writer, "  %s Passed:   %d\n", f.colorize("✓", colorGreen), summary.PassedChecks)
	fmt.Fprintf(f.writer, "  %s Failed:   %d\n", f.colorize("✗", colorRed), summary.FailedChecks)
	fmt.Fprintf(f.writer, "  %s Errors:   %d\n", f.colorize("⚠", colorYellow), summary.ErrorChecks)
	fmt.Fprintln(f.writer)

	fmt.Fprintf(f.writer, "Violations: %d total\n", summary.TotalViolations)

	fmt.Fprintln(f.writer, f.colorize(strings.Repeat("─", 80), colorGray))
}

// getStatusInfo returns a symbol and color for the given status.
func (f *TextFormatter) getStatusInfo(status engine.Status) (string, string) {
	switch status {
	case engine.StatusPass:
		return "✓", colorGreen
	case engine.StatusFail:
		return "✗", colorRed
	case engine.StatusError:
		return "⚠", colorYellow
	default:
		return "?", colorReset
	}
}
