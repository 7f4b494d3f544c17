package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rocval-dev/rocval/internal/crate"
	"github.com/rocval-dev/rocval/internal/engine"
	"github.com/rocval-dev/rocval/internal/output"
	"github.com/rocval-dev/rocval/internal/profiles"
)

var (
	profileToken  string
	profilesDir   string
	severityName  string
	severityOnly  bool
	failFast      bool
	filterExpr    string
	noInheritance bool
	format        string
	outFile       string
	noInteractive bool
	noColor       bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <crate>",
	Short: "Validate an RO-Crate against a profile",
	Long: `Load an RO-Crate from a directory, zip archive or metadata file and
validate it against a profile. Without --profile the crate's conformsTo
declarations pick the profile; when that is inconclusive an interactive
selector opens unless --no-interactive is set.

Filtering:
  --severity recommended        Include requirements at or above a severity
  --severity-only               Restrict to exactly the --severity level
  --filter "path startsWith '2'" Requirement filter expression over
                                name, path, severity and hidden`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidateAction(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&profileToken, "profile", "p", "", "Profile token to validate against (default: autodetect)")
	validateCmd.Flags().StringVar(&profilesDir, "profiles-dir", "", "Directory holding profile documents (default: bundled profiles)")
	validateCmd.Flags().StringVar(&severityName, "severity", "required", "Minimum requirement severity: optional, recommended, required")
	validateCmd.Flags().BoolVar(&severityOnly, "severity-only", false, "Validate only requirements of exactly --severity")
	validateCmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failing requirement")
	validateCmd.Flags().StringVar(&filterExpr, "filter", "", "Requirement filter expression (e.g. \"severity == 'REQUIRED'\")")
	validateCmd.Flags().BoolVar(&noInheritance, "no-inheritance", false, "Skip requirements inherited from extended profiles")
	validateCmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, yaml, sarif")
	validateCmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file path (default: stdout)")
	validateCmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Never prompt; fail when the profile cannot be detected")
	validateCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored text output")
}

// runValidateAction implements the core logic for the validate command
func runValidateAction(ctx context.Context, cratePath string) error {
	severity, err := profiles.ParseSeverity(severityName)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Severity:           severity,
		SeverityOnly:       severityOnly,
		FailFast:           failFast,
		DisableInheritance: noInheritance,
	}
	if filterExpr != "" {
		program, err := engine.CompileFilter(filterExpr)
		if err != nil {
			return fmt.Errorf("%w\nExample: severity == 'REQUIRED' && !hidden", err)
		}
		opts.FilterProgram = program
	}

	registry, err := loadRegistry(resolveProfilesDir())
	if err != nil {
		return err
	}
	slog.Info("profiles loaded", "count", registry.Len())

	slog.Info("loading crate", "path", cratePath)
	graph, err := crate.Load(cratePath)
	if err != nil {
		return fmt.Errorf("failed to load crate: %w", err)
	}
	slog.Info("crate loaded", "entities", graph.Len())

	profile, err := selectProfile(registry, graph)
	if err != nil {
		return err
	}

	slog.Info("validating", "profile", profile.Token, "version", profile.Version)

	report, err := engine.New(opts).Validate(ctx, profile, graph)
	if err != nil {
		return fmt.Errorf("validation aborted: %w", err)
	}

	slog.Info("validation complete",
		"duration", report.Duration,
		"total_checks", report.Summary.TotalChecks,
		"passed", report.Summary.PassedChecks,
		"failed", report.Summary.FailedChecks,
		"errors", report.Summary.ErrorChecks)

	// Determine output writer
	writer := os.Stdout
	if outFile != "" {
		//nolint:gosec // G304: User-controlled output file path is intentional
		file, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			_ = file.Close() // Best-effort cleanup
		}()
		writer = file
		slog.Info("writing report", "file", outFile, "format", format)
	}

	formatter, err := output.NewFormatter(format, writer, output.Options{
		Indent:    true, // Pretty-print JSON
		NoColor:   noColor,
		CratePath: cratePath,
	})
	if err != nil {
		return err
	}
	if err := formatter.Format(report); err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	// Non-zero exit code when checks failed or errored
	if !report.Passed() {
		return &exitError{code: exitFailure, err: fmt.Errorf("validation failed: %d passed, %d failed, %d errors",
			report.Summary.PassedChecks,
			report.Summary.FailedChecks,
			report.Summary.ErrorChecks)}
	}

	return nil
}

// selectProfile resolves the profile to validate against: the --profile
// token when given, otherwise crate autodetection with an interactive
// fallback.
func selectProfile(registry *profiles.Registry, graph *crate.Graph) (*profiles.Profile, error) {
	if profileToken != "" {
		profile, err := registry.Resolve(profileToken)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(registry.Tokens(), ", "))
		}
		return profile, nil
	}

	candidates := registry.Detect(graph)
	if len(candidates) == 1 {
		slog.Info("profile autodetected", "profile", candidates[0].Token)
		return candidates[0], nil
	}

	if noInteractive {
		if len(candidates) > 1 {
			return nil, fmt.Errorf("crate conforms to multiple profiles (%s); select one with --profile",
				strings.Join(profileTokens(candidates), ", "))
		}
		return nil, fmt.Errorf("unable to detect a profile for the crate; select one with --profile (available: %s)",
			strings.Join(registry.Tokens(), ", "))
	}

	return pickProfile(registry)
}

// pickProfile prompts for a profile when autodetection is inconclusive.
func pickProfile(registry *profiles.Registry) (*profiles.Profile, error) {
	available := registry.Profiles()
	options := make([]huh.Option[string], 0, len(available))
	for _, p := range available {
		options = append(options, huh.NewOption(fmt.Sprintf("%s: %s", p.Token, p.Name), p.Token))
	}

	var token string
	err := huh.NewSelect[string]().
		Title("Unable to detect the profile to validate against").
		Description("Select one of the available profiles").
		Options(options...).
		Value(&token).
		Run()
	if err != nil {
		return nil, err
	}

	return registry.Resolve(token)
}

func profileTokens(candidates []*profiles.Profile) []string {
	tokens := make([]string, len(candidates))
	for i, p := range candidates {
		tokens[i] = p.Token
	}
	return tokens
}
