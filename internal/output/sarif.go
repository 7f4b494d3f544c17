package output

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/rocval-dev/rocval/internal/engine"
	"github.com/rocval-dev/rocval/internal/profiles"
	"github.com/rocval-dev/rocval/internal/version"
)

// SARIFFormatter formats validation reports as SARIF 2.1.0 JSON. Checks map
// to SARIF rules and check results to results whose locations point at the
// crate under validation.
//
// Usage:
//
//	formatter := output.NewSARIFFormatter(os.Stdout, "path/to/crate")
//	if err := formatter.Format(report); err != nil {
//	    log.Fatal(err)
//	}
type SARIFFormatter struct {
	writer    io.Writer
	cratePath string
}

// NewSARIFFormatter creates a new SARIF formatter.
// cratePath, when known, is recorded as the crate artifact location.
func NewSARIFFormatter(writer io.Writer, cratePath string) *SARIFFormatter {
	return &SARIFFormatter{
		writer:    writer,
		cratePath: cratePath,
	}
}

// Format writes the validation report as SARIF 2.1.0 JSON.
// Returns error if SARIF creation or marshaling fails.
func (f *SARIFFormatter) Format(report *engine.Report) error {
	doc := sarif.NewReport()

	run := sarif.NewRunWithInformationURI("rocval", "https://github.com/rocval-dev/rocval")
	toolVersion := version.Version
	run.Tool.Driver.Version = &toolVersion

	mapper := newSARIFMapper(report, f.cratePath)
	mapper.mapToRun(run)

	doc.AddRun(run)

	if err := doc.Write(f.writer); err != nil {
		return fmt.Errorf("failed to write SARIF output: %w", err)
	}

	// Write does not add a trailing newline
	_, err := f.writer.Write([]byte("\n"))
	return err
}

type sarifMapper struct {
	report    *engine.Report
	cratePath string
}

func newSARIFMapper(report *engine.Report, cratePath string) *sarifMapper {
	return &sarifMapper{
		report:    report,
		cratePath: cratePath,
	}
}

// mapToRun populates the SARIF run with rules, results, the crate artifact,
// and the invocation record.
func (m *sarifMapper) mapToRun(run *sarif.Run) {
	m.addRules(run)
	m.addResults(run)
	m.addArtifact(run)
	m.addInvocation(run)
	m.addProperties(run)
}

// addRules converts checks to SARIF rules. Check identifiers are unique per
// run, so every result contributes exactly one rule.
func (m *sarifMapper) addRules(run *sarif.Run) {
	for _, res := range m.report.Results {
		rule := sarif.NewReportingDescriptor().WithID(res.CheckID)

		rule.WithName(res.Name)

		name := res.Name
		rule.WithShortDescription(&sarif.MultiformatMessageString{
			Text: &name,
		})

		// Default configuration (severity -> level)
		rule.WithDefaultConfiguration(&sarif.ReportingConfiguration{
			Level: m.mapSeverityToLevel(res.Severity),
		})

		props := sarif.NewPropertyBag()
		props.Add("severity", res.Severity.String())
		if res.Requirement != "" {
			props.Add("requirement", res.Requirement)
		}
		rule.WithProperties(props)

		run.Tool.Driver.AddRule(rule)
	}
}

// addResults converts check results to SARIF results.
func (m *sarifMapper) addResults(run *sarif.Run) {
	for _, res := range m.report.Results {
		run.AddResult(m.mapCheckResult(res))
	}
}

// mapCheckResult converts a single CheckResult to a SARIF Result.
func (m *sarifMapper) mapCheckResult(res engine.CheckResult) *sarif.Result {
	result := sarif.NewRuleResult(res.CheckID)

	result.Level = m.mapStatusToLevel(res.Status, res.Severity)
	result.Kind = m.mapStatusToKind(res.Status)

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("check %s completed with status %s", res.CheckID, res.Status)
	}
	result.Message = sarif.NewTextMessage(msg)

	if loc := m.crateLocation(); loc != nil {
		result.Locations = []*sarif.Location{loc}
	}

	if len(res.Violations) > 0 {
		props := sarif.NewPropertyBag()
		props.Add("violations", res.Violations)
		result.WithProperties(props)
	}

	return result
}

// mapStatusToLevel converts check status + severity to SARIF level.
func (m *sarifMapper) mapStatusToLevel(status engine.Status, severity profiles.Severity) string {
	switch status {
	case engine.StatusPass:
		return "note"
	case engine.StatusError:
		return "error"
	default:
		return m.mapSeverityToLevel(severity)
	}
}

// mapStatusToKind converts check status to SARIF kind.
func (m *sarifMapper) mapStatusToKind(status engine.Status) string {
	if status == engine.StatusPass {
		return "pass"
	}
	return "fail"
}

// mapSeverityToLevel converts severity alone to SARIF level (for rule default).
func (m *sarifMapper) mapSeverityToLevel(severity profiles.Severity) string {
	switch severity {
	case profiles.SeverityRequired:
		return "error"
	case profiles.SeverityRecommended:
		return "warning"
	default:
		return "note"
	}
}

// crateLocation points SARIF results at the crate under validation. Crate
// violations concern graph entities rather than text regions, so the
// location carries no region.
func (m *sarifMapper) crateLocation() *sarif.Location {
	if m.cratePath == "" {
		return nil
	}

	pLoc := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithURI(m.crateURI()))

	return sarif.NewLocation().WithPhysicalLocation(pLoc)
}

func (m *sarifMapper) crateURI() string {
	return filepath.ToSlash(m.cratePath)
}

// addArtifact registers the crate as the single artifact of the run.
func (m *sarifMapper) addArtifact(run *sarif.Run) {
	if m.cratePath == "" {
		return
	}

	run.AddArtifact(sarif.NewArtifact().
		WithLocation(sarif.NewArtifactLocation().WithURI(m.crateURI())))
}

// addInvocation adds run metadata to the SARIF run.
func (m *sarifMapper) addInvocation(run *sarif.Run) {
	invocation := sarif.NewInvocation()

	invocation.ExecutionSuccessful = ptrBool(
		m.report.Status == engine.RunCompleted && m.report.Summary.ErrorChecks == 0)

	// Timestamps (UTC, ISO 8601 format)
	startTime := m.report.StartTime.UTC().Format("2006-01-02T15:04:05.000Z")
	endTime := m.report.EndTime.UTC().Format("2006-01-02T15:04:05.000Z")
	invocation.StartTimeUtc = &startTime
	invocation.EndTimeUtc = &endTime

	props := sarif.NewPropertyBag()
	props.Add("runId", m.report.RunID)
	props.Add("profile", m.report.ProfileToken)
	props.Add("profileVersion", m.report.ProfileVersion)
	invocation.WithProperties(props)

	run.AddInvocation(invocation)
}

// addProperties adds summary statistics to run properties.
func (m *sarifMapper) addProperties(run *sarif.Run) {
	props := sarif.NewPropertyBag()
	props.Add("summary", m.report.Summary)
	run.WithProperties(props)
}

func ptrBool(b bool) *bool {
	return &b
}
