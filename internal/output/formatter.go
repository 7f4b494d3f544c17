// Package output provides formatters for validation reports.
package output

import (
	"fmt"
	"io"

	"github.com/rocval-dev/rocval/internal/engine"
)

// Formatter renders one validation report to its writer.
type Formatter interface {
	Format(report *engine.Report) error
}

// Options carry format-specific settings through the factory.
type Options struct {
	// Indent pretty-prints JSON output
	Indent bool
	// NoColor disables ANSI colors in text output
	NoColor bool
	// CratePath is recorded as the crate artifact location in SARIF output
	CratePath string
}

// NewFormatter returns a formatter for the given format name.
func NewFormatter(format string, w io.Writer, opts Options) (Formatter, error) {
	switch format {
	case "text":
		f := NewTextFormatter(w)
		f.EnableColor = !opts.NoColor
		return f, nil
	case "json":
		return NewJSONFormatter(w, opts.Indent), nil
	case "yaml":
		return NewYAMLFormatter(w), nil
	case "sarif":
		return NewSARIFFormatter(w, opts.CratePath), nil
	default:
		return nil, fmt.Errorf(
			"unknown format: %s (supported: %v)",
			format, SupportedFormats(),
		)
	}
}

// SupportedFormats returns the accepted format names.
func SupportedFormats() []string {
	return []string{"text", "json", "yaml", "sarif"}
}
