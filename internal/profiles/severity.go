package profiles

import (
	"fmt"
	"strings"
)

// Severity grades a requirement. Ordering matters: validation runs can be
// restricted to requirements at or above a threshold.
type Severity int

const (
	// SeverityOptional marks requirements a crate MAY satisfy.
	SeverityOptional Severity = iota
	// SeverityRecommended marks requirements a crate SHOULD satisfy.
	SeverityRecommended
	// SeverityRequired marks requirements a crate MUST satisfy.
	SeverityRequired
)

// ParseSeverity parses a severity name. The RFC 2119 keywords used by
// profile authors are accepted as aliases.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "optional", "may":
		return SeverityOptional, nil
	case "recommended", "should":
		return SeverityRecommended, nil
	case "required", "must":
		return SeverityRequired, nil
	default:
		return SeverityOptional, fmt.Errorf("invalid severity: %q", s)
	}
}

// MustParseSeverity parses a severity name or panics.
func MustParseSeverity(s string) Severity {
	sev, err := ParseSeverity(s)
	if err != nil {
		panic(err)
	}
	return sev
}

// String returns the canonical severity name.
func (s Severity) String() string {
	switch s {
	case SeverityOptional:
		return "OPTIONAL"
	case SeverityRecommended:
		return "RECOMMENDED"
	case SeverityRequired:
		return "REQUIRED"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// AtLeast reports whether the severity meets a minimum threshold.
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// MarshalText implements encoding.TextMarshaler, serving the JSON and YAML
// encoders alike.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}
