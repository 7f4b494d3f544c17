// Package profiles defines validation profiles: a manifest, a shape schema,
// and a requirement tree whose checks bind to compiled shapes. It also
// provides the registry that indexes profiles by token and identifier.
package profiles

import (
	"github.com/rocval-dev/rocval/internal/shapes"
)

// Doc is one profile document as authored in YAML. Compile turns it into a
// Profile with every check bound to its shape.
type Doc struct {
	Profile      Manifest            `yaml:"profile"`
	Shapes       *shapes.Document    `yaml:"shapes,omitempty"`
	Requirements RequirementsSection `yaml:"requirements,omitempty"`
}

// Manifest carries the identity of a profile.
type Manifest struct {
	Token       string `yaml:"token"`
	ID          string `yaml:"id"`
	Name        string `yaml:"name,omitempty"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
	// Extends names a parent profile token, optionally with a version
	// constraint: "ro-crate" or "ro-crate@>=1.1.0".
	Extends string `yaml:"extends,omitempty"`
}

// RequirementsSection holds requirement defaults and the top-level items.
type RequirementsSection struct {
	Defaults *RequirementDefaults `yaml:"defaults,omitempty"`
	Items    []RequirementDef     `yaml:"items,omitempty"`
}

// RequirementDefaults defines default values applied to all requirements.
type RequirementDefaults struct {
	Severity string `yaml:"severity,omitempty"`
}

// RequirementDef declares one requirement node. Severity cascades from the
// enclosing requirement (or the document defaults) when unset.
type RequirementDef struct {
	Name         string           `yaml:"name"`
	Description  string           `yaml:"description,omitempty"`
	Severity     string           `yaml:"severity,omitempty"`
	Hidden       bool             `yaml:"hidden,omitempty"`
	Checks       []CheckDef       `yaml:"checks,omitempty"`
	Requirements []RequirementDef `yaml:"requirements,omitempty"`
}

// CheckDef declares one check: the smallest evaluable unit, bound to exactly
// one shape by class name.
type CheckDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Shape       string `yaml:"shape"`
}
