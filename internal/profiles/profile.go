package profiles

import (
	"github.com/Masterminds/semver/v3"

	"github.com/rocval-dev/rocval/internal/shapes"
)

// Profile is a compiled validation profile: identity, the effective shape
// store, and the requirement tree with every check bound to its shape.
type Profile struct {
	Token        string
	ID           string
	Name         string
	Version      *semver.Version
	Description  string
	Requirements []*Requirement

	store             *shapes.Store
	parent            *Profile
	extendsToken      string
	extendsConstraint *semver.Constraints
}

// Requirement is one node of a profile's requirement tree.
type Requirement struct {
	Name        string
	Description string
	Severity    Severity
	Hidden      bool   // evaluated normally, reported only on failure
	Path        string // tree position, e.g. "2.1"
	Checks      []*Check
	Children    []*Requirement
}

// Check is the smallest evaluable unit of a profile. Building a profile
// binds Shape; a nil Shape past that point is an internal inconsistency the
// evaluator reports as an error result.
type Check struct {
	ID          string // stable identifier, e.g. "workflow-ro-crate:2.1.1"
	Name        string
	Description string
	Severity    Severity
	Shape       *shapes.Shape
	Position    []int // tree position used for deterministic result ordering
}

// Store returns the profile's effective shape store: its own shapes overlaid
// on the parent's when the profile extends another.
func (p *Profile) Store() *shapes.Store {
	if p.store == nil {
		return &shapes.Store{}
	}
	return p.store
}

// Parent returns the profile this one extends, or nil.
func (p *Profile) Parent() *Profile { return p.parent }

// ExtendsToken returns the token named by the document's extends clause,
// or empty.
func (p *Profile) ExtendsToken() string { return p.extendsToken }

// Lineage returns the inheritance chain: the most distant ancestor first,
// the profile itself last.
func (p *Profile) Lineage() []*Profile {
	var chain []*Profile
	for cur := p; cur != nil; cur = cur.parent {
		chain = append([]*Profile{cur}, chain...)
	}
	return chain
}

// RequirementCount returns the number of requirement nodes in the tree,
// not counting inherited profiles.
func (p *Profile) RequirementCount() int {
	n := 0
	var walk func(reqs []*Requirement)
	walk = func(reqs []*Requirement) {
		for _, r := range reqs {
			n++
			walk(r.Children)
		}
	}
	walk(p.Requirements)
	return n
}

// CheckCount returns the number of checks in the tree, not counting
// inherited profiles.
func (p *Profile) CheckCount() int {
	n := 0
	var walk func(reqs []*Requirement)
	walk = func(reqs []*Requirement) {
		for _, r := range reqs {
			n += len(r.Checks)
			walk(r.Children)
		}
	}
	walk(p.Requirements)
	return n
}
