package profiles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/rocval-dev/rocval/internal/shapes"
)

// Profile tokens are path and shell safe
var tokenPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// CompileOption configures profile compilation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	parent    *Profile
	shapeOpts []shapes.Option
}

// WithParent supplies the compiled parent profile named by the document's
// extends clause. The parent's shapes become visible to the child's checks.
func WithParent(p *Profile) CompileOption {
	return func(c *compileConfig) { c.parent = p }
}

// WithShapeOptions forwards options to shape compilation.
func WithShapeOptions(opts ...shapes.Option) CompileOption {
	return func(c *compileConfig) { c.shapeOpts = append(c.shapeOpts, opts...) }
}

// Compile builds a Profile from its document. Schema problems surface as a
// *shapes.CompilationError; manifest and requirement tree problems are
// collected into a *BuildError. A nil error guarantees the requirement tree
// is complete and every check holds a non-nil shape.
func Compile(doc *Doc, opts ...CompileOption) (*Profile, error) {
	var cfg compileConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store, err := shapes.Compile(doc.Shapes, cfg.shapeOpts...)
	if err != nil {
		return nil, err
	}

	var problems []BuildProblem
	fail := func(format string, args ...any) {
		problems = append(problems, BuildProblem{Message: fmt.Sprintf(format, args...)})
	}

	m := doc.Profile
	switch {
	case m.Token == "":
		fail("profile token is required")
	case !tokenPattern.MatchString(m.Token):
		fail("profile token %q is invalid (lowercase letters, digits, '._-')", m.Token)
	}
	if m.ID == "" {
		fail("profile id is required")
	}

	var version *semver.Version
	if m.Version == "" {
		fail("profile version is required")
	} else if version, err = semver.NewVersion(m.Version); err != nil {
		fail("profile version %q is not valid semver: %v", m.Version, err)
	}

	extendsToken, constraint, extErr := parseExtends(m.Extends)
	if extErr != nil {
		fail("%v", extErr)
	}
	if extendsToken != "" && extendsToken == m.Token {
		fail("profile cannot extend itself")
	}
	switch {
	case extendsToken == "" && cfg.parent != nil:
		fail("parent profile %q supplied but the document extends nothing", cfg.parent.Token)
	case extendsToken != "" && cfg.parent == nil:
		fail("profile extends %q but no parent profile was supplied", extendsToken)
	case cfg.parent != nil && cfg.parent.Token != extendsToken:
		fail("parent profile %q does not match extends %q", cfg.parent.Token, extendsToken)
	case cfg.parent != nil && constraint != nil && cfg.parent.Version != nil && !constraint.Check(cfg.parent.Version):
		fail("parent profile %s version %s does not satisfy constraint %q", cfg.parent.Token, cfg.parent.Version, constraint)
	}

	effective := store
	if cfg.parent != nil {
		effective = cfg.parent.Store().Merge(store)
	}

	name := m.Name
	if name == "" {
		name = m.Token
	}

	defaultSeverity := SeverityRequired
	if d := doc.Requirements.Defaults; d != nil && d.Severity != "" {
		sev, err := ParseSeverity(d.Severity)
		if err != nil {
			fail("requirement defaults: %v", err)
		} else {
			defaultSeverity = sev
		}
	}

	if len(doc.Requirements.Items) == 0 && cfg.parent == nil {
		fail("profile declares no requirements")
	}

	reqs := buildRequirements(doc.Requirements.Items, nil, defaultSeverity, effective, m.Token, &problems)

	if len(problems) > 0 {
		return nil, &BuildError{Token: m.Token, Problems: problems}
	}

	return &Profile{
		Token:             m.Token,
		ID:                m.ID,
		Name:              name,
		Version:           version,
		Description:       m.Description,
		Requirements:      reqs,
		store:             effective,
		parent:            cfg.parent,
		extendsToken:      extendsToken,
		extendsConstraint: constraint,
	}, nil
}

// parseExtends splits "token" or "token@constraint" into its parts.
func parseExtends(s string) (string, *semver.Constraints, error) {
	if s == "" {
		return "", nil, nil
	}
	token, raw, found := strings.Cut(s, "@")
	if token == "" {
		return "", nil, fmt.Errorf("extends %q names no profile token", s)
	}
	if !found {
		return token, nil, nil
	}
	constraint, err := semver.NewConstraint(raw)
	if err != nil {
		return token, nil, fmt.Errorf("extends %q has an invalid version constraint: %v", s, err)
	}
	return token, constraint, nil
}

func buildRequirements(defs []RequirementDef, parentPath []int, inherited Severity, store *shapes.Store, token string, problems *[]BuildProblem) []*Requirement {
	reqs := make([]*Requirement, 0, len(defs))
	for i, def := range defs {
		pos := append(append([]int{}, parentPath...), i+1)
		path := pathString(pos)
		fail := func(format string, args ...any) {
			*problems = append(*problems, BuildProblem{Path: path, Message: fmt.Sprintf(format, args...)})
		}

		if def.Name == "" {
			fail("name is required")
		}

		severity := inherited
		if def.Severity != "" {
			sev, err := ParseSeverity(def.Severity)
			if err != nil {
				fail("%v", err)
			} else {
				severity = sev
			}
		}

		if len(def.Checks) == 0 && len(def.Requirements) == 0 {
			fail("has neither checks nor nested requirements")
		}

		req := &Requirement{
			Name:        def.Name,
			Description: def.Description,
			Severity:    severity,
			Hidden:      def.Hidden,
			Path:        path,
		}

		for j, cd := range def.Checks {
			check := &Check{
				ID:          fmt.Sprintf("%s:%s.%d", token, path, j+1),
				Name:        cd.Name,
				Description: cd.Description,
				Severity:    severity,
				Position:    append(append([]int{}, pos...), j+1),
			}
			if cd.Name == "" {
				fail("check %d: name is required", j+1)
			}
			if cd.Shape == "" {
				fail("check %d (%s): shape is required", j+1, cd.Name)
			} else if shape, ok := store.Lookup(cd.Shape); ok {
				check.Shape = shape
			} else {
				fail("check %d (%s): references unknown shape %q", j+1, cd.Name, cd.Shape)
			}
			req.Checks = append(req.Checks, check)
		}

		req.Children = buildRequirements(def.Requirements, pos, severity, store, token, problems)
		reqs = append(reqs, req)
	}
	return reqs
}

func pathString(pos []int) string {
	parts := make([]string, len(pos))
	for i, n := range pos {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
