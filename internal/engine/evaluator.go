package engine

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/rocval-dev/rocval/internal/crate"
	"github.com/rocval-dev/rocval/internal/profiles"
	"github.com/rocval-dev/rocval/internal/shapes"
)

// Status represents the outcome of one check.
type Status string

const (
	// StatusPass indicates every focus entity satisfied the shape
	StatusPass Status = "pass"
	// StatusFail indicates at least one constraint violation
	StatusFail Status = "fail"
	// StatusError indicates the check could not be evaluated
	StatusError Status = "error"
)

// Violation describes one constraint a focus entity does not satisfy.
type Violation struct {
	Entity  string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	if v.Entity == "" {
		return v.Message
	}
	return fmt.Sprintf("entity %q: %s", v.Entity, v.Message)
}

// CheckResult is the outcome of evaluating one check against a graph. It
// references its check by identifier only; durations are tracked at the
// report level so identical evaluations produce identical results.
type CheckResult struct {
	CheckID     string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Requirement string            `json:"requirement,omitempty" yaml:"requirement,omitempty"`
	Severity    profiles.Severity `json:"severity" yaml:"severity"`
	Status      Status            `json:"status" yaml:"status"`
	Message     string            `json:"message,omitempty" yaml:"message,omitempty"`
	Violations  []Violation       `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Evaluate runs one check against the graph. It is a pure function of the
// check and the graph snapshot: re-evaluating an unchanged pair yields an
// identical result. A check without a bound shape is an internal
// inconsistency; it degrades to an error result instead of aborting the run.
func Evaluate(g *crate.Graph, chk *profiles.Check) CheckResult {
	result := CheckResult{
		CheckID:  chk.ID,
		Name:     chk.Name,
		Severity: chk.Severity,
	}

	if chk.Shape == nil {
		slog.Warn("check has no bound shape; this looks like an internal bug, please report it",
			"check", chk.ID)
		result.Status = StatusError
		result.Message = fmt.Sprintf(
			"check %s (%s) has no bound shape; this looks like an internal bug, please report it",
			chk.ID, chk.Name)
		return result
	}

	violations := evaluateShape(g, chk.Shape)
	if len(violations) == 0 {
		result.Status = StatusPass
		result.Message = "check passed"
		return result
	}

	result.Status = StatusFail
	result.Violations = violations
	if len(violations) == 1 {
		result.Message = violations[0].String()
	} else {
		result.Message = fmt.Sprintf("%d violations", len(violations))
	}
	return result
}

// evaluateShape applies a shape to its focus entities. A type target with no
// matching entities passes vacuously; root and descriptor targets require
// their entity to exist.
func evaluateShape(g *crate.Graph, shape *shapes.Shape) []Violation {
	if shape.Target.Root {
		root := g.Root()
		if root == nil {
			return []Violation{{Message: "root data entity not found"}}
		}
		return evaluateEntity(g, shape, root)
	}

	if shape.Target.Descriptor {
		desc := g.Descriptor()
		if desc == nil {
			return []Violation{{Message: "metadata file descriptor not found"}}
		}
		return evaluateEntity(g, shape, desc)
	}

	var violations []Violation
	for _, e := range g.EntitiesOfType(shape.Target.Type) {
		violations = append(violations, evaluateEntity(g, shape, e)...)
	}
	return violations
}

func evaluateEntity(g *crate.Graph, shape *shapes.Shape, e *crate.Entity) []Violation {
	var violations []Violation

	for _, p := range shape.Properties {
		violations = append(violations, checkProperty(g, shape, e, p)...)
	}

	if shape.Closed {
		declared := make(map[string]bool, len(shape.Properties))
		for _, p := range shape.Properties {
			declared[p.Path] = true
		}
		for _, name := range e.PropertyNames() {
			if !declared[name] {
				violations = append(violations, Violation{
					Entity:  e.ID(),
					Path:    name,
					Message: fmt.Sprintf("%s is not a declared property of %s", name, shape.Name),
				})
			}
		}
	}

	for _, a := range shape.Assertions {
		violations = append(violations, checkAssertion(e, a)...)
	}

	return violations
}

func checkProperty(g *crate.Graph, shape *shapes.Shape, e *crate.Entity, p shapes.Property) []Violation {
	var violations []Violation
	add := func(format string, args ...any) {
		msg := p.Message
		if msg == "" {
			msg = fmt.Sprintf(format, args...)
		}
		violations = append(violations, Violation{Entity: e.ID(), Path: p.Path, Message: msg})
	}

	values := e.Values(p.Path)
	if p.MinCount > 0 && len(values) < p.MinCount {
		if len(values) == 0 {
			add("%s of %s is required but missing", p.Path, shape.Name)
		} else {
			add("%s of %s has %d values, expected at least %d", p.Path, shape.Name, len(values), p.MinCount)
		}
	}
	if p.MaxCount >= 0 && len(values) > p.MaxCount {
		add("%s of %s has %d values, expected at most %d", p.Path, shape.Name, len(values), p.MaxCount)
	}

	for _, v := range values {
		checkValue(g, shape, p, v, add)
	}

	// A custom message replaces the generated ones; one mention is enough.
	if p.Message != "" && len(violations) > 1 {
		violations = violations[:1]
	}
	return violations
}

func checkValue(g *crate.Graph, shape *shapes.Shape, p shapes.Property, v crate.Value, add func(string, ...any)) {
	switch p.Kind {
	case shapes.KindString:
		if v.Kind != crate.KindString {
			add("%s of %s: %q is not a string", p.Path, shape.Name, v.Display())
		}
	case shapes.KindNumber:
		if v.Kind != crate.KindNumber {
			add("%s of %s: %q is not a number", p.Path, shape.Name, v.Display())
		}
	case shapes.KindBool:
		if v.Kind != crate.KindBool {
			add("%s of %s: %q is not a boolean", p.Path, shape.Name, v.Display())
		}
	case shapes.KindIRI:
		if !isIRI(v) {
			add("%s of %s: %q is not an IRI", p.Path, shape.Name, v.Display())
		}
	case shapes.KindNode:
		if v.Kind != crate.KindRef {
			add("%s of %s: %q is not an entity reference", p.Path, shape.Name, v.Display())
			return
		}
		target, ok := g.Entity(v.Ref)
		if !ok {
			add("%s of %s references %q which is not in the crate", p.Path, shape.Name, v.Ref)
			return
		}
		if p.ClassRoot && target != g.Root() {
			add("%s of %s references %q which is not the root data entity", p.Path, shape.Name, v.Ref)
			return
		}
		if p.ClassDescriptor && target != g.Descriptor() {
			add("%s of %s references %q which is not the metadata file descriptor", p.Path, shape.Name, v.Ref)
			return
		}
		if p.ClassType != "" && !target.HasType(p.ClassType) {
			add("%s of %s references %q which is not a %s", p.Path, shape.Name, v.Ref, p.ClassType)
		}
	}

	if p.Pattern != nil && v.Kind == crate.KindString && !p.Pattern.MatchString(v.Str) {
		add("%s of %s: %q does not match pattern %s", p.Path, shape.Name, v.Str, p.Pattern)
	}
	if len(p.Values) > 0 && !contains(p.Values, v.Display()) {
		add("%s of %s: %q is not one of [%s]", p.Path, shape.Name, v.Display(), strings.Join(p.Values, ", "))
	}
}

func checkAssertion(e *crate.Entity, a shapes.Assertion) []Violation {
	out, err := expr.Run(a.Program, entityEnv(e))
	if err != nil {
		return []Violation{{
			Entity:  e.ID(),
			Message: fmt.Sprintf("assertion %q could not be evaluated: %v", a.Source, err),
		}}
	}
	if ok, _ := out.(bool); !ok {
		return []Violation{{Entity: e.ID(), Message: a.Message}}
	}
	return nil
}

// entityEnv projects an entity into the environment assertion expressions
// run against.
func entityEnv(e *crate.Entity) shapes.EntityEnv {
	props := make(map[string][]any)
	for _, name := range e.PropertyNames() {
		vals := e.Values(name)
		out := make([]any, 0, len(vals))
		for _, v := range vals {
			switch v.Kind {
			case crate.KindString:
				out = append(out, v.Str)
			case crate.KindNumber:
				out = append(out, v.Num)
			case crate.KindBool:
				out = append(out, v.Bool)
			case crate.KindRef:
				out = append(out, v.Ref)
			}
		}
		props[name] = out
	}
	return shapes.EntityEnv{ID: e.ID(), Types: e.Types(), Props: props}
}

// isIRI accepts entity references and absolute IRI strings.
func isIRI(v crate.Value) bool {
	switch v.Kind {
	case crate.KindRef:
		return true
	case crate.KindString:
		u, err := url.Parse(v.Str)
		return err == nil && u.IsAbs()
	default:
		return false
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
