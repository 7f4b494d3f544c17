// Package shapes compiles declarative schema documents into immutable
// constraint shapes. A profile's checks bind to shapes by class name; the
// compiled store is the single source those bindings resolve against.
package shapes

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// Problem is a single issue found while compiling a schema document.
type Problem struct {
	Class    string // empty for document-level problems
	Property string // empty for class-level problems
	Message  string
}

func (p Problem) String() string {
	switch {
	case p.Class != "" && p.Property != "":
		return fmt.Sprintf("class %s, property %s: %s", p.Class, p.Property, p.Message)
	case p.Class != "":
		return fmt.Sprintf("class %s: %s", p.Class, p.Message)
	default:
		return p.Message
	}
}

// CompilationError aggregates every problem found while compiling a schema
// document. Compilation never stops at the first problem.
type CompilationError struct {
	Problems []Problem
}

func (e *CompilationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("schema compilation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Option configures schema compilation.
type Option func(*compileOptions)

type compileOptions struct {
	forceClosed bool
}

// WithClosedWorld compiles every shape as closed regardless of the document
// and class settings.
func WithClosedWorld() Option {
	return func(o *compileOptions) { o.forceClosed = true }
}

var validKinds = map[Kind]bool{
	KindAny:    true,
	KindString: true,
	KindNumber: true,
	KindBool:   true,
	KindIRI:    true,
	KindNode:   true,
}

// Compile turns a schema document into a shape store. All problems are
// collected into a single *CompilationError; a nil error guarantees every
// shape is fully resolved, including class references between shapes.
func Compile(doc *Document, opts ...Option) (*Store, error) {
	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := &Store{shapes: make(map[string]*Shape)}
	if doc == nil || len(doc.Classes) == 0 {
		return store, nil
	}

	names := make([]string, 0, len(doc.Classes))
	for name := range doc.Classes {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []Problem
	for _, name := range names {
		def := doc.Classes[name]
		shape, probs := compileClass(doc, name, def, o)
		problems = append(problems, probs...)
		store.shapes[name] = shape
	}

	if len(problems) > 0 {
		return nil, &CompilationError{Problems: problems}
	}
	return store, nil
}

func compileClass(doc *Document, name string, def ClassDef, o compileOptions) (*Shape, []Problem) {
	var problems []Problem

	if name == "" {
		problems = append(problems, Problem{Message: "class name cannot be empty"})
	}

	target := Target{Type: def.Target, Root: def.Root, Descriptor: def.Descriptor}
	switch {
	case def.Root && def.Descriptor:
		problems = append(problems, Problem{Class: name, Message: "root and descriptor are mutually exclusive"})
	case def.Root && def.Target != "":
		problems = append(problems, Problem{Class: name, Message: "root and target are mutually exclusive"})
	case def.Descriptor && def.Target != "":
		problems = append(problems, Problem{Class: name, Message: "descriptor and target are mutually exclusive"})
	case !def.Root && !def.Descriptor && def.Target == "":
		target.Type = name
	}

	closed := doc.Closed
	if def.Closed != nil {
		closed = *def.Closed
	}
	if o.forceClosed {
		closed = true
	}

	shape := &Shape{
		Name:        name,
		Description: def.Description,
		Target:      target,
		Closed:      closed,
	}

	seen := make(map[string]bool)
	for _, pd := range def.Properties {
		prop, probs := compileProperty(doc, name, pd)
		problems = append(problems, probs...)
		if pd.Path != "" && seen[pd.Path] {
			problems = append(problems, Problem{Class: name, Property: pd.Path, Message: "declared more than once"})
		}
		seen[pd.Path] = true
		shape.Properties = append(shape.Properties, prop)
	}

	for i, ad := range def.Assertions {
		a, probs := compileAssertion(name, i, ad)
		problems = append(problems, probs...)
		shape.Assertions = append(shape.Assertions, a)
	}

	return shape, problems
}

func compileProperty(doc *Document, class string, pd PropertyDef) (Property, []Problem) {
	var problems []Problem
	fail := func(msg string) {
		problems = append(problems, Problem{Class: class, Property: pd.Path, Message: msg})
	}

	prop := Property{
		Path:     pd.Path,
		MaxCount: -1,
		Kind:     Kind(pd.Kind),
		Class:    pd.Class,
		Values:   pd.Values,
		Message:  pd.Message,
	}

	if pd.Path == "" {
		fail("path is required")
	}

	if pd.MinCount != nil {
		if *pd.MinCount < 0 {
			fail("minCount cannot be negative")
		}
		prop.MinCount = *pd.MinCount
	}
	if pd.MaxCount != nil {
		if *pd.MaxCount < 0 {
			fail("maxCount cannot be negative")
		}
		prop.MaxCount = *pd.MaxCount
		if pd.MinCount != nil && *pd.MaxCount < *pd.MinCount {
			fail(fmt.Sprintf("maxCount %d is below minCount %d", *pd.MaxCount, *pd.MinCount))
		}
	}

	if !validKinds[prop.Kind] {
		fail(fmt.Sprintf("unknown kind %q", pd.Kind))
	}

	if pd.Class != "" {
		ref, ok := doc.Classes[pd.Class]
		switch {
		case !ok:
			fail(fmt.Sprintf("references undeclared class %q", pd.Class))
		case ref.Root:
			// Referencing a root-targeted class means the value must be
			// the root data entity itself.
			prop.ClassRoot = true
		case ref.Descriptor:
			prop.ClassDescriptor = true
		case ref.Target != "":
			prop.ClassType = ref.Target
		default:
			prop.ClassType = pd.Class
		}
		switch prop.Kind {
		case KindAny:
			prop.Kind = KindNode
		case KindNode:
		default:
			fail(fmt.Sprintf("class constraint requires node kind, not %q", prop.Kind))
		}
	}

	if pd.Pattern != "" {
		if prop.Kind != KindAny && prop.Kind != KindString {
			fail(fmt.Sprintf("pattern applies to string values, not kind %q", prop.Kind))
		}
		re, err := regexp.Compile(pd.Pattern)
		if err != nil {
			fail(fmt.Sprintf("invalid pattern: %v", err))
		}
		prop.Pattern = re
	}

	return prop, problems
}

func compileAssertion(class string, idx int, ad AssertionDef) (Assertion, []Problem) {
	var problems []Problem

	a := Assertion{
		Source:  ad.Expr,
		Message: ad.Message,
	}
	if a.Message == "" {
		a.Message = fmt.Sprintf("assertion %q does not hold", ad.Expr)
	}

	if ad.Expr == "" {
		problems = append(problems, Problem{Class: class, Message: fmt.Sprintf("assertion %d: expr is required", idx)})
		return a, problems
	}

	program, err := expr.Compile(ad.Expr, expr.Env(EntityEnv{}), expr.AsBool())
	if err != nil {
		problems = append(problems, Problem{Class: class, Message: fmt.Sprintf("assertion %d: %v", idx, err)})
		return a, problems
	}
	a.Program = program
	return a, problems
}
