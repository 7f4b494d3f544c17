package shapes

import (
	"regexp"
	"sort"

	"github.com/expr-lang/expr/vm"
)

// Kind constrains the concrete type of a property value.
type Kind string

const (
	// KindAny accepts any value.
	KindAny Kind = ""
	// KindString requires a string literal.
	KindString Kind = "string"
	// KindNumber requires a numeric literal.
	KindNumber Kind = "number"
	// KindBool requires a boolean literal.
	KindBool Kind = "bool"
	// KindIRI requires an entity reference or an absolute IRI string.
	KindIRI Kind = "iri"
	// KindNode requires a reference to an entity present in the graph.
	KindNode Kind = "node"
)

// Target selects the focus entities a shape applies to: every entity
// carrying a type name, the crate's root data entity, or its metadata file
// descriptor.
type Target struct {
	Type       string
	Root       bool
	Descriptor bool
}

// Property is one compiled property constraint of a shape.
type Property struct {
	Path            string
	MinCount        int // 0 means no lower bound
	MaxCount        int // -1 means no upper bound
	Kind            Kind
	Class           string // referenced class name, KindNode only
	ClassType       string // the entity type that class resolves to
	ClassRoot       bool   // class resolves to the root data entity instead
	ClassDescriptor bool   // class resolves to the metadata file descriptor
	Pattern         *regexp.Regexp
	Values          []string // allowed string values, empty means unrestricted
	Message         string   // overrides generated violation messages
}

// Assertion is one compiled expression constraint, evaluated once per focus
// entity with an EntityEnv.
type Assertion struct {
	Source  string
	Program *vm.Program
	Message string
}

// Shape is the compiled constraint set for one class of graph entity.
// Shapes are immutable after compilation.
type Shape struct {
	Name        string
	Description string
	Target      Target
	Closed      bool
	Properties  []Property
	Assertions  []Assertion
}

// EntityEnv exposes one focus entity to assertion expressions. Scalar
// property values appear as Go strings, float64s, and bools; references
// appear as the referenced entity ID.
type EntityEnv struct {
	ID    string           `expr:"id"`
	Types []string         `expr:"types"`
	Props map[string][]any `expr:"props"`
}

// Has reports whether the entity carries the named property.
func (e EntityEnv) Has(name string) bool {
	_, ok := e.Props[name]
	return ok
}

// Count returns the number of values of the named property.
func (e EntityEnv) Count(name string) int {
	return len(e.Props[name])
}

// First returns the first value of the named property, or nil.
func (e EntityEnv) First(name string) any {
	vals := e.Props[name]
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// Store holds the compiled shapes of one schema document, indexed by class
// name. A Store is immutable once Compile returns it.
type Store struct {
	shapes map[string]*Shape
}

// Lookup returns the shape compiled for the given class name.
func (s *Store) Lookup(name string) (*Shape, bool) {
	sh, ok := s.shapes[name]
	return sh, ok
}

// Names returns the class names of all compiled shapes in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.shapes))
	for name := range s.shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of compiled shapes.
func (s *Store) Len() int { return len(s.shapes) }

// Merge returns a new store containing the shapes of s overlaid with those
// of other; on name collision the shape from other wins.
func (s *Store) Merge(other *Store) *Store {
	merged := &Store{shapes: make(map[string]*Shape, len(s.shapes)+len(other.shapes))}
	for name, sh := range s.shapes {
		merged.shapes[name] = sh
	}
	for name, sh := range other.shapes {
		merged.shapes[name] = sh
	}
	return merged
}
