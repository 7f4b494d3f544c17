// Package crate models an RO-Crate metadata graph and loads it from local
// crate packages (directories or zip archives). The validation engine only
// consumes the traversal API defined here; serialization details never leak
// past this package.
package crate

import (
	"sort"
	"strconv"
)

// ValueKind discriminates the concrete type held by a Value.
type ValueKind string

const (
	// KindString is a JSON string literal.
	KindString ValueKind = "string"
	// KindNumber is a JSON number literal.
	KindNumber ValueKind = "number"
	// KindBool is a JSON boolean literal.
	KindBool ValueKind = "bool"
	// KindRef is a reference to another entity by identifier.
	KindRef ValueKind = "ref"
)

// Value is a single property value of an entity: a scalar literal or a
// reference to another entity in the graph.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Ref  string
}

// String creates a string literal value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number creates a numeric literal value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Boolean creates a boolean literal value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Ref creates a reference value pointing at the entity with the given ID.
func Ref(id string) Value { return Value{Kind: KindRef, Ref: id} }

// Display renders the value for human-readable messages.
func (v Value) Display() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindRef:
		return v.Ref
	default:
		return ""
	}
}

// Entity is a single node of the metadata graph: an identifier, zero or more
// types, and a property map. Entities are immutable once the graph is built.
type Entity struct {
	id    string
	types []string
	props map[string][]Value
}

// ID returns the entity identifier (the JSON-LD @id).
func (e *Entity) ID() string { return e.id }

// Types returns a copy of the entity's type names (the JSON-LD @type values).
func (e *Entity) Types() []string {
	out := make([]string, len(e.types))
	copy(out, e.types)
	return out
}

// HasType reports whether the entity carries the given type name.
func (e *Entity) HasType(name string) bool {
	for _, t := range e.types {
		if t == name {
			return true
		}
	}
	return false
}

// Values returns a copy of the values of the named property, or nil if the
// entity does not carry it.
func (e *Entity) Values(name string) []Value {
	vals, ok := e.props[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(vals))
	copy(out, vals)
	return out
}

// Has reports whether the entity carries the named property.
func (e *Entity) Has(name string) bool {
	_, ok := e.props[name]
	return ok
}

// PropertyNames returns the entity's property names in sorted order.
func (e *Entity) PropertyNames() []string {
	names := make([]string, 0, len(e.props))
	for name := range e.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Graph is an immutable RO-Crate metadata graph: entities indexed by ID,
// iterable in document order, with the metadata descriptor and the root data
// entity resolved at load time when present.
type Graph struct {
	entities   map[string]*Entity
	order      []string
	descriptor *Entity
	root       *Entity
}

// Entity returns the entity with the given ID, if present.
func (g *Graph) Entity(id string) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// Entities returns all entities in document order.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.entities[id])
	}
	return out
}

// EntitiesOfType returns, in document order, the entities carrying the given
// type name.
func (g *Graph) EntitiesOfType(name string) []*Entity {
	var out []*Entity
	for _, id := range g.order {
		if e := g.entities[id]; e.HasType(name) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entities in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Descriptor returns the metadata file descriptor entity
// (ro-crate-metadata.json), or nil if the crate does not declare one.
func (g *Graph) Descriptor() *Entity { return g.descriptor }

// Root returns the root data entity, resolved through the descriptor's
// "about" reference, or nil if it cannot be determined.
func (g *Graph) Root() *Entity { return g.root }
