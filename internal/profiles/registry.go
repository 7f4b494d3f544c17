package profiles

import (
	"sort"
	"sync"

	"github.com/rocval-dev/rocval/internal/crate"
)

// Registry indexes compiled profiles by token and by identifier. Both must
// be unique; registration is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]*Profile
	byID    map[string]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[string]*Profile),
		byID:    make(map[string]*Profile),
	}
}

// Register adds a profile. A token collision is a *DuplicateTokenError, an
// identifier collision a *DuplicateIDError; in both cases the registry is
// left unchanged.
func (r *Registry) Register(p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byToken[p.Token]; ok {
		return &DuplicateTokenError{Token: p.Token, ExistingID: existing.ID}
	}
	if existing, ok := r.byID[p.ID]; ok {
		return &DuplicateIDError{ID: p.ID, ExistingToken: existing.Token}
	}

	r.byToken[p.Token] = p
	r.byID[p.ID] = p
	return nil
}

// Resolve returns the profile registered under a token.
func (r *Registry) Resolve(token string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byToken[token]
	if !ok {
		return nil, &NotFoundError{Token: token}
	}
	return p, nil
}

// ResolveID returns the profile registered under an identifier URI.
func (r *Registry) ResolveID(id string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	return p, ok
}

// Tokens returns all registered tokens in sorted order.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.byToken))
	for token := range r.byToken {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

// Profiles returns all registered profiles in token order.
func (r *Registry) Profiles() []*Profile {
	tokens := r.Tokens()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Profile, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, r.byToken[token])
	}
	return out
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}

// Detect matches the crate's declared conformance against registered
// profile identifiers. It inspects the root data entity's conformsTo
// references (falling back to the metadata descriptor's) and returns the
// matching profiles in token order.
func (r *Registry) Detect(g *crate.Graph) []*Profile {
	declared := conformsTo(g.Root())
	if len(declared) == 0 {
		declared = conformsTo(g.Descriptor())
	}

	seen := make(map[string]bool)
	var out []*Profile
	for _, id := range declared {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.ResolveID(id); ok {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func conformsTo(e *crate.Entity) []string {
	if e == nil {
		return nil
	}
	var ids []string
	for _, v := range e.Values("conformsTo") {
		switch v.Kind {
		case crate.KindRef:
			ids = append(ids, v.Ref)
		case crate.KindString:
			ids = append(ids, v.Str)
		}
	}
	return ids
}
