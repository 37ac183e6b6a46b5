// Package templates renders autoinstall documents and boot-menu
// configuration through pluggable template backends. A backend is
// selected per document by an inline directive, falling back to the
// configured default.
package templates

import (
	"fmt"
	"sort"
)

// Provider renders one template dialect. Implementations must be safe
// for concurrent use.
type Provider interface {
	// Name returns the directive token that selects this provider.
	Name() string

	// Render expands content against data. snippets resolves
	// embedded snippet references. A returned error means the
	// backend could not produce output at all; recoverable
	// expansion problems are reported through the renderer's error
	// list instead.
	Render(content string, data map[string]interface{}, snippets *SnippetStore) (string, error)
}

// Registry maps directive tokens to providers. The zero value is not
// usable; construct with NewRegistry.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("template backend %q is not registered (have %v)", name, r.Names())
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
