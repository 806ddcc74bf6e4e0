// Package registry holds the set of models served by a cruds site. It is
// filled at startup and read-only afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// ErrDuplicateModel is returned when a model slug is registered twice.
var ErrDuplicateModel = errors.New("model already registered")

// Registry maps model slugs to models.
type Registry struct {
	models map[string]*types.Model
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{models: make(map[string]*types.Model)}
}

// Register validates m and adds it under its slug.
func (r *Registry) Register(m *types.Model) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("registering %q: %w", m.Name, err)
	}
	if _, ok := r.models[m.Slug()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, m.Slug())
	}
	r.models[m.Slug()] = m
	return nil
}

// Lookup finds a model by name or slug.
func (r *Registry) Lookup(name string) (*types.Model, bool) {
	m, ok := r.models[(&types.Model{Name: name}).Slug()]
	return m, ok
}

// Models returns the registered models sorted by slug.
func (r *Registry) Models() []*types.Model {
	out := make([]*types.Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug() < out[j].Slug() })
	return out
}

// Names returns the set of registered slugs.
func (r *Registry) Names() map[string]bool {
	out := make(map[string]bool, len(r.models))
	for slug := range r.models {
		out[slug] = true
	}
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}
