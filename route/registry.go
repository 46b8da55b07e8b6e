package route

import (
	"errors"
	"regexp"
	"sync/atomic"
)

var placeholderToken = regexp.MustCompile(`\{[^}]*\}`)

// Registry is an immutable snapshot of resolved routes in registration
// order.
type Registry struct {
	routes []*Resolved
	byName map[string]*Resolved
}

// NewRegistry resolves every descriptor. All declaration mistakes are
// reported together. Two routes answering the same method on the same
// concrete path are rejected.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	reg := &Registry{byName: map[string]*Resolved{}}
	owners := map[string]string{}
	var errs []error

	for _, d := range descriptors {
		r, err := Resolve(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if name := r.Name(); name != "" {
			if _, dup := reg.byName[name]; dup {
				errs = append(errs, configErrorf(name, "duplicate route name"))
				continue
			}
			reg.byName[name] = r
		}
		for _, m := range r.Methods {
			for _, p := range r.Paths {
				key := m + " " + placeholderToken.ReplaceAllString(p, "{}")
				if owner, dup := owners[key]; dup {
					errs = append(errs, configErrorf(d.Path, "%s conflicts with route %s", key, owner))
					continue
				}
				owners[key] = d.Path
			}
		}
		reg.routes = append(reg.routes, r)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return reg, nil
}

// Routes returns the resolved routes in registration order.
func (r *Registry) Routes() []*Resolved {
	if r == nil {
		return nil
	}
	return append([]*Resolved(nil), r.routes...)
}

// Lookup finds a route by handler name.
func (r *Registry) Lookup(name string) (*Resolved, bool) {
	if r == nil {
		return nil, false
	}
	res, ok := r.byName[name]
	return res, ok
}

// Len returns the number of routes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.routes)
}

// Store holds the process-wide registry. Rebuilds replace the snapshot as a
// whole; readers never see a partially built registry.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore creates a store holding reg.
func NewStore(reg *Registry) *Store {
	s := &Store{}
	s.current.Store(reg)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Registry {
	return s.current.Load()
}

// Replace swaps in a new snapshot and returns the previous one.
func (s *Store) Replace(reg *Registry) *Registry {
	return s.current.Swap(reg)
}
