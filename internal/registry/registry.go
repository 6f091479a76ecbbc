// Package registry provides the name-to-factory lookup used to turn
// declarative configuration fragments into live components. Each component
// kind (model, optimizer, sampler, transform, callback, metrics logger) owns
// one Registry populated at startup; unknown names fail fast.
package registry

import (
	"sort"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
)

type Factory[T any] func(args Args) (T, error)

type Registry[T any] struct {
	kind      string
	factories map[string]Factory[T]
}

func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]Factory[T]),
	}
}

func (r *Registry[T]) Register(name string, factory Factory[T]) {
	if _, ok := r.factories[name]; ok {
		panic("duplicate " + r.kind + " registration: " + name)
	}
	r.factories[name] = factory
}

// Build resolves name to a registered factory and constructs the component.
func (r *Registry[T]) Build(name string, args Args) (T, error) {
	factory, ok := r.factories[name]
	if !ok {
		var zero T
		return zero, errors.Errorf("unknown %s name %q, registered: %v", r.kind, name, r.Names())
	}
	component, err := factory(args)
	if err != nil {
		var zero T
		return zero, errors.Wrapf(err, "construct %s %q", r.kind, name)
	}
	return component, nil
}

func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
