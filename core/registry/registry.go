// Package registry maps class names to node constructors.
// The document builder looks classes up by the ClassName attribute of
// Entity and Action elements.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/world"
)

// Constructor builds a fresh, unnamed node.
type Constructor func() (world.Node, error)

// Class describes a registered class.
type Class struct {
	Name string     `json:"name"`
	Role world.Role `json:"-"`
	Kind string     `json:"role"`
}

type entry struct {
	class Class
	ctor  Constructor
}

// Registry holds class constructors. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// classes by name
	classes map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		classes: make(map[string]entry),
	}
}

// Default returns a registry with the built-in classes registered.
func Default() *Registry {
	r := New()
	builtins := []struct {
		name string
		role world.Role
		ctor Constructor
	}{
		{"Entity", world.RoleEntity, func() (world.Node, error) { return world.NewEntity() }},
		{"Action", world.RoleAction, func() (world.Node, error) { return world.NewAction() }},
		{"ActionList", world.RoleActionList, func() (world.Node, error) { return world.NewActionList() }},
		{"ActionListIf", world.RoleActionListIf, func() (world.Node, error) { return world.NewActionListIf() }},
	}
	for _, b := range builtins {
		// Names are distinct, so this cannot fail.
		_ = r.Register(b.name, b.role, b.ctor)
	}
	return r
}

// Register adds a class. Registering a name twice returns a *ConflictError.
func (r *Registry) Register(name string, role world.Role, ctor Constructor) error {
	if name == "" {
		return fmt.Errorf("class name is required")
	}
	if ctor == nil {
		return fmt.Errorf("class %q: constructor is nil", name)
	}
	if role != world.RoleEntity && !role.IsAction() {
		return fmt.Errorf("class %q: role %s cannot be instantiated by name", name, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.classes[name]; exists {
		return &ConflictError{Name: name, Existing: existing.class.Role, Requested: role}
	}
	r.classes[name] = entry{
		class: Class{Name: name, Role: role, Kind: role.String()},
		ctor:  ctor,
	}
	return nil
}

// Unregister removes a class.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[name]; !exists {
		return errors.New(errors.CodeNotFound, "class %q not registered", name)
	}
	delete(r.classes, name)
	return nil
}

// Get returns a registered class by name.
func (r *Registry) Get(name string) (Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.classes[name]
	return e.class, ok
}

// List returns all registered classes sorted by name.
func (r *Registry) List() []Class {
	r.mu.RLock()
	defer r.mu.RUnlock()

	classes := make([]Class, 0, len(r.classes))
	for _, e := range r.classes {
		classes = append(classes, e.class)
	}

	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Name < classes[j].Name
	})

	return classes
}

// Create instantiates className. Unknown classes fail with
// UNEXPECTED_ELEMENT, since they can only come from a document naming a
// class nothing registered.
func (r *Registry) Create(className string) (world.Node, error) {
	r.mu.RLock()
	e, ok := r.classes[className]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeUnexpectedElement, "class %q not registered", className)
	}

	n, err := e.ctor()
	if err != nil {
		return nil, fmt.Errorf("construct %q: %w", className, err)
	}
	if n.Role() != e.class.Role {
		return nil, errors.New(errors.CodeInvalidState, "class %q built a %s, registered as %s", className, n.Role(), e.class.Role)
	}
	return n, nil
}

// ConflictError reports a class registered twice.
type ConflictError struct {
	Name      string
	Existing  world.Role
	Requested world.Role
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("class %q already registered as %s (requested %s)", e.Name, e.Existing, e.Requested)
}

var _ world.Factory = (*Registry)(nil)
