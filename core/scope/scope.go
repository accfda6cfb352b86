// Package scope implements the runtime-typed attribute tree.
//
// A Scope is an insertion-ordered table of named Datums. A Datum of kind
// KindScope holds child scopes, and the set of such children is exactly what a
// scope owns: every child points back at one parent, and the ownership graph
// is always a tree. Reparenting goes through Adopt, which refuses to create
// cycles.
//
//	root := scope.New()
//	health := root.Append("Health")
//	health.PushBackInteger(100)
//
//	child, _ := root.AppendScope("Inventory")
//	child.Append("Slots").PushBackInteger(12)
//
// Scopes are not safe for concurrent use.
package scope

import (
	"github.com/artpar/worldgate/core/errors"
)

// Scope is an ordered mapping from attribute name to Datum.
type Scope struct {
	names  []string
	values []*Datum
	index  map[string]int

	parent *Scope

	// owner is the typed object this scope belongs to, if any.
	owner any
}

// New creates an empty root scope.
func New() *Scope {
	return NewWithCapacity(0)
}

// NewWithCapacity creates an empty root scope sized for n entries.
func NewWithCapacity(n int) *Scope {
	return &Scope{
		names:  make([]string, 0, n),
		values: make([]*Datum, 0, n),
		index:  make(map[string]int, n),
	}
}

// Len returns the number of entries.
func (s *Scope) Len() int { return len(s.values) }

// Names returns the entry names in insertion order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Parent returns the owning scope, or nil for a root.
func (s *Scope) Parent() *Scope { return s.parent }

// Owner returns the typed object this scope belongs to.
func (s *Scope) Owner() any { return s.owner }

// SetOwner links the scope to its typed object.
func (s *Scope) SetOwner(owner any) { s.owner = owner }

// Root walks up to the outermost ancestor.
func (s *Scope) Root() *Scope {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Find returns the datum stored under name, or nil.
func (s *Scope) Find(name string) *Datum {
	if i, ok := s.index[name]; ok {
		return s.values[i]
	}
	return nil
}

// Append returns the datum stored under name, creating an unset one if absent.
// The returned pointer stays valid until the scope is cleared.
func (s *Scope) Append(name string) *Datum {
	if d := s.Find(name); d != nil {
		return d
	}
	d := &Datum{}
	s.index[name] = len(s.values)
	s.names = append(s.names, name)
	s.values = append(s.values, d)
	return d
}

// At returns the datum at insertion position i.
func (s *Scope) At(i int) (*Datum, error) {
	if i < 0 || i >= len(s.values) {
		return nil, errors.New(errors.CodeIndexOutOfRange, "index %d out of range [0,%d)", i, len(s.values))
	}
	return s.values[i], nil
}

// NameAt returns the name at insertion position i.
func (s *Scope) NameAt(i int) (string, error) {
	if i < 0 || i >= len(s.names) {
		return "", errors.New(errors.CodeIndexOutOfRange, "index %d out of range [0,%d)", i, len(s.names))
	}
	return s.names[i], nil
}

// AppendScope creates a child scope and appends it to the nested scope datum
// at name.
func (s *Scope) AppendScope(name string) (*Scope, error) {
	d, err := s.nestedDatum(name)
	if err != nil {
		return nil, err
	}
	child := New()
	child.parent = s
	d.scopes = append(d.scopes, child)
	return child, nil
}

// Adopt moves child under s at name. The child is detached from its current
// parent first, with its former siblings keeping their order. Adopting s
// itself or one of its ancestors fails with CYCLE_DETECTED and leaves both
// trees untouched.
func (s *Scope) Adopt(child *Scope, name string) error {
	if child == nil {
		return errors.New(errors.CodeInvalidState, "cannot adopt a nil scope")
	}
	if child == s {
		return errors.New(errors.CodeCycleDetected, "scope cannot adopt itself")
	}
	if child.IsAncestorOf(s) {
		return errors.New(errors.CodeCycleDetected, "cannot adopt an ancestor under %q", name)
	}
	if d := s.Find(name); d != nil && d.kind != KindUnset && d.kind != KindScope {
		return errors.New(errors.CodeTypeConflict, "%q holds %s, not nested scopes", name, d.kind)
	}

	child.Orphan()

	d, err := s.nestedDatum(name)
	if err != nil {
		return err
	}
	child.parent = s
	d.scopes = append(d.scopes, child)
	return nil
}

// Orphan detaches s from its parent. It is a no-op for a root.
func (s *Scope) Orphan() {
	p := s.parent
	if p == nil {
		return
	}
	if d, i, ok := p.locate(s); ok {
		d.scopes = remove(d.scopes, i)
	}
	s.parent = nil
}

// FindName returns the name under which child is stored in s.
func (s *Scope) FindName(child *Scope) (string, bool) {
	for i, d := range s.values {
		if d.kind != KindScope {
			continue
		}
		for _, c := range d.scopes {
			if c == child {
				return s.names[i], true
			}
		}
	}
	return "", false
}

// IsAncestorOf reports whether s is a strict ancestor of other.
func (s *Scope) IsAncestorOf(other *Scope) bool {
	if other == nil {
		return false
	}
	for p := other.parent; p != nil; p = p.parent {
		if p == s {
			return true
		}
	}
	return false
}

// Equal compares two scopes structurally: same names in the same order with
// equal datums, recursively for nested scopes.
func (s *Scope) Equal(other *Scope) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if len(s.values) != len(other.values) {
		return false
	}
	for i := range s.values {
		if s.names[i] != other.names[i] {
			return false
		}
		if !s.values[i].Equal(other.values[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies the scope into a new root. Owned datums and nested scopes
// are copied; external datums are re-created as views over the same host
// memory and must be re-bound by whoever owns the copy. Owners are not
// carried over.
func (s *Scope) Clone() *Scope {
	c := NewWithCapacity(len(s.values))
	for i, d := range s.values {
		c.index[s.names[i]] = i
		c.names = append(c.names, s.names[i])
		c.values = append(c.values, d.clone(c))
	}
	return c
}

// Clear removes every entry, detaching all owned children recursively.
func (s *Scope) Clear() {
	for _, d := range s.values {
		for _, child := range d.scopes {
			child.parent = nil
			child.Clear()
		}
		d.scopes = nil
	}
	s.names = s.names[:0]
	s.values = s.values[:0]
	s.index = make(map[string]int)
}

// Children returns every directly owned child in entry order.
func (s *Scope) Children() []*Scope {
	var out []*Scope
	for _, d := range s.values {
		out = append(out, d.scopes...)
	}
	return out
}

// nestedDatum returns the datum at name typed as KindScope.
func (s *Scope) nestedDatum(name string) (*Datum, error) {
	d := s.Append(name)
	if err := d.SetType(KindScope); err != nil {
		return nil, errors.Wrap(errors.CodeTypeConflict, err, "attribute %q", name)
	}
	return d, nil
}

// locate finds the datum and position holding child.
func (s *Scope) locate(child *Scope) (*Datum, int, bool) {
	for _, d := range s.values {
		if d.kind != KindScope {
			continue
		}
		for i, c := range d.scopes {
			if c == child {
				return d, i, true
			}
		}
	}
	return nil, 0, false
}
