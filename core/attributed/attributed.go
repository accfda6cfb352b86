// Package attributed layers a fixed schema of prescribed attributes over a
// scope.
//
// A host type declares its prescribed attributes as an ordered list of
// Signatures, most of them external views over the host's own fields.
// Populate turns them into the leading entries of the host's scope; anything
// appended afterwards by name is an auxiliary attribute.
//
//	type Foo struct {
//		*attributed.Attributed
//		health int32
//	}
//
//	func (f *Foo) Signatures() []attributed.Signature {
//		return []attributed.Signature{
//			attributed.This(f),
//			attributed.Integer("Health", attributed.Ref(&f.health), 100),
//		}
//	}
//
// External views alias absolute field addresses, so a copied host must call
// Bind (or be built with Attach) before its scope is used.
package attributed

import (
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
)

// Host is implemented by types whose scopes are derived from signatures.
// Signatures must be computed from the receiver on every call so that
// storage always refers to the current object's fields.
type Host interface {
	Signatures() []Signature
}

// Attributed is a scope whose leading entries are the host's prescribed
// attributes.
type Attributed struct {
	*scope.Scope

	host       Host
	prescribed []string
}

// New creates a scope for host and populates it.
func New(host Host) (*Attributed, error) {
	a := &Attributed{Scope: scope.New(), host: host}
	a.Scope.SetOwner(host)
	if err := a.Populate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Attach wraps an existing scope, typically a Clone of another host's scope,
// for host and binds every external attribute to host's fields.
func Attach(s *scope.Scope, host Host) (*Attributed, error) {
	a := &Attributed{Scope: s, host: host}
	for _, sig := range host.Signatures() {
		a.prescribed = append(a.prescribed, sig.Name)
	}
	if err := a.Bind(); err != nil {
		return nil, err
	}
	s.SetOwner(host)
	return a, nil
}

// Host returns the object the attributes belong to.
func (a *Attributed) Host() Host { return a.host }

// Populate creates one entry per signature, in declaration order. External
// signatures are seeded with their initial values and bound to the host's
// fields; owned ones are filled from their initial values.
func (a *Attributed) Populate() error {
	sigs := a.host.Signatures()
	if len(sigs) == 0 || sigs[0].Name != ThisAttribute || sigs[0].Kind != scope.KindPointer {
		return errors.New(errors.CodeInvalidState, "first prescribed attribute must be %q", ThisAttribute)
	}

	seen := make(map[string]bool, len(sigs))
	names := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		if seen[sig.Name] {
			return errors.New(errors.CodeDuplicateAttribute, "prescribed attribute %q declared twice", sig.Name)
		}
		seen[sig.Name] = true
		names = append(names, sig.Name)

		d := a.Scope.Append(sig.Name)
		if sig.IsExternal() {
			if err := sig.seed(); err != nil {
				return err
			}
			if err := sig.bind(d); err != nil {
				return errors.Wrap(errors.CodeOf(err), err, "populate %q", sig.Name)
			}
			continue
		}
		if d.Kind() == sig.Kind && d.Size() > 0 {
			continue
		}
		if err := sig.fill(d); err != nil {
			return errors.Wrap(errors.CodeOf(err), err, "populate %q", sig.Name)
		}
	}

	a.prescribed = names
	return nil
}

// Bind re-points every external attribute at the host's current fields and
// the self-reference at the host. It fails with BIND_MISMATCH when the scope's
// leading entries no longer match the host's signatures.
func (a *Attributed) Bind() error {
	sigs := a.host.Signatures()
	if len(sigs) > a.Scope.Len() {
		return errors.New(errors.CodeBindMismatch, "host declares %d attributes, scope has %d entries", len(sigs), a.Scope.Len())
	}

	for i, sig := range sigs {
		name, _ := a.Scope.NameAt(i)
		if name != sig.Name {
			return errors.New(errors.CodeBindMismatch, "entry %d is %q, host declares %q", i, name, sig.Name)
		}
		d, _ := a.Scope.At(i)
		if d.Kind() != sig.Kind && d.Kind() != scope.KindUnset {
			return errors.New(errors.CodeBindMismatch, "attribute %q is %s, host declares %s", sig.Name, d.Kind(), sig.Kind)
		}

		switch {
		case sig.IsExternal():
			if d.Size() != sig.Size && d.IsExternal() {
				return errors.New(errors.CodeBindMismatch, "attribute %q has %d elements, host field has %d", sig.Name, d.Size(), sig.Size)
			}
			if err := sig.bind(d); err != nil {
				return errors.Wrap(errors.CodeBindMismatch, err, "bind %q", sig.Name)
			}
		case sig.Name == ThisAttribute:
			if err := d.SetPointer(a.host, 0); err != nil {
				return errors.Wrap(errors.CodeBindMismatch, err, "bind %q", sig.Name)
			}
		}
	}
	return nil
}

// AppendAuxiliaryAttribute returns the auxiliary attribute name, creating an
// unset owned datum if needed.
func (a *Attributed) AppendAuxiliaryAttribute(name string) (*scope.Datum, error) {
	if a.IsPrescribedAttribute(name) {
		return nil, errors.New(errors.CodeDuplicateAttribute, "%q is a prescribed attribute", name)
	}
	return a.Scope.Append(name), nil
}

// IsPrescribedAttribute reports whether name is declared by the host.
func (a *Attributed) IsPrescribedAttribute(name string) bool {
	for _, n := range a.prescribed {
		if n == name {
			return true
		}
	}
	return false
}

// IsAuxiliaryAttribute reports whether name is an entry the host does not
// declare.
func (a *Attributed) IsAuxiliaryAttribute(name string) bool {
	return a.IsAttribute(name) && !a.IsPrescribedAttribute(name)
}

// IsAttribute reports whether name is any entry of the scope.
func (a *Attributed) IsAttribute(name string) bool {
	return a.Scope.Find(name) != nil
}

// PrescribedNames returns the declared attribute names in order.
func (a *Attributed) PrescribedNames() []string {
	out := make([]string, len(a.prescribed))
	copy(out, a.prescribed)
	return out
}

// AuxiliaryNames returns the names appended after the prescribed block.
func (a *Attributed) AuxiliaryNames() []string {
	var out []string
	for _, n := range a.Scope.Names() {
		if !a.IsPrescribedAttribute(n) {
			out = append(out, n)
		}
	}
	return out
}
