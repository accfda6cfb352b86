package scope

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/artpar/worldgate/core/errors"
)

// Kind identifies the element type held by a Datum.
type Kind uint8

const (
	KindUnset Kind = iota
	KindInteger
	KindFloat
	KindVector
	KindMatrix
	KindString
	KindPointer
	KindScope
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	case KindString:
		return "string"
	case KindPointer:
		return "pointer"
	case KindScope:
		return "scope"
	default:
		return "unknown"
	}
}

// Datum is a homogeneous, runtime-typed array of values.
//
// A Datum either owns its elements or is an external view over memory that
// belongs to a host object (a slice over one of its fields). External datums
// write through to the host and can never change size.
//
// Only the slice matching the datum's kind is ever non-nil.
type Datum struct {
	kind     Kind
	external bool

	ints   []int32
	floats []float32
	vecs   []mgl32.Vec4
	mats   []mgl32.Mat4
	strs   []string
	ptrs   []any
	scopes []*Scope
}

// NewDatum returns an empty owned datum of the given kind.
func NewDatum(kind Kind) *Datum {
	return &Datum{kind: kind}
}

// Kind returns the element kind.
func (d *Datum) Kind() Kind { return d.kind }

// IsExternal reports whether the datum views host-owned memory.
func (d *Datum) IsExternal() bool { return d.external }

// Size returns the number of elements.
func (d *Datum) Size() int {
	switch d.kind {
	case KindInteger:
		return len(d.ints)
	case KindFloat:
		return len(d.floats)
	case KindVector:
		return len(d.vecs)
	case KindMatrix:
		return len(d.mats)
	case KindString:
		return len(d.strs)
	case KindPointer:
		return len(d.ptrs)
	case KindScope:
		return len(d.scopes)
	default:
		return 0
	}
}

// Capacity returns the number of elements the datum can hold without growing.
func (d *Datum) Capacity() int {
	switch d.kind {
	case KindInteger:
		return cap(d.ints)
	case KindFloat:
		return cap(d.floats)
	case KindVector:
		return cap(d.vecs)
	case KindMatrix:
		return cap(d.mats)
	case KindString:
		return cap(d.strs)
	case KindPointer:
		return cap(d.ptrs)
	case KindScope:
		return cap(d.scopes)
	default:
		return 0
	}
}

// SetType fixes the datum's kind. Setting the current kind again is a no-op.
func (d *Datum) SetType(kind Kind) error {
	if d.kind == KindUnset || d.kind == kind {
		d.kind = kind
		return nil
	}
	return errors.New(errors.CodeTypeConflict, "datum is %s, cannot retype to %s", d.kind, kind)
}

// -----------------------------------------------------------------------------
// External storage
// -----------------------------------------------------------------------------

// SetIntegerStorage makes the datum an external view over data.
func (d *Datum) SetIntegerStorage(data []int32) error {
	if err := d.bindStorage(KindInteger); err != nil {
		return err
	}
	d.ints = data
	return nil
}

// SetFloatStorage makes the datum an external view over data.
func (d *Datum) SetFloatStorage(data []float32) error {
	if err := d.bindStorage(KindFloat); err != nil {
		return err
	}
	d.floats = data
	return nil
}

// SetVectorStorage makes the datum an external view over data.
func (d *Datum) SetVectorStorage(data []mgl32.Vec4) error {
	if err := d.bindStorage(KindVector); err != nil {
		return err
	}
	d.vecs = data
	return nil
}

// SetMatrixStorage makes the datum an external view over data.
func (d *Datum) SetMatrixStorage(data []mgl32.Mat4) error {
	if err := d.bindStorage(KindMatrix); err != nil {
		return err
	}
	d.mats = data
	return nil
}

// SetStringStorage makes the datum an external view over data.
func (d *Datum) SetStringStorage(data []string) error {
	if err := d.bindStorage(KindString); err != nil {
		return err
	}
	d.strs = data
	return nil
}

// SetPointerStorage makes the datum an external view over data.
func (d *Datum) SetPointerStorage(data []any) error {
	if err := d.bindStorage(KindPointer); err != nil {
		return err
	}
	d.ptrs = data
	return nil
}

// bindStorage checks that the datum may switch to external storage of kind.
// An external datum may be re-pointed; an owned one may not once it has
// allocated elements.
func (d *Datum) bindStorage(kind Kind) error {
	if kind == KindScope {
		return errors.New(errors.CodeInvalidState, "nested scopes cannot use external storage")
	}
	if d.kind != KindUnset && d.kind != kind {
		return errors.New(errors.CodeTypeConflict, "datum is %s, cannot bind %s storage", d.kind, kind)
	}
	if !d.external && d.Capacity() > 0 {
		return errors.New(errors.CodeInvalidState, "datum already owns %d %s elements", d.Size(), d.kind)
	}
	d.kind = kind
	d.external = true
	return nil
}

// -----------------------------------------------------------------------------
// Element access
// -----------------------------------------------------------------------------

func get[T any](d *Datum, want Kind, s []T, i int) (T, error) {
	var zero T
	if d.kind != want {
		return zero, errors.New(errors.CodeTypeMismatch, "datum is %s, not %s", d.kind, want)
	}
	if s == nil {
		return zero, errors.New(errors.CodeNullStorage, "%s datum has no storage", want)
	}
	if i < 0 || i >= len(s) {
		return zero, errors.New(errors.CodeIndexOutOfRange, "index %d out of range [0,%d)", i, len(s))
	}
	return s[i], nil
}

func set[T any](d *Datum, want Kind, s []T, v T, i int) error {
	if d.kind != want {
		return errors.New(errors.CodeTypeMismatch, "datum is %s, not %s", d.kind, want)
	}
	if s == nil {
		return errors.New(errors.CodeNullStorage, "%s datum has no storage", want)
	}
	if i < 0 || i >= len(s) {
		return errors.New(errors.CodeIndexOutOfRange, "index %d out of range [0,%d)", i, len(s))
	}
	s[i] = v
	return nil
}

// Integer returns element i.
func (d *Datum) Integer(i int) (int32, error) { return get(d, KindInteger, d.ints, i) }

// Float returns element i.
func (d *Datum) Float(i int) (float32, error) { return get(d, KindFloat, d.floats, i) }

// Vector returns element i.
func (d *Datum) Vector(i int) (mgl32.Vec4, error) { return get(d, KindVector, d.vecs, i) }

// Matrix returns element i.
func (d *Datum) Matrix(i int) (mgl32.Mat4, error) { return get(d, KindMatrix, d.mats, i) }

// String returns element i.
func (d *Datum) String(i int) (string, error) { return get(d, KindString, d.strs, i) }

// Pointer returns element i.
func (d *Datum) Pointer(i int) (any, error) { return get(d, KindPointer, d.ptrs, i) }

// Scope returns nested scope i.
func (d *Datum) Scope(i int) (*Scope, error) { return get(d, KindScope, d.scopes, i) }

// SetInteger overwrites element i.
func (d *Datum) SetInteger(v int32, i int) error { return set(d, KindInteger, d.ints, v, i) }

// SetFloat overwrites element i.
func (d *Datum) SetFloat(v float32, i int) error { return set(d, KindFloat, d.floats, v, i) }

// SetVector overwrites element i.
func (d *Datum) SetVector(v mgl32.Vec4, i int) error { return set(d, KindVector, d.vecs, v, i) }

// SetMatrix overwrites element i.
func (d *Datum) SetMatrix(v mgl32.Mat4, i int) error { return set(d, KindMatrix, d.mats, v, i) }

// SetString overwrites element i.
func (d *Datum) SetString(v string, i int) error { return set(d, KindString, d.strs, v, i) }

// SetPointer overwrites element i.
func (d *Datum) SetPointer(v any, i int) error { return set(d, KindPointer, d.ptrs, v, i) }

// -----------------------------------------------------------------------------
// Growth (owned storage only)
// -----------------------------------------------------------------------------

// grow prepares an owned datum to take one more element of kind.
func (d *Datum) grow(kind Kind) error {
	if err := d.SetType(kind); err != nil {
		return err
	}
	if d.external {
		return errors.New(errors.CodeInvalidState, "cannot grow external %s datum", d.kind)
	}
	return nil
}

// PushBackInteger appends v, typing an unset datum as integer.
func (d *Datum) PushBackInteger(v int32) error {
	if err := d.grow(KindInteger); err != nil {
		return err
	}
	d.ints = append(d.ints, v)
	return nil
}

// PushBackFloat appends v, typing an unset datum as float.
func (d *Datum) PushBackFloat(v float32) error {
	if err := d.grow(KindFloat); err != nil {
		return err
	}
	d.floats = append(d.floats, v)
	return nil
}

// PushBackVector appends v, typing an unset datum as vector.
func (d *Datum) PushBackVector(v mgl32.Vec4) error {
	if err := d.grow(KindVector); err != nil {
		return err
	}
	d.vecs = append(d.vecs, v)
	return nil
}

// PushBackMatrix appends v, typing an unset datum as matrix.
func (d *Datum) PushBackMatrix(v mgl32.Mat4) error {
	if err := d.grow(KindMatrix); err != nil {
		return err
	}
	d.mats = append(d.mats, v)
	return nil
}

// PushBackString appends v, typing an unset datum as string.
func (d *Datum) PushBackString(v string) error {
	if err := d.grow(KindString); err != nil {
		return err
	}
	d.strs = append(d.strs, v)
	return nil
}

// PushBackPointer appends v, typing an unset datum as pointer.
func (d *Datum) PushBackPointer(v any) error {
	if err := d.grow(KindPointer); err != nil {
		return err
	}
	d.ptrs = append(d.ptrs, v)
	return nil
}

// Reserve grows the capacity of an owned datum to at least n.
func (d *Datum) Reserve(n int) error {
	if d.kind == KindUnset {
		return errors.New(errors.CodeInvalidState, "cannot reserve storage for an unset datum")
	}
	if d.external {
		return errors.New(errors.CodeInvalidState, "cannot reserve external %s datum", d.kind)
	}
	if n <= d.Capacity() {
		return nil
	}
	switch d.kind {
	case KindInteger:
		d.ints = reserve(d.ints, n)
	case KindFloat:
		d.floats = reserve(d.floats, n)
	case KindVector:
		d.vecs = reserve(d.vecs, n)
	case KindMatrix:
		d.mats = reserve(d.mats, n)
	case KindString:
		d.strs = reserve(d.strs, n)
	case KindPointer:
		d.ptrs = reserve(d.ptrs, n)
	case KindScope:
		d.scopes = reserve(d.scopes, n)
	}
	return nil
}

// Resize sets the size of an owned datum, zero-filling new elements.
// Nested scopes cannot be resized; use Scope.AppendScope and Scope.Orphan.
func (d *Datum) Resize(n int) error {
	if d.kind == KindUnset {
		return errors.New(errors.CodeInvalidState, "cannot resize an unset datum")
	}
	if d.external {
		return errors.New(errors.CodeInvalidState, "cannot resize external %s datum", d.kind)
	}
	if n < 0 {
		return errors.New(errors.CodeIndexOutOfRange, "negative size %d", n)
	}
	switch d.kind {
	case KindInteger:
		d.ints = resize(d.ints, n)
	case KindFloat:
		d.floats = resize(d.floats, n)
	case KindVector:
		d.vecs = resize(d.vecs, n)
	case KindMatrix:
		d.mats = resize(d.mats, n)
	case KindString:
		d.strs = resize(d.strs, n)
	case KindPointer:
		d.ptrs = resize(d.ptrs, n)
	case KindScope:
		return errors.New(errors.CodeInvalidState, "cannot resize a nested scope datum")
	}
	return nil
}

// RemoveAt deletes element i of an owned datum, keeping order.
func (d *Datum) RemoveAt(i int) error {
	if d.external {
		return errors.New(errors.CodeInvalidState, "cannot remove from external %s datum", d.kind)
	}
	if i < 0 || i >= d.Size() {
		return errors.New(errors.CodeIndexOutOfRange, "index %d out of range [0,%d)", i, d.Size())
	}
	switch d.kind {
	case KindInteger:
		d.ints = remove(d.ints, i)
	case KindFloat:
		d.floats = remove(d.floats, i)
	case KindVector:
		d.vecs = remove(d.vecs, i)
	case KindMatrix:
		d.mats = remove(d.mats, i)
	case KindString:
		d.strs = remove(d.strs, i)
	case KindPointer:
		d.ptrs = remove(d.ptrs, i)
	case KindScope:
		d.scopes[i].parent = nil
		d.scopes = remove(d.scopes, i)
	}
	return nil
}

// Clear empties an owned datum, keeping its kind and capacity. Clearing an
// external datum only drops the view.
func (d *Datum) Clear() {
	if d.external {
		d.ints, d.floats, d.vecs, d.mats, d.strs, d.ptrs = nil, nil, nil, nil, nil, nil
		return
	}
	for _, child := range d.scopes {
		child.parent = nil
	}
	d.ints = d.ints[:0]
	d.floats = d.floats[:0]
	d.vecs = d.vecs[:0]
	d.mats = d.mats[:0]
	d.strs = d.strs[:0]
	d.ptrs = d.ptrs[:0]
	d.scopes = d.scopes[:0]
}

func reserve[T any](s []T, n int) []T {
	out := make([]T, len(s), n)
	copy(out, s)
	return out
}

func resize[T any](s []T, n int) []T {
	if n <= len(s) {
		var zero T
		for i := n; i < len(s); i++ {
			s[i] = zero
		}
		return s[:n]
	}
	if n <= cap(s) {
		return s[:n]
	}
	return append(s, make([]T, n-len(s))...)
}

func remove[T any](s []T, i int) []T {
	copy(s[i:], s[i+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

// -----------------------------------------------------------------------------
// Comparison
// -----------------------------------------------------------------------------

// Equal reports element-wise equality. Datums of different kinds are never
// equal; nested scopes compare structurally.
func (d *Datum) Equal(other *Datum) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	if d.kind != other.kind || d.Size() != other.Size() {
		return false
	}
	switch d.kind {
	case KindInteger:
		return equalSlices(d.ints, other.ints)
	case KindFloat:
		return equalSlices(d.floats, other.floats)
	case KindVector:
		return equalSlices(d.vecs, other.vecs)
	case KindMatrix:
		return equalSlices(d.mats, other.mats)
	case KindString:
		return equalSlices(d.strs, other.strs)
	case KindPointer:
		for i := range d.ptrs {
			if !samePointer(d.ptrs[i], other.ptrs[i]) {
				return false
			}
		}
		return true
	case KindScope:
		for i := range d.scopes {
			if !d.scopes[i].Equal(other.scopes[i]) {
				return false
			}
		}
		return true
	}
	return true
}

func equalSlices[T comparable](a, b []T) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// samePointer compares pointer elements by identity. Values whose dynamic
// type is not comparable are only equal to themselves via reflect identity.
func samePointer(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// clone copies d for a scope being deep-copied into parent. Owned elements
// are copied, external datums keep viewing the same host memory and nested
// scopes are cloned recursively.
func (d *Datum) clone(parent *Scope) *Datum {
	c := &Datum{kind: d.kind, external: d.external}
	if d.external {
		c.ints, c.floats, c.vecs, c.mats, c.strs, c.ptrs = d.ints, d.floats, d.vecs, d.mats, d.strs, d.ptrs
		return c
	}
	c.ints = cloneSlice(d.ints)
	c.floats = cloneSlice(d.floats)
	c.vecs = cloneSlice(d.vecs)
	c.mats = cloneSlice(d.mats)
	c.strs = cloneSlice(d.strs)
	c.ptrs = cloneSlice(d.ptrs)
	if d.scopes != nil {
		c.scopes = make([]*Scope, len(d.scopes))
		for i, child := range d.scopes {
			cc := child.Clone()
			cc.parent = parent
			c.scopes[i] = cc
		}
	}
	return c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s), cap(s))
	copy(out, s)
	return out
}
