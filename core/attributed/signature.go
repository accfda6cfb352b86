package attributed

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
)

// ThisAttribute is the name of the self-reference every host must declare
// first.
const ThisAttribute = "this"

// Signature declares one prescribed attribute.
//
// Storage, when set, is a typed slice aliasing a field of the host ([]int32,
// []float32, []mgl32.Vec4, []mgl32.Mat4, []string or []any) and makes the
// attribute an external view. Initial holds element-wise initial values of
// the same slice type; for external attributes they are copied into Storage
// when the host is populated.
type Signature struct {
	Name    string
	Kind    scope.Kind
	Size    int
	Initial any
	Storage any
}

// IsExternal reports whether the attribute is backed by host memory.
func (s Signature) IsExternal() bool { return s.Storage != nil }

// Ref returns a one-element slice aliasing *p, for binding scalar fields.
// The slice keeps the host reachable for as long as the datum views it.
func Ref[T any](p *T) []T {
	return unsafe.Slice(p, 1)
}

// This declares the self-reference attribute pointing back at host.
func This(host any) Signature {
	return Signature{Name: ThisAttribute, Kind: scope.KindPointer, Size: 1, Initial: []any{host}}
}

// Integer declares an integer attribute. A nil storage makes it owned.
func Integer(name string, storage []int32, initial ...int32) Signature {
	return signature(name, scope.KindInteger, storage, initial)
}

// Float declares a float attribute. A nil storage makes it owned.
func Float(name string, storage []float32, initial ...float32) Signature {
	return signature(name, scope.KindFloat, storage, initial)
}

// Vector declares a vector attribute. A nil storage makes it owned.
func Vector(name string, storage []mgl32.Vec4, initial ...mgl32.Vec4) Signature {
	return signature(name, scope.KindVector, storage, initial)
}

// Matrix declares a matrix attribute. A nil storage makes it owned.
func Matrix(name string, storage []mgl32.Mat4, initial ...mgl32.Mat4) Signature {
	return signature(name, scope.KindMatrix, storage, initial)
}

// String declares a string attribute. A nil storage makes it owned.
func String(name string, storage []string, initial ...string) Signature {
	return signature(name, scope.KindString, storage, initial)
}

// Pointer declares a pointer attribute. A nil storage makes it owned.
func Pointer(name string, storage []any, initial ...any) Signature {
	return signature(name, scope.KindPointer, storage, initial)
}

// Nested declares an owned attribute holding child scopes.
func Nested(name string) Signature {
	return Signature{Name: name, Kind: scope.KindScope}
}

func signature[T any](name string, kind scope.Kind, storage []T, initial []T) Signature {
	sig := Signature{Name: name, Kind: kind}
	if storage != nil {
		sig.Storage = storage
		sig.Size = len(storage)
	} else {
		sig.Size = len(initial)
	}
	if len(initial) > 0 {
		sig.Initial = initial
	}
	return sig
}

// seed copies Initial into Storage element-wise.
func (s Signature) seed() error {
	if s.Storage == nil || s.Initial == nil {
		return nil
	}
	switch st := s.Storage.(type) {
	case []int32:
		return seedSlice(s, st)
	case []float32:
		return seedSlice(s, st)
	case []mgl32.Vec4:
		return seedSlice(s, st)
	case []mgl32.Mat4:
		return seedSlice(s, st)
	case []string:
		return seedSlice(s, st)
	case []any:
		return seedSlice(s, st)
	}
	return errors.New(errors.CodeTypeMismatch, "attribute %q: unsupported storage %T", s.Name, s.Storage)
}

func seedSlice[T any](s Signature, storage []T) error {
	initial, ok := s.Initial.([]T)
	if !ok {
		return errors.New(errors.CodeTypeMismatch, "attribute %q: initial %T does not match storage %T", s.Name, s.Initial, s.Storage)
	}
	copy(storage, initial)
	return nil
}

// bind points d at the signature's storage.
func (s Signature) bind(d *scope.Datum) error {
	var err error
	switch st := s.Storage.(type) {
	case []int32:
		err = d.SetIntegerStorage(st)
	case []float32:
		err = d.SetFloatStorage(st)
	case []mgl32.Vec4:
		err = d.SetVectorStorage(st)
	case []mgl32.Mat4:
		err = d.SetMatrixStorage(st)
	case []string:
		err = d.SetStringStorage(st)
	case []any:
		err = d.SetPointerStorage(st)
	default:
		return errors.New(errors.CodeTypeMismatch, "attribute %q: unsupported storage %T", s.Name, s.Storage)
	}
	if err != nil {
		return err
	}
	if d.Kind() != s.Kind {
		return errors.New(errors.CodeTypeConflict, "attribute %q declared %s but storage is %s", s.Name, s.Kind, d.Kind())
	}
	return nil
}

// fill initializes an owned datum from the signature.
func (s Signature) fill(d *scope.Datum) error {
	if err := d.SetType(s.Kind); err != nil {
		return err
	}
	if s.Kind == scope.KindScope {
		return nil
	}
	if s.Initial == nil {
		return d.Resize(s.Size)
	}

	switch init := s.Initial.(type) {
	case []int32:
		return pushAll(init, d.PushBackInteger)
	case []float32:
		return pushAll(init, d.PushBackFloat)
	case []mgl32.Vec4:
		return pushAll(init, d.PushBackVector)
	case []mgl32.Mat4:
		return pushAll(init, d.PushBackMatrix)
	case []string:
		return pushAll(init, d.PushBackString)
	case []any:
		return pushAll(init, d.PushBackPointer)
	}
	return errors.New(errors.CodeTypeMismatch, "attribute %q: unsupported initial %T", s.Name, s.Initial)
}

func pushAll[T any](values []T, push func(T) error) error {
	for _, v := range values {
		if err := push(v); err != nil {
			return err
		}
	}
	return nil
}
