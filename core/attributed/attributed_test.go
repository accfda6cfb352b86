package attributed_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/artpar/worldgate/core/attributed"
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
)

type foo struct {
	*attributed.Attributed

	health   int32
	gravity  float32
	name     string
	position mgl32.Vec4
	slots    [3]int32
}

func (f *foo) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(f),
		attributed.Integer("Health", attributed.Ref(&f.health), 100),
		attributed.Float("Gravity", attributed.Ref(&f.gravity), 9.8),
		attributed.String("Name", attributed.Ref(&f.name), "foo"),
		attributed.Vector("Position", attributed.Ref(&f.position)),
		attributed.Integer("Slots", f.slots[:]),
		attributed.String("Tags", nil, "a", "b"),
		attributed.Nested("Children"),
	}
}

func newFoo(t *testing.T) *foo {
	t.Helper()
	f := &foo{}
	a, err := attributed.New(f)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.Attributed = a
	return f
}

func TestNew_Populates(t *testing.T) {
	f := newFoo(t)

	want := []string{"this", "Health", "Gravity", "Name", "Position", "Slots", "Tags", "Children"}
	got := f.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if f.health != 100 || f.gravity != 9.8 || f.name != "foo" {
		t.Errorf("initial values not seeded: health=%d gravity=%v name=%q", f.health, f.gravity, f.name)
	}
	if d := f.Find("Slots"); !d.IsExternal() || d.Size() != 3 {
		t.Errorf("Slots = external %v size %d, want external size 3", d.IsExternal(), d.Size())
	}
	if d := f.Find("Tags"); d.IsExternal() || d.Size() != 2 {
		t.Errorf("Tags = external %v size %d, want owned size 2", d.IsExternal(), d.Size())
	}
	if d := f.Find("Children"); d.Kind() != scope.KindScope {
		t.Errorf("Children kind = %s, want scope", d.Kind())
	}

	self, err := f.Find("this").Pointer(0)
	if err != nil || self != f {
		t.Errorf("this = %v, %v; want the host", self, err)
	}
	if f.Owner() != f {
		t.Error("scope owner should be the host")
	}
}

func TestAttributed_ExternalIsolation(t *testing.T) {
	a := newFoo(t)
	b := newFoo(t)

	if err := a.Find("Health").SetInteger(5, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Find("Slots").SetInteger(7, 2); err != nil {
		t.Fatal(err)
	}

	if a.health != 5 || a.slots[2] != 7 {
		t.Errorf("a fields = %d, %v; want write-through", a.health, a.slots)
	}
	if b.health != 100 || b.slots[2] != 0 {
		t.Errorf("b fields changed: %d, %v", b.health, b.slots)
	}

	b.gravity = 1.5
	if v, _ := b.Find("Gravity").Float(0); v != 1.5 {
		t.Errorf("Gravity view = %v, want host field value 1.5", v)
	}
	if v, _ := a.Find("Gravity").Float(0); v != 9.8 {
		t.Errorf("a Gravity = %v, want 9.8", v)
	}
}

func TestAttributed_Classification(t *testing.T) {
	f := newFoo(t)
	aux, err := f.AppendAuxiliaryAttribute("Mana")
	if err != nil {
		t.Fatal(err)
	}
	aux.PushBackInteger(30)

	tests := []struct {
		name       string
		prescribed bool
		auxiliary  bool
		attribute  bool
	}{
		{"Health", true, false, true},
		{"this", true, false, true},
		{"Mana", false, true, true},
		{"Missing", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IsPrescribedAttribute(tt.name); got != tt.prescribed {
				t.Errorf("IsPrescribedAttribute = %v, want %v", got, tt.prescribed)
			}
			if got := f.IsAuxiliaryAttribute(tt.name); got != tt.auxiliary {
				t.Errorf("IsAuxiliaryAttribute = %v, want %v", got, tt.auxiliary)
			}
			if got := f.IsAttribute(tt.name); got != tt.attribute {
				t.Errorf("IsAttribute = %v, want %v", got, tt.attribute)
			}
		})
	}

	if names := f.AuxiliaryNames(); len(names) != 1 || names[0] != "Mana" {
		t.Errorf("AuxiliaryNames() = %v", names)
	}
	if names := f.Scope.Names(); names[len(f.PrescribedNames())] != "Mana" {
		t.Errorf("auxiliary block should start right after the prescribed block, names = %v", names)
	}

	again, err := f.AppendAuxiliaryAttribute("Mana")
	if err != nil || again != aux {
		t.Error("appending an existing auxiliary attribute should return it")
	}
	if _, err := f.AppendAuxiliaryAttribute("Health"); !errors.Is(err, errors.CodeDuplicateAttribute) {
		t.Errorf("AppendAuxiliaryAttribute(Health) error = %v, want DUPLICATE_ATTRIBUTE", err)
	}
}

func TestAttach_AfterClone(t *testing.T) {
	src := newFoo(t)
	src.Find("Health").SetInteger(42, 0)
	aux, _ := src.AppendAuxiliaryAttribute("Mana")
	aux.PushBackInteger(3)

	dst := &foo{health: src.health, gravity: src.gravity, name: src.name, slots: src.slots}
	a, err := attributed.Attach(src.Scope.Clone(), dst)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	dst.Attributed = a

	if err := dst.Find("Health").SetInteger(1, 0); err != nil {
		t.Fatal(err)
	}
	if dst.health != 1 {
		t.Errorf("dst.health = %d, want 1", dst.health)
	}
	if src.health != 42 {
		t.Errorf("src.health = %d, want 42 after writing through the copy", src.health)
	}
	if self, _ := dst.Find("this").Pointer(0); self != dst {
		t.Error("this should point at the new host after Attach")
	}
	if !dst.IsAuxiliaryAttribute("Mana") {
		t.Error("auxiliary attributes should survive a clone")
	}
}

func TestBind_Mismatch(t *testing.T) {
	host := &foo{}

	if _, err := attributed.Attach(scope.New(), host); !errors.Is(err, errors.CodeBindMismatch) {
		t.Errorf("Attach(empty) error = %v, want BIND_MISMATCH", err)
	}

	wrong := scope.New()
	for _, n := range []string{"this", "Gravity", "Health", "Name", "Position", "Slots", "Tags", "Children"} {
		wrong.Append(n)
	}
	if _, err := attributed.Attach(wrong, host); !errors.Is(err, errors.CodeBindMismatch) {
		t.Errorf("Attach(reordered) error = %v, want BIND_MISMATCH", err)
	}
}

type headless struct{ v int32 }

func (h *headless) Signatures() []attributed.Signature {
	return []attributed.Signature{attributed.Integer("V", attributed.Ref(&h.v))}
}

type twice struct{ v int32 }

func (h *twice) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(h),
		attributed.Integer("V", attributed.Ref(&h.v)),
		attributed.Integer("V", nil, 1),
	}
}

func TestNew_InvalidSignatures(t *testing.T) {
	if _, err := attributed.New(&headless{}); !errors.Is(err, errors.CodeInvalidState) {
		t.Errorf("New(headless) error = %v, want INVALID_STATE", err)
	}
	if _, err := attributed.New(&twice{}); !errors.Is(err, errors.CodeDuplicateAttribute) {
		t.Errorf("New(twice) error = %v, want DUPLICATE_ATTRIBUTE", err)
	}
}
