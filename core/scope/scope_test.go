package scope

import (
	"testing"

	"github.com/artpar/worldgate/core/errors"
)

func TestScope_Append(t *testing.T) {
	s := New()
	a := s.Append("A")
	b := s.Append("B")
	if s.Append("A") != a {
		t.Error("Append should return the existing datum for a known name")
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	if d, _ := s.At(0); d != a {
		t.Error("At(0) should be the first appended datum")
	}
	if d, _ := s.At(1); d != b {
		t.Error("At(1) should be the second appended datum")
	}
	if _, err := s.At(2); !errors.Is(err, errors.CodeIndexOutOfRange) {
		t.Errorf("At(2) error = %v, want INDEX_OUT_OF_RANGE", err)
	}
	if name, _ := s.NameAt(1); name != "B" {
		t.Errorf("NameAt(1) = %q, want B", name)
	}
	if s.Find("missing") != nil {
		t.Error("Find(missing) should return nil")
	}
}

func TestScope_AppendScope(t *testing.T) {
	root := New()
	c1, err := root.AppendScope("Kids")
	if err != nil {
		t.Fatal(err)
	}
	c2, err := root.AppendScope("Kids")
	if err != nil {
		t.Fatal(err)
	}

	d := root.Find("Kids")
	if d.Kind() != KindScope || d.Size() != 2 {
		t.Fatalf("Kids = %s x%d, want scope x2", d.Kind(), d.Size())
	}
	if c1.Parent() != root || c2.Parent() != root {
		t.Error("children should point back at root")
	}
	if name, ok := root.FindName(c2); !ok || name != "Kids" {
		t.Errorf("FindName(c2) = %q, %v", name, ok)
	}

	root.Append("Health").PushBackInteger(1)
	if _, err := root.AppendScope("Health"); !errors.Is(err, errors.CodeTypeConflict) {
		t.Errorf("AppendScope over integer error = %v, want TYPE_CONFLICT", err)
	}
}

func TestScope_Adopt(t *testing.T) {
	a, b := New(), New()
	child, _ := a.AppendScope("Items")
	sib1, _ := a.AppendScope("Items")
	sib2, _ := a.AppendScope("Items")

	if err := b.Adopt(sib1, "Taken"); err != nil {
		t.Fatalf("Adopt() error = %v", err)
	}
	if sib1.Parent() != b {
		t.Error("adopted scope should point at new parent")
	}

	items := a.Find("Items")
	if items.Size() != 2 {
		t.Fatalf("Items size = %d, want 2", items.Size())
	}
	first, _ := items.Scope(0)
	second, _ := items.Scope(1)
	if first != child || second != sib2 {
		t.Error("siblings should keep their order after a child is adopted away")
	}
	if _, ok := a.FindName(sib1); ok {
		t.Error("old parent should no longer find the adopted scope")
	}

	// Adopting into an existing nested datum appends.
	if err := b.Adopt(sib2, "Taken"); err != nil {
		t.Fatal(err)
	}
	if b.Find("Taken").Size() != 2 {
		t.Errorf("Taken size = %d, want 2", b.Find("Taken").Size())
	}
}

func TestScope_AdoptTypeConflict(t *testing.T) {
	a := New()
	a.Append("Health").PushBackInteger(3)
	b := New()
	child, _ := b.AppendScope("Kids")

	if err := a.Adopt(child, "Health"); !errors.Is(err, errors.CodeTypeConflict) {
		t.Fatalf("Adopt over integer error = %v, want TYPE_CONFLICT", err)
	}
	if child.Parent() != b {
		t.Error("failed adopt must leave the child under its old parent")
	}
}

func TestScope_AdoptCycle(t *testing.T) {
	a, b, c := New(), New(), New()
	a.Append("Name").PushBackString("a")

	if err := a.Adopt(b, "B"); err != nil {
		t.Fatal(err)
	}
	if err := b.Adopt(c, "C"); err != nil {
		t.Fatal(err)
	}
	before := a.Clone()

	err := c.Adopt(a, "A")
	if !errors.Is(err, errors.CodeCycleDetected) {
		t.Fatalf("c.Adopt(a) error = %v, want CYCLE_DETECTED", err)
	}
	if !a.Equal(before) {
		t.Error("tree changed after failed adopt")
	}
	if a.Parent() != nil || b.Parent() != a || c.Parent() != b {
		t.Error("parent links changed after failed adopt")
	}

	if err := a.Adopt(a, "Self"); !errors.Is(err, errors.CodeCycleDetected) {
		t.Errorf("self adopt error = %v, want CYCLE_DETECTED", err)
	}
	if a.Find("Self") != nil {
		t.Error("self adopt must not create an entry")
	}
}

func TestScope_Orphan(t *testing.T) {
	root := New()
	child, _ := root.AppendScope("Kids")
	child.Orphan()
	if child.Parent() != nil {
		t.Error("Orphan() should clear parent")
	}
	if root.Find("Kids").Size() != 0 {
		t.Error("Orphan() should remove the child from its parent")
	}
	child.Orphan() // root: no-op
}

func TestScope_Root(t *testing.T) {
	root := New()
	child, _ := root.AppendScope("Kids")
	grand, _ := child.AppendScope("Kids")

	if grand.Find("Kids") != nil {
		t.Error("Find should not look in ancestors")
	}
	if grand.Root() != root {
		t.Error("Root() should walk to the outermost scope")
	}
}

func TestScope_Equal(t *testing.T) {
	build := func(order ...string) *Scope {
		s := New()
		for _, n := range order {
			s.Append(n).PushBackString(n)
		}
		return s
	}

	if !build("a", "b").Equal(build("a", "b")) {
		t.Error("identical scopes reported unequal")
	}
	if build("a", "b").Equal(build("b", "a")) {
		t.Error("entry order must matter")
	}
	if build("a").Equal(build("a", "b")) {
		t.Error("different sizes reported equal")
	}
	s := build("a")
	if !s.Equal(s) {
		t.Error("scope must equal itself")
	}
}

func TestScope_Clone(t *testing.T) {
	host := []int32{7}

	src := New()
	src.Append("Name").PushBackString("root")
	src.Append("Ext").SetIntegerStorage(host)
	kid, _ := src.AppendScope("Kids")
	kid.Append("Level").PushBackInteger(2)

	cp := src.Clone()
	if !cp.Equal(src) {
		t.Fatal("clone should equal its source")
	}
	if cp.Parent() != nil {
		t.Error("clone should be a root")
	}

	cpKid, _ := cp.Find("Kids").Scope(0)
	if cpKid == kid {
		t.Fatal("nested scope was shared, not copied")
	}
	if cpKid.Parent() != cp {
		t.Error("cloned child should point at the cloned parent")
	}

	cp.Find("Name").SetString("copy", 0)
	cpKid.Find("Level").SetInteger(9, 0)
	if v, _ := src.Find("Name").String(0); v != "root" {
		t.Errorf("source Name = %q after mutating copy", v)
	}
	if v, _ := kid.Find("Level").Integer(0); v != 2 {
		t.Errorf("source Level = %d after mutating copy", v)
	}

	// External datums still view the same memory.
	if !cp.Find("Ext").IsExternal() {
		t.Error("external datum should stay external in the clone")
	}
	cp.Find("Ext").SetInteger(8, 0)
	if host[0] != 8 {
		t.Errorf("host = %d, want 8", host[0])
	}
}

func TestScope_Clear(t *testing.T) {
	root := New()
	child, _ := root.AppendScope("Kids")
	child.Append("X").PushBackInteger(1)

	root.Clear()
	if root.Len() != 0 {
		t.Errorf("Len() = %d after Clear", root.Len())
	}
	if child.Parent() != nil || child.Len() != 0 {
		t.Error("Clear should detach and clear owned children")
	}
	if len(root.Children()) != 0 {
		t.Error("Children() should be empty after Clear")
	}
}
