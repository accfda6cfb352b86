package world

import (
	"fmt"

	"github.com/artpar/worldgate/core/attributed"
	"github.com/artpar/worldgate/core/scope"
)

// Tree is an ordered, JSON-ready rendering of a scope.
type Tree struct {
	Role       string      `json:"role,omitempty" yaml:"role,omitempty"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
}

// Attribute is one rendered scope entry. Literal kinds render through their
// canonical literal text; nested scopes render as Children.
type Attribute struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     string   `json:"kind" yaml:"kind"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
	Children []Tree   `json:"children,omitempty" yaml:"children,omitempty"`
}

// Dump renders s and everything beneath it. The self-reference attribute is
// omitted.
func Dump(s *scope.Scope) Tree {
	t := Tree{Attributes: make([]Attribute, 0, s.Len())}
	if n, ok := NodeOf(s); ok {
		t.Role = n.Role().String()
		t.Name = n.Name()
	}

	for i, name := range s.Names() {
		if name == attributed.ThisAttribute {
			continue
		}
		d, _ := s.At(i)
		a := Attribute{Name: name, Kind: d.Kind().String()}
		for j := 0; j < d.Size(); j++ {
			switch d.Kind() {
			case scope.KindScope:
				c, _ := d.Scope(j)
				a.Children = append(a.Children, Dump(c))
			case scope.KindPointer:
				p, _ := d.Pointer(j)
				a.Values = append(a.Values, fmt.Sprintf("%T", p))
			default:
				v, _ := d.ToString(j)
				a.Values = append(a.Values, v)
			}
		}
		t.Attributes = append(t.Attributes, a)
	}
	return t
}

// Count returns the number of nodes in the tree rooted at s, including s.
func Count(s *scope.Scope) int {
	n := 0
	if _, ok := NodeOf(s); ok {
		n++
	}
	for _, c := range s.Children() {
		n += Count(c)
	}
	return n
}
