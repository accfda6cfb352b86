package world

import (
	"github.com/artpar/worldgate/core/attributed"
	"github.com/artpar/worldgate/core/scope"
)

// World is the root of a document.
type World struct {
	base
}

// NewWorld creates an empty world.
func NewWorld(name string) (*World, error) {
	w := &World{base{name: name}}
	if err := w.populate(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(w),
		attributed.String(AttrName, attributed.Ref(&w.name)),
		attributed.Nested(AttrSectors),
	}
}

func (w *World) Role() Role { return RoleWorld }

func (w *World) CloneInto(s *scope.Scope) (Node, error) {
	cp := &World{base{name: w.name}}
	if err := cp.attach(s, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// CreateSector creates a named sector owned by w.
func (w *World) CreateSector(name string) (*Sector, error) {
	sec, err := NewSector(name)
	if err != nil {
		return nil, err
	}
	if err := w.Scope().Adopt(sec.Scope(), AttrSectors); err != nil {
		return nil, err
	}
	return sec, nil
}

// Sectors returns the world's sectors in creation order.
func (w *World) Sectors() []*Sector {
	var out []*Sector
	for _, n := range children(w.Scope(), AttrSectors) {
		if s, ok := n.(*Sector); ok {
			out = append(out, s)
		}
	}
	return out
}

// Sector groups entities within a world.
type Sector struct {
	base
}

// NewSector creates an unowned sector.
func NewSector(name string) (*Sector, error) {
	s := &Sector{base{name: name}}
	if err := s.populate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sector) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(s),
		attributed.String(AttrName, attributed.Ref(&s.name)),
		attributed.Nested(AttrEntities),
	}
}

func (s *Sector) Role() Role { return RoleSector }

func (s *Sector) CloneInto(sc *scope.Scope) (Node, error) {
	cp := &Sector{base{name: s.name}}
	if err := cp.attach(sc, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// World returns the world that owns the sector, if any.
func (s *Sector) World() (*World, bool) {
	n, ok := NodeOf(s.Scope().Parent())
	if !ok {
		return nil, false
	}
	w, ok := n.(*World)
	return w, ok
}

// CreateEntity instantiates className through f, names it instanceName and
// adopts it. Classes that do not build entities are rejected with
// UNEXPECTED_ELEMENT.
func (s *Sector) CreateEntity(f Factory, className, instanceName string) (Node, error) {
	return create(f, s.Scope(), AttrEntities, className, instanceName, func(r Role) bool {
		return r == RoleEntity
	})
}

// Entities returns the sector's entities in creation order.
func (s *Sector) Entities() []Node {
	return children(s.Scope(), AttrEntities)
}

// Entity is an object placed in a sector.
type Entity struct {
	base
}

// NewEntity creates an unnamed entity.
func NewEntity() (*Entity, error) {
	e := &Entity{}
	if err := e.populate(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Entity) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(e),
		attributed.String(AttrName, attributed.Ref(&e.name)),
		attributed.Nested(AttrActions),
	}
}

func (e *Entity) Role() Role { return RoleEntity }

func (e *Entity) CloneInto(s *scope.Scope) (Node, error) {
	cp := &Entity{base{name: e.name}}
	if err := cp.attach(s, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// CreateAction instantiates an action class and appends it to the entity's
// actions.
func (e *Entity) CreateAction(f Factory, className, instanceName string) (Node, error) {
	return create(f, e.Scope(), AttrActions, className, instanceName, Role.IsAction)
}

// Actions returns the entity's actions in creation order.
func (e *Entity) Actions() []Node {
	return children(e.Scope(), AttrActions)
}
