// Package world defines the structural nodes a document builds: a World owns
// Sectors, a Sector owns Entities, and Entities own Actions.
//
// Every node is an attributed scope. The scope tree is the source of truth
// for structure; nodes are recovered from scopes with NodeOf and classified by
// Role instead of by type assertion on concrete types.
package world

import (
	"github.com/artpar/worldgate/core/attributed"
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
)

// Role is the structural part a node plays in a world.
type Role int

const (
	RoleNone Role = iota
	RoleWorld
	RoleSector
	RoleEntity
	RoleAction
	RoleActionList
	RoleActionListIf
)

var roleNames = map[Role]string{
	RoleNone:         "none",
	RoleWorld:        "world",
	RoleSector:       "sector",
	RoleEntity:       "entity",
	RoleAction:       "action",
	RoleActionList:   "action_list",
	RoleActionListIf: "action_list_if",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return "unknown"
}

// IsAction reports whether r is one of the action roles.
func (r Role) IsAction() bool {
	return r == RoleAction || r == RoleActionList || r == RoleActionListIf
}

// Attribute names shared by the node types.
const (
	AttrName      = "Name"
	AttrSectors   = "Sectors"
	AttrEntities  = "Entities"
	AttrActions   = "Actions"
	AttrCondition = "Condition"
	AttrThen      = "Then"
	AttrElse      = "Else"
)

// Node is a typed object backed by an attributed scope.
type Node interface {
	attributed.Host

	Attributes() *attributed.Attributed
	Scope() *scope.Scope
	Role() Role
	Name() string
	SetName(name string)

	// CloneInto returns a copy of the node bound to s, which must be a clone
	// of the node's scope.
	CloneInto(s *scope.Scope) (Node, error)
}

// Factory instantiates nodes by class name.
type Factory interface {
	Create(className string) (Node, error)
}

// ActionContainer is implemented by nodes that hold an ordered list of
// actions.
type ActionContainer interface {
	Node
	CreateAction(f Factory, className, instanceName string) (Node, error)
}

// Brancher is implemented by conditional containers with Then and Else
// branches.
type Brancher interface {
	ActionContainer
	Condition() int32
	SetCondition(c int32)
	CreateThenAction(f Factory, className, instanceName string) (Node, error)
	CreateElseAction(f Factory, className, instanceName string) (Node, error)
}

// NodeOf returns the node that owns s.
func NodeOf(s *scope.Scope) (Node, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.Owner().(Node)
	return n, ok
}

// RoleOf returns the role of the node owning s, or RoleNone.
func RoleOf(s *scope.Scope) Role {
	if n, ok := NodeOf(s); ok {
		return n.Role()
	}
	return RoleNone
}

// base carries what every node has: its attributes and a name.
type base struct {
	attrs *attributed.Attributed
	name  string
}

func (b *base) Attributes() *attributed.Attributed { return b.attrs }
func (b *base) Scope() *scope.Scope                { return b.attrs.Scope }
func (b *base) Name() string                       { return b.name }
func (b *base) SetName(name string)                { b.name = name }

func (b *base) populate(host attributed.Host) error {
	a, err := attributed.New(host)
	if err != nil {
		return err
	}
	b.attrs = a
	return nil
}

func (b *base) attach(s *scope.Scope, host attributed.Host) error {
	a, err := attributed.Attach(s, host)
	if err != nil {
		return err
	}
	b.attrs = a
	return nil
}

// children returns the nodes nested under attribute name.
func children(s *scope.Scope, name string) []Node {
	d := s.Find(name)
	if d == nil || d.Kind() != scope.KindScope {
		return nil
	}
	out := make([]Node, 0, d.Size())
	for i := 0; i < d.Size(); i++ {
		c, _ := d.Scope(i)
		if n, ok := NodeOf(c); ok {
			out = append(out, n)
		}
	}
	return out
}

// create builds a node of class with f, checks its role and adopts it into
// parent under attr.
func create(f Factory, parent *scope.Scope, attr, className, instanceName string, accept func(Role) bool) (Node, error) {
	if f == nil {
		return nil, errors.New(errors.CodeInvalidState, "no factory to create %q", className)
	}
	n, err := f.Create(className)
	if err != nil {
		return nil, err
	}
	if !accept(n.Role()) {
		return nil, errors.New(errors.CodeUnexpectedElement, "class %q is a %s, not allowed under %s", className, n.Role(), attr)
	}
	n.SetName(instanceName)
	if err := parent.Adopt(n.Scope(), attr); err != nil {
		return nil, err
	}
	return n, nil
}
