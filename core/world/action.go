package world

import (
	"github.com/artpar/worldgate/core/attributed"
	"github.com/artpar/worldgate/core/scope"
)

// Action is a named leaf action.
type Action struct {
	base
}

// NewAction creates an unnamed action.
func NewAction() (*Action, error) {
	a := &Action{}
	if err := a.populate(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Action) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(a),
		attributed.String(AttrName, attributed.Ref(&a.name)),
	}
}

func (a *Action) Role() Role { return RoleAction }

func (a *Action) CloneInto(s *scope.Scope) (Node, error) {
	cp := &Action{base{name: a.name}}
	if err := cp.attach(s, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// ActionList is an action holding an ordered list of nested actions.
type ActionList struct {
	base
}

// NewActionList creates an unnamed, empty action list.
func NewActionList() (*ActionList, error) {
	l := &ActionList{}
	if err := l.populate(l); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *ActionList) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(l),
		attributed.String(AttrName, attributed.Ref(&l.name)),
		attributed.Nested(AttrActions),
	}
}

func (l *ActionList) Role() Role { return RoleActionList }

func (l *ActionList) CloneInto(s *scope.Scope) (Node, error) {
	cp := &ActionList{base{name: l.name}}
	if err := cp.attach(s, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (l *ActionList) CreateAction(f Factory, className, instanceName string) (Node, error) {
	return create(f, l.Scope(), AttrActions, className, instanceName, Role.IsAction)
}

// Actions returns the nested actions in order.
func (l *ActionList) Actions() []Node {
	return children(l.Scope(), AttrActions)
}

// ActionListIf is an action list with a condition selecting between a Then
// and an Else branch.
type ActionListIf struct {
	base
	condition int32
}

// NewActionListIf creates an unnamed conditional list with condition 0.
func NewActionListIf() (*ActionListIf, error) {
	l := &ActionListIf{}
	if err := l.populate(l); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *ActionListIf) Signatures() []attributed.Signature {
	return []attributed.Signature{
		attributed.This(l),
		attributed.String(AttrName, attributed.Ref(&l.name)),
		attributed.Integer(AttrCondition, attributed.Ref(&l.condition)),
		attributed.Nested(AttrActions),
		attributed.Nested(AttrThen),
		attributed.Nested(AttrElse),
	}
}

func (l *ActionListIf) Role() Role { return RoleActionListIf }

func (l *ActionListIf) CloneInto(s *scope.Scope) (Node, error) {
	cp := &ActionListIf{base: base{name: l.name}, condition: l.condition}
	if err := cp.attach(s, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

func (l *ActionListIf) Condition() int32     { return l.condition }
func (l *ActionListIf) SetCondition(c int32) { l.condition = c }

func (l *ActionListIf) CreateAction(f Factory, className, instanceName string) (Node, error) {
	return create(f, l.Scope(), AttrActions, className, instanceName, Role.IsAction)
}

// CreateThenAction appends an action to the Then branch.
func (l *ActionListIf) CreateThenAction(f Factory, className, instanceName string) (Node, error) {
	return create(f, l.Scope(), AttrThen, className, instanceName, Role.IsAction)
}

// CreateElseAction appends an action to the Else branch.
func (l *ActionListIf) CreateElseAction(f Factory, className, instanceName string) (Node, error) {
	return create(f, l.Scope(), AttrElse, className, instanceName, Role.IsAction)
}

// Branch returns the actions of the branch the condition currently selects:
// Then for a non-zero condition, Else otherwise.
func (l *ActionListIf) Branch() []Node {
	if l.condition != 0 {
		return children(l.Scope(), AttrThen)
	}
	return children(l.Scope(), AttrElse)
}

var (
	_ ActionContainer = (*Entity)(nil)
	_ ActionContainer = (*ActionList)(nil)
	_ Brancher        = (*ActionListIf)(nil)
	_ Node            = (*World)(nil)
	_ Node            = (*Sector)(nil)
	_ Node            = (*Action)(nil)
)
