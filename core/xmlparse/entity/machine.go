package entity

import (
	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
	"github.com/artpar/worldgate/core/world"
)

// State is the element the machine is currently inside.
type State int

const (
	StateNotParsing State = iota
	StateWorld
	StateSector
	StateEntity
	StateAction
	StateInteger
	StateFloat
	StateString
	StateVector
	StateMatrix
)

var stateNames = [...]string{
	StateNotParsing: "not_parsing",
	StateWorld:      "world",
	StateSector:     "sector",
	StateEntity:     "entity",
	StateAction:     "action",
	StateInteger:    "integer",
	StateFloat:      "float",
	StateString:     "string",
	StateVector:     "vector",
	StateMatrix:     "matrix",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Structural reports whether s is a state that owns a cursor scope, as
// opposed to a leaf value element.
func (s State) Structural() bool {
	return s <= StateAction
}

// Element names.
const (
	ElemWorld   = "World"
	ElemSector  = "Sector"
	ElemEntity  = "Entity"
	ElemAction  = "Action"
	ElemInteger = "Integer"
	ElemFloat   = "Float"
	ElemString  = "String"
	ElemVector  = "Vector"
	ElemMatrix  = "Matrix"
)

// Attribute names.
const (
	AttrName         = "Name"
	AttrValue        = "Value"
	AttrClassName    = "ClassName"
	AttrInstanceName = "InstanceName"
	AttrCondition    = "Condition"
	AttrX            = "X"
	AttrY            = "Y"
	AttrZ            = "Z"
	AttrW            = "W"
)

// Branch instance names routed into a conditional list's branches.
const (
	BranchThen = "Then"
	BranchElse = "Else"
)

// IsSchemaElement reports whether name is handled by the machine.
func IsSchemaElement(name string) bool {
	switch name {
	case ElemWorld, ElemSector, ElemEntity, ElemAction,
		ElemInteger, ElemFloat, ElemString, ElemVector, ElemMatrix:
		return true
	}
	return false
}

// Machine is the full builder state between two events. It is a plain value:
// start and end take one and return the next.
type Machine struct {
	State State

	// Previous is the structural state a leaf element returns to.
	Previous State

	// Matrix staging.
	MatrixName string
	Rows       [4][4]string
	RowCount   int
}

// start applies a start element to the tree in d and returns the next
// machine. On error the returned machine is m unchanged.
func start(m Machine, d *ScopeData, name string, attrs map[string]string) (Machine, error) {
	next := m
	if m.State.Structural() {
		next.Previous = m.State
	}

	switch name {
	case ElemWorld:
		if m.State != StateNotParsing || d.Root != nil {
			return m, unexpected(name, m.State)
		}
		wname, err := require(name, attrs, AttrName)
		if err != nil {
			return m, err
		}
		w, err := world.NewWorld(wname[0])
		if err != nil {
			return m, err
		}
		d.Root = w
		d.Cursor = w.Scope()
		next.State = StateWorld

	case ElemSector:
		if m.State != StateWorld {
			return m, unexpected(name, m.State)
		}
		w, ok := d.cursorNode().(*world.World)
		if !ok {
			return m, unexpected(name, m.State)
		}
		sname, err := require(name, attrs, AttrName)
		if err != nil {
			return m, err
		}
		sec, err := w.CreateSector(sname[0])
		if err != nil {
			return m, err
		}
		d.Cursor = sec.Scope()
		next.State = StateSector

	case ElemEntity:
		if m.State != StateSector {
			return m, unexpected(name, m.State)
		}
		sec, ok := d.cursorNode().(*world.Sector)
		if !ok {
			return m, unexpected(name, m.State)
		}
		v, err := require(name, attrs, AttrClassName, AttrInstanceName)
		if err != nil {
			return m, err
		}
		ent, err := sec.CreateEntity(d.Factory, v[0], v[1])
		if err != nil {
			return m, err
		}
		d.Cursor = ent.Scope()
		next.State = StateEntity

	case ElemAction:
		if m.State != StateEntity && m.State != StateAction {
			return m, unexpected(name, m.State)
		}
		v, err := require(name, attrs, AttrClassName, AttrInstanceName)
		if err != nil {
			return m, err
		}
		action, err := createAction(d, v[0], v[1])
		if err != nil {
			return m, err
		}
		if cond, ok := attrs[AttrCondition]; ok {
			if b, isBrancher := action.(world.Brancher); isBrancher {
				c, err := scope.ParseInteger(cond)
				if err != nil {
					return m, errors.Wrap(errors.CodeMalformedLiteral, err, "%s %q condition", name, v[1])
				}
				b.SetCondition(c)
			}
		}
		d.Cursor = action.Scope()
		next.State = StateAction

	case ElemInteger, ElemFloat, ElemString:
		if !m.State.Structural() || d.Cursor == nil || m.State == StateNotParsing {
			return m, unexpected(name, m.State)
		}
		v, err := require(name, attrs, AttrName, AttrValue)
		if err != nil {
			return m, err
		}
		kind, state := scope.KindInteger, StateInteger
		switch name {
		case ElemFloat:
			kind, state = scope.KindFloat, StateFloat
		case ElemString:
			kind, state = scope.KindString, StateString
		}
		if err := appendLiteral(d.Cursor, v[0], kind, v[1]); err != nil {
			return m, err
		}
		next.State = state

	case ElemVector:
		if m.State == StateMatrix {
			if m.RowCount >= len(m.Rows) {
				return m, errors.New(errors.CodeMalformedLiteral, "matrix %q has more than %d rows", m.MatrixName, len(m.Rows))
			}
			xyzw, err := require(name, attrs, AttrX, AttrY, AttrZ, AttrW)
			if err != nil {
				return m, err
			}
			copy(next.Rows[m.RowCount][:], xyzw)
			next.RowCount++
			break
		}
		if !m.State.Structural() || m.State == StateNotParsing || d.Cursor == nil {
			return m, unexpected(name, m.State)
		}
		v, err := require(name, attrs, AttrName, AttrX, AttrY, AttrZ, AttrW)
		if err != nil {
			return m, err
		}
		lit := scope.VectorLiteral(v[1], v[2], v[3], v[4])
		if err := appendLiteral(d.Cursor, v[0], scope.KindVector, lit); err != nil {
			return m, err
		}
		next.State = StateVector

	case ElemMatrix:
		if !m.State.Structural() || m.State == StateNotParsing || d.Cursor == nil {
			return m, unexpected(name, m.State)
		}
		v, err := require(name, attrs, AttrName)
		if err != nil {
			return m, err
		}
		next.MatrixName = v[0]
		next.Rows = [4][4]string{}
		next.RowCount = 0
		next.State = StateMatrix

	default:
		return m, errors.New(errors.CodeUnexpectedElement, "unknown element %q", name)
	}

	return next, nil
}

// end applies an end element and returns the next machine.
func end(m Machine, d *ScopeData, name string) (Machine, error) {
	next := m

	switch name {
	case ElemInteger, ElemFloat, ElemString:
		next.State = m.Previous

	case ElemVector:
		// Rows keep the machine in matrix mode until the matrix closes.
		if m.State != StateMatrix {
			next.State = m.Previous
		}

	case ElemMatrix:
		if m.RowCount != len(m.Rows) {
			return m, errors.New(errors.CodeMalformedLiteral, "matrix %q has %d rows, want %d", m.MatrixName, m.RowCount, len(m.Rows))
		}
		lit := scope.MatrixLiteral(m.Rows)
		if err := appendLiteral(d.Cursor, m.MatrixName, scope.KindMatrix, lit); err != nil {
			return m, err
		}
		next.MatrixName = ""
		next.Rows = [4][4]string{}
		next.RowCount = 0
		next.State = m.Previous

	case ElemWorld:
		next.State = StateNotParsing
		next.Previous = StateNotParsing

	case ElemSector, ElemEntity, ElemAction:
		if d.Cursor == nil || d.Cursor.Parent() == nil {
			return m, errors.New(errors.CodeInvalidState, "closing %s without an owning scope", name)
		}
		d.Cursor = d.Cursor.Parent()
		next.State = stateOf(world.RoleOf(d.Cursor))
		next.Previous = next.State

	default:
		return m, errors.New(errors.CodeUnexpectedElement, "unknown element %q", name)
	}

	if d.Depth() == 0 {
		next = Machine{}
	}
	return next, nil
}

// createAction builds an action under the cursor node. Conditional lists
// route the instance names Then and Else into their branches.
func createAction(d *ScopeData, className, instanceName string) (world.Node, error) {
	switch parent := d.cursorNode().(type) {
	case world.Brancher:
		switch instanceName {
		case BranchThen:
			return parent.CreateThenAction(d.Factory, className, instanceName)
		case BranchElse:
			return parent.CreateElseAction(d.Factory, className, instanceName)
		}
		return parent.CreateAction(d.Factory, className, instanceName)
	case world.ActionContainer:
		return parent.CreateAction(d.Factory, className, instanceName)
	case world.Node:
		return nil, errors.New(errors.CodeUnexpectedElement, "%s %q cannot hold actions", parent.Role(), parent.Name())
	default:
		return nil, errors.New(errors.CodeUnexpectedElement, "action outside of an entity")
	}
}

// appendLiteral types the attribute name on s and stores text in it.
func appendLiteral(s *scope.Scope, name string, kind scope.Kind, text string) error {
	datum := s.Append(name)
	if err := datum.SetType(kind); err != nil {
		return errors.Wrap(errors.CodeTypeConflict, err, "attribute %q", name)
	}
	if err := datum.SetFromString(text); err != nil {
		return errors.Wrap(errors.CodeOf(err), err, "attribute %q", name)
	}
	return nil
}

// require returns the values of the named attributes in order.
func require(element string, attrs map[string]string, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		v, ok := attrs[n]
		if !ok {
			return nil, errors.New(errors.CodeMissingAttribute, "%s requires attribute %q", element, n)
		}
		out[i] = v
	}
	return out, nil
}

func unexpected(name string, s State) error {
	return errors.New(errors.CodeUnexpectedElement, "%s not allowed while parsing %s", name, s)
}

func stateOf(r world.Role) State {
	switch r {
	case world.RoleWorld:
		return StateWorld
	case world.RoleSector:
		return StateSector
	case world.RoleEntity:
		return StateEntity
	case world.RoleAction, world.RoleActionList, world.RoleActionListIf:
		return StateAction
	default:
		return StateNotParsing
	}
}
