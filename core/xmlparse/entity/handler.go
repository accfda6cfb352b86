// Package entity builds a world tree from World, Sector, Entity and Action
// documents with typed attribute elements:
//
//	<World Name="W">
//	  <Float Name="Gravity" Value="9.8"/>
//	  <Sector Name="S">
//	    <Entity ClassName="Entity" InstanceName="Hero">
//	      <Integer Name="Health" Value="100"/>
//	      <Vector Name="Position" X="1" Y="2" Z="3" W="1"/>
//	      <Matrix Name="Transform">
//	        <Vector X="1" Y="0" Z="0" W="0"/>
//	        ...
//	      </Matrix>
//	      <Action ClassName="ActionListIf" InstanceName="Check" Condition="1">
//	        <Action ClassName="Action" InstanceName="Then"/>
//	        <Action ClassName="Action" InstanceName="Else"/>
//	      </Action>
//	    </Entity>
//	  </Sector>
//	</World>
package entity

import (
	"github.com/rs/zerolog"

	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/core/scope"
	"github.com/artpar/worldgate/core/world"
	"github.com/artpar/worldgate/core/xmlparse"
)

// ScopeData is the shared data of a world parse.
type ScopeData struct {
	xmlparse.DepthCounter

	// Cursor is the scope new attributes and children go into.
	Cursor *scope.Scope

	// Root is the world built by the document.
	Root *world.World

	// Factory instantiates Entity and Action classes.
	Factory world.Factory
}

// NewScopeData creates empty shared data using f for class lookups.
func NewScopeData(f world.Factory) *ScopeData {
	return &ScopeData{Factory: f}
}

// Clone returns empty data with the same factory.
func (d *ScopeData) Clone() xmlparse.SharedData {
	return NewScopeData(d.Factory)
}

// World returns the parsed world, or NOT_FOUND when the document had none.
func (d *ScopeData) World() (*world.World, error) {
	if d.Root == nil {
		return nil, errors.New(errors.CodeNotFound, "document contains no %s element", ElemWorld)
	}
	return d.Root, nil
}

// Spent reports whether a world was already started in d.
func (d *ScopeData) Spent() bool { return d.Root != nil }

func (d *ScopeData) cursorNode() world.Node {
	n, _ := world.NodeOf(d.Cursor)
	return n
}

// Handler claims the schema elements and drives a Machine.
type Handler struct {
	master  *xmlparse.Master
	machine Machine
}

// NewHandler creates a handler in the not-parsing state.
func NewHandler() *Handler {
	return &Handler{}
}

// Machine returns the current machine state.
func (h *Handler) Machine() Machine { return h.machine }

func (h *Handler) Initialize(m *xmlparse.Master) {
	h.master = m
	h.machine = Machine{}
}

func (h *Handler) StartElement(data xmlparse.SharedData, name string, attrs map[string]string) (bool, error) {
	d, ok := data.(*ScopeData)
	if !ok || !IsSchemaElement(name) {
		return false, nil
	}
	next, err := start(h.machine, d, name, attrs)
	if err != nil {
		return false, err
	}
	h.machine = next
	return true, nil
}

func (h *Handler) EndElement(data xmlparse.SharedData, name string) (bool, error) {
	d, ok := data.(*ScopeData)
	if !ok || !IsSchemaElement(name) {
		return false, nil
	}
	next, err := end(h.machine, d, name)
	if err != nil {
		return false, err
	}
	h.machine = next
	return true, nil
}

// CharData ignores text; every value is carried in attributes.
func (h *Handler) CharData(xmlparse.SharedData, string) error { return nil }

func (h *Handler) Clone() xmlparse.Handler {
	return NewHandler()
}

// NewMaster returns a master wired with a world handler and fresh data.
func NewMaster(f world.Factory, logger zerolog.Logger, opts ...xmlparse.Option) *xmlparse.Master {
	m := xmlparse.New(NewScopeData(f), logger, opts...)
	m.AddHandler(NewHandler())
	return m
}

// Result returns the world built by the last parse through m.
func Result(m *xmlparse.Master) (*world.World, error) {
	d, ok := m.Data().(*ScopeData)
	if !ok {
		return nil, errors.New(errors.CodeInvalidState, "master data is %T, not world data", m.Data())
	}
	return d.World()
}

var (
	_ xmlparse.Handler    = (*Handler)(nil)
	_ xmlparse.SharedData = (*ScopeData)(nil)
)
