package pgraph

import (
	"errors"
	"fmt"

	"github.com/andreyvit/pgraph/native"
)

// ElementKind tells vertices from edges.
type ElementKind uint8

const (
	VertexKind ElementKind = iota + 1
	EdgeKind
)

func (k ElementKind) String() string {
	switch k {
	case VertexKind:
		return "vertex"
	case EdgeKind:
		return "edge"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k ElementKind) native() native.EntityKind {
	if k == EdgeKind {
		return native.RelationshipKind
	}
	return native.NodeKind
}

// Direction selects edges by how they attach to a vertex.
type Direction uint8

const (
	Out Direction = iota + 1
	In
	Both
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "OUT"
	case In:
		return "IN"
	case Both:
		return "BOTH"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Element is either a *Vertex or an *Edge.
type Element interface {
	ID() uint64
	Kind() ElementKind
	Session() *Session
	Property(key string) (any, error)
	SetProperty(key string, value any) error
	RemoveProperty(key string) (any, error)
	PropertyKeys() ([]string, error)
	Remove() error

	entity() (native.Entity, error)
}

// isNilElement also catches nil *Vertex and *Edge values, which lookups
// return for missing ids.
func isNilElement(el Element) bool {
	switch e := el.(type) {
	case nil:
		return true
	case *Vertex:
		return e == nil
	case *Edge:
		return e == nil
	}
	return false
}

// element implements the property operations shared by vertices and
// edges. It holds only an id, so it stays usable across transactions of
// its session.
type element struct {
	s    *Session
	id   uint64
	kind ElementKind
}

func (e *element) ID() uint64 {
	return e.id
}

func (e *element) Kind() ElementKind {
	return e.kind
}

func (e *element) Session() *Session {
	return e.s
}

func (e *element) String() string {
	return fmt.Sprintf("%s[%d]", e.kind, e.id)
}

func (e *element) entity() (native.Entity, error) {
	return e.resolve(false)
}

// resolve returns the native handle in the session's current transaction.
func (e *element) resolve(forWrite bool) (native.Entity, error) {
	ntx, err := e.s.start(forWrite)
	if err != nil {
		return nil, err
	}
	var ent native.Entity
	if e.kind == EdgeKind {
		ent, err = ntx.Relationship(e.id)
	} else {
		ent, err = ntx.Node(e.id)
	}
	if errors.Is(err, native.ErrNotFound) {
		return nil, elementErr(e.kind, e.id, "resolve", ErrElementNotFound)
	} else if err != nil {
		return nil, elementErr(e.kind, e.id, "resolve", err)
	}
	return ent, nil
}

// Property returns the value of key, or nil if the element has no such
// property. Arrays are returned as fresh []any copies.
func (e *element) Property(key string) (any, error) {
	ent, err := e.resolve(false)
	if err != nil {
		return nil, err
	}
	v, err := ent.PropertyOr(key, nil)
	if err != nil {
		return nil, elementErr(e.kind, e.id, "get property "+key, err)
	}
	return NormalizeForRead(v), nil
}

// SetProperty validates value and stores it. An invalid value fails before
// anything is written.
func (e *element) SetProperty(key string, value any) error {
	if err := e.validateKey(key); err != nil {
		return err
	}
	v, err := ToValue(value)
	if err != nil {
		return withKey(err, key)
	}
	return e.setValue(key, v)
}

func (e *element) setValue(key string, v Value) error {
	ent, err := e.resolve(true)
	if err != nil {
		return err
	}
	if err := ent.SetProperty(key, v.Raw()); err != nil {
		return elementErr(e.kind, e.id, "set property "+key, err)
	}
	return nil
}

func (e *element) validateKey(key string) error {
	switch {
	case key == "":
		return elementErr(e.kind, e.id, "set property", fmt.Errorf("%w: empty key", ErrInvalidPropertyKey))
	case key == "id":
		return elementErr(e.kind, e.id, "set property", fmt.Errorf("%w: %q is reserved", ErrInvalidPropertyKey, key))
	case key == "label" && e.kind == EdgeKind:
		return elementErr(e.kind, e.id, "set property", fmt.Errorf("%w: %q is reserved for edges", ErrInvalidPropertyKey, key))
	}
	return nil
}

// RemoveProperty removes key and returns its former value, or nil.
func (e *element) RemoveProperty(key string) (any, error) {
	ent, err := e.resolve(true)
	if err != nil {
		return nil, err
	}
	old, err := ent.RemoveProperty(key)
	if err != nil {
		return nil, elementErr(e.kind, e.id, "remove property "+key, err)
	}
	return NormalizeForRead(old), nil
}

// PropertyKeys returns the sorted property keys.
func (e *element) PropertyKeys() ([]string, error) {
	ent, err := e.resolve(false)
	if err != nil {
		return nil, err
	}
	keys, err := ent.PropertyKeys()
	if err != nil {
		return nil, elementErr(e.kind, e.id, "property keys", err)
	}
	return keys, nil
}

func newElement(s *Session, ent native.Entity) Element {
	switch ent := ent.(type) {
	case *native.Node:
		return newVertex(s, ent.ID())
	case *native.Relationship:
		return newEdge(s, ent.ID())
	default:
		panic(fmt.Errorf("unexpected native entity %T", ent))
	}
}

