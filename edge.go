package pgraph

import (
	"fmt"

	"github.com/andreyvit/pgraph/native"
)

// Edge is a directed edge between two vertices. Its label and endpoints
// are fixed at creation.
type Edge struct {
	element
}

var _ Element = (*Edge)(nil)

func newEdge(s *Session, id uint64) *Edge {
	return &Edge{element{s: s, id: id, kind: EdgeKind}}
}

func (e *Edge) relationship() (*native.Relationship, error) {
	ent, err := e.resolve(false)
	if err != nil {
		return nil, err
	}
	return ent.(*native.Relationship), nil
}

func (e *Edge) Remove() error {
	return e.s.RemoveEdge(e)
}

func (e *Edge) Label() (string, error) {
	rel, err := e.relationship()
	if err != nil {
		return "", err
	}
	label, err := rel.Type()
	if err != nil {
		return "", elementErr(EdgeKind, e.id, "label", err)
	}
	return label, nil
}

// OutVertex returns the vertex the edge starts at.
func (e *Edge) OutVertex() (*Vertex, error) {
	rel, err := e.relationship()
	if err != nil {
		return nil, err
	}
	n, err := rel.StartNode()
	if err != nil {
		return nil, elementErr(EdgeKind, e.id, "out vertex", err)
	}
	return newVertex(e.s, n.ID()), nil
}

// InVertex returns the vertex the edge points to.
func (e *Edge) InVertex() (*Vertex, error) {
	rel, err := e.relationship()
	if err != nil {
		return nil, err
	}
	n, err := rel.EndNode()
	if err != nil {
		return nil, elementErr(EdgeKind, e.id, "in vertex", err)
	}
	return newVertex(e.s, n.ID()), nil
}

// Vertex returns OutVertex for Out and InVertex for In.
func (e *Edge) Vertex(dir Direction) (*Vertex, error) {
	switch dir {
	case Out:
		return e.OutVertex()
	case In:
		return e.InVertex()
	default:
		return nil, fmt.Errorf("%w: edge endpoint for direction %v", ErrUnsupportedOperation, dir)
	}
}
