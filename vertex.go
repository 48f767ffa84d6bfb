package pgraph

import (
	"fmt"
	"slices"

	"github.com/andreyvit/pgraph/native"
)

// Vertex is a graph vertex with a set of labels.
type Vertex struct {
	element
}

var _ Element = (*Vertex)(nil)

func newVertex(s *Session, id uint64) *Vertex {
	return &Vertex{element{s: s, id: id, kind: VertexKind}}
}

func (v *Vertex) node(forWrite bool) (*native.Node, error) {
	ent, err := v.resolve(forWrite)
	if err != nil {
		return nil, err
	}
	return ent.(*native.Node), nil
}

func (v *Vertex) Remove() error {
	return v.s.RemoveVertex(v)
}

// Labels returns the sorted labels of the vertex.
func (v *Vertex) Labels() ([]string, error) {
	n, err := v.node(false)
	if err != nil {
		return nil, err
	}
	labels, err := n.Labels()
	if err != nil {
		return nil, elementErr(VertexKind, v.id, "labels", err)
	}
	return slices.DeleteFunc(labels, func(l string) bool { return l == metadataLabel }), nil
}

func (v *Vertex) AddLabel(label string) error {
	if err := validateLabel(label); err != nil {
		return elementErr(VertexKind, v.id, "add label", err)
	}
	n, err := v.node(true)
	if err != nil {
		return err
	}
	if err := n.AddLabel(label); err != nil {
		return elementErr(VertexKind, v.id, "add label", err)
	}
	return nil
}

func (v *Vertex) RemoveLabel(label string) error {
	if label == metadataLabel {
		return elementErr(VertexKind, v.id, "remove label", fmt.Errorf("%w: %q is reserved", ErrInvalidLabel, label))
	}
	n, err := v.node(true)
	if err != nil {
		return err
	}
	if err := n.RemoveLabel(label); err != nil {
		return elementErr(VertexKind, v.id, "remove label", err)
	}
	return nil
}

func validateLabel(label string) error {
	switch label {
	case "":
		return fmt.Errorf("%w: empty label", ErrInvalidLabel)
	case metadataLabel:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidLabel, label)
	}
	return nil
}

// Edges iterates over the vertex's edges in the given direction,
// restricted to the given labels if any. Both lists incoming edges
// before outgoing ones; a self-loop appears once in each part.
func (v *Vertex) Edges(dir Direction, labels ...string) (*Iterator[*Edge], error) {
	src, err := v.adjacency(dir, labels)
	if err != nil {
		return nil, err
	}
	return newIterator(v.s, src, nil, wrapAs[*Edge](v.s)), nil
}

// Vertices iterates over the vertices at the other end of Edges(dir, labels...).
func (v *Vertex) Vertices(dir Direction, labels ...string) (*Iterator[*Vertex], error) {
	src, err := v.adjacency(dir, labels)
	if err != nil {
		return nil, err
	}
	return newIterator(v.s, src, nil, func(ent native.Entity) (*Vertex, error) {
		rel := ent.(*native.Relationship)
		start, err := rel.StartNode()
		if err != nil {
			return nil, elementErr(EdgeKind, rel.ID(), "start vertex", err)
		}
		if start.ID() != v.id {
			return newVertex(v.s, start.ID()), nil
		}
		end, err := rel.EndNode()
		if err != nil {
			return nil, elementErr(EdgeKind, rel.ID(), "end vertex", err)
		}
		return newVertex(v.s, end.ID()), nil
	}), nil
}

func (v *Vertex) adjacency(dir Direction, labels []string) (source, error) {
	n, err := v.node(false)
	if err != nil {
		return nil, err
	}
	rels := func(d native.Direction) (*native.Hits, error) {
		h, err := n.Relationships(d, labels...)
		if err != nil {
			return nil, elementErr(VertexKind, v.id, "edges", err)
		}
		return h, nil
	}
	switch dir {
	case Out:
		h, err := rels(native.Outgoing)
		if err != nil {
			return nil, err
		}
		return &hitsSource{h}, nil
	case In:
		h, err := rels(native.Incoming)
		if err != nil {
			return nil, err
		}
		return &hitsSource{h}, nil
	case Both:
		in, err := rels(native.Incoming)
		if err != nil {
			return nil, err
		}
		out, err := rels(native.Outgoing)
		if err != nil {
			in.Close()
			return nil, err
		}
		return &bothSource{first: in, second: out}, nil
	default:
		return nil, fmt.Errorf("%w: direction %v", ErrUnsupportedOperation, dir)
	}
}

// AddEdge adds an edge from v to in.
func (v *Vertex) AddEdge(label string, in *Vertex) (*Edge, error) {
	return v.s.AddEdge(v, in, label)
}
