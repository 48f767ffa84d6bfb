package pgraph

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/andreyvit/pgraph/native"
)

// AddVertex creates a vertex. Identifiers are always assigned by the engine.
func (s *Session) AddVertex(labels ...string) (*Vertex, error) {
	for _, l := range labels {
		if err := validateLabel(l); err != nil {
			return nil, err
		}
	}
	ntx, err := s.start(true)
	if err != nil {
		return nil, err
	}
	n, err := ntx.CreateNode(labels...)
	if err != nil {
		return nil, fmt.Errorf("add vertex: %w", err)
	}
	return newVertex(s, n.ID()), nil
}

// Vertex looks a vertex up by id, which may be any integer, float or
// numeric string. It returns nil when there is no such vertex or the id
// is malformed.
func (s *Session) Vertex(id any) (*Vertex, error) {
	if id == nil {
		return nil, fmt.Errorf("vertex: %w", ErrIdentifierRequired)
	}
	nid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	if s.isDeleted(VertexKind, nid) {
		return nil, nil
	}
	n, err := ntx.Node(nid)
	if errors.Is(err, native.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, elementErr(VertexKind, nid, "get", err)
	}
	if isMetadata(n) {
		return nil, nil
	}
	return newVertex(s, nid), nil
}

// RemoveVertex removes a vertex together with all its edges.
func (s *Session) RemoveVertex(v *Vertex) error {
	if v == nil {
		return fmt.Errorf("remove vertex: %w", ErrIdentifierRequired)
	}
	n, err := v.node(true)
	if err != nil {
		return err
	}
	if isMetadata(n) {
		return elementErr(VertexKind, v.id, "remove", ErrElementNotFound)
	}
	removed := make(map[uint64]bool)
	for _, dir := range []native.Direction{native.Incoming, native.Outgoing} {
		hits, err := n.Relationships(dir)
		if err != nil {
			return elementErr(VertexKind, v.id, "remove", err)
		}
		var rels []native.Entity
		for ent, ok := hits.Next(); ok; ent, ok = hits.Next() {
			rels = append(rels, ent)
		}
		hits.Close()
		for _, rel := range rels {
			if removed[rel.ID()] {
				continue
			}
			if err := rel.Delete(); err != nil {
				return elementErr(VertexKind, v.id, "remove incident edge", err)
			}
			removed[rel.ID()] = true
			s.markDeleted(EdgeKind, rel.ID())
		}
	}
	if err := n.Delete(); err != nil {
		return elementErr(VertexKind, v.id, "remove", err)
	}
	s.markDeleted(VertexKind, v.id)
	return nil
}

// AddEdge creates an edge from out to in.
func (s *Session) AddEdge(out, in *Vertex, label string) (*Edge, error) {
	if out == nil || in == nil {
		return nil, fmt.Errorf("add edge: %w: both vertices are required", ErrIdentifierRequired)
	}
	if label == "" {
		return nil, fmt.Errorf("add edge: %w: empty label", ErrInvalidLabel)
	}
	from, err := out.node(true)
	if err != nil {
		return nil, err
	}
	to, err := in.node(true)
	if err != nil {
		return nil, err
	}
	rel, err := from.CreateRelationshipTo(to, label)
	if err != nil {
		return nil, fmt.Errorf("add edge: %w", err)
	}
	return newEdge(s, rel.ID()), nil
}

// Edge looks an edge up by id, see Vertex.
func (s *Session) Edge(id any) (*Edge, error) {
	if id == nil {
		return nil, fmt.Errorf("edge: %w", ErrIdentifierRequired)
	}
	rid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	if s.isDeleted(EdgeKind, rid) {
		return nil, nil
	}
	_, err = ntx.Relationship(rid)
	if errors.Is(err, native.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, elementErr(EdgeKind, rid, "get", err)
	}
	return newEdge(s, rid), nil
}

func (s *Session) RemoveEdge(e *Edge) error {
	if e == nil {
		return fmt.Errorf("remove edge: %w", ErrIdentifierRequired)
	}
	ent, err := e.resolve(true)
	if err != nil {
		return err
	}
	if err := ent.Delete(); err != nil {
		return elementErr(EdgeKind, e.id, "remove", err)
	}
	s.markDeleted(EdgeKind, e.id)
	return nil
}

// Vertices iterates over all vertices.
func (s *Session) Vertices() (*Iterator[*Vertex], error) {
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	hits, err := ntx.AllNodes()
	if err != nil {
		return nil, err
	}
	return newIterator(s, &hitsSource{hits}, isMetadata, wrapAs[*Vertex](s)), nil
}

// Edges iterates over all edges.
func (s *Session) Edges() (*Iterator[*Edge], error) {
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	hits, err := ntx.AllRelationships()
	if err != nil {
		return nil, err
	}
	return newIterator(s, &hitsSource{hits}, nil, wrapAs[*Edge](s)), nil
}

// VerticesWith iterates over vertices whose key property equals value. It
// uses the auto index when key is a key index and scans otherwise.
func (s *Session) VerticesWith(key string, value any) (*Iterator[*Vertex], error) {
	src, skip, err := s.lookup(VertexKind, key, value)
	if err != nil {
		return nil, err
	}
	return newIterator(s, src, skip, wrapAs[*Vertex](s)), nil
}

// EdgesWith is VerticesWith for edges.
func (s *Session) EdgesWith(key string, value any) (*Iterator[*Edge], error) {
	src, skip, err := s.lookup(EdgeKind, key, value)
	if err != nil {
		return nil, err
	}
	return newIterator(s, src, skip, wrapAs[*Edge](s)), nil
}

func (s *Session) lookup(kind ElementKind, key string, value any) (source, func(native.Entity) bool, error) {
	v, err := ToValue(value)
	if err != nil {
		return nil, nil, withKey(err, key)
	}
	ntx, err := s.start(false)
	if err != nil {
		return nil, nil, err
	}
	var skip func(native.Entity) bool
	if kind == VertexKind {
		skip = isMetadata
	}

	if s.isKeyIndexed(kind, key) {
		hits, err := ntx.AutoIndex(kind.native()).Get(key, v.Raw())
		if err != nil {
			return nil, nil, err
		}
		return &hitsSource{hits}, skip, nil
	}

	var hits *native.Hits
	if kind == VertexKind {
		hits, err = ntx.AllNodes()
	} else {
		hits, err = ntx.AllRelationships()
	}
	if err != nil {
		return nil, nil, err
	}
	return &hitsSource{hits}, func(ent native.Entity) bool {
		if skip != nil && skip(ent) {
			return true
		}
		raw, err := ent.PropertyOr(key, nil)
		return err == nil && !reflect.DeepEqual(raw, v.Raw())
	}, nil
}

// isMetadata reports whether ent is the graph metadata vertex. Entities
// whose state cannot be read are left for the liveness probe to judge.
func isMetadata(ent native.Entity) bool {
	n, ok := ent.(*native.Node)
	if !ok {
		return false
	}
	has, err := n.HasLabel(metadataLabel)
	return err == nil && has
}

// parseID accepts integers, floats and their string forms.
func parseID(id any) (uint64, bool) {
	switch id := id.(type) {
	case uint64:
		return id, true
	case uint:
		return uint64(id), true
	case uint32:
		return uint64(id), true
	case int:
		return uint64(id), id >= 0
	case int64:
		return uint64(id), id >= 0
	case int32:
		return uint64(id), id >= 0
	case float64:
		return floatID(id)
	case float32:
		return floatID(float64(id))
	case string:
		id = strings.TrimSpace(id)
		if u, err := strconv.ParseUint(id, 10, 64); err == nil {
			return u, true
		}
		f, err := strconv.ParseFloat(id, 64)
		if err != nil {
			return 0, false
		}
		return floatID(f)
	case fmt.Stringer:
		return parseID(id.String())
	default:
		return 0, false
	}
}

func floatID(f float64) (uint64, bool) {
	if math.IsNaN(f) || f < 0 || f >= math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}
