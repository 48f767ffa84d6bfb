package pgraph

import (
	"fmt"
	"log/slog"

	"github.com/andreyvit/pgraph/native"
)

// Parameter is an engine-specific index configuration entry. Parameters
// are passed to the engine in order, as strings.
type Parameter struct {
	Key   any
	Value any
}

func (p Parameter) String() string {
	return fmt.Sprintf("%v=%v", p.Key, p.Value)
}

func nativeConfig(params []Parameter) [][2]string {
	if len(params) == 0 {
		return nil
	}
	config := make([][2]string, len(params))
	for i, p := range params {
		config[i] = [2]string{fmt.Sprint(p.Key), fmt.Sprint(p.Value)}
	}
	return config
}

// Index is a named index that callers populate explicitly. It is bound to
// the session that opened it.
type Index struct {
	s    *Session
	name string
	kind ElementKind
}

func (idx *Index) Name() string      { return idx.name }
func (idx *Index) Kind() ElementKind { return idx.kind }

func (idx *Index) String() string {
	return fmt.Sprintf("index[%s:%s]", idx.name, idx.kind)
}

// CreateIndex creates a named index for elements of kind. Names are shared
// by both kinds: a name taken by an index of either kind fails with
// ErrDuplicateIndex.
func (s *Session) CreateIndex(name string, kind ElementKind, params ...Parameter) (*Index, error) {
	if name == "" {
		return nil, indexErrf(name, ErrIndexOperationFailed, nil, "create: empty name")
	}
	err := s.g.admin(s, "create index", func(as *Session) error {
		ntx, err := as.start(true)
		if err != nil {
			return err
		}
		im := ntx.Indexes()
		if im.ExistsForNodes(name) || im.ExistsForRelationships(name) {
			return indexErrf(name, ErrDuplicateIndex, nil, "create")
		}
		if kind == EdgeKind {
			_, err = im.ForRelationships(name, nativeConfig(params)...)
		} else {
			_, err = im.ForNodes(name, nativeConfig(params)...)
		}
		if err != nil {
			return indexErrf(name, ErrIndexOperationFailed, err, "create")
		}
		as.g.logger.Info("created index", slog.String("index", name), slog.String("kind", kind.String()))
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return &Index{s: s, name: name, kind: kind}, nil
}

// Index returns the named index of kind, or nil if there is none. An index
// of the other kind fails with ErrIndexKindMismatch.
func (s *Session) Index(name string, kind ElementKind) (*Index, error) {
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	im := ntx.Indexes()
	var exists, existsOther bool
	if kind == EdgeKind {
		exists, existsOther = im.ExistsForRelationships(name), im.ExistsForNodes(name)
	} else {
		exists, existsOther = im.ExistsForNodes(name), im.ExistsForRelationships(name)
	}
	switch {
	case exists:
		return &Index{s: s, name: name, kind: kind}, nil
	case existsOther:
		return nil, indexErrf(name, ErrIndexKindMismatch, nil, "get %s index", kind)
	default:
		return nil, nil
	}
}

// DropIndex deletes the named index of whichever kind. The deletion is
// committed immediately, together with the session's open transaction.
func (s *Session) DropIndex(name string) error {
	return s.g.admin(s, "drop index", func(as *Session) error {
		ntx, err := as.start(true)
		if err != nil {
			return err
		}
		im := ntx.Indexes()
		var idx *native.Index
		switch {
		case im.ExistsForNodes(name):
			idx, err = im.ForNodes(name)
		case im.ExistsForRelationships(name):
			idx, err = im.ForRelationships(name)
		default:
			return nil
		}
		if err == nil {
			err = idx.Delete()
		}
		if err != nil {
			return indexErrf(name, ErrIndexOperationFailed, err, "drop")
		}
		as.g.logger.Info("dropped index", slog.String("index", name))
		return nil
	}, nil)
}

// Indices lists all named indexes, vertex indexes first.
func (s *Session) Indices() ([]*Index, error) {
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	var result []*Index
	for _, kind := range []ElementKind{VertexKind, EdgeKind} {
		names, err := ntx.Indexes().Names(kind.native())
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			result = append(result, &Index{s: s, name: name, kind: kind})
		}
	}
	return result, nil
}

func (idx *Index) open(forWrite bool) (*native.Index, error) {
	ntx, err := idx.s.start(forWrite)
	if err != nil {
		return nil, err
	}
	im := ntx.Indexes()
	var exists bool
	if idx.kind == EdgeKind {
		exists = im.ExistsForRelationships(idx.name)
	} else {
		exists = im.ExistsForNodes(idx.name)
	}
	if !exists {
		return nil, indexErrf(idx.name, ErrIndexOperationFailed, native.ErrIndexDeleted, "open")
	}
	if idx.kind == EdgeKind {
		return im.ForRelationships(idx.name)
	}
	return im.ForNodes(idx.name)
}

func (idx *Index) checkElement(op string, el Element) error {
	if isNilElement(el) {
		return indexErrf(idx.name, ErrIdentifierRequired, nil, "%s", op)
	}
	if el.Kind() != idx.kind {
		return indexErrf(idx.name, ErrIndexKindMismatch, nil, "%s %s in %s index", op, el.Kind(), idx.kind)
	}
	return nil
}

// Put associates el with value under key.
func (idx *Index) Put(key string, value any, el Element) error {
	if err := idx.checkElement("put", el); err != nil {
		return err
	}
	v, err := ToValue(value)
	if err != nil {
		return withKey(err, key)
	}
	ni, err := idx.open(true)
	if err != nil {
		return err
	}
	ent, err := el.entity()
	if err != nil {
		return err
	}
	if err := ni.Add(ent, key, v.Raw()); err != nil {
		return indexErrf(idx.name, nil, err, "put %s", key)
	}
	return nil
}

// Remove dissociates el from value under key.
func (idx *Index) Remove(key string, value any, el Element) error {
	if err := idx.checkElement("remove", el); err != nil {
		return err
	}
	v, err := ToValue(value)
	if err != nil {
		return withKey(err, key)
	}
	ni, err := idx.open(true)
	if err != nil {
		return err
	}
	ent, err := el.entity()
	if err != nil {
		return indexErrf(idx.name, ErrIndexOperationFailed, err, "remove %s", key)
	}
	if err := ni.Remove(ent, key, v.Raw()); err != nil {
		return indexErrf(idx.name, ErrIndexOperationFailed, err, "remove %s", key)
	}
	return nil
}

// Get iterates over the live elements associated with value under key.
func (idx *Index) Get(key string, value any) (*Iterator[Element], error) {
	v, err := ToValue(value)
	if err != nil {
		return nil, withKey(err, key)
	}
	ni, err := idx.open(false)
	if err != nil {
		return nil, err
	}
	hits, err := ni.Get(key, v.Raw())
	if err != nil {
		return nil, indexErrf(idx.name, ErrIndexOperationFailed, err, "get %s", key)
	}
	return idx.iterate(hits), nil
}

// Query iterates over elements whose value under key matches pattern. The
// pattern syntax belongs to the engine; see native.Index.Query.
func (idx *Index) Query(key string, pattern string) (*Iterator[Element], error) {
	ni, err := idx.open(false)
	if err != nil {
		return nil, err
	}
	hits, err := ni.Query(key, pattern)
	if err != nil {
		return nil, indexErrf(idx.name, ErrIndexOperationFailed, err, "query %s", key)
	}
	return idx.iterate(hits), nil
}

// QueryExpr runs a query expression in the engine's syntax.
func (idx *Index) QueryExpr(expr string) (*Iterator[Element], error) {
	ni, err := idx.open(false)
	if err != nil {
		return nil, err
	}
	hits, err := ni.QueryExpr(expr)
	if err != nil {
		return nil, indexErrf(idx.name, ErrIndexOperationFailed, err, "query %q", expr)
	}
	return idx.iterate(hits), nil
}

func (idx *Index) iterate(hits *native.Hits) *Iterator[Element] {
	var skip func(native.Entity) bool
	if idx.kind == VertexKind {
		skip = isMetadata
	}
	return newIterator(idx.s, &hitsSource{hits}, skip, wrapAs[Element](idx.s))
}

// Count returns the number of elements associated with value under key.
// Outside consistency-checked mode this is the engine's raw count, which
// includes elements deleted in the open transaction; in checked mode every
// hit is visited.
func (idx *Index) Count(key string, value any) (int, error) {
	v, err := ToValue(value)
	if err != nil {
		return 0, withKey(err, key)
	}
	ni, err := idx.open(false)
	if err != nil {
		return 0, err
	}
	hits, err := ni.Get(key, v.Raw())
	if err != nil {
		return 0, indexErrf(idx.name, ErrIndexOperationFailed, err, "count %s", key)
	}
	if !idx.s.checkElems {
		defer hits.Close()
		return hits.Size(), nil
	}
	return idx.iterate(hits).Count()
}
