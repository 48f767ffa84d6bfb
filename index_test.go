package pgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_PutGetRemove(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	idx, err := s.CreateIndex("people", VertexKind, Parameter{"type", "exact"})
	require.NoError(t, err)
	assert.Equal(t, "people", idx.Name())
	assert.Equal(t, VertexKind, idx.Kind())

	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	require.NoError(t, idx.Put("name", "alice", a))
	require.NoError(t, idx.Put("name", "alice", b))
	require.NoError(t, idx.Put("name", "bob", b))
	require.NoError(t, s.Commit())

	assert.Equal(t, []uint64{a.ID(), b.ID()}, ids(idx.Get("name", "alice")))
	assert.Equal(t, []uint64{b.ID()}, ids(idx.Get("name", "bob")))
	assert.Equal(t, []uint64{a.ID(), b.ID()}, ids(idx.Query("name", "al*")))
	assert.Equal(t, []uint64{b.ID()}, ids(idx.QueryExpr("name:b?b")))

	require.NoError(t, idx.Remove("name", "alice", a))
	require.NoError(t, s.Commit())
	assert.Equal(t, []uint64{b.ID()}, ids(idx.Get("name", "alice")))

	_, err = idx.Query("name", "[")
	assert.ErrorIs(t, err, ErrIndexOperationFailed)
	assert.ErrorIs(t, idx.Put("name", nil, a), ErrInvalidPropertyValue)
	assert.ErrorIs(t, idx.Put("name", "x", nil), ErrIdentifierRequired)

	missing, err := s.Vertex(uint64(9999))
	require.NoError(t, err)
	require.Nil(t, missing)
	assert.ErrorIs(t, idx.Put("name", "x", missing), ErrIdentifierRequired)
	assert.ErrorIs(t, idx.Remove("name", "alice", missing), ErrIdentifierRequired)
	var noEdge *Edge
	assert.ErrorIs(t, idx.Put("name", "x", noEdge), ErrIdentifierRequired)
}

func TestIndex_NamespaceIsSharedByKinds(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	_, err := s.CreateIndex("things", VertexKind)
	require.NoError(t, err)

	_, err = s.CreateIndex("things", VertexKind)
	assert.ErrorIs(t, err, ErrDuplicateIndex)
	_, err = s.CreateIndex("things", EdgeKind)
	assert.ErrorIs(t, err, ErrDuplicateIndex)

	_, err = s.Index("things", EdgeKind)
	assert.ErrorIs(t, err, ErrIndexKindMismatch)
	idx, err := s.Index("things", VertexKind)
	require.NoError(t, err)
	require.NotNil(t, idx)
	idx, err = s.Index("missing", VertexKind)
	require.NoError(t, err)
	assert.Nil(t, idx)

	_, err = s.CreateIndex("links", EdgeKind)
	require.NoError(t, err)
	all, err := s.Indices()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "things", all[0].Name())
	assert.Equal(t, "links", all[1].Name())
	assert.Equal(t, EdgeKind, all[1].Kind())
}

func TestIndex_RejectsElementsOfOtherKind(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	idx, err := s.CreateIndex("links", EdgeKind)
	require.NoError(t, err)
	v := addVertex(t, s, nil)
	assert.ErrorIs(t, idx.Put("k", "v", v), ErrIndexKindMismatch)
}

func TestIndex_CountFastAndChecked(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	idx, err := s.CreateIndex("people", VertexKind)
	require.NoError(t, err)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	require.NoError(t, idx.Put("team", "red", a))
	require.NoError(t, idx.Put("team", "red", b))
	require.NoError(t, s.Commit())

	require.NoError(t, a.Remove())

	n, err := idx.Count("team", "red")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "raw count still sees the deleted vertex")
	assert.Equal(t, []uint64{b.ID()}, ids(idx.Get("team", "red")))

	s.SetCheckElementsInTransaction(true)
	assert.True(t, s.CheckElementsInTransaction())
	n, err = idx.Count("team", "red")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Commit())
	s.SetCheckElementsInTransaction(false)
	n, err = idx.Count("team", "red")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_IteratorRemove(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	idx, err := s.CreateIndex("people", VertexKind)
	require.NoError(t, err)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	require.NoError(t, idx.Put("team", "red", a))
	require.NoError(t, idx.Put("team", "red", b))

	it, err := idx.Get("team", "red")
	require.NoError(t, err)
	e, err := it.Next()
	require.NoError(t, err)
	assert.ErrorIs(t, it.Remove(nil), ErrIdentifierRequired)
	require.NoError(t, it.Remove(e))
	require.NoError(t, it.Close())

	assert.Equal(t, []uint64{b.ID()}, ids(idx.Get("team", "red")))

	vit, err := s.Vertices()
	require.NoError(t, err)
	defer vit.Close()
	v, err := vit.Next()
	require.NoError(t, err)
	assert.ErrorIs(t, vit.Remove(v), ErrUnsupportedOperation)

	addEdge(t, s, a, b, "knows")
	eit, err := a.Edges(Both)
	require.NoError(t, err)
	defer eit.Close()
	edge, err := eit.Next()
	require.NoError(t, err)
	assert.ErrorIs(t, eit.Remove(edge), ErrUnsupportedOperation)
	assert.Equal(t, []uint64{edge.ID()}, ids(a.Edges(Out)))
}

func TestIndex_Drop(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	idx, err := s.CreateIndex("people", VertexKind)
	require.NoError(t, err)
	v := addVertex(t, s, nil)
	require.NoError(t, idx.Put("k", "v", v))

	require.NoError(t, s.DropIndex("people"))
	require.NoError(t, s.DropIndex("people"))
	assert.False(t, s.InTransaction())

	got, err := s.Index("people", VertexKind)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = idx.Get("k", "v")
	assert.ErrorIs(t, err, ErrIndexOperationFailed)

	_, err = s.CreateIndex("people", EdgeKind)
	assert.NoError(t, err)
}
