package pgraph

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertex_LookupByID(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	v := addVertex(t, s, nil)
	require.NoError(t, s.Commit())

	_, err := s.Vertex(nil)
	assert.ErrorIs(t, err, ErrIdentifierRequired)

	for _, id := range []any{v.ID(), int(v.ID()), float64(v.ID()), strconv.FormatUint(v.ID(), 10), " " + strconv.FormatUint(v.ID(), 10) + ".0"} {
		got, err := s.Vertex(id)
		require.NoError(t, err, "%#v", id)
		require.NotNil(t, got, "%#v", id)
		assert.Equal(t, v.ID(), got.ID())
	}

	for _, id := range []any{"nope", -1, 12345678, struct{}{}} {
		got, err := s.Vertex(id)
		require.NoError(t, err, "%#v", id)
		assert.Nil(t, got, "%#v", id)
	}
}

func TestVertices_SkipDeletedInSameTransaction(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	c := addVertex(t, s, nil)
	require.NoError(t, s.Commit())

	require.NoError(t, b.Remove())
	assert.Equal(t, []uint64{a.ID(), c.ID()}, ids(s.Vertices()))

	got, err := s.Vertex(b.ID())
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = b.Property("x")
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.ErrorIs(t, b.Remove(), ErrElementNotFound)
	assert.ErrorIs(t, s.RemoveVertex(nil), ErrIdentifierRequired)

	require.NoError(t, s.Commit())
	assert.Equal(t, []uint64{a.ID(), c.ID()}, ids(s.Vertices()))
}

func TestRemoveVertex_RemovesIncidentEdges(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	c := addVertex(t, s, nil)
	addEdge(t, s, a, b, "knows")
	addEdge(t, s, c, a, "knows")
	addEdge(t, s, a, a, "self")
	bc := addEdge(t, s, b, c, "knows")
	require.NoError(t, s.Commit())

	require.NoError(t, s.RemoveVertex(a))
	assert.Equal(t, []uint64{bc.ID()}, ids(s.Edges()))
	assert.Equal(t, []uint64{bc.ID()}, ids(b.Edges(Both)))
	require.NoError(t, s.Commit())

	assert.Equal(t, []uint64{bc.ID()}, ids(s.Edges()))
	assert.Equal(t, []uint64{b.ID(), c.ID()}, ids(s.Vertices()))
}

func TestVertex_EdgesByDirection(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	v := addVertex(t, s, nil)
	x := addVertex(t, s, nil)
	y := addVertex(t, s, nil)
	in := addEdge(t, s, x, v, "likes")
	out := addEdge(t, s, v, y, "knows")
	loop := addEdge(t, s, v, v, "knows")
	require.NoError(t, s.Commit())

	assert.Equal(t, []uint64{out.ID(), loop.ID()}, ids(v.Edges(Out)))
	assert.Equal(t, []uint64{loop.ID(), in.ID()}, ids(v.Edges(In)), "sorted by label")
	assert.Equal(t, []uint64{loop.ID(), in.ID(), out.ID(), loop.ID()}, ids(v.Edges(Both)), "incoming first")
	assert.Equal(t, []uint64{out.ID(), loop.ID()}, ids(v.Edges(Out, "knows")))
	assert.Equal(t, []uint64{}, ids(v.Edges(Out, "likes")))

	assert.Equal(t, []uint64{y.ID(), v.ID()}, ids(v.Vertices(Out)))
	assert.Equal(t, []uint64{x.ID()}, ids(v.Vertices(In, "likes")))

	label, err := out.Label()
	require.NoError(t, err)
	assert.Equal(t, "knows", label)
	ov, err := out.Vertex(Out)
	require.NoError(t, err)
	assert.Equal(t, v.ID(), ov.ID())
	iv, err := out.Vertex(In)
	require.NoError(t, err)
	assert.Equal(t, y.ID(), iv.ID())
	_, err = out.Vertex(Both)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestEdge_LookupAndRemove(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	e := addEdge(t, s, a, b, "knows")
	require.NoError(t, s.Commit())

	got, err := s.Edge(strconv.FormatUint(e.ID(), 10))
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, got.Remove())
	got, err = s.Edge(e.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []uint64{}, ids(a.Edges(Out)))

	_, err = s.AddEdge(a, nil, "knows")
	assert.ErrorIs(t, err, ErrIdentifierRequired)
	_, err = s.AddEdge(a, b, "")
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestElement_Properties(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	v := addVertex(t, s, nil)
	w := addVertex(t, s, nil)
	e := addEdge(t, s, v, w, "knows")

	require.NoError(t, v.SetProperty("name", "alice"))
	require.NoError(t, v.SetProperty("scores", []int{3, 1, 2}))
	require.NoError(t, v.SetProperty("tags", map[string]struct{}{"b": {}, "a": {}}))
	require.NoError(t, v.SetProperty("initial", Char('a')))
	require.NoError(t, s.Commit())

	scores, err := v.Property("scores")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(1), int64(2)}, scores)
	tags, err := v.Property("tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, tags)
	initial, err := v.Property("initial")
	require.NoError(t, err)
	assert.Equal(t, Char('a'), initial)

	keys, err := v.PropertyKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"initial", "name", "scores", "tags"}, keys)

	old, err := v.RemoveProperty("name")
	require.NoError(t, err)
	assert.Equal(t, "alice", old)
	old, err = v.RemoveProperty("name")
	require.NoError(t, err)
	assert.Nil(t, old)

	assert.ErrorIs(t, v.SetProperty("", 1), ErrInvalidPropertyKey)
	assert.ErrorIs(t, v.SetProperty("id", 1), ErrInvalidPropertyKey)
	require.NoError(t, v.SetProperty("label", "fine on vertices"))
	assert.ErrorIs(t, e.SetProperty("label", "x"), ErrInvalidPropertyKey)
}

func TestElement_RejectedValueLeavesTransactionUsable(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	v := addVertex(t, s, map[string]any{"x": "before"})
	require.NoError(t, s.Commit())

	require.NoError(t, v.SetProperty("y", true))
	for _, bad := range []any{nil, uint(1), []any{1, "two"}, []any{}, map[string]int{"a": 1}, struct{}{}, []byte("raw")} {
		err := v.SetProperty("x", bad)
		assert.ErrorIs(t, err, ErrInvalidPropertyValue, "%#v", bad)
		var pve *PropertyValueError
		if assert.ErrorAs(t, err, &pve) {
			assert.Equal(t, "x", pve.Key)
		}
	}
	require.NoError(t, s.Commit())

	x, err := v.Property("x")
	require.NoError(t, err)
	assert.Equal(t, "before", x)
	y, err := v.Property("y")
	require.NoError(t, err)
	assert.Equal(t, true, y)
}

func TestVertex_Labels(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	v := addVertex(t, s, nil, "B", "A")

	labels, err := v.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, labels)

	require.NoError(t, v.AddLabel("C"))
	require.NoError(t, v.RemoveLabel("A"))
	labels, err = v.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, labels)

	assert.ErrorIs(t, v.AddLabel(""), ErrInvalidLabel)
	assert.ErrorIs(t, v.AddLabel(metadataLabel), ErrInvalidLabel)
	assert.ErrorIs(t, v.RemoveLabel(metadataLabel), ErrInvalidLabel)
	_, err = s.AddVertex(metadataLabel)
	assert.ErrorIs(t, err, ErrInvalidLabel)
}

func TestMetadataVertex_IsInvisible(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)

	mv, err := s.findMetadataVertex()
	require.NoError(t, err)
	require.NotNil(t, mv)

	got, err := s.Vertex(mv.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []uint64{}, ids(s.Vertices()))
	assert.ErrorIs(t, s.RemoveVertex(mv), ErrElementNotFound)
}
