package pgraph

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterator_States(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	a := addVertex(t, s, nil)

	it, err := s.Vertices()
	require.NoError(t, err)
	assert.True(t, it.HasNext())
	assert.True(t, it.HasNext())

	v, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, a.ID(), v.ID())
	assert.False(t, it.HasNext())

	_, err = it.Next()
	assert.ErrorIs(t, err, ErrNoSuchElement)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.False(t, it.HasNext())
	_, err = it.Next()
	assert.ErrorIs(t, err, ErrNoSuchElement)
	assert.ErrorIs(t, it.Remove(v), ErrUnsupportedOperation)
}

func TestIterator_SkipsStaleElements(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	var all []*Vertex
	for range 4 {
		all = append(all, addVertex(t, s, map[string]any{"kind": "x"}))
	}
	require.NoError(t, s.Commit())

	before := testutil.ToFloat64(g.metrics.staleSkipped)
	require.NoError(t, all[0].Remove())
	require.NoError(t, all[2].Remove())

	it, err := s.Vertices()
	require.NoError(t, err)
	n, err := it.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before+2, testutil.ToFloat64(g.metrics.staleSkipped))
}

func TestIterator_RawDeletesAreCaughtByLivenessProbe(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	require.NoError(t, s.Commit())

	ntx, err := s.Raw()
	require.NoError(t, err)
	n, err := ntx.Node(a.ID())
	require.NoError(t, err)
	require.NoError(t, n.Delete())

	assert.Equal(t, []uint64{b.ID()}, ids(s.Vertices()))
}

func TestIterator_Seq(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	a := addVertex(t, s, nil)
	b := addVertex(t, s, nil)
	addEdge(t, s, a, b, "x")
	addEdge(t, s, b, a, "x")

	it, err := s.Edges()
	require.NoError(t, err)
	var labels []string
	for e, err := range it.Seq() {
		require.NoError(t, err)
		l, err := e.Label()
		require.NoError(t, err)
		labels = append(labels, l)
		break
	}
	assert.Equal(t, []string{"x"}, labels)
	assert.False(t, it.HasNext(), "closed when the loop ends")
}
