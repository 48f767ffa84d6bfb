package pgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StatsAndDump(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	require.NoError(t, s.CreateKeyIndex("name", VertexKind))
	idx, err := s.CreateIndex("people", VertexKind)
	require.NoError(t, err)

	a := addVertex(t, s, map[string]any{"name": "alice"}, "Person")
	b := addVertex(t, s, map[string]any{"name": "bob"})
	addEdge(t, s, a, b, "knows")
	require.NoError(t, idx.Put("name", "alice", a))
	require.NoError(t, s.Commit())

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Vertices)
	assert.Equal(t, 1, st.Edges)
	assert.Equal(t, 1, st.LabelEntries)
	assert.Equal(t, 2, st.VertexKeyIndexEntries)
	assert.Equal(t, 1, st.NamedIndexes)
	assert.Equal(t, 1, st.NamedIndexEntries)
	assert.Equal(t, 3, st.TotalIndexEntries())
	assert.Equal(t, []string{"name"}, st.IndexedVertexKeys)
	assert.Equal(t, []string{}, st.IndexedEdgeKeys)
	assert.Equal(t, int64(1), st.OpenTxns)

	dump := s.Dump(DumpAll)
	assert.Contains(t, dump, "vertex key indexes: name\n")
	assert.Contains(t, dump, "stats: nodes = 3, relationships = 1")
	assert.Contains(t, dump, "people")
}
