package pgraph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pgraph/native"
)

// setup opens a graph over in-memory storage in -short mode and over a
// Bolt temp file otherwise.
func setup(t testing.TB, opt Options) *Graph {
	t.Helper()
	var g *Graph
	var err error
	if testing.Short() {
		g, err = OpenStorage(native.NewMemStorage(), opt)
	} else {
		opt.IsTesting = true
		g, err = Open(filepath.Join(t.TempDir(), "graph.db"), opt)
	}
	require.NoError(t, err)
	t.Cleanup(func() { g.Shutdown() })
	return g
}

// session returns a session that is rolled back when the test ends.
func session(t testing.TB, g *Graph) *Session {
	t.Helper()
	s := g.Session()
	t.Cleanup(func() { s.Rollback() })
	return s
}

// ids drains it. It takes a constructor's results directly, so it panics
// on errors instead of failing the test.
func ids[E Element](it *Iterator[E], err error) []uint64 {
	if err != nil {
		panic(err)
	}
	all, err := it.All()
	if err != nil {
		panic(err)
	}
	result := []uint64{}
	for _, e := range all {
		result = append(result, e.ID())
	}
	return result
}

func addVertex(t testing.TB, s *Session, props map[string]any, labels ...string) *Vertex {
	t.Helper()
	v, err := s.AddVertex(labels...)
	require.NoError(t, err)
	for k, val := range props {
		require.NoError(t, v.SetProperty(k, val))
	}
	return v
}

func addEdge(t testing.TB, s *Session, out, in *Vertex, label string) *Edge {
	t.Helper()
	e, err := s.AddEdge(out, in, label)
	require.NoError(t, err)
	return e
}
