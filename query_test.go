package pgraph

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoEngine struct {
	params map[string]any
}

func (e *echoEngine) Execute(s *Session, query string, params map[string]any) (iter.Seq2[map[string]any, error], error) {
	e.params = params
	return func(yield func(map[string]any, error) bool) {
		yield(map[string]any{"query": query, "tx": s.TxID()}, nil)
	}, nil
}

func TestSession_Query(t *testing.T) {
	g := setup(t, Options{})
	_, err := session(t, g).Query("MATCH (n) RETURN n", nil)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	engine := &echoEngine{}
	g.queryEngine = engine
	s := session(t, g)
	rows, err := s.Query("MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, engine.params)

	var got []map[string]any
	for row, err := range rows {
		require.NoError(t, err)
		got = append(got, row)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "MATCH (n) RETURN n", got[0]["query"])
	assert.Equal(t, s.TxID(), got[0]["tx"])
}
