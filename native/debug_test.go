package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	db := setup(t)
	tx := begin(t, db)
	n, err := tx.CreateNode("Person")
	require.NoError(t, err)
	require.NoError(t, n.SetProperty("name", "alice"))
	idx, err := tx.Indexes().ForNodes("people")
	require.NoError(t, err)
	require.NoError(t, idx.Add(n, "name", "alice"))

	out := tx.Dump(DumpAll)
	assert.Contains(t, out, `node.1: 1 = [Person] {"name":"alice"}`)
	assert.Contains(t, out, "idx.meta.1: people = node []")
	assert.Contains(t, out, "=> alice")
	assert.Contains(t, out, "stats: nodes = 1")

	out = tx.Dump(DumpBucketHeaders)
	assert.Contains(t, out, "node (1 keys)")
	assert.NotContains(t, out, "alice")
}
