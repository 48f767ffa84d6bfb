package pgraph

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
backend: bolt
path: data/graph.db
check_elements_in_transaction: true
log:
  level: debug
  format: json
bolt:
  no_sync: true
  timeout: 5s
`))
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, c.Backend)
	assert.Equal(t, "data/graph.db", c.Path)
	assert.True(t, c.CheckElementsInTransaction)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Bolt.NoSync)
	assert.Equal(t, 5*time.Second, c.Bolt.Timeout)

	var buf bytes.Buffer
	c.NewLogger(&buf).Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestParseConfig_Defaults(t *testing.T) {
	c, err := ParseConfig([]byte("backend: memory\n"))
	require.NoError(t, err)
	assert.Equal(t, "info", c.Log.Level)
	assert.False(t, c.CheckElementsInTransaction)
}

func TestParseConfig_Invalid(t *testing.T) {
	for _, src := range []string{
		"backend: cassandra\n",
		"backend: bolt\n",
		"backend: memory\nlog:\n  level: loud\n",
		"backend: memory\nlog:\n  format: xml\n",
		"backend: [\n",
	} {
		_, err := ParseConfig([]byte(src))
		assert.Error(t, err, src)
	}
}

func TestLoadConfig_OpensGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\ncheck_elements_in_transaction: true\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	g, err := c.Open(nil, nil)
	require.NoError(t, err)
	defer g.Shutdown()

	assert.False(t, g.Features().IsPersistent)
	assert.True(t, g.Session().CheckElementsInTransaction())

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
