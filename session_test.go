package pgraph

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/pgraph/native"
)

func TestSession_CommitAndRollback(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)

	kept := addVertex(t, s, map[string]any{"name": "alice"}, "Person")
	require.NoError(t, s.Commit())
	assert.False(t, s.InTransaction())

	dropped := addVertex(t, s, nil)
	require.NoError(t, s.Rollback())

	v, err := s.Vertex(kept.ID())
	require.NoError(t, err)
	require.NotNil(t, v)
	name, err := v.Property("name")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	v, err = s.Vertex(dropped.ID())
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSession_HandlesSurviveCommit(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)

	v := addVertex(t, s, nil)
	require.NoError(t, s.Commit())

	require.NoError(t, v.SetProperty("age", 42))
	require.NoError(t, s.Commit())

	age, err := v.Property("age")
	require.NoError(t, err)
	assert.Equal(t, int64(42), age)
}

func TestSession_ReadOnlyTransactionIsNotMarkedSuccessful(t *testing.T) {
	reg := prometheus.NewRegistry()
	g := setup(t, Options{Registerer: reg})
	s := session(t, g)

	outcome := func(name string) float64 {
		return testutil.ToFloat64(g.metrics.txns.WithLabelValues(name))
	}
	reads, commits, rollbacks := outcome("read"), outcome("commit"), outcome("rollback")

	_, err := s.Vertices()
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	addVertex(t, s, nil)
	require.NoError(t, s.Commit())

	addVertex(t, s, nil)
	require.NoError(t, s.Rollback())

	assert.Equal(t, reads+1, outcome("read"))
	assert.Equal(t, commits+1, outcome("commit"))
	assert.Equal(t, rollbacks+1, outcome("rollback"))
	assert.Equal(t, 0.0, testutil.ToFloat64(g.metrics.openTxns))

	n, err := testutil.GatherAndCount(reg, "pgraph_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSession_CommitOrRollbackWithoutTransaction(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	assert.NoError(t, s.Commit())
	assert.NoError(t, s.Rollback())
	assert.Equal(t, "", s.TxID())
}

func TestGraph_Update(t *testing.T) {
	g := setup(t, Options{})

	var id uint64
	require.NoError(t, g.Update(func(s *Session) error {
		v, err := s.AddVertex()
		id = v.ID()
		return err
	}))

	boom := errors.New("boom")
	err := g.Update(func(s *Session) error {
		v, err := s.Vertex(id)
		require.NoError(t, err)
		require.NoError(t, v.SetProperty("x", "changed"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = g.Update(func(s *Session) error {
		panic("kaboom")
	})
	assert.ErrorContains(t, err, "panic: kaboom")

	require.NoError(t, g.View(func(s *Session) error {
		v, err := s.Vertex(id)
		require.NoError(t, err)
		require.NotNil(t, v)
		x, err := v.Property("x")
		require.NoError(t, err)
		assert.Nil(t, x)
		return nil
	}))
}

func TestGraph_DescribeOpenTxns(t *testing.T) {
	g := setup(t, Options{})
	assert.Equal(t, "NO OPEN TRANSACTIONS", g.DescribeOpenTxns())

	s := session(t, g)
	addVertex(t, s, nil)
	desc := g.DescribeOpenTxns()
	assert.Contains(t, desc, "1 OPEN TRANSACTIONS")
	assert.Contains(t, desc, s.TxID())

	require.NoError(t, s.Commit())
	assert.Equal(t, "NO OPEN TRANSACTIONS", g.DescribeOpenTxns())
}

func TestGraph_ShutdownCommitsOpenSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	g, err := Open(path, Options{IsTesting: true})
	require.NoError(t, err)

	s := g.Session()
	v := addVertex(t, s, map[string]any{"name": "pending"})
	require.NoError(t, g.Shutdown())
	require.NoError(t, g.Shutdown())
	assert.True(t, g.IsClosed())

	_, err = g.Session().AddVertex()
	assert.ErrorIs(t, err, ErrClosed)

	g, err = Open(path, Options{IsTesting: true})
	require.NoError(t, err)
	defer g.Shutdown()
	require.NoError(t, g.View(func(s *Session) error {
		got, err := s.Vertex(v.ID())
		require.NoError(t, err)
		require.NotNil(t, got)
		name, err := got.Property("name")
		require.NoError(t, err)
		assert.Equal(t, "pending", name)
		return nil
	}))
}

func TestSession_RawWritesBypassValidation(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)

	ntx, err := s.Raw()
	require.NoError(t, err)
	n, err := ntx.CreateNode("Raw")
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	v, err := s.Vertex(n.ID())
	require.NoError(t, err)
	require.NotNil(t, v)
	labels, err := v.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"Raw"}, labels)
}

// poison makes the session's transaction rollback-only with a write the
// engine rejects.
func poison(t testing.TB, s *Session) *native.Node {
	t.Helper()
	ntx, err := s.Raw()
	require.NoError(t, err)
	n, err := ntx.CreateNode()
	require.NoError(t, err)
	require.Error(t, n.SetProperty("k", uint(1)))
	return n
}

func TestSession_CommitOfRollbackOnlyTransactionFails(t *testing.T) {
	g := setup(t, Options{})
	s := session(t, g)
	n := poison(t, s)

	err := s.Commit()
	assert.ErrorIs(t, err, ErrTransactionFailure)
	assert.ErrorIs(t, err, native.ErrTxRolledBack)
	var te *TxError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "commit", te.Op)
	assert.False(t, s.InTransaction())

	v, err := s.Vertex(n.ID())
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.txns.WithLabelValues("failed")))
}

func TestGraph_ShutdownLogsFailedCommit(t *testing.T) {
	var buf bytes.Buffer
	g, err := OpenStorage(native.NewMemStorage(), Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	require.NoError(t, err)

	s := g.Session()
	poison(t, s)
	require.NoError(t, g.Shutdown())
	assert.False(t, s.InTransaction())
	assert.Contains(t, buf.String(), "failure on session close")
	assert.Contains(t, buf.String(), "rollback-only")
}

func TestGraph_AdminUndoRunsUnderLock(t *testing.T) {
	g := setup(t, Options{})
	failure := errors.New("failure")
	var undone, locked bool
	err := g.admin(nil, "test", func(as *Session) error {
		_, err := as.AddVertex()
		require.NoError(t, err)
		return failure
	}, func() {
		undone = true
		if g.adminMu.TryLock() {
			g.adminMu.Unlock()
		} else {
			locked = true
		}
	})
	assert.ErrorIs(t, err, failure)
	assert.True(t, undone)
	assert.True(t, locked)

	require.NoError(t, g.View(func(s *Session) error {
		assert.Equal(t, []uint64{}, ids(s.Vertices()))
		return nil
	}))
	require.NoError(t, g.admin(nil, "test", func(as *Session) error { return nil }, func() {
		t.Error("undo after success")
	}))
}

func TestNew_ClosesDatabaseOnFailure(t *testing.T) {
	db := native.OpenMemory(native.Options{})
	ntx, err := db.BeginTx()
	require.NoError(t, err)
	for range 2 {
		_, err := ntx.CreateNode(metadataLabel)
		require.NoError(t, err)
	}
	ntx.Success()
	require.NoError(t, ntx.Close())

	_, err = New(db, Options{})
	assert.ErrorIs(t, err, ErrIntegrityViolation)
	assert.True(t, db.IsClosed())
}
