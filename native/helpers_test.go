package native

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// storageBackends lists the backends every storage test runs against.
// Persistent backends are skipped in -short mode.
var storageBackends = []struct {
	name       string
	persistent bool
	open       func(t testing.TB) Storage
}{
	{"mem", false, func(t testing.TB) Storage {
		return NewMemStorage()
	}},
	{"bolt", true, func(t testing.TB) Storage {
		s, err := OpenBolt(filepath.Join(t.TempDir(), "test.db"), BoltOptions{NoSync: true})
		require.NoError(t, err)
		return s
	}},
	{"badger", false, func(t testing.TB) Storage {
		s, err := OpenBadger(BadgerOptions{InMemory: true})
		require.NoError(t, err)
		return s
	}},
}

func forEachBackend(t *testing.T, f func(t *testing.T, s Storage)) {
	for _, b := range storageBackends {
		t.Run(b.name, func(t *testing.T) {
			if b.persistent && testing.Short() {
				t.Skip("persistent backend skipped in short mode")
			}
			s := b.open(t)
			t.Cleanup(func() { s.Close() })
			f(t, s)
		})
	}
}

// setup opens a DB over in-memory storage in -short mode and over a Bolt
// temp file otherwise.
func setup(t testing.TB) *DB {
	t.Helper()
	var s Storage
	if testing.Short() {
		s = NewMemStorage()
	} else {
		f, err := os.CreateTemp(t.TempDir(), "native_test_*.db")
		require.NoError(t, err)
		f.Close()
		s, err = OpenBolt(f.Name(), BoltOptions{NoSync: true})
		require.NoError(t, err)
	}
	db, err := Open(s, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func begin(t testing.TB, db *DB) *Tx {
	t.Helper()
	tx, err := db.BeginTx()
	require.NoError(t, err)
	t.Cleanup(func() { tx.Close() })
	return tx
}

func commit(t testing.TB, tx *Tx) {
	t.Helper()
	tx.Success()
	require.NoError(t, tx.Close())
}

func drain(t testing.TB, h *Hits) []uint64 {
	t.Helper()
	defer h.Close()
	var ids []uint64
	for e, ok := h.Next(); ok; e, ok = h.Next() {
		ids = append(ids, e.ID())
	}
	return ids
}

func live(t testing.TB, h *Hits) []uint64 {
	t.Helper()
	defer h.Close()
	var ids []uint64
	for e, ok := h.Next(); ok; e, ok = h.Next() {
		if _, err := e.PropertyOr("", nil); err == nil {
			ids = append(ids, e.ID())
		} else {
			require.ErrorIs(t, err, ErrInvalidState)
		}
	}
	return ids
}
