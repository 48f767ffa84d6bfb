package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_PutGetDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		tx, err := s.BeginTx(true)
		require.NoError(t, err)
		b, err := tx.CreateBucket("things")
		require.NoError(t, err)
		require.NoError(t, b.Put([]byte("a"), []byte("1")))
		require.NoError(t, b.Put([]byte("b"), []byte{}))
		assert.Equal(t, []byte("1"), b.Get([]byte("a")))
		assert.Nil(t, b.Get([]byte("c")))
		require.NoError(t, tx.Commit())

		tx, err = s.BeginTx(true)
		require.NoError(t, err)
		b = tx.Bucket("things")
		require.NotNil(t, b)
		assert.Nil(t, tx.Bucket("other"))
		require.NoError(t, b.Delete([]byte("a")))
		require.NoError(t, b.Delete([]byte("missing")))
		assert.Nil(t, b.Get([]byte("a")))
		assert.Equal(t, 1, b.KeyCount())
		require.NoError(t, tx.Commit())
	})
}

func TestStorage_RollbackDiscardsWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		tx, err := s.BeginTx(true)
		require.NoError(t, err)
		_, err = tx.CreateBucket("things")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		tx, err = s.BeginTx(true)
		require.NoError(t, err)
		require.NoError(t, tx.Bucket("things").Put([]byte("k"), []byte("v")))
		require.NoError(t, tx.Rollback())
		require.NoError(t, tx.Rollback())

		tx, err = s.BeginTx(false)
		require.NoError(t, err)
		defer tx.Rollback()
		assert.Nil(t, tx.Bucket("things").Get([]byte("k")))
	})
}

func TestStorage_CursorOrderAndSeek(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		tx, err := s.BeginTx(true)
		require.NoError(t, err)
		defer tx.Rollback()
		b, err := tx.CreateBucket("things")
		require.NoError(t, err)
		other, err := tx.CreateBucket("things2")
		require.NoError(t, err)
		for _, k := range []string{"c", "a", "e", "b", "d"} {
			require.NoError(t, b.Put([]byte(k), []byte("v"+k)))
		}
		require.NoError(t, other.Put([]byte("a"), []byte("x")))

		c := b.Cursor()
		defer c.Close()
		var keys []string
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, keys)

		k, v := c.Seek([]byte("bb"))
		assert.Equal(t, "c", string(k))
		assert.Equal(t, "vc", string(v))
		k, _ = c.Next()
		assert.Equal(t, "d", string(k))

		k, _ = c.Seek([]byte("z"))
		assert.Nil(t, k)
		c.Close()
		c.Close()
	})
}

func TestStorage_ClosedStorage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Storage) {
		require.NoError(t, s.Close())
		_, err := s.BeginTx(false)
		assert.Error(t, err)
	})
}
