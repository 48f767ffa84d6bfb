package native

import "errors"

// ErrStorageClosed is returned when beginning a transaction on a closed storage.
var ErrStorageClosed = errors.New("storage closed")

// Storage represents a key-value storage backend (Bolt, in-memory, Badger).
type Storage interface {
	// BeginTx starts a new transaction.
	BeginTx(writable bool) (StorageTx, error)
	// Close closes the storage.
	Close() error
}

// Sequencer is implemented by storages that allocate ids outside of
// transactions. Ids taken by a transaction that rolls back are skipped.
type Sequencer interface {
	// NextSequence returns the next id of the named sequence, starting at 1.
	NextSequence(name string) (uint64, error)
}

// StorageTx represents a storage transaction.
type StorageTx interface {
	// Writable returns true if this is a writable transaction.
	Writable() bool

	// Bucket returns a bucket, or nil if it doesn't exist.
	Bucket(name string) Bucket

	// CreateBucket creates a bucket if it doesn't exist.
	CreateBucket(name string) (Bucket, error)

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error

	// Size returns the database size in bytes (0 if unknown / not applicable).
	Size() int64
}

// Bucket represents a sorted key-value collection.
type Bucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key.
	Delete(key []byte) error

	// Cursor returns a cursor for iteration. Callers must Close it.
	Cursor() Cursor

	// KeyCount returns the number of keys in the bucket (best effort).
	KeyCount() int
}

// Cursor iterates over a sorted bucket in ascending key order.
type Cursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)

	// Close releases the cursor. Safe to call multiple times.
	Close()
}
