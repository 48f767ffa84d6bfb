package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/go-multierror"
)

type BadgerOptions struct {
	// Dir is the data directory; ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   *slog.Logger
}

// Badger has no buckets, so each bucket is a key prefix: name, 0x00, key.
// Bucket existence is recorded under 0x00, name.
const badgerBucketSep = 0

// badgerSeqBandwidth is how many ids a sequence leases from disk at once.
const badgerSeqBandwidth = 64

type badgerStorage struct {
	db *badger.DB

	seqMu sync.Mutex
	seqs  map[string]*badger.Sequence
}

// OpenBadger opens a Badger database. Unlike Bolt, Badger runs writable
// transactions concurrently and reports conflicts on commit. Element ids
// come from leased Badger sequences rather than the seq bucket, so
// concurrent creators do not conflict on a shared counter.
func OpenBadger(opt BadgerOptions) (Storage, error) {
	bopt := badger.DefaultOptions(opt.Dir)
	if opt.InMemory {
		bopt = badger.DefaultOptions("").WithInMemory(true)
	}
	if opt.Logger != nil {
		bopt = bopt.WithLogger(badgerLogger{opt.Logger})
	} else {
		bopt = bopt.WithLogger(nil)
	}
	db, err := badger.Open(bopt)
	if err != nil {
		return nil, fmt.Errorf("badger: %w", err)
	}
	return &badgerStorage{db: db, seqs: make(map[string]*badger.Sequence)}, nil
}

func (s *badgerStorage) BeginTx(writable bool) (StorageTx, error) {
	if s.db.IsClosed() {
		return nil, ErrStorageClosed
	}
	return &badgerTx{db: s.db, txn: s.db.NewTransaction(writable), writable: writable}, nil
}

func (s *badgerStorage) NextSequence(name string) (uint64, error) {
	s.seqMu.Lock()
	seq := s.seqs[name]
	if seq == nil {
		if s.db.IsClosed() {
			s.seqMu.Unlock()
			return 0, ErrStorageClosed
		}
		var err error
		seq, err = s.db.GetSequence(badgerSeqKey(name), badgerSeqBandwidth)
		if err != nil {
			s.seqMu.Unlock()
			return 0, fmt.Errorf("badger: sequence %s: %w", name, err)
		}
		s.seqs[name] = seq
	}
	s.seqMu.Unlock()

	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("badger: sequence %s: %w", name, err)
	}
	return n + 1, nil
}

func (s *badgerStorage) Close() error {
	var result *multierror.Error
	s.seqMu.Lock()
	for name, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			result = multierror.Append(result, fmt.Errorf("badger: releasing sequence %s: %w", name, err))
		}
	}
	clear(s.seqs)
	s.seqMu.Unlock()
	if err := s.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type badgerTx struct {
	db       *badger.DB
	txn      *badger.Txn
	writable bool
	done     bool
	cursors  []*badgerCursor
}

func (tx *badgerTx) Writable() bool { return tx.writable }

func (tx *badgerTx) Bucket(name string) Bucket {
	_, err := tx.txn.Get(badgerBucketMarker(name))
	if err != nil {
		return nil
	}
	return &badgerBucket{tx: tx, prefix: badgerBucketPrefix(name)}
}

func (tx *badgerTx) CreateBucket(name string) (Bucket, error) {
	if b := tx.Bucket(name); b != nil {
		return b, nil
	}
	if !tx.writable {
		return nil, fmt.Errorf("tx not writable")
	}
	if err := tx.txn.Set(badgerBucketMarker(name), []byte{}); err != nil {
		return nil, err
	}
	return &badgerBucket{tx: tx, prefix: badgerBucketPrefix(name)}, nil
}

// Badger refuses to discard a transaction with live iterators, so the
// transaction closes whatever cursors its callers forgot about.
func (tx *badgerTx) closeCursors() {
	for _, c := range tx.cursors {
		c.Close()
	}
	tx.cursors = nil
}

func (tx *badgerTx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.closeCursors()
	if !tx.writable {
		tx.txn.Discard()
		return fmt.Errorf("tx not writable")
	}
	return tx.txn.Commit()
}

func (tx *badgerTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.closeCursors()
	tx.txn.Discard()
	return nil
}

func (tx *badgerTx) Size() int64 {
	lsm, vlog := tx.db.Size()
	return lsm + vlog
}

type badgerBucket struct {
	tx     *badgerTx
	prefix []byte
}

func (b *badgerBucket) key(k []byte) []byte {
	return append(slices.Clip(b.prefix), k...)
}

func (b *badgerBucket) Get(key []byte) []byte {
	item, err := b.tx.txn.Get(b.key(key))
	if err != nil {
		return nil
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil
	}
	if v == nil {
		v = []byte{}
	}
	return v
}

func (b *badgerBucket) Put(key, value []byte) error {
	return b.tx.txn.Set(b.key(key), slices.Clone(value))
}

func (b *badgerBucket) Delete(key []byte) error {
	err := b.tx.txn.Delete(b.key(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *badgerBucket) Cursor() Cursor {
	c := &badgerCursor{bucket: b}
	b.tx.cursors = append(b.tx.cursors, c)
	return c
}

func (b *badgerBucket) KeyCount() int {
	opt := badger.DefaultIteratorOptions
	opt.PrefetchValues = false
	opt.Prefix = b.prefix
	it := b.tx.txn.NewIterator(opt)
	defer it.Close()
	var n int
	for it.Rewind(); it.ValidForPrefix(b.prefix); it.Next() {
		n++
	}
	return n
}

type badgerCursor struct {
	bucket *badgerBucket
	it     *badger.Iterator
	closed bool
}

func (c *badgerCursor) iterator() *badger.Iterator {
	if c.it == nil {
		opt := badger.DefaultIteratorOptions
		opt.Prefix = c.bucket.prefix
		c.it = c.bucket.tx.txn.NewIterator(opt)
	}
	return c.it
}

func (c *badgerCursor) First() ([]byte, []byte) {
	return c.Seek(nil)
}

func (c *badgerCursor) Seek(seek []byte) ([]byte, []byte) {
	if c.closed {
		return nil, nil
	}
	it := c.iterator()
	it.Seek(c.bucket.key(seek))
	return c.current()
}

func (c *badgerCursor) Next() ([]byte, []byte) {
	if c.closed || c.it == nil || !c.it.ValidForPrefix(c.bucket.prefix) {
		return nil, nil
	}
	c.it.Next()
	return c.current()
}

func (c *badgerCursor) current() ([]byte, []byte) {
	prefix := c.bucket.prefix
	if !c.it.ValidForPrefix(prefix) {
		return nil, nil
	}
	item := c.it.Item()
	k := item.KeyCopy(nil)[len(prefix):]
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil
	}
	if v == nil {
		v = []byte{}
	}
	return k, v
}

func (c *badgerCursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.it != nil {
		c.it.Close()
		c.it = nil
	}
}

func badgerBucketPrefix(name string) []byte {
	buf := make([]byte, 0, len(name)+1)
	buf = append(buf, name...)
	return append(buf, badgerBucketSep)
}

// badgerSeqKey lives next to the bucket markers; no bucket name starts
// with the separator.
func badgerSeqKey(name string) []byte {
	buf := make([]byte, 0, len(name)+2)
	buf = append(buf, badgerBucketSep, badgerBucketSep)
	return append(buf, name...)
}

func badgerBucketMarker(name string) []byte {
	buf := make([]byte, 0, len(name)+1)
	buf = append(buf, badgerBucketSep)
	return append(buf, name...)
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelError, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}
