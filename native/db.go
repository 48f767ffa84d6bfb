package native

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

const (
	bucketNode      = "node"
	bucketRel       = "rel"
	bucketNodeCat   = "node.cat"
	bucketRelCat    = "rel.cat"
	bucketLabel     = "label"
	bucketAdj       = "adj"
	bucketAutoNode  = "auto.node"
	bucketAutoRel   = "auto.rel"
	bucketIndexMeta = "idx.meta"
	bucketIndexNode = "idx.node"
	bucketIndexRel  = "idx.rel"
	bucketIndexRefs = "idx.refs"
	bucketSeq       = "seq"
)

var allBuckets = []string{
	bucketNode, bucketRel, bucketNodeCat, bucketRelCat, bucketLabel, bucketAdj,
	bucketAutoNode, bucketAutoRel, bucketIndexMeta, bucketIndexNode,
	bucketIndexRel, bucketIndexRefs, bucketSeq,
}

// DB is an embedded property graph engine over a Storage.
//
// Its transactions are weaker than classic isolation: per-entity reads and
// writes are immediately visible, but the catalog used by full scans, the
// label lists and all indexes keep entries of entities deleted in a
// transaction until that transaction commits.
type DB struct {
	storage Storage
	logger  *slog.Logger
	verbose bool

	nodeAuto *AutoIndexer
	relAuto  *AutoIndexer

	closed atomic.Bool

	lastTxID    atomic.Uint64
	TxBegun     atomic.Uint64
	TxCommitted atomic.Uint64
	TxRolled    atomic.Uint64
	OpenTxns    atomic.Int64
	OpenHits    atomic.Int64
}

type Options struct {
	Logger  *slog.Logger
	Verbose bool
}

// Open prepares the storage and returns a DB that owns it. Auto-indexers
// start disabled; their configuration is not persisted.
func Open(storage Storage, opt Options) (*DB, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db := &DB{
		storage:  storage,
		logger:   logger,
		verbose:  opt.Verbose,
		nodeAuto: newAutoIndexer(NodeKind),
		relAuto:  newAutoIndexer(RelationshipKind),
	}

	stx, err := storage.BeginTx(true)
	if err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}
	for _, name := range allBuckets {
		if _, err := stx.CreateBucket(name); err != nil {
			stx.Rollback()
			return nil, fmt.Errorf("native: creating bucket %s: %w", name, err)
		}
	}
	if err := stx.Commit(); err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}
	return db, nil
}

// OpenMemory returns a DB over a fresh in-memory storage.
func OpenMemory(opt Options) *DB {
	db, err := Open(NewMemStorage(), opt)
	if err != nil {
		panic(err) // in-memory storage cannot fail to prepare
	}
	return db
}

func (db *DB) Logger() *slog.Logger {
	return db.logger
}

func (db *DB) NodeAutoIndexer() *AutoIndexer {
	return db.nodeAuto
}

func (db *DB) RelationshipAutoIndexer() *AutoIndexer {
	return db.relAuto
}

func (db *DB) AutoIndexer(kind EntityKind) *AutoIndexer {
	if kind == RelationshipKind {
		return db.relAuto
	}
	return db.nodeAuto
}

// BeginTx starts a transaction. Every transaction may write; on Bolt and
// in-memory storage this means transactions are serialized.
func (db *DB) BeginTx() (*Tx, error) {
	if db.closed.Load() {
		return nil, ErrDBClosed
	}
	stx, err := db.storage.BeginTx(true)
	if err != nil {
		return nil, fmt.Errorf("native: begin: %w", err)
	}
	tx := &Tx{
		db:  db,
		stx: stx,
		id:  db.lastTxID.Add(1),
	}
	db.TxBegun.Add(1)
	db.OpenTxns.Add(1)
	if db.verbose {
		db.logger.Log(context.Background(), slog.LevelDebug, "native tx begin", slog.Uint64("tx", tx.id))
	}
	return tx, nil
}

func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}
	return db.storage.Close()
}

func (db *DB) IsClosed() bool {
	return db.closed.Load()
}
