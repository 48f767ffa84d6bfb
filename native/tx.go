package native

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Tx is a native transaction. It must be confined to one goroutine.
//
// A transaction commits on Close only when Success was called and neither
// Failure was called nor the transaction was poisoned by a rejected write.
type Tx struct {
	db  *DB
	stx StorageTx
	id  uint64

	success      bool
	failure      bool
	rollbackOnly error
	closed       bool

	tombstones []tombstone
	hits       []*Hits
}

// tombstone remembers what a deleted entity left behind in the catalog,
// label and index buckets. Those entries are purged when the transaction
// commits.
type tombstone struct {
	kind   EntityKind
	id     uint64
	labels []string
	props  map[string]storedValue
}

func (tx *Tx) ID() uint64 {
	return tx.id
}

func (tx *Tx) DB() *DB {
	return tx.db
}

func (tx *Tx) Success() {
	tx.success = true
}

func (tx *Tx) Failure() {
	tx.failure = true
}

func (tx *Tx) IsClosed() bool {
	return tx.closed
}

// RollbackOnly reports why the transaction can no longer commit, if it can't.
func (tx *Tx) RollbackOnly() error {
	return tx.rollbackOnly
}

func (tx *Tx) poison(err error) error {
	if tx.rollbackOnly == nil {
		tx.rollbackOnly = err
	}
	return err
}

func (tx *Tx) check() error {
	if tx.closed {
		return ErrTxClosed
	}
	return nil
}

// Close commits or rolls back the transaction. It returns ErrTxRolledBack
// when Success was requested but the transaction had been poisoned.
func (tx *Tx) Close() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	tx.db.OpenTxns.Add(-1)
	for _, h := range tx.hits {
		h.Close()
	}
	tx.hits = nil

	commit := tx.success && !tx.failure && tx.rollbackOnly == nil
	var err error
	if commit {
		err = tx.purgeTombstones()
		if err == nil {
			err = tx.stx.Commit()
		} else {
			tx.stx.Rollback()
		}
		if err != nil {
			err = fmt.Errorf("native: commit: %w", err)
		}
	} else {
		tx.stx.Rollback()
		if tx.success && !tx.failure {
			err = fmt.Errorf("%w: %w", ErrTxRolledBack, tx.rollbackOnly)
		}
	}
	tx.tombstones = nil

	if commit && err == nil {
		tx.db.TxCommitted.Add(1)
	} else {
		tx.db.TxRolled.Add(1)
	}
	if tx.db.verbose {
		tx.db.logger.Log(context.Background(), slog.LevelDebug, "native tx close", slog.Uint64("tx", tx.id), slog.Bool("committed", commit && err == nil), slog.Any("err", err))
	}
	return err
}

func (tx *Tx) purgeTombstones() error {
	for _, t := range tx.tombstones {
		var catBucket, autoBucket string
		if t.kind == NodeKind {
			catBucket, autoBucket = bucketNodeCat, bucketAutoNode
		} else {
			catBucket, autoBucket = bucketRelCat, bucketAutoRel
		}
		if err := tx.bucket(catBucket).Delete(idKey(t.id)); err != nil {
			return err
		}
		for _, label := range t.labels {
			if err := tx.bucket(bucketLabel).Delete(labelKey(label, t.id)); err != nil {
				return err
			}
		}
		auto := tx.bucket(autoBucket)
		for k, sv := range t.props {
			if err := auto.Delete(autoKey(k, encodeValue(sv), t.id)); err != nil {
				return err
			}
		}
		if err := tx.purgeIndexRefs(t.kind, t.id); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) bucket(name string) Bucket {
	b := tx.stx.Bucket(name)
	if b == nil {
		panic(fmt.Errorf("native: missing bucket %s", name))
	}
	return b
}

func (tx *Tx) nextID(kind EntityKind) (uint64, error) {
	if sq, ok := tx.db.storage.(Sequencer); ok {
		return sq.NextSequence(kind.bucket())
	}
	seq := tx.bucket(bucketSeq)
	key := []byte(kind.bucket())
	var id uint64
	if v := seq.Get(key); len(v) == idLen {
		id = binary.BigEndian.Uint64(v)
	}
	id++
	if err := seq.Put(key, idKey(id)); err != nil {
		return 0, err
	}
	return id, nil
}

func (tx *Tx) loadRecord(kind EntityKind, id uint64) (*record, error) {
	raw := tx.bucket(kind.bucket()).Get(idKey(id))
	if raw == nil {
		return nil, ErrNotFound
	}
	rec := new(record)
	if err := decode(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (tx *Tx) saveRecord(kind EntityKind, id uint64, rec *record) error {
	return tx.bucket(kind.bucket()).Put(idKey(id), encode(rec))
}

// CreateNode creates a node with the given labels.
func (tx *Tx) CreateNode(labels ...string) (*Node, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	id, err := tx.nextID(NodeKind)
	if err != nil {
		return nil, err
	}
	rec := &record{}
	for _, l := range labels {
		if l == "" {
			return nil, tx.poison(entityErr(NodeKind, id, "create", errors.New("empty label")))
		}
		if !slices.Contains(rec.Labels, l) {
			rec.Labels = append(rec.Labels, l)
		}
	}
	if err := tx.saveRecord(NodeKind, id, rec); err != nil {
		return nil, err
	}
	if err := tx.bucket(bucketNodeCat).Put(idKey(id), []byte{}); err != nil {
		return nil, err
	}
	for _, l := range rec.Labels {
		if err := tx.bucket(bucketLabel).Put(labelKey(l, id), []byte{}); err != nil {
			return nil, err
		}
	}
	return &Node{entity{tx, id}}, nil
}

// Node returns the node with the given id, or ErrNotFound.
func (tx *Tx) Node(id uint64) (*Node, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	if tx.bucket(bucketNode).Get(idKey(id)) == nil {
		return nil, entityErr(NodeKind, id, "get", ErrNotFound)
	}
	return &Node{entity{tx, id}}, nil
}

// Relationship returns the relationship with the given id, or ErrNotFound.
func (tx *Tx) Relationship(id uint64) (*Relationship, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	if tx.bucket(bucketRel).Get(idKey(id)) == nil {
		return nil, entityErr(RelationshipKind, id, "get", ErrNotFound)
	}
	return &Relationship{entity{tx, id}}, nil
}

// AllNodes scans the node catalog. Nodes deleted in this transaction are
// still returned.
func (tx *Tx) AllNodes() (*Hits, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.scan(NodeKind, bucketNodeCat, nil, nil, nil)
}

// AllRelationships scans the relationship catalog. Relationships deleted in
// this transaction are still returned.
func (tx *Tx) AllRelationships() (*Hits, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	return tx.scan(RelationshipKind, bucketRelCat, nil, nil, nil)
}

// FindNodes scans nodes carrying a label. Nodes deleted in this transaction
// are still returned.
func (tx *Tx) FindNodes(label string) (*Hits, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	prefix := (&keyBuilder{}).Str(label).Bytes()
	return tx.scan(NodeKind, bucketLabel, [][]byte{prefix}, nil, nil)
}

// AutoIndex returns the read side of the auto index for a kind.
func (tx *Tx) AutoIndex(kind EntityKind) *AutoIndex {
	return &AutoIndex{tx: tx, kind: kind}
}

// Indexes returns the named index manager.
func (tx *Tx) Indexes() *IndexManager {
	return &IndexManager{tx: tx}
}

// Stats counts entries in every bucket. Counts include entries of entities
// deleted in this transaction.
func (tx *Tx) Stats() (Stats, error) {
	if err := tx.check(); err != nil {
		return Stats{}, err
	}
	return Stats{
		Nodes:            tx.bucket(bucketNodeCat).KeyCount(),
		Relationships:    tx.bucket(bucketRelCat).KeyCount(),
		LabelEntries:     tx.bucket(bucketLabel).KeyCount(),
		AutoNodeEntries:  tx.bucket(bucketAutoNode).KeyCount(),
		AutoRelEntries:   tx.bucket(bucketAutoRel).KeyCount(),
		NamedIndexes:     tx.bucket(bucketIndexMeta).KeyCount(),
		IndexNodeEntries: tx.bucket(bucketIndexNode).KeyCount(),
		IndexRelEntries:  tx.bucket(bucketIndexRel).KeyCount(),
		StorageSize:      tx.stx.Size(),
	}, nil
}

// Stats is a snapshot of bucket sizes.
type Stats struct {
	Nodes            int
	Relationships    int
	LabelEntries     int
	AutoNodeEntries  int
	AutoRelEntries   int
	NamedIndexes     int
	IndexNodeEntries int
	IndexRelEntries  int
	StorageSize      int64
}

func labelKey(label string, id uint64) []byte {
	return (&keyBuilder{}).Str(label).ID(id).Bytes()
}

