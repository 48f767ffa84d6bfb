package native

import (
	"bytes"
)

// Hits is the result of a scan or an index lookup. The matching ids are
// read when the lookup runs, so the transaction may keep writing while hits
// are consumed. Entities deleted earlier in the transaction may be among
// them; callers that care must probe each entity.
type Hits struct {
	tx     *Tx
	kind   EntityKind
	ids    []uint64
	pos    int
	closed bool
	remove func(e Entity) error
}

// scan collects the trailing ids of all keys in bucket that start with one
// of prefixes (or all keys when prefixes is empty) and pass filter.
func (tx *Tx) scan(kind EntityKind, bucket string, prefixes [][]byte, filter func(k, v []byte) bool, remove func(e Entity) error) (*Hits, error) {
	if len(prefixes) == 0 {
		prefixes = [][]byte{nil}
	}
	h := &Hits{tx: tx, kind: kind, remove: remove}
	c := tx.bucket(bucket).Cursor()
	defer c.Close()
	for _, prefix := range prefixes {
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if filter != nil && !filter(k, v) {
				continue
			}
			if id, ok := trailingID(k); ok {
				h.ids = append(h.ids, id)
			}
		}
	}
	tx.hits = append(tx.hits, h)
	tx.db.OpenHits.Add(1)
	return h, nil
}

func (h *Hits) Kind() EntityKind {
	return h.kind
}

// Next returns the next entity handle, or false when the hits are exhausted
// or closed.
func (h *Hits) Next() (Entity, bool) {
	if h.closed || h.pos >= len(h.ids) {
		return nil, false
	}
	id := h.ids[h.pos]
	h.pos++
	if h.kind == RelationshipKind {
		return &Relationship{entity{h.tx, id}}, true
	}
	return &Node{entity{h.tx, id}}, true
}

// Size is the raw number of hits, including entities deleted in this
// transaction.
func (h *Hits) Size() int {
	return len(h.ids)
}

// Remove removes e from whatever produced these hits. Only named index
// lookups support it.
func (h *Hits) Remove(e Entity) error {
	if h.remove == nil {
		return ErrRemoveUnsupported
	}
	return h.remove(e)
}

func (h *Hits) CanRemove() bool {
	return h.remove != nil
}

// Close releases the hits. Calling it again has no effect.
func (h *Hits) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.ids = nil
	h.tx.db.OpenHits.Add(-1)
}

func (h *Hits) IsClosed() bool {
	return h.closed
}
