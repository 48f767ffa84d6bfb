package native

import (
	"bytes"
	"sort"
	"sync"
)

// AutoIndexer maintains an index of selected property keys for one entity
// kind. Entries are written as properties are set; values set before a key
// was added are not indexed until they are written again.
//
// The configuration lives in memory only and is lost when the DB is closed.
type AutoIndexer struct {
	kind    EntityKind
	mu      sync.RWMutex
	enabled bool
	keys    map[string]struct{}
}

func newAutoIndexer(kind EntityKind) *AutoIndexer {
	return &AutoIndexer{kind: kind, keys: make(map[string]struct{})}
}

func (ai *AutoIndexer) Kind() EntityKind {
	return ai.kind
}

func (ai *AutoIndexer) SetEnabled(enabled bool) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	ai.enabled = enabled
}

func (ai *AutoIndexer) Enabled() bool {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	return ai.enabled
}

func (ai *AutoIndexer) StartAutoIndexingProperty(key string) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	ai.keys[key] = struct{}{}
}

func (ai *AutoIndexer) StopAutoIndexingProperty(key string) {
	ai.mu.Lock()
	defer ai.mu.Unlock()
	delete(ai.keys, key)
}

// AutoIndexedProperties returns the sorted list of indexed keys.
func (ai *AutoIndexer) AutoIndexedProperties() []string {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	keys := make([]string, 0, len(ai.keys))
	for k := range ai.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (ai *AutoIndexer) indexes(key string) bool {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	if !ai.enabled {
		return false
	}
	_, ok := ai.keys[key]
	return ok
}

// AutoIndex is the read side of an auto index within a transaction.
type AutoIndex struct {
	tx   *Tx
	kind EntityKind
}

// Get finds entities whose key property equals value. Entities deleted in
// this transaction are still returned.
func (ai *AutoIndex) Get(key string, value any) (*Hits, error) {
	if err := ai.tx.check(); err != nil {
		return nil, err
	}
	sv, err := storeValue(value)
	if err != nil {
		return nil, err
	}
	enc := encodeValue(sv)
	prefix := (&keyBuilder{}).Str(key).Digest(enc).Bytes()
	return ai.tx.scan(ai.kind, ai.kind.autoBucket(), [][]byte{prefix}, func(k, v []byte) bool {
		return bytes.Equal(v, enc)
	}, nil)
}

func autoKey(key string, encoded []byte, id uint64) []byte {
	return (&keyBuilder{}).Str(key).Digest(encoded).ID(id).Bytes()
}
