package native

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// IndexManager creates and opens named indexes. Index names are unique
// across entity kinds.
type IndexManager struct {
	tx *Tx
}

func (m *IndexManager) meta(name string) (*indexMeta, error) {
	raw := m.tx.bucket(bucketIndexMeta).Get([]byte(name))
	if raw == nil {
		return nil, nil
	}
	meta := new(indexMeta)
	if err := decode(raw, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (m *IndexManager) exists(name string, kind EntityKind) bool {
	meta, err := m.meta(name)
	return err == nil && meta != nil && meta.Kind == kind
}

func (m *IndexManager) ExistsForNodes(name string) bool {
	return m.exists(name, NodeKind)
}

func (m *IndexManager) ExistsForRelationships(name string) bool {
	return m.exists(name, RelationshipKind)
}

// ForNodes opens the named node index, creating it with config if it does
// not exist yet. Config of an existing index is left alone.
func (m *IndexManager) ForNodes(name string, config ...[2]string) (*Index, error) {
	return m.open(name, NodeKind, config)
}

// ForRelationships is ForNodes for relationship indexes.
func (m *IndexManager) ForRelationships(name string, config ...[2]string) (*Index, error) {
	return m.open(name, RelationshipKind, config)
}

func (m *IndexManager) open(name string, kind EntityKind, config [][2]string) (*Index, error) {
	if err := m.tx.check(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &IndexError{name, "open", fmt.Errorf("empty index name")}
	}
	meta, err := m.meta(name)
	if err != nil {
		return nil, &IndexError{name, "open", err}
	}
	if meta == nil {
		meta = &indexMeta{Kind: kind, Config: config}
		if err := m.tx.bucket(bucketIndexMeta).Put([]byte(name), encode(meta)); err != nil {
			return nil, &IndexError{name, "create", err}
		}
	} else if meta.Kind != kind {
		return nil, &IndexError{name, "open " + kind.String() + " index", ErrWrongIndexKind}
	}
	return &Index{tx: m.tx, name: name, kind: kind, config: meta.Config}, nil
}

// Names returns the sorted names of indexes of the given kind.
func (m *IndexManager) Names(kind EntityKind) ([]string, error) {
	if err := m.tx.check(); err != nil {
		return nil, err
	}
	var names []string
	c := m.tx.bucket(bucketIndexMeta).Cursor()
	defer c.Close()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var meta indexMeta
		if err := decode(v, &meta); err != nil {
			return nil, err
		}
		if meta.Kind == kind {
			names = append(names, string(k))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Index is a named index populated explicitly with Add and Remove.
type Index struct {
	tx     *Tx
	name   string
	kind   EntityKind
	config [][2]string
}

func (idx *Index) Name() string {
	return idx.name
}

func (idx *Index) Kind() EntityKind {
	return idx.kind
}

func (idx *Index) Config() [][2]string {
	return idx.config
}

func (idx *Index) entriesBucket() Bucket {
	if idx.kind == RelationshipKind {
		return idx.tx.bucket(bucketIndexRel)
	}
	return idx.tx.bucket(bucketIndexNode)
}

func (idx *Index) entriesBucketName() string {
	if idx.kind == RelationshipKind {
		return bucketIndexRel
	}
	return bucketIndexNode
}

func (idx *Index) check(op string) error {
	if err := idx.tx.check(); err != nil {
		return err
	}
	if !(&IndexManager{idx.tx}).exists(idx.name, idx.kind) {
		return &IndexError{idx.name, op, ErrIndexDeleted}
	}
	return nil
}

func (idx *Index) checkEntity(op string, e Entity) error {
	if e.Kind() != idx.kind {
		return &IndexError{idx.name, op, fmt.Errorf("%w: got %v", ErrWrongIndexKind, e.Kind())}
	}
	if _, err := e.PropertyOr("", nil); err != nil {
		return &IndexError{idx.name, op, err}
	}
	return nil
}

func (idx *Index) keyPrefix(key string) []byte {
	return (&keyBuilder{}).Str(idx.name).Str(key).Bytes()
}

func (idx *Index) valuePrefix(key string, enc []byte) []byte {
	return (&keyBuilder{}).Str(idx.name).Str(key).Digest(enc).Bytes()
}

func refKey(kind EntityKind, id uint64, entry []byte) []byte {
	return (&keyBuilder{}).Byte(byte(kind)).ID(id).Raw(entry).Bytes()
}

// Add associates e with value under key.
func (idx *Index) Add(e Entity, key string, value any) error {
	if err := idx.check("add"); err != nil {
		return err
	}
	if err := idx.checkEntity("add", e); err != nil {
		return err
	}
	sv, err := storeValue(value)
	if err != nil {
		return idx.tx.poison(&IndexError{idx.name, "add", err})
	}
	enc := encodeValue(sv)
	entry := (&keyBuilder{}).Raw(idx.valuePrefix(key, enc)).ID(e.ID()).Bytes()
	if err := idx.entriesBucket().Put(entry, enc); err != nil {
		return err
	}
	return idx.tx.bucket(bucketIndexRefs).Put(refKey(idx.kind, e.ID(), entry), []byte{})
}

// Remove dissociates e from value under key.
func (idx *Index) Remove(e Entity, key string, value any) error {
	if err := idx.check("remove"); err != nil {
		return err
	}
	if e.Kind() != idx.kind {
		return &IndexError{idx.name, "remove", fmt.Errorf("%w: got %v", ErrWrongIndexKind, e.Kind())}
	}
	sv, err := storeValue(value)
	if err != nil {
		return &IndexError{idx.name, "remove", err}
	}
	enc := encodeValue(sv)
	return idx.removeEntries(e.ID(), idx.valuePrefix(key, enc), valueEquals(enc))
}

// RemoveKey dissociates e from all values under key.
func (idx *Index) RemoveKey(e Entity, key string) error {
	if err := idx.check("remove"); err != nil {
		return err
	}
	return idx.removeEntries(e.ID(), idx.keyPrefix(key), nil)
}

func (idx *Index) removeEntries(id uint64, prefix []byte, filter func(k, v []byte) bool) error {
	bucket := idx.entriesBucket()
	var doomed [][]byte
	c := bucket.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if kid, ok := trailingID(k); !ok || kid != id {
			continue
		}
		if filter != nil && !filter(k, v) {
			continue
		}
		doomed = append(doomed, bytes.Clone(k))
	}
	c.Close()
	refs := idx.tx.bucket(bucketIndexRefs)
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
		if err := refs.Delete(refKey(idx.kind, id, k)); err != nil {
			return err
		}
	}
	return nil
}

// Get finds entities associated with value under key. Entities deleted in
// this transaction are still returned.
func (idx *Index) Get(key string, value any) (*Hits, error) {
	if err := idx.check("get"); err != nil {
		return nil, err
	}
	sv, err := storeValue(value)
	if err != nil {
		return nil, &IndexError{idx.name, "get", err}
	}
	enc := encodeValue(sv)
	return idx.tx.scan(idx.kind, idx.entriesBucketName(), [][]byte{idx.valuePrefix(key, enc)}, valueEquals(enc), func(e Entity) error {
		return idx.Remove(e, key, value)
	})
}

// Query finds entities whose value under key matches a glob pattern, as
// implemented by doublestar: "*" matches any run of characters except '/',
// "**" matches anything, "?" and character classes work as usual. Values
// are matched in their text form; arrays look like "[a b c]".
func (idx *Index) Query(key string, pattern string) (*Hits, error) {
	if err := idx.check("query"); err != nil {
		return nil, err
	}
	if err := validatePattern(pattern); err != nil {
		return nil, &IndexError{idx.name, "query", fmt.Errorf("%w: %v", ErrInvalidQuery, err)}
	}
	filter := patternFilter(pattern)
	prefix := idx.keyPrefix(key)
	if key == "*" {
		prefix = (&keyBuilder{}).Str(idx.name).Bytes()
	}
	return idx.tx.scan(idx.kind, idx.entriesBucketName(), [][]byte{prefix}, filter, func(e Entity) error {
		if err := idx.check("remove"); err != nil {
			return err
		}
		return idx.removeEntries(e.ID(), prefix, filter)
	})
}

// QueryExpr runs a "key:pattern" query. A key of "*" matches every key.
func (idx *Index) QueryExpr(expr string) (*Hits, error) {
	key, pattern, ok := strings.Cut(expr, ":")
	if !ok || key == "" {
		return nil, &IndexError{idx.name, "query", fmt.Errorf("%w: expected key:pattern, got %q", ErrInvalidQuery, expr)}
	}
	return idx.Query(key, pattern)
}

// Delete drops the index together with all its entries.
func (idx *Index) Delete() error {
	if err := idx.check("delete"); err != nil {
		return err
	}
	prefix := (&keyBuilder{}).Str(idx.name).Bytes()
	bucket := idx.entriesBucket()
	var doomed [][]byte
	c := bucket.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		doomed = append(doomed, bytes.Clone(k))
	}
	c.Close()
	refs := idx.tx.bucket(bucketIndexRefs)
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
		if id, ok := trailingID(k); ok {
			if err := refs.Delete(refKey(idx.kind, id, k)); err != nil {
				return err
			}
		}
	}
	return idx.tx.bucket(bucketIndexMeta).Delete([]byte(idx.name))
}

func valueEquals(enc []byte) func(k, v []byte) bool {
	return func(k, v []byte) bool {
		return bytes.Equal(v, enc)
	}
}

func patternFilter(pattern string) func(k, v []byte) bool {
	return func(k, v []byte) bool {
		sv, err := decodeValue(v)
		if err != nil {
			return false
		}
		ok, err := doublestar.Match(pattern, sv.text())
		return err == nil && ok
	}
}

// validatePattern rejects unterminated classes, alternatives and escapes.
// doublestar only reports those when matching reaches them, which an
// empty scan never does.
func validatePattern(pattern string) error {
	var class, alt bool
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '\\':
			if i++; i == len(pattern) {
				return doublestar.ErrBadPattern
			}
		case class:
			class = c != ']'
		case c == '[':
			class = true
		case c == '{':
			if alt {
				return doublestar.ErrBadPattern
			}
			alt = true
		case c == '}':
			alt = false
		}
	}
	if class || alt {
		return doublestar.ErrBadPattern
	}
	return nil
}

// purgeIndexRefs removes named index entries of a deleted entity.
func (tx *Tx) purgeIndexRefs(kind EntityKind, id uint64) error {
	entries := tx.bucket(bucketIndexNode)
	if kind == RelationshipKind {
		entries = tx.bucket(bucketIndexRel)
	}
	refs := tx.bucket(bucketIndexRefs)
	prefix := (&keyBuilder{}).Byte(byte(kind)).ID(id).Bytes()
	var doomed [][]byte
	c := refs.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		doomed = append(doomed, bytes.Clone(k))
	}
	c.Close()
	for _, k := range doomed {
		if err := entries.Delete(k[len(prefix):]); err != nil {
			return err
		}
		if err := refs.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
