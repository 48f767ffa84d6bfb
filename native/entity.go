package native

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sort"
)

type EntityKind uint8

const (
	NodeKind EntityKind = iota + 1
	RelationshipKind
)

func (k EntityKind) String() string {
	switch k {
	case NodeKind:
		return "node"
	case RelationshipKind:
		return "relationship"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k EntityKind) bucket() string {
	if k == RelationshipKind {
		return bucketRel
	}
	return bucketNode
}

func (k EntityKind) autoBucket() string {
	if k == RelationshipKind {
		return bucketAutoRel
	}
	return bucketAutoNode
}

// Entity is implemented by *Node and *Relationship.
type Entity interface {
	ID() uint64
	Kind() EntityKind
	Tx() *Tx
	Property(key string) (any, error)
	PropertyOr(key string, def any) (any, error)
	HasProperty(key string) (bool, error)
	SetProperty(key string, value any) error
	RemoveProperty(key string) (any, error)
	PropertyKeys() ([]string, error)
	Delete() error
}

var (
	_ Entity = (*Node)(nil)
	_ Entity = (*Relationship)(nil)
)

type entity struct {
	tx *Tx
	id uint64
}

func (e entity) ID() uint64 {
	return e.id
}

func (e entity) Tx() *Tx {
	return e.tx
}

// load reads the entity's record. A record that is gone means the entity
// was deleted, which is reported as ErrInvalidState.
func (e entity) load(kind EntityKind) (*record, error) {
	if err := e.tx.check(); err != nil {
		return nil, err
	}
	rec, err := e.tx.loadRecord(kind, e.id)
	if errors.Is(err, ErrNotFound) {
		return nil, entityErr(kind, e.id, "read", ErrInvalidState)
	} else if err != nil {
		return nil, entityErr(kind, e.id, "read", err)
	}
	return rec, nil
}

func (e entity) property(kind EntityKind, key string) (any, error) {
	rec, err := e.load(kind)
	if err != nil {
		return nil, err
	}
	sv, ok := rec.Props[key]
	if !ok {
		return nil, entityErr(kind, e.id, "property "+key, ErrPropertyNotFound)
	}
	return sv.load(), nil
}

func (e entity) propertyOr(kind EntityKind, key string, def any) (any, error) {
	rec, err := e.load(kind)
	if err != nil {
		return nil, err
	}
	sv, ok := rec.Props[key]
	if !ok {
		return def, nil
	}
	return sv.load(), nil
}

func (e entity) hasProperty(kind EntityKind, key string) (bool, error) {
	rec, err := e.load(kind)
	if err != nil {
		return false, err
	}
	_, ok := rec.Props[key]
	return ok, nil
}

// setProperty stores a value. Rejected values poison the transaction.
func (e entity) setProperty(kind EntityKind, key string, value any) error {
	if key == "" {
		return e.tx.poison(entityErr(kind, e.id, "set property", ErrInvalidKey))
	}
	sv, err := storeValue(value)
	if err != nil {
		return e.tx.poison(entityErr(kind, e.id, "set property "+key, err))
	}
	rec, err := e.load(kind)
	if err != nil {
		return err
	}
	if old, ok := rec.Props[key]; ok {
		if err := e.unindex(kind, key, old); err != nil {
			return err
		}
	}
	if rec.Props == nil {
		rec.Props = make(map[string]storedValue)
	}
	rec.Props[key] = sv
	if err := e.tx.saveRecord(kind, e.id, rec); err != nil {
		return err
	}
	if e.tx.db.AutoIndexer(kind).indexes(key) {
		if err := e.tx.bucket(kind.autoBucket()).Put(autoKey(key, encodeValue(sv), e.id), encodeValue(sv)); err != nil {
			return err
		}
	}
	return nil
}

func (e entity) unindex(kind EntityKind, key string, old storedValue) error {
	return e.tx.bucket(kind.autoBucket()).Delete(autoKey(key, encodeValue(old), e.id))
}

func (e entity) removeProperty(kind EntityKind, key string) (any, error) {
	rec, err := e.load(kind)
	if err != nil {
		return nil, err
	}
	old, ok := rec.Props[key]
	if !ok {
		return nil, nil
	}
	delete(rec.Props, key)
	if err := e.unindex(kind, key, old); err != nil {
		return nil, err
	}
	if err := e.tx.saveRecord(kind, e.id, rec); err != nil {
		return nil, err
	}
	return old.load(), nil
}

func (e entity) propertyKeys(kind EntityKind) ([]string, error) {
	rec, err := e.load(kind)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rec.Props))
	for k := range rec.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// remove deletes the record right away and leaves a tombstone for the
// entries that scans and indexes still see.
func (e entity) remove(kind EntityKind, rec *record) error {
	if err := e.tx.bucket(kind.bucket()).Delete(idKey(e.id)); err != nil {
		return err
	}
	e.tx.tombstones = append(e.tx.tombstones, tombstone{
		kind:   kind,
		id:     e.id,
		labels: rec.Labels,
		props:  rec.Props,
	})
	return nil
}

// Node is a handle to a graph node. Handles stay usable after the node is
// deleted, but every access then fails with ErrInvalidState.
type Node struct {
	entity
}

func (n *Node) Kind() EntityKind { return NodeKind }

func (n *Node) String() string {
	return fmt.Sprintf("node %d", n.id)
}

func (n *Node) Property(key string) (any, error) {
	return n.property(NodeKind, key)
}

// PropertyOr returns def when the property is not set. It is the cheapest
// way to find out whether the node still exists.
func (n *Node) PropertyOr(key string, def any) (any, error) {
	return n.propertyOr(NodeKind, key, def)
}

func (n *Node) HasProperty(key string) (bool, error) {
	return n.hasProperty(NodeKind, key)
}

func (n *Node) SetProperty(key string, value any) error {
	return n.setProperty(NodeKind, key, value)
}

func (n *Node) RemoveProperty(key string) (any, error) {
	return n.removeProperty(NodeKind, key)
}

func (n *Node) PropertyKeys() ([]string, error) {
	return n.propertyKeys(NodeKind)
}

// Delete deletes the node. It fails with ErrHasRelationships unless all of
// the node's relationships were deleted first.
func (n *Node) Delete() error {
	rec, err := n.load(NodeKind)
	if err != nil {
		return err
	}
	prefix := idKey(n.id)
	c := n.tx.bucket(bucketAdj).Cursor()
	k, _ := c.Seek(prefix)
	c.Close()
	if k != nil && bytes.HasPrefix(k, prefix) {
		return entityErr(NodeKind, n.id, "delete", ErrHasRelationships)
	}
	return n.remove(NodeKind, rec)
}

func (n *Node) Labels() ([]string, error) {
	rec, err := n.load(NodeKind)
	if err != nil {
		return nil, err
	}
	labels := slices.Clone(rec.Labels)
	sort.Strings(labels)
	return labels, nil
}

func (n *Node) HasLabel(label string) (bool, error) {
	rec, err := n.load(NodeKind)
	if err != nil {
		return false, err
	}
	return slices.Contains(rec.Labels, label), nil
}

func (n *Node) AddLabel(label string) error {
	if label == "" {
		return n.tx.poison(entityErr(NodeKind, n.id, "add label", fmt.Errorf("empty label")))
	}
	rec, err := n.load(NodeKind)
	if err != nil {
		return err
	}
	if slices.Contains(rec.Labels, label) {
		return nil
	}
	rec.Labels = append(rec.Labels, label)
	if err := n.tx.saveRecord(NodeKind, n.id, rec); err != nil {
		return err
	}
	return n.tx.bucket(bucketLabel).Put(labelKey(label, n.id), []byte{})
}

func (n *Node) RemoveLabel(label string) error {
	rec, err := n.load(NodeKind)
	if err != nil {
		return err
	}
	i := slices.Index(rec.Labels, label)
	if i < 0 {
		return nil
	}
	rec.Labels = slices.Delete(rec.Labels, i, i+1)
	if err := n.tx.saveRecord(NodeKind, n.id, rec); err != nil {
		return err
	}
	return n.tx.bucket(bucketLabel).Delete(labelKey(label, n.id))
}

// Direction selects one side of a node's relationships. The engine has
// no combined direction.
type Direction uint8

const (
	Outgoing Direction = iota + 1
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Relationships returns the node's relationships in one direction,
// optionally limited to the given types.
func (n *Node) Relationships(dir Direction, types ...string) (*Hits, error) {
	if _, err := n.load(NodeKind); err != nil {
		return nil, err
	}
	if dir != Outgoing && dir != Incoming {
		return nil, entityErr(NodeKind, n.id, "relationships", fmt.Errorf("unsupported direction %v", dir))
	}
	var prefixes [][]byte
	if len(types) == 0 {
		prefixes = append(prefixes, (&keyBuilder{}).ID(n.id).Byte(byte(dir)).Bytes())
	} else {
		for _, t := range types {
			prefixes = append(prefixes, (&keyBuilder{}).ID(n.id).Byte(byte(dir)).Str(t).Bytes())
		}
	}
	return n.tx.scan(RelationshipKind, bucketAdj, prefixes, nil, nil)
}

// CreateRelationshipTo creates a relationship of the given type from n to other.
func (n *Node) CreateRelationshipTo(other *Node, typ string) (*Relationship, error) {
	if typ == "" {
		return nil, n.tx.poison(entityErr(NodeKind, n.id, "create relationship", fmt.Errorf("empty relationship type")))
	}
	if _, err := n.load(NodeKind); err != nil {
		return nil, err
	}
	if _, err := other.load(NodeKind); err != nil {
		return nil, err
	}
	tx := n.tx
	id, err := tx.nextID(RelationshipKind)
	if err != nil {
		return nil, err
	}
	rec := &record{Type: typ, Start: n.id, End: other.id}
	if err := tx.saveRecord(RelationshipKind, id, rec); err != nil {
		return nil, err
	}
	if err := tx.bucket(bucketRelCat).Put(idKey(id), []byte{}); err != nil {
		return nil, err
	}
	adj := tx.bucket(bucketAdj)
	if err := adj.Put(adjKey(n.id, Outgoing, typ, id), []byte{}); err != nil {
		return nil, err
	}
	if err := adj.Put(adjKey(other.id, Incoming, typ, id), []byte{}); err != nil {
		return nil, err
	}
	return &Relationship{entity{tx, id}}, nil
}

func adjKey(node uint64, dir Direction, typ string, rel uint64) []byte {
	return (&keyBuilder{}).ID(node).Byte(byte(dir)).Str(typ).ID(rel).Bytes()
}

// Relationship is a handle to a typed, directed relationship between two
// nodes. Its type and endpoints never change.
type Relationship struct {
	entity
}

func (r *Relationship) Kind() EntityKind { return RelationshipKind }

func (r *Relationship) String() string {
	return fmt.Sprintf("relationship %d", r.id)
}

func (r *Relationship) Property(key string) (any, error) {
	return r.property(RelationshipKind, key)
}

func (r *Relationship) PropertyOr(key string, def any) (any, error) {
	return r.propertyOr(RelationshipKind, key, def)
}

func (r *Relationship) HasProperty(key string) (bool, error) {
	return r.hasProperty(RelationshipKind, key)
}

func (r *Relationship) SetProperty(key string, value any) error {
	return r.setProperty(RelationshipKind, key, value)
}

func (r *Relationship) RemoveProperty(key string) (any, error) {
	return r.removeProperty(RelationshipKind, key)
}

func (r *Relationship) PropertyKeys() ([]string, error) {
	return r.propertyKeys(RelationshipKind)
}

func (r *Relationship) Type() (string, error) {
	rec, err := r.load(RelationshipKind)
	if err != nil {
		return "", err
	}
	return rec.Type, nil
}

func (r *Relationship) StartNode() (*Node, error) {
	rec, err := r.load(RelationshipKind)
	if err != nil {
		return nil, err
	}
	return &Node{entity{r.tx, rec.Start}}, nil
}

func (r *Relationship) EndNode() (*Node, error) {
	rec, err := r.load(RelationshipKind)
	if err != nil {
		return nil, err
	}
	return &Node{entity{r.tx, rec.End}}, nil
}

// Delete deletes the relationship. Unlike catalog entries, adjacency
// entries are removed immediately.
func (r *Relationship) Delete() error {
	rec, err := r.load(RelationshipKind)
	if err != nil {
		return err
	}
	adj := r.tx.bucket(bucketAdj)
	if err := adj.Delete(adjKey(rec.Start, Outgoing, rec.Type, r.id)); err != nil {
		return err
	}
	if err := adj.Delete(adjKey(rec.End, Incoming, rec.Type, r.id)); err != nil {
		return err
	}
	return r.remove(RelationshipKind, rec)
}
