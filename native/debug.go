package native

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpBucketHeaders = DumpFlags(1 << iota)
	DumpRecords
	DumpStats
	DumpCatalog
	DumpIndexEntries

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the raw contents of the transaction's view of the storage,
// stale entries included.
func (tx *Tx) Dump(f DumpFlags) string {
	var buf strings.Builder
	if err := tx.check(); err != nil {
		fmt.Fprintf(&buf, "** ERROR: %v\n", err)
		return buf.String()
	}
	if f.Contains(DumpStats) {
		st, _ := tx.Stats()
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "stats: nodes = %d, relationships = %d, label_entries = %d, auto_node_entries = %d, auto_rel_entries = %d, named_indexes = %d, index_node_entries = %d, index_rel_entries = %d, size = %d\n",
			st.Nodes, st.Relationships, st.LabelEntries, st.AutoNodeEntries, st.AutoRelEntries, st.NamedIndexes, st.IndexNodeEntries, st.IndexRelEntries, st.StorageSize)
	}
	for _, name := range allBuckets {
		tx.dumpBucket(&buf, f, name)
	}
	return buf.String()
}

func (tx *Tx) dumpBucket(w *strings.Builder, f DumpFlags, name string) {
	b := tx.bucket(name)
	var show bool
	switch name {
	case bucketNode, bucketRel:
		show = f.Contains(DumpRecords)
	case bucketNodeCat, bucketRelCat, bucketLabel, bucketAdj, bucketSeq:
		show = f.Contains(DumpCatalog)
	default:
		show = f.Contains(DumpIndexEntries)
	}
	if f.Contains(DumpBucketHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d keys)\n", name, b.KeyCount())
	}
	if !show {
		return
	}
	if f.Contains(DumpBucketHeaders) {
		fmt.Fprintln(w, dumpSep2)
	}
	c := b.Cursor()
	defer c.Close()
	var pos int
	for k, v := c.First(); k != nil; k, v = c.Next() {
		pos++
		fmt.Fprintf(w, "%s.%d: %s\n", name, pos, dumpEntry(name, k, v))
	}
}

func dumpEntry(bucket string, k, v []byte) string {
	switch bucket {
	case bucketNode, bucketRel:
		id, _ := trailingID(k)
		var rec record
		if err := decode(v, &rec); err != nil {
			return fmt.Sprintf("%d ** ERROR: %v", id, err)
		}
		props := make(map[string]any, len(rec.Props))
		for pk, sv := range rec.Props {
			props[pk] = sv.load()
		}
		raw, err := json.Marshal(props)
		if err != nil {
			raw = []byte(err.Error())
		}
		if bucket == bucketRel {
			return fmt.Sprintf("%d = (%d)-[%s]->(%d) %s", id, rec.Start, rec.Type, rec.End, raw)
		}
		return fmt.Sprintf("%d = %v %s", id, rec.Labels, raw)
	case bucketAutoNode, bucketAutoRel, bucketIndexNode, bucketIndexRel:
		sv, err := decodeValue(v)
		if err != nil {
			return fmt.Sprintf("%s ** ERROR: %v", formatKey(k), err)
		}
		return fmt.Sprintf("%s => %s", formatKey(k), sv.text())
	case bucketIndexMeta:
		var meta indexMeta
		if err := decode(v, &meta); err != nil {
			return fmt.Sprintf("%s ** ERROR: %v", k, err)
		}
		return fmt.Sprintf("%s = %v %v", k, meta.Kind, meta.Config)
	case bucketSeq:
		id, _ := trailingID(v)
		return fmt.Sprintf("%s = %d", k, id)
	default:
		return formatKey(k)
	}
}
