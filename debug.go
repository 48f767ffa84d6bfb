package pgraph

import (
	"fmt"
	"strings"

	"github.com/andreyvit/pgraph/native"
)

type DumpFlags = native.DumpFlags

const (
	DumpBucketHeaders = native.DumpBucketHeaders
	DumpRecords       = native.DumpRecords
	DumpStats         = native.DumpStats
	DumpCatalog       = native.DumpCatalog
	DumpIndexEntries  = native.DumpIndexEntries
	DumpAll           = native.DumpAll
)

// Dump renders the storage as the open transaction sees it, preceded by
// the key index configuration. Meant for tests and debugging.
func (s *Session) Dump(f DumpFlags) string {
	var buf strings.Builder
	ntx, err := s.start(false)
	if err != nil {
		fmt.Fprintf(&buf, "** ERROR: %v\n", err)
		return buf.String()
	}
	fmt.Fprintf(&buf, "tx %s\n", s.TxID())
	fmt.Fprintf(&buf, "vertex key indexes: %s\n", strings.Join(s.IndexedKeys(VertexKind), ", "))
	fmt.Fprintf(&buf, "edge key indexes: %s\n", strings.Join(s.IndexedKeys(EdgeKind), ", "))
	buf.WriteString(ntx.Dump(f))
	return buf.String()
}
