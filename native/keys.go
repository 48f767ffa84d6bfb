package native

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Keys are concatenations of parts. Variable-length parts are prefixed with
// their uvarint length, so a key built from the leading parts of another key
// is a prefix of it and never of an unrelated key. Ids are fixed 8-byte
// big-endian so they sort numerically.

const idLen = 8

type keyBuilder struct {
	Buf []byte
}

func (kb *keyBuilder) Str(s string) *keyBuilder {
	kb.Buf = binary.AppendUvarint(kb.Buf, uint64(len(s)))
	kb.Buf = append(kb.Buf, s...)
	return kb
}

func (kb *keyBuilder) ID(id uint64) *keyBuilder {
	kb.Buf = binary.BigEndian.AppendUint64(kb.Buf, id)
	return kb
}

func (kb *keyBuilder) Byte(b byte) *keyBuilder {
	kb.Buf = append(kb.Buf, b)
	return kb
}

func (kb *keyBuilder) Raw(b []byte) *keyBuilder {
	kb.Buf = append(kb.Buf, b...)
	return kb
}

// Digest appends a fixed-width hash of an encoded value, which keeps index
// keys short no matter how large the value is. Readers compare the stored
// value to rule out collisions.
func (kb *keyBuilder) Digest(encoded []byte) *keyBuilder {
	return kb.ID(xxhash.Sum64(encoded))
}

func (kb *keyBuilder) Bytes() []byte {
	return kb.Buf
}

func idKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, idLen), id)
}

// trailingID extracts the id that ends every catalog, label, adjacency and
// index key.
func trailingID(key []byte) (uint64, bool) {
	if len(key) < idLen {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(key)-idLen:]), true
}

// readStr decodes a length-prefixed part, returning the remainder.
func readStr(key []byte) (string, []byte, error) {
	n, w := binary.Uvarint(key)
	if w <= 0 || uint64(len(key)-w) < n {
		return "", nil, fmt.Errorf("invalid key part in %x", key)
	}
	end := w + int(n)
	return string(key[w:end]), key[end:], nil
}

func formatKey(key []byte) string {
	var buf strings.Builder
	rem := key
	for len(rem) > idLen {
		s, next, err := readStr(rem)
		if err != nil {
			break
		}
		if buf.Len() > 0 {
			buf.WriteByte('|')
		}
		buf.WriteString(s)
		rem = next
	}
	if len(rem) > 0 {
		if buf.Len() > 0 {
			buf.WriteByte('|')
		}
		buf.WriteString(hex.EncodeToString(rem))
	}
	return buf.String()
}
