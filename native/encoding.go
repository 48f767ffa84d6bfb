package native

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Char is a single character property value. It is a distinct type so that
// characters are not confused with int32 values.
type Char rune

func (c Char) String() string {
	return string(rune(c))
}

// Kind enumerates the scalar kinds a property value may have. Arrays are
// homogeneous sequences of exactly one kind.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindChar
	KindString
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindChar:    "char",
	KindString:  "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// KindOf reports the kind of a value the engine can store directly, and
// whether it is an array. ok is false for anything else.
func KindOf(v any) (kind Kind, array bool, ok bool) {
	switch v.(type) {
	case bool:
		return KindBool, false, true
	case int8:
		return KindInt8, false, true
	case int16:
		return KindInt16, false, true
	case int32:
		return KindInt32, false, true
	case int64:
		return KindInt64, false, true
	case float32:
		return KindFloat32, false, true
	case float64:
		return KindFloat64, false, true
	case Char:
		return KindChar, false, true
	case string:
		return KindString, false, true
	case []bool:
		return KindBool, true, true
	case []int8:
		return KindInt8, true, true
	case []int16:
		return KindInt16, true, true
	case []int32:
		return KindInt32, true, true
	case []int64:
		return KindInt64, true, true
	case []float32:
		return KindFloat32, true, true
	case []float64:
		return KindFloat64, true, true
	case []Char:
		return KindChar, true, true
	case []string:
		return KindString, true, true
	default:
		return KindInvalid, false, false
	}
}

// storedValue is the on-disk form of a property value. Scalars are stored
// as one-element sequences.
type storedValue struct {
	Kind   Kind      `msgpack:"k"`
	Array  bool      `msgpack:"a,omitempty"`
	Bools  []bool    `msgpack:"b,omitempty"`
	Ints   []int64   `msgpack:"i,omitempty"`
	Floats []float64 `msgpack:"f,omitempty"`
	Strs   []string  `msgpack:"s,omitempty"`
}

func widen[T int8 | int16 | int32 | int64 | Char](src []T) []int64 {
	out := make([]int64, len(src))
	for i, v := range src {
		out[i] = int64(v)
	}
	return out
}

func narrow[T int8 | int16 | int32 | int64 | Char](src []int64) []T {
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = T(v)
	}
	return out
}

func storeValue(v any) (storedValue, error) {
	kind, array, ok := KindOf(v)
	if !ok {
		return storedValue{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	sv := storedValue{Kind: kind, Array: array}
	switch v := v.(type) {
	case bool:
		sv.Bools = []bool{v}
	case int8:
		sv.Ints = []int64{int64(v)}
	case int16:
		sv.Ints = []int64{int64(v)}
	case int32:
		sv.Ints = []int64{int64(v)}
	case int64:
		sv.Ints = []int64{v}
	case float32:
		sv.Floats = []float64{float64(v)}
	case float64:
		sv.Floats = []float64{v}
	case Char:
		sv.Ints = []int64{int64(v)}
	case string:
		sv.Strs = []string{v}
	case []bool:
		sv.Bools = append([]bool(nil), v...)
	case []int8:
		sv.Ints = widen(v)
	case []int16:
		sv.Ints = widen(v)
	case []int32:
		sv.Ints = widen(v)
	case []int64:
		sv.Ints = widen(v)
	case []float32:
		sv.Floats = make([]float64, len(v))
		for i, f := range v {
			sv.Floats[i] = float64(f)
		}
	case []float64:
		sv.Floats = append([]float64(nil), v...)
	case []Char:
		sv.Ints = widen(v)
	case []string:
		sv.Strs = append([]string(nil), v...)
	}
	return sv, nil
}

// load returns a freshly allocated value of the original Go type.
func (sv storedValue) load() any {
	if sv.Array {
		switch sv.Kind {
		case KindBool:
			return append(make([]bool, 0, len(sv.Bools)), sv.Bools...)
		case KindInt8:
			return narrow[int8](sv.Ints)
		case KindInt16:
			return narrow[int16](sv.Ints)
		case KindInt32:
			return narrow[int32](sv.Ints)
		case KindInt64:
			return narrow[int64](sv.Ints)
		case KindFloat32:
			out := make([]float32, len(sv.Floats))
			for i, f := range sv.Floats {
				out[i] = float32(f)
			}
			return out
		case KindFloat64:
			return append(make([]float64, 0, len(sv.Floats)), sv.Floats...)
		case KindChar:
			return narrow[Char](sv.Ints)
		case KindString:
			return append(make([]string, 0, len(sv.Strs)), sv.Strs...)
		}
		return nil
	}
	switch sv.Kind {
	case KindBool:
		return first(sv.Bools)
	case KindInt8:
		return int8(first(sv.Ints))
	case KindInt16:
		return int16(first(sv.Ints))
	case KindInt32:
		return int32(first(sv.Ints))
	case KindInt64:
		return first(sv.Ints)
	case KindFloat32:
		return float32(first(sv.Floats))
	case KindFloat64:
		return first(sv.Floats)
	case KindChar:
		return Char(first(sv.Ints))
	case KindString:
		return first(sv.Strs)
	}
	return nil
}

func first[T any](s []T) T {
	var zero T
	if len(s) == 0 {
		return zero
	}
	return s[0]
}

// text renders the value the way index queries see it.
func (sv storedValue) text() string {
	v := sv.load()
	if !sv.Array {
		return formatScalar(v)
	}
	var buf strings.Builder
	buf.WriteByte('[')
	n := sv.len()
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(formatScalar(sv.at(i)))
	}
	buf.WriteByte(']')
	return buf.String()
}

func (sv storedValue) len() int {
	return len(sv.Bools) + len(sv.Ints) + len(sv.Floats) + len(sv.Strs)
}

func (sv storedValue) at(i int) any {
	return storedValue{Kind: sv.Kind, Bools: slice1(sv.Bools, i), Ints: slice1(sv.Ints, i), Floats: slice1(sv.Floats, i), Strs: slice1(sv.Strs, i)}.load()
}

func slice1[T any](s []T, i int) []T {
	if i >= len(s) {
		return nil
	}
	return s[i : i+1]
}

func formatScalar(v any) string {
	switch v := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatFloat(v, 'f', 1, 64)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

type record struct {
	Labels []string               `msgpack:"l,omitempty"`
	Type   string                 `msgpack:"t,omitempty"`
	Start  uint64                 `msgpack:"s,omitempty"`
	End    uint64                 `msgpack:"e,omitempty"`
	Props  map[string]storedValue `msgpack:"p,omitempty"`
}

type indexMeta struct {
	Kind   EntityKind  `msgpack:"k"`
	Config [][2]string `msgpack:"c,omitempty"`
}

func encode(v any) []byte {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using MsgPack: %w", v, err))
	}
	return buf.Bytes()
}

func decode(data []byte, ptr any) error {
	dec := msgpack.GetDecoder()
	dec.Reset(bytes.NewReader(data))
	err := dec.Decode(ptr)
	msgpack.PutDecoder(dec)
	if err != nil {
		return fmt.Errorf("failed to decode msgpack into %T: %w (%x)", ptr, err, data)
	}
	return nil
}

func encodeValue(sv storedValue) []byte {
	return encode(&sv)
}

func decodeValue(data []byte) (storedValue, error) {
	var sv storedValue
	err := decode(data, &sv)
	return sv, err
}
