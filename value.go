package pgraph

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/andreyvit/pgraph/native"
)

// Char is a single character property value.
type Char = native.Char

// Kind is the scalar kind of a property value.
type Kind = native.Kind

const (
	KindBool    = native.KindBool
	KindInt8    = native.KindInt8
	KindInt16   = native.KindInt16
	KindInt32   = native.KindInt32
	KindInt64   = native.KindInt64
	KindFloat32 = native.KindFloat32
	KindFloat64 = native.KindFloat64
	KindChar    = native.KindChar
	KindString  = native.KindString
)

// Value is a property value known to be inside the storable domain: a
// scalar of one Kind, or a homogeneous array of one Kind.
type Value struct {
	kind  Kind
	array bool
	raw   any
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsArray() bool { return v.array }

// Raw returns the value in the form the engine stores.
func (v Value) Raw() any { return v.raw }

func (v Value) String() string {
	if v.array {
		return fmt.Sprintf("[]%v%v", v.kind, v.raw)
	}
	return fmt.Sprintf("%v(%v)", v.kind, v.raw)
}

// ToValue normalizes and validates v. Nothing is written anywhere, so a
// rejected value never reaches the engine.
func ToValue(v any) (Value, error) {
	n, err := NormalizeForStorage(v)
	if err != nil {
		return Value{}, err
	}
	return ValidateDomain(n)
}

// NormalizeForStorage converts values that have an obvious storable form:
// int becomes int64, and collections (slices and arrays of any element
// type, sets represented as map[T]struct{} or map[T]bool) become typed
// arrays. Collections must be homogeneous. Everything else passes through
// for ValidateDomain to judge.
func NormalizeForStorage(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if n, ok := normalizeScalar(v); ok {
		return n, nil
	}
	if _, _, ok := native.KindOf(v); ok {
		return v, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return materialize(v, elems, rv.Type().Elem(), false)
	case reflect.Map:
		switch rv.Type().Elem().Kind() {
		case reflect.Struct:
			if rv.Type().Elem().NumField() != 0 {
				return v, nil
			}
		case reflect.Bool:
		default:
			return v, nil
		}
		var elems []any
		iter := rv.MapRange()
		for iter.Next() {
			if val := iter.Value(); val.Kind() == reflect.Bool && !val.Bool() {
				continue
			}
			elems = append(elems, iter.Key().Interface())
		}
		return materialize(v, elems, rv.Type().Key(), true)
	default:
		return v, nil
	}
}

// normalizeScalar maps Go scalars that have a canonical storable type.
func normalizeScalar(v any) (any, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	default:
		return nil, false
	}
}

// materialize builds a typed array from elems in a single pass, failing on
// the first element whose kind differs from the first one's.
func materialize(orig any, elems []any, elemType reflect.Type, sorted bool) (any, error) {
	if len(elems) == 0 {
		zero := reflect.Zero(elemType)
		if elemType.Kind() == reflect.Interface {
			return nil, &PropertyValueError{Value: orig, Msg: "cannot infer the element kind of an empty collection"}
		}
		n, err := NormalizeForStorage(zero.Interface())
		if err != nil {
			return nil, err
		}
		if _, array, ok := native.KindOf(n); !ok || array {
			return nil, &PropertyValueError{Value: orig, Msg: fmt.Sprintf("unsupported element type %v", elemType)}
		}
		return reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(n)), 0, 0).Interface(), nil
	}

	var first Kind
	var firstType reflect.Type
	norm := make([]any, len(elems))
	for i, e := range elems {
		if e == nil {
			return nil, &PropertyValueError{Value: orig, Msg: fmt.Sprintf("nil element at %d", i)}
		}
		if n, ok := normalizeScalar(e); ok {
			e = n
		}
		kind, array, ok := native.KindOf(e)
		if !ok || array {
			return nil, &PropertyValueError{Value: orig, Msg: fmt.Sprintf("unsupported element type %T at %d", e, i)}
		}
		if i == 0 {
			first, firstType = kind, reflect.TypeOf(e)
		} else if kind != first {
			return nil, &PropertyValueError{Value: orig, Msg: fmt.Sprintf("mixed-type collections unsupported: %v at 0, %v at %d", first, kind, i)}
		}
		norm[i] = e
	}
	if sorted {
		slices.SortFunc(norm, compareScalars)
	}

	out := reflect.MakeSlice(reflect.SliceOf(firstType), len(norm), len(norm))
	for i, e := range norm {
		out.Index(i).Set(reflect.ValueOf(e))
	}
	return out.Interface(), nil
}

// compareScalars orders scalars of the same kind.
func compareScalars(a, b any) int {
	switch a := a.(type) {
	case bool:
		bb := b.(bool)
		switch {
		case a == bb:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case int8:
		return cmp.Compare(a, b.(int8))
	case int16:
		return cmp.Compare(a, b.(int16))
	case int32:
		return cmp.Compare(a, b.(int32))
	case int64:
		return cmp.Compare(a, b.(int64))
	case float32:
		return cmp.Compare(a, b.(float32))
	case float64:
		return cmp.Compare(a, b.(float64))
	case Char:
		return cmp.Compare(a, b.(Char))
	case string:
		return cmp.Compare(a, b.(string))
	default:
		return 0
	}
}

// ValidateDomain confirms that v is a storable scalar or array.
func ValidateDomain(v any) (Value, error) {
	if v == nil {
		return Value{}, &PropertyValueError{Value: v, Msg: "nil is not a property value"}
	}
	kind, array, ok := native.KindOf(v)
	if !ok {
		return Value{}, &PropertyValueError{Value: v, Msg: fmt.Sprintf("unsupported type %T", v)}
	}
	return Value{kind: kind, array: array, raw: v}, nil
}

// NormalizeForRead turns stored arrays into a freshly allocated []any, so
// callers never share memory with the engine and always see one shape.
// Scalars are returned unchanged.
func NormalizeForRead(raw any) any {
	if raw == nil {
		return nil
	}
	if _, array, ok := native.KindOf(raw); !ok || !array {
		return raw
	}
	rv := reflect.ValueOf(raw)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
