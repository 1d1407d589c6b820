package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the type of a Value.
type Kind uint8

// Possible value kinds
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON-like tagged value: null, bool, number, string, array or
// object. The zero Value is null.
//
// Values are treated as immutable. Set returns a modified copy and never
// touches the receiver, so a Value can be shared between goroutines.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Number returns a numeric value. The literal is kept as is so that large
// integers and decimals survive a round trip without float conversion.
// Returns ErrInvalidFormat when n is not a JSON number literal.
func Number(n json.Number) (Value, error) {
	if !numberPattern.MatchString(string(n)) {
		return Value{}, fmt.Errorf("%w: invalid number literal %q", ErrInvalidFormat, string(n))
	}
	return Value{kind: KindNumber, n: n}, nil
}

// Float returns a numeric value for a finite float.
// NaN and infinities have no JSON form and return ErrInvalidFormat.
func Float(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite number %v", ErrInvalidFormat, f)
	}
	return Value{kind: KindNumber, n: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}, nil
}

// Int returns a numeric value for an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, n: json.Number(strconv.FormatInt(i, 10))}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Array returns an array value holding a copy of items.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: slices.Clone(items)}
}

// Object returns an object value holding a copy of fields.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	maps.Copy(obj, fields)
	return Value{kind: KindObject, obj: obj}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean and true if the value is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the string and true if the value is a string.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsNumber returns the number literal and true if the value is a number.
func (v Value) AsNumber() (json.Number, bool) {
	return v.n, v.kind == KindNumber
}

// Len returns the number of elements of an array or fields of an object,
// and 0 for every other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Index returns the i-th element of an array. It returns null when the
// value is not an array or i is out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Field returns the named field of an object.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Keys returns the field names of an object in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return slices.Sorted(maps.Keys(v.obj))
}

// Get walks the given object keys and returns the value found at the end.
// An empty path returns the value itself.
func (v Value) Get(path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		next, ok := cur.Field(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Set returns a copy of v with the value at path replaced by nv. Missing
// intermediate objects are created; a null receiver is treated as an empty
// object. It fails with ErrPathConflict when a node along the path exists
// and is not an object.
func (v Value) Set(path []string, nv Value) (Value, error) {
	if len(path) == 0 {
		return Value{}, ErrEmptyPath
	}
	out, err := v.set(path, nv)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s", err, strings.Join(path, "."))
	}
	return out, nil
}

func (v Value) set(path []string, nv Value) (Value, error) {
	var fields map[string]Value
	switch v.kind {
	case KindObject:
		fields = v.obj
	case KindNull:
	default:
		return Value{}, ErrPathConflict
	}

	out := make(map[string]Value, len(fields)+1)
	maps.Copy(out, fields)

	head := path[0]
	if len(path) == 1 {
		out[head] = nv
		return Value{kind: KindObject, obj: out}, nil
	}

	child, err := fields[head].set(path[1:], nv)
	if err != nil {
		return Value{}, err
	}
	out[head] = child
	return Value{kind: KindObject, obj: out}, nil
}

// Equal reports whether two values are structurally equal. Numbers compare
// by their literal text.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		return slices.EqualFunc(v.arr, other.arr, Value.Equal)
	case KindObject:
		return maps.EqualFunc(v.obj, other.obj, Value.Equal)
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler. Object keys are written in sorted
// order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindNumber:
		if v.n == "" {
			return []byte("0"), nil
		}
		return []byte(v.n), nil
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidFormat, v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue decodes a single JSON value. Numbers are kept as literals.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidFormat)
	}
	return FromAny(raw)
}

// FromAny converts a decoded JSON tree (as produced by encoding/json) or a
// Go literal built from the same types into a Value. Integer and float Go
// types are accepted as numbers.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t)
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Float(t)
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			iv, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, iv)
		}
		return Value{kind: KindArray, arr: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for key, item := range t {
			iv, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", key, err)
			}
			fields[key] = iv
		}
		return Value{kind: KindObject, obj: fields}, nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidFormat, raw)
	}
}
