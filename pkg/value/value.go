// Package value defines the typed values stored in a configuration tree.
//
// A Value is a closed tagged union: exactly one of Null, Bool, Int, Float,
// String or List is active. Values are immutable once constructed; a List
// owns a private copy of its elements.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrTypeMismatch is returned when a value is read as a kind it does not hold.
var ErrTypeMismatch = errors.New("type mismatch")

// Kind identifies the active variant of a Value.
type Kind uint8

// Kind constants. The zero Kind is KindNull.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a configuration value. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a 64-bit integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a 64-bit floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List returns a list holding a copy of elems.
func List(elems ...Value) Value {
	list := make([]Value, len(elems))
	copy(list, elems)
	return Value{kind: KindList, list: list}
}

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("%w: want %s, have %s", ErrTypeMismatch, want, v.kind)
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.b, nil
}

// AsInt returns the integer held by v. Floats are not converted.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, v.mismatch(KindInt)
	}
	return v.i, nil
}

// AsFloat returns the float held by v. Integers are not converted.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, v.mismatch(KindFloat)
	}
	return v.f, nil
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.s, nil
}

// AsList returns a copy of the elements held by v.
func (v Value) AsList() ([]Value, error) {
	if v.kind != KindList {
		return nil, v.mismatch(KindList)
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out, nil
}

// Len returns the number of elements of a list, and 0 for any other kind.
func (v Value) Len() int {
	if v.kind != KindList {
		return 0
	}
	return len(v.list)
}

// Index returns the i-th element of a list.
func (v Value) Index(i int) (Value, error) {
	if v.kind != KindList {
		return Value{}, v.mismatch(KindList)
	}
	if i < 0 || i >= len(v.list) {
		return Value{}, fmt.Errorf("index %d out of range [0,%d)", i, len(v.list))
	}
	return v.list[i], nil
}

// ValidUTF8 reports whether every string in v, including strings nested in
// lists, is valid UTF-8. Only such values survive persistence unchanged.
func (v Value) ValidUTF8() bool {
	switch v.kind {
	case KindString:
		return utf8.ValidString(v.s)
	case KindList:
		for _, e := range v.list {
			if !e.ValidUTF8() {
				return false
			}
		}
	}
	return true
}

// Equal reports whether a and b are structurally equal. Int and Float never
// compare equal to each other; floats compare by bit pattern.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return math.Float64bits(a.f) == math.Float64bits(b.f)
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal reports whether v and other are structurally equal.
func (v Value) Equal(other Value) bool { return Equal(v, other) }

// String renders v as a ConfigXQL literal.
func (v Value) String() string {
	var sb strings.Builder
	v.writeLiteral(&sb)
	return sb.String()
}

func (v Value) writeLiteral(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(FormatFloat(v.f))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindList:
		sb.WriteByte('[')
		for i, elem := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			elem.writeLiteral(sb)
		}
		sb.WriteByte(']')
	}
}

// FormatFloat formats f so that it always reads back as a float literal:
// integral values keep a trailing ".0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Interface converts v to a plain Go value: nil, bool, int64, float64,
// string or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, elem := range v.list {
			out[i] = elem.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromGo converts a plain Go value to a Value. Integer types map to Int,
// float types to Float and slices to List.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []Value:
		return List(t...), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Value{kind: KindList, list: elems}, nil
	case []string:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = String(e)
		}
		return Value{kind: KindList, list: elems}, nil
	case []int:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = Int(int64(e))
		}
		return Value{kind: KindList, list: elems}, nil
	case []int64:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = Int(e)
		}
		return Value{kind: KindList, list: elems}, nil
	case []float64:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = Float(e)
		}
		return Value{kind: KindList, list: elems}, nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrTypeMismatch, x)
	}
}

// MustFromGo is like FromGo but panics on unsupported input. Intended for
// tests and literals known at compile time.
func MustFromGo(x any) Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}
