package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Tags used by the persisted JSON form of a Value.
const (
	tagNull   = "null"
	tagBool   = "bool"
	tagInt    = "int"
	tagFloat  = "float"
	tagString = "str"
	tagList   = "list"
)

// wire is the tagged JSON envelope: {"t":"<tag>","v":<payload>}.
type wire struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

// MarshalJSON encodes v in the tagged form used by snapshots and the WAL.
// Floats are carried as strings so NaN and infinities survive. Strings that
// are not valid UTF-8 are rejected since JSON cannot carry them exactly.
func (v Value) MarshalJSON() ([]byte, error) {
	var w wire
	var err error
	switch v.kind {
	case KindNull:
		w.T = tagNull
	case KindBool:
		w.T = tagBool
		w.V = json.RawMessage(strconv.FormatBool(v.b))
	case KindInt:
		w.T = tagInt
		w.V = json.RawMessage(strconv.FormatInt(v.i, 10))
	case KindFloat:
		w.T = tagFloat
		w.V, err = json.Marshal(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		if !utf8.ValidString(v.s) {
			return nil, fmt.Errorf("marshal string value: invalid UTF-8 %q", v.s)
		}
		w.T = tagString
		w.V, err = json.Marshal(v.s)
	case KindList:
		w.T = tagList
		elems := v.list
		if elems == nil {
			elems = []Value{}
		}
		w.V, err = json.Marshal(elems)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %d", v.kind)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", v.kind, err)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode value envelope: %w", err)
	}
	if w.T != tagNull && (len(w.V) == 0 || bytes.Equal(w.V, []byte("null"))) {
		return fmt.Errorf("decode %s value: missing payload", w.T)
	}

	switch w.T {
	case tagNull:
		*v = Null()
	case tagBool:
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return fmt.Errorf("decode bool value: %w", err)
		}
		*v = Bool(b)
	case tagInt:
		i, err := strconv.ParseInt(string(w.V), 10, 64)
		if err != nil {
			return fmt.Errorf("decode int value: %w", err)
		}
		*v = Int(i)
	case tagFloat:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return fmt.Errorf("decode float value: %w", err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("decode float value: %w", err)
		}
		*v = Float(f)
	case tagString:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return fmt.Errorf("decode string value: %w", err)
		}
		*v = String(s)
	case tagList:
		var raw []json.RawMessage
		if err := json.Unmarshal(w.V, &raw); err != nil {
			return fmt.Errorf("decode list value: %w", err)
		}
		elems := make([]Value, len(raw))
		for i, r := range raw {
			if err := elems[i].UnmarshalJSON(r); err != nil {
				return fmt.Errorf("list element %d: %w", i, err)
			}
		}
		*v = Value{kind: KindList, list: elems}
	default:
		return fmt.Errorf("decode value: unknown tag %q", w.T)
	}
	return nil
}

// Encode returns the tagged JSON encoding of v.
func Encode(v Value) ([]byte, error) {
	return v.MarshalJSON()
}

// Decode parses the tagged JSON encoding produced by Encode.
func Decode(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}
