// Package table provides the in-memory tabular model shared by the key
// builder, reconcilers, merge engine and derived metrics.
package table

import (
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "missing"
	}
}

// Value is a single cell: either Missing or a present string, int, float or bool.
// The zero Value is Missing. Values are comparable.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// Missing returns the missing marker. It is distinct from "" and 0.
func Missing() Value { return Value{} }

// String returns a present string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns a present integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a present float value. NaN is treated as Missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{kind: KindFloat, f: f}
}

// Bool returns a present boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Str returns the string payload. ok is false unless v holds a string.
func (v Value) Str() (s string, ok bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// BoolVal returns the boolean payload. ok is false unless v holds a bool.
func (v Value) BoolVal() (b bool, ok bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// IntVal returns the integer payload. Integral floats are accepted.
func (v Value) IntVal() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Number returns the numeric payload of an int or float value.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// IsNumeric reports whether v holds an int or a float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String renders the payload as text. Missing renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Any converts v to a plain Go value for drivers and encoders. Missing is nil.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// MatchKey returns the canonical encoding used for joins and duplicate
// detection. Integral floats encode like the matching int, so 1 and 1.0 are equal.
func (v Value) MatchKey() string {
	switch v.kind {
	case KindString:
		return "s:" + v.s
	case KindInt:
		return "n:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		if i, ok := v.IntVal(); ok {
			return "n:" + strconv.FormatInt(i, 10)
		}
		return "n:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	default:
		return "m:"
	}
}

// Equal reports whether two values match under MatchKey semantics.
func (v Value) Equal(o Value) bool {
	return v.MatchKey() == o.MatchKey()
}

// Of converts a plain Go value into a Value. Unsupported types become Missing.
func Of(x any) Value {
	switch t := x.(type) {
	case nil:
		return Missing()
	case Value:
		return t
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case bool:
		return Bool(t)
	default:
		return Missing()
	}
}
