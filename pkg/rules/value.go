package rules

import (
	"encoding/json"
	"strings"
)

// Kind is the type tag of a comparable Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a condition or profile value reduced to the closed set of types
// rules can compare.
type Value struct {
	kind Kind
	str  string
	num  float64
	bit  bool
}

// ValueOf converts a Go value into a Value. The second result is false for
// types outside the comparable set (maps, slices, structs).
func ValueOf(v any) (Value, bool) {
	switch x := v.(type) {
	case nil:
		return Value{kind: KindNull}, true
	case string:
		return Value{kind: KindString, str: x}, true
	case bool:
		return Value{kind: KindBool, bit: x}, true
	case float64:
		return Value{kind: KindNumber, num: x}, true
	case float32:
		return Value{kind: KindNumber, num: float64(x)}, true
	case int:
		return Value{kind: KindNumber, num: float64(x)}, true
	case int8:
		return Value{kind: KindNumber, num: float64(x)}, true
	case int16:
		return Value{kind: KindNumber, num: float64(x)}, true
	case int32:
		return Value{kind: KindNumber, num: float64(x)}, true
	case int64:
		return Value{kind: KindNumber, num: float64(x)}, true
	case uint:
		return Value{kind: KindNumber, num: float64(x)}, true
	case uint8:
		return Value{kind: KindNumber, num: float64(x)}, true
	case uint16:
		return Value{kind: KindNumber, num: float64(x)}, true
	case uint32:
		return Value{kind: KindNumber, num: float64(x)}, true
	case uint64:
		return Value{kind: KindNumber, num: float64(x)}, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, false
		}

		return Value{kind: KindNumber, num: f}, true
	default:
		return Value{}, false
	}
}

func (v Value) Kind() Kind { return v.kind }

// Equal compares strings case-insensitively and everything else strictly.
// Values of different kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindString:
		return strings.EqualFold(v.str, other.str)
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.bit == other.bit
	default:
		return true
	}
}
