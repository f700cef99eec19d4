package vm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Kind int

const (
	KindInteger Kind = iota
	KindDouble
	KindString
	KindBoolean
	KindArray
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindBoolean:
		return "BOOLEAN"
	case KindArray:
		return "ARRAY"
	case KindRecord:
		return "RECORD"
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// Value is a dynamically typed cell. Clone returns a copy that shares no
// mutable state with the receiver.
type Value interface {
	Kind() Kind
	Clone() Value
	AsBool() bool
	String() string
}

type IntValue int64

func (IntValue) Kind() Kind       { return KindInteger }
func (i IntValue) Clone() Value   { return i }
func (i IntValue) AsBool() bool   { return i != 0 }
func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }

type FloatValue float64

func (FloatValue) Kind() Kind     { return KindDouble }
func (f FloatValue) Clone() Value { return f }
func (f FloatValue) AsBool() bool { return f != 0 }
func (f FloatValue) String() string {
	if math.Trunc(float64(f)) == float64(f) && math.Abs(float64(f)) < 1e15 {
		return strconv.FormatFloat(float64(f), 'f', 1, 64)
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

type StrValue string

func (StrValue) Kind() Kind       { return KindString }
func (s StrValue) Clone() Value   { return s }
func (s StrValue) AsBool() bool   { return s != "" }
func (s StrValue) String() string { return string(s) }

type BoolValue bool

var (
	BoolTrue  = BoolValue(true)
	BoolFalse = BoolValue(false)
)

func (BoolValue) Kind() Kind     { return KindBoolean }
func (b BoolValue) Clone() Value { return b }
func (b BoolValue) AsBool() bool { return bool(b) }
func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}

type ArrayValue []Value

func (ArrayValue) Kind() Kind { return KindArray }

func (a ArrayValue) Clone() Value {
	out := make(ArrayValue, len(a))
	for i, v := range a {
		out[i] = v.Clone()
	}
	return out
}

func (a ArrayValue) AsBool() bool { return len(a) != 0 }

func (a ArrayValue) String() string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = quoted(v)
	}
	return "[ " + strings.Join(parts, ", ") + " ]"
}

// RecordValue is a BASIC record: named fields holding values.
type RecordValue map[string]Value

func (RecordValue) Kind() Kind { return KindRecord }

func (r RecordValue) Clone() Value {
	out := make(RecordValue, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

func (r RecordValue) AsBool() bool { return len(r) != 0 }

func (r RecordValue) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + quoted(r[k])
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func quoted(v Value) string {
	if s, ok := v.(StrValue); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}

// Equal compares two values after numeric promotion.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Compare orders two values. Numbers (and booleans) compare numerically,
// strings lexically. ok is false when the kinds are not comparable.
func Compare(a, b Value) (int, bool) {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() == KindInteger && b.Kind() == KindInteger {
			x, y := a.(IntValue), b.(IntValue)
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if sa, ok := a.(StrValue); ok {
		if sb, ok := b.(StrValue); ok {
			return strings.Compare(string(sa), string(sb)), true
		}
	}
	if aa, ok := a.(ArrayValue); ok {
		if ab, ok := b.(ArrayValue); ok {
			if len(aa) != len(ab) {
				return len(aa) - len(ab), true
			}
			for i := range aa {
				c, ok := Compare(aa[i], ab[i])
				if !ok || c != 0 {
					return c, ok
				}
			}
			return 0, true
		}
	}
	return 0, false
}

func isNumeric(v Value) bool {
	switch v.Kind() {
	case KindInteger, KindDouble, KindBoolean:
		return true
	}
	return false
}

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case IntValue:
		return float64(x)
	case FloatValue:
		return float64(x)
	case BoolValue:
		if x {
			return 1
		}
	}
	return 0
}
