package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/bytebasic-dev/bytebasic/status"
)

// Coerce converts v to kind. Numeric kinds and booleans convert freely
// among each other; strings, arrays and records only convert to themselves.
func Coerce(v Value, kind Kind) (Value, error) {
	if v.Kind() == kind {
		return v, nil
	}
	switch kind {
	case KindInteger:
		if isNumeric(v) {
			f := toFloat(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, status.New(status.Math)
			}
			return IntValue(int64(f)), nil
		}
	case KindDouble:
		if isNumeric(v) {
			return FloatValue(toFloat(v)), nil
		}
	case KindBoolean:
		if isNumeric(v) {
			return BoolValue(toFloat(v) != 0), nil
		}
	}
	return nil, status.New(status.InvalidCvt, v.String(), kind.String())
}

// ParseValue turns a text token into the most specific value: integer,
// double, boolean, or string.
func ParseValue(text string) Value {
	t := strings.TrimSpace(text)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return FloatValue(f)
	}
	switch strings.ToUpper(t) {
	case "TRUE":
		return BoolTrue
	case "FALSE":
		return BoolFalse
	}
	return StrValue(text)
}
