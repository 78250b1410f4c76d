package frontmatter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a single frontmatter value. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func (v Value) Kind() Kind { return v.kind }

// Float64 returns the numeric value for Int and Float kinds.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Int64 returns the value for the Int kind only.
func (v Value) Int64() (int64, bool) {
	return v.i, v.kind == KindInt
}

// Bool returns the value for the Bool kind only.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// String renders the canonical text form written into a frontmatter line.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}

// MarshalJSON emits the native JSON type for the value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(v.String())
		}
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.s)
	}
}

// formatFloat uses plain decimal notation for everyday magnitudes and
// exponent notation outside them. Both forms parse back to the same float64.
func formatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-4 && abs < 1e16 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Coerce turns a raw frontmatter value into a typed Value: numeric first,
// then boolean, otherwise the trimmed string.
func Coerce(raw string) Value {
	raw = strings.TrimSpace(raw)
	if f, ok := parseNumber(raw); ok {
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return Int(int64(f))
		}
		return Float(f)
	}
	switch strings.ToLower(raw) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return String(raw)
}

// parseNumber accepts finite decimal numbers only. Hex literals, underscores
// and the nan/inf spellings stay strings.
func parseNumber(raw string) (float64, bool) {
	if raw == "" || strings.ContainsAny(raw, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
