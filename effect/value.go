package effect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/sdsl/sema"
)

// Kind is the type of a parameter value.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
)

// Value is an effect parameter value.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// Bool returns a bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String returns a string value, used for shader names.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// ParseValue interprets text as written in a manifest or on the command
// line: true/false, an integer, a float, or else a string.
func ParseValue(text string) Value {
	switch text {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	num, neg := strings.CutPrefix(text, "-")
	if _, ok := sema.LiteralType(num); ok {
		if i, err := sema.ParseInt(num); err == nil {
			if neg {
				i = -i
			}
			return Int(i)
		}
		if f, err := sema.ParseFloat(num); err == nil {
			if neg {
				f = -f
			}
			return Float(f)
		}
	}
	return String(strings.Trim(text, `"`))
}

// Truth reports whether v counts as true in a condition.
func (v Value) Truth() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	default:
		return v.Str != ""
	}
}

func (v Value) float() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindBool:
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Float
}

// String renders v as SDSL source, the form used for macro values.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return v.Str
	}
}

// Equal compares values, numerically across int and float.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindString || o.Kind == KindString {
		return v.Kind == o.Kind && v.Str == o.Str
	}
	if v.Kind == KindBool && o.Kind == KindBool {
		return v.Bool == o.Bool
	}
	return v.float() == o.float()
}

// Params holds parameter values keyed by "Block.Name".
type Params map[string]Value

// ParseParams converts textual parameters, as found in manifests, into
// values.
func ParseParams(raw map[string]string) (Params, error) {
	out := make(Params, len(raw))
	for k, v := range raw {
		if !strings.Contains(k, ".") {
			return nil, fmt.Errorf("parameter %q: expected Block.Name", k)
		}
		out[k] = ParseValue(v)
	}
	return out, nil
}
