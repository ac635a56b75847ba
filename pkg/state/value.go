package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JaimeStill/agentflow/pkg/formatting"
)

var jsonNull = json.RawMessage("null")

// Value is a single typed state value. The zero Value is an empty string.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	raw  json.RawMessage
}

// String creates a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int creates an int value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Float creates a float value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// JSON creates a json value from an encoded document. An empty document is stored as null.
func JSON(raw json.RawMessage) Value {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = jsonNull
	}
	return Value{kind: KindJSON, raw: append(json.RawMessage(nil), raw...)}
}

// Zero returns the default value for a kind.
func Zero(k Kind) Value {
	switch k {
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindJSON:
		return JSON(jsonNull)
	default:
		return String("")
	}
}

// Parse coerces text into a value of the declared kind.
// JSON text may be wrapped in a markdown code fence.
func Parse(k Kind, text string) (Value, error) {
	switch k {
	case KindString:
		return String(text), nil
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an int", ErrTypeMismatch, text)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || !finite(f) {
			return Value{}, fmt.Errorf("%w: %q is not a finite float", ErrTypeMismatch, text)
		}
		return Float(f), nil
	case KindJSON:
		raw, err := formatting.Parse[json.RawMessage](text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		return JSON(raw), nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

// Decode reads a JSON-encoded value of the declared kind.
func Decode(k Kind, raw json.RawMessage) (Value, error) {
	switch k {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("%w: expected string", ErrTypeMismatch)
		}
		return String(s), nil
	case KindInt:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return Value{}, fmt.Errorf("%w: expected int", ErrTypeMismatch)
		}
		return Int(i), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil || !finite(f) {
			return Value{}, fmt.Errorf("%w: expected finite float", ErrTypeMismatch)
		}
		return Float(f), nil
	case KindJSON:
		if !json.Valid(raw) {
			return Value{}, fmt.Errorf("%w: invalid json", ErrTypeMismatch)
		}
		return JSON(raw), nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
}

// finite reports whether f can be encoded as JSON.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Kind returns the value's kind.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindString
	}
	return v.kind
}

// Text renders the value as the text a prompt or model call receives.
func (v Value) Text() string {
	switch v.Kind() {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindJSON:
		return string(v.raw)
	default:
		return v.str
	}
}

// Int64 returns the int payload and whether the value is an int.
func (v Value) Int64() (int64, bool) {
	return v.i, v.Kind() == KindInt
}

// Float64 returns the float payload and whether the value is a float.
func (v Value) Float64() (float64, bool) {
	return v.f, v.Kind() == KindFloat
}

// Raw returns the json payload and whether the value is json.
func (v Value) Raw() (json.RawMessage, bool) {
	return v.raw, v.Kind() == KindJSON
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindJSON:
		return bytes.Equal(v.raw, o.raw)
	default:
		return v.str == o.str
	}
}

// MarshalJSON encodes the payload without kind information.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindJSON:
		return v.raw, nil
	default:
		return json.Marshal(v.str)
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.Kind(), v.Text())
}
