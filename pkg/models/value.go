package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueKind enumerates the closed set of result cell variants. Driver values
// are converted once at the sandbox boundary so downstream code never handles
// untyped any values.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindTimestamp
	KindJSON
)

// Value is a tagged union of the result cell variants.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Text  string
	Time  time.Time
	JSON  json.RawMessage
}

// Row maps a column name to its value for one result row.
type Row map[string]Value

// ColumnInfo describes a result column with its source type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NullValue returns the null variant.
func NullValue() Value { return Value{Kind: KindNull} }

// BoolValue returns a boolean variant.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IntValue returns an integer variant.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue returns a float variant.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// TextValue returns a text variant.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// TimestampValue returns a timestamp variant.
func TimestampValue(t time.Time) Value { return Value{Kind: KindTimestamp, Time: t} }

// JSONValue returns a raw-json variant.
func JSONValue(raw json.RawMessage) Value { return Value{Kind: KindJSON, JSON: raw} }

// ValueOf converts a driver-provided value into the closed variant set.
// Unrecognized types fall back to their JSON encoding, or to text when the
// value cannot be marshaled.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(x)
	case int:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case uint32:
		return IntValue(int64(x))
	case float32:
		return FloatValue(float64(x))
	case float64:
		return FloatValue(x)
	case string:
		return TextValue(x)
	case []byte:
		return TextValue(string(x))
	case time.Time:
		return TimestampValue(x)
	case json.RawMessage:
		return JSONValue(x)
	case fmt.Stringer:
		return TextValue(x.String())
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return TextValue(fmt.Sprintf("%v", v))
		}
		return JSONValue(raw)
	}
}

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value for display. Floats that carry integral values
// render without a fractional part so aggregates read naturally.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		if v.Float == math.Trunc(v.Float) && math.Abs(v.Float) < 1e15 {
			return strconv.FormatInt(int64(v.Float), 10)
		}
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindTimestamp:
		return v.Time.Format(time.RFC3339)
	case KindJSON:
		return string(v.JSON)
	default:
		return ""
	}
}

// MarshalJSON serializes the underlying variant, not the union wrapper.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindText:
		return json.Marshal(v.Text)
	case KindTimestamp:
		return json.Marshal(v.Time)
	case KindJSON:
		if len(v.JSON) == 0 {
			return []byte("null"), nil
		}
		return v.JSON, nil
	default:
		return []byte("null"), nil
	}
}
