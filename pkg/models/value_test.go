package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{name: "nil", in: nil, want: NullValue()},
		{name: "bool", in: true, want: BoolValue(true)},
		{name: "int", in: 42, want: IntValue(42)},
		{name: "int32", in: int32(7), want: IntValue(7)},
		{name: "int64", in: int64(1500), want: IntValue(1500)},
		{name: "float64", in: 3.5, want: FloatValue(3.5)},
		{name: "string", in: "hello", want: TextValue("hello")},
		{name: "bytes", in: []byte("raw"), want: TextValue("raw")},
		{name: "time", in: ts, want: TimestampValue(ts)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValueOf(tt.in))
		})
	}
}

func TestValueOfStringer(t *testing.T) {
	id := uuid.MustParse("a2ce2098-77f0-4435-8c43-68a8fc0dbf0b")
	v := ValueOf(id)
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, id.String(), v.Text)
}

func TestValueOfUnknownTypeFallsBackToJSON(t *testing.T) {
	v := ValueOf(map[string]any{"a": 1})
	require.Equal(t, KindJSON, v.Kind)
	assert.JSONEq(t, `{"a":1}`, string(v.JSON))
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "null", v: NullValue(), want: "NULL"},
		{name: "bool", v: BoolValue(false), want: "false"},
		{name: "int", v: IntValue(42), want: "42"},
		{name: "integral float renders without fraction", v: FloatValue(42), want: "42"},
		{name: "fractional float", v: FloatValue(3.25), want: "3.25"},
		{name: "text", v: TextValue("abc"), want: "abc"},
		{name: "timestamp", v: TimestampValue(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)), want: "2025-01-02T03:04:05Z"},
		{name: "json", v: JSONValue(json.RawMessage(`{"k":1}`)), want: `{"k":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValueMarshalJSON(t *testing.T) {
	row := Row{
		"id":      IntValue(1),
		"name":    TextValue("ada"),
		"active":  BoolValue(true),
		"score":   FloatValue(9.5),
		"deleted": NullValue(),
		"meta":    JSONValue(json.RawMessage(`{"tags":["x"]}`)),
	}

	raw, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"ada","active":true,"score":9.5,"deleted":null,"meta":{"tags":["x"]}}`, string(raw))
}
