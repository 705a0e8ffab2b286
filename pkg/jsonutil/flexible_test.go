package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"hello"`, "hello"},
		{"number", `42`, "42"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleIntValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"integer", `50`, 50},
		{"float", `50.0`, 50},
		{"numeric string", `"50"`, 50},
		{"padded numeric string", `" 50 "`, 50},
		{"non-numeric string", `"fifty"`, 0},
		{"null", `null`, 0},
		{"empty", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleIntValue(json.RawMessage(tt.raw)))
		})
	}
}
