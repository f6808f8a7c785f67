package utils

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseInt64(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int64
	}{
		{nil, 7},
		{"42", 42},
		{" 3 ", 3},
		{"abc", 7},
		{12, 12},
		{9.9, 9},
		{json.Number("15"), 15},
	}
	for _, tt := range tests {
		if got := ParseInt64(tt.in, 7); got != tt.want {
			t.Errorf("ParseInt64(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	if v, ok := ParseBool("True"); !ok || !v {
		t.Error("True should parse as true")
	}
	if v, ok := ParseBool("0"); !ok || v {
		t.Error("0 should parse as false")
	}
	if _, ok := ParseBool("maybe"); ok {
		t.Error("maybe should not parse")
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-03-05")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDay = %v", d)
	}
	if _, err := ParseDay("05/03/2024"); err == nil {
		t.Error("expected error for non ISO date")
	}
	if got := StartOfDay(time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)); !got.Equal(d) {
		t.Errorf("StartOfDay = %v", got)
	}
}
