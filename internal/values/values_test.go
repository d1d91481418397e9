package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"$1,234.56", 1234.56, true},
		{"(12.34)", -12.34, true},
		{"-5.00", -5.00, true},
		{"$(1,000.00)", -1000.00, true},
		{" 25.99 ", 25.99, true},
		{"-$3.10", -3.10, true},
		{"0.00", 0, true},
		{"abc", 0, false},
		{"", 0, false},
		{"$", 0, false},
		{"--5", 0, false},
		{"12.3.4", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCurrency(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseCurrency(%q) ok: got %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("ParseCurrency(%q): got %f, want %f", tt.input, got, tt.expected)
			}
			if math.IsNaN(got) {
				t.Errorf("ParseCurrency(%q) leaked NaN", tt.input)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"01/05/2024", "2024-01-05", true},
		{"2024-06-01", "2024-06-01", true},
		{"Jan 5, 2024", "2024-01-05", true},
		{"January 15, 2024", "2024-01-15", true},
		{"Sep. 7 2025", "2025-09-07", true},
		{"1/5/2024", "2024-01-05", true},
		{"02/31/2024", "", false},
		{"13/01/2024", "", false},
		{"Foo 5, 2024", "", false},
		{"not a date", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDateTime(t *testing.T) {
	got, ok := ParseDateTime("07/10/2024")
	assert.True(t, ok)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, 7, int(got.Month()))
	assert.Equal(t, 10, got.Day())
}

func TestParseCompactDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"25SEP07PHIDAL", "2025-09-07", true},
		{"24NOV05", "2024-11-05", true},
		{"25feb30", "", false},
		{"PHIDAL", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCompactDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"10", 10, true},
		{"1,200", 1200, true},
		{"(3)", -3, true},
		{"-7", -7, true},
		{"1.5", 0, false},
		{"ten", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInteger(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"$0.45", 0.45, true},
		{"0.62", 0.62, true},
		{"45¢", 0.45, true},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}
