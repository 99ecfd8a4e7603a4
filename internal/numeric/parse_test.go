package numeric_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/einvoice-engine/internal/numeric"
)

func TestParseNumber_PassThrough(t *testing.T) {
	assert.Equal(t, 1234.56, numeric.ParseNumber(1234.56))
	assert.Equal(t, float64(42), numeric.ParseNumber(42))
	assert.Equal(t, float64(42), numeric.ParseNumber(int64(42)))
}

func TestParseNumber_EuropeanFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"thousands with decimal comma", "1.234.567,89", 1234567.89},
		{"single group with decimal comma", "1.234,56", 1234.56},
		{"decimal comma only", "100,50", 100.5},
		{"decimal comma one digit", "100,5", 100.5},
		{"comma thousands separator", "1,234", 1234},
		{"multiple comma groups", "1,234,567", 1234567},
		{"anglo thousands with decimal point", "1,234,567.89", 1234567.89},
		{"plain decimal point", "1234.56", 1234.56},
		{"integer", "2000", 2000},
		{"whitespace padded", "  1.234,56  ", 1234.56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, numeric.ParseNumber(tt.input), 1e-9)
		})
	}
}

func TestParseNumber_LoneDotHeuristic(t *testing.T) {
	// "1.234" is ambiguous between 1234 and 1.234; the parser reads a lone
	// dot as a decimal separator and accepts the misread for grouped
	// European integers. Documented limitation, not a bug to fix here.
	assert.InDelta(t, 1.234, numeric.ParseNumber("1.234"), 1e-9)
}

func TestParseNumber_Unparseable(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"whitespace only", "   "},
		{"non-numeric", "N/A"},
		{"array value", []any{19.0, 7.0}},
		{"object value", map[string]any{"rate": 19}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, math.IsNaN(numeric.ParseNumber(tt.input)),
				"expected NaN for %v", tt.input)
		})
	}
}

func TestParseOptional(t *testing.T) {
	v, ok := numeric.ParseOptional("19")
	assert.True(t, ok)
	assert.Equal(t, 19.0, v)

	_, ok = numeric.ParseOptional([]any{19.0, 7.0})
	assert.False(t, ok)

	_, ok = numeric.ParseOptional(nil)
	assert.False(t, ok)
}
