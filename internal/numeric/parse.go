// Package numeric parses locale-ambiguous numeric strings and centralizes
// money rounding so the validator and generators agree on 2-decimal output.
package numeric

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalCommaPattern matches a comma followed by 1-2 digits at the very end,
// the shape of a European decimal separator ("100,5", "1.234,56").
var decimalCommaPattern = regexp.MustCompile(`,\d{1,2}$`)

// ParseNumber converts a raw extraction value into a float64.
//
// Numeric input passes through unchanged. Nil, empty, arrays, and anything
// unparseable return NaN; the caller decides what an unparseable value means
// for its field, never this function.
//
// Locale disambiguation scans for the last-occurring '.' and ',':
//   - both present, ',' after the last '.': ',' is the decimal separator and
//     every '.' is a thousands separator ("1.234.567,89" -> 1234567.89)
//   - both present, '.' after the last ',': ',' groups thousands
//     ("1,234,567.89" -> 1234567.89)
//   - only ',': decimal when followed by exactly 1-2 trailing digits,
//     thousands separator otherwise
//   - only '.': standard decimal. A thousands-grouped European integer like
//     "1.234" is therefore read as 1.234, not 1234; resolving that
//     ambiguity needs currency-precision context the parser does not have.
func ParseNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return math.NaN()
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		return parseString(v)
	default:
		// Arrays and objects have no scalar meaning here. A provider
		// emitting [19, 7] for a mixed-rate document is signalling
		// "not representable at this granularity", not an error.
		return math.NaN()
	}
}

func parseString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// European: dots group thousands, comma is decimal.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Anglo: commas group thousands.
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if decimalCommaPattern.MatchString(s) && strings.Count(s, ",") == 1 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ParseOptional is ParseNumber for fields where absence is meaningful:
// it returns (0, false) instead of NaN for missing or unparseable input.
func ParseOptional(value any) (float64, bool) {
	f := ParseNumber(value)
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
