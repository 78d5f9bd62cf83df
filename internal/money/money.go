// Package money normalizes the free-text currency and hour fields that arrive
// from generators and editors into numbers, and formats them back for display.
package money

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// Parse converts a number or a string such as "$1,234", "12h" or "1 200.50"
// into a float. Every character outside 0-9, '.' and '-' is discarded and the
// longest leading numeric prefix is read. Empty or unparseable input yields NaN.
func Parse(v any) float64 {
	switch value := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int32:
		return float64(value)
	case int64:
		return float64(value)
	case uint:
		return float64(value)
	case uint32:
		return float64(value)
	case uint64:
		return float64(value)
	case json.Number:
		return ParseString(value.String())
	case string:
		return ParseString(value)
	default:
		return math.NaN()
	}
}

// ParseString is Parse for string input.
func ParseString(raw string) float64 {
	cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(raw), "")
	match := leadingNumber.FindString(cleaned)
	if match == "" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}

// OrZero maps NaN to zero so malformed values contribute nothing to sums.
func OrZero(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// Round rounds half toward positive infinity, matching how displayed totals
// have always been rounded.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Format renders x as whole dollars with thousands separators, e.g. "$1,235".
// The sign follows the currency symbol: "$-1,234".
func Format(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "$0"
	}
	return "$" + humanize.Comma(int64(Round(x)))
}

// FormatCents is Format for amounts that may carry cents. Whole amounts render
// exactly as Format does; anything else keeps two decimals ("$99.99").
func FormatCents(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "$0"
	}
	cents := int64(math.Round(x * 100))
	if cents%100 == 0 {
		return "$" + humanize.Comma(cents/100)
	}
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("$%s%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// FormatHours renders hours with the shortest exact decimal form ("30", "12.5").
func FormatHours(h float64) string {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return "0"
	}
	return strconv.FormatFloat(h, 'f', -1, 64)
}
