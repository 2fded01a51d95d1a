package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"LevRecon/internal/domain/models"

	"github.com/shopspring/decimal"
)

var numRe = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?`)

var hundred = decimal.NewFromInt(100)

// ParseNumber extracts the first number from v. Strings are scanned for the
// first numeric token after thousands separators are removed, so "25X",
// "1,000,000 USDT" and " 0.5 " all parse. nil and blank strings are absent;
// anything without a number is malformed.
func ParseNumber(v any) (float64, models.FieldState) {
	d, st := parseDecimal(v)
	if st != models.FieldPresent {
		return 0, st
	}
	f, _ := d.Float64()
	return f, models.FieldPresent
}

func parseDecimal(v any) (decimal.Decimal, models.FieldState) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, models.FieldAbsent
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, models.FieldMalformed
		}
		return decimal.NewFromFloat(x), models.FieldPresent
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Zero, models.FieldMalformed
		}
		return decimal.NewFromFloat32(x), models.FieldPresent
	case int:
		return decimal.NewFromInt(int64(x)), models.FieldPresent
	case int64:
		return decimal.NewFromInt(x), models.FieldPresent
	case json.Number:
		if d, err := decimal.NewFromString(string(x)); err == nil {
			return d, models.FieldPresent
		}
		return scanDecimal(string(x))
	case string:
		return scanDecimal(x)
	default:
		return decimal.Zero, models.FieldMalformed
	}
}

func scanDecimal(s string) (decimal.Decimal, models.FieldState) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" || strings.EqualFold(s, "null") {
		return decimal.Zero, models.FieldAbsent
	}
	tok := numRe.FindString(s)
	if tok == "" {
		return decimal.Zero, models.FieldMalformed
	}
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Zero, models.FieldMalformed
	}
	return d, models.FieldPresent
}

// ParseLeverage reads a leverage multiple such as 25, "25", "25x" or "25 X".
// Non-positive values are malformed.
func ParseLeverage(v any) (float64, models.FieldState) {
	f, st := ParseNumber(v)
	if st != models.FieldPresent {
		return 0, st
	}
	if f <= 0 {
		return 0, models.FieldMalformed
	}
	return f, models.FieldPresent
}

// ParseRate reads a margin rate given either as a fraction (0.005) or as a
// percentage string ("0.50%"). The result must fall in [0, 1).
func ParseRate(v any) (float64, models.FieldState) {
	d, st := parseDecimal(v)
	if st != models.FieldPresent {
		return 0, st
	}
	if s, ok := v.(string); ok && strings.HasSuffix(strings.TrimSpace(s), "%") {
		d = d.Div(hundred)
	}
	f, _ := d.Float64()
	if !models.ValidRate(f) {
		return 0, models.FieldMalformed
	}
	return f, models.FieldPresent
}

// ParseCap reads a notional cap. Ranges written "lower~upper" yield the
// upper bound. Non-positive caps are malformed.
func ParseCap(v any) (float64, models.FieldState) {
	if s, ok := v.(string); ok {
		if i := strings.LastIndex(s, "~"); i >= 0 {
			v = s[i+1:]
		}
	}
	f, st := ParseNumber(v)
	if st != models.FieldPresent {
		return 0, st
	}
	if f <= 0 {
		return 0, models.FieldMalformed
	}
	return f, models.FieldPresent
}

// ContractNotional converts a contract count into quote notional.
func ContractNotional(count, contractSize, price float64) float64 {
	n := decimal.NewFromFloat(count).
		Mul(decimal.NewFromFloat(contractSize)).
		Mul(decimal.NewFromFloat(price))
	f, _ := n.Float64()
	return f
}
