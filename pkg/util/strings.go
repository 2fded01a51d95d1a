package util

import (
	"strings"
	"unicode"
)

// NormalizeSymbol upper-cases s and strips separators: "btc_usdt" -> "BTCUSDT".
func NormalizeSymbol(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PairSymbol joins base and quote unless base already ends with quote.
func PairSymbol(base, quote string) string {
	base = NormalizeSymbol(base)
	quote = NormalizeSymbol(quote)
	if base == "" {
		return ""
	}
	if quote != "" && strings.HasSuffix(base, quote) && len(base) > len(quote) {
		return base
	}
	return base + quote
}
