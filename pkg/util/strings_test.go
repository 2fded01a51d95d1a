package util

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"btc_usdt":  "BTCUSDT",
		" ETH-USDT": "ETHUSDT",
		"SOL/USDT":  "SOLUSDT",
		"":          "",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Fatalf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPairSymbol(t *testing.T) {
	if got := PairSymbol("btc", "USDT"); got != "BTCUSDT" {
		t.Fatalf("unexpected %q", got)
	}
	if got := PairSymbol("BTCUSDT", "USDT"); got != "BTCUSDT" {
		t.Fatalf("unexpected %q", got)
	}
	if got := PairSymbol("USDT", "USDT"); got != "USDTUSDT" {
		t.Fatalf("unexpected %q", got)
	}
	if got := PairSymbol("", "USDT"); got != "" {
		t.Fatalf("unexpected %q", got)
	}
}
