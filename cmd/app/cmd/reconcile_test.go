package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"LevRecon/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
  "universe": {"ranked": ["BTC", "USDT"], "tradable": ["BTCUSDT", "DOGEUSDT"]},
  "envelopes": [
    {"venue": "binance", "symbol": "BTCUSDT", "tiers": [
      {"bracket":1,"initialLeverage":125,"notionalCap":50000,"maintMarginRatio":0.004},
      {"bracket":2,"initialLeverage":100,"notionalCap":600000,"maintMarginRatio":0.005},
      {"bracket":3,"initialLeverage":50,"notionalCap":3000000,"maintMarginRatio":0.01}
    ]},
    {"venue": "bybit", "symbol": "BTCUSDT", "tiers": [
      {"id":1,"maximumLever":"100.00","storingLocationValue":"2000000","maintenanceMarginRate":"0.005"}
    ]},
    {"venue": "okx", "symbol": "BTCUSDT", "tiers": []}
  ]
}`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rcFormat, rcOut, rcSymbol, cfgPath = "json", "", "", ""
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(p, []byte(snapshotJSON), 0o644))
	return p
}

func TestReconcileCommandJSON(t *testing.T) {
	out := runCLI(t, "reconcile", "--file", writeSnapshot(t))

	var got struct {
		Summary models.RunSummary     `json:"summary"`
		Reports []models.SymbolReport `json:"reports"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Summary.Symbols, "DOGEUSDT has no data")
	require.Len(t, got.Reports, 1)

	rep := got.Reports[0]
	assert.Equal(t, "BTCUSDT", rep.Symbol)
	assert.Equal(t, "major", rep.Group)
	require.Len(t, rep.Suggested, 4)
	assert.Equal(t, 115.0, rep.Suggested[0].Leverage)
	assert.Equal(t, models.VenueBinance, rep.Suggested[0].LeverageSource)
}

func TestReconcileCommandTable(t *testing.T) {
	out := runCLI(t, "reconcile", "--file", writeSnapshot(t), "--format", "table", "--symbol", "btc_usdt")

	assert.Contains(t, out, "BTCUSDT (major)")
	assert.Contains(t, out, "BINANCE")
	assert.Contains(t, out, "115X")
	assert.True(t, strings.Contains(out, "50,000"))
}
