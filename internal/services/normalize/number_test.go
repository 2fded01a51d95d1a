package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"LevRecon/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		want  float64
		state models.FieldState
	}{
		{"float", 25.0, 25, models.FieldPresent},
		{"int", 20, 20, models.FieldPresent},
		{"json number", json.Number("0.004"), 0.004, models.FieldPresent},
		{"json exponent", json.Number("5e4"), 50_000, models.FieldPresent},
		{"json signed exponent", json.Number("1e+16"), 1e16, models.FieldPresent},
		{"json negative exponent", json.Number("4e-3"), 0.004, models.FieldPresent},
		{"string exponent", "1.5E-3", 0.0015, models.FieldPresent},
		{"nan", math.NaN(), 0, models.FieldMalformed},
		{"inf", math.Inf(1), 0, models.FieldMalformed},
		{"float32 inf", float32(math.Inf(-1)), 0, models.FieldMalformed},
		{"suffix", "25X", 25, models.FieldPresent},
		{"thousands", "1,000,000", 1_000_000, models.FieldPresent},
		{"embedded", "max 300000 USDT", 300_000, models.FieldPresent},
		{"nil", nil, 0, models.FieldAbsent},
		{"blank", "  ", 0, models.FieldAbsent},
		{"dash", "-", 0, models.FieldAbsent},
		{"text", "n/a", 0, models.FieldMalformed},
		{"bool", true, 0, models.FieldMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, st := ParseNumber(tt.in)
			assert.Equal(t, tt.state, st)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseLeverage(t *testing.T) {
	for _, in := range []any{25, "25", "25x", "25X", "25 x", json.Number("25")} {
		got, st := ParseLeverage(in)
		assert.Equal(t, models.FieldPresent, st, "input %v", in)
		assert.Equal(t, 25.0, got, "input %v", in)
	}

	_, st := ParseLeverage("0x")
	assert.Equal(t, models.FieldMalformed, st)
	_, st = ParseLeverage("-5")
	assert.Equal(t, models.FieldMalformed, st)
	_, st = ParseLeverage(nil)
	assert.Equal(t, models.FieldAbsent, st)
}

func TestParseRate(t *testing.T) {
	got, st := ParseRate("0.50%")
	assert.Equal(t, models.FieldPresent, st)
	assert.InDelta(t, 0.005, got, 1e-12)

	got, st = ParseRate(0.005)
	assert.Equal(t, models.FieldPresent, st)
	assert.InDelta(t, 0.005, got, 1e-12)

	got, st = ParseRate(json.Number("0"))
	assert.Equal(t, models.FieldPresent, st)
	assert.Equal(t, 0.0, got)

	got, st = ParseRate(json.Number("5e-05"))
	assert.Equal(t, models.FieldPresent, st)
	assert.InDelta(t, 0.00005, got, 1e-15)

	_, st = ParseRate("1.5")
	assert.Equal(t, models.FieldMalformed, st)
	_, st = ParseRate("150%")
	assert.Equal(t, models.FieldMalformed, st)
	_, st = ParseRate(-0.01)
	assert.Equal(t, models.FieldMalformed, st)
}

func TestParseCap(t *testing.T) {
	got, st := ParseCap("0~50,000")
	assert.Equal(t, models.FieldPresent, st)
	assert.Equal(t, 50_000.0, got)

	got, st = ParseCap("50,000~200,000")
	assert.Equal(t, models.FieldPresent, st)
	assert.Equal(t, 200_000.0, got)

	got, st = ParseCap(json.Number("1000000"))
	assert.Equal(t, models.FieldPresent, st)
	assert.Equal(t, 1_000_000.0, got)

	got, st = ParseCap(json.Number("5e4"))
	assert.Equal(t, models.FieldPresent, st)
	assert.Equal(t, 50_000.0, got)

	_, st = ParseCap("0")
	assert.Equal(t, models.FieldMalformed, st)
	_, st = ParseCap("0~")
	assert.Equal(t, models.FieldAbsent, st)
}

func TestContractNotional(t *testing.T) {
	assert.InDelta(t, 6000.0, ContractNotional(1000, 0.0001, 60000), 1e-9)
}
