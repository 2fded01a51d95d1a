package suggest

import (
	"testing"

	"LevRecon/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSynth(t *testing.T, mutate func(*models.Policy)) *Synthesizer {
	t.Helper()
	p := models.DefaultPolicy()
	if mutate != nil {
		mutate(&p)
	}
	s, err := New(p)
	require.NoError(t, err)
	return s
}

func record(th, lev float64, levVenue models.Venue, mmr float64, mmrVenue models.Venue) models.AggregateRecord {
	return models.AggregateRecord{
		Symbol:       "BTCUSDT",
		Threshold:    th,
		BestLeverage: &models.Sourced{Value: lev, Venue: levVenue},
		BestMMR:      &models.Sourced{Value: mmr, Venue: mmrVenue},
	}
}

func TestSynthesizeTopTier(t *testing.T) {
	s := newSynth(t, nil)
	out := s.Synthesize("BTCUSDT", []models.AggregateRecord{
		record(1_000_000, 50, models.VenueBybit, 0.01, models.VenueBinance),
	})
	require.Len(t, out, 1)

	got := out[0]
	assert.True(t, got.Top)
	assert.False(t, got.Fallback)
	assert.Equal(t, 55.0, got.Leverage)
	assert.InDelta(t, 1.0/55, got.ImpliedMargin, 1e-12)
	assert.InDelta(t, 0.4/55, got.MaintenanceMarginRate, 1e-9)
	require.NotNil(t, got.MMRCeiling)
	assert.InDelta(t, 0.009, *got.MMRCeiling, 1e-12)
	assert.Equal(t, models.VenueBybit, got.LeverageSource)
	assert.Equal(t, models.VenueBinance, got.MMRSource)
	assert.Equal(t, 50.0, *got.StreetLeverage)
	assert.Equal(t, 0.01, *got.StreetMMR)
}

func TestSynthesizeMidTiersAndCeiling(t *testing.T) {
	s := newSynth(t, nil)
	out := s.Synthesize("BTCUSDT", []models.AggregateRecord{
		record(50_000, 125, models.VenueBinance, 0.002, models.VenueBybit),
		record(200_000, 100, models.VenueBinance, 0.005, models.VenueBinance),
		record(500_000, 75, models.VenueBybit, 0.006, models.VenueBybit),
	})
	require.Len(t, out, 3)

	assert.False(t, out[0].Top)
	// 125 * 0.9 = 112.5 rounds half away to 115.
	assert.Equal(t, 115.0, out[0].Leverage)
	// 0.5/115 exceeds the 0.002 street rate, so the ceiling wins.
	assert.InDelta(t, 0.002, out[0].MaintenanceMarginRate, 1e-12)

	assert.Equal(t, 90.0, out[1].Leverage)
	assert.InDelta(t, 0.005, out[1].MaintenanceMarginRate, 1e-12)

	assert.True(t, out[2].Top)
	// 75 * 1.1 = 82.5 rounds to 85.
	assert.Equal(t, 85.0, out[2].Leverage)
	assert.InDelta(t, 0.4/85, out[2].MaintenanceMarginRate, 1e-9)
}

func TestSynthesizeFallback(t *testing.T) {
	s := newSynth(t, nil)
	out := s.Synthesize("NEWUSDT", []models.AggregateRecord{
		{Symbol: "NEWUSDT", Threshold: 20_000},
		{Symbol: "NEWUSDT", Threshold: 100_000},
	})
	require.Len(t, out, 2)

	mid := out[0]
	assert.True(t, mid.Fallback)
	assert.Equal(t, 10.0, mid.Leverage, "10 * 0.9 rounds back to 10")
	assert.InDelta(t, 0.05, mid.MaintenanceMarginRate, 1e-12)
	assert.Nil(t, mid.MMRCeiling)
	assert.Nil(t, mid.StreetLeverage)
	assert.Equal(t, models.Venue(""), mid.LeverageSource)

	top := out[1]
	assert.True(t, top.Top)
	assert.True(t, top.Fallback)
	assert.Equal(t, 10.0, top.Leverage, "10 * 1.1 rounds back to 10")
	assert.InDelta(t, 0.04, top.MaintenanceMarginRate, 1e-12)
}

func TestSynthesizeFloor(t *testing.T) {
	s := newSynth(t, func(p *models.Policy) { p.Floor = 0.01 })
	out := s.Synthesize("BTCUSDT", []models.AggregateRecord{
		{Symbol: "BTCUSDT", Threshold: 1_000_000, BestLeverage: &models.Sourced{Value: 100, Venue: models.VenueBinance}},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 110.0, out[0].Leverage)
	assert.InDelta(t, 0.01, out[0].MaintenanceMarginRate, 1e-12)
}

func TestSynthesizeCeilingAppliedAfterFloor(t *testing.T) {
	s := newSynth(t, func(p *models.Policy) { p.Floor = 0.01 })
	out := s.Synthesize("BTCUSDT", []models.AggregateRecord{
		record(1_000_000, 100, models.VenueBinance, 0.005, models.VenueBybit),
	})
	require.Len(t, out, 1)
	assert.InDelta(t, 0.0045, out[0].MaintenanceMarginRate, 1e-12)
}

func TestSynthesizeTopIsLargestThreshold(t *testing.T) {
	s := newSynth(t, nil)
	out := s.Synthesize("BTCUSDT", []models.AggregateRecord{
		record(500_000, 50, models.VenueBinance, 0.01, models.VenueBinance),
		record(50_000, 100, models.VenueBinance, 0.005, models.VenueBinance),
	})
	assert.True(t, out[0].Top)
	assert.False(t, out[1].Top)
}

func TestSynthesizeEmpty(t *testing.T) {
	s := newSynth(t, nil)
	assert.Nil(t, s.Synthesize("BTCUSDT", nil))
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	p := models.DefaultPolicy()
	p.LevStep = 0
	_, err := New(p)
	assert.Error(t, err)
}

func TestRoundToIncrement(t *testing.T) {
	s := newSynth(t, nil)
	tests := []struct {
		in, want float64
	}{
		{55, 55},
		{52.4, 50},
		{52.5, 55},
		{112.5, 115},
		{124, 125},
		{500, 125},
		{0.2, 5},
		{-10, 5},
		{2.4, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.RoundToIncrement(tt.in), "in=%v", tt.in)
	}

	odd := newSynth(t, func(p *models.Policy) { p.LevMax = 123 })
	assert.Equal(t, 120.0, odd.RoundToIncrement(123), "never above the cap")

	fine := newSynth(t, func(p *models.Policy) { p.LevStep = 0.5 })
	assert.Equal(t, 12.5, fine.RoundToIncrement(12.3))
	assert.Equal(t, 1.0, fine.RoundToIncrement(0.1))
}

func TestCheckMonotone(t *testing.T) {
	tiers := []models.SuggestedTier{
		{Threshold: 50_000, Leverage: 100, MaintenanceMarginRate: 0.005},
		{Threshold: 200_000, Leverage: 110, MaintenanceMarginRate: 0.004},
		{Threshold: 500_000, Leverage: 50, MaintenanceMarginRate: 0.01},
	}
	got := CheckMonotone(tiers)
	require.Len(t, got, 2)
	assert.Equal(t, "leverage", got[0].Field)
	assert.Equal(t, 200_000.0, got[0].Threshold)
	assert.Equal(t, "mmr", got[1].Field)

	assert.Empty(t, CheckMonotone(tiers[1:]))
	assert.Equal(t, 110.0, tiers[1].Leverage)
}
