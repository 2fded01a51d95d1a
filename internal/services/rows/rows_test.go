package rows

import (
	"testing"

	"LevRecon/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatters(t *testing.T) {
	assert.Equal(t, "25X", Leverage(25))
	assert.Equal(t, "12.5X", Leverage(12.5))
	assert.Equal(t, "0.50%", Rate(0.005))
	assert.Equal(t, "2.50%", Rate(0.025))
	assert.Equal(t, "1,000,000", Position(1_000_000))
	assert.Equal(t, "50,000", Position(50_000))
	assert.Equal(t, "1,234.50", Position(1234.5))
	assert.Equal(t, "1.82", IMPercent(55))
	assert.Equal(t, "10.00", IMPercent(10))
	assert.Equal(t, "", IMPercent(0))
}

func TestForVenue(t *testing.T) {
	vt := models.VenueTiers{Venue: models.VenueMEXC, Tiers: []models.NormalizedTier{
		{Leverage: 20, NotionalCap: models.Float(1_000_000), MaintenanceMarginRate: models.Float(0.01)},
		{Leverage: 50},
	}}
	got := ForVenue(vt)
	require.Len(t, got, 2)
	assert.Equal(t, "MEXC", got[0].Venue)
	assert.Equal(t, "20X", got[0].Leverage)
	assert.Equal(t, 1_000_000.0, *got[0].NotionalCap)
	assert.Equal(t, "1.00%", got[0].MMR)

	assert.Equal(t, "", got[1].Venue)
	assert.Nil(t, got[1].NotionalCap)
	assert.Equal(t, []any{"", "50X", "", ""}, got[1].Tuple())
	assert.Len(t, got[0].Tuple(), 4)
}

func TestForVenueEmpty(t *testing.T) {
	got := ForVenue(models.VenueTiers{Venue: models.VenueWEEX})
	require.Len(t, got, 1)
	assert.Equal(t, []any{"WEEX", "", "", ""}, got[0].Tuple())
}

func TestForReportPutsReferenceLast(t *testing.T) {
	r := &models.SymbolReport{
		Venues: []models.VenueTiers{
			{Venue: models.VenueBinance, Tiers: []models.NormalizedTier{{Leverage: 125}}},
			{Venue: models.VenueWEEX},
		},
		Reference: &models.VenueTiers{Venue: models.VenueSURF, Tiers: []models.NormalizedTier{{Leverage: 100}}},
	}
	got := ForReport(r)
	require.Len(t, got, 3)
	assert.Equal(t, "BINANCE", got[0].Venue)
	assert.Equal(t, "WEEX", got[1].Venue)
	assert.Equal(t, "SURF", got[2].Venue)
}

func TestSuggested(t *testing.T) {
	got := Suggested([]models.SuggestedTier{
		{Threshold: 1_000_000, Leverage: 55, MaintenanceMarginRate: 0.4 / 55, LeverageSource: models.VenueBybit, MMRSource: models.VenueBinance},
		{Threshold: 20_000, Leverage: 10, MaintenanceMarginRate: 0.05, Fallback: true},
	})
	require.Len(t, got, 2)
	assert.Equal(t, []any{"1,000,000", "55X", "BYBIT", "0.73%", "BINANCE", "1.82"}, got[0].Tuple())
	assert.Equal(t, "", got[1].LeverageSource)
	assert.Equal(t, "5.00%", got[1].MMR)
}

func TestStreet(t *testing.T) {
	got := Street([]models.AggregateRecord{
		{Threshold: 50_000, BestLeverage: &models.Sourced{Value: 125, Venue: models.VenueBinance}, BestMMR: &models.Sourced{Value: 0.004, Venue: models.VenueBybit}},
		{Threshold: 5_000_000},
	})
	require.Len(t, got, 2)
	assert.Equal(t, []any{"50,000", "125X", "BINANCE", "0.40%", "BYBIT", "0.80"}, got[0].Tuple())
	assert.Equal(t, []any{"5,000,000", "", "", "", "", ""}, got[1].Tuple())
}
