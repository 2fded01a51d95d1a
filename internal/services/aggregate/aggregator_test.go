package aggregate

import (
	"testing"

	"LevRecon/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tier(lev, cap, mmr float64) models.NormalizedTier {
	return models.NormalizedTier{Leverage: lev, NotionalCap: models.Float(cap), MaintenanceMarginRate: models.Float(mmr)}
}

var participants = []models.Venue{models.VenueBinance, models.VenueWEEX, models.VenueMEXC, models.VenueBybit}

func schedules() map[models.Venue]models.TierSchedule {
	return map[models.Venue]models.TierSchedule{
		models.VenueBinance: models.NewTierSchedule(models.VenueBinance, "BTCUSDT", []models.NormalizedTier{
			tier(125, 50_000, 0.004),
			tier(100, 250_000, 0.005),
			tier(50, 1_000_000, 0.01),
		}),
		models.VenueBybit: models.NewTierSchedule(models.VenueBybit, "BTCUSDT", []models.NormalizedTier{
			tier(100, 200_000, 0.0035),
			tier(75, 500_000, 0.006),
			tier(25, 2_000_000, 0.02),
		}),
		models.VenueWEEX: models.NewTierSchedule(models.VenueWEEX, "BTCUSDT", nil),
		models.VenueSURF: models.NewTierSchedule(models.VenueSURF, "BTCUSDT", []models.NormalizedTier{
			tier(200, 10_000_000, 0.001),
		}),
	}
}

func TestStreetIndependentProvenance(t *testing.T) {
	a := New(participants, 4)

	rec := a.Street("BTCUSDT", schedules(), 200_000)
	require.NotNil(t, rec.BestLeverage)
	require.NotNil(t, rec.BestMMR)
	assert.Equal(t, 100.0, rec.BestLeverage.Value)
	assert.Equal(t, models.VenueBinance, rec.BestLeverage.Venue, "equal leverage keeps first participant")
	assert.Equal(t, 0.0035, rec.BestMMR.Value)
	assert.Equal(t, models.VenueBybit, rec.BestMMR.Venue)

	rec = a.Street("BTCUSDT", schedules(), 50_000)
	assert.Equal(t, 125.0, rec.BestLeverage.Value)
	assert.Equal(t, models.VenueBinance, rec.BestLeverage.Venue)
	assert.Equal(t, 0.0035, rec.BestMMR.Value)
	assert.Equal(t, models.VenueBybit, rec.BestMMR.Venue)
}

func TestStreetExcludesReferenceVenue(t *testing.T) {
	a := New(participants, 4)
	rec := a.Street("BTCUSDT", schedules(), 1_000_000)
	assert.Equal(t, 50.0, rec.BestLeverage.Value)
	assert.NotEqual(t, models.VenueSURF, rec.BestLeverage.Venue)
	assert.NotEqual(t, models.VenueSURF, rec.BestMMR.Venue)
}

func TestStreetUncoveredThreshold(t *testing.T) {
	a := New(participants, 4)
	rec := a.Street("BTCUSDT", schedules(), 5_000_000)
	assert.False(t, rec.Covered())
	assert.Nil(t, rec.BestLeverage)
	assert.Nil(t, rec.BestMMR)
	assert.Equal(t, 5_000_000.0, rec.Threshold)
}

func TestStreetTieBreakFollowsParticipantOrder(t *testing.T) {
	reversed := New([]models.Venue{models.VenueBybit, models.VenueBinance}, 4)
	rec := reversed.Street("BTCUSDT", schedules(), 200_000)
	assert.Equal(t, models.VenueBybit, rec.BestLeverage.Venue)
}

func TestThresholdsKeepOrder(t *testing.T) {
	a := New(participants, 4)
	recs := a.Thresholds("BTCUSDT", schedules(), []float64{50_000, 200_000, 500_000, 1_000_000, 5_000_000})
	require.Len(t, recs, 5)
	assert.Equal(t, 125.0, recs[0].BestLeverage.Value)
	assert.Equal(t, 100.0, recs[1].BestLeverage.Value)
	assert.Equal(t, 75.0, recs[2].BestLeverage.Value)
	assert.Equal(t, models.VenueBybit, recs[2].BestLeverage.Venue)
	assert.Equal(t, 50.0, recs[3].BestLeverage.Value)
	assert.False(t, recs[4].Covered())
}

func TestUnionGroupsNearlyEqualLeverage(t *testing.T) {
	a := New(participants, 4)
	scheds := map[models.Venue]models.TierSchedule{
		models.VenueBinance: models.NewTierSchedule(models.VenueBinance, "ETHUSDT", []models.NormalizedTier{
			tier(20.0, 1_000_000, 0.02),
			tier(50, 200_000, 0.01),
		}),
		models.VenueMEXC: models.NewTierSchedule(models.VenueMEXC, "ETHUSDT", []models.NormalizedTier{
			tier(19.999999, 1_500_000, 0.025),
			{Leverage: 50, MaintenanceMarginRate: models.Float(0.008)},
		}),
	}

	recs := a.Union("ETHUSDT", scheds)
	require.Len(t, recs, 2)

	assert.Equal(t, 20.0, recs[0].Leverage)
	assert.Equal(t, 1_500_000.0, recs[0].MaxNotionalCap.Value)
	assert.Equal(t, models.VenueMEXC, recs[0].MaxNotionalCap.Venue)
	assert.Equal(t, 0.02, recs[0].MinMMR.Value)
	assert.Equal(t, models.VenueBinance, recs[0].MinMMR.Venue)

	assert.Equal(t, 50.0, recs[1].Leverage)
	assert.Equal(t, 200_000.0, recs[1].MaxNotionalCap.Value)
	assert.Equal(t, 0.008, recs[1].MinMMR.Value)
	assert.Equal(t, models.VenueMEXC, recs[1].MinMMR.Venue)
}

func TestUnionAllCapsAbsent(t *testing.T) {
	a := New(participants, 4)
	scheds := map[models.Venue]models.TierSchedule{
		models.VenueWEEX: models.NewTierSchedule(models.VenueWEEX, "XUSDT", []models.NormalizedTier{{Leverage: 10}}),
	}
	recs := a.Union("XUSDT", scheds)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].MaxNotionalCap)
	assert.Nil(t, recs[0].MinMMR)
}

func TestUnionIgnoresReferenceVenue(t *testing.T) {
	a := New(participants, 4)
	for _, rec := range a.Union("BTCUSDT", schedules()) {
		assert.NotEqual(t, 200.0, rec.Leverage)
	}
}

func TestAbstaining(t *testing.T) {
	a := New(participants, 4)
	assert.Equal(t, []models.Venue{models.VenueWEEX, models.VenueMEXC}, a.Abstaining(schedules()))
}
