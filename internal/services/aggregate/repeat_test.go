package aggregate

import (
	"encoding/json"
	"testing"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/services/normalize"
	"LevRecon/internal/services/tiers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repeatEnvelopes = []struct {
	venue string
	tiers []string
}{
	{"binance", []string{
		`{"maxOpenPosLeverage":125,"bracketNotionalCap":5e4,"bracketMaintenanceMarginRate":0.004}`,
		`{"maxOpenPosLeverage":"100","bracketNotionalCap":"600,000","bracketMaintenanceMarginRate":"0.005"}`,
		`{"maxOpenPosLeverage":"n/a","bracketNotionalCap":3000000,"bracketMaintenanceMarginRate":0.01}`,
		`{"maxOpenPosLeverage":50,"bracketNotionalCap":3000000,"bracketMaintenanceMarginRate":0.01}`,
	}},
	{"bybit", []string{
		`{"maximumLever":"100.00","storingLocationValue":"2000000","maintenanceMarginRate":"0.005"}`,
		`{"maximumLever":"50.00","storingLocationValue":"4000000","maintenanceMarginRate":"0.01"}`,
	}},
	{"weex", []string{
		`{"range":"0~50,000","mlev":"100x","mmr":"0.40%"}`,
		`{"range":"50,000~200,000","mlev":"100x","mmr":"0.45%"}`,
		`{"range":"","mlev":"10x","mmr":"oops"}`,
	}},
}

type pipelineResult struct {
	schedules  map[models.Venue]models.TierSchedule
	reports    map[models.Venue]*models.NormalizeReport
	picks      map[models.Venue][]tiers.Pick
	street     []models.AggregateRecord
	union      []models.UnionRecord
	abstaining []models.Venue
}

func runPipeline(t *testing.T, thresholds []float64) pipelineResult {
	t.Helper()
	reg := normalize.NewRegistry(nil)
	res := pipelineResult{
		schedules: make(map[models.Venue]models.TierSchedule),
		reports:   make(map[models.Venue]*models.NormalizeReport),
		picks:     make(map[models.Venue][]tiers.Pick),
	}
	for _, e := range repeatEnvelopes {
		env := models.TierEnvelope{Venue: e.venue, Symbol: "btc-usdt"}
		for _, raw := range e.tiers {
			env.Tiers = append(env.Tiers, json.RawMessage(raw))
		}
		s, rep, err := reg.Normalize(env)
		require.NoError(t, err)
		res.schedules[s.Venue()] = s
		res.reports[s.Venue()] = rep
		res.picks[s.Venue()] = tiers.SelectAll(s, thresholds)
	}

	a := New(participants, 4)
	res.street = a.Thresholds("BTCUSDT", res.schedules, thresholds)
	res.union = a.Union("BTCUSDT", res.schedules)
	res.abstaining = a.Abstaining(res.schedules)
	return res
}

func TestPipelineRepeatsIdentically(t *testing.T) {
	thresholds := []float64{20_000, 50_000, 200_000, 1_000_000, 5_000_000}

	first := runPipeline(t, thresholds)
	second := runPipeline(t, thresholds)

	require.Len(t, first.schedules, 3)
	assert.Equal(t, first.schedules, second.schedules)
	assert.Equal(t, first.reports, second.reports)
	assert.Equal(t, first.picks, second.picks)
	assert.Equal(t, first.street, second.street)
	assert.Equal(t, first.union, second.union)
	assert.Equal(t, first.abstaining, second.abstaining)

	// Repeating a run over its own output changes nothing either.
	again := New(participants, 4).Union("BTCUSDT", second.schedules)
	assert.Equal(t, first.union, again)

	require.Len(t, first.street, len(thresholds))
	require.NotNil(t, first.street[0].BestLeverage)
	assert.Equal(t, 125.0, first.street[0].BestLeverage.Value)
	assert.Equal(t, models.VenueBinance, first.street[0].BestLeverage.Venue)
}
