package tiers

import (
	"LevRecon/internal/domain/models"
)

// Select returns the tier of schedule that applies to a position of notional
// size threshold.
//
// Only tiers with a notional cap take part. When every cap is at least the
// threshold the highest-leverage tier is returned. Otherwise the tier with the
// smallest cap that still covers the threshold is returned, preferring the
// higher leverage when caps tie. When no cap reaches the threshold the venue
// abstains and ok is false.
func Select(schedule models.TierSchedule, threshold float64) (pick models.ThresholdPick, ok bool) {
	var (
		best     models.NormalizedTier
		found    bool
		allCover = true
		capped   bool
	)
	for _, t := range schedule.Tiers() {
		if !t.HasCap() {
			continue
		}
		capped = true
		if *t.NotionalCap < threshold {
			allCover = false
			continue
		}
		if !found || coversBetter(t, best) {
			best, found = t, true
		}
	}
	if !capped || !found {
		return models.ThresholdPick{}, false
	}
	if allCover {
		best = maxLeverage(schedule)
	}
	return models.ThresholdPick{
		Venue:                 schedule.Venue(),
		Leverage:              best.Leverage,
		NotionalCap:           *best.NotionalCap,
		MaintenanceMarginRate: best.MaintenanceMarginRate,
	}, true
}

// coversBetter orders covering candidates: smaller cap first, then higher
// leverage, then lower margin rate.
func coversBetter(a, b models.NormalizedTier) bool {
	if *a.NotionalCap != *b.NotionalCap {
		return *a.NotionalCap < *b.NotionalCap
	}
	if a.Leverage != b.Leverage {
		return a.Leverage > b.Leverage
	}
	return lowerRate(a.MaintenanceMarginRate, b.MaintenanceMarginRate)
}

// maxLeverage returns the capped tier with the highest leverage, ties broken
// by smaller cap then lower margin rate.
func maxLeverage(schedule models.TierSchedule) models.NormalizedTier {
	var (
		best  models.NormalizedTier
		found bool
	)
	for _, t := range schedule.Tiers() {
		if !t.HasCap() {
			continue
		}
		switch {
		case !found, t.Leverage > best.Leverage:
			best, found = t, true
		case t.Leverage == best.Leverage && coversBetter(t, best):
			best = t
		}
	}
	return best
}

func lowerRate(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// SelectAll runs Select for every threshold, keeping absent picks as
// ok == false entries so callers can see which thresholds a venue abstains from.
func SelectAll(schedule models.TierSchedule, thresholds []float64) []Pick {
	out := make([]Pick, len(thresholds))
	for i, s := range thresholds {
		p, ok := Select(schedule, s)
		out[i] = Pick{Threshold: s, Pick: p, OK: ok}
	}
	return out
}

// Pick pairs a threshold with its selection result.
type Pick struct {
	Threshold float64
	Pick      models.ThresholdPick
	OK        bool
}
