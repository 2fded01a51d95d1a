package aggregate

import (
	"sort"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/services/tiers"

	"github.com/shopspring/decimal"
)

// Aggregator reconciles the schedules of the participating venues of one
// symbol. The reference venue is never a participant.
type Aggregator struct {
	participants []models.Venue
	precision    int32
}

// New returns an aggregator over participants, in tie-break order.
// precision is the number of decimals used to group leverage values.
func New(participants []models.Venue, precision int) *Aggregator {
	p := make([]models.Venue, len(participants))
	copy(p, participants)
	return &Aggregator{participants: p, precision: int32(precision)}
}

// Participants returns the participating venues in tie-break order.
func (a *Aggregator) Participants() []models.Venue {
	out := make([]models.Venue, len(a.participants))
	copy(out, a.participants)
	return out
}

// Street returns the best leverage and the lowest margin rate offered at
// threshold, each with the venue that offered it. Equal values keep the
// venue listed first.
func (a *Aggregator) Street(symbol string, schedules map[models.Venue]models.TierSchedule, threshold float64) models.AggregateRecord {
	rec := models.AggregateRecord{Symbol: symbol, Threshold: threshold}
	for _, v := range a.participants {
		s, ok := schedules[v]
		if !ok {
			continue
		}
		pick, ok := tiers.Select(s, threshold)
		if !ok {
			continue
		}
		if rec.BestLeverage == nil || pick.Leverage > rec.BestLeverage.Value {
			rec.BestLeverage = &models.Sourced{Value: pick.Leverage, Venue: v}
		}
		if r := pick.MaintenanceMarginRate; r != nil && (rec.BestMMR == nil || *r < rec.BestMMR.Value) {
			rec.BestMMR = &models.Sourced{Value: *r, Venue: v}
		}
	}
	return rec
}

// Thresholds returns one street record per threshold, in the given order.
// A threshold no venue covers yields a record with nothing set.
func (a *Aggregator) Thresholds(symbol string, schedules map[models.Venue]models.TierSchedule, thresholds []float64) []models.AggregateRecord {
	out := make([]models.AggregateRecord, len(thresholds))
	for i, th := range thresholds {
		out[i] = a.Street(symbol, schedules, th)
	}
	return out
}

// Union merges every tier of the participating venues, grouping leverage
// values equal at the configured precision, and keeps the largest cap and the
// lowest margin rate of each group. Records are ascending by leverage.
func (a *Aggregator) Union(symbol string, schedules map[models.Venue]models.TierSchedule) []models.UnionRecord {
	groups := make(map[string]*models.UnionRecord)
	for _, v := range a.participants {
		s, ok := schedules[v]
		if !ok {
			continue
		}
		for _, t := range s.Tiers() {
			lev := decimal.NewFromFloat(t.Leverage).Round(a.precision)
			key := lev.String()
			rec, ok := groups[key]
			if !ok {
				f, _ := lev.Float64()
				rec = &models.UnionRecord{Symbol: symbol, Leverage: f}
				groups[key] = rec
			}
			if c := t.NotionalCap; c != nil && (rec.MaxNotionalCap == nil || *c > rec.MaxNotionalCap.Value) {
				rec.MaxNotionalCap = &models.Sourced{Value: *c, Venue: v}
			}
			if r := t.MaintenanceMarginRate; r != nil && (rec.MinMMR == nil || *r < rec.MinMMR.Value) {
				rec.MinMMR = &models.Sourced{Value: *r, Venue: v}
			}
		}
	}

	out := make([]models.UnionRecord, 0, len(groups))
	for _, rec := range groups {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Leverage < out[j].Leverage })
	return out
}

// Abstaining lists participants with no usable schedule for the symbol.
func (a *Aggregator) Abstaining(schedules map[models.Venue]models.TierSchedule) []models.Venue {
	var out []models.Venue
	for _, v := range a.participants {
		if s, ok := schedules[v]; !ok || s.IsEmpty() {
			out = append(out, v)
		}
	}
	return out
}
