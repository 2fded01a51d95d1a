package suggest

import (
	"fmt"

	"LevRecon/internal/domain/models"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Synthesizer derives a recommended tier schedule from street records.
type Synthesizer struct {
	policy models.Policy

	levMax, levStep, defaultLev decimal.Decimal
	topMarkup, midMarkup        decimal.Decimal
	alphaTop, alphaMid, floor   decimal.Decimal
	topSafety, midCap           decimal.Decimal
}

// New validates policy and returns a synthesizer bound to it.
func New(policy models.Policy) (*Synthesizer, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("synthesizer: %w", err)
	}
	return &Synthesizer{
		policy:     policy,
		levMax:     decimal.NewFromFloat(policy.LevMax),
		levStep:    decimal.NewFromFloat(policy.LevStep),
		defaultLev: decimal.NewFromFloat(policy.DefaultLeverage),
		topMarkup:  decimal.NewFromFloat(policy.TopLeverageMarkup),
		midMarkup:  decimal.NewFromFloat(policy.MidLeverageMarkup),
		alphaTop:   decimal.NewFromFloat(policy.AlphaTop),
		alphaMid:   decimal.NewFromFloat(policy.AlphaMid),
		floor:      decimal.NewFromFloat(policy.Floor),
		topSafety:  decimal.NewFromFloat(policy.TopMMRSafety),
		midCap:     decimal.NewFromFloat(policy.MidMMRCap),
	}, nil
}

// Policy returns the policy the synthesizer was built with.
func (s *Synthesizer) Policy() models.Policy { return s.policy }

// Synthesize returns one suggested tier per record, in record order. The
// record with the largest threshold is the topmost tier.
func (s *Synthesizer) Synthesize(symbol string, records []models.AggregateRecord) []models.SuggestedTier {
	if len(records) == 0 {
		return nil
	}
	top := 0
	for i, r := range records {
		if r.Threshold > records[top].Threshold {
			top = i
		}
	}
	out := make([]models.SuggestedTier, len(records))
	for i, r := range records {
		out[i] = s.tier(symbol, r, i == top)
	}
	return out
}

func (s *Synthesizer) tier(symbol string, rec models.AggregateRecord, top bool) models.SuggestedTier {
	st := models.SuggestedTier{Symbol: symbol, Threshold: rec.Threshold, Top: top}

	base := s.defaultLev
	if rec.BestLeverage != nil {
		base = decimal.NewFromFloat(rec.BestLeverage.Value)
		st.StreetLeverage = models.Float(rec.BestLeverage.Value)
		st.LeverageSource = rec.BestLeverage.Venue
	} else {
		st.Fallback = true
	}

	markup, alpha, ceilingFactor := s.midMarkup, s.alphaMid, s.midCap
	if top {
		markup, alpha, ceilingFactor = s.topMarkup, s.alphaTop, s.topSafety
	}

	lev := s.roundToIncrement(base.Mul(markup))
	im := one.Div(lev)
	mmr := decimal.Max(s.floor, alpha.Mul(im))
	if rec.BestMMR != nil {
		ceiling := decimal.NewFromFloat(rec.BestMMR.Value).Mul(ceilingFactor)
		mmr = decimal.Min(mmr, ceiling)
		st.StreetMMR = models.Float(rec.BestMMR.Value)
		st.MMRSource = rec.BestMMR.Venue
		st.MMRCeiling = models.Float(ceiling.InexactFloat64())
	}

	st.Leverage = lev.InexactFloat64()
	st.ImpliedMargin = im.InexactFloat64()
	st.MaintenanceMarginRate = mmr.InexactFloat64()
	return st
}

// RoundToIncrement clamps x to [1, LevMax] and rounds it to the nearest
// multiple of LevStep, halves away from zero. The result never exceeds
// LevMax and is never below the smallest positive multiple.
func (s *Synthesizer) RoundToIncrement(x float64) float64 {
	return s.roundToIncrement(decimal.NewFromFloat(x)).InexactFloat64()
}

func (s *Synthesizer) roundToIncrement(x decimal.Decimal) decimal.Decimal {
	if x.LessThan(one) {
		x = one
	}
	if x.GreaterThan(s.levMax) {
		x = s.levMax
	}
	r := x.Div(s.levStep).Round(0).Mul(s.levStep)
	if r.GreaterThan(s.levMax) {
		r = r.Sub(s.levStep)
	}
	if r.LessThan(one) {
		r = s.levStep
	}
	return r
}

// Violation is a pair of adjacent suggested tiers that breaks the expected
// shape: leverage should not rise and margin should not fall as the
// threshold grows.
type Violation struct {
	Field     string  `json:"field"`
	Threshold float64 `json:"threshold"`
	Prev      float64 `json:"prev"`
	Next      float64 `json:"next"`
}

// CheckMonotone reports shape violations across tiers ordered by threshold.
// It does not alter the tiers.
func CheckMonotone(tiers []models.SuggestedTier) []Violation {
	var out []Violation
	for i := 1; i < len(tiers); i++ {
		prev, next := tiers[i-1], tiers[i]
		if next.Threshold <= prev.Threshold {
			continue
		}
		if next.Leverage > prev.Leverage {
			out = append(out, Violation{Field: "leverage", Threshold: next.Threshold, Prev: prev.Leverage, Next: next.Leverage})
		}
		if next.MaintenanceMarginRate < prev.MaintenanceMarginRate {
			out = append(out, Violation{Field: "mmr", Threshold: next.Threshold, Prev: prev.MaintenanceMarginRate, Next: next.MaintenanceMarginRate})
		}
	}
	return out
}
