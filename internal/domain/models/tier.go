package models

import (
	"math"
	"sort"
	"strings"
)

// Venue identifies a derivatives venue publishing risk-limit tiers.
type Venue string

const (
	VenueBinance Venue = "binance"
	VenueBybit   Venue = "bybit"
	VenueMEXC    Venue = "mexc"
	VenueWEEX    Venue = "weex"
	VenueSURF    Venue = "surf"
)

// KnownVenues lists every venue with a payload adapter, in display order.
var KnownVenues = []Venue{VenueBinance, VenueWEEX, VenueMEXC, VenueBybit, VenueSURF}

// ParseVenue maps a loosely written venue name ("Binance", " MEXC ") to a Venue.
func ParseVenue(s string) (Venue, bool) {
	v := Venue(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range KnownVenues {
		if k == v {
			return v, true
		}
	}
	return "", false
}

// DisplayName is the label used in rendered tier tables.
func (v Venue) DisplayName() string {
	return strings.ToUpper(string(v))
}

func (v Venue) String() string { return string(v) }

// NormalizedTier is one risk-limit tier. Absent fields are nil, never zero.
type NormalizedTier struct {
	Leverage              float64  `json:"leverage"`
	NotionalCap           *float64 `json:"notional_cap,omitempty"`
	MaintenanceMarginRate *float64 `json:"maintenance_margin_rate,omitempty"`
}

// HasCap reports whether the tier can take part in threshold selection.
func (t NormalizedTier) HasCap() bool { return t.NotionalCap != nil }

// Float returns a pointer to v. Used to build optional tier fields.
func Float(v float64) *float64 { return &v }

// TierSchedule is the ordered tier list of one venue for one symbol.
// It is immutable after construction; Tiers returns a copy.
type TierSchedule struct {
	venue  Venue
	symbol string
	tiers  []NormalizedTier
}

// NewTierSchedule copies and sorts tiers ascending by leverage, ties by
// descending notional cap with absent caps last. Tiers without a positive
// finite leverage are dropped; out of range caps and rates become absent.
func NewTierSchedule(venue Venue, symbol string, tiers []NormalizedTier) TierSchedule {
	cp := make([]NormalizedTier, 0, len(tiers))
	for _, t := range tiers {
		if !finite(t.Leverage) || t.Leverage <= 0 {
			continue
		}
		c := cloneTier(t)
		if c.NotionalCap != nil && (!finite(*c.NotionalCap) || *c.NotionalCap <= 0) {
			c.NotionalCap = nil
		}
		if c.MaintenanceMarginRate != nil && !ValidRate(*c.MaintenanceMarginRate) {
			c.MaintenanceMarginRate = nil
		}
		cp = append(cp, c)
	}
	sort.SliceStable(cp, func(i, j int) bool {
		a, b := cp[i], cp[j]
		if a.Leverage != b.Leverage {
			return a.Leverage < b.Leverage
		}
		switch {
		case a.NotionalCap == nil:
			return false
		case b.NotionalCap == nil:
			return true
		default:
			return *a.NotionalCap > *b.NotionalCap
		}
	})
	return TierSchedule{venue: venue, symbol: symbol, tiers: cp}
}

func (s TierSchedule) Venue() Venue   { return s.venue }
func (s TierSchedule) Symbol() string { return s.symbol }
func (s TierSchedule) Len() int       { return len(s.tiers) }
func (s TierSchedule) IsEmpty() bool  { return len(s.tiers) == 0 }

// Tiers returns a copy of the ordered tiers.
func (s TierSchedule) Tiers() []NormalizedTier {
	out := make([]NormalizedTier, len(s.tiers))
	for i, t := range s.tiers {
		out[i] = cloneTier(t)
	}
	return out
}

// MaxLeverage returns the highest leverage in the schedule, or 0 when empty.
func (s TierSchedule) MaxLeverage() float64 {
	if len(s.tiers) == 0 {
		return 0
	}
	return s.tiers[len(s.tiers)-1].Leverage
}

// ValidRate reports whether r is a usable margin rate in [0, 1).
func ValidRate(r float64) bool {
	return finite(r) && r >= 0 && r < 1
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func cloneTier(t NormalizedTier) NormalizedTier {
	out := NormalizedTier{Leverage: t.Leverage}
	if t.NotionalCap != nil {
		out.NotionalCap = Float(*t.NotionalCap)
	}
	if t.MaintenanceMarginRate != nil {
		out.MaintenanceMarginRate = Float(*t.MaintenanceMarginRate)
	}
	return out
}

// ThresholdPick is the tier a venue offers at a notional threshold.
type ThresholdPick struct {
	Venue                 Venue    `json:"venue"`
	Leverage              float64  `json:"leverage"`
	NotionalCap           float64  `json:"notional_cap"`
	MaintenanceMarginRate *float64 `json:"maintenance_margin_rate,omitempty"`
}
