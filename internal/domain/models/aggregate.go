package models

import "time"

// Sourced is a reconciled value together with the venue that supplied it.
type Sourced struct {
	Value float64 `json:"value"`
	Venue Venue   `json:"venue"`
}

// AggregateRecord is the cross-venue street view at one notional threshold.
// BestLeverage and BestMMR are chosen independently and may come from
// different venues.
type AggregateRecord struct {
	Symbol       string   `json:"symbol"`
	Threshold    float64  `json:"threshold"`
	BestLeverage *Sourced `json:"best_leverage,omitempty"`
	BestMMR      *Sourced `json:"best_mmr,omitempty"`
}

// Covered reports whether at least one venue supplied a tier at the threshold.
func (r AggregateRecord) Covered() bool {
	return r.BestLeverage != nil || r.BestMMR != nil
}

// UnionRecord reduces all tiers sharing one normalized leverage across venues.
type UnionRecord struct {
	Symbol         string   `json:"symbol"`
	Leverage       float64  `json:"leverage"`
	MaxNotionalCap *Sourced `json:"max_notional_cap,omitempty"`
	MinMMR         *Sourced `json:"min_mmr,omitempty"`
}

// SuggestedTier is one synthesized tier of the recommended schedule.
type SuggestedTier struct {
	Symbol                string   `json:"symbol"`
	Threshold             float64  `json:"threshold"`
	Top                   bool     `json:"top"`
	Leverage              float64  `json:"leverage"`
	ImpliedMargin         float64  `json:"implied_margin"`
	MaintenanceMarginRate float64  `json:"maintenance_margin_rate"`
	LeverageSource        Venue    `json:"leverage_source,omitempty"`
	MMRSource             Venue    `json:"mmr_source,omitempty"`
	Fallback              bool     `json:"fallback"`
	StreetLeverage        *float64 `json:"street_leverage,omitempty"`
	StreetMMR             *float64 `json:"street_mmr,omitempty"`
	MMRCeiling            *float64 `json:"mmr_ceiling,omitempty"`
}

// VenueTiers is the serialisable view of one venue schedule inside a report.
type VenueTiers struct {
	Venue Venue            `json:"venue"`
	Tiers []NormalizedTier `json:"tiers"`
}

// SymbolReport is everything reconciled for one symbol in one run.
type SymbolReport struct {
	RunID       string            `json:"run_id"`
	Symbol      string            `json:"symbol"`
	Group       string            `json:"group"`
	Thresholds  []float64         `json:"thresholds"`
	Venues      []VenueTiers      `json:"venues"`
	Reference   *VenueTiers       `json:"reference,omitempty"`
	Street      []AggregateRecord `json:"street"`
	Union       []UnionRecord     `json:"union"`
	Suggested   []SuggestedTier   `json:"suggested"`
	Abstained   []Venue           `json:"abstained,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// RunSummary describes one reconciliation run.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	CycleID    string        `json:"cycle_id,omitempty"`
	Symbols    int           `json:"symbols"`
	Majors     int           `json:"majors"`
	Minors     int           `json:"minors"`
	Uncovered  int           `json:"uncovered"`
	Fallbacks  int           `json:"fallbacks"`
	SinkErrors int           `json:"sink_errors"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}
