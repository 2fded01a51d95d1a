// Package rows renders reconciled data into the fixed-width tuples consumed
// by spreadsheet, HTML and dashboard writers.
package rows

import (
	"math"

	"LevRecon/internal/domain/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.English)
	hundred = decimal.NewFromInt(100)
)

// VenueRow is the 4-column tuple (venue_or_blank, leverage, notional_cap, mmr).
type VenueRow struct {
	Venue       string   `json:"venue"`
	Leverage    string   `json:"leverage"`
	NotionalCap *float64 `json:"notional_cap"`
	MMR         string   `json:"mmr"`
}

// Tuple returns the row as positional cells.
func (r VenueRow) Tuple() []any {
	var c any = ""
	if r.NotionalCap != nil {
		c = *r.NotionalCap
	}
	return []any{r.Venue, r.Leverage, c, r.MMR}
}

// SuggestedRow is the 6-column tuple
// (position, leverage, leverage_source, mmr, mmr_source, im).
type SuggestedRow struct {
	Position       string `json:"position"`
	Leverage       string `json:"leverage"`
	LeverageSource string `json:"leverage_source"`
	MMR            string `json:"mmr"`
	MMRSource      string `json:"mmr_source"`
	IM             string `json:"im"`
}

// Tuple returns the row as positional cells.
func (r SuggestedRow) Tuple() []any {
	return []any{r.Position, r.Leverage, r.LeverageSource, r.MMR, r.MMRSource, r.IM}
}

// ForVenue renders one venue block. The venue name appears on the first row
// only; a venue without tiers renders a single row holding just its name.
func ForVenue(vt models.VenueTiers) []VenueRow {
	name := vt.Venue.DisplayName()
	if len(vt.Tiers) == 0 {
		return []VenueRow{{Venue: name}}
	}
	out := make([]VenueRow, 0, len(vt.Tiers))
	for i, t := range vt.Tiers {
		row := VenueRow{Leverage: Leverage(t.Leverage)}
		if i == 0 {
			row.Venue = name
		}
		if t.NotionalCap != nil {
			c := *t.NotionalCap
			row.NotionalCap = &c
		}
		if t.MaintenanceMarginRate != nil {
			row.MMR = Rate(*t.MaintenanceMarginRate)
		}
		out = append(out, row)
	}
	return out
}

// ForReport renders every venue block of a report in report order, the
// reference venue last.
func ForReport(r *models.SymbolReport) []VenueRow {
	var out []VenueRow
	for _, vt := range r.Venues {
		out = append(out, ForVenue(vt)...)
	}
	if r.Reference != nil {
		out = append(out, ForVenue(*r.Reference)...)
	}
	return out
}

// Suggested renders the suggested schedule. Fallback tiers carry no sources.
func Suggested(tiers []models.SuggestedTier) []SuggestedRow {
	out := make([]SuggestedRow, 0, len(tiers))
	for _, t := range tiers {
		row := SuggestedRow{
			Position: Position(t.Threshold),
			Leverage: Leverage(t.Leverage),
			MMR:      Rate(t.MaintenanceMarginRate),
			IM:       IMPercent(t.Leverage),
		}
		if t.LeverageSource != "" {
			row.LeverageSource = t.LeverageSource.DisplayName()
		}
		if t.MMRSource != "" {
			row.MMRSource = t.MMRSource.DisplayName()
		}
		out = append(out, row)
	}
	return out
}

// Street renders the raw street figures in the suggested-row shape. An
// uncovered threshold renders only its position.
func Street(records []models.AggregateRecord) []SuggestedRow {
	out := make([]SuggestedRow, 0, len(records))
	for _, r := range records {
		row := SuggestedRow{Position: Position(r.Threshold)}
		if r.BestLeverage != nil {
			row.Leverage = Leverage(r.BestLeverage.Value)
			row.LeverageSource = r.BestLeverage.Venue.DisplayName()
			row.IM = IMPercent(r.BestLeverage.Value)
		}
		if r.BestMMR != nil {
			row.MMR = Rate(r.BestMMR.Value)
			row.MMRSource = r.BestMMR.Venue.DisplayName()
		}
		out = append(out, row)
	}
	return out
}

// Leverage formats 25 as "25X" and 12.5 as "12.5X", at most six decimals.
func Leverage(v float64) string {
	return decimal.NewFromFloat(v).Round(6).String() + "X"
}

// Rate formats a fraction as a two-decimal percentage: 0.005 -> "0.50%".
func Rate(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

// Position formats a notional with thousands separators.
func Position(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

// IMPercent is the initial margin 100/leverage with two decimals.
func IMPercent(lev float64) string {
	if lev <= 0 {
		return ""
	}
	return hundred.Div(decimal.NewFromFloat(lev)).StringFixed(2)
}
