package models

// FieldState records how a raw tier field was interpreted.
type FieldState string

const (
	FieldPresent   FieldState = "present"
	FieldAbsent    FieldState = "absent"
	FieldMalformed FieldState = "malformed"
)

const (
	FieldLeverage    = "leverage"
	FieldNotionalCap = "notional_cap"
	FieldMMR         = "mmr"
)

// NormalizeReport counts what a normalization pass kept, dropped and why.
type NormalizeReport struct {
	Venue   Venue                         `json:"venue"`
	Symbol  string                        `json:"symbol"`
	Raw     int                           `json:"raw"`
	Kept    int                           `json:"kept"`
	Dropped int                           `json:"dropped"`
	Fields  map[string]map[FieldState]int `json:"fields"`
}

// NewNormalizeReport returns an empty report for venue and symbol.
func NewNormalizeReport(venue Venue, symbol string) *NormalizeReport {
	return &NormalizeReport{
		Venue:  venue,
		Symbol: symbol,
		Fields: map[string]map[FieldState]int{},
	}
}

// Observe counts one field interpretation.
func (r *NormalizeReport) Observe(field string, st FieldState) {
	m, ok := r.Fields[field]
	if !ok {
		m = map[FieldState]int{}
		r.Fields[field] = m
	}
	m[st]++
}

// Malformed returns the number of malformed fields across all tiers.
func (r *NormalizeReport) Malformed() int {
	n := 0
	for _, m := range r.Fields {
		n += m[FieldMalformed]
	}
	return n
}
