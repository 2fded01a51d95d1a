package models

// Requests for the reconciliation HTTP endpoints.

type SymbolsRequest struct {
	Group string `query:"group" json:"group" default:"all" validate:"oneof=all major minor"`
}

type ReportRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type RowsRequest struct {
	Symbol     string `query:"symbol" json:"symbol" validate:"required"`
	Provenance bool   `query:"provenance" json:"provenance"`
}

type SelectRequest struct {
	Symbol    string  `query:"symbol" json:"symbol" validate:"required"`
	Venue     string  `query:"venue" json:"venue" validate:"required,oneof=binance bybit mexc weex surf"`
	Threshold float64 `query:"threshold" json:"threshold" validate:"gt=0"`
}

type StreetRequest struct {
	Symbol    string  `query:"symbol" json:"symbol" validate:"required"`
	Threshold float64 `query:"threshold" json:"threshold" validate:"gt=0"`
}

type ReconcileRequest struct {
	CycleID string `json:"cycle_id"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"min=1,max=1000"`
}

// SymbolEntry is one row of the classified symbol listing.
type SymbolEntry struct {
	Symbol     string    `json:"symbol"`
	Group      string    `json:"group"`
	Thresholds []float64 `json:"thresholds"`
}
