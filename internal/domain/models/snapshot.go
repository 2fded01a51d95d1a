package models

import (
	"encoding/json"
	"time"
)

// TierEnvelope carries one venue's raw tier payload for one symbol, as
// published by the external fetchers.
type TierEnvelope struct {
	Venue        string            `json:"venue" validate:"required"`
	Symbol       string            `json:"symbol" validate:"required"`
	CycleID      string            `json:"cycle_id"`
	FetchedAt    string            `json:"fetched_at"`
	Price        *float64          `json:"price,omitempty"`
	ContractSize *float64          `json:"contract_size,omitempty"`
	Tiers        []json.RawMessage `json:"tiers"`
	Limit        json.RawMessage   `json:"limit,omitempty"`
}

// Universe is the symbol universe used by the classifier.
// Ranked holds market-cap ordered base assets (or pairs); Tradable holds the
// pairs listed on the reference venue.
type Universe struct {
	Ranked    []string  `json:"ranked"`
	Tradable  []string  `json:"tradable"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CycleMarker signals that a fetch cycle finished publishing.
type CycleMarker struct {
	CycleID string `json:"cycle_id" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

const CycleComplete = "complete"

// SnapshotFile is the offline input of a one-shot reconciliation.
type SnapshotFile struct {
	Universe  Universe       `json:"universe"`
	Envelopes []TierEnvelope `json:"envelopes"`
}

// MarketSnapshot is a frozen view of every stored schedule and the universe.
// It must be treated as read-only.
type MarketSnapshot struct {
	Schedules map[string]map[Venue]TierSchedule
	Universe  Universe
	TakenAt   time.Time
}

// ForSymbol returns the schedules stored for symbol, keyed by venue.
func (s *MarketSnapshot) ForSymbol(symbol string) map[Venue]TierSchedule {
	if s == nil {
		return nil
	}
	return s.Schedules[symbol]
}
