package service

import (
	"LevRecon/internal/domain/models"
)

// TierNormalizer turns one venue's raw tier payload into a schedule.
// Implementations never fail on bad data; they drop and report instead.
type TierNormalizer interface {
	Venue() models.Venue
	Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport)
}

// PriceLookup resolves a last price for venues quoting caps in contracts.
type PriceLookup interface {
	LastPrice(symbol string) (float64, bool)
}
