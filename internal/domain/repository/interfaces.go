package repository

import (
	"context"
	"errors"

	"LevRecon/internal/domain/models"
)

var ErrNotFound = errors.New("not found")

// SnapshotStore holds the latest normalized schedule per venue and symbol.
// A refresh replaces a schedule atomically; readers never observe a partial one.
type SnapshotStore interface {
	Put(ctx context.Context, schedule models.TierSchedule) error
	Get(ctx context.Context, venue models.Venue, symbol string) (models.TierSchedule, bool)
	PutUniverse(ctx context.Context, u models.Universe) error
	Snapshot(ctx context.Context) *models.MarketSnapshot
}

// ReportStore keeps the latest reconciled report per symbol.
type ReportStore interface {
	SaveReports(ctx context.Context, reports []models.SymbolReport) error
	Report(ctx context.Context, symbol string) (*models.SymbolReport, error)
	SaveSummary(ctx context.Context, s models.RunSummary) error
	LastSummary(ctx context.Context) (*models.RunSummary, error)
}

// ResultSink hands reconciled reports to a downstream consumer.
type ResultSink interface {
	Name() string
	Publish(ctx context.Context, summary models.RunSummary, reports []models.SymbolReport) error
}

// PriceBook provides last traded prices for contract-denominated venues.
type PriceBook interface {
	SetPrice(symbol string, price float64)
	LastPrice(symbol string) (float64, bool)
}

type Metrics interface {
	RecordFieldStates(venue string, report *models.NormalizeReport)
	RecordAbstain(venue string)
	RecordUncovered(group string)
	RecordFallback(group string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRun(symbols int)
}
