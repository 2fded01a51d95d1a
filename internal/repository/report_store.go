package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/repository"
	"LevRecon/pkg/cache"
)

const summaryKey = "summary:last"

// CacheReportStore keeps the latest report per symbol in a cache.Service.
type CacheReportStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheReportStore creates a report store. A zero ttl uses the cache default.
func NewCacheReportStore(c cache.Service, ttl time.Duration) *CacheReportStore {
	return &CacheReportStore{cache: c, ttl: ttl}
}

var _ repository.ReportStore = (*CacheReportStore)(nil)

func reportKey(symbol string) string { return cache.Key("report", symbol) }

func (s *CacheReportStore) SaveReports(ctx context.Context, reports []models.SymbolReport) error {
	if len(reports) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(reports))
	for i := range reports {
		values[reportKey(reports[i].Symbol)] = reports[i]
	}
	if err := s.cache.MSet(ctx, values, s.ttl); err != nil {
		return fmt.Errorf("save reports: %w", err)
	}
	return nil
}

func (s *CacheReportStore) Report(ctx context.Context, symbol string) (*models.SymbolReport, error) {
	var r models.SymbolReport
	if err := s.cache.Get(ctx, reportKey(symbol), &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get report %s: %w", symbol, err)
	}
	return &r, nil
}

func (s *CacheReportStore) SaveSummary(ctx context.Context, sum models.RunSummary) error {
	if err := s.cache.Set(ctx, summaryKey, sum, s.ttl); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (s *CacheReportStore) LastSummary(ctx context.Context) (*models.RunSummary, error) {
	var sum models.RunSummary
	if err := s.cache.Get(ctx, summaryKey, &sum); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &sum, nil
}
