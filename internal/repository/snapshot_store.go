package repository

import (
	"context"
	"sync"
	"time"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/repository"
)

// MemorySnapshotStore keeps the latest schedule per venue and symbol in
// process. Writers build a new inner map and swap it in, so a snapshot taken
// by a run is never mutated afterwards.
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	schedules map[string]map[models.Venue]models.TierSchedule
	universe  models.Universe
	now       func() time.Time
}

// NewMemorySnapshotStore creates an empty snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		schedules: make(map[string]map[models.Venue]models.TierSchedule),
		now:       time.Now,
	}
}

var _ repository.SnapshotStore = (*MemorySnapshotStore)(nil)

func (s *MemorySnapshotStore) Put(_ context.Context, schedule models.TierSchedule) error {
	symbol := schedule.Symbol()
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.schedules[symbol]
	next := make(map[models.Venue]models.TierSchedule, len(prev)+1)
	for v, sc := range prev {
		next[v] = sc
	}
	next[schedule.Venue()] = schedule
	s.schedules[symbol] = next
	return nil
}

func (s *MemorySnapshotStore) Get(_ context.Context, venue models.Venue, symbol string) (models.TierSchedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schedules[symbol][venue]
	return sc, ok
}

func (s *MemorySnapshotStore) PutUniverse(_ context.Context, u models.Universe) error {
	cp := models.Universe{
		Ranked:    append([]string(nil), u.Ranked...),
		Tradable:  append([]string(nil), u.Tradable...),
		UpdatedAt: u.UpdatedAt,
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = s.now().UTC()
	}
	s.mu.Lock()
	s.universe = cp
	s.mu.Unlock()
	return nil
}

// Snapshot returns a frozen view. Inner maps are shared with the store but
// are never written after they are published.
func (s *MemorySnapshotStore) Snapshot(_ context.Context) *models.MarketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &models.MarketSnapshot{
		Schedules: make(map[string]map[models.Venue]models.TierSchedule, len(s.schedules)),
		Universe:  s.universe,
		TakenAt:   s.now().UTC(),
	}
	for sym, byVenue := range s.schedules {
		out.Schedules[sym] = byVenue
	}
	return out
}

// Symbols returns the number of symbols with at least one schedule.
func (s *MemorySnapshotStore) Symbols() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.schedules)
}

// MemoryPriceBook is a last-price table fed by ingested envelopes.
type MemoryPriceBook struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewMemoryPriceBook() *MemoryPriceBook {
	return &MemoryPriceBook{prices: make(map[string]float64)}
}

var _ repository.PriceBook = (*MemoryPriceBook)(nil)

// SetPrice ignores non-positive prices.
func (b *MemoryPriceBook) SetPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	b.mu.Lock()
	b.prices[symbol] = price
	b.mu.Unlock()
}

func (b *MemoryPriceBook) LastPrice(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[symbol]
	return p, ok
}
