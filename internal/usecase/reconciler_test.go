package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/repository"
	"LevRecon/internal/services/aggregate"
	"LevRecon/internal/services/classify"
	"LevRecon/internal/services/suggest"
	"LevRecon/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu        sync.Mutex
	abstains  map[string]int
	uncovered map[string]int
	fallbacks map[string]int
	errors    map[string]int
	fields    int
	runs      int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		abstains:  map[string]int{},
		uncovered: map[string]int{},
		fallbacks: map[string]int{},
		errors:    map[string]int{},
	}
}

func (m *countingMetrics) RecordFieldStates(string, *models.NormalizeReport) {
	m.mu.Lock()
	m.fields++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordAbstain(v string) { m.inc(m.abstains, v) }

func (m *countingMetrics) RecordUncovered(g string) { m.inc(m.uncovered, g) }

func (m *countingMetrics) RecordFallback(g string) { m.inc(m.fallbacks, g) }

func (m *countingMetrics) RecordError(k string) { m.inc(m.errors, k) }

func (m *countingMetrics) RecordLatency(string, float64) {}

func (m *countingMetrics) RecordRun(int) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
}

func (m *countingMetrics) inc(into map[string]int, k string) {
	m.mu.Lock()
	into[k]++
	m.mu.Unlock()
}

type captureSink struct {
	mu      sync.Mutex
	err     error
	summary models.RunSummary
	reports []models.SymbolReport
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Publish(_ context.Context, sum models.RunSummary, reports []models.SymbolReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary, s.reports = sum, reports
	return s.err
}

func tier(lev, cap, mmr float64) models.NormalizedTier {
	return models.NormalizedTier{Leverage: lev, NotionalCap: models.Float(cap), MaintenanceMarginRate: models.Float(mmr)}
}

type fixture struct {
	store   *repository.MemorySnapshotStore
	reports *repository.CacheReportStore
	locks   *cache.MemoryCache
	sink    *captureSink
	metrics *countingMetrics
	rec     *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:   repository.NewMemorySnapshotStore(),
		locks:   cache.NewMemoryCache(),
		sink:    &captureSink{},
		metrics: newCountingMetrics(),
	}
	t.Cleanup(func() { _ = f.locks.Close() })
	f.reports = repository.NewCacheReportStore(f.locks, time.Hour)

	require.NoError(t, f.store.PutUniverse(ctx, models.Universe{
		Ranked:   []string{"BTC", "USDT", "ETH"},
		Tradable: []string{"BTCUSDT", "ETHUSDT", "DOGEUSDT", "XRPUSDT"},
	}))
	put := func(v models.Venue, sym string, tiers ...models.NormalizedTier) {
		require.NoError(t, f.store.Put(ctx, models.NewTierSchedule(v, sym, tiers)))
	}
	put(models.VenueBinance, "BTCUSDT", tier(125, 50_000, 0.004), tier(100, 600_000, 0.005), tier(50, 3_000_000, 0.01))
	put(models.VenueBybit, "BTCUSDT", tier(100, 2_000_000, 0.005), tier(50, 4_000_000, 0.01))
	put(models.VenueSURF, "ETHUSDT", tier(50, 500_000, 0.01))
	put(models.VenueWEEX, "DOGEUSDT", tier(20, 100_000, 0.01))

	synth, err := suggest.New(models.DefaultPolicy())
	require.NoError(t, err)
	participants := []models.Venue{models.VenueBinance, models.VenueWEEX, models.VenueMEXC, models.VenueBybit}

	f.rec = NewReconciler(
		f.store, f.reports, f.sink, f.locks,
		classify.New("USDT", []string{"USDT", "USDC"}, nil),
		aggregate.New(participants, 4),
		synth, f.metrics, nil,
		ReconcilerConfig{Workers: 3, Timeout: time.Minute, Reference: models.VenueSURF},
	)
	f.rec.newID = func() string { return "run-fixed" }
	return f
}

func TestReconcilerRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum, err := f.rec.RunCycle(ctx, "cycle-7")
	require.NoError(t, err)

	assert.Equal(t, "run-fixed", sum.RunID)
	assert.Equal(t, "cycle-7", sum.CycleID)
	assert.Equal(t, 3, sum.Symbols, "XRPUSDT has no data")
	assert.Equal(t, 2, sum.Majors)
	assert.Equal(t, 1, sum.Minors)
	assert.Equal(t, 5, sum.Uncovered)
	assert.Equal(t, 5, sum.Fallbacks)
	assert.Zero(t, sum.SinkErrors)

	require.Len(t, f.sink.reports, 3)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "DOGEUSDT"},
		[]string{f.sink.reports[0].Symbol, f.sink.reports[1].Symbol, f.sink.reports[2].Symbol})

	btc, err := f.reports.Report(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", btc.RunID)
	assert.Equal(t, classify.GroupMajor, btc.Group)
	assert.Equal(t, []float64{50_000, 200_000, 500_000, 1_000_000}, btc.Thresholds)
	assert.Equal(t, []models.Venue{models.VenueWEEX, models.VenueMEXC}, btc.Abstained)

	require.Len(t, btc.Venues, 4)
	assert.Equal(t, models.VenueBinance, btc.Venues[0].Venue)
	assert.Equal(t, models.VenueBybit, btc.Venues[3].Venue)
	require.NotNil(t, btc.Reference)
	assert.Empty(t, btc.Reference.Tiers)

	street := btc.Street
	require.Len(t, street, 4)
	assert.Equal(t, models.Sourced{Value: 125, Venue: models.VenueBinance}, *street[0].BestLeverage)
	assert.Equal(t, models.Sourced{Value: 100, Venue: models.VenueBinance}, *street[1].BestLeverage, "tie keeps the first venue")
	assert.Equal(t, models.Sourced{Value: 100, Venue: models.VenueBybit}, *street[3].BestLeverage)
	assert.Equal(t, models.Sourced{Value: 0.005, Venue: models.VenueBybit}, *street[3].BestMMR)

	sugg := btc.Suggested
	require.Len(t, sugg, 4)
	assert.Equal(t, 115.0, sugg[0].Leverage)
	assert.InDelta(t, 0.004, sugg[0].MaintenanceMarginRate, 1e-12)
	assert.True(t, sugg[3].Top)
	assert.Equal(t, 110.0, sugg[3].Leverage)
	assert.InDelta(t, 0.4/110, sugg[3].MaintenanceMarginRate, 1e-12)

	eth, err := f.reports.Report(ctx, "ETHUSDT")
	require.NoError(t, err)
	for _, s := range eth.Suggested {
		assert.True(t, s.Fallback)
	}
	require.NotNil(t, eth.Reference)
	assert.Len(t, eth.Reference.Tiers, 1, "reference is shown but never competes")

	doge, err := f.reports.Report(ctx, "DOGEUSDT")
	require.NoError(t, err)
	assert.Equal(t, classify.GroupMinor, doge.Group)
	assert.True(t, doge.Street[1].Covered())
	assert.False(t, doge.Street[2].Covered())

	assert.Equal(t, 4, f.metrics.uncovered[classify.GroupMajor])
	assert.Equal(t, 1, f.metrics.uncovered[classify.GroupMinor])
	assert.Equal(t, map[string]int{"binance": 2, "weex": 2, "mexc": 3, "bybit": 2}, f.metrics.abstains)
	assert.Equal(t, 1, f.metrics.runs)

	last, err := f.reports.LastSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, sum.RunID, last.RunID)
}

func TestReconcilerRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.locks.TryLock(ctx, runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.rec.Run(ctx)
	assert.ErrorIs(t, err, ErrRunInProgress)

	require.NoError(t, f.locks.Unlock(ctx, runLockKey))
	_, err = f.rec.Run(ctx)
	assert.NoError(t, err)

	ok, _ = f.locks.TryLock(ctx, runLockKey, time.Minute)
	assert.True(t, ok, "lock released after the run")
}

func TestReconcilerSinkFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("downstream unavailable")

	sum, err := f.rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SinkErrors)
	assert.Equal(t, 1, f.metrics.errors["sink"])

	_, err = f.reports.Report(context.Background(), "BTCUSDT")
	assert.NoError(t, err, "reports are stored before sinks run")
}

func TestReconcilerCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rec.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcilerEmptyUniverse(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.PutUniverse(context.Background(), models.Universe{}))

	sum, err := f.rec.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Symbols)
}
