package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LevRecon/internal/domain/models"
	drepo "LevRecon/internal/domain/repository"
	"LevRecon/internal/services/aggregate"
	"LevRecon/internal/services/classify"
	"LevRecon/internal/services/suggest"
	applogger "LevRecon/pkg/logger"

	"github.com/google/uuid"
)

const runLockKey = "lock:reconcile"

var ErrRunInProgress = errors.New("reconcile run already in progress")

// Locker serialises runs across replicas. cache.Service satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// ReconcilerConfig tunes a Reconciler.
type ReconcilerConfig struct {
	Workers   int
	Timeout   time.Duration
	LockTTL   time.Duration
	Reference models.Venue
}

// Reconciler turns the stored venue schedules into one report per classified
// symbol and hands the reports to the sinks.
type Reconciler struct {
	snapshots  drepo.SnapshotStore
	reports    drepo.ReportStore
	sink       drepo.ResultSink
	locker     Locker
	classifier *classify.Classifier
	aggregator *aggregate.Aggregator
	synth      *suggest.Synthesizer
	metrics    drepo.Metrics
	log        *applogger.Logger
	cfg        ReconcilerConfig

	newID func() string
	now   func() time.Time
}

// NewReconciler creates a Reconciler. sink and locker may be nil.
func NewReconciler(
	snapshots drepo.SnapshotStore,
	reports drepo.ReportStore,
	sink drepo.ResultSink,
	locker Locker,
	classifier *classify.Classifier,
	aggregator *aggregate.Aggregator,
	synth *suggest.Synthesizer,
	metrics drepo.Metrics,
	log *applogger.Logger,
	cfg ReconcilerConfig,
) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Reconciler{
		snapshots:  snapshots,
		reports:    reports,
		sink:       sink,
		locker:     locker,
		classifier: classifier,
		aggregator: aggregator,
		synth:      synth,
		metrics:    metrics,
		log:        log,
		cfg:        cfg,
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}
}

// Run reconciles every classified symbol with data.
func (r *Reconciler) Run(ctx context.Context) (models.RunSummary, error) {
	return r.RunCycle(ctx, "")
}

// RunCycle is Run tagged with the fetch cycle that triggered it.
func (r *Reconciler) RunCycle(ctx context.Context, cycleID string) (models.RunSummary, error) {
	if r.locker != nil {
		ok, err := r.locker.TryLock(ctx, runLockKey, r.cfg.LockTTL)
		if err != nil {
			r.recordError("lock")
			return models.RunSummary{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return models.RunSummary{}, ErrRunInProgress
		}
		defer func() {
			if err := r.locker.Unlock(context.Background(), runLockKey); err != nil {
				r.log.Warn("release run lock failed", applogger.Error(err))
			}
		}()
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := r.now()
	summary := models.RunSummary{RunID: r.newID(), CycleID: cycleID, StartedAt: start.UTC()}
	log := r.log.With(applogger.String("run_id", summary.RunID))

	snap := r.snapshots.Snapshot(ctx)
	cl := r.classifier.Classify(snap.Universe.Ranked, snap.Universe.Tradable)

	var symbols []string
	for _, sym := range cl.Symbols() {
		if hasData(snap.ForSymbol(sym)) {
			symbols = append(symbols, sym)
		}
	}
	log.Info("reconcile started",
		applogger.String("cycle_id", cycleID),
		applogger.Int("classified", len(cl.Majors)+len(cl.Minors)),
		applogger.Int("with_data", len(symbols)))

	reports, err := r.buildAll(ctx, snap, cl, symbols, summary.RunID, start.UTC())
	if err != nil {
		r.recordError("reconcile")
		return summary, err
	}

	for i := range reports {
		rep := &reports[i]
		if rep.Group == classify.GroupMajor {
			summary.Majors++
		} else {
			summary.Minors++
		}
		for _, rec := range rep.Street {
			if !rec.Covered() {
				summary.Uncovered++
			}
		}
		for _, t := range rep.Suggested {
			if t.Fallback {
				summary.Fallbacks++
			}
		}
	}
	summary.Symbols = len(reports)

	if err := r.reports.SaveReports(ctx, reports); err != nil {
		r.recordError("store")
		return summary, fmt.Errorf("store reports: %w", err)
	}

	summary.Duration = r.now().Sub(start)
	if r.sink != nil {
		if err := r.sink.Publish(ctx, summary, reports); err != nil {
			summary.SinkErrors = 1
			if multi, ok := err.(interface{ Unwrap() []error }); ok {
				summary.SinkErrors = len(multi.Unwrap())
			}
			r.recordError("sink")
			log.Warn("publish reports incomplete", applogger.Error(err))
		}
	}

	if err := r.reports.SaveSummary(ctx, summary); err != nil {
		r.recordError("store")
		log.Error("store run summary failed", applogger.Error(err))
	}
	if r.metrics != nil {
		r.metrics.RecordRun(summary.Symbols)
		r.metrics.RecordLatency("reconcile", summary.Duration.Seconds())
	}
	log.Info("reconcile finished",
		applogger.Int("symbols", summary.Symbols),
		applogger.Int("uncovered", summary.Uncovered),
		applogger.Int("fallbacks", summary.Fallbacks),
		applogger.Duration("duration", summary.Duration))
	return summary, nil
}

// buildAll fans symbols out to a bounded worker pool. Reports keep the order
// of symbols.
func (r *Reconciler) buildAll(ctx context.Context, snap *models.MarketSnapshot, cl classify.Classification, symbols []string, runID string, at time.Time) ([]models.SymbolReport, error) {
	out := make([]models.SymbolReport, len(symbols))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := r.cfg.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = r.BuildReport(snap, cl, symbols[i])
				out[i].RunID = runID
				out[i].GeneratedAt = at
			}
		}()
	}

	var err error
feed:
	for i := range symbols {
		if ctx.Err() != nil {
			err = fmt.Errorf("reconcile aborted: %w", ctx.Err())
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = fmt.Errorf("reconcile aborted: %w", ctx.Err())
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuildReport reconciles one symbol. It reads only snap and shares no state
// with other symbols.
func (r *Reconciler) BuildReport(snap *models.MarketSnapshot, cl classify.Classification, symbol string) models.SymbolReport {
	schedules := snap.ForSymbol(symbol)
	group, _ := cl.Group(symbol)
	thresholds, _ := cl.ThresholdsFor(symbol)

	rep := models.SymbolReport{
		Symbol:     symbol,
		Group:      group,
		Thresholds: thresholds,
	}
	for _, v := range r.displayOrder() {
		rep.Venues = append(rep.Venues, models.VenueTiers{Venue: v, Tiers: schedules[v].Tiers()})
	}
	if ref := r.cfg.Reference; ref != "" {
		rep.Reference = &models.VenueTiers{Venue: ref, Tiers: schedules[ref].Tiers()}
	}

	rep.Street = r.aggregator.Thresholds(symbol, schedules, thresholds)
	rep.Union = r.aggregator.Union(symbol, schedules)
	rep.Suggested = r.synth.Synthesize(symbol, rep.Street)
	rep.Abstained = r.aggregator.Abstaining(schedules)

	r.observe(&rep)
	return rep
}

func (r *Reconciler) observe(rep *models.SymbolReport) {
	for _, v := range rep.Abstained {
		if r.metrics != nil {
			r.metrics.RecordAbstain(string(v))
		}
		r.log.Debug("venue abstained", applogger.String("symbol", rep.Symbol), applogger.String("venue", string(v)))
	}
	for _, rec := range rep.Street {
		if rec.Covered() {
			continue
		}
		if r.metrics != nil {
			r.metrics.RecordUncovered(rep.Group)
		}
		r.log.Warn("threshold not covered by any venue",
			applogger.String("symbol", rep.Symbol),
			applogger.Float64("threshold", rec.Threshold))
	}
	for _, t := range rep.Suggested {
		if t.Fallback && r.metrics != nil {
			r.metrics.RecordFallback(rep.Group)
		}
	}
	for _, v := range suggest.CheckMonotone(rep.Suggested) {
		r.log.Warn("suggested schedule not monotone",
			applogger.String("symbol", rep.Symbol),
			applogger.String("field", v.Field),
			applogger.Float64("threshold", v.Threshold),
			applogger.Float64("prev", v.Prev),
			applogger.Float64("next", v.Next))
	}
}

// displayOrder lists the participants in table order.
func (r *Reconciler) displayOrder() []models.Venue {
	participants := make(map[models.Venue]bool)
	for _, v := range r.aggregator.Participants() {
		participants[v] = true
	}
	out := make([]models.Venue, 0, len(participants))
	for _, v := range models.KnownVenues {
		if participants[v] {
			out = append(out, v)
		}
	}
	return out
}

// Classification classifies the current universe.
func (r *Reconciler) Classification(ctx context.Context) classify.Classification {
	snap := r.snapshots.Snapshot(ctx)
	return r.classifier.Classify(snap.Universe.Ranked, snap.Universe.Tradable)
}

func (r *Reconciler) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}

func hasData(schedules map[models.Venue]models.TierSchedule) bool {
	for _, s := range schedules {
		if !s.IsEmpty() {
			return true
		}
	}
	return false
}
