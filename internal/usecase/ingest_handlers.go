package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"LevRecon/internal/domain/models"
	domrepo "LevRecon/internal/domain/repository"
	"LevRecon/internal/services/normalize"
	pkgkafka "LevRecon/pkg/kafka"
	applogger "LevRecon/pkg/logger"
	"LevRecon/pkg/util"

	"github.com/go-playground/validator/v10"
)

var envelopeValidate = validator.New()

// TiersHandler consumes venue tier envelopes and replaces the stored
// schedule of the venue and symbol.
type TiersHandler struct {
	topic    string
	registry *normalize.Registry
	store    domrepo.SnapshotStore
	prices   domrepo.PriceBook
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

func NewTiersHandler(topic string, registry *normalize.Registry, store domrepo.SnapshotStore, prices domrepo.PriceBook, metrics domrepo.Metrics, log *applogger.Logger) *TiersHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &TiersHandler{topic: topic, registry: registry, store: store, prices: prices, metrics: metrics, log: log, now: time.Now}
}

func (h *TiersHandler) Topic() string { return h.topic }

func (h *TiersHandler) Handle(ctx context.Context, b []byte) error {
	var env models.TierEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		h.recordError("tiers_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode tier envelope: %w", err))
	}
	return h.Ingest(ctx, env)
}

// Ingest normalizes one envelope and stores the result. It is shared by the
// Kafka path and the offline snapshot loader.
func (h *TiersHandler) Ingest(ctx context.Context, env models.TierEnvelope) error {
	if err := envelopeValidate.Struct(env); err != nil {
		h.recordError("tiers_invalid")
		return pkgkafka.Permanent(fmt.Errorf("invalid tier envelope: %w", err))
	}
	symbol := util.NormalizeSymbol(env.Symbol)
	if env.Price != nil && h.prices != nil {
		h.prices.SetPrice(symbol, *env.Price)
	}

	schedule, rep, err := h.registry.Normalize(env)
	if err != nil {
		h.recordError("tiers_venue")
		return pkgkafka.Permanent(err)
	}
	if h.metrics != nil {
		h.metrics.RecordFieldStates(string(rep.Venue), rep)
		if fetched, ok := util.ParseTime(env.FetchedAt); ok {
			h.metrics.RecordLatency("ingest_lag", h.now().Sub(fetched).Seconds())
		}
	}
	if rep.Dropped > 0 || rep.Malformed() > 0 {
		h.log.Warn("tier payload partially unusable",
			applogger.String("venue", string(rep.Venue)),
			applogger.String("symbol", rep.Symbol),
			applogger.Int("raw", rep.Raw),
			applogger.Int("dropped", rep.Dropped),
			applogger.Int("malformed", rep.Malformed()))
	}

	if err := h.store.Put(ctx, schedule); err != nil {
		h.recordError("tiers_store")
		return fmt.Errorf("store schedule %s/%s: %w", rep.Venue, rep.Symbol, err)
	}
	h.log.Debug("schedule stored",
		applogger.String("venue", string(rep.Venue)),
		applogger.String("symbol", rep.Symbol),
		applogger.String("cycle_id", env.CycleID),
		applogger.Int("tiers", schedule.Len()))
	return nil
}

func (h *TiersHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

// UniverseHandler consumes the ranked and tradable symbol lists.
type UniverseHandler struct {
	topic string
	store domrepo.SnapshotStore
	log   *applogger.Logger
}

func NewUniverseHandler(topic string, store domrepo.SnapshotStore, log *applogger.Logger) *UniverseHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &UniverseHandler{topic: topic, store: store, log: log}
}

func (h *UniverseHandler) Topic() string { return h.topic }

func (h *UniverseHandler) Handle(ctx context.Context, b []byte) error {
	var u models.Universe
	if err := json.Unmarshal(b, &u); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode universe: %w", err))
	}
	if len(u.Tradable) == 0 {
		return pkgkafka.Permanent(errors.New("universe without tradable symbols"))
	}
	if err := h.store.PutUniverse(ctx, u); err != nil {
		return fmt.Errorf("store universe: %w", err)
	}
	h.log.Info("universe updated",
		applogger.Int("ranked", len(u.Ranked)),
		applogger.Int("tradable", len(u.Tradable)))
	return nil
}

// CycleRunner runs a reconciliation for a finished fetch cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, cycleID string) (models.RunSummary, error)
}

// CycleHandler triggers a run when a fetch cycle completes.
type CycleHandler struct {
	topic  string
	runner CycleRunner
	log    *applogger.Logger
}

func NewCycleHandler(topic string, runner CycleRunner, log *applogger.Logger) *CycleHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &CycleHandler{topic: topic, runner: runner, log: log}
}

func (h *CycleHandler) Topic() string { return h.topic }

func (h *CycleHandler) Handle(ctx context.Context, b []byte) error {
	var m models.CycleMarker
	if err := json.Unmarshal(b, &m); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode cycle marker: %w", err))
	}
	if err := envelopeValidate.Struct(m); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("invalid cycle marker: %w", err))
	}
	if m.Status != models.CycleComplete {
		return nil
	}

	sum, err := h.runner.RunCycle(ctx, m.CycleID)
	if errors.Is(err, ErrRunInProgress) {
		h.log.Info("cycle skipped, run in progress", applogger.String("cycle_id", m.CycleID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile cycle %s: %w", m.CycleID, err)
	}
	h.log.Info("cycle reconciled",
		applogger.String("cycle_id", m.CycleID),
		applogger.String("run_id", sum.RunID),
		applogger.Int("symbols", sum.Symbols))
	return nil
}

var (
	_ pkgkafka.MessageHandler = (*TiersHandler)(nil)
	_ pkgkafka.MessageHandler = (*UniverseHandler)(nil)
	_ pkgkafka.MessageHandler = (*CycleHandler)(nil)
)
