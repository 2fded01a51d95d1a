package metrics

import (
	"LevRecon/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fieldStates *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	abstains    *prometheus.CounterVec
	uncovered   *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	runs        prometheus.Counter
	lastSymbols prometheus.Gauge
}

// New creates a recorder and registers it with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		fieldStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levrecon_tier_fields_total",
				Help: "Tier fields seen by the normalizer, by venue, field and state",
			},
			[]string{"venue", "field", "state"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levrecon_tiers_dropped_total",
				Help: "Raw tiers dropped for lack of a usable leverage",
			},
			[]string{"venue"},
		),
		abstains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levrecon_venue_abstains_total",
				Help: "Symbols a participating venue had no schedule for",
			},
			[]string{"venue"},
		),
		uncovered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levrecon_uncovered_thresholds_total",
				Help: "Thresholds no participating venue reached",
			},
			[]string{"group"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levrecon_suggest_fallbacks_total",
				Help: "Suggested tiers built from the default leverage",
			},
			[]string{"group"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "levrecon_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "levrecon_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "levrecon_runs_total",
			Help: "Completed reconciliation runs",
		}),
		lastSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "levrecon_last_run_symbols",
			Help: "Symbols reconciled by the last run",
		}),
	}
	reg.MustRegister(r.fieldStates, r.dropped, r.abstains, r.uncovered, r.fallbacks,
		r.errorsTotal, r.latency, r.runs, r.lastSymbols)
	return r
}

// RecordFieldStates adds a normalization report's field counts.
func (r *Recorder) RecordFieldStates(venue string, rep *models.NormalizeReport) {
	if rep == nil {
		return
	}
	for field, states := range rep.Fields {
		for st, n := range states {
			r.fieldStates.WithLabelValues(venue, field, string(st)).Add(float64(n))
		}
	}
	if rep.Dropped > 0 {
		r.dropped.WithLabelValues(venue).Add(float64(rep.Dropped))
	}
}

func (r *Recorder) RecordAbstain(venue string) {
	r.abstains.WithLabelValues(venue).Inc()
}

func (r *Recorder) RecordUncovered(group string) {
	r.uncovered.WithLabelValues(group).Inc()
}

func (r *Recorder) RecordFallback(group string) {
	r.fallbacks.WithLabelValues(group).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordRun counts a finished run and the symbols it covered.
func (r *Recorder) RecordRun(symbols int) {
	r.runs.Inc()
	r.lastSymbols.Set(float64(symbols))
}
