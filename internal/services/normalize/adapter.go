package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/service"
	"LevRecon/pkg/util"
)

// rawTier is one decoded tier object. Numbers are kept as json.Number so the
// exact payload text reaches the parser.
type rawTier map[string]any

// first returns the first non-nil value among keys.
func (r rawTier) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func decodeObject(raw json.RawMessage) (rawTier, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return rawTier(m), true
}

// fieldSpec extracts the three tier fields from a decoded entry.
type fieldSpec struct {
	leverage func(rawTier) (float64, models.FieldState)
	cap      func(rawTier) (float64, models.FieldState)
	mmr      func(rawTier) (float64, models.FieldState)
}

// collector accumulates tiers and field states for one normalization pass.
type collector struct {
	tiers  []models.NormalizedTier
	report *models.NormalizeReport
}

func newCollector(venue models.Venue, symbol string) *collector {
	return &collector{report: models.NewNormalizeReport(venue, symbol)}
}

// add interprets one raw entry. Entries without a usable leverage are dropped.
func (c *collector) add(r rawTier, spec fieldSpec) {
	c.report.Raw++
	lev, ls := spec.leverage(r)
	c.report.Observe(models.FieldLeverage, ls)
	cp, cs := spec.cap(r)
	c.report.Observe(models.FieldNotionalCap, cs)
	mmr, ms := spec.mmr(r)
	c.report.Observe(models.FieldMMR, ms)

	if ls != models.FieldPresent {
		return
	}
	t := models.NormalizedTier{Leverage: lev}
	if cs == models.FieldPresent {
		t.NotionalCap = models.Float(cp)
	}
	if ms == models.FieldPresent {
		t.MaintenanceMarginRate = models.Float(mmr)
	}
	c.tiers = append(c.tiers, t)
}

// reject counts an entry that is not an object at all.
func (c *collector) reject() {
	c.report.Raw++
}

func (c *collector) finish(venue models.Venue, symbol string) (models.TierSchedule, *models.NormalizeReport) {
	s := models.NewTierSchedule(venue, symbol, c.tiers)
	c.report.Kept = s.Len()
	c.report.Dropped = c.report.Raw - c.report.Kept
	return s, c.report
}

// normalizeEntries runs spec over every entry of env.Tiers.
func normalizeEntries(venue models.Venue, env models.TierEnvelope, spec fieldSpec) (models.TierSchedule, *models.NormalizeReport) {
	c := newCollector(venue, env.Symbol)
	for _, raw := range env.Tiers {
		r, ok := decodeObject(raw)
		if !ok {
			c.reject()
			continue
		}
		c.add(r, spec)
	}
	return c.finish(venue, env.Symbol)
}

func leverageOf(keys ...string) func(rawTier) (float64, models.FieldState) {
	return func(r rawTier) (float64, models.FieldState) { return ParseLeverage(r.first(keys...)) }
}

func capOf(keys ...string) func(rawTier) (float64, models.FieldState) {
	return func(r rawTier) (float64, models.FieldState) { return ParseCap(r.first(keys...)) }
}

func rateOf(keys ...string) func(rawTier) (float64, models.FieldState) {
	return func(r rawTier) (float64, models.FieldState) { return ParseRate(r.first(keys...)) }
}

// Registry dispatches envelopes to the adapter of their venue.
type Registry struct {
	adapters map[models.Venue]service.TierNormalizer
}

// NewRegistry builds a registry with an adapter for every known venue.
func NewRegistry(prices service.PriceLookup) *Registry {
	r := &Registry{adapters: make(map[models.Venue]service.TierNormalizer)}
	r.Register(Binance{})
	r.Register(Bybit{})
	r.Register(NewMEXC(prices))
	r.Register(WEEX{})
	r.Register(SURF{})
	return r
}

// Register adds or replaces the adapter for n.Venue().
func (r *Registry) Register(n service.TierNormalizer) {
	r.adapters[n.Venue()] = n
}

// Normalize parses env with the adapter for its venue. The only error is an
// unknown venue; bad tier data is dropped and reported.
func (r *Registry) Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport, error) {
	venue, ok := models.ParseVenue(env.Venue)
	if !ok {
		return models.TierSchedule{}, nil, fmt.Errorf("unknown venue %q", env.Venue)
	}
	a, ok := r.adapters[venue]
	if !ok {
		return models.TierSchedule{}, nil, fmt.Errorf("no adapter for venue %q", venue)
	}
	env.Symbol = util.NormalizeSymbol(env.Symbol)
	s, rep := a.Normalize(env)
	return s, rep, nil
}
