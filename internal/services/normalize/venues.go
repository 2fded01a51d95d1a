package normalize

import (
	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/service"
)

// Binance reads leverage brackets. Field names differ between the public
// bracket endpoint and the account endpoint; both are accepted.
type Binance struct{}

func (Binance) Venue() models.Venue { return models.VenueBinance }

func (Binance) Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport) {
	return normalizeEntries(models.VenueBinance, env, fieldSpec{
		leverage: leverageOf("maxOpenPosLeverage", "initialLeverage", "mlev"),
		cap:      capOf("bracketNotionalCap", "notionalCap", "notional_usdt"),
		mmr:      rateOf("bracketMaintenanceMarginRate", "maintMarginRatio", "mmr"),
	})
}

// Bybit reads risk-limit rows.
type Bybit struct{}

func (Bybit) Venue() models.Venue { return models.VenueBybit }

func (Bybit) Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport) {
	return normalizeEntries(models.VenueBybit, env, fieldSpec{
		leverage: leverageOf("maximumLever", "maxLeverage"),
		cap:      capOf("storingLocationValue", "riskLimitValue"),
		mmr:      rateOf("maintenanceMarginRate", "maintenanceMargin"),
	})
}

// WEEX reads scraped table rows: {"range": "0~50,000", "mlev": "25x", "mmr": "0.50%"}.
type WEEX struct{}

func (WEEX) Venue() models.Venue { return models.VenueWEEX }

func (WEEX) Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport) {
	return normalizeEntries(models.VenueWEEX, env, fieldSpec{
		leverage: leverageOf("mlev", "leverage"),
		cap:      capOf("range", "notional_usdt"),
		mmr:      rateOf("mmr"),
	})
}

// SURF is the reference venue. It publishes one limit object per pair.
type SURF struct{}

func (SURF) Venue() models.Venue { return models.VenueSURF }

var surfSpec = fieldSpec{
	leverage: leverageOf("max_leverage", "mlev"),
	cap:      capOf("max_order_size", "pair_max_hold_limit", "notional_usdt"),
	mmr:      rateOf("max_mmr", "mmr"),
}

func (SURF) Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport) {
	if len(env.Tiers) > 0 {
		return normalizeEntries(models.VenueSURF, env, surfSpec)
	}
	c := newCollector(models.VenueSURF, env.Symbol)
	if len(env.Limit) > 0 {
		if r, ok := decodeObject(env.Limit); ok {
			c.add(r, surfSpec)
		} else {
			c.reject()
		}
	}
	return c.finish(models.VenueSURF, env.Symbol)
}

// MEXC quotes risk-limit volumes in contracts. Caps are converted to quote
// notional with the contract size and the last price; without a price the
// cap is absent. A contract with no risk-limit rows yields one tier built
// from its contract limits.
type MEXC struct {
	prices service.PriceLookup
}

func NewMEXC(prices service.PriceLookup) MEXC {
	return MEXC{prices: prices}
}

func (MEXC) Venue() models.Venue { return models.VenueMEXC }

func (m MEXC) Normalize(env models.TierEnvelope) (models.TierSchedule, *models.NormalizeReport) {
	var limit rawTier
	if len(env.Limit) > 0 {
		limit, _ = decodeObject(env.Limit)
	}
	cs := m.contractSize(env, limit)
	price, hasPrice := m.price(env)

	volumeCap := func(keys ...string) func(rawTier) (float64, models.FieldState) {
		return func(r rawTier) (float64, models.FieldState) {
			var vol float64
			st := models.FieldAbsent
			for _, k := range keys {
				vol, st = ParseCap(r[k])
				if st == models.FieldPresent {
					break
				}
			}
			if st != models.FieldPresent {
				return 0, st
			}
			if !hasPrice {
				return 0, models.FieldAbsent
			}
			return ContractNotional(vol, cs, price), models.FieldPresent
		}
	}
	spec := fieldSpec{
		leverage: mexcLeverage("mlev", "maxL"),
		cap:      volumeCap("vol"),
		mmr:      rateOf("mmr"),
	}

	if len(env.Tiers) > 0 {
		return normalizeEntries(models.VenueMEXC, env, spec)
	}
	c := newCollector(models.VenueMEXC, env.Symbol)
	if limit != nil {
		spec.leverage = mexcLeverage("maxL", "mlev")
		spec.cap = volumeCap("lmv", "maxV", "rbv")
		c.add(limit, spec)
	}
	return c.finish(models.VenueMEXC, env.Symbol)
}

func (m MEXC) contractSize(env models.TierEnvelope, limit rawTier) float64 {
	if env.ContractSize != nil && *env.ContractSize > 0 {
		return *env.ContractSize
	}
	if limit != nil {
		if cs, st := ParseCap(limit["cs"]); st == models.FieldPresent {
			return cs
		}
	}
	return 1
}

func (m MEXC) price(env models.TierEnvelope) (float64, bool) {
	if env.Price != nil && *env.Price > 0 {
		return *env.Price, true
	}
	if m.prices != nil {
		if p, ok := m.prices.LastPrice(env.Symbol); ok && p > 0 {
			return p, true
		}
	}
	return 0, false
}

// mexcLeverage falls back to 1/imr when no leverage field is published.
func mexcLeverage(keys ...string) func(rawTier) (float64, models.FieldState) {
	return func(r rawTier) (float64, models.FieldState) {
		lev, st := ParseLeverage(r.first(keys...))
		if st != models.FieldAbsent {
			return lev, st
		}
		imr, ist := ParseRate(r["imr"])
		if ist != models.FieldPresent || imr <= 0 {
			return 0, models.FieldAbsent
		}
		return 1 / imr, models.FieldPresent
	}
}
