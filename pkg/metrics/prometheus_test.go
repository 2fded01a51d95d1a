package metrics

import (
	"testing"

	"LevRecon/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	rep := models.NewNormalizeReport(models.VenueWEEX, "BTCUSDT")
	rep.Observe(models.FieldMMR, models.FieldMalformed)
	rep.Observe(models.FieldMMR, models.FieldMalformed)
	rep.Observe(models.FieldLeverage, models.FieldPresent)
	rep.Dropped = 1
	r.RecordFieldStates("weex", rep)
	r.RecordFieldStates("weex", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fieldStates.WithLabelValues("weex", "mmr", "malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues("weex")))

	r.RecordAbstain("mexc")
	r.RecordUncovered("minor")
	r.RecordFallback("minor")
	r.RecordRun(42)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.abstains.WithLabelValues("mexc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("minor")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.lastSymbols))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs))
}
