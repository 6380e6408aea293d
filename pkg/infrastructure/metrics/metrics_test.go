package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ProductionLogs.WithLabelValues("intake").Inc()
	a.LedgerLogFailures.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ProductionLogs.WithLabelValues("intake")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ProductionLogs.WithLabelValues("intake")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.LedgerLogFailures))

	families, err := a.Registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["cashew_production_logs_total"])
	assert.True(t, names["cashew_inventory_log_write_failures_total"])
}
