package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestAddItemsCancelledCountsBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFulfillmentMetrics(reg)

	m.IncItemsCancelled()
	m.AddItemsCancelled(3)
	m.AddItemsCancelled(0)
	m.AddItemsCancelled(-2)

	expected := `
# HELP order_items_cancelled_total Order item cancellation operations.
# TYPE order_items_cancelled_total counter
order_items_cancelled_total 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "order_items_cancelled_total"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *FulfillmentMetrics
	m.IncShipmentsCreated()
	m.IncShipmentsVoided()
	m.IncItemsCancelled()
	m.AddItemsCancelled(5)
}
