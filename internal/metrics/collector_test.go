package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestObserveBatchIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveBatch("vertices", "Person", "ok", 5*time.Millisecond)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var sawCounter bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "age_batches_total" {
			sawCounter = true
			require.Equal(t, float64(1), *mf.Metric[0].Counter.Value)
		}
	}
	require.True(t, sawCounter)
}

func TestAddVerticesAndEdgesCreated(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.AddVerticesCreated(3)
	c.AddEdgesCreated(2)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range metricFamilies {
		if len(mf.Metric) > 0 && mf.Metric[0].Counter != nil {
			values[mf.GetName()] = *mf.Metric[0].Counter.Value
		}
	}
	require.Equal(t, float64(3), values["age_vertices_created_total"])
	require.Equal(t, float64(2), values["age_edges_created_total"])
}

func TestNilCollectorMethodsAreNoOps(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.ObserveBatch("vertices", "Person", "ok", time.Millisecond)
		c.ObserveStagingWrite(time.Millisecond)
		c.AddVerticesCreated(1)
		c.AddEdgesCreated(1)
	})
}
