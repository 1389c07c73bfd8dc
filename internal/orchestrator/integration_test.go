package orchestrator

import (
	"context"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/config"
	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/helperfn"
	"github.com/ageloader/batchloader/internal/metrics"
	"github.com/ageloader/batchloader/internal/pgexec"
	"github.com/ageloader/batchloader/internal/schema"
)

// TestLoadGraphDataEndToEnd exercises the full vertex-then-edge batching
// algorithm against a real Postgres+AGE instance. It is skipped unless
// AGELOADER_TEST_DATABASE_URL points at one, the same opt-in-integration
// pattern the donor pack's plugin tests use for anything that needs a
// real external dependency.
func TestLoadGraphDataEndToEnd(t *testing.T) {
	dsn := os.Getenv("AGELOADER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("set AGELOADER_TEST_DATABASE_URL to run against a live Postgres+AGE instance")
	}

	cfg := config.Defaults()
	cfg.DatabaseURL = dsn
	cfg.SchemaNamespace = "ageloader_it"
	cfg.DefaultGraphName = "ageloader_it_graph"
	require.NoError(t, cfg.Validate())

	s, err := schema.New("1.0",
		[]string{"Person"},
		map[string]schema.VertexDef{
			"Person": {
				Properties:    map[string]schema.PropSpec{"name": {Type: schema.PropString}},
				PropertyOrder: []string{"id", "name"},
				Required:      []string{"id", "name"},
			},
		},
		[]string{"KNOWS"},
		map[string]schema.EdgeDef{
			"KNOWS": {PropertyOrder: []string{"from", "to"}, From: "Person", To: "Person"},
		},
	)
	require.NoError(t, err)

	ctx := context.Background()
	logger := zerolog.Nop()
	pool, err := pgexec.NewPool(ctx, cfg, logger)
	require.NoError(t, err)
	defer pool.Close()

	installer := helperfn.NewInstaller(cfg.DatabaseURL, cfg.SchemaNamespace, logger)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	orch := New(pool, s, installer, cfg, collector, logger)

	alice := graphdata.NewPropertyBag()
	alice.Set("id", "p1")
	alice.Set("name", "Alice")
	bob := graphdata.NewPropertyBag()
	bob.Set("id", "p2")
	bob.Set("name", "Bob")
	edge := graphdata.NewPropertyBag()
	edge.Set("from", "p1")
	edge.Set("to", "p2")

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{"Person": {alice, bob}},
		Edges:    map[string][]*graphdata.PropertyBag{"KNOWS": {edge}},
	}

	opts := DefaultOptions(cfg)
	result, err := orch.LoadGraphData(ctx, data, opts)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, uint64(2), result.VertexCount)
	require.Equal(t, uint64(1), result.EdgeCount)
}
