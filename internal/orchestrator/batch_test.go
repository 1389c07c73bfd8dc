package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/cypher"
	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/executor/executortest"
	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/loaderr"
	"github.com/ageloader/batchloader/internal/schema"
	"github.com/ageloader/batchloader/internal/staging"
)

func batchTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("1.0",
		[]string{"Person"},
		map[string]schema.VertexDef{
			"Person": {
				Properties:    map[string]schema.PropSpec{"name": {Type: schema.PropString}},
				PropertyOrder: []string{"id", "name"},
			},
		},
		[]string{"KNOWS"},
		map[string]schema.EdgeDef{
			"KNOWS": {From: "Person", To: "Person", PropertyOrder: []string{"from", "to"}},
		},
	)
	require.NoError(t, err)
	return s
}

func vertexBag(t *testing.T, id string) *graphdata.PropertyBag {
	t.Helper()
	b := graphdata.NewPropertyBag()
	b.Set("id", id)
	b.Set("name", "n-"+id)
	return b
}

func edgeBag(t *testing.T, from, to string) *graphdata.PropertyBag {
	t.Helper()
	b := graphdata.NewPropertyBag()
	b.Set("from", from)
	b.Set("to", to)
	return b
}

// rowsOfCount returns a canned ExecuteCypher response whose single scanned
// column is n, mirroring the "RETURN count(n) AS created_vertices"/
// "created_edges" column the generated create statements return.
func rowsOfCount(n int64) func() (executor.Rows, error) {
	return func() (executor.Rows, error) { return executortest.NewRows(n), nil }
}

func newBatchOrchestrator(s schema.Reader) *Orchestrator {
	return &Orchestrator{schema: s, logger: zerolog.Nop()}
}

func TestRunVertexPhaseBatchesAndReportsProgressCadence(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	fake := executortest.New().OnCypher("get_vertices", rowsOfCount(1))
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{
			"Person": {vertexBag(t, "p1"), vertexBag(t, "p2"), vertexBag(t, "p3")},
		},
	}
	opts := Options{BatchSize: 2}

	var processedSamples []uint64
	r := newReporter(time.Now(), func(p LoadProgress) {
		if p.Phase == PhaseVertices {
			processedSamples = append(processedSamples, p.Processed)
			require.Equal(t, uint64(3), p.Total)
		}
	})

	total, warnings, err := o.runVertexPhase(context.Background(), data, fake, stagingMgr, gen, opts, r)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, uint64(2), total) // two batches, each reporting created=1
	require.Equal(t, []uint64{2, 3}, processedSamples)
}

func TestRunVertexPhaseRejectsUnknownTypeWhenStrict(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	fake := executortest.New()
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{"Ghost": {vertexBag(t, "p1")}},
	}
	opts := Options{BatchSize: 10, ContinueOnError: false}

	_, _, err = o.runVertexPhase(context.Background(), data, fake, stagingMgr, gen, opts, newReporter(time.Now(), nil))
	require.Error(t, err)
	require.True(t, errors.Is(err, loaderr.ErrUnknownVertexType))
}

func TestRunVertexPhaseWarnsUnknownTypeWhenPermissive(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	fake := executortest.New().OnCypher("get_vertices", rowsOfCount(1))
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{
			"Ghost":  {vertexBag(t, "p1")},
			"Person": {vertexBag(t, "p2")},
		},
	}
	opts := Options{BatchSize: 10, ContinueOnError: true}

	total, warnings, err := o.runVertexPhase(context.Background(), data, fake, stagingMgr, gen, opts, newReporter(time.Now(), nil))
	require.NoError(t, err)
	require.Equal(t, uint64(1), total) // only the known "Person" type gets created
	require.Contains(t, warnings, "UNKNOWN_VERTEX_TYPE: Ghost")
}

func TestRunEdgePhaseRejectsUnknownTypeWhenStrict(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	fake := executortest.New()
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Edges: map[string][]*graphdata.PropertyBag{"GHOSTS_OF": {edgeBag(t, "p1", "p2")}},
	}
	opts := Options{BatchSize: 10, ContinueOnError: false}

	_, _, err = o.runEdgePhase(context.Background(), data, fake, stagingMgr, gen, opts, newReporter(time.Now(), nil))
	require.Error(t, err)
	require.True(t, errors.Is(err, loaderr.ErrUnknownEdgeType))
}

func TestRunEdgePhaseWarnsUnknownTypeWhenPermissive(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	fake := executortest.New().OnCypher("get_edges", rowsOfCount(1))
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Edges: map[string][]*graphdata.PropertyBag{
			"GHOSTS_OF": {edgeBag(t, "p1", "p2")},
			"KNOWS":     {edgeBag(t, "p1", "p2")},
		},
	}
	opts := Options{BatchSize: 10, ContinueOnError: true}

	total, warnings, err := o.runEdgePhase(context.Background(), data, fake, stagingMgr, gen, opts, newReporter(time.Now(), nil))
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Contains(t, warnings, "UNKNOWN_EDGE_TYPE: GHOSTS_OF")
}

func TestRunEdgePhaseRecordsDanglingEdgesSkippedWarning(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	// Two edges staged per batch, but the helper only reports one created:
	// the other endpoint wasn't found at MATCH time.
	fake := executortest.New().OnCypher("get_edges", rowsOfCount(1))
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Edges: map[string][]*graphdata.PropertyBag{
			"KNOWS": {edgeBag(t, "p1", "p2"), edgeBag(t, "p1", "ghost")},
		},
	}
	opts := Options{BatchSize: 10}

	total, warnings, err := o.runEdgePhase(context.Background(), data, fake, stagingMgr, gen, opts, newReporter(time.Now(), nil))
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Contains(t, warnings, "DANGLING_EDGES_SKIPPED: 1")
}

func TestRunVertexPhaseStopsOnStagingError(t *testing.T) {
	o := newBatchOrchestrator(batchTestSchema(t))
	fake := executortest.New()
	fake.DefaultErr = errors.New("connection reset")
	stagingMgr := staging.NewManager(fake, zerolog.Nop())
	gen, err := cypher.NewGenerator(o.schema, "testgraph", "ageloader")
	require.NoError(t, err)

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{"Person": {vertexBag(t, "p1")}},
	}
	opts := Options{BatchSize: 10}

	_, _, err = o.runVertexPhase(context.Background(), data, fake, stagingMgr, gen, opts, newReporter(time.Now(), nil))
	require.Error(t, err)
}
