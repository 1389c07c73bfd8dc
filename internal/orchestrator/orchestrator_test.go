package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/config"
	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/validate"
)

func TestChunkSplitsEvenlyAndRemainder(t *testing.T) {
	items := make([]*graphdata.PropertyBag, 7)
	for i := range items {
		items[i] = graphdata.NewPropertyBag()
	}
	chunks := chunk(items, 3)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 3)
	require.Len(t, chunks[1], 3)
	require.Len(t, chunks[2], 1)
}

func TestChunkClampsInvalidSize(t *testing.T) {
	items := []*graphdata.PropertyBag{graphdata.NewPropertyBag(), graphdata.NewPropertyBag()}
	chunks := chunk(items, 0)
	require.Len(t, chunks, 2)
}

func TestParseAgtypeCountHandlesRepresentations(t *testing.T) {
	cases := []struct {
		raw  interface{}
		want uint64
	}{
		{int64(5), 5},
		{int32(5), 5},
		{float64(5), 5},
		{"5", 5},
		{[]byte("5"), 5},
		{nil, 0},
	}
	for _, c := range cases {
		got, err := parseAgtypeCount(c.raw)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestParseAgtypeCountRejectsUnsupportedType(t *testing.T) {
	_, err := parseAgtypeCount(struct{}{})
	require.Error(t, err)
}

func TestDropInvalidRemovesOnlyFlaggedIndices(t *testing.T) {
	good := graphdata.NewPropertyBag()
	good.Set("id", "p1")
	good.Set("name", "Ada")
	bad := graphdata.NewPropertyBag()
	bad.Set("id", "p2")

	data := &graphdata.GraphData{
		Vertices: map[string][]*graphdata.PropertyBag{"Person": {good, bad}},
	}
	report := validate.ValidationReport{
		Errors: []validate.ValError{{Type: "Person", Index: 1, Property: "name", Kind: validate.MissingRequired}},
	}

	out := dropInvalid(data, report)
	require.Len(t, out.Vertices["Person"], 1)
	id, _ := out.Vertices["Person"][0].ID()
	require.Equal(t, "p1", id)
}

func TestValidateOptionsRejectsZeroBatchSize(t *testing.T) {
	opts := Options{GraphName: "g", BatchSize: 0, TransactionTimeoutMs: 1000}
	err := validateOptions(opts)
	require.Error(t, err)
}

func TestValidateOptionsRejectsEmptyGraphName(t *testing.T) {
	opts := Options{BatchSize: 1, TransactionTimeoutMs: 1000, IsolationLevel: config.ReadCommitted}
	err := validateOptions(opts)
	require.Error(t, err)
}
