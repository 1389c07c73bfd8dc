package readback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/executor/executortest"
	"github.com/ageloader/batchloader/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("1.0",
		[]string{"Person"},
		map[string]schema.VertexDef{"Person": {Required: []string{"id"}}},
		nil, nil,
	)
	require.NoError(t, err)
	return s
}

func TestBuildRejectsUnknownType(t *testing.T) {
	b := NewBuilder(testSchema(t))
	_, err := b.Build(Query{GraphName: "g", TypeName: "Ghost", IDs: []string{"p1"}})
	require.Error(t, err)
}

func TestBuildRejectsEmptyIDs(t *testing.T) {
	b := NewBuilder(testSchema(t))
	_, err := b.Build(Query{GraphName: "g", TypeName: "Person"})
	require.Error(t, err)
}

func TestBuildEscapesQuotesInIDs(t *testing.T) {
	b := NewBuilder(testSchema(t))
	text, err := b.Build(Query{GraphName: "g", TypeName: "Person", IDs: []string{`p"1`}})
	require.NoError(t, err)
	require.Contains(t, text, `\"1`)
}

func TestVerifyIDsReturnsFoundSubset(t *testing.T) {
	fake := executortest.New()
	fake.OnCypher("MATCH (n:Person)", func() (executor.Rows, error) {
		return executortest.NewRows("p1", "p2"), nil
	})

	b := NewBuilder(testSchema(t))
	found, err := VerifyIDs(context.Background(), fake, b, Query{GraphName: "g", TypeName: "Person", IDs: []string{"p1", "p2", "p3"}})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"p1", "p2"}, found)
}
