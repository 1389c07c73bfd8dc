package cypher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ageloader/batchloader/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("1.0",
		[]string{"Person"},
		map[string]schema.VertexDef{
			"Person": {
				Properties:    map[string]schema.PropSpec{"name": {Type: schema.PropString}},
				PropertyOrder: []string{"id", "name"},
				Required:      []string{"id"},
			},
		},
		[]string{"KNOWS"},
		map[string]schema.EdgeDef{
			"KNOWS": {
				Properties:    map[string]schema.PropSpec{"since": {Type: schema.PropNumber}},
				PropertyOrder: []string{"from", "to", "since"},
				From:          "Person",
				To:            "Person",
			},
		},
	)
	require.NoError(t, err)
	return s
}

func TestNewGeneratorRejectsInvalidIdentifiers(t *testing.T) {
	_, err := NewGenerator(testSchema(t), "bad graph name", "ns")
	require.Error(t, err)
}

func TestVertexCreateCypherRendersSchemaOrder(t *testing.T) {
	g, err := NewGenerator(testSchema(t), "g", "ageloader")
	require.NoError(t, err)

	text, err := g.VertexCreateCypher("Person")
	require.NoError(t, err)
	require.Contains(t, text, "ageloader.get_vertices('Person')")
	require.Contains(t, text, "CREATE (n:Person")
	require.Contains(t, text, "id: v.id")
	require.Contains(t, text, "name: CASE WHEN v.name IS NOT NULL THEN v.name ELSE NULL END")
}

func TestVertexCreateCypherRejectsUnknownType(t *testing.T) {
	g, err := NewGenerator(testSchema(t), "g", "ageloader")
	require.NoError(t, err)

	_, err = g.VertexCreateCypher("Ghost")
	require.Error(t, err)
}

func TestEdgeCreateCypherRendersEndpointsAndProperties(t *testing.T) {
	g, err := NewGenerator(testSchema(t), "g", "ageloader")
	require.NoError(t, err)

	text, err := g.EdgeCreateCypher("KNOWS")
	require.NoError(t, err)
	require.Contains(t, text, "ageloader.get_edges('KNOWS')")
	require.Contains(t, text, "MATCH (a:Person { id: e.from })")
	require.Contains(t, text, "MATCH (b:Person { id: e.to })")
	require.Contains(t, text, "CREATE (a)-[r:KNOWS")
	require.NotContains(t, text, "from: CASE")
}

func TestVertexCreateCypherRejectsMaliciousPropertyName(t *testing.T) {
	s, err := schema.New("1.0",
		[]string{"Person"},
		map[string]schema.VertexDef{
			"Person": {
				Properties:    map[string]schema.PropSpec{"x": {Type: schema.PropString}},
				PropertyOrder: []string{"id", "x}); DETACH DELETE n //"},
				Required:      []string{"id"},
			},
		}, nil, nil)
	require.NoError(t, err)

	g, err := NewGenerator(s, "g", "ageloader")
	require.NoError(t, err)
	_, err = g.VertexCreateCypher("Person")
	require.Error(t, err)
}
