// Package cypher generates the small, templated family of Cypher
// statements the loader ever emits, plus the one-time graph/label
// bootstrap statements. The wrapping shape
// (SELECT * FROM cypher('<graph>', $q$ ... $q$) AS (col agtype)) and the
// create_graph/create_vlabel/create_elabel bootstrap sequence are
// grounded on sdk/graph/sync.go in the donor codebase; unlike that file,
// no payload value is ever interpolated into the string here — only
// whitelisted identifiers (graph name, type names, property names) are,
// and all of those are validated against identifierPattern before they
// touch a template.
package cypher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ageloader/batchloader/internal/loaderr"
	"github.com/ageloader/batchloader/internal/schema"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return loaderr.NewConfigurationError(
			fmt.Sprintf("%s %q does not match [A-Za-z_][A-Za-z0-9_]*", kind, name), loaderr.ErrInvalidIdentifier)
	}
	return nil
}

// Generator renders the vertex-create and edge-create Cypher templates
// for one schema and graph.
type Generator struct {
	schema    schema.Reader
	graphName string
	schemaNs  string
}

// NewGenerator validates graphName and schemaNs against the identifier
// pattern (they are interpolated into templates, so they must be
// whitelisted before anything else happens).
func NewGenerator(s schema.Reader, graphName, schemaNs string) (*Generator, error) {
	if err := validateIdentifier("graph name", graphName); err != nil {
		return nil, err
	}
	if err := validateIdentifier("schema namespace", schemaNs); err != nil {
		return nil, err
	}
	return &Generator{schema: s, graphName: graphName, schemaNs: schemaNs}, nil
}

// VertexCreateCypher renders the create-vertex template for vertexType,
// enumerating its properties (excluding "id", handled specially) in
// schema declaration order.
func (g *Generator) VertexCreateCypher(vertexType string) (string, error) {
	if err := validateIdentifier("vertex type", vertexType); err != nil {
		return "", err
	}
	if _, isVertex := g.schema.VertexDef(vertexType); !isVertex {
		return "", loaderr.NewConfigurationError(
			fmt.Sprintf("SCHEMA_UNKNOWN_TYPE: vertex type %q is not defined in schema", vertexType),
			loaderr.ErrSchemaUnknownType)
	}
	order, _ := g.schema.PropertyOrderOf(vertexType)

	var props []string
	for _, p := range order {
		if p == "id" {
			continue
		}
		if err := validateIdentifier("property", p); err != nil {
			return "", err
		}
		props = append(props, fmt.Sprintf("%s: CASE WHEN v.%s IS NOT NULL THEN v.%s ELSE NULL END", p, p, p))
	}

	propsBlock := "id: v.id"
	if len(props) > 0 {
		propsBlock += ",\n                " + strings.Join(props, ",\n                ")
	}

	return fmt.Sprintf(`SELECT * FROM cypher('%s', $q$
  UNWIND %s.get_vertices('%s') AS v
  CREATE (n:%s { %s })
  RETURN count(n) AS created_vertices
$q$) AS (created_vertices agtype);`, g.graphName, g.schemaNs, vertexType, vertexType, propsBlock), nil
}

// EdgeCreateCypher renders the create-edge template for edgeType,
// enumerating its properties (excluding "from"/"to") in schema
// declaration order.
func (g *Generator) EdgeCreateCypher(edgeType string) (string, error) {
	if err := validateIdentifier("edge type", edgeType); err != nil {
		return "", err
	}
	def, ok := g.schema.EdgeDef(edgeType)
	if !ok {
		return "", loaderr.NewConfigurationError(
			fmt.Sprintf("SCHEMA_UNKNOWN_TYPE: edge type %q is not defined in schema", edgeType),
			loaderr.ErrSchemaUnknownType)
	}
	if err := validateIdentifier("vertex type", def.From); err != nil {
		return "", err
	}
	if err := validateIdentifier("vertex type", def.To); err != nil {
		return "", err
	}

	order, _ := g.schema.PropertyOrderOf(edgeType)
	var props []string
	for _, p := range order {
		if p == "from" || p == "to" {
			continue
		}
		if err := validateIdentifier("property", p); err != nil {
			return "", err
		}
		props = append(props, fmt.Sprintf("%s: CASE WHEN e.%s IS NOT NULL THEN e.%s ELSE NULL END", p, p, p))
	}
	propsBlock := strings.Join(props, ", ")

	return fmt.Sprintf(`SELECT * FROM cypher('%s', $q$
  UNWIND %s.get_edges('%s') AS e
  MATCH (a:%s { id: e.from })
  MATCH (b:%s { id: e.to })
  CREATE (a)-[r:%s { %s }]->(b)
  RETURN count(r) AS created_edges
$q$) AS (created_edges agtype);`, g.graphName, g.schemaNs, edgeType, def.From, def.To, edgeType, propsBlock), nil
}
