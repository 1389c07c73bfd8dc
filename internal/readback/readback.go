// Package readback implements the optional post-load verification helper
// spec section 4.6 permits but does not require: a small Cypher query
// builder for asserting that a set of ids landed in the graph after a
// loadGraphData call. It has no production path into the Orchestrator;
// it exists for callers (and this repo's own test suite) that want to
// assert round-trip properties without hand-writing Cypher.
//
// Condition/Query is adapted from sdk/query/builder.go's SQL builder: the
// same "validate field against a whitelist, then build" shape, retargeted
// at MATCH/WHERE n.id IN [...] instead of SQL WHERE clauses, since Cypher
// here takes no bound parameters either.
package readback

import (
	"context"
	"fmt"
	"strings"

	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/loaderr"
	"github.com/ageloader/batchloader/internal/schema"
)

// Query asks "of these candidate ids, which ones exist as TypeName nodes
// in the graph right now". TypeName may name a vertex or an edge type of
// the schema, but the rendered MATCH (n:TypeName) pattern matches
// vertices only, so an edge type name finds no ids.
type Query struct {
	GraphName string
	TypeName  string
	IDs       []string
}

// Builder renders Query values into read-only Cypher, validating
// TypeName against the schema before it ever touches a string template.
type Builder struct {
	schema schema.Reader
}

func NewBuilder(s schema.Reader) *Builder {
	return &Builder{schema: s}
}

// Build renders a MATCH ... WHERE n.id IN [...] RETURN n.id Cypher
// statement. Every id is quoted and escaped individually: ids are
// payload data, not identifiers, so they are values embedded in the
// Cypher list literal rather than identifiers spliced into the
// template — Cypher's lack of bound parameters leaves no other way to
// pass them, same as the staging protocol's UNWIND-over-age_params
// approach, just inlined instead of staged since this is a read-only
// diagnostic path with no batching requirement.
func (b *Builder) Build(q Query) (string, error) {
	if err := validateGraphAndType(b.schema, q.GraphName, q.TypeName); err != nil {
		return "", err
	}
	if len(q.IDs) == 0 {
		return "", fmt.Errorf("readback: at least one id is required")
	}

	quoted := make([]string, len(q.IDs))
	for i, id := range q.IDs {
		quoted[i] = quoteCypherString(id)
	}

	return fmt.Sprintf(`SELECT * FROM cypher('%s', $q$
  MATCH (n:%s)
  WHERE n.id IN [%s]
  RETURN n.id
$q$) AS (id agtype);`, q.GraphName, q.TypeName, strings.Join(quoted, ", ")), nil
}

func quoteCypherString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

func validateGraphAndType(s schema.Reader, graphName, typeName string) error {
	if !validIdentifier(graphName) {
		return loaderr.NewConfigurationError(fmt.Sprintf("graph name %q is not a valid identifier", graphName), loaderr.ErrInvalidIdentifier)
	}
	if !validIdentifier(typeName) {
		return loaderr.NewConfigurationError(fmt.Sprintf("type name %q is not a valid identifier", typeName), loaderr.ErrInvalidIdentifier)
	}
	_, isVertex := s.VertexDef(typeName)
	_, isEdge := s.EdgeDef(typeName)
	if !isVertex && !isEdge {
		return loaderr.NewConfigurationError(fmt.Sprintf("SCHEMA_UNKNOWN_TYPE: %q is not defined in schema", typeName), loaderr.ErrSchemaUnknownType)
	}
	return nil
}

// VerifyIDs runs Query and returns the subset of q.IDs actually found in
// the graph, for callers asserting "every id I loaded is readable back".
func VerifyIDs(ctx context.Context, exec executor.QueryExecutor, b *Builder, q Query) ([]string, error) {
	cypherText, err := b.Build(q)
	if err != nil {
		return nil, err
	}
	rows, err := exec.ExecuteCypher(ctx, cypherText, nil, q.GraphName)
	if err != nil {
		return nil, loaderr.NewExecutionError("read-back verification query", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var raw interface{}
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		switch v := raw.(type) {
		case string:
			found = append(found, strings.Trim(v, `"`))
		case []byte:
			found = append(found, strings.Trim(string(v), `"`))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return found, nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
