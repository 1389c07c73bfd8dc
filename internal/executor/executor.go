// Package executor declares the QueryExecutor capability the Orchestrator
// consumes: a capability to execute parameterized SQL or Cypher and get
// rows back, respecting the caller's transaction. It is intentionally
// minimal and driver-agnostic — the concrete pgx-backed implementation
// lives in internal/pgexec, and tests substitute a hand-written fake
// rather than respecifying this contract.
package executor

import "context"

// Rows is the narrow row-scanning surface the loader needs. pgx.Rows
// already satisfies this shape.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Values() ([]interface{}, error)
	Close()
	Err() error
}

// QueryExecutor executes parameterized SQL or Cypher against the caller's
// bound connection/transaction.
type QueryExecutor interface {
	// ExecuteSQL runs ordinary parameterized SQL (staging table writes,
	// helper-function bookkeeping, read-back verification).
	ExecuteSQL(ctx context.Context, text string, params ...interface{}) (Rows, error)

	// ExecuteCypher runs a pre-rendered Cypher statement. paramNameMap is
	// reserved for substituting Cypher identifiers (never values) in a
	// future extension; the templated vertex/edge-create family emitted
	// by internal/cypher never needs it and passes nil.
	ExecuteCypher(ctx context.Context, text string, paramNameMap map[string]string, graphName string) (Rows, error)
}
