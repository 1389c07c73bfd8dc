// Package executortest provides a hand-written fake of
// executor.QueryExecutor for unit tests, standing in for
// DATA-DOG/go-sqlmock (which targets database/sql, not pgx, and so
// cannot mock the pgx.Tx-backed executor.QueryExecutor the Orchestrator
// actually depends on).
package executortest

import (
	"context"
	"strings"
	"sync"

	"github.com/ageloader/batchloader/internal/executor"
)

// Call records one ExecuteSQL/ExecuteCypher invocation for assertions.
type Call struct {
	Kind   string // "sql" or "cypher"
	Text   string
	Params []interface{}
}

// Rows is a canned executor.Rows backed by a slice of pre-built result
// rows, each a single-column scan target.
type Rows struct {
	values []interface{}
	pos    int
}

func NewRows(values ...interface{}) *Rows {
	return &Rows{values: values, pos: -1}
}

func (r *Rows) Next() bool {
	r.pos++
	return r.pos < len(r.values)
}

func (r *Rows) Scan(dest ...interface{}) error {
	ptr, ok := dest[0].(*interface{})
	if ok {
		*ptr = r.values[r.pos]
		return nil
	}
	return nil
}

func (r *Rows) Values() ([]interface{}, error) { return []interface{}{r.values[r.pos]}, nil }
func (r *Rows) Close()                         {}
func (r *Rows) Err() error                     { return nil }

// Executor is a fake executor.QueryExecutor. Registered responders are
// matched by (kind, substring-of-text) in registration order; an
// unmatched call returns DefaultErr if set, or empty rows otherwise.
type Executor struct {
	mu         sync.Mutex
	Calls      []Call
	responders []responder
	DefaultErr error
}

type responder struct {
	kind      string
	substr    string
	rowsFn    func() (executor.Rows, error)
	remaining int // -1 means unlimited
}

func New() *Executor {
	return &Executor{}
}

// OnSQL registers a response for any ExecuteSQL call whose text contains
// substr, returned every time it matches.
func (e *Executor) OnSQL(substr string, rowsFn func() (executor.Rows, error)) *Executor {
	e.responders = append(e.responders, responder{kind: "sql", substr: substr, rowsFn: rowsFn, remaining: -1})
	return e
}

// OnCypher registers a response for any ExecuteCypher call whose text
// contains substr.
func (e *Executor) OnCypher(substr string, rowsFn func() (executor.Rows, error)) *Executor {
	e.responders = append(e.responders, responder{kind: "cypher", substr: substr, rowsFn: rowsFn, remaining: -1})
	return e
}

func (e *Executor) ExecuteSQL(ctx context.Context, text string, params ...interface{}) (executor.Rows, error) {
	return e.dispatch("sql", text, params...)
}

func (e *Executor) ExecuteCypher(ctx context.Context, text string, _ map[string]string, _ string) (executor.Rows, error) {
	return e.dispatch("cypher", text)
}

func (e *Executor) dispatch(kind, text string, params ...interface{}) (executor.Rows, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, Call{Kind: kind, Text: text, Params: params})
	e.mu.Unlock()

	for i := range e.responders {
		r := &e.responders[i]
		if r.kind != kind || r.remaining == 0 {
			continue
		}
		if !strings.Contains(text, r.substr) {
			continue
		}
		if r.remaining > 0 {
			r.remaining--
		}
		return r.rowsFn()
	}
	if e.DefaultErr != nil {
		return nil, e.DefaultErr
	}
	return NewRows(), nil
}

var _ executor.QueryExecutor = (*Executor)(nil)
