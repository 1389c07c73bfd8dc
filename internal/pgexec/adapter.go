// Package pgexec adapts github.com/jackc/pgx/v5 to the executor.QueryExecutor
// capability, grounded on services/dal-service/query_executor.go's
// Exec/Query/QueryRow usage in the donor codebase. pgx.Rows already
// satisfies executor.Rows, so the adapter is a thin pass-through rather
// than a full reimplementation.
package pgexec

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ageloader/batchloader/internal/executor"
)

// TxExecutor runs statements against a single pinned transaction, which is
// exactly the "Orchestrator owns the connection/transaction for the whole
// call" contract from the data model's ownership section.
type TxExecutor struct {
	tx pgx.Tx
}

func NewTxExecutor(tx pgx.Tx) *TxExecutor {
	return &TxExecutor{tx: tx}
}

func (e *TxExecutor) ExecuteSQL(ctx context.Context, text string, params ...interface{}) (executor.Rows, error) {
	rows, err := e.tx.Query(ctx, text, params...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *TxExecutor) ExecuteCypher(ctx context.Context, text string, _ map[string]string, _ string) (executor.Rows, error) {
	rows, err := e.tx.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

var _ executor.QueryExecutor = (*TxExecutor)(nil)
