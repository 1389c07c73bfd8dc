// Package orchestrator implements the Loader Orchestrator: the component
// that owns the connection and transaction for one loadGraphData call,
// drives the vertex-then-edge batching algorithm, reports progress, and
// commits or rolls back atomically. Grounded in shape on
// sdk/registry/service.go's Service (a top-level struct owning a pool and
// exposing a small set of public entry points) and sdk/dal/dal.go's
// pre/post-hook-around-a-core-operation style, adapted from CRUD-with-
// hooks semantics to validate-then-stage-then-execute-then-report.
package orchestrator

import (
	"github.com/google/uuid"

	"github.com/ageloader/batchloader/internal/config"
	"github.com/ageloader/batchloader/internal/loaderr"
)

// Phase is one of the four stages a LoadProgress event can report.
type Phase string

const (
	PhaseValidation Phase = "validation"
	PhaseVertices   Phase = "vertices"
	PhaseEdges      Phase = "edges"
	PhaseCleanup    Phase = "cleanup"
)

// Options configures one loadGraphData call, overriding the loader's
// construction-time Config where noted.
type Options struct {
	GraphName            string
	BatchSize            uint32
	ValidateBeforeLoad   bool
	ContinueOnError      bool
	TransactionTimeoutMs uint32
	IsolationLevel       config.IsolationLevel
	OnProgress           func(LoadProgress)
	CollectWarnings      bool
}

// DefaultOptions derives per-call defaults from the loader's Config.
func DefaultOptions(cfg config.Config) Options {
	return Options{
		GraphName:            cfg.DefaultGraphName,
		BatchSize:            cfg.DefaultBatchSize,
		ValidateBeforeLoad:   cfg.ValidateBeforeLoad,
		ContinueOnError:      false,
		TransactionTimeoutMs: cfg.DefaultTransactionTimeoutMs,
		IsolationLevel:       cfg.DefaultIsolationLevel,
		CollectWarnings:      true,
	}
}

func validateOptions(o Options) error {
	if o.BatchSize < 1 {
		return loaderr.NewConfigurationError("batchSize must be >= 1", loaderr.ErrInvalidBatchSize)
	}
	if o.TransactionTimeoutMs < 1 {
		return loaderr.NewConfigurationError("transactionTimeoutMs must be >= 1", nil)
	}
	switch o.IsolationLevel {
	case config.ReadCommitted, config.RepeatableRead, config.Serializable:
	default:
		return loaderr.NewConfigurationError("unknown isolation level "+string(o.IsolationLevel), nil)
	}
	if o.GraphName == "" {
		return loaderr.NewConfigurationError("graphName must not be empty", nil)
	}
	return nil
}

// LoadResult is the Orchestrator's report on one loadGraphData call.
type LoadResult struct {
	Success       bool
	VertexCount   uint64
	EdgeCount     uint64
	DurationMs    uint64
	Warnings      []string
	Errors        []error
	CorrelationID uuid.UUID
}

// ProgressError is the optional error attached to a LoadProgress event.
type ProgressError struct {
	Message     string
	Kind        loaderr.Kind
	Recoverable bool
}

// LoadProgress is one progress sample emitted during a loadGraphData
// call.
type LoadProgress struct {
	Phase                 Phase
	Type                  string
	Processed             uint64
	Total                 uint64
	Percentage            uint8
	ElapsedMs             uint64
	EstimatedRemainingMs  *uint64
	Error                 *ProgressError
}
