package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ageloader/batchloader/internal/config"
	"github.com/ageloader/batchloader/internal/cypher"
	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/helperfn"
	"github.com/ageloader/batchloader/internal/loaderr"
	"github.com/ageloader/batchloader/internal/metrics"
	"github.com/ageloader/batchloader/internal/pgexec"
	"github.com/ageloader/batchloader/internal/schema"
	"github.com/ageloader/batchloader/internal/staging"
	"github.com/ageloader/batchloader/internal/validate"
)

// Orchestrator is the loader's only public entry point, exposing exactly
// loadGraphData and validateGraphData as the external-interfaces section
// requires.
type Orchestrator struct {
	pool      *pgxpool.Pool
	schema    schema.Reader
	installer *helperfn.Installer
	cfg       config.Config
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

func New(pool *pgxpool.Pool, s schema.Reader, installer *helperfn.Installer, cfg config.Config, collector *metrics.Collector, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{pool: pool, schema: s, installer: installer, cfg: cfg, metrics: collector, logger: logger}
}

// ValidateGraphData runs the Validator without touching the database.
func (o *Orchestrator) ValidateGraphData(data *graphdata.GraphData) (validate.ValidationReport, error) {
	v := validate.NewValidator(o.schema, validate.DefaultPolicy())
	return v.ValidateData(data)
}

func isoLevel(level config.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case config.RepeatableRead:
		return pgx.RepeatableRead
	case config.Serializable:
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

func elapsedMs(start time.Time) uint64 {
	return uint64(time.Since(start).Milliseconds())
}

// LoadGraphData is the Orchestrator's core operation: acquire a
// connection, open a transaction, validate, stage and create vertices
// then edges batch by batch, and commit or roll back atomically.
func (o *Orchestrator) LoadGraphData(ctx context.Context, data *graphdata.GraphData, opts Options) (LoadResult, error) {
	start := time.Now()
	correlationID := uuid.New()
	log := o.logger.With().Str("correlationId", correlationID.String()).Logger()

	if err := validateOptions(opts); err != nil {
		return LoadResult{Success: false, Errors: []error{err}, CorrelationID: correlationID}, err
	}
	if data == nil {
		data = &graphdata.GraphData{}
	}

	deadline := time.Duration(opts.TransactionTimeoutMs) * time.Millisecond
	txCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	conn, err := o.pool.Acquire(txCtx)
	if err != nil {
		cerr := loaderr.NewConnectionError("acquire connection", err)
		return LoadResult{Success: false, Errors: []error{cerr}, CorrelationID: correlationID}, cerr
	}
	defer conn.Release()

	tx, err := conn.BeginTx(txCtx, pgx.TxOptions{IsoLevel: isoLevel(opts.IsolationLevel)})
	if err != nil {
		terr := loaderr.NewTransactionError("begin", err)
		return LoadResult{Success: false, Errors: []error{terr}, CorrelationID: correlationID}, terr
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn().Err(rbErr).Msg("rollback failed after earlier fatal error")
		}
	}()

	exec := pgexec.NewTxExecutor(tx)
	stagingMgr := staging.NewManager(exec, log)
	reporter := newReporter(start, opts.OnProgress)
	result := LoadResult{CorrelationID: correlationID}

	fail := func(err error) (LoadResult, error) {
		result.Success = false
		result.VertexCount = 0
		result.EdgeCount = 0
		result.DurationMs = elapsedMs(start)
		result.Errors = append(result.Errors, err)
		if k, ok := loaderr.KindOf(err); ok {
			reporter.emit(PhaseCleanup, "", 0, 0, &ProgressError{Message: err.Error(), Kind: k})
		}
		return result, err
	}

	if err := o.installer.EnsureInstalled(txCtx); err != nil {
		return fail(loaderr.NewConfigurationError("install helper functions", err))
	}
	if err := cypher.EnsureGraphInitialized(txCtx, exec, opts.GraphName, o.schema); err != nil {
		return fail(err)
	}

	if opts.ValidateBeforeLoad {
		policy := validate.Policy{ValidateTypes: true, ValidateRequired: true, AllowUnknownProperties: true}
		v := validate.NewValidator(o.schema, policy)
		report, _ := v.ValidateData(data)
		if !report.Valid {
			if !opts.ContinueOnError {
				errs := make([]error, 0, len(report.Errors))
				for _, e := range report.Errors {
					cause := loaderr.ErrMissingRequiredProperty
					switch e.Kind {
					case validate.TypeMismatch:
						cause = loaderr.ErrTypeMismatch
					case validate.ConstraintViolation:
						cause = loaderr.ErrConstraintViolation
					case validate.UnknownType:
						cause = loaderr.ErrUnknownEdgeType
						if _, isVertex := data.Vertices[e.Type]; isVertex {
							cause = loaderr.ErrUnknownVertexType
						}
					}
					errs = append(errs, loaderr.NewValidationError(
						fmt.Sprintf("%s: %s[%d].%s: %s", e.Kind, e.Type, e.Index, e.Property, e.Message),
						cause))
				}
				result.Success = false
				result.DurationMs = elapsedMs(start)
				result.Errors = errs
				reporter.emit(PhaseValidation, "", 0, 0, &ProgressError{
					Message: "validation failed under strict policy", Kind: loaderr.KindValidation})
				return result, loaderr.NewValidationError("graph data failed validation", loaderr.ErrValidationFailed)
			}
			data = dropInvalid(data, report)
			if opts.CollectWarnings {
				for _, e := range report.Errors {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("%s: %s[%d].%s: %s (dropped under continueOnError)", e.Kind, e.Type, e.Index, e.Property, e.Message))
				}
			}
		}
		if opts.CollectWarnings {
			result.Warnings = append(result.Warnings, report.Warnings...)
		}
	}

	gen, err := cypher.NewGenerator(o.schema, opts.GraphName, o.cfg.SchemaNamespace)
	if err != nil {
		return fail(err)
	}

	vertexCount, vWarnings, err := o.runVertexPhase(txCtx, data, exec, stagingMgr, gen, opts, reporter)
	if err != nil {
		return fail(err)
	}
	result.VertexCount = vertexCount
	if opts.CollectWarnings {
		result.Warnings = append(result.Warnings, vWarnings...)
	}

	edgeCount, eWarnings, err := o.runEdgePhase(txCtx, data, exec, stagingMgr, gen, opts, reporter)
	if err != nil {
		return fail(err)
	}
	result.EdgeCount = edgeCount
	if opts.CollectWarnings {
		result.Warnings = append(result.Warnings, eWarnings...)
	}

	if err := stagingMgr.ClearAll(txCtx); err != nil {
		log.Warn().Err(err).Msg("final staging clear failed; pool release hook will still truncate")
	}

	if err := tx.Commit(txCtx); err != nil {
		return fail(loaderr.NewTransactionError("commit", err))
	}
	committed = true

	result.Success = true
	result.DurationMs = elapsedMs(start)
	reporter.emit(PhaseCleanup, "", 1, 1, nil)
	return result, nil
}

// runVertexPhase implements algorithm step 4: for each vertex type known
// to the schema, in declaration order, split into batches, stage, create,
// clear, and report progress. Types present in the payload but unknown to
// the schema are warned about (permissive) or fatal (strict).
func (o *Orchestrator) runVertexPhase(ctx context.Context, data *graphdata.GraphData, exec executor.QueryExecutor, stagingMgr *staging.Manager, gen *cypher.Generator, opts Options, reporter *reporter) (uint64, []string, error) {
	var total uint64
	var warnings []string

	known := make(map[string]bool)
	for _, t := range o.schema.VertexTypes() {
		known[t] = true
	}
	for _, t := range sortedKeys(data.Vertices) {
		if known[t] {
			continue
		}
		if opts.ContinueOnError {
			warnings = append(warnings, fmt.Sprintf("UNKNOWN_VERTEX_TYPE: %s", t))
			continue
		}
		return total, warnings, loaderr.NewValidationError(
			fmt.Sprintf("unknown vertex type %q present in payload", t), loaderr.ErrUnknownVertexType)
	}

	for _, t := range o.schema.VertexTypes() {
		items := data.Vertices[t]
		if len(items) == 0 {
			continue
		}
		totalForType := uint64(len(items))
		var processed uint64
		for _, batch := range chunk(items, int(opts.BatchSize)) {
			batchStart := time.Now()
			err := stagingMgr.Store(ctx, "vertex_"+t, batch)
			o.metrics.ObserveStagingWrite(time.Since(batchStart))
			if err != nil {
				o.metrics.ObserveBatch("vertices", t, "error", time.Since(batchStart))
				return total, warnings, err
			}
			cypherText, err := gen.VertexCreateCypher(t)
			if err != nil {
				return total, warnings, err
			}
			created, err := execCreate(ctx, exec, cypherText)
			if err != nil {
				o.metrics.ObserveBatch("vertices", t, "error", time.Since(batchStart))
				return total, warnings, loaderr.NewExecutionError(fmt.Sprintf("create vertices for type %q", t), err)
			}
			o.metrics.ObserveBatch("vertices", t, "ok", time.Since(batchStart))
			o.metrics.AddVerticesCreated(created)
			total += created
			processed += uint64(len(batch))
			reporter.emit(PhaseVertices, t, processed, totalForType, nil)
		}
		if err := stagingMgr.Clear(ctx, "vertex_"+t); err != nil {
			return total, warnings, err
		}
	}
	return total, warnings, nil
}

// runEdgePhase implements algorithm step 5: same shape as the vertex
// phase, run strictly after it, plus the DANGLING_EDGES_SKIPPED warning
// when the engine creates fewer edges than the batch size (endpoints
// absent at MATCH time).
func (o *Orchestrator) runEdgePhase(ctx context.Context, data *graphdata.GraphData, exec executor.QueryExecutor, stagingMgr *staging.Manager, gen *cypher.Generator, opts Options, reporter *reporter) (uint64, []string, error) {
	var total uint64
	var warnings []string

	known := make(map[string]bool)
	for _, t := range o.schema.EdgeTypes() {
		known[t] = true
	}
	for _, t := range sortedKeys(data.Edges) {
		if known[t] {
			continue
		}
		if opts.ContinueOnError {
			warnings = append(warnings, fmt.Sprintf("UNKNOWN_EDGE_TYPE: %s", t))
			continue
		}
		return total, warnings, loaderr.NewValidationError(
			fmt.Sprintf("unknown edge type %q present in payload", t), loaderr.ErrUnknownEdgeType)
	}

	for _, t := range o.schema.EdgeTypes() {
		items := data.Edges[t]
		if len(items) == 0 {
			continue
		}
		totalForType := uint64(len(items))
		var processed uint64
		for _, batch := range chunk(items, int(opts.BatchSize)) {
			batchStart := time.Now()
			err := stagingMgr.Store(ctx, "edge_"+t, batch)
			o.metrics.ObserveStagingWrite(time.Since(batchStart))
			if err != nil {
				o.metrics.ObserveBatch("edges", t, "error", time.Since(batchStart))
				return total, warnings, err
			}
			cypherText, err := gen.EdgeCreateCypher(t)
			if err != nil {
				return total, warnings, err
			}
			created, err := execCreate(ctx, exec, cypherText)
			if err != nil {
				o.metrics.ObserveBatch("edges", t, "error", time.Since(batchStart))
				return total, warnings, loaderr.NewExecutionError(fmt.Sprintf("create edges for type %q", t), err)
			}
			o.metrics.ObserveBatch("edges", t, "ok", time.Since(batchStart))
			o.metrics.AddEdgesCreated(created)
			total += created
			processed += uint64(len(batch))
			if delta := uint64(len(batch)) - created; delta > 0 {
				warnings = append(warnings, fmt.Sprintf("DANGLING_EDGES_SKIPPED: %d", delta))
			}
			reporter.emit(PhaseEdges, t, processed, totalForType, nil)
		}
		if err := stagingMgr.Clear(ctx, "edge_"+t); err != nil {
			return total, warnings, err
		}
	}
	return total, warnings, nil
}

func execCreate(ctx context.Context, exec executor.QueryExecutor, cypherText string) (uint64, error) {
	rows, err := exec.ExecuteCypher(ctx, cypherText, nil, "")
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var raw interface{}
	if err := rows.Scan(&raw); err != nil {
		return 0, err
	}
	return parseAgtypeCount(raw)
}

// parseAgtypeCount is deliberately forgiving about how a driver surfaces
// an agtype scalar it has no custom codec for (string, []byte, or a
// numeric Go type depending on pgx's fallback text/binary decoding) —
// the same simplification the donor codebase's SyncManager.Query accepts
// ("Parse AGE result - simplified").
func parseAgtypeCount(raw interface{}) (uint64, error) {
	switch v := raw.(type) {
	case int64:
		return uint64(v), nil
	case int32:
		return uint64(v), nil
	case int:
		return uint64(v), nil
	case float64:
		return uint64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse agtype count %q: %w", v, err)
		}
		return uint64(n), nil
	case []byte:
		return parseAgtypeCount(string(v))
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported agtype count representation %T", raw)
	}
}

func chunk(items []*graphdata.PropertyBag, size int) [][]*graphdata.PropertyBag {
	if size < 1 {
		size = 1
	}
	var chunks [][]*graphdata.PropertyBag
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func sortedKeys(m map[string][]*graphdata.PropertyBag) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dropInvalid removes, under the permissive policy, exactly the payload
// elements the validator reported an error for, leaving the rest of the
// batch plan intact for that type.
func dropInvalid(data *graphdata.GraphData, report validate.ValidationReport) *graphdata.GraphData {
	badVertex := make(map[string]map[int]bool)
	badEdge := make(map[string]map[int]bool)
	for _, e := range report.Errors {
		// A ValError's Type is ambiguous between vertex/edge namespaces
		// only if the same name is used for both; Validate() does not
		// reject an edge type and a vertex type sharing a name, so check
		// both maps below.
		if _, ok := data.Vertices[e.Type]; ok {
			if badVertex[e.Type] == nil {
				badVertex[e.Type] = make(map[int]bool)
			}
			badVertex[e.Type][e.Index] = true
		}
		if _, ok := data.Edges[e.Type]; ok {
			if badEdge[e.Type] == nil {
				badEdge[e.Type] = make(map[int]bool)
			}
			badEdge[e.Type][e.Index] = true
		}
	}

	out := &graphdata.GraphData{
		Vertices: make(map[string][]*graphdata.PropertyBag, len(data.Vertices)),
		Edges:    make(map[string][]*graphdata.PropertyBag, len(data.Edges)),
	}
	for t, items := range data.Vertices {
		bad := badVertex[t]
		kept := make([]*graphdata.PropertyBag, 0, len(items))
		for i, item := range items {
			if bad != nil && bad[i] {
				continue
			}
			kept = append(kept, item)
		}
		out.Vertices[t] = kept
	}
	for t, items := range data.Edges {
		bad := badEdge[t]
		kept := make([]*graphdata.PropertyBag, 0, len(items))
		for i, item := range items {
			if bad != nil && bad[i] {
				continue
			}
			kept = append(kept, item)
		}
		out.Edges[t] = kept
	}
	return out
}
