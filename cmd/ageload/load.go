package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/helperfn"
	"github.com/ageloader/batchloader/internal/metrics"
	"github.com/ageloader/batchloader/internal/orchestrator"
	"github.com/ageloader/batchloader/internal/pgexec"
	"github.com/ageloader/batchloader/internal/schema"
)

type loadOptions struct {
	DataPath        string
	GraphName       string
	BatchSize       uint32
	ContinueOnError bool
	NoValidate      bool
}

func newLoadCmd(app *appContext, flags *rootFlags) *cobra.Command {
	opts := loadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Validate and load a graph data payload into the configured graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), app, flags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DataPath, "data", "", "Path to the graph data JSON payload (required)")
	cmd.Flags().StringVar(&opts.GraphName, "graph", "", "Graph name override (defaults to config)")
	cmd.Flags().Uint32Var(&opts.BatchSize, "batch-size", 0, "Batch size override (defaults to config)")
	cmd.Flags().BoolVar(&opts.ContinueOnError, "continue-on-error", false, "Drop invalid records and warn instead of aborting the load")
	cmd.Flags().BoolVar(&opts.NoValidate, "no-validate", false, "Skip the pre-load validation pass")
	cmd.MarkFlagRequired("data") //nolint:errcheck

	return cmd
}

func runLoad(ctx context.Context, app *appContext, flags *rootFlags, opts loadOptions) error {
	cfg, err := loadEffectiveConfig(app, flags)
	if err != nil {
		return err
	}

	s, err := schema.LoadFromFile(flags.schemaPath)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	data, err := loadGraphDataFile(opts.DataPath)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	pool, err := pgexec.NewPool(ctx, cfg, app.logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	installer := helperfn.NewInstaller(cfg.DatabaseURL, cfg.SchemaNamespace, app.logger)
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	orch := orchestrator.New(pool, s, installer, cfg, collector, app.logger)

	callOpts := orchestrator.DefaultOptions(cfg)
	if opts.GraphName != "" {
		callOpts.GraphName = opts.GraphName
	}
	if opts.BatchSize > 0 {
		callOpts.BatchSize = opts.BatchSize
	}
	callOpts.ContinueOnError = opts.ContinueOnError
	callOpts.ValidateBeforeLoad = !opts.NoValidate
	callOpts.OnProgress = func(p orchestrator.LoadProgress) {
		app.logger.Info().
			Str("phase", string(p.Phase)).
			Str("type", p.Type).
			Uint64("processed", p.Processed).
			Uint64("total", p.Total).
			Uint8("percentage", p.Percentage).
			Msg("load progress")
	}

	result, err := orch.LoadGraphData(ctx, data, callOpts)
	for _, w := range result.Warnings {
		app.logger.Warn().Msg(w)
	}
	if err != nil {
		return fmt.Errorf("load failed (correlationId=%s): %w", result.CorrelationID, err)
	}

	fmt.Fprintf(os.Stdout, "loaded %d vertices and %d edges in %dms (correlationId=%s)\n",
		result.VertexCount, result.EdgeCount, result.DurationMs, result.CorrelationID)
	return nil
}

func loadGraphDataFile(path string) (*graphdata.GraphData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data graphdata.GraphData
	dec := json.NewDecoder(f)
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
