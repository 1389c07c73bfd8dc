package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ageloader/batchloader/internal/schema"
	"github.com/ageloader/batchloader/internal/validate"
)

type validateOptions struct {
	DataPath string
}

func newValidateCmd(app *appContext, flags *rootFlags) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a graph data payload against the schema without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(app, flags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DataPath, "data", "", "Path to the graph data JSON payload (required)")
	cmd.MarkFlagRequired("data") //nolint:errcheck

	return cmd
}

func runValidate(app *appContext, flags *rootFlags, opts validateOptions) error {
	s, err := schema.LoadFromFile(flags.schemaPath)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	data, err := loadGraphDataFile(opts.DataPath)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	v := validate.NewValidator(s, validate.DefaultPolicy())
	report, err := v.ValidateData(data)
	if err != nil {
		return err
	}

	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "ERROR %s: %s[%d].%s: %s\n", e.Kind, e.Type, e.Index, e.Property, e.Message)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "WARN  %s\n", w)
	}

	if !report.Valid {
		return fmt.Errorf("validation failed: %d error(s)", len(report.Errors))
	}
	fmt.Fprintln(os.Stdout, "valid")
	return nil
}
