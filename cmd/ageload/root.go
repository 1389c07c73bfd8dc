package main

import (
	"github.com/spf13/cobra"

	"github.com/ageloader/batchloader/internal/config"
)

type rootFlags struct {
	schemaPath string
	configPath string
}

func newRootCmd(app *appContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "ageload",
		Short:         "Batch-load a schema-validated graph payload into an Apache AGE graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.schemaPath, "schema", "", "Path to the graph schema JSON file (required)")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Optional YAML config overlay applied on top of environment defaults")
	cmd.MarkPersistentFlagRequired("schema") //nolint:errcheck

	cmd.AddCommand(newLoadCmd(app, flags))
	cmd.AddCommand(newValidateCmd(app, flags))
	cmd.AddCommand(newInstallHelpersCmd(app, flags))

	return cmd
}

// loadEffectiveConfig applies flags.configPath as a YAML overlay on top
// of app.cfg when given, otherwise returns app.cfg unchanged.
func loadEffectiveConfig(app *appContext, flags *rootFlags) (config.Config, error) {
	if flags.configPath == "" {
		return app.cfg, nil
	}
	return config.LoadFromFile(flags.configPath, app.cfg)
}
