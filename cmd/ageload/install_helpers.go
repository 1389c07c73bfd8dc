package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ageloader/batchloader/internal/helperfn"
)

type installHelpersOptions struct {
	DryRun bool
}

func newInstallHelpersCmd(app *appContext, flags *rootFlags) *cobra.Command {
	opts := installHelpersOptions{}

	cmd := &cobra.Command{
		Use:   "install-helpers",
		Short: "Install (or report pending) get_vertices/get_edges helper functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstallHelpers(app, flags, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report whether helper functions need installing without applying anything")

	return cmd
}

func runInstallHelpers(app *appContext, flags *rootFlags, opts installHelpersOptions) error {
	cfg, err := loadEffectiveConfig(app, flags)
	if err != nil {
		return err
	}

	installer := helperfn.NewInstaller(cfg.DatabaseURL, cfg.SchemaNamespace, app.logger)
	ctx := app.logger.WithContext(context.Background())

	if opts.DryRun {
		pending, err := installer.PendingSteps(ctx)
		if err != nil {
			return err
		}
		if pending {
			fmt.Fprintln(os.Stdout, "pending: helper functions would be installed or upgraded")
		} else {
			fmt.Fprintln(os.Stdout, "up to date: no pending helper-function migrations")
		}
		return nil
	}

	if err := installer.EnsureInstalled(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "helper functions installed")
	return nil
}
