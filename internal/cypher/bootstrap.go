package cypher

import (
	"context"
	"fmt"
	"strings"

	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/loaderr"
	"github.com/ageloader/batchloader/internal/schema"
)

// EnsureGraphInitialized creates the named graph and its vertex/edge
// labels if they don't already exist, adapted from SyncManager.InitGraph
// in the donor codebase: the "already exists" tolerance is load-bearing
// there and here, since this runs on every call rather than once at
// service startup.
func EnsureGraphInitialized(ctx context.Context, exec executor.QueryExecutor, graphName string, s schema.Reader) error {
	if err := validateIdentifier("graph name", graphName); err != nil {
		return err
	}

	if err := execTolerateExists(ctx, exec,
		fmt.Sprintf(`SELECT * FROM ag_catalog.create_graph('%s')`, graphName)); err != nil {
		return loaderr.NewConfigurationError("create graph", err)
	}

	for _, vt := range s.VertexTypes() {
		if err := validateIdentifier("vertex type", vt); err != nil {
			return err
		}
		if err := execTolerateExists(ctx, exec,
			fmt.Sprintf(`SELECT * FROM ag_catalog.create_vlabel('%s', '%s')`, graphName, vt)); err != nil {
			return loaderr.NewConfigurationError(fmt.Sprintf("create vertex label %q", vt), err)
		}
	}

	for _, et := range s.EdgeTypes() {
		if err := validateIdentifier("edge type", et); err != nil {
			return err
		}
		if err := execTolerateExists(ctx, exec,
			fmt.Sprintf(`SELECT * FROM ag_catalog.create_elabel('%s', '%s')`, graphName, et)); err != nil {
			return loaderr.NewConfigurationError(fmt.Sprintf("create edge label %q", et), err)
		}
	}

	return nil
}

func execTolerateExists(ctx context.Context, exec executor.QueryExecutor, sql string) error {
	rows, err := exec.ExecuteSQL(ctx, sql)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return err
	}
	rows.Close()
	return nil
}
