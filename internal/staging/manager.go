// Package staging owns age_params, the session-temporary key/value table
// the batch loader uses to smuggle array-of-object payloads past the
// Cypher surface's lack of bound parameters. Grounded on the connection-
// scoped key/value style of
// correlator-io/correlator's internal/storage/persistent_key_store.go.
package staging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ageloader/batchloader/internal/executor"
	"github.com/ageloader/batchloader/internal/graphdata"
	"github.com/ageloader/batchloader/internal/loaderr"
)

// TableName is the session-temporary staging table's name, fixed by the
// protocol the helper UDFs read.
const TableName = "age_params"

// Manager moves batches of property bags into age_params under a
// well-known key, then clears them. A Manager instance must never be
// shared across connections: age_params is connection-local, and the
// Manager's only state (the "table ensured" flag) is meaningless once the
// underlying connection changes.
type Manager struct {
	exec    executor.QueryExecutor
	logger  zerolog.Logger
	ensured bool
}

func NewManager(exec executor.QueryExecutor, logger zerolog.Logger) *Manager {
	return &Manager{exec: exec, logger: logger}
}

// EnsureTable creates age_params if it doesn't already exist on this
// connection. Idempotent; cheap to call before every Store.
func (m *Manager) EnsureTable(ctx context.Context) error {
	if m.ensured {
		return nil
	}
	rows, err := m.exec.ExecuteSQL(ctx, `
		CREATE TEMP TABLE IF NOT EXISTS `+TableName+` (
			key   TEXT PRIMARY KEY,
			value JSONB
		) ON COMMIT PRESERVE ROWS
	`)
	if err != nil {
		return loaderr.NewStagingError("create age_params", err)
	}
	rows.Close()
	m.ensured = true
	return nil
}

// Store upserts (key, value) where value is a JSON array of items in
// their original property order.
func (m *Manager) Store(ctx context.Context, key string, items []*graphdata.PropertyBag) error {
	if err := m.EnsureTable(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return loaderr.NewStagingError(fmt.Sprintf("encode batch for key %q", key), err)
	}
	rows, err := m.exec.ExecuteSQL(ctx, `
		INSERT INTO `+TableName+` (key, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, string(payload))
	if err != nil {
		return loaderr.NewStagingError(fmt.Sprintf("store key %q", key), err)
	}
	rows.Close()
	return nil
}

// Clear deletes the row for key, if any.
func (m *Manager) Clear(ctx context.Context, key string) error {
	rows, err := m.exec.ExecuteSQL(ctx, `DELETE FROM `+TableName+` WHERE key = $1`, key)
	if err != nil {
		return loaderr.NewStagingError(fmt.Sprintf("clear key %q", key), err)
	}
	rows.Close()
	return nil
}

// ClearAll deletes every row. Used defensively at the end of a load in
// addition to the pool's AfterRelease truncation hook.
func (m *Manager) ClearAll(ctx context.Context) error {
	if !m.ensured {
		return nil
	}
	rows, err := m.exec.ExecuteSQL(ctx, `DELETE FROM `+TableName)
	if err != nil {
		return loaderr.NewStagingError("clear all staging rows", err)
	}
	rows.Close()
	return nil
}

// Isolated is a diagnostic: it round-trips a probe row through this
// Manager's connection and reports whether the read-back succeeded. It
// does not and cannot observe other connections directly — isolation is
// a property of session-temporary tables the database guarantees, not
// something this method can violate even if it tried.
func (m *Manager) Isolated(ctx context.Context) (bool, error) {
	const probeKey = "__isolation_probe__"
	if err := m.Store(ctx, probeKey, nil); err != nil {
		return false, err
	}
	defer m.Clear(ctx, probeKey)

	rows, err := m.exec.ExecuteSQL(ctx, `SELECT value FROM `+TableName+` WHERE key = $1`, probeKey)
	if err != nil {
		return false, loaderr.NewStagingError("isolation probe read-back", err)
	}
	defer rows.Close()
	return rows.Next(), nil
}
