// Package helperfn installs and maintains the get_vertices/get_edges SQL
// helper functions the Cypher generator's UNWIND clauses call. Grounded
// on correlator-io/correlator's cmd/migrator/{embed,runner}.go: rather
// than the donor codebase's ad-hoc CREATE OR REPLACE string building
// (sdk/schema/manager.go, services/dal-service/schema_manager.go), the
// install SQL is embedded and versioned through golang-migrate so
// upgrades are version-tracked and reversible, while still satisfying the
// spec's narrower "CREATE OR REPLACE, install-once-per-process" floor.
package helperfn

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ageloader/batchloader/internal/loaderr"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Installer ensures the helper functions exist in the configured schema
// namespace, installing once per process: a per-connection cached flag
// would be equally valid here since the functions are global to the
// database, not per-connection state, so one process-wide flag suffices.
type Installer struct {
	databaseURL string
	schemaNs    string
	logger      zerolog.Logger

	mu        sync.Mutex
	installed bool
}

var schemaNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewInstaller(databaseURL, schemaNs string, logger zerolog.Logger) *Installer {
	return &Installer{databaseURL: databaseURL, schemaNs: schemaNs, logger: logger}
}

func (in *Installer) ensureSchema(db *sql.DB) error {
	if !schemaNamePattern.MatchString(in.schemaNs) {
		return loaderr.NewConfigurationError(
			fmt.Sprintf("schema namespace %q does not match [A-Za-z_][A-Za-z0-9_]*", in.schemaNs), loaderr.ErrInvalidIdentifier)
	}
	_, err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", in.schemaNs))
	return err
}

// EnsureInstalled runs the embedded migrations against schemaNs the first
// time it's called; subsequent calls are no-ops.
func (in *Installer) EnsureInstalled(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.installed {
		return nil
	}
	if err := in.runMigrations(applyUp); err != nil {
		return err
	}
	in.installed = true
	in.logger.Info().Str("schema", in.schemaNs).Msg("helper functions installed")
	return nil
}

// PendingSteps reports what Up() would do without applying it, backing
// the CLI's "install-helpers --dry-run" verb.
func (in *Installer) PendingSteps(ctx context.Context) (bool, error) {
	dsn, err := in.searchPathDSN()
	if err != nil {
		return false, loaderr.NewConfigurationError("build installer DSN", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return false, loaderr.NewConfigurationError("open installer connection", err)
	}
	defer db.Close()
	if err := in.ensureSchema(db); err != nil {
		return false, loaderr.NewConfigurationError("create helper schema", err)
	}

	m, err := in.newMigrate(db)
	if err != nil {
		return false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return true, nil
	}
	if err != nil {
		return false, loaderr.NewConfigurationError("read migration version", err)
	}
	return dirty || version == 0, nil
}

type direction int

const (
	applyUp direction = iota
	applyDown
)

func (in *Installer) runMigrations(dir direction) error {
	dsn, err := in.searchPathDSN()
	if err != nil {
		return loaderr.NewConfigurationError("build installer DSN", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return loaderr.NewConfigurationError("open installer connection", err)
	}
	defer db.Close()
	if err := in.ensureSchema(db); err != nil {
		return loaderr.NewConfigurationError("create helper schema", err)
	}

	m, err := in.newMigrate(db)
	if err != nil {
		return err
	}
	defer m.Close()

	var applyErr error
	if dir == applyUp {
		applyErr = m.Up()
	} else {
		applyErr = m.Down()
	}
	if applyErr != nil && !errors.Is(applyErr, migrate.ErrNoChange) {
		return loaderr.NewConfigurationError("apply helper-function migrations", applyErr)
	}
	return nil
}

func (in *Installer) newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "ageloader_helperfn_migrations",
	})
	if err != nil {
		return nil, loaderr.NewConfigurationError("build postgres migration driver", err)
	}
	srcDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, loaderr.NewConfigurationError("load embedded migrations", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", driver)
	if err != nil {
		return nil, loaderr.NewConfigurationError("build migrate instance", err)
	}
	return m, nil
}

// searchPathDSN appends a Postgres "options" startup parameter pinning
// search_path to the helper namespace, so CREATE OR REPLACE FUNCTION (no
// schema qualifier in the embedded SQL) lands in schemaNs regardless of
// which pooled connection database/sql happens to hand the driver.
func (in *Installer) searchPathDSN() (string, error) {
	u, err := url.Parse(in.databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}
	q := u.Query()
	q.Set("options", "-c search_path="+in.schemaNs+",public")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
