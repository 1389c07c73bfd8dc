package pgexec

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ageloader/batchloader/internal/config"
	"github.com/ageloader/batchloader/internal/staging"
)

// NewPool builds a pgxpool.Pool sized from cfg, wiring an AfterRelease
// hook that truncates the session-temporary age_params table before the
// connection goes back to the pool, the same place registry.Service in
// the donor codebase owns its *pgxpool.Pool.
func NewPool(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.AfterRelease = func(conn *pgx.Conn) bool {
		_, err := conn.Exec(context.Background(), "TRUNCATE TABLE "+staging.TableName)
		if err != nil && !strings.Contains(err.Error(), "does not exist") {
			logger.Warn().Err(err).Msg("failed to truncate age_params on release; keeping connection out of rotation")
			return false
		}
		return true
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
