// Package config holds the loader's construction-time Configuration
// record from the external-interfaces section, loaded from environment
// variables with defaults and validated with struct tags. Grounded on
// correlator-io/correlator's internal/storage/config.go: the same
// getEnvStr/getEnvInt/getEnvDuration helper shape, the same
// mask-the-password-before-logging helper, and go-playground/validator
// struct tags in the style alexisbeaulieu97/Streamy uses for its own
// config.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ageloader/batchloader/internal/loaderr"
)

// IsolationLevel is the transaction isolation level the Orchestrator
// opens its per-call transaction with.
type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "read_committed"
	RepeatableRead IsolationLevel = "repeatable_read"
	Serializable   IsolationLevel = "serializable"
)

// Config is the loader's Configuration record: set at construction,
// overridable per call where the Options type allows it.
type Config struct {
	DatabaseURL string `validate:"required"`

	DefaultGraphName            string         `validate:"required"`
	DefaultBatchSize            uint32         `validate:"min=1"`
	SchemaNamespace             string         `validate:"required"`
	DefaultTransactionTimeoutMs uint32         `validate:"min=1"`
	DefaultIsolationLevel       IsolationLevel `validate:"oneof=read_committed repeatable_read serializable"`
	ValidateBeforeLoad          bool

	MaxConns        int32 `validate:"min=1"`
	MinConns        int32 `validate:"min=0"`
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Defaults returns the loader's out-of-the-box configuration; callers
// override individual fields before calling Validate.
func Defaults() Config {
	return Config{
		DefaultGraphName:            "age_batch_graph",
		DefaultBatchSize:            1000,
		SchemaNamespace:             "ageloader",
		DefaultTransactionTimeoutMs: 60000,
		DefaultIsolationLevel:       ReadCommitted,
		ValidateBeforeLoad:          true,
		MaxConns:                    10,
		MinConns:                    0,
		MaxConnLifetime:             time.Hour,
		MaxConnIdleTime:             30 * time.Minute,
	}
}

// Load builds a Config from Defaults() overridden by environment
// variables, then validates it.
func Load() (Config, error) {
	cfg := Defaults()
	cfg.DatabaseURL = getEnvStr("AGELOADER_DATABASE_URL", cfg.DatabaseURL)
	cfg.DefaultGraphName = getEnvStr("AGELOADER_GRAPH_NAME", cfg.DefaultGraphName)
	cfg.DefaultBatchSize = getEnvUint32("AGELOADER_BATCH_SIZE", cfg.DefaultBatchSize)
	cfg.SchemaNamespace = getEnvStr("AGELOADER_SCHEMA_NAMESPACE", cfg.SchemaNamespace)
	cfg.DefaultTransactionTimeoutMs = getEnvUint32("AGELOADER_TX_TIMEOUT_MS", cfg.DefaultTransactionTimeoutMs)
	cfg.DefaultIsolationLevel = IsolationLevel(getEnvStr("AGELOADER_ISOLATION_LEVEL", string(cfg.DefaultIsolationLevel)))
	cfg.ValidateBeforeLoad = getEnvBool("AGELOADER_VALIDATE_BEFORE_LOAD", cfg.ValidateBeforeLoad)
	cfg.MaxConns = getEnvInt32("AGELOADER_MAX_CONNS", cfg.MaxConns)
	cfg.MinConns = getEnvInt32("AGELOADER_MIN_CONNS", cfg.MinConns)
	cfg.MaxConnLifetime = getEnvDuration("AGELOADER_MAX_CONN_LIFETIME", cfg.MaxConnLifetime)
	cfg.MaxConnIdleTime = getEnvDuration("AGELOADER_MAX_CONN_IDLE_TIME", cfg.MaxConnIdleTime)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs the struct's go-playground/validator tags, wrapping any
// failure as a loaderr ConfigurationError.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return loaderr.NewConfigurationError("invalid configuration", err)
	}
	return nil
}

// MaskDatabaseURL returns DatabaseURL with its password component
// replaced, safe to place in log lines.
func (c Config) MaskDatabaseURL() string {
	u := c.DatabaseURL
	at := strings.Index(u, "@")
	colonScheme := strings.Index(u, "://")
	if at < 0 || colonScheme < 0 || at < colonScheme {
		return u
	}
	creds := u[colonScheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return u
	}
	masked := creds[:colon] + ":****"
	return u[:colonScheme+3] + masked + u[at:]
}

func getEnvStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvInt32(key string, def int32) int32 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int32(n)
		}
	}
	return def
}

func getEnvUint32(key string, def uint32) uint32 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
