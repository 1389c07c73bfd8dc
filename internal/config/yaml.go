package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOverlay mirrors Config but with yaml tags and pointer/duration
// fields left zero-valued when absent, so LoadFromFile can apply only the
// keys actually present in the file on top of a base Config (normally the
// result of Load()).
type fileOverlay struct {
	DatabaseURL                 *string `yaml:"databaseURL"`
	DefaultGraphName            *string `yaml:"defaultGraphName"`
	DefaultBatchSize            *uint32 `yaml:"defaultBatchSize"`
	SchemaNamespace             *string `yaml:"schemaNamespace"`
	DefaultTransactionTimeoutMs *uint32 `yaml:"defaultTransactionTimeoutMs"`
	DefaultIsolationLevel       *string `yaml:"defaultIsolationLevel"`
	ValidateBeforeLoad          *bool   `yaml:"validateBeforeLoad"`
	MaxConns                    *int32  `yaml:"maxConns"`
	MinConns                    *int32  `yaml:"minConns"`
	MaxConnLifetime             *string `yaml:"maxConnLifetime"`
	MaxConnIdleTime             *string `yaml:"maxConnIdleTime"`
}

// LoadFromFile reads a YAML loader profile and applies it on top of base,
// so operators can check a profile into source control instead of
// exporting a dozen AGELOADER_* environment variables (the env-var path
// in Load remains the default; this is the opt-in overlay).
func LoadFromFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := base
	if overlay.DatabaseURL != nil {
		cfg.DatabaseURL = *overlay.DatabaseURL
	}
	if overlay.DefaultGraphName != nil {
		cfg.DefaultGraphName = *overlay.DefaultGraphName
	}
	if overlay.DefaultBatchSize != nil {
		cfg.DefaultBatchSize = *overlay.DefaultBatchSize
	}
	if overlay.SchemaNamespace != nil {
		cfg.SchemaNamespace = *overlay.SchemaNamespace
	}
	if overlay.DefaultTransactionTimeoutMs != nil {
		cfg.DefaultTransactionTimeoutMs = *overlay.DefaultTransactionTimeoutMs
	}
	if overlay.DefaultIsolationLevel != nil {
		cfg.DefaultIsolationLevel = IsolationLevel(*overlay.DefaultIsolationLevel)
	}
	if overlay.ValidateBeforeLoad != nil {
		cfg.ValidateBeforeLoad = *overlay.ValidateBeforeLoad
	}
	if overlay.MaxConns != nil {
		cfg.MaxConns = *overlay.MaxConns
	}
	if overlay.MinConns != nil {
		cfg.MinConns = *overlay.MinConns
	}
	if overlay.MaxConnLifetime != nil {
		d, err := time.ParseDuration(*overlay.MaxConnLifetime)
		if err != nil {
			return Config{}, fmt.Errorf("config: maxConnLifetime: %w", err)
		}
		cfg.MaxConnLifetime = d
	}
	if overlay.MaxConnIdleTime != nil {
		d, err := time.ParseDuration(*overlay.MaxConnIdleTime)
		if err != nil {
			return Config{}, fmt.Errorf("config: maxConnIdleTime: %w", err)
		}
		cfg.MaxConnIdleTime = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
