// Package config loads and validates the registry server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"60s"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432" validate:"gt=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"exam_pass"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// StorageConfig selects the registry store backend. The memory backend is
// meant for local runs and tests; production deployments use postgres.
type StorageConfig struct {
	Backend string `yaml:"backend" default:"postgres" validate:"oneof=postgres memory"`
}

// LedgerConfig contains pass ledger settings. The memory backend keeps the
// ledger in-process; the evm backend talks to the pass token contract.
type LedgerConfig struct {
	Backend         string        `yaml:"backend" default:"memory" validate:"oneof=memory evm"`
	RPCURL          string        `yaml:"rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	ChainID         int64         `yaml:"chain_id" default:"31337"`
	MinterKey       string        `yaml:"minter_key"`
	MintTimeout     time.Duration `yaml:"mint_timeout" default:"60s"`
}

// AuthConfig contains token verification settings
type AuthConfig struct {
	SigningKey   string        `yaml:"signing_key" validate:"required"`
	Issuer       string        `yaml:"issuer" default:"exam-pass"`
	AdminSubject string        `yaml:"admin_subject" validate:"required"`
	TokenTTL     time.Duration `yaml:"token_ttl" default:"24h"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load reads, defaults and validates configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if cfg.Storage.Backend == "postgres" && cfg.Database.Host == "" {
		return fmt.Errorf("database.host is required for postgres storage")
	}
	if cfg.Ledger.Backend == "evm" {
		if cfg.Ledger.RPCURL == "" {
			return fmt.Errorf("ledger.rpc_url is required for evm ledger")
		}
		if cfg.Ledger.ContractAddress == "" {
			return fmt.Errorf("ledger.contract_address is required for evm ledger")
		}
		if cfg.Ledger.MinterKey == "" {
			return fmt.Errorf("ledger.minter_key is required for evm ledger")
		}
	}
	return nil
}
