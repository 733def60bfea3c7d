// Package config loads the vault service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ChainMode selects the backend the vault runs against.
type ChainMode string

const (
	// ModeSimulated runs against the in-memory backend.
	ModeSimulated ChainMode = "simulated"
	// ModeRPC runs against a live EVM endpoint.
	ModeRPC ChainMode = "rpc"
)

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Chain    ChainConfig    `yaml:"chain"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChainConfig configures the on-chain backend. Secrets are referenced
// with ${VAR} placeholders which are expanded from the environment at
// load time.
type ChainConfig struct {
	Mode            ChainMode     `yaml:"mode"`
	RPCURL          string        `yaml:"rpc_url"`
	OperatorKey     string        `yaml:"operator_key"`
	GasLimit        uint64        `yaml:"gas_limit"`
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
	Owner           string        `yaml:"owner"`
	VaultAddress    string        `yaml:"vault_address"`
	USDCAddress     string        `yaml:"usdc_address"`
	AavePoolAddress string        `yaml:"aave_pool_address"`
}

// DatabaseConfig configures the optional Postgres journal. An empty DSN
// disables it.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Load loads the configuration from config/vault.yaml.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "vault.yaml"))
}

// LoadFromPath loads the configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration or returns the default if the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFromPath(path)
	if err != nil {
		if os.IsNotExist(unwrapPathError(err)) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func unwrapPathError(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		err = u.Unwrap()
	}
}

// Default returns the default configuration: the simulated backend on
// the loopback interface.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8085,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Chain: ChainConfig{
			Mode:        ModeSimulated,
			GasLimit:    400_000,
			WaitTimeout: 2 * time.Minute,
		},
	}
}

// Validate checks mode-dependent requirements.
func (c *Config) Validate() error {
	switch c.Chain.Mode {
	case ModeSimulated:
		// Addresses are synthesized when absent.
	case ModeRPC:
		if c.Chain.RPCURL == "" {
			return fmt.Errorf("chain: rpc_url is required in rpc mode")
		}
		if c.Chain.OperatorKey == "" {
			return fmt.Errorf("chain: operator_key is required in rpc mode")
		}
		if c.Chain.USDCAddress == "" {
			return fmt.Errorf("chain: usdc_address is required in rpc mode")
		}
		if c.Chain.AavePoolAddress == "" {
			return fmt.Errorf("chain: aave_pool_address is required in rpc mode")
		}
	default:
		return fmt.Errorf("chain: unknown mode %q", c.Chain.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	return nil
}
