// config.go - Configuration management for the staking ledger daemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DickTrevelyan/shield-stake-estate/internal/estate"
)

// Config represents the daemon configuration.
type Config struct {
	// Network identity
	ListenPort      int    `json:"listen_port"`
	ChainID         int64  `json:"chain_id"`
	ContractAddress string `json:"contract_address"`

	// File paths
	StatePath string `json:"state_path"`
	KeyDir    string `json:"key_dir"`

	// Logging
	LogLevel     string `json:"log_level"`
	LogFile      string `json:"log_file"`
	EnableAudit  bool   `json:"enable_audit"`
	AuditLogPath string `json:"audit_log_path"`

	// Rate limiting of mutating commands
	RateLimitBurst        int `json:"rate_limit_burst"`
	RateLimitRefillPerSec int `json:"rate_limit_refill_per_sec"`

	// Periodic state persistence
	SaveIntervalSeconds int `json:"save_interval_seconds"`

	// Properties registered at first start
	SeedProperties []estate.SeedProperty `json:"seed_properties,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenPort:            8480,
		ChainID:               1,
		ContractAddress:       "0x00000000000000000000000000000000e57a7ed1",
		StatePath:             "ledger.json",
		KeyDir:                "keys",
		LogLevel:              "info",
		LogFile:               "estated.log",
		EnableAudit:           true,
		AuditLogPath:          "audit.log",
		RateLimitBurst:        20,
		RateLimitRefillPerSec: 5,
		SaveIntervalSeconds:   30,
	}
}

// LoadConfig loads configuration from file, creating the default on first
// run.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be a valid port")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain_id must be positive")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("contract_address must not be empty")
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path must not be empty")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_burst must be positive")
	}
	if c.RateLimitRefillPerSec <= 0 {
		return fmt.Errorf("rate_limit_refill_per_sec must be positive")
	}
	if c.SaveIntervalSeconds <= 0 {
		return fmt.Errorf("save_interval_seconds must be positive")
	}
	return nil
}
