package config

import (
	"fmt"
	"os"

	"traffic-observer/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file.
// Backend credentials can be overridden from the environment (or a .env file)
// so they never have to live in the YAML.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment overrides (.env is optional)
	_ = godotenv.Load()
	if v := os.Getenv("TRAFFIC_BACKEND_EMAIL"); v != "" {
		config.Backend.Email = v
	}
	if v := os.Getenv("TRAFFIC_BACKEND_PASSWORD"); v != "" {
		config.Backend.Password = v
	}
	if v := os.Getenv("TRAFFIC_BACKEND_URL"); v != "" {
		config.Backend.BaseURL = v
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Backend configuration
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url cannot be empty")
	}
	if c.Backend.WsURL == "" {
		return fmt.Errorf("backend ws_url cannot be empty")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Backend.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Push configuration
	if c.Push.BaseDelaySeconds <= 0 {
		return fmt.Errorf("push base delay must be greater than 0")
	}
	if c.Push.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("push max reconnect attempts must be greater than 0")
	}

	// Validate Poll configuration
	if c.Poll.SignalsIntervalSeconds <= 0 {
		return fmt.Errorf("signals poll interval must be greater than 0")
	}
	if c.Poll.StatsIntervalSeconds <= 0 {
		return fmt.Errorf("stats poll interval must be greater than 0")
	}
	if c.Poll.EmergencyIntervalSeconds <= 0 {
		return fmt.Errorf("emergency poll interval must be greater than 0")
	}
	if c.Poll.HistoryRetentionDays <= 0 {
		return fmt.Errorf("history retention days must be greater than 0")
	}

	// Validate View configuration
	if c.View.DebounceMillis < 0 {
		return fmt.Errorf("view debounce cannot be negative")
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
