/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPebble   = "pebble"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config represents the qsolog configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Port     int      `yaml:"port"`
	Bind     string   `yaml:"bind"`
	Storage  Storage  `yaml:"storage"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
	ADIF     ADIF     `yaml:"adif"`
}

// Storage selects and tunes the logbook backend
type Storage struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	// Sync makes every pebble write durable before it returns.
	Sync bool `yaml:"sync"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ADIF sets the program identity written into exported files
type ADIF struct {
	ProgramID      string `yaml:"program_id"`
	ProgramVersion string `yaml:"program_version"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Storage: Storage{
			Backend: BackendPebble,
		},
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		ADIF: ADIF{
			ProgramID:      "QSO Log",
			ProgramVersion: "1.0",
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Missing keys keep their defaults.
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// The file carries the API key.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "failed to generate secure key")
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and saves it
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate API key")
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, errors.Wrap(err, "failed to save bootstrap config")
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./qsolog.yaml"
	}

	// ~/.config/qsolog/config.yaml on Linux and macOS
	return filepath.Join(homeDir, ".config", "qsolog", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// ApplyEnv overrides configuration values from QSOLOG_* environment
// variables. Unset or empty variables leave the value alone.
func (c *Config) ApplyEnv() {
	c.ApplyLookup(os.Getenv)
}

// ApplyLookup is ApplyEnv with a custom variable source.
func (c *Config) ApplyLookup(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.DataDir, "QSOLOG_DATA_DIR")
	set(&c.Storage.Backend, "QSOLOG_STORAGE_BACKEND")
	set(&c.Storage.DatabaseURL, "QSOLOG_DATABASE_URL")
	set(&c.Security.APIKey, "QSOLOG_API_KEY")
	set(&c.Logging.Level, "QSOLOG_LOG_LEVEL")
}

var (
	backends   = []string{BackendPebble, BackendMemory, BackendPostgres}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	backend := strings.ToLower(c.Storage.Backend)
	switch {
	case !slices.Contains(backends, backend):
		return errors.Newf("unknown storage backend %q", c.Storage.Backend)
	case backend == BackendPebble && c.DataDir == "":
		return errors.New("data_dir is required for the pebble backend")
	case backend == BackendPostgres && c.Storage.DatabaseURL == "":
		return errors.New("storage.database_url is required for the postgres backend")
	case c.Port < 0 || c.Port > 65535:
		return errors.Newf("port %d out of range", c.Port)
	case !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)):
		return errors.Newf("unknown log level %q", c.Logging.Level)
	case c.Logging.Format != "" && !slices.Contains(logFormats, c.Logging.Format):
		return errors.Newf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// PebbleDir is where the pebble backend keeps its files.
func (c *Config) PebbleDir() string {
	return filepath.Join(c.DataDir, "logbook")
}
