// Package config loads the broker's ambient configuration the way the
// service layer's pkg/config does: typed sections, environment overrides
// via envdecode/godotenv, and an optional YAML file as the base layer.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/berbicanes/queryark/internal/logging"
)

// ServerConfig controls the local command-surface bridge.
type ServerConfig struct {
	SocketPath string `yaml:"socket_path" env:"QUERYARK_SOCKET_PATH"`
	DataDir    string `yaml:"data_dir" env:"QUERYARK_DATA_DIR"`
}

// BrokerageConfig controls the default query-execution envelope (§4.7).
type BrokerageConfig struct {
	DefaultTimeoutSecs int `yaml:"default_timeout_secs" env:"QUERYARK_DEFAULT_TIMEOUT_SECS"`
	DefaultMaxRows     int `yaml:"default_max_rows" env:"QUERYARK_DEFAULT_MAX_ROWS"`
	DefaultMaxCellSize int `yaml:"default_max_cell_size" env:"QUERYARK_DEFAULT_MAX_CELL_SIZE"`
}

// SecretsConfig selects the keyring backend (§4.6).
type SecretsConfig struct {
	Backend string `yaml:"backend" env:"QUERYARK_SECRETS_BACKEND"` // "keyring" or "memory"
}

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Brokerage BrokerageConfig `yaml:"brokerage"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Logging   logging.Config  `yaml:"logging"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			SocketPath: "queryark.sock",
			DataDir:    defaultDataDir(),
		},
		Brokerage: BrokerageConfig{
			DefaultTimeoutSecs: 30,
			DefaultMaxRows:     10000,
			DefaultMaxCellSize: 0,
		},
		Secrets: SecretsConfig{
			Backend: "keyring",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".queryark"
	}
	return filepath.Join(home, ".queryark")
}

// Load loads configuration from an optional YAML file followed by
// environment overrides, the same two-layer precedence the teacher's
// pkg/config.Load uses.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("QUERYARK_CONFIG_FILE"))
	if path == "" {
		path = "config.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, err
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
