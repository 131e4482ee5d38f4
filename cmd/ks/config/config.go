// Package config loads the KS service's YAML configuration, following
// services/governd/config's typed-struct + post-decode-defaulting shape.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the key server.
type Config struct {
	ListenAddress string        `yaml:"listen"`
	SharedKey     string        `yaml:"actrix_shared_key"`
	Storage       StorageConfig `yaml:"storage"`
	KEK           KEKConfig     `yaml:"kek_config"`
	Nonces        NonceConfig   `yaml:"nonces"`
}

// StorageConfig selects and configures the KS key-record backend (C2).
type StorageConfig struct {
	Backend       string `yaml:"backend"` // "sqlite" | "postgres" | "redis"
	DSN           string `yaml:"dsn"`
	KeyTTLSeconds int64  `yaml:"key_ttl_seconds"`
	ToleranceSecs int64  `yaml:"tolerance_seconds"`
}

// KEKConfig mirrors crypto.KekSource's three sources; precedence (file > env
// > direct) is enforced by crypto.ResolveKEK, not here.
type KEKConfig struct {
	Direct     string `yaml:"kek"`
	EnvVar     string `yaml:"kek_env"`
	FilePath   string `yaml:"kek_file"`
	AllowNoKEK bool   `yaml:"allow_no_kek"`
}

// NonceConfig selects and configures the anti-replay nonce store (C3).
type NonceConfig struct {
	Backend string `yaml:"backend"` // "leveldb" | "sqlite"
	Path    string `yaml:"path"`
}

// KeyTTL returns the configured key TTL, defaulting to 24h.
func (c StorageConfig) KeyTTL() time.Duration {
	if c.KeyTTLSeconds > 0 {
		return time.Duration(c.KeyTTLSeconds) * time.Second
	}
	return 24 * time.Hour
}

// Tolerance returns the configured post-expiry tolerance, defaulting to 5m.
func (c StorageConfig) Tolerance() time.Duration {
	if c.ToleranceSecs > 0 {
		return time.Duration(c.ToleranceSecs) * time.Second
	}
	return 5 * time.Minute
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":50070",
		Storage:       StorageConfig{Backend: "sqlite", DSN: "ks.db"},
		Nonces:        NonceConfig{Backend: "leveldb", Path: "ks-nonces.db"},
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":50070"
	}
	if strings.TrimSpace(cfg.Storage.Backend) == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if strings.TrimSpace(cfg.Nonces.Backend) == "" {
		cfg.Nonces.Backend = "leveldb"
	}
	if strings.TrimSpace(cfg.SharedKey) == "" {
		return cfg, fmt.Errorf("actrix_shared_key is required")
	}
	return cfg, nil
}
