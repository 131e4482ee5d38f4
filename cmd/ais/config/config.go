// Package config loads the AIS service's YAML configuration, following
// services/governd/config's typed-struct + post-decode-defaulting shape.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the AIS issuer + validator + HTTP
// boundary.
type Config struct {
	ListenAddress         string     `yaml:"listen"`
	SharedKey             string     `yaml:"actrix_shared_key"`
	KSEndpoint            string     `yaml:"ks_endpoint"`
	TokenTTLSecs          int64      `yaml:"token_ttl_secs"`
	HeartbeatIntervalSecs int64      `yaml:"signaling_heartbeat_interval_secs"`
	KeyRefreshSecs        int64      `yaml:"key_refresh_interval_secs"`
	IssuerKeyCachePath    string     `yaml:"issuer_key_cache_path"`
	ValidatorKeyCachePath string     `yaml:"validator_key_cache_path"`
	AllowedRealms         []uint32   `yaml:"allowed_realms"`
	RateLimit             RateConfig `yaml:"rate_limit"`
}

// RateConfig configures the C12 per-IP limiter.
type RateConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	TrustProxy    bool    `yaml:"trust_proxy"`
}

func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLSecs > 0 {
		return time.Duration(c.TokenTTLSecs) * time.Second
	}
	return time.Hour
}

func (c Config) HeartbeatInterval() time.Duration {
	if c.HeartbeatIntervalSecs > 0 {
		return time.Duration(c.HeartbeatIntervalSecs) * time.Second
	}
	return 30 * time.Second
}

func (c Config) KeyRefreshInterval() time.Duration {
	if c.KeyRefreshSecs > 0 {
		return time.Duration(c.KeyRefreshSecs) * time.Second
	}
	return time.Hour
}

// AllowedRealmSet converts AllowedRealms into the map aisissuer.Config wants.
// An empty config list means "any realm", represented as a nil map.
func (c Config) AllowedRealmSet() map[uint32]bool {
	if len(c.AllowedRealms) == 0 {
		return nil
	}
	set := make(map[uint32]bool, len(c.AllowedRealms))
	for _, r := range c.AllowedRealms {
		set[r] = true
	}
	return set
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress:         ":8080",
		KSEndpoint:            "localhost:50070",
		IssuerKeyCachePath:    "ais-issuer-pubkey.db",
		ValidatorKeyCachePath: "ais-validator-privkey.db",
		RateLimit:             RateConfig{RatePerSecond: 2, Burst: 100},
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
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.KSEndpoint) == "" {
		return cfg, fmt.Errorf("ks_endpoint is required")
	}
	if strings.TrimSpace(cfg.SharedKey) == "" {
		return cfg, fmt.Errorf("actrix_shared_key is required")
	}
	if cfg.RateLimit.RatePerSecond <= 0 {
		cfg.RateLimit.RatePerSecond = 2
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 100
	}
	return cfg, nil
}
