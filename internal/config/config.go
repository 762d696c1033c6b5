// Package config provides configuration loading and validation for the
// cmd/ front ends.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (ADNS_* prefix)
//  2. YAML config file (if specified)
//  3. Hardcoded defaults
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file (if path is non-empty) and
// applies ADNS_* environment variable overrides, then validates the
// result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if ParseFlags(cfg.FlagsRaw)&FlagNoEnv == 0 {
		applyEnv(cfg)
	}
	cfg.Flags = ParseFlags(cfg.FlagsRaw)

	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Servers:    []string{"8.8.8.8"},
		Search:     nil,
		NDots:      1,
		UDPRetries: 15,
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// applyEnv overlays ADNS_SERVERS, ADNS_SEARCH, ADNS_NDOTS and ADNS_FLAGS
// onto cfg when set, per spec §6's environment-override list.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ADNS_SERVERS")); v != "" {
		cfg.Servers = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("ADNS_SEARCH")); v != "" {
		cfg.Search = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("ADNS_NDOTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NDots = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ADNS_FLAGS")); v != "" {
		if cfg.FlagsRaw == "" {
			cfg.FlagsRaw = v
		} else {
			cfg.FlagsRaw = cfg.FlagsRaw + "," + v
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalize validates and fills in defaults the zero value of a freshly
// unmarshaled Config would otherwise leave empty.
func normalize(cfg *Config) error {
	if len(cfg.Servers) == 0 {
		return errors.New("config: at least one server is required")
	}
	if cfg.NDots < 0 {
		return errors.New("config: ndots must be >= 0")
	}
	if cfg.UDPRetries <= 0 {
		cfg.UDPRetries = 15
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	for _, s := range cfg.SortList {
		if _, err := s.Resolve(); err != nil {
			return err
		}
	}
	return nil
}
