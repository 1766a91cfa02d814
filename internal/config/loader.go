package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix starts every environment override.
	EnvPrefix = "BIDIR_"
)

// defaults is loaded before the file so that booleans defaulting to true
// can still be switched off.
const defaults = `
search:
  heuristic: hadd
  kind: greedy
  weight: 1
  mode: bidirectional
  scheduling: alternate
  front_to_front: false
  frontier_target: end
  bgg_heuristic: hmax
  reevaluation: never
  preferred: ""
  boost: 0
  symbolic_closed: true
  reopen_closed: true
  prune_goal: false
  bound: 0
  cost_type: normal
  max_expansions: 0
  max_steps: 0
  time_limit: 0s
logging:
  level: info
  format: console
store:
  enabled: false
  path: bidir.db
metrics:
  enabled: false
workers: 1
`

// Load reads the configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables prefixed BIDIR_
//  2. The YAML file at configPath, if configPath is not empty
//  3. Built-in defaults
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix:
//
//	BIDIR_SEARCH_HEURISTIC      -> search.heuristic
//	BIDIR_SEARCH_FRONT_TO_FRONT -> search.front_to_front
//	BIDIR_WORKERS               -> workers
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 || parts[0] == "workers" {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
