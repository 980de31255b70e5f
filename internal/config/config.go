// Package config provides configuration loading and defaults for procsvc.
//
// Configuration is loaded from a TOML file in the data directory, which
// defaults to the directory of the executable. Missing keys keep their
// defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/procsvc/internal/atomicfile"
	"tools.zach/dev/procsvc/internal/paths"
	"tools.zach/dev/procsvc/internal/service"
	"tools.zach/dev/procsvc/internal/supervisor"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level configuration.
type Config struct {
	// Service holds service identity settings.
	Service ServiceConfig `toml:"service"`
	// Supervisor holds child process supervision settings.
	Supervisor SupervisorConfig `toml:"supervisor"`
	// Control holds control endpoint settings.
	Control ControlConfig `toml:"control"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ServiceConfig holds service identity settings.
type ServiceConfig struct {
	// NamePrefix is prepended to the random number forming the service name.
	NamePrefix string `toml:"name_prefix"`
}

// SupervisorConfig holds child process supervision settings.
type SupervisorConfig struct {
	// PollIntervalMS is the pause between liveness polls. 0 polls continuously.
	PollIntervalMS int `toml:"poll_interval_ms"`
	// Allow lists glob patterns the resolved target path must match.
	// An empty list allows any target.
	Allow []string `toml:"allow"`
}

// ControlConfig holds control endpoint settings.
type ControlConfig struct {
	// Pipe enables the local control endpoint.
	Pipe bool `toml:"pipe"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
	// Watch reloads the log level when the config file changes.
	Watch bool `toml:"watch"`
}

// PollInterval returns the configured poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Supervisor.PollIntervalMS) * time.Millisecond
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			NamePrefix: service.DefaultNamePrefix,
		},
		Supervisor: SupervisorConfig{
			PollIntervalMS: int(supervisor.DefaultPollInterval / time.Millisecond),
			Allow:          []string{},
		},
		Control: ControlConfig{
			Pipe: false,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			Watch:     false,
		},
	}
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses dataDir/procsvc.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	return LoadFile(filepath.Join(dataDir, paths.ConfigFile))
}

// LoadFile reads and parses the configuration file at path.
func LoadFile(path string) (*Config, error) {
	cfg, _, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// decodeFile parses path over the defaults and validates the result. A
// missing file yields a nil Config and no error.
func decodeFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, toml.MetaData{}, nil
		}
		return nil, toml.MetaData{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, md, nil
}

// Normalize rewrites dataDir/procsvc.toml so that every documented key is
// present, keeping the values already set. A complete file is left
// untouched, comments included. It returns the keys that were added.
func Normalize(dataDir string) ([]string, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)
	cfg, md, err := decodeFile(path)
	if err != nil || cfg == nil {
		return nil, err
	}

	var missing []string
	for key := range ConfigDocs {
		if !md.IsDefined(strings.Split(key, ".")...) {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	slices.Sort(missing)

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("rewrite config: %w", err)
	}
	return missing, nil
}

// Save atomically writes the config to path as TOML.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Service.NamePrefix == "" {
		return fmt.Errorf("service.name_prefix must not be empty")
	}
	if strings.ContainsAny(c.Service.NamePrefix, `/\`) {
		return fmt.Errorf("invalid service.name_prefix %q: must not contain path separators", c.Service.NamePrefix)
	}

	if c.Supervisor.PollIntervalMS < 0 {
		return fmt.Errorf("poll_interval_ms must be >= 0, got %d", c.Supervisor.PollIntervalMS)
	}
	for _, p := range c.Supervisor.Allow {
		if !doublestar.ValidatePathPattern(p) {
			return fmt.Errorf("invalid supervisor.allow pattern %q", p)
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}
