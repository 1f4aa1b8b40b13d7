package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration is the complete unionmountd configuration, loadable from
// a YAML file and overridable from the environment.
type Configuration struct {
	Mount   MountConfig   `yaml:"mount"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logging"`
}

// MountConfig describes the two backing tiers and the options presented
// to the kernel at mount time.
type MountConfig struct {
	MountPath       string        `yaml:"mount_path"`
	LocalDir        string        `yaml:"local_dir"`
	ExternalDir     string        `yaml:"external_dir"`
	ReadOnly        bool          `yaml:"read_only"`
	AllowOther      bool          `yaml:"allow_other"`
	FSName          string        `yaml:"fs_name"`
	EntryTimeout    time.Duration `yaml:"entry_timeout"`
	AttrTimeout     time.Duration `yaml:"attr_timeout"`
	NegativeTimeout time.Duration `yaml:"negative_timeout"`
}

// LimitsConfig sizes the bounded structures described in the mount
// design: the open-slot limiter, the three path masks, and the
// notification ring.
type LimitsConfig struct {
	MaxOpenHandles   int `yaml:"max_open_handles"`
	EvictingCapacity int `yaml:"evicting_capacity"`
	PendingCapacity  int `yaml:"pending_capacity"`
	SyncingCapacity  int `yaml:"syncing_capacity"`
	NotifyRingSize   int `yaml:"notify_ring_size"`
	MaxPathDepth     int `yaml:"max_path_depth"`
}

// LoggingConfig controls the diagnostic logger's level and sink.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LogFile     string `yaml:"log_file"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns a Configuration populated with the constants the
// mount design calls for: a 256-slot open-handle ceiling, a 256-entry
// evicting mask, 1024-entry pending-delete and syncing masks, a
// 4096-slot notification ring, and a maximum path depth of 40.
func Default() *Configuration {
	return &Configuration{
		Mount: MountConfig{
			ReadOnly:        false,
			AllowOther:      false,
			FSName:          "unionmount",
			EntryTimeout:    1 * time.Second,
			AttrTimeout:     1 * time.Second,
			NegativeTimeout: 1 * time.Second,
		},
		Limits: LimitsConfig{
			MaxOpenHandles:   256,
			EvictingCapacity: 256,
			PendingCapacity:  1024,
			SyncingCapacity:  1024,
			NotifyRingSize:   4096,
			MaxPathDepth:     40,
		},
		Logging: LoggingConfig{
			Level:       "INFO",
			LogFile:     "",
			MetricsAddr: "",
		},
	}
}

// LoadFromFile loads configuration from a YAML file, starting from
// whatever values c already holds.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv overrides configuration fields from UNIONMOUNTD_* environment
// variables, for container deployments that prefer not to template a
// config file.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("UNIONMOUNTD_MOUNT_PATH"); val != "" {
		c.Mount.MountPath = val
	}
	if val := os.Getenv("UNIONMOUNTD_LOCAL_DIR"); val != "" {
		c.Mount.LocalDir = val
	}
	if val := os.Getenv("UNIONMOUNTD_EXTERNAL_DIR"); val != "" {
		c.Mount.ExternalDir = val
	}
	if val := os.Getenv("UNIONMOUNTD_READ_ONLY"); val != "" {
		c.Mount.ReadOnly = strings.EqualFold(val, "true")
	}
	if val := os.Getenv("UNIONMOUNTD_ALLOW_OTHER"); val != "" {
		c.Mount.AllowOther = strings.EqualFold(val, "true")
	}
	if val := os.Getenv("UNIONMOUNTD_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("UNIONMOUNTD_LOG_FILE"); val != "" {
		c.Logging.LogFile = val
	}
	if val := os.Getenv("UNIONMOUNTD_METRICS_ADDR"); val != "" {
		c.Logging.MetricsAddr = val
	}
	if val := os.Getenv("UNIONMOUNTD_MAX_OPEN_HANDLES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Limits.MaxOpenHandles = n
		}
	}

	return nil
}

// SaveToFile writes the configuration to filename as YAML, creating
// parent directories as needed.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is internally consistent and
// ready for Mount(). ExternalDir is optional (offline mode); LocalDir
// and MountPath are not.
func (c *Configuration) Validate() error {
	if c.Mount.MountPath == "" {
		return fmt.Errorf("mount_path is required")
	}
	if c.Mount.LocalDir == "" {
		return fmt.Errorf("local_dir is required")
	}
	if c.Mount.LocalDir == c.Mount.MountPath {
		return fmt.Errorf("local_dir and mount_path must differ")
	}
	if c.Mount.ExternalDir != "" && c.Mount.ExternalDir == c.Mount.LocalDir {
		return fmt.Errorf("external_dir and local_dir must differ")
	}

	if c.Limits.MaxOpenHandles <= 0 {
		return fmt.Errorf("max_open_handles must be greater than 0")
	}
	if c.Limits.EvictingCapacity <= 0 || c.Limits.PendingCapacity <= 0 || c.Limits.SyncingCapacity <= 0 {
		return fmt.Errorf("mask capacities must be greater than 0")
	}
	if c.Limits.NotifyRingSize <= 0 {
		return fmt.Errorf("notify_ring_size must be greater than 0")
	}
	if c.Limits.MaxPathDepth <= 0 {
		return fmt.Errorf("max_path_depth must be greater than 0")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if strings.EqualFold(c.Logging.Level, level) {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// HasExternalTier reports whether a second backing tier was configured.
func (c *Configuration) HasExternalTier() bool {
	return c.Mount.ExternalDir != ""
}
