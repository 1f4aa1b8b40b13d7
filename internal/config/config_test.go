package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected Level to be INFO, got %s", cfg.Logging.Level)
	}
	if cfg.Mount.FSName != "unionmount" {
		t.Errorf("Expected FSName to be unionmount, got %s", cfg.Mount.FSName)
	}
	if cfg.Mount.EntryTimeout != 1*time.Second {
		t.Errorf("Expected EntryTimeout to be 1s, got %v", cfg.Mount.EntryTimeout)
	}
	if cfg.Limits.MaxOpenHandles != 256 {
		t.Errorf("Expected MaxOpenHandles to be 256, got %d", cfg.Limits.MaxOpenHandles)
	}
	if cfg.Limits.EvictingCapacity != 256 {
		t.Errorf("Expected EvictingCapacity to be 256, got %d", cfg.Limits.EvictingCapacity)
	}
	if cfg.Limits.PendingCapacity != 1024 {
		t.Errorf("Expected PendingCapacity to be 1024, got %d", cfg.Limits.PendingCapacity)
	}
	if cfg.Limits.SyncingCapacity != 1024 {
		t.Errorf("Expected SyncingCapacity to be 1024, got %d", cfg.Limits.SyncingCapacity)
	}
	if cfg.Limits.NotifyRingSize != 4096 {
		t.Errorf("Expected NotifyRingSize to be 4096, got %d", cfg.Limits.NotifyRingSize)
	}
	if cfg.Limits.MaxPathDepth != 40 {
		t.Errorf("Expected MaxPathDepth to be 40, got %d", cfg.Limits.MaxPathDepth)
	}
	if cfg.HasExternalTier() {
		t.Error("Expected HasExternalTier to be false by default")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Configuration {
		cfg := Default()
		cfg.Mount.MountPath = "/mnt/union"
		cfg.Mount.LocalDir = "/var/lib/unionmountd/local"
		return cfg
	}

	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  base,
			wantErr: false,
		},
		{
			name: "missing mount path",
			config: func() *Configuration {
				cfg := base()
				cfg.Mount.MountPath = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "mount_path is required",
		},
		{
			name: "missing local dir",
			config: func() *Configuration {
				cfg := base()
				cfg.Mount.LocalDir = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "local_dir is required",
		},
		{
			name: "local dir equals mount path",
			config: func() *Configuration {
				cfg := base()
				cfg.Mount.LocalDir = cfg.Mount.MountPath
				return cfg
			},
			wantErr: true,
			errMsg:  "must differ",
		},
		{
			name: "external dir equals local dir",
			config: func() *Configuration {
				cfg := base()
				cfg.Mount.ExternalDir = cfg.Mount.LocalDir
				return cfg
			},
			wantErr: true,
			errMsg:  "must differ",
		},
		{
			name: "zero open handle ceiling",
			config: func() *Configuration {
				cfg := base()
				cfg.Limits.MaxOpenHandles = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "max_open_handles must be greater than 0",
		},
		{
			name: "zero mask capacity",
			config: func() *Configuration {
				cfg := base()
				cfg.Limits.SyncingCapacity = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "mask capacities must be greater than 0",
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := base()
				cfg.Logging.Level = "VERBOSE"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config()
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
mount:
  mount_path: /mnt/union
  local_dir: /srv/local
  external_dir: /srv/external
  allow_other: true

limits:
  max_open_handles: 128

logging:
  level: DEBUG
  metrics_addr: ":9100"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Mount.MountPath != "/mnt/union" {
		t.Errorf("Expected MountPath /mnt/union, got %s", cfg.Mount.MountPath)
	}
	if cfg.Mount.ExternalDir != "/srv/external" {
		t.Errorf("Expected ExternalDir /srv/external, got %s", cfg.Mount.ExternalDir)
	}
	if !cfg.Mount.AllowOther {
		t.Error("Expected AllowOther to be true")
	}
	if cfg.Limits.MaxOpenHandles != 128 {
		t.Errorf("Expected MaxOpenHandles 128, got %d", cfg.Limits.MaxOpenHandles)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected Level DEBUG, got %s", cfg.Logging.Level)
	}
	if !cfg.HasExternalTier() {
		t.Error("Expected HasExternalTier to be true")
	}
}

func TestLoadFromFileNonExistent(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error when loading non-existent config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UNIONMOUNTD_MOUNT_PATH", "/mnt/union")
	t.Setenv("UNIONMOUNTD_LOCAL_DIR", "/srv/local")
	t.Setenv("UNIONMOUNTD_EXTERNAL_DIR", "/srv/external")
	t.Setenv("UNIONMOUNTD_READ_ONLY", "true")
	t.Setenv("UNIONMOUNTD_ALLOW_OTHER", "TRUE")
	t.Setenv("UNIONMOUNTD_LOG_LEVEL", "WARN")
	t.Setenv("UNIONMOUNTD_MAX_OPEN_HANDLES", "64")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Mount.MountPath != "/mnt/union" {
		t.Errorf("Expected MountPath /mnt/union, got %s", cfg.Mount.MountPath)
	}
	if !cfg.Mount.ReadOnly {
		t.Error("Expected ReadOnly to be true")
	}
	if !cfg.Mount.AllowOther {
		t.Error("Expected AllowOther to be true")
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected Level WARN, got %s", cfg.Logging.Level)
	}
	if cfg.Limits.MaxOpenHandles != 64 {
		t.Errorf("Expected MaxOpenHandles 64, got %d", cfg.Limits.MaxOpenHandles)
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "saved_config.yaml")

	cfg := Default()
	cfg.Mount.MountPath = "/mnt/union"
	cfg.Mount.LocalDir = "/srv/local"
	cfg.Logging.Level = "DEBUG"

	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	loaded := Default()
	if err := loaded.LoadFromFile(configFile); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Mount.MountPath != "/mnt/union" {
		t.Errorf("Expected MountPath /mnt/union, got %s", loaded.Mount.MountPath)
	}
	if loaded.Logging.Level != "DEBUG" {
		t.Errorf("Expected Level DEBUG, got %s", loaded.Logging.Level)
	}
}

func TestSaveToFileCreateDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := Default()
	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
	if _, err := os.Stat(filepath.Dir(configFile)); os.IsNotExist(err) {
		t.Error("Config directory was not created")
	}
}
