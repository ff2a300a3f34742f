package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "./loyalty_points.db" {
		t.Errorf("Unexpected default database path: %s", cfg.Database.Path)
	}
	if cfg.Redis.Enabled {
		t.Error("Expected Redis disabled by default")
	}
	if !cfg.Features.CacheEnabled {
		t.Error("Expected cache feature enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"server":{"port":"9000"},"database":{"path":"/tmp/from_file.db"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("SERVER_PORT", "9999")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("Expected env to win (9999), got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/from_file.db" {
		t.Errorf("Expected file value for database path, got %s", cfg.Database.Path)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg.Server.Port = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing port")
	}

	cfg.Server.Port = "8080"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Rate = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for non-positive rate limit")
	}
}
