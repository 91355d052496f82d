package config

import (
	"os"
	"testing"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	os.Setenv("TEST_VISION_KEY", "sk-test-123")
	defer os.Unsetenv("TEST_VISION_KEY")

	// Create temp config file
	configContent := `
vision:
  api_key: ${TEST_VISION_KEY}
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	// Load config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Vision.APIKey != "sk-test-123" {
		t.Errorf("Expected api key sk-test-123, got %s", cfg.Vision.APIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Photos.Backend != "fs" {
		t.Errorf("Expected default photo backend fs, got %s", cfg.Photos.Backend)
	}
	if cfg.Scheduler.BatchSize != 10 {
		t.Errorf("Expected default batch size 10, got %d", cfg.Scheduler.BatchSize)
	}
}
