package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the default values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Denoise.BatchSize != 4 {
		t.Errorf("Expected batchSize=4, got %d", cfg.Denoise.BatchSize)
	}
	if cfg.Denoise.WindowSize != 256 || cfg.Denoise.Stride != 128 {
		t.Errorf("Expected 256/128 tiling, got %d/%d", cfg.Denoise.WindowSize, cfg.Denoise.Stride)
	}
	if !cfg.Denoise.GPUAcceleration {
		t.Errorf("Expected GPU acceleration enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

// TestLoadMissingFile verifies that a missing file yields defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Denoise.Stride != 128 {
		t.Errorf("Expected default stride, got %d", cfg.Denoise.Stride)
	}
}

// TestSaveAndLoad verifies a round trip through YAML
func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Denoise.BatchSize = 16
	cfg.Denoise.Strength = 0.6
	cfg.Model.Version = "2.0.0"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Denoise.BatchSize != 16 || loaded.Denoise.Strength != 0.6 {
		t.Errorf("Loaded values differ: %+v", loaded.Denoise)
	}
	if loaded.Model.Version != "2.0.0" {
		t.Errorf("Expected model version 2.0.0, got %q", loaded.Model.Version)
	}
}

// TestPartialFile verifies that keys missing from the file keep their defaults
func TestPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("denoise:\n  stride: 64\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Denoise.Stride != 64 {
		t.Errorf("Expected stride 64, got %d", cfg.Denoise.Stride)
	}
	if cfg.Denoise.WindowSize != 256 {
		t.Errorf("Expected default window size, got %d", cfg.Denoise.WindowSize)
	}
}

// TestInvalidYAML verifies that parse errors are reported
func TestInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("denoise: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected a parse error")
	}
}

// TestValidate checks the rejected settings
func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Denoise.Stride = 0
	if cfg.Validate() == nil {
		t.Errorf("Zero stride should be rejected")
	}

	cfg = DefaultConfig()
	cfg.Denoise.WindowSize = cfg.Denoise.Stride
	if cfg.Validate() == nil {
		t.Errorf("Window equal to stride should be rejected")
	}

	cfg = DefaultConfig()
	cfg.Denoise.Strength = 1.5
	if cfg.Validate() == nil {
		t.Errorf("Strength above 1 should be rejected")
	}

	// batch size is corrected, not rejected
	cfg = DefaultConfig()
	cfg.Denoise.BatchSize = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Batch size should not be validated: %v", err)
	}
}
