// Package config provides configuration loading and management for astrodenoise.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Denoising parameters
	Denoise struct {
		// Strength mixes the denoised result with the original, in [0, 1].
		// Only used when StrengthBlend is enabled.
		Strength float64 `yaml:"strength"`

		// BatchSize is the number of tiles per inference call. It is
		// corrected to a power of two in [1, 32].
		BatchSize int `yaml:"batchSize"`

		// WindowSize is the tile edge length expected by the model
		WindowSize int `yaml:"windowSize"`

		// Stride is the spacing between tile origins
		Stride int `yaml:"stride"`

		// GPUAcceleration enables GPU execution providers when available
		GPUAcceleration bool `yaml:"gpuAcceleration"`

		// StrengthBlend enables blending by Strength against background statistics
		StrengthBlend bool `yaml:"strengthBlend"`
	} `yaml:"denoise"`

	// Model parameters
	Model struct {
		// Path is the ONNX model file
		Path string `yaml:"path"`

		// Version of the model; empty infers it from the path
		Version string `yaml:"version"`

		// SharedLibraryPath points at the onnxruntime shared library
		SharedLibraryPath string `yaml:"sharedLibraryPath"`

		// Verbose enables diagnostic output from provider selection
		Verbose bool `yaml:"verbose"`
	} `yaml:"model"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults writes the padded input and output canvases
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary results are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Denoise.Strength = 1.0
	cfg.Denoise.BatchSize = 4
	cfg.Denoise.WindowSize = 256
	cfg.Denoise.Stride = 128
	cfg.Denoise.GPUAcceleration = true
	cfg.Denoise.StrengthBlend = false

	cfg.Model.Path = "denoise-model.onnx"

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	if c.Denoise.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %d", c.Denoise.Stride)
	}
	if c.Denoise.WindowSize <= c.Denoise.Stride {
		return fmt.Errorf("window size %d must exceed stride %d", c.Denoise.WindowSize, c.Denoise.Stride)
	}
	if c.Denoise.Strength < 0 || c.Denoise.Strength > 1 {
		return fmt.Errorf("strength must be in [0, 1], got %g", c.Denoise.Strength)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path is empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
