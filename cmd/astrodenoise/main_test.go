package main

import (
	"testing"

	"astrodenoise/pkg/config"
)

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	applyFlags(cfg, flagOverrides{
		modelPath: "other.onnx",
		strength:  0.4,
		batchSize: 7,
		stride:    64,
		gpu:       false,
		verbose:   true,
	})

	if cfg.Model.Path != "other.onnx" {
		t.Errorf("Expected model path override, got %q", cfg.Model.Path)
	}
	if !cfg.Denoise.StrengthBlend || cfg.Denoise.Strength != 0.4 {
		t.Errorf("Expected strength blending at 0.4, got %v/%v", cfg.Denoise.StrengthBlend, cfg.Denoise.Strength)
	}
	if cfg.Denoise.BatchSize != 7 || cfg.Denoise.Stride != 64 {
		t.Errorf("Unexpected tiling values %+v", cfg.Denoise)
	}
	if cfg.Denoise.WindowSize != 256 {
		t.Errorf("Unset window size should keep the default, got %d", cfg.Denoise.WindowSize)
	}
	if cfg.Denoise.GPUAcceleration {
		t.Errorf("Expected GPU acceleration disabled")
	}
	if !cfg.Output.Verbose || !cfg.Model.Verbose {
		t.Errorf("Expected verbose output")
	}
}

func TestApplyFlagsKeepsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Denoise.StrengthBlend = false
	applyFlags(cfg, flagOverrides{strength: -1, gpu: true})

	if cfg.Denoise.StrengthBlend {
		t.Errorf("Negative strength should leave blending off")
	}
	if !cfg.Denoise.GPUAcceleration {
		t.Errorf("GPU acceleration should stay enabled")
	}
}
