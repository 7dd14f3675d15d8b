package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"astrodenoise/pkg/cache"
	"astrodenoise/pkg/config"
	"astrodenoise/pkg/denoise"
	"astrodenoise/pkg/events"
	"astrodenoise/pkg/imageio"
	"astrodenoise/pkg/inference"
	"astrodenoise/pkg/progress"
)

// exitCancelled is returned when the run was interrupted
const exitCancelled = 2

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Parse command line arguments
	inputPath := flag.String("input", "", "Image to denoise (.tif, .tiff, .png, .jpg)")
	outputPath := flag.String("output", "denoised.tif", "Output image (.tif, .tiff, .png, .jpg)")
	configPath := flag.String("config", "astrodenoise.yaml", "YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	modelPath := flag.String("model", "", "ONNX denoising model (overrides config)")
	modelVersion := flag.String("model-version", "", "Model version (overrides config)")
	onnxLibrary := flag.String("onnxruntime", "", "Path to the onnxruntime shared library (overrides config)")
	strength := flag.Float64("strength", -1, "Blend strength in [0,1]; enables strength blending")
	batchSize := flag.Int("batch", 0, "Tiles per inference call (overrides config)")
	windowSize := flag.Int("window", 0, "Tile size expected by the model (overrides config)")
	stride := flag.Int("stride", 0, "Spacing between tiles (overrides config)")
	gpu := flag.Bool("gpu", true, "Use GPU execution providers when available")
	verbose := flag.Bool("verbose", false, "Log every batch and provider selection")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, flagOverrides{
		modelPath:    *modelPath,
		modelVersion: *modelVersion,
		onnxLibrary:  *onnxLibrary,
		strength:     *strength,
		batchSize:    *batchSize,
		windowSize:   *windowSize,
		stride:       *stride,
		gpu:          *gpu,
		verbose:      *verbose,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("ASTRODENOISE: TILED NEURAL DENOISING FOR ASTRONOMICAL IMAGES")
	fmt.Println("================================")

	img, err := imageio.Load(*inputPath)
	if err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}
	fmt.Printf("Loaded %s: %dx%d, %d channel(s)\n", *inputPath, img.Width, img.Height, img.Channels)

	bus := events.NewBus()
	results := cache.New()
	unsubscribe := results.Subscribe(bus)
	defer unsubscribe()
	bus.Emit(events.EventLoadImage, *inputPath)

	// Ctrl-C raises the cancel event; the run stops at the next batch
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		for range interrupts {
			fmt.Println("\nCancelling after the current batch...")
			bus.Emit(events.EventCancelProcessing, nil)
		}
	}()

	model := inference.ResolveModel(cfg.Model.Path, cfg.Model.Version)
	onnxOptions := inference.ONNXOptions{
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		Providers:         inference.ProvidersOrdered(cfg.Denoise.GPUAcceleration),
		Verbose:           cfg.Model.Verbose,
	}
	open := func(m inference.Model) (inference.Session, error) {
		return inference.NewONNXSession(m, onnxOptions)
	}

	params := denoise.Params{
		WindowSize:    cfg.Denoise.WindowSize,
		Stride:        cfg.Denoise.Stride,
		BatchSize:     cfg.Denoise.BatchSize,
		Strength:      cfg.Denoise.Strength,
		StrengthBlend: cfg.Denoise.StrengthBlend,
		Progress:      progress.NewBar("Denoising"),
		Verbose:       cfg.Output.Verbose,
	}
	if cfg.Output.SaveIntermediaryResults {
		params.IntermediaryDir = cfg.Output.IntermediaryDir
	}

	fmt.Printf("Model: %s (threshold %.1f)\n", model, model.Threshold())
	fmt.Printf("Tiling: window %d, stride %d, batch %d\n",
		params.WindowSize, params.Stride, denoise.NormalizeBatchSize(params.BatchSize))

	startTime := time.Now()
	denoiser := denoise.NewDenoiser(model, open, results, bus)
	result, err := denoiser.Run(context.Background(), img, params)
	if err != nil {
		log.Fatalf("Denoising failed: %v", err)
	}
	if result.Cancelled() {
		fmt.Println("Denoising cancelled, no output written")
		os.Exit(exitCancelled)
	}
	processingTime := time.Since(startTime)

	if err := imageio.Save(*outputPath, result.Image); err != nil {
		log.Fatalf("Failed to save output: %v", err)
	}

	fmt.Printf("\nDenoising completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output saved to: %s\n", *outputPath)
	if params.IntermediaryDir != "" {
		fmt.Printf("Intermediary results saved to: %s\n", params.IntermediaryDir)
	}
}

// flagOverrides holds command line values that take precedence over the
// configuration file. Zero values mean "not set".
type flagOverrides struct {
	modelPath    string
	modelVersion string
	onnxLibrary  string
	strength     float64
	batchSize    int
	windowSize   int
	stride       int
	gpu          bool
	verbose      bool
}

func applyFlags(cfg *config.Config, f flagOverrides) {
	if f.modelPath != "" {
		cfg.Model.Path = f.modelPath
	}
	if f.modelVersion != "" {
		cfg.Model.Version = f.modelVersion
	}
	if f.onnxLibrary != "" {
		cfg.Model.SharedLibraryPath = f.onnxLibrary
	}
	if f.strength >= 0 {
		cfg.Denoise.Strength = f.strength
		cfg.Denoise.StrengthBlend = true
	}
	if f.batchSize != 0 {
		cfg.Denoise.BatchSize = f.batchSize
	}
	if f.windowSize != 0 {
		cfg.Denoise.WindowSize = f.windowSize
	}
	if f.stride != 0 {
		cfg.Denoise.Stride = f.stride
	}
	if !f.gpu {
		cfg.Denoise.GPUAcceleration = false
	}
	if f.verbose {
		cfg.Output.Verbose = true
		cfg.Model.Verbose = true
	}
}
