// Package denoise runs a residual denoising network over an image in
// overlapping tiles and stitches the results into a full-size image.
//
// The pipeline for one call is:
//  1. Plan the tile grid and pad the image so every tile is a full window
//  2. For each batch of tiles, normalize every tile in the log domain
//  3. Run the model on the batch; its output is the predicted noise
//  4. Subtract the noise, undo the normalization and protect bright samples
//  5. Write the inner block of every tile into the output canvas
//  6. Crop the canvas back to the input size and cache it
//
// Cancellation is polled between batches. A running inference call is never
// interrupted; only the next batch is skipped.
package denoise

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"astrodenoise/internal/models"
	"astrodenoise/pkg/cache"
	"astrodenoise/pkg/events"
	"astrodenoise/pkg/imageio"
	"astrodenoise/pkg/inference"
	"astrodenoise/pkg/normalize"
	"astrodenoise/pkg/progress"
	"astrodenoise/pkg/stitch"
	"astrodenoise/pkg/tiling"
)

// ErrInvalidImage is returned for images the pipeline cannot process
var ErrInvalidImage = errors.New("invalid image")

// Status describes how a call ended
type Status int

const (
	// StatusCompleted means Result.Image holds the denoised image
	StatusCompleted Status = iota
	// StatusCancelled means the call was cancelled and there is no image
	StatusCancelled
)

// String implements fmt.Stringer
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Result is the outcome of a denoise call that did not fail
type Result struct {
	Status Status
	Image  *models.Image
}

// Cancelled reports whether the call was cancelled
func (r Result) Cancelled() bool {
	return r.Status == StatusCancelled
}

// SessionOpener creates the inference session for a model. It is called
// once per denoise call.
type SessionOpener func(model inference.Model) (inference.Session, error)

// Params holds the parameters of one denoise call
type Params struct {
	// WindowSize is the tile edge length the model expects
	WindowSize int

	// Stride is the spacing between tile origins
	Stride int

	// BatchSize is corrected with NormalizeBatchSize
	BatchSize int

	// Strength and StrengthBlend control the optional blending of the
	// result into the original by background statistics
	Strength      float64
	StrengthBlend bool

	// Progress receives percentage increments. Nil logs progress instead.
	Progress progress.Sink

	// Cancel is polled between batches. Nil uses a private token, which
	// can still be raised through the event bus or the context.
	Cancel *CancelToken

	// IntermediaryDir, when set, receives the padded input and the output
	// canvas before cropping
	IntermediaryDir string

	// Verbose logs every batch
	Verbose bool
}

// Denoiser runs the tiled denoising pipeline
type Denoiser struct {
	model inference.Model
	open  SessionOpener
	cache *cache.ResultCache
	bus   *events.Bus
}

// NewDenoiser creates a denoiser for model. results and bus may be nil.
func NewDenoiser(model inference.Model, open SessionOpener, results *cache.ResultCache, bus *events.Bus) *Denoiser {
	return &Denoiser{
		model: model,
		open:  open,
		cache: results,
		bus:   bus,
	}
}

// tile holds one tile of a batch
type tile struct {
	i, j       int
	raw        *models.Image
	normalized []float32
	params     normalize.Params
}

// Run denoises img. A cancelled call returns a Result with StatusCancelled
// and a nil error. Any error leaves the cache untouched.
func (d *Denoiser) Run(ctx context.Context, img *models.Image, p Params) (Result, error) {
	token := p.Cancel
	if token == nil {
		token = NewCancelToken()
	}
	if d.bus != nil {
		remove := d.bus.On(events.EventCancelProcessing, func(interface{}) { token.Cancel() })
		defer remove()
	}

	if err := img.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	log.Println("Starting denoising")

	batchSize := NormalizeBatchSize(p.BatchSize)
	g, err := tiling.Plan(img.Height, img.Width, p.WindowSize, p.Stride)
	if err != nil {
		return Result{}, err
	}

	if p.StrengthBlend && d.cache != nil {
		if cached, ok := d.cache.Get(); ok && sameShape(cached, img) {
			log.Println("Reusing cached denoised image")
			return Result{Status: StatusCompleted, Image: d.blend(img, cached, p)}, nil
		}
	}

	session, err := d.open(d.model)
	if err != nil {
		return Result{}, fmt.Errorf("%w: opening model %s: %w", inference.ErrInference, d.model, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("Warning: failed to close inference session: %v", err)
		}
	}()

	padded, err := g.Pad(img)
	if err != nil {
		return Result{}, err
	}
	stitcher := stitch.New(g, padded.Clone())
	d.saveIntermediary(p, "padded_input.tif", padded)

	sink := p.Progress
	if sink == nil {
		sink = &progress.Logger{}
	}

	threshold := d.model.Threshold()
	total := g.NumTiles()
	end := total + batchSize
	lastProgress := 0

	for b := 0; b < end; b += batchSize {
		if token.Cancelled() || ctx.Err() != nil {
			log.Println("Denoising cancelled")
			return Result{Status: StatusCancelled}, nil
		}

		tiles := make([]tile, 0, batchSize)
		for n := b; n < b+batchSize; n++ {
			i, j, ok := g.SplitTileIndex(n)
			if !ok {
				break
			}
			tiles = append(tiles, tile{i: i, j: j})
		}
		if len(tiles) == 0 {
			continue
		}

		if p.Verbose {
			log.Printf("Denoising batch at tile %d with %d tiles", b, len(tiles))
		}
		if err := d.processBatch(session, g, padded, stitcher, tiles, threshold); err != nil {
			return Result{}, fmt.Errorf("batch at tile %d: %w", b, err)
		}

		if pct := b * 100 / end; pct > lastProgress {
			sink.Update(pct - lastProgress)
			lastProgress = pct
		}
	}

	d.saveIntermediary(p, "output_canvas.tif", stitcher.Canvas())
	output := g.Crop(stitcher.Canvas())
	if d.cache != nil {
		d.cache.Set(output)
	}
	if lastProgress < 100 {
		sink.Update(100 - lastProgress)
	}
	log.Println("Finished denoising")

	if p.StrengthBlend {
		output = d.blend(img, output, p)
	}
	return Result{Status: StatusCompleted, Image: output}, nil
}

// processBatch runs one batch of tiles through normalization, inference,
// denormalization and blending, and writes the results to the canvas
func (d *Denoiser) processBatch(session inference.Session, g tiling.Geometry, padded *models.Image,
	stitcher *stitch.Stitcher, tiles []tile, threshold float32) error {

	ws := g.WindowSize
	area := ws * ws
	channels := padded.Channels

	input := inference.NewTensor(int64(len(tiles)*channels), 1, int64(ws), int64(ws))
	for t := range tiles {
		tl := &tiles[t]
		tl.raw = g.Tile(padded, tl.i, tl.j)
		tl.normalized, tl.params = normalize.Forward(tl.raw.Pix)
		packPlanes(input.Data[t*channels*area:(t+1)*channels*area], tl.normalized, channels)
	}

	noise, err := session.Run(input)
	if err != nil {
		return fmt.Errorf("%w: %w", inference.ErrInference, err)
	}
	if len(noise.Data) != len(input.Data) {
		return fmt.Errorf("%w: model returned %d values for %d inputs",
			inference.ErrInference, len(noise.Data), len(input.Data))
	}

	// residual model: the output is the noise, not the clean image
	residual := make([]float32, channels*area)
	interleaved := make([]float32, channels*area)
	for t := range tiles {
		tl := &tiles[t]
		base := t * channels * area
		for k := range residual {
			residual[k] = input.Data[base+k] - noise.Data[base+k]
		}

		denoised := tl.raw.Clone()
		if !tl.params.Flat {
			unpackPlanes(interleaved, residual, channels)
			denoised.Pix = normalize.Inverse(interleaved, tl.params)
			stitch.Blend(tl.raw.Pix, tl.normalized, denoised.Pix, threshold)
		}
		stitcher.Write(denoised, tl.i, tl.j)
	}
	return nil
}

// packPlanes converts an interleaved HWC tile into C consecutive planes
func packPlanes(dst, src []float32, channels int) {
	area := len(src) / channels
	for k := 0; k < area; k++ {
		for c := 0; c < channels; c++ {
			dst[c*area+k] = src[k*channels+c]
		}
	}
}

// unpackPlanes is the inverse of packPlanes
func unpackPlanes(dst, src []float32, channels int) {
	area := len(src) / channels
	for k := 0; k < area; k++ {
		for c := 0; c < channels; c++ {
			dst[k*channels+c] = src[c*area+k]
		}
	}
}

func (d *Denoiser) blend(original, denoised *models.Image, p Params) *models.Image {
	stats := stitch.BackgroundStats(original)
	return stitch.BlendWithStrength(original, denoised, p.Strength, d.model.Threshold(), stats)
}

func (d *Denoiser) saveIntermediary(p Params, name string, img *models.Image) {
	if p.IntermediaryDir == "" {
		return
	}
	path := filepath.Join(p.IntermediaryDir, name)
	if err := imageio.Save(path, img); err != nil {
		log.Printf("Warning: failed to save intermediary result %s: %v", path, err)
	}
}

func sameShape(a, b *models.Image) bool {
	return a.Height == b.Height && a.Width == b.Width && a.Channels == b.Channels
}
