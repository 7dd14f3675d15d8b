// Package imageio loads images from disk into the float representation used
// by the denoiser and writes results back out.
//
// Supported formats are TIFF (8 and 16 bit, via golang.org/x/image/tiff),
// PNG and JPEG. Astronomical container formats such as FITS and XISF are
// expected to be converted upstream.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"

	"astrodenoise/internal/models"
)

// Load reads an image file and converts it to a float image in [0, 1].
// Grayscale files yield one channel, everything else three.
func Load(path string) (*models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var img image.Image
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tif", ".tiff":
		img, err = tiff.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	default:
		return nil, fmt.Errorf("unsupported image format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	out := FromImage(img)
	RescaleIntensity(out)
	return out, nil
}

// Save writes img to path. The format follows the file extension: TIFF and
// PNG are written with 16 bits per sample, JPEG with 8.
func Save(path string, img *models.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	out := ToImage(img)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tif", ".tiff":
		err = tiff.Encode(file, out, &tiff.Options{Compression: tiff.Deflate})
	case ".png":
		err = png.Encode(file, out)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, out, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return file.Close()
}

// FromImage converts a decoded image to the float representation
func FromImage(img image.Image) *models.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	channels := 3
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		channels = 1
	}

	out := models.NewImage(height, width, channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Convert 16-bit color to float (0-1 range)
			if channels == 1 {
				out.Set(y, x, 0, float32(r)/65535)
				continue
			}
			out.Set(y, x, 0, float32(r)/65535)
			out.Set(y, x, 1, float32(g)/65535)
			out.Set(y, x, 2, float32(b)/65535)
		}
	}
	return out
}

// ToImage converts a float image to a 16-bit image, clamping to [0, 1]
func ToImage(img *models.Image) image.Image {
	rect := image.Rect(0, 0, img.Width, img.Height)

	if img.Channels == 1 {
		out := image.NewGray16(rect)
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				out.SetGray16(x, y, color.Gray16{Y: quantize(img.At(y, x, 0))})
			}
		}
		return out
	}

	out := image.NewRGBA64(rect)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetRGBA64(x, y, color.RGBA64{
				R: quantize(img.At(y, x, 0)),
				G: quantize(img.At(y, x, 1)),
				B: quantize(img.At(y, x, 2)),
				A: 0xffff,
			})
		}
	}
	return out
}

// RescaleIntensity stretches the image linearly to [0, 1] when any sample
// lies outside that range. Images already within range are left alone.
func RescaleIntensity(img *models.Image) {
	if len(img.Pix) == 0 {
		return
	}
	values := make([]float64, len(img.Pix))
	for k, v := range img.Pix {
		values[k] = float64(v)
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo >= 0 && hi <= 1 {
		return
	}
	span := hi - lo
	for k, v := range values {
		if span == 0 {
			img.Pix[k] = 0
			continue
		}
		img.Pix[k] = float32((v - lo) / span)
	}
}

func quantize(v float32) uint16 {
	return uint16(math.Round(math.Max(0, math.Min(65535, float64(v)*65535))))
}
