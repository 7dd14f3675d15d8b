package models

import "fmt"

// Image represents a floating-point image plane stack
type Image struct {
	// Pix holds the samples in row-major order with channels interleaved,
	// i.e. the sample at (y, x, c) lives at (y*Width+x)*Channels + c
	Pix []float32

	// Height is the number of rows
	Height int

	// Width is the number of columns
	Width int

	// Channels is the number of samples per pixel (1 for mono, 3 for color)
	Channels int
}

// NewImage allocates a zeroed image with the given shape
func NewImage(height, width, channels int) *Image {
	return &Image{
		Pix:      make([]float32, height*width*channels),
		Height:   height,
		Width:    width,
		Channels: channels,
	}
}

// Index returns the offset of sample (y, x, c) in Pix
func (m *Image) Index(y, x, c int) int {
	return (y*m.Width+x)*m.Channels + c
}

// At returns the sample at (y, x, c)
func (m *Image) At(y, x, c int) float32 {
	return m.Pix[m.Index(y, x, c)]
}

// Set stores a sample at (y, x, c)
func (m *Image) Set(y, x, c int, v float32) {
	m.Pix[m.Index(y, x, c)] = v
}

// Clone returns a deep copy of the image
func (m *Image) Clone() *Image {
	out := &Image{
		Pix:      make([]float32, len(m.Pix)),
		Height:   m.Height,
		Width:    m.Width,
		Channels: m.Channels,
	}
	copy(out.Pix, m.Pix)
	return out
}

// Shape returns (height, width, channels)
func (m *Image) Shape() (int, int, int) {
	return m.Height, m.Width, m.Channels
}

// Validate checks that the image is non-empty, has 1 or 3 channels
// and that Pix matches the declared shape
func (m *Image) Validate() error {
	if m == nil {
		return fmt.Errorf("image is nil")
	}
	if m.Height <= 0 || m.Width <= 0 {
		return fmt.Errorf("image has invalid size %dx%d", m.Width, m.Height)
	}
	if m.Channels != 1 && m.Channels != 3 {
		return fmt.Errorf("image has %d channels, expected 1 or 3", m.Channels)
	}
	if len(m.Pix) != m.Height*m.Width*m.Channels {
		return fmt.Errorf("image buffer has %d samples, expected %d",
			len(m.Pix), m.Height*m.Width*m.Channels)
	}
	return nil
}
