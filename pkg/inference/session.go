// Package inference defines the tensor contract between the denoising
// pipeline and the neural network runtime, and provides an ONNX Runtime
// backed implementation of it.
package inference

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInference wraps every failure to build or run an inference session
var ErrInference = errors.New("inference failed")

// InputName is the name of the model's image input
const InputName = "gen_input_image"

// Tensor is a dense float32 tensor in NCHW layout
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor allocates a zeroed tensor of the given shape
func NewTensor(shape ...int64) Tensor {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return Tensor{Shape: shape, Data: make([]float32, n)}
}

// Len returns the number of elements the shape describes
func (t Tensor) Len() int {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return int(n)
}

// Session runs batched inference. Run receives a [N, 1, window, window]
// tensor and returns a tensor of the same shape holding the predicted noise.
// Run blocks until the result is available.
type Session interface {
	Run(input Tensor) (Tensor, error)
	Close() error
}

// Model identifies a denoising model file and the metadata the pipeline
// needs to use it
type Model struct {
	Path    string
	Version string

	// Legacy marks models from the first model family, which were trained
	// with a tighter normalized-domain range
	Legacy bool
}

// legacyVersions lists the model versions belonging to the legacy family
var legacyVersions = []string{"1.0.0", "1.1.0"}

// ResolveModel builds the model metadata for a model file. When version is
// empty it is taken from the file path if one of the known legacy versions
// appears there.
func ResolveModel(path, version string) Model {
	m := Model{Path: path, Version: version}
	for _, v := range legacyVersions {
		if version == v || (version == "" && strings.Contains(path, v)) {
			m.Legacy = true
			if m.Version == "" {
				m.Version = v
			}
			break
		}
	}
	return m
}

// Threshold returns the normalized-domain level above which a sample is
// treated as signal and left untouched
func (m Model) Threshold() float32 {
	if m.Legacy {
		return 1.0
	}
	return 10.0
}

// String implements fmt.Stringer
func (m Model) String() string {
	if m.Version == "" {
		return m.Path
	}
	return fmt.Sprintf("%s (v%s)", m.Path, m.Version)
}
