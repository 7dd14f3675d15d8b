package inference

import (
	"errors"
	"fmt"
	"log"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// ONNXOptions configures how an ONNX Runtime session is created
type ONNXOptions struct {
	// SharedLibraryPath points at the onnxruntime shared library. Empty uses
	// the library's platform default.
	SharedLibraryPath string

	// Providers lists execution providers in order of preference
	Providers []string

	// Verbose enables diagnostic logging of provider selection
	Verbose bool
}

// ONNXSession runs a denoising model through ONNX Runtime
type ONNXSession struct {
	session    *onnxrt.DynamicAdvancedSession
	outputName string
	providers  []string
}

// NewONNXSession loads the model and attaches the requested execution
// providers. Providers that cannot be attached are skipped; the CPU provider
// is always available.
func NewONNXSession(model Model, opts ONNXOptions) (*ONNXSession, error) {
	if !onnxrt.IsInitialized() {
		if opts.SharedLibraryPath != "" {
			onnxrt.SetSharedLibraryPath(opts.SharedLibraryPath)
		}
		if err := onnxrt.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initializing onnxruntime: %v", ErrInference, err)
		}
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(model.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading model %s: %v", ErrInference, model.Path, err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: model %s has no outputs", ErrInference, model.Path)
	}
	if !hasInput(inputs, InputName) {
		return nil, fmt.Errorf("%w: model %s has no input named %q", ErrInference, model.Path, InputName)
	}

	options, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: creating session options: %v", ErrInference, err)
	}
	defer options.Destroy()

	used := attachProviders(options, opts.Providers, opts.Verbose)

	session, err := onnxrt.NewDynamicAdvancedSession(model.Path,
		[]string{InputName}, []string{outputs[0].Name}, options)
	if err != nil {
		return nil, fmt.Errorf("%w: loading model %s: %v", ErrInference, model.Path, err)
	}

	log.Printf("Available inference providers: %v", opts.Providers)
	log.Printf("Used inference providers: %v", used)

	return &ONNXSession{
		session:    session,
		outputName: outputs[0].Name,
		providers:  used,
	}, nil
}

// Providers returns the execution providers that were attached
func (s *ONNXSession) Providers() []string {
	return s.providers
}

// Run executes the model on one batch
func (s *ONNXSession) Run(input Tensor) (Tensor, error) {
	if input.Len() != len(input.Data) {
		return Tensor{}, fmt.Errorf("%w: tensor shape %v does not match %d elements",
			ErrInference, input.Shape, len(input.Data))
	}

	in, err := onnxrt.NewTensor(onnxrt.NewShape(input.Shape...), input.Data)
	if err != nil {
		return Tensor{}, fmt.Errorf("%w: creating input tensor: %v", ErrInference, err)
	}
	defer func() { _ = in.Destroy() }()

	outs := []onnxrt.Value{nil}
	if err := s.session.Run([]onnxrt.Value{in}, outs); err != nil {
		return Tensor{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	if outs[0] == nil {
		return Tensor{}, fmt.Errorf("%w: no output from model", ErrInference)
	}
	defer func() { _ = outs[0].Destroy() }()

	t, ok := outs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return Tensor{}, fmt.Errorf("%w: invalid output tensor type", ErrInference)
	}

	shape := t.GetShape()
	data := t.GetData()
	out := Tensor{
		Shape: append([]int64(nil), shape...),
		Data:  make([]float32, len(data)),
	}
	copy(out.Data, data)

	if len(out.Data) != len(input.Data) {
		return Tensor{}, fmt.Errorf("%w: output shape %v does not match input shape %v",
			ErrInference, out.Shape, input.Shape)
	}
	return out, nil
}

// Close releases the session
func (s *ONNXSession) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

func hasInput(infos []onnxrt.InputOutputInfo, name string) bool {
	for _, info := range infos {
		if info.Name == name {
			return true
		}
	}
	return false
}

// attachProviders appends the execution providers in order and returns the
// ones that were accepted
func attachProviders(options *onnxrt.SessionOptions, providers []string, verbose bool) []string {
	var used []string
	for _, p := range providers {
		var err error
		switch p {
		case ProviderCUDA:
			err = appendCUDA(options)
		case ProviderCoreML:
			err = options.AppendExecutionProviderCoreML(0)
		case ProviderDirectML:
			err = options.AppendExecutionProviderDirectML(0)
		case ProviderCPU:
			// always present, needs no registration
		default:
			err = errors.New("unknown provider")
		}
		if err != nil {
			if verbose {
				log.Printf("Skipping inference provider %s: %v", p, err)
			}
			continue
		}
		used = append(used, p)
	}
	if len(used) == 0 || used[len(used)-1] != ProviderCPU {
		used = append(used, ProviderCPU)
	}
	return used
}

func appendCUDA(options *onnxrt.SessionOptions) error {
	cuda, err := onnxrt.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()
	return options.AppendExecutionProviderCUDA(cuda)
}
