package inference

import "runtime"

// Execution provider names as reported by ONNX Runtime
const (
	ProviderCUDA     = "CUDAExecutionProvider"
	ProviderCoreML   = "CoreMLExecutionProvider"
	ProviderDirectML = "DmlExecutionProvider"
	ProviderCPU      = "CPUExecutionProvider"
)

// ProvidersOrdered returns the execution providers to try, most preferred
// first. The CPU provider is always last, and is the only one when gpu is
// false.
func ProvidersOrdered(gpu bool) []string {
	return providersFor(runtime.GOOS, gpu)
}

func providersFor(goos string, gpu bool) []string {
	if !gpu {
		return []string{ProviderCPU}
	}
	switch goos {
	case "darwin":
		return []string{ProviderCoreML, ProviderCPU}
	case "windows":
		return []string{ProviderCUDA, ProviderDirectML, ProviderCPU}
	default:
		return []string{ProviderCUDA, ProviderCPU}
	}
}
